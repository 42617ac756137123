// Package packet defines the three data-channel packets exchanged by the two peers and the
// codecs that put them on the wire.
//
// Every packet carries a one-letter tag in field "t". Decoders reject unknown tags with
// ErrUnknownTag so that callers can skip the message without tearing the channel down.
package packet

import (
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strings"
)

type Tag string

const (
	TagUpdate     Tag = "u"
	TagPaddleMove Tag = "p"
	TagVideoFrame Tag = "v"
)

var (
	ErrUnknownTag    = errors.New("unknown packet tag")
	ErrInvalidPacket = errors.New("invalid packet")
)

// Packet is implemented only by Update, PaddleMove and VideoFrame.
type Packet interface {
	Tag() Tag
	Validate() error
	isPacket()
}

type Ball struct {
	X  float64 `json:"x" msgpack:"x"`
	Y  float64 `json:"y" msgpack:"y"`
	VX float64 `json:"vx" msgpack:"vx"`
	VY float64 `json:"vy" msgpack:"vy"`
}

// Update is the host's authoritative state broadcast.
type Update struct {
	Ball Ball    `json:"b" msgpack:"b"`
	P1Y  float64 `json:"p1y" msgpack:"p1y"`
	S1   int     `json:"s1" msgpack:"s1"`
	S2   int     `json:"s2" msgpack:"s2"`
}

// PaddleMove reports the sender's paddle position.
type PaddleMove struct {
	Y float64 `json:"y" msgpack:"y"`
}

// VideoFrame carries one base64 encoded JPEG still.
type VideoFrame struct {
	Data string `json:"d" msgpack:"d"`
}

func (Update) Tag() Tag     { return TagUpdate }
func (PaddleMove) Tag() Tag { return TagPaddleMove }
func (VideoFrame) Tag() Tag { return TagVideoFrame }

func (Update) isPacket()     {}
func (PaddleMove) isPacket() {}
func (VideoFrame) isPacket() {}

func (u Update) Validate() error {
	if !finite(u.Ball.X, u.Ball.Y, u.Ball.VX, u.Ball.VY, u.P1Y) {
		return fmt.Errorf("%w: update has non-finite coordinates", ErrInvalidPacket)
	}
	if u.S1 < 0 || u.S2 < 0 {
		return fmt.Errorf("%w: negative score %d-%d", ErrInvalidPacket, u.S1, u.S2)
	}
	return nil
}

func (p PaddleMove) Validate() error {
	if !finite(p.Y) {
		return fmt.Errorf("%w: paddle y is not finite", ErrInvalidPacket)
	}
	return nil
}

func (v VideoFrame) Validate() error {
	if v.Data == "" {
		return fmt.Errorf("%w: empty video frame", ErrInvalidPacket)
	}
	return nil
}

// NewVideoFrame wraps a compressed image for transmission.
func NewVideoFrame(jpeg []byte) VideoFrame {
	return VideoFrame{Data: base64.StdEncoding.EncodeToString(jpeg)}
}

// Image returns the decoded image bytes. A data URL prefix, as browsers produce, is accepted.
func (v VideoFrame) Image() ([]byte, error) {
	d := v.Data
	if strings.HasPrefix(d, "data:") {
		i := strings.IndexByte(d, ',')
		if i < 0 {
			return nil, fmt.Errorf("%w: malformed data url", ErrInvalidPacket)
		}
		d = d[i+1:]
	}
	b, err := base64.StdEncoding.DecodeString(d)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPacket, err)
	}
	return b, nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
