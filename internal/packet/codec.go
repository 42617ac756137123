package packet

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Codec turns packets into data-channel messages and back.
type Codec interface {
	Name() string
	// Binary reports whether encoded messages must travel as binary frames.
	Binary() bool
	Marshal(p Packet) ([]byte, error)
	Unmarshal(b []byte) (Packet, error)
}

// The wire shapes flatten the tag next to the payload fields: {"t":"u","b":{...},...}.
type updateWire struct {
	T    Tag     `json:"t" msgpack:"t"`
	Ball Ball    `json:"b" msgpack:"b"`
	P1Y  float64 `json:"p1y" msgpack:"p1y"`
	S1   int     `json:"s1" msgpack:"s1"`
	S2   int     `json:"s2" msgpack:"s2"`
}

type paddleMoveWire struct {
	T Tag     `json:"t" msgpack:"t"`
	Y float64 `json:"y" msgpack:"y"`
}

type videoFrameWire struct {
	T    Tag    `json:"t" msgpack:"t"`
	Data string `json:"d" msgpack:"d"`
}

type header struct {
	T Tag `json:"t" msgpack:"t"`
}

func toWire(p Packet) (any, error) {
	switch v := p.(type) {
	case Update:
		return updateWire{T: TagUpdate, Ball: v.Ball, P1Y: v.P1Y, S1: v.S1, S2: v.S2}, nil
	case PaddleMove:
		return paddleMoveWire{T: TagPaddleMove, Y: v.Y}, nil
	case VideoFrame:
		return videoFrameWire{T: TagVideoFrame, Data: v.Data}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownTag, p)
	}
}

// decodeTagged reads the tag with unmarshal, then the matching wire shape.
func decodeTagged(b []byte, unmarshal func([]byte, any) error) (Packet, error) {
	h := header{}
	if err := unmarshal(b, &h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPacket, err)
	}

	var p Packet
	switch h.T {
	case TagUpdate:
		w := updateWire{}
		if err := unmarshal(b, &w); err != nil {
			return nil, fmt.Errorf("%w: update: %v", ErrInvalidPacket, err)
		}
		p = Update{Ball: w.Ball, P1Y: w.P1Y, S1: w.S1, S2: w.S2}
	case TagPaddleMove:
		w := paddleMoveWire{}
		if err := unmarshal(b, &w); err != nil {
			return nil, fmt.Errorf("%w: paddle move: %v", ErrInvalidPacket, err)
		}
		p = PaddleMove{Y: w.Y}
	case TagVideoFrame:
		w := videoFrameWire{}
		if err := unmarshal(b, &w); err != nil {
			return nil, fmt.Errorf("%w: video frame: %v", ErrInvalidPacket, err)
		}
		p = VideoFrame{Data: w.Data}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTag, h.T)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

type jsonCodec struct{}

// JSON is the default codec and matches the browser peers' message shape.
var JSON Codec = jsonCodec{}

func (jsonCodec) Name() string { return "json" }
func (jsonCodec) Binary() bool { return false }

func (jsonCodec) Marshal(p Packet) ([]byte, error) {
	w, err := toWire(p)
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

func (jsonCodec) Unmarshal(b []byte) (Packet, error) {
	return decodeTagged(b, json.Unmarshal)
}

// CodecByName resolves the codec named in the configuration. An empty name selects JSON.
func CodecByName(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "", "json":
		return JSON, nil
	case "msgpack":
		return Msgpack, nil
	case "proto", "protobuf":
		return Proto, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}
