// Package media provides the camera used for the low-framerate video chat.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"sync"
	"time"

	"golang.org/x/exp/rand"
)

var (
	ErrAccessDenied = errors.New("camera access denied")
	ErrStreamClosed = errors.New("camera stream closed")
)

type Constraints struct {
	Width     int
	Height    int
	FrameRate int
	Audio     bool
}

// DefaultConstraints asks for a small silent feed: 320x240 at 15fps.
func DefaultConstraints() Constraints {
	return Constraints{Width: 320, Height: 240, FrameRate: 15}
}

type Camera interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Stream is an acquired camera. It must be closed to release the device.
type Stream interface {
	// Snapshot captures the current frame as a JPEG of the given quality (1-100).
	Snapshot(quality int) ([]byte, error)
	Close() error
}

// ByName resolves the camera named in the configuration.
func ByName(name string) (Camera, error) {
	switch name {
	case "", "pattern":
		return TestPattern{}, nil
	case "none":
		return Denied{}, nil
	default:
		return nil, fmt.Errorf("unknown camera %q", name)
	}
}

// Denied behaves like a camera whose permission was refused.
type Denied struct{}

func (Denied) Open(ctx context.Context, c Constraints) (Stream, error) {
	return nil, ErrAccessDenied
}

// TestPattern is a synthetic camera producing moving colour bars with a little noise.
type TestPattern struct {
	Seed uint64
}

func (t TestPattern) Open(ctx context.Context, c Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.Audio {
		return nil, fmt.Errorf("%w: audio is not supported", ErrAccessDenied)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", c.Width, c.Height)
	}
	seed := t.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &patternStream{
		img:   image.NewRGBA(image.Rect(0, 0, c.Width, c.Height)),
		rng:   rand.New(rand.NewSource(seed)),
		start: time.Now(),
	}, nil
}

type patternStream struct {
	mu     sync.Mutex
	img    *image.RGBA
	rng    *rand.Rand
	start  time.Time
	closed bool
}

func (s *patternStream) Snapshot(quality int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStreamClosed
	}

	s.paint(time.Since(s.start).Seconds())
	buf := bytes.Buffer{}
	if err := jpeg.Encode(&buf, s.img, &jpeg.Options{Quality: max(1, min(quality, 100))}); err != nil {
		return nil, fmt.Errorf("encoding frame: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *patternStream) paint(t float64) {
	b := s.img.Bounds()
	shift := int(t*40) % b.Dx()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			band := ((x + shift) * 7 / b.Dx()) % 7
			v := uint8(60 + 40*math.Sin(float64(y)/12+t))
			n := uint8(s.rng.Intn(24))
			s.img.SetRGBA(x, y, bar(band, v+n))
		}
	}
}

func bar(band int, v uint8) color.RGBA {
	switch band {
	case 0:
		return color.RGBA{v, v, v, 255}
	case 1:
		return color.RGBA{v, v, 0, 255}
	case 2:
		return color.RGBA{0, v, v, 255}
	case 3:
		return color.RGBA{0, v, 0, 255}
	case 4:
		return color.RGBA{v, 0, v, 255}
	case 5:
		return color.RGBA{v, 0, 0, 255}
	default:
		return color.RGBA{0, 0, v, 255}
	}
}

func (s *patternStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
