package renderer

import (
	"bytes"
	"strconv"

	"neonpong/internal/pong"
)

type UiAction int

const (
	Unknown UiAction = iota
	Quit
	Up
	Down
	Refresh
	Pointer
)

// Event is one decoded key press or pointer report. Row and Col are 1-based terminal cells and
// only set for Pointer.
type Event struct {
	Action UiAction
	Row    int
	Col    int
}

// ProcessInput decodes a chunk read from a raw terminal. A chunk may hold several events.
func ProcessInput(buf []byte) []Event {
	var events []Event
	for len(buf) > 0 {
		ev, n := nextEvent(buf)
		buf = buf[n:]
		if ev.Action != Unknown {
			events = append(events, ev)
		}
	}
	return events
}

func nextEvent(buf []byte) (Event, int) {
	if buf[0] != 27 {
		return Event{Action: keyAction(buf[0])}, 1
	}
	if len(buf) < 3 || buf[1] != '[' {
		return Event{}, 1
	}
	switch buf[2] {
	case 'A':
		return Event{Action: Up}, 3
	case 'B':
		return Event{Action: Down}, 3
	case '<':
		return mouseEvent(buf)
	}
	return Event{}, 3
}

func keyAction(b byte) UiAction {
	switch b {
	case 'q', 'Q', 3: // ctrl-c arrives as a byte in raw mode
		return Quit
	case 'w', 'W', 'k', 'K':
		return Up
	case 's', 'S', 'j', 'J':
		return Down
	case 'r', 'R':
		return Refresh
	}
	return Unknown
}

// mouseEvent parses an SGR report: ESC [ < button ; col ; row (M|m).
func mouseEvent(buf []byte) (Event, int) {
	end := bytes.IndexAny(buf, "Mm")
	if end < 0 {
		return Event{}, len(buf)
	}
	fields := bytes.Split(buf[3:end], []byte(";"))
	if len(fields) != 3 {
		return Event{}, end + 1
	}
	col, errC := strconv.Atoi(string(fields[1]))
	row, errR := strconv.Atoi(string(fields[2]))
	if errC != nil || errR != nil {
		return Event{}, end + 1
	}
	return Event{Action: Pointer, Row: row, Col: col}, end + 1
}

// PointerToPaddle maps a pointer row on a surface of `rows` terminal rows onto the logical
// field and centres the paddle on it.
func PointerToPaddle(cfg pong.Config, row, rows int) float64 {
	if rows <= 0 {
		return cfg.ClampPaddle(0)
	}
	scale := cfg.Height / float64(rows)
	y := (float64(row)-0.5)*scale - cfg.PaddleHeight/2
	return cfg.ClampPaddle(y)
}

// Bridge turns input events into paddle targets for the local side.
type Bridge struct {
	cfg  pong.Config
	y    float64
	Step float64
}

func NewBridge(cfg pong.Config) *Bridge {
	return &Bridge{cfg: cfg, y: cfg.NewGameState().Paddle1.Y, Step: cfg.PaddleHeight / 4}
}

// Apply folds ev into the paddle target. fieldRows is the number of terminal rows the field
// occupies. It reports whether the target changed.
func (b *Bridge) Apply(ev Event, fieldRows int) (float64, bool) {
	prev := b.y
	switch ev.Action {
	case Up:
		b.y = b.cfg.ClampPaddle(b.y - b.Step)
	case Down:
		b.y = b.cfg.ClampPaddle(b.y + b.Step)
	case Pointer:
		b.y = PointerToPaddle(b.cfg, ev.Row, fieldRows)
	default:
		return b.y, false
	}
	return b.y, b.y != prev
}
