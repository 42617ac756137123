package pong

type GameState struct {
	Ball    Ball
	Paddle1 Paddle // host, left
	Paddle2 Paddle // client, right
}

type Ball struct {
	X  float64
	Y  float64
	VX float64
	VY float64
}

type Paddle struct {
	Y     float64
	Score int
}

// Side identifies a half of the field. Advance reports the side that scored.
type Side int

const (
	NoSide Side = iota
	Left
	Right
)

func (s Side) String() string {
	switch s {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "none"
	}
}

type Config struct {
	Width        float64
	Height       float64
	PaddleWidth  float64
	PaddleHeight float64
	BallRadius   float64

	// Serve velocity after a point: VX is ±ServeSpeed, VY is drawn from [-ServeSpin, ServeSpin).
	ServeSpeed float64
	ServeSpin  float64

	// BounceMultiplier scales horizontal speed on every paddle hit.
	BounceMultiplier float64
	SpinFactor       float64
	// MaxSpeed caps |VX| after a paddle hit. Zero leaves rallies unbounded.
	MaxSpeed float64
}

func DefaultConfig() Config {
	return Config{
		Width:            800,
		Height:           600,
		PaddleWidth:      15,
		PaddleHeight:     100,
		BallRadius:       10,
		ServeSpeed:       6,
		ServeSpin:        3,
		BounceMultiplier: 1.05,
		SpinFactor:       0.1,
	}
}

// NewGameState returns the kick-off state: ball in the centre moving (6,4), both paddles centred.
func (c Config) NewGameState() GameState {
	mid := c.Height/2 - c.PaddleHeight/2
	return GameState{
		Ball: Ball{
			X:  c.Width / 2,
			Y:  c.Height / 2,
			VX: 6,
			VY: 4,
		},
		Paddle1: Paddle{Y: mid},
		Paddle2: Paddle{Y: mid},
	}
}

// ClampPaddle bounds a paddle's top edge to the field.
func (c Config) ClampPaddle(y float64) float64 {
	return max(0, min(y, c.Height-c.PaddleHeight))
}
