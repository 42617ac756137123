package pong

import (
	"log/slog"
	"math"

	"golang.org/x/exp/rand"
)

// Engine runs the authoritative physics. Only the host owns one.
type Engine struct {
	cfg Config
	rng *rand.Rand
}

func NewEngine(cfg Config, src rand.Source) *Engine {
	return &Engine{cfg: cfg, rng: rand.New(src)}
}

func (e *Engine) Config() Config {
	return e.cfg
}

// Advance moves the game forward by one tick and returns the side that scored, if any.
func (e *Engine) Advance(state *GameState) Side {
	c := e.cfg
	b := &state.Ball

	b.X = b.X + b.VX
	b.Y = b.Y + b.VY

	// Reflect toward the field and clamp. Fast horizontal motion can still tunnel.
	if b.Y-c.BallRadius < 0 {
		b.VY = math.Abs(b.VY)
		b.Y = c.BallRadius
	} else if b.Y+c.BallRadius > c.Height {
		b.VY = -math.Abs(b.VY)
		b.Y = c.Height - c.BallRadius
	}

	if b.VX < 0 && b.X-c.BallRadius <= c.PaddleWidth && e.withinPaddle(b.Y, state.Paddle1) {
		e.bounce(b, state.Paddle1)
		b.X = c.PaddleWidth + c.BallRadius
	}
	if b.VX > 0 && b.X+c.BallRadius >= c.Width-c.PaddleWidth && e.withinPaddle(b.Y, state.Paddle2) {
		e.bounce(b, state.Paddle2)
		b.X = c.Width - c.PaddleWidth - c.BallRadius
	}

	if b.X < 0 {
		state.Paddle2.Score = state.Paddle2.Score + 1
		e.serve(b, Left)
		slog.Debug("point scored", slog.Any("side", Right), slog.Any("score", state.Paddle2.Score))
		return Right
	}
	if b.X > c.Width {
		state.Paddle1.Score = state.Paddle1.Score + 1
		e.serve(b, Right)
		slog.Debug("point scored", slog.Any("side", Left), slog.Any("score", state.Paddle1.Score))
		return Left
	}

	return NoSide
}

func (e *Engine) withinPaddle(y float64, p Paddle) bool {
	return y >= p.Y && y <= p.Y+e.cfg.PaddleHeight
}

// bounce reverses and amplifies VX, and adds spin from the hit offset.
func (e *Engine) bounce(b *Ball, p Paddle) {
	vx := b.VX * -e.cfg.BounceMultiplier
	if e.cfg.MaxSpeed > 0 && math.Abs(vx) > e.cfg.MaxSpeed {
		vx = math.Copysign(e.cfg.MaxSpeed, vx)
	}
	b.VX = vx
	center := p.Y + e.cfg.PaddleHeight/2
	b.VY = b.VY + (b.Y-center)*e.cfg.SpinFactor
}

// serve recentres the ball heading away from the side that conceded.
func (e *Engine) serve(b *Ball, conceded Side) {
	dir := 1.0
	if conceded == Right {
		dir = -1
	}
	b.X = e.cfg.Width / 2
	b.Y = e.cfg.Height / 2
	b.VX = dir * e.cfg.ServeSpeed
	b.VY = e.rng.Float64()*2*e.cfg.ServeSpin - e.cfg.ServeSpin
}
