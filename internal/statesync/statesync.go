// Package statesync is the role-asymmetric state exchange between the two peers.
//
// The host advances the simulation and broadcasts a full Update every tick. The client never
// simulates: it reports its paddle with a PaddleMove every tick and displays whatever Update
// arrived last. Every packet fully supersedes earlier state of its kind, so there are no
// acknowledgements, retries or sequence numbers.
package statesync

import (
	"log/slog"

	"neonpong/internal/packet"
	"neonpong/internal/pong"
)

type Role int

const (
	Host Role = iota
	Client
)

func (r Role) String() string {
	if r == Host {
		return "host"
	}
	return "client"
}

type Sync struct {
	Role  Role
	State pong.GameState
	// LocalY is this peer's own paddle as set by input. Updates from the host never touch it.
	LocalY float64
	// RemoteFrame is the last video frame received, last-frame-wins.
	RemoteFrame *packet.VideoFrame

	cfg    pong.Config
	engine *pong.Engine
}

// NewHost returns the authoritative side. It owns the engine.
func NewHost(engine *pong.Engine) *Sync {
	cfg := engine.Config()
	s := &Sync{Role: Host, State: cfg.NewGameState(), cfg: cfg, engine: engine}
	s.LocalY = s.State.Paddle1.Y
	return s
}

func NewClient(cfg pong.Config) *Sync {
	s := &Sync{Role: Client, State: cfg.NewGameState(), cfg: cfg}
	s.LocalY = s.State.Paddle2.Y
	return s
}

// SetLocalPaddle records the input bridge's target for this peer's paddle.
func (s *Sync) SetLocalPaddle(y float64) {
	s.LocalY = s.cfg.ClampPaddle(y)
}

// Tick runs one frame and returns the packet to send for it.
func (s *Sync) Tick() packet.Packet {
	if s.Role == Host {
		s.State.Paddle1.Y = s.LocalY
		if side := s.engine.Advance(&s.State); side != pong.NoSide {
			slog.Info("point", slog.Any("scorer", side),
				slog.Int("left", s.State.Paddle1.Score), slog.Int("right", s.State.Paddle2.Score))
		}
		return UpdateFrom(s.State)
	}

	s.State.Paddle2.Y = s.LocalY
	return packet.PaddleMove{Y: s.cfg.ClampPaddle(s.LocalY)}
}

// Apply folds a received packet into the local view. It reports whether the packet was used;
// packets that make no sense for this role are ignored.
func (s *Sync) Apply(p packet.Packet) bool {
	switch v := p.(type) {
	case packet.PaddleMove:
		if s.Role != Host {
			slog.Debug("client ignoring paddle move")
			return false
		}
		s.State.Paddle2.Y = v.Y
		return true
	case packet.Update:
		if s.Role != Client {
			slog.Debug("host ignoring update")
			return false
		}
		ApplyUpdate(&s.State, v)
		return true
	case packet.VideoFrame:
		s.RemoteFrame = &v
		return true
	default:
		return false
	}
}

// UpdateFrom builds the host's broadcast from its state.
func UpdateFrom(state pong.GameState) packet.Update {
	return packet.Update{
		Ball: packet.Ball{
			X:  state.Ball.X,
			Y:  state.Ball.Y,
			VX: state.Ball.VX,
			VY: state.Ball.VY,
		},
		P1Y: state.Paddle1.Y,
		S1:  state.Paddle1.Score,
		S2:  state.Paddle2.Score,
	}
}

// ApplyUpdate overwrites the client's view with the host's broadcast. The client's own paddle
// position is left alone.
func ApplyUpdate(state *pong.GameState, u packet.Update) {
	state.Ball = pong.Ball{X: u.Ball.X, Y: u.Ball.Y, VX: u.Ball.VX, VY: u.Ball.VY}
	state.Paddle1 = pong.Paddle{Y: u.P1Y, Score: u.S1}
	state.Paddle2.Score = u.S2
}
