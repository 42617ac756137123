package statesync

import (
	"testing"

	"golang.org/x/exp/rand"

	"neonpong/internal/packet"
	"neonpong/internal/pong"
)

func newPair() (*Sync, *Sync) {
	cfg := pong.DefaultConfig()
	return NewHost(pong.NewEngine(cfg, rand.NewSource(3))), NewClient(cfg)
}

func TestHostTick_EmitsUpdate(t *testing.T) {
	host, _ := newPair()

	p := host.Tick()

	u, ok := p.(packet.Update)
	if !ok {
		t.Fatalf("expected an update, got %T", p)
	}
	want := packet.Update{Ball: packet.Ball{X: 406, Y: 304, VX: 6, VY: 4}, P1Y: 250}
	if u != want {
		t.Fatalf("expected %+v, got %+v", want, u)
	}
}

func TestUpdate_RoundTripsThroughCodec(t *testing.T) {
	host, client := newPair()
	host.State.Ball = pong.Ball{X: 123.456, Y: 78.9, VX: -7.3125, VY: 2.71828}
	host.State.Paddle1 = pong.Paddle{Y: 42, Score: 4}
	host.State.Paddle2.Score = 9

	for _, c := range []packet.Codec{packet.JSON, packet.Msgpack, packet.Proto} {
		b, err := c.Marshal(UpdateFrom(host.State))
		if err != nil {
			t.Fatalf("%s: marshal returned error: %v", c.Name(), err)
		}
		p, err := c.Unmarshal(b)
		if err != nil {
			t.Fatalf("%s: unmarshal returned error: %v", c.Name(), err)
		}
		if !client.Apply(p) {
			t.Fatalf("%s: client did not apply the update", c.Name())
		}

		if client.State.Ball != host.State.Ball {
			t.Fatalf("%s: expected ball %+v, got %+v", c.Name(), host.State.Ball, client.State.Ball)
		}
		if client.State.Paddle1 != host.State.Paddle1 {
			t.Fatalf("%s: expected host paddle %+v, got %+v", c.Name(), host.State.Paddle1, client.State.Paddle1)
		}
		if client.State.Paddle2.Score != 9 {
			t.Fatalf("%s: expected own score 9, got %d", c.Name(), client.State.Paddle2.Score)
		}
	}
}

func TestClientApply_KeepsLocalPaddle(t *testing.T) {
	_, client := newPair()
	client.SetLocalPaddle(77)
	client.Tick()

	client.Apply(packet.Update{Ball: packet.Ball{X: 1, Y: 20}, P1Y: 10, S1: 1, S2: 2})

	if client.LocalY != 77 || client.State.Paddle2.Y != 77 {
		t.Fatalf("expected local paddle to stay at 77, got %f / %f", client.LocalY, client.State.Paddle2.Y)
	}
}

func TestClientTick_ClampsPaddleMove(t *testing.T) {
	_, client := newPair()

	client.LocalY = 10000
	if p := client.Tick(); p != (packet.PaddleMove{Y: 500}) {
		t.Fatalf("expected clamped paddle move at 500, got %+v", p)
	}

	client.SetLocalPaddle(-30)
	if p := client.Tick(); p != (packet.PaddleMove{Y: 0}) {
		t.Fatalf("expected clamped paddle move at 0, got %+v", p)
	}
}

func TestClientTick_DoesNotSimulate(t *testing.T) {
	_, client := newPair()
	before := client.State.Ball

	for i := 0; i < 10; i++ {
		client.Tick()
	}

	if client.State.Ball != before {
		t.Fatalf("client moved the ball: %+v -> %+v", before, client.State.Ball)
	}
}

func TestHostApply_PaddleMoveDrivesCollision(t *testing.T) {
	host, _ := newPair()

	if !host.Apply(packet.PaddleMove{Y: 0}) {
		t.Fatalf("host did not apply the paddle move")
	}
	if !host.Apply(packet.PaddleMove{Y: 400}) {
		t.Fatalf("host did not apply the paddle move")
	}
	if host.State.Paddle2.Y != 400 {
		t.Fatalf("expected last write to win, got %f", host.State.Paddle2.Y)
	}

	host.State.Ball = pong.Ball{X: 770, Y: 450, VX: 6, VY: 0}
	host.Tick()
	if host.State.Ball.VX >= 0 {
		t.Fatalf("expected the client paddle to return the ball, got vx %f", host.State.Ball.VX)
	}
}

func TestApply_RoleMismatchIgnored(t *testing.T) {
	host, client := newPair()

	if host.Apply(packet.Update{S1: 5}) {
		t.Fatalf("host applied an update")
	}
	if host.State.Paddle1.Score != 0 {
		t.Fatalf("host state changed by update")
	}
	if client.Apply(packet.PaddleMove{Y: 3}) {
		t.Fatalf("client applied a paddle move")
	}
}

func TestApply_VideoFrameLastWins(t *testing.T) {
	host, client := newPair()

	for _, s := range []*Sync{host, client} {
		s.Apply(packet.VideoFrame{Data: "Zmlyc3Q="})
		s.Apply(packet.VideoFrame{Data: "c2Vjb25k"})
		if s.RemoteFrame == nil || s.RemoteFrame.Data != "c2Vjb25k" {
			t.Fatalf("%s: expected the latest frame, got %+v", s.Role, s.RemoteFrame)
		}
	}
}

func TestHostTick_UsesLocalPaddle(t *testing.T) {
	host, _ := newPair()
	host.SetLocalPaddle(600)

	u := host.Tick().(packet.Update)

	if u.P1Y != 500 {
		t.Fatalf("expected host paddle clamped to 500, got %f", u.P1Y)
	}
}
