package netwrk

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"neonpong/internal/packet"
)

func receive(t *testing.T, c *Conn) packet.Packet {
	t.Helper()
	select {
	case p := <-c.Incoming():
		return p
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a packet")
		return nil
	}
}

func TestConn_SendReceive(t *testing.T) {
	a, b := Pipe()
	host := NewConn(a, packet.JSON)
	client := NewConn(b, packet.JSON)
	defer host.Close()
	defer client.Close()

	if !host.Open() || !client.Open() {
		t.Fatalf("expected both ends open")
	}

	if err := client.Send(packet.PaddleMove{Y: 123}); err != nil {
		t.Fatalf("send returned error: %v", err)
	}
	if got := receive(t, host); got != (packet.PaddleMove{Y: 123}) {
		t.Fatalf("unexpected packet %+v", got)
	}

	u := packet.Update{Ball: packet.Ball{X: 1, Y: 2, VX: 3, VY: 4}, P1Y: 5, S1: 1, S2: 2}
	if err := host.Send(u); err != nil {
		t.Fatalf("send returned error: %v", err)
	}
	if got := receive(t, client); got != u {
		t.Fatalf("unexpected packet %+v", got)
	}
}

func TestConn_SendNilPacket(t *testing.T) {
	a, b := Pipe()
	host := NewConn(a, packet.Proto)
	client := NewConn(b, packet.Proto)
	defer host.Close()
	defer client.Close()

	if err := host.Send(nil); !errors.Is(err, packet.ErrUnknownTag) {
		t.Fatalf("expected ErrUnknownTag, got %v", err)
	}
	if !host.Open() {
		t.Fatalf("a rejected packet must not close the connection")
	}
	if err := host.Send(packet.PaddleMove{Y: 7}); err != nil {
		t.Fatalf("send returned error: %v", err)
	}
	if got := receive(t, client); got != (packet.PaddleMove{Y: 7}) {
		t.Fatalf("unexpected packet %+v", got)
	}
}

func TestConn_PreservesOrder(t *testing.T) {
	a, b := Pipe()
	host := NewConn(a, packet.Msgpack)
	client := NewConn(b, packet.Msgpack)
	defer host.Close()
	defer client.Close()

	for i := 0; i < 10; i++ {
		if err := client.Send(packet.PaddleMove{Y: float64(i)}); err != nil {
			t.Fatalf("send %d returned error: %v", i, err)
		}
	}
	for i := 0; i < 10; i++ {
		if got := receive(t, host); got != (packet.PaddleMove{Y: float64(i)}) {
			t.Fatalf("packet %d: unexpected %+v", i, got)
		}
	}
}

func TestConn_SkipsUnknownPackets(t *testing.T) {
	a, b := Pipe()
	host := NewConn(a, packet.JSON)
	defer host.Close()
	defer b.Close()

	if err := b.WriteMessage(websocket.TextMessage, []byte(`{"t":"zz"}`)); err != nil {
		t.Fatalf("write returned error: %v", err)
	}
	if err := b.WriteMessage(websocket.TextMessage, []byte(`garbage`)); err != nil {
		t.Fatalf("write returned error: %v", err)
	}
	if err := b.WriteMessage(websocket.TextMessage, []byte(`{"t":"p","y":7}`)); err != nil {
		t.Fatalf("write returned error: %v", err)
	}

	if got := receive(t, host); got != (packet.PaddleMove{Y: 7}) {
		t.Fatalf("unexpected packet %+v", got)
	}
	if !host.Open() {
		t.Fatalf("expected connection to stay open after bad packets")
	}
}

func TestConn_RemoteCloseSignalsClosed(t *testing.T) {
	a, b := Pipe()
	host := NewConn(a, packet.JSON)
	client := NewConn(b, packet.JSON)

	client.Close()

	select {
	case <-host.Closed():
	case <-time.After(2 * time.Second):
		t.Fatalf("host did not observe the close")
	}
	if host.Open() {
		t.Fatalf("expected host to report closed")
	}
	if host.Err() == nil {
		t.Fatalf("expected a remote close error")
	}
	if client.Err() != nil {
		t.Fatalf("expected nil error after local close, got %v", client.Err())
	}
	if err := host.Send(packet.PaddleMove{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestMemoryNetwork_Pairing(t *testing.T) {
	n := NewMemoryNetwork(packet.JSON)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	type result struct {
		c   *Conn
		err error
	}
	hosted := make(chan result, 1)
	go func() {
		c, err := n.Listen(ctx, "neon-pong-1234")
		hosted <- result{c, err}
	}()

	var client *Conn
	var err error
	for {
		client, err = n.Connect(ctx, "neon-pong-1234")
		if err == nil {
			break
		}
		if !errors.Is(err, ErrPeerUnavailable) {
			t.Fatalf("connect returned error: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}
	defer client.Close()

	r := <-hosted
	if r.err != nil {
		t.Fatalf("listen returned error: %v", r.err)
	}
	defer r.c.Close()

	if err := r.c.Send(packet.PaddleMove{Y: 1}); err != nil {
		t.Fatalf("send returned error: %v", err)
	}
	if got := receive(t, client); got != (packet.PaddleMove{Y: 1}) {
		t.Fatalf("unexpected packet %+v", got)
	}

	if _, err := n.Connect(ctx, "neon-pong-1234"); !errors.Is(err, ErrPeerUnavailable) {
		t.Fatalf("expected a listener to accept exactly one peer, got %v", err)
	}
}

func TestMemoryNetwork_ListenCancelled(t *testing.T) {
	n := NewMemoryNetwork(packet.JSON)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := n.Listen(ctx, "neon-pong-5555")
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := n.Connect(context.Background(), "neon-pong-5555"); !errors.Is(err, ErrPeerUnavailable) {
		t.Fatalf("expected cancelled listener to be gone, got %v", err)
	}
}
