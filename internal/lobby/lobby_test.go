package lobby

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"neonpong/internal/netwrk"
	"neonpong/internal/packet"
)

func startBroker(t *testing.T) (*Lobby, *netwrk.Dialer) {
	t.Helper()
	l := CreateLobby()
	srv := httptest.NewServer(l.Router())
	t.Cleanup(srv.Close)
	return l, netwrk.NewDialer("ws"+strings.TrimPrefix(srv.URL, "http"), packet.JSON)
}

// waitForHost polls until the host's registration is visible.
func waitForHost(t *testing.T, l *Lobby, id string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := l.waiting.Load(id); ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("host %s never registered", id)
}

func listenAsync(ctx context.Context, d *netwrk.Dialer, id string) (<-chan *netwrk.Conn, <-chan error) {
	conns := make(chan *netwrk.Conn, 1)
	errs := make(chan error, 1)
	go func() {
		c, err := d.Listen(ctx, id)
		if err != nil {
			errs <- err
			return
		}
		conns <- c
	}()
	return conns, errs
}

func TestLobby_PairAndRelay(t *testing.T) {
	l, d := startBroker(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conns, errs := listenAsync(ctx, d, "neon-pong-4242")
	waitForHost(t, l, "neon-pong-4242")

	client, err := d.Connect(ctx, "neon-pong-4242")
	if err != nil {
		t.Fatalf("connect returned error: %v", err)
	}
	defer client.Close()
	if client.Remote != "neon-pong-4242" {
		t.Fatalf("expected client to see the host id, got %q", client.Remote)
	}

	var host *netwrk.Conn
	select {
	case host = <-conns:
	case err := <-errs:
		t.Fatalf("listen returned error: %v", err)
	}
	defer host.Close()

	if err := client.Send(packet.PaddleMove{Y: 321}); err != nil {
		t.Fatalf("send returned error: %v", err)
	}
	select {
	case p := <-host.Incoming():
		if p != (packet.PaddleMove{Y: 321}) {
			t.Fatalf("unexpected packet %+v", p)
		}
	case <-ctx.Done():
		t.Fatalf("host never received the paddle move")
	}

	u := packet.Update{Ball: packet.Ball{X: 400, Y: 300, VX: 6, VY: 4}, P1Y: 250, S1: 2, S2: 1}
	if err := host.Send(u); err != nil {
		t.Fatalf("send returned error: %v", err)
	}
	select {
	case p := <-client.Incoming():
		if p != u {
			t.Fatalf("unexpected packet %+v", p)
		}
	case <-ctx.Done():
		t.Fatalf("client never received the update")
	}

	if _, ok := l.waiting.Load("neon-pong-4242"); ok {
		t.Fatalf("expected the id to be released after pairing")
	}
}

func TestLobby_CloseHangsUpPeer(t *testing.T) {
	l, d := startBroker(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conns, _ := listenAsync(ctx, d, "neon-pong-1111")
	waitForHost(t, l, "neon-pong-1111")
	client, err := d.Connect(ctx, "neon-pong-1111")
	if err != nil {
		t.Fatalf("connect returned error: %v", err)
	}
	host := <-conns

	client.Close()

	select {
	case <-host.Closed():
	case <-ctx.Done():
		t.Fatalf("host was not told about the client leaving")
	}
}

func TestLobby_ConnectUnknownID(t *testing.T) {
	_, d := startBroker(t)

	_, err := d.Connect(context.Background(), "neon-pong-0000")
	if !errors.Is(err, netwrk.ErrPeerUnavailable) {
		t.Fatalf("expected ErrPeerUnavailable, got %v", err)
	}
}

func TestLobby_DuplicateListen(t *testing.T) {
	l, d := startBroker(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	listenAsync(ctx, d, "neon-pong-7777")
	waitForHost(t, l, "neon-pong-7777")

	_, err := d.Listen(ctx, "neon-pong-7777")
	if !errors.Is(err, netwrk.ErrIDTaken) {
		t.Fatalf("expected ErrIDTaken, got %v", err)
	}
}

func TestLobby_ListenCancelledReleasesID(t *testing.T) {
	l, d := startBroker(t)
	ctx, cancel := context.WithCancel(context.Background())

	_, errs := listenAsync(ctx, d, "neon-pong-2468")
	waitForHost(t, l, "neon-pong-2468")
	cancel()

	if err := <-errs; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := l.waiting.Load("neon-pong-2468"); !ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected the broker to drop a host that left")
}

func TestLobby_RejectsMalformedID(t *testing.T) {
	l := CreateLobby()
	srv := httptest.NewServer(l.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/peer/bad%20id!/listen")
	if err != nil {
		t.Fatalf("get returned error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get returned error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
