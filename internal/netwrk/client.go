package netwrk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"neonpong/internal/packet"
)

// Signal is the broker's control message, sent once before relaying starts.
type Signal struct {
	Type    string `json:"type"`
	Peer    string `json:"peer,omitempty"`
	Message string `json:"message,omitempty"`
}

const (
	SignalOpen  = "open"
	SignalError = "error"
)

// Dialer reaches peers through a rendezvous broker.
type Dialer struct {
	// BrokerURL is the broker's base URL, e.g. ws://127.0.0.1:9000.
	BrokerURL string
	Codec     packet.Codec
	WS        *websocket.Dialer
}

func NewDialer(brokerURL string, codec packet.Codec) *Dialer {
	return &Dialer{BrokerURL: brokerURL, Codec: codec, WS: websocket.DefaultDialer}
}

// Listen registers localID with the broker and blocks until exactly one peer connects.
func (d *Dialer) Listen(ctx context.Context, localID string) (*Conn, error) {
	return d.dial(ctx, localID, "listen", nil)
}

// Connect dials the peer listening on remoteID.
func (d *Dialer) Connect(ctx context.Context, remoteID string) (*Conn, error) {
	q := url.Values{"from": {uuid.NewString()}}
	return d.dial(ctx, remoteID, "connect", q)
}

func (d *Dialer) dial(ctx context.Context, id, action string, q url.Values) (*Conn, error) {
	u := fmt.Sprintf("%s/peer/%s/%s", strings.TrimSuffix(d.BrokerURL, "/"), url.PathEscape(id), action)
	if len(q) > 0 {
		u = u + "?" + q.Encode()
	}

	slog.Debug("dialing broker", slog.String("url", u))
	ws, resp, err := d.WS.DialContext(ctx, u, nil)
	if err != nil {
		if errors.Is(err, websocket.ErrBadHandshake) && resp != nil {
			switch resp.StatusCode {
			case http.StatusNotFound:
				return nil, fmt.Errorf("%w: %s", ErrPeerUnavailable, id)
			case http.StatusConflict:
				return nil, fmt.Errorf("%w: %s", ErrIDTaken, id)
			}
			return nil, fmt.Errorf("broker refused %s: %s", action, resp.Status)
		}
		return nil, fmt.Errorf("dialing broker: %w", err)
	}

	sig, err := awaitOpen(ctx, ws)
	if err != nil {
		ws.Close()
		return nil, err
	}

	conn := NewConn(ws, d.Codec)
	conn.Remote = sig.Peer
	slog.Info("peer connected", slog.String("id", id), slog.String("peer", sig.Peer))
	return conn, nil
}

func awaitOpen(ctx context.Context, ws *websocket.Conn) (Signal, error) {
	stop := context.AfterFunc(ctx, func() { ws.Close() })
	defer stop()

	sig := Signal{}
	_, b, err := ws.ReadMessage()
	if err != nil {
		if ctx.Err() != nil {
			return sig, ctx.Err()
		}
		return sig, fmt.Errorf("waiting for peer: %w", err)
	}
	if !stop() {
		return sig, ctx.Err()
	}
	if err := json.Unmarshal(b, &sig); err != nil {
		return sig, fmt.Errorf("malformed broker signal: %w", err)
	}

	switch sig.Type {
	case SignalOpen:
		return sig, nil
	case SignalError:
		return sig, fmt.Errorf("%w: %s", ErrPeerUnavailable, sig.Message)
	default:
		return sig, fmt.Errorf("unexpected broker signal %q", sig.Type)
	}
}
