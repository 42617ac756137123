// Package netwrk adapts a point-to-point message channel into a packet connection.
package netwrk

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"neonpong/internal/packet"
)

var (
	ErrClosed          = errors.New("connection closed")
	ErrPeerUnavailable = errors.New("peer unavailable")
	ErrIDTaken         = errors.New("peer id already taken")
)

// Channel is the raw message channel underneath a Conn. *websocket.Conn satisfies it.
type Channel interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Conn sends and receives packets over a Channel. Incoming packets are delivered in channel
// order; malformed or unknown packets are dropped without closing the connection.
type Conn struct {
	ch    Channel
	codec packet.Codec
	// Remote is the broker-assigned id of the other side, if known.
	Remote string

	incoming chan packet.Packet
	closed   chan struct{}
	open     atomic.Bool

	writeMu   sync.Mutex
	closeOnce sync.Once
	err       error
}

func NewConn(ch Channel, codec packet.Codec) *Conn {
	c := &Conn{
		ch:       ch,
		codec:    codec,
		incoming: make(chan packet.Packet),
		closed:   make(chan struct{}),
	}
	c.open.Store(true)
	go c.readLoop()
	return c
}

func (c *Conn) readLoop() {
	for {
		_, b, err := c.ch.ReadMessage()
		if err != nil {
			c.shutdown(err)
			return
		}

		p, err := c.codec.Unmarshal(b)
		if err != nil {
			slog.Debug("dropping packet", slog.Any("error", err))
			continue
		}

		select {
		case c.incoming <- p:
		case <-c.closed:
			return
		}
	}
}

// Send writes one packet. It fails with ErrClosed once the connection is no longer open.
func (c *Conn) Send(p packet.Packet) error {
	if !c.open.Load() {
		return ErrClosed
	}
	b, err := c.codec.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding %T packet: %w", p, err)
	}

	mt := websocket.TextMessage
	if c.codec.Binary() {
		mt = websocket.BinaryMessage
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ch.WriteMessage(mt, b); err != nil {
		c.shutdown(err)
		return fmt.Errorf("%w: %v", ErrClosed, err)
	}
	return nil
}

func (c *Conn) Incoming() <-chan packet.Packet {
	return c.incoming
}

// Closed is closed when either side ends the connection.
func (c *Conn) Closed() <-chan struct{} {
	return c.closed
}

func (c *Conn) Open() bool {
	return c.open.Load()
}

// Err returns the error that ended the connection, nil after a local Close.
func (c *Conn) Err() error {
	<-c.closed
	return c.err
}

func (c *Conn) Close() error {
	c.shutdown(nil)
	return nil
}

func (c *Conn) shutdown(err error) {
	c.closeOnce.Do(func() {
		c.err = err
		c.open.Store(false)
		close(c.closed)
		if cerr := c.ch.Close(); cerr != nil {
			slog.Debug("closing channel", slog.Any("error", cerr))
		}
	})
}
