package netwrk

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"

	"neonpong/internal/packet"
)

// MemoryNetwork pairs peers inside one process. It offers the same Listen/Connect
// contract as Dialer and backs the in-process tests.
type MemoryNetwork struct {
	Codec packet.Codec

	mu      sync.Mutex
	waiting map[string]chan *Conn
}

func NewMemoryNetwork(codec packet.Codec) *MemoryNetwork {
	return &MemoryNetwork{Codec: codec, waiting: map[string]chan *Conn{}}
}

func (m *MemoryNetwork) Listen(ctx context.Context, localID string) (*Conn, error) {
	ready := make(chan *Conn, 1)

	m.mu.Lock()
	if _, ok := m.waiting[localID]; ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrIDTaken, localID)
	}
	m.waiting[localID] = ready
	m.mu.Unlock()

	select {
	case c := <-ready:
		return c, nil
	case <-ctx.Done():
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.waiting[localID] == ready {
			delete(m.waiting, localID)
			return nil, ctx.Err()
		}
		// Paired in the meantime.
		c := <-ready
		c.Close()
		return nil, ctx.Err()
	}
}

func (m *MemoryNetwork) Connect(ctx context.Context, remoteID string) (*Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	ready, ok := m.waiting[remoteID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPeerUnavailable, remoteID)
	}
	delete(m.waiting, remoteID)

	a, b := Pipe()
	host := NewConn(a, m.Codec)
	host.Remote = uuid.NewString()
	client := NewConn(b, m.Codec)
	client.Remote = remoteID
	// Sent under the lock so a cancelled Listen either still finds its entry or finds the conn.
	ready <- host
	return client, nil
}

// Pipe returns two connected in-memory channels. Closing either end closes both.
func Pipe() (Channel, Channel) {
	ab := make(chan message, 64)
	ba := make(chan message, 64)
	done := make(chan struct{})
	once := &sync.Once{}
	return &pipeEnd{in: ba, out: ab, done: done, once: once},
		&pipeEnd{in: ab, out: ba, done: done, once: once}
}

type message struct {
	typ  int
	data []byte
}

type pipeEnd struct {
	in   <-chan message
	out  chan<- message
	done chan struct{}
	once *sync.Once
}

func (p *pipeEnd) ReadMessage() (int, []byte, error) {
	select {
	case m := <-p.in:
		return m.typ, m.data, nil
	case <-p.done:
		return 0, nil, io.EOF
	}
}

func (p *pipeEnd) WriteMessage(typ int, data []byte) error {
	b := make([]byte, len(data))
	copy(b, data)
	select {
	case p.out <- message{typ: typ, data: b}:
		return nil
	case <-p.done:
		return io.ErrClosedPipe
	}
}

func (p *pipeEnd) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}
