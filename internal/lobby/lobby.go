// Package lobby is the rendezvous broker. A host registers a peer id and waits; exactly one
// client connecting to that id is paired with it, both sides get an "open" signal, and from
// then on messages are relayed verbatim until either side goes away.
package lobby

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"regexp"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"neonpong/internal/netwrk"
)

var validID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

type Lobby struct {
	waiting  sync.Map // peer id -> *member
	upgrader websocket.Upgrader
}

// member is one websocket end. Reads are owned by its read pump; writes go through write.
type member struct {
	id     string
	conn   *websocket.Conn
	inbox  chan relayed
	gone   chan struct{}
	stop   chan struct{}
	paired chan *member

	writeMu sync.Mutex
}

type relayed struct {
	typ  int
	data []byte
}

func CreateLobby() *Lobby {
	return &Lobby{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Peers are browsers or terminals on arbitrary origins.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (l *Lobby) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/peer/{id}/listen", l.HandleListen).Methods(http.MethodGet)
	r.HandleFunc("/peer/{id}/connect", l.HandleConnect).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)
	return r
}

// HandleListen registers the id and holds the connection until a client pairs with it.
func (l *Lobby) HandleListen(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !validID.MatchString(id) {
		http.Error(w, "malformed peer id", http.StatusBadRequest)
		return
	}
	if _, ok := l.waiting.Load(id); ok {
		http.Error(w, "peer id already taken", http.StatusConflict)
		return
	}

	conn, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("listen upgrade failed", slog.Any("error", err))
		return
	}

	host := newMember(id, conn)
	if _, loaded := l.waiting.LoadOrStore(id, host); loaded {
		host.signal(netwrk.Signal{Type: netwrk.SignalError, Message: "peer id already taken"})
		conn.Close()
		return
	}
	slog.Info("host waiting", slog.String("id", id))
	go host.readPump()

	select {
	case peer := <-host.paired:
		host.forward(peer)
	case <-host.gone:
		l.waiting.CompareAndDelete(id, host)
		slog.Info("host left before pairing", slog.String("id", id))
	}
}

// HandleConnect pairs the caller with the host waiting on id.
func (l *Lobby) HandleConnect(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	v, ok := l.waiting.Load(id)
	if !ok {
		http.Error(w, "no peer listening on "+id, http.StatusNotFound)
		return
	}
	host := v.(*member)

	conn, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("connect upgrade failed", slog.Any("error", err))
		return
	}

	from := r.URL.Query().Get("from")
	if from == "" {
		from = uuid.NewString()
	}
	client := newMember(from, conn)

	// Another client may have won the race for this host.
	if !l.waiting.CompareAndDelete(id, host) {
		client.signal(netwrk.Signal{Type: netwrk.SignalError, Message: "peer unavailable"})
		conn.Close()
		return
	}

	if err := client.signal(netwrk.Signal{Type: netwrk.SignalOpen, Peer: id}); err != nil {
		conn.Close()
		host.conn.Close()
		return
	}
	if err := host.signal(netwrk.Signal{Type: netwrk.SignalOpen, Peer: from}); err != nil {
		conn.Close()
		host.conn.Close()
		return
	}
	slog.Info("peers paired", slog.String("id", id), slog.String("client", from))

	go client.readPump()
	host.paired <- client
	client.forward(host)
}

func newMember(id string, conn *websocket.Conn) *member {
	return &member{
		id:     id,
		conn:   conn,
		inbox:  make(chan relayed, 64),
		gone:   make(chan struct{}),
		stop:   make(chan struct{}),
		paired: make(chan *member, 1),
	}
}

func (m *member) readPump() {
	defer close(m.gone)
	for {
		typ, b, err := m.conn.ReadMessage()
		if err != nil {
			slog.Debug("member read ended", slog.String("id", m.id), slog.Any("error", err))
			return
		}
		select {
		case m.inbox <- relayed{typ: typ, data: b}:
		case <-m.stop:
			return
		}
	}
}

// forward copies m's messages to peer until m goes away, then hangs up on peer.
func (m *member) forward(peer *member) {
	defer func() {
		close(m.stop)
		m.conn.Close()
		peer.conn.Close()
		slog.Info("relay closed", slog.String("from", m.id), slog.String("to", peer.id))
	}()
	for {
		select {
		case msg := <-m.inbox:
			if err := peer.write(msg.typ, msg.data); err != nil {
				slog.Debug("relay write failed", slog.String("to", peer.id), slog.Any("error", err))
				return
			}
		case <-m.gone:
			return
		}
	}
}

func (m *member) write(typ int, b []byte) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return m.conn.WriteMessage(typ, b)
}

func (m *member) signal(s netwrk.Signal) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return m.write(websocket.TextMessage, b)
}
