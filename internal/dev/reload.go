package dev

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ReloadMessage is sent to browsers over the reload socket. Type is
// "connected" on subscribe and "reload" for change notifications, with
// ReloadType carrying the change classification.
type ReloadMessage struct {
	Type       string `json:"type"`
	ReloadType string `json:"reloadType,omitempty"`
	Timestamp  int64  `json:"timestamp,omitempty"`
	Epoch      int64  `json:"epoch,omitempty"`
	File       string `json:"file,omitempty"`
}

const (
	// pingInterval is how often the hub health-checks subscribers.
	pingInterval = 30 * time.Second

	// writeWait bounds a single write to a subscriber.
	writeWait = 5 * time.Second

	// pongWait is how long a subscriber may go without answering a
	// ping before its read loop gives up on it. Covers one full ping
	// round trip.
	pongWait = pingInterval + writeWait
)

// Hub manages reload subscribers. Broadcast is best-effort: a failed
// write prunes the subscriber immediately rather than blocking the rest
// of the batch; subscribers that die silently stop answering pings and
// are pruned when their read deadline lapses.
type Hub struct {
	clients   map[*websocket.Conn]bool
	mu        sync.RWMutex
	upgrader  websocket.Upgrader
	logger    *slog.Logger
	pingEvery time.Duration
	deadAfter time.Duration
	stop      chan struct{}
	stopOnce  sync.Once
}

// NewHub creates a hub and starts its health-check loop.
func NewHub() *Hub {
	return newHub(pingInterval, pongWait)
}

func newHub(pingEvery, deadAfter time.Duration) *Hub {
	h := &Hub{
		clients:   make(map[*websocket.Conn]bool),
		pingEvery: pingEvery,
		deadAfter: deadAfter,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins in dev
			},
		},
		logger: slog.Default(),
		stop:   make(chan struct{}),
	}
	go h.pingLoop()
	return h
}

// SetLogger overrides the hub's logger.
func (h *Hub) SetLogger(l *slog.Logger) {
	if l != nil {
		h.logger = l
	}
}

// HandleWebSocket upgrades the request and keeps the subscriber
// registered until it disconnects. The first frame sent is a
// "connected" acknowledgement.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	h.send(conn, ReloadMessage{Type: "connected"})

	// Liveness rides on pongs: each one extends the read deadline, so
	// a half-open connection that stops answering pings times the read
	// loop out even while ping writes keep succeeding.
	conn.SetReadDeadline(time.Now().Add(h.deadAfter))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.deadAfter))
	})

	// Drain incoming frames; subscribers never send anything useful,
	// but the read loop is what notices the close or the missed pong.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.remove(conn)
}

// Broadcast sends one message to every subscriber.
func (h *Hub) Broadcast(msg ReloadMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	for _, conn := range h.snapshot() {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.remove(conn)
		}
	}
}

// ClientCount returns the number of live subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every subscriber and stops the health checks.
func (h *Hub) Close() {
	h.stopOnce.Do(func() { close(h.stop) })

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}

// pingLoop solicits the pongs the read loops key their deadlines on.
// A failed ping write prunes immediately; a silent peer is pruned by
// its own read loop once the deadline lapses without a pong.
func (h *Hub) pingLoop() {
	ticker := time.NewTicker(h.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			for _, conn := range h.snapshot() {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					h.logger.Debug("pruning dead subscriber")
					h.remove(conn)
				}
			}
		}
	}
}

func (h *Hub) send(conn *websocket.Conn, msg ReloadMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.remove(conn)
	}
}

func (h *Hub) snapshot() []*websocket.Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	return conns
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}
