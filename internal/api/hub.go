package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"flashtrade-sim/internal/session"
	"flashtrade-sim/internal/trading"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Event is the envelope pushed to websocket clients.
type Event struct {
	Type    string `json:"type"` // state or session
	Payload any    `json:"payload"`
}

// Hub fans state changes out to connected websocket clients.
type Hub struct {
	logger    *zap.Logger
	clients   map[*websocket.Conn]bool
	broadcast chan []byte
	lock      sync.Mutex
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:    logger.Named("hub"),
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan []byte, 64),
	}
}

// Run writes queued messages to every client until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case message := <-h.broadcast:
			h.lock.Lock()
			for client := range h.clients {
				_ = client.SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					h.logger.Debug("Dropping websocket client", zap.Error(err))
					client.Close()
					delete(h.clients, client)
				}
			}
			h.lock.Unlock()
		}
	}
}

// Broadcast queues ev for all clients. It never blocks; when the queue is
// full the event is dropped and clients catch up on the next change.
func (h *Hub) Broadcast(ev Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("Failed to encode event", zap.String("type", ev.Type), zap.Error(err))
		return
	}
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("Broadcast queue full, dropping event", zap.String("type", ev.Type))
	}
}

// Watch forwards every committed store change and session change to the hub.
func (h *Hub) Watch(store *trading.Store, sessions *session.Manager) (detach func()) {
	unsubStore := store.Subscribe(func(prev, next *trading.State) {
		h.Broadcast(Event{Type: "state", Payload: next})
	})
	unsubSession := func() {}
	if sessions != nil {
		unsubSession = sessions.Subscribe(func(s session.Snapshot) {
			h.Broadcast(Event{Type: "session", Payload: s})
		})
	}
	return func() {
		unsubStore()
		unsubSession()
	}
}

// ServeWS upgrades the request, sends the current state and keeps the client
// registered until it disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, initial *trading.State) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WS upgrade failed", zap.Error(err))
		return
	}

	h.lock.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	err = conn.WriteJSON(Event{Type: "state", Payload: initial})
	if err == nil {
		h.clients[conn] = true
	}
	h.lock.Unlock()
	if err != nil {
		conn.Close()
		return
	}

	// clients only listen; reading detects the close frame
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(conn)
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.lock.Lock()
	defer h.lock.Unlock()
	if h.clients[conn] {
		delete(h.clients, conn)
		conn.Close()
	}
}

func (h *Hub) closeAll() {
	h.lock.Lock()
	defer h.lock.Unlock()
	for client := range h.clients {
		client.Close()
		delete(h.clients, client)
	}
}
