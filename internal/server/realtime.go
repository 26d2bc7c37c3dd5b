package server

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/gorilla/websocket"

	"auravox/internal/chat"
)

const (
	clientBuffer = 64
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10
)

type envelope struct {
	Type    string            `json:"type"`
	Status  string            `json:"status,omitempty"`
	Payload *chat.ChangeEvent `json:"payload,omitempty"`
}

type client struct {
	conn   *websocket.Conn
	userID string
	admin  bool
	send   chan envelope
	once   sync.Once
}

func (c *client) wants(event chat.ChangeEvent) bool {
	return c.admin || (event.UserID != "" && event.UserID == c.userID)
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// Hub streams change events to websocket clients. A client connects with
// ?user_id= to receive its own changes, or with an admin ?token= to receive
// all of them. Clients that fall behind are disconnected.
type Hub struct {
	upgrader websocket.Upgrader
	isAdmin  func(token string) bool
	logger   logr.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

func newHub(isAdmin func(string) bool, logger logr.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		isAdmin: isAdmin,
		logger:  logger.WithName("realtime"),
		clients: map[*client]struct{}{},
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	userID := strings.TrimSpace(query.Get("user_id"))
	admin := h.isAdmin(query.Get("token"))
	if userID == "" && !admin {
		writeError(w, http.StatusUnauthorized, "user_id or admin token required", "")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.logger.V(1).Info("upgrade failed", "error", err.Error())
		return
	}

	c := &client{conn: conn, userID: userID, admin: admin, send: make(chan envelope, clientBuffer)}
	c.send <- envelope{Type: "connection", Status: "connected"}
	if !h.add(c) {
		conn.Close()
		return
	}

	go h.writeLoop(c)
	h.readLoop(c)
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	h.logger.V(1).Info("client connected", "user", c.userID, "admin", c.admin, "clients", len(h.clients))
	return true
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		c.close()
	}
}

// readLoop only services control frames; clients never send data.
func (h *Hub) readLoop(c *client) {
	defer h.remove(c)
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Broadcast queues event for every interested client.
func (h *Hub) Broadcast(event chat.ChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if !c.wants(event) {
			continue
		}
		select {
		case c.send <- envelope{Type: "change", Payload: &event}:
		default:
			h.logger.Info("dropping slow client", "user", c.userID)
			delete(h.clients, c)
			c.close()
		}
	}
}

// Clients reports how many connections are open.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
}
