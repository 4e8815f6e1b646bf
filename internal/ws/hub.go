package ws

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Conn is the subset of *websocket.Conn the hub needs. Tests inject
// fakes through it.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

var ErrUnknownSession = errors.New("unknown session")

type client struct {
	conn         Conn
	userID       string
	subscribed   bool
	connectedAt  time.Time
	lastActivity time.Time

	// serializes frames to this connection
	writeMu sync.Mutex
}

// Hub is the registry of connected sessions and leaderboard
// subscribers. All state lives behind one RWMutex and dies with the
// process.
type Hub struct {
	mu           sync.RWMutex
	clients      map[string]*client
	subscribers  map[string]struct{}
	writeTimeout time.Duration
}

func NewHub(writeTimeout time.Duration) *Hub {
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &Hub{
		clients:      make(map[string]*client),
		subscribers:  make(map[string]struct{}),
		writeTimeout: writeTimeout,
	}
}

// Connect registers a connection and returns its session id. userID
// may be empty for anonymous sessions.
func (h *Hub) Connect(conn Conn, userID string) string {
	sessionID := uuid.NewString()
	now := time.Now().UTC()

	h.mu.Lock()
	h.clients[sessionID] = &client{
		conn:         conn,
		userID:       userID,
		connectedAt:  now,
		lastActivity: now,
	}
	total := len(h.clients)
	h.mu.Unlock()

	log.Printf("ws: client connected %s (online: %d)", sessionID, total)
	return sessionID
}

// Disconnect removes the session and its subscription. Unknown
// sessions are a no-op.
func (h *Hub) Disconnect(sessionID string) {
	h.mu.Lock()
	c, ok := h.clients[sessionID]
	if ok {
		delete(h.clients, sessionID)
	}
	delete(h.subscribers, sessionID)
	total := len(h.clients)
	h.mu.Unlock()

	if ok {
		c.conn.Close()
		log.Printf("ws: client disconnected %s (online: %d)", sessionID, total)
	}
}

// SetLogin associates a user id with the session. A session that
// raced a disconnect is ignored.
func (h *Hub) SetLogin(sessionID, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[sessionID]; ok {
		c.userID = userID
		c.lastActivity = time.Now().UTC()
	}
}

// Touch refreshes the session's last-activity timestamp.
func (h *Hub) Touch(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[sessionID]; ok {
		c.lastActivity = time.Now().UTC()
	}
}

func (h *Hub) Subscribe(sessionID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[sessionID]; !ok {
		return false
	}
	h.clients[sessionID].subscribed = true
	h.subscribers[sessionID] = struct{}{}
	return true
}

func (h *Hub) Unsubscribe(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[sessionID]; ok {
		c.subscribed = false
	}
	delete(h.subscribers, sessionID)
}

// Subscribers returns a snapshot of the subscribed session ids.
// Iteration order is not stable.
func (h *Hub) Subscribers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.subscribers))
	for id := range h.subscribers {
		ids = append(ids, id)
	}
	return ids
}

// SessionsForUser returns every session currently associated with
// the user; a user may hold several open connections.
func (h *Hub) SessionsForUser(userID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var ids []string
	for id, c := range h.clients {
		if c.userID == userID {
			ids = append(ids, id)
		}
	}
	return ids
}

// Count reports the number of connected sessions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Send delivers one message to one session under the hub's write
// deadline. A timed-out write reports an error like any other failed
// send.
func (h *Hub) Send(sessionID string, msg Message) error {
	h.mu.RLock()
	c, ok := h.clients[sessionID]
	h.mu.RUnlock()
	if !ok {
		return ErrUnknownSession
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// SendToAll pushes a message to every connected session, dropping
// sessions whose send fails.
func (h *Hub) SendToAll(msg Message) {
	h.mu.RLock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	h.mu.RUnlock()

	for _, id := range ids {
		if err := h.Send(id, msg); err != nil && !errors.Is(err, ErrUnknownSession) {
			log.Printf("ws: write to %s failed: %v", id, err)
			h.Disconnect(id)
		}
	}
}
