package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"emi-device-manager/internal/logger"
)

const (
	sendBufferSize = 256
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 45 * time.Second
	maxMessageSize = 1024
)

// Event is the envelope pushed to dashboard clients.
type Event struct {
	Type      string      `json:"type"`
	Timestamp string      `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// Hub manages websocket connections grouped into per-shop rooms. Lock and
// unlock events reach only the clients watching the affected shop.
type Hub struct {
	mu    sync.RWMutex
	rooms map[uuid.UUID]map[*Client]struct{}
}

// Client is one connected dashboard session.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	shopID uuid.UUID
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by the CORS middleware.
		return true
	},
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[uuid.UUID]map[*Client]struct{})}
}

// Run blocks until the context is cancelled, then disconnects everyone.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.shopID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[client.shopID] = room
	}
	room[client] = struct{}{}
	h.mu.Unlock()

	logger.Debug("Websocket client connected",
		zap.String("shop_id", client.shopID.String()),
		zap.Int("clients", h.ClientCount()),
	)
}

// unregister removes a client. Only the goroutine that actually removes
// the client closes its send channel, preventing double-close on shutdown.
func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.shopID]
	existed := false
	if ok {
		_, existed = room[client]
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, client.shopID)
		}
	}
	h.mu.Unlock()

	if existed {
		close(client.send)
	}
}

// BroadcastToShop pushes an event to every client in the shop's room.
// Slow clients are dropped rather than blocking the caller.
func (h *Hub) BroadcastToShop(shopID uuid.UUID, event string, payload interface{}) {
	msg := Event{
		Type:      event,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		logger.Error("Failed to marshal websocket event", zap.Error(err))
		return
	}

	// Sends happen under the read lock: closing a send channel requires the
	// write lock, so a concurrent unregister or shutdown cannot close a
	// channel mid-broadcast.
	h.mu.RLock()
	var slow []*Client
	for client := range h.rooms[shopID] {
		select {
		case client.send <- data:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.unregister(client)
		client.conn.Close()
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, room := range h.rooms {
		total += len(room)
	}
	return total
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for shopID, room := range h.rooms {
		for client := range room {
			close(client.send)
			client.conn.Close()
		}
		delete(h.rooms, shopID)
	}
}

// HandleConnection upgrades the request and attaches the client to the
// shop's room. Authorization happens before this is called.
func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request, shopID uuid.UUID) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Websocket upgrade failed", zap.Error(err))
		return err
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		shopID: shopID,
	}
	h.register(client)

	go client.writePump()
	go client.readPump()

	return nil
}

// readPump drains client messages. Dashboard clients only listen; inbound
// traffic just keeps the connection alive.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("Websocket read error", zap.Error(err))
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
