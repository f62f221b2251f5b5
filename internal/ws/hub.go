package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Client is one websocket connection bound to the store of the user who opened it.
// A nil StoreID receives every event.
type Client struct {
	Conn    *websocket.Conn
	UserID  uuid.UUID
	StoreID *uuid.UUID
}

// Event is the JSON frame pushed to clients
type Event struct {
	Type     string      `json:"type"`
	StoreIDs []uuid.UUID `json:"store_ids"`
	Data     any         `json:"data"`
	At       time.Time   `json:"at"`
}

type Hub struct {
	Clients    map[*websocket.Conn]*Client
	Register   chan *Client
	Unregister chan *websocket.Conn
	Broadcast  chan Event
	mutex      sync.Mutex
	stopped    chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		Clients:    make(map[*websocket.Conn]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *websocket.Conn),
		Broadcast:  make(chan Event, 64),
		stopped:    make(chan struct{}),
	}
}

// Join registers a client. It returns false once the hub has stopped.
func (h *Hub) Join(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.stopped:
		return false
	}
}

// Leave unregisters a connection, or returns at once if the hub has stopped
func (h *Hub) Leave(conn *websocket.Conn) {
	select {
	case h.Unregister <- conn:
	case <-h.stopped:
	}
}

// Publish queues an event for the given stores without blocking the caller
func (h *Hub) Publish(eventType string, storeIDs []uuid.UUID, data any) {
	evt := Event{Type: eventType, StoreIDs: storeIDs, Data: data, At: time.Now()}
	select {
	case h.Broadcast <- evt:
	default:
		log.Warn().Str("event", eventType).Msg("ws broadcast queue full, dropping event")
	}
}

// Run serves the register, unregister and broadcast channels until done is closed
func (h *Hub) Run(done <-chan struct{}) {
	for {
		select {
		case <-done:
			h.closeAll()
			close(h.stopped)
			return

		case client := <-h.Register:
			h.mutex.Lock()
			h.Clients[client.Conn] = client
			h.mutex.Unlock()
			log.Debug().Str("user_id", client.UserID.String()).Msg("ws client connected")

		case conn := <-h.Unregister:
			h.mutex.Lock()
			if _, ok := h.Clients[conn]; ok {
				delete(h.Clients, conn)
				conn.Close()
			}
			h.mutex.Unlock()

		case evt := <-h.Broadcast:
			msg, err := json.Marshal(evt)
			if err != nil {
				log.Error().Err(err).Str("event", evt.Type).Msg("ws marshal failed")
				continue
			}
			h.mutex.Lock()
			for conn, client := range h.Clients {
				if !client.wants(evt) {
					continue
				}
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					conn.Close()
					delete(h.Clients, conn)
				}
			}
			h.mutex.Unlock()
		}
	}
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for conn := range h.Clients {
		conn.Close()
		delete(h.Clients, conn)
	}
}

func (c *Client) wants(evt Event) bool {
	if c.StoreID == nil {
		return true
	}
	for _, id := range evt.StoreIDs {
		if id == *c.StoreID {
			return true
		}
	}
	return false
}
