package ws

import (
	"encoding/json"
	"log/slog"
	"sync"

	"flowengine/entity"
)

// Event is a WebSocket event pushed to dashboard clients.
type Event struct {
	Type string      `json:"type"` // "outbound_intent"
	Data interface{} `json:"data"`
}

// Hub maintains the set of connected dashboard clients and broadcasts the
// engine's outbound intents to them as they are emitted.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan *Event
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	log        *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan *Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        log,
	}
}

// Run starts the hub's event loop. Should be called in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastIntent mirrors an outbound intent to all connected clients.
// When the buffer is full the event is dropped.
func (h *Hub) BroadcastIntent(intent entity.OutboundIntent) {
	select {
	case h.broadcast <- &Event{Type: "outbound_intent", Data: intent}:
	default:
		if h.log != nil {
			h.log.Warn("intent feed buffer full, event dropped")
		}
	}
}
