package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/daway0/pors/internal/service"
)

// Event is one WebSocket message as broadcast to the admin panel.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// dateEvent routes an event to the room watching one delivery date.
type dateEvent struct {
	DeliveryDate string
	Event        Event
}

// Hub maintains the set of connected admin panels, one room per delivery
// date, and fans order events out to them.
type Hub struct {
	// Registered clients by delivery date
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client

	broadcast chan *dateEvent

	mu sync.RWMutex
}

// NewHub creates a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *dateEvent, 256),
	}
}

// Run starts the hub's main loop.
// This should be called as a goroutine: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.deliveryDate] == nil {
				h.rooms[client.deliveryDate] = make(map[*Client]bool)
			}
			h.rooms[client.deliveryDate][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.deliveryDate]; ok {
				if _, exists := clients[client]; exists {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.rooms, client.deliveryDate)
					}
				}
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.mu.Lock()
			clients := h.rooms[event.DeliveryDate]

			message, err := json.Marshal(event.Event)
			if err != nil {
				h.mu.Unlock()
				continue
			}

			for client := range clients {
				select {
				case client.send <- message:
				default:
					// Client's send buffer is full, close and unregister
					close(client.send)
					delete(h.rooms[event.DeliveryDate], client)
					if len(h.rooms[event.DeliveryDate]) == 0 {
						delete(h.rooms, event.DeliveryDate)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends an event to every panel watching a delivery date.
func (h *Hub) Broadcast(deliveryDate string, event Event) {
	h.broadcast <- &dateEvent{
		DeliveryDate: deliveryDate,
		Event:        event,
	}
}

// PublishOrderEvent satisfies service.Feed: one order transition,
// marshalled and routed to the date's room. Must not block.
func (h *Hub) PublishOrderEvent(deliveryDate string, event service.OrderEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("ERROR: marshal order event: %v", err)
		return
	}
	select {
	case h.broadcast <- &dateEvent{
		DeliveryDate: deliveryDate,
		Event:        Event{Type: "order", Payload: payload},
	}:
	default:
		// Feed is saturated; the panel refetches on reconnect anyway.
	}
}
