package ws

import (
	"context"
	"encoding/json"
	"sync"
)

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	OrderID string          `json:"order_id,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// vendorEvent routes an event to one vendor's room
type vendorEvent struct {
	VendorID string
	Event    Event
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Registered clients by vendor ID
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *vendorEvent
	done       chan struct{}

	// OnClientCount, when set before Run, is called with the number of
	// connected clients after every change.
	OnClientCount func(n int)

	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *vendorEvent, 256),
		done:       make(chan struct{}),
	}
}

// Run is the hub's main loop. It returns when ctx is cancelled, closing
// every client's send channel.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for vendorID, clients := range h.rooms {
				for client := range clients {
					close(client.send)
				}
				delete(h.rooms, vendorID)
			}
			h.mu.Unlock()
			h.reportCount()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.vendorID] == nil {
				h.rooms[client.vendorID] = make(map[*Client]bool)
			}
			h.rooms[client.vendorID][client] = true
			h.mu.Unlock()
			h.reportCount()

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()
			h.reportCount()

		case event := <-h.broadcast:
			message, err := json.Marshal(event.Event)
			if err != nil {
				continue
			}

			h.mu.Lock()
			for client := range h.rooms[event.VendorID] {
				if !client.wants(event.Event) {
					continue
				}
				select {
				case client.send <- message:
				default:
					// Slow consumer
					h.removeLocked(client)
				}
			}
			h.mu.Unlock()
			h.reportCount()
		}
	}
}

func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.rooms[client.vendorID]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.vendorID)
	}
}

func (h *Hub) reportCount() {
	if h.OnClientCount != nil {
		h.OnClientCount(h.ClientCount())
	}
}

// ClientCount returns the number of connected clients across all vendors.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, clients := range h.rooms {
		n += len(clients)
	}
	return n
}

// BroadcastToVendor sends an event to every client of one vendor. It is a
// no-op once the hub has stopped.
func (h *Hub) BroadcastToVendor(vendorID string, event Event) {
	select {
	case h.broadcast <- &vendorEvent{VendorID: vendorID, Event: event}:
	case <-h.done:
	}
}

// Done is closed when Run returns.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}
