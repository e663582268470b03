package websocket

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/jmoray/symposium/internal/agent"
)

// Hub tracks active clients grouped by the session they subscribed to and
// fans swarm lifecycle events out to them.
type Hub struct {
	// Registered clients by session ID
	clients map[string]map[*Client]bool

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	mu sync.RWMutex
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub loop. Call it once, in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.SessionID] == nil {
				h.clients[client.SessionID] = make(map[*Client]bool)
			}
			h.clients[client.SessionID][client] = true
			h.mu.Unlock()
			log.Printf("Client registered: session=%s", client.SessionID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.SessionID]; ok {
				delete(h.clients[client.SessionID], client)
				if len(h.clients[client.SessionID]) == 0 {
					delete(h.clients, client.SessionID)
				}
				close(client.Send)
			}
			h.mu.Unlock()
			log.Printf("Client unregistered: session=%s", client.SessionID)
		}
	}
}

// Publish sends an event to every client subscribed to the session. A client
// whose buffer is full has the event dropped rather than blocking the swarm;
// the job endpoints remain the source of truth. Publish satisfies
// agent.Publisher.
func (h *Hub) Publish(sessionID string, event agent.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal event: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[sessionID] {
		select {
		case client.Send <- data:
		default:
			log.Printf("Client buffer full, dropping event for session=%s", sessionID)
		}
	}
}

// Register registers a client with the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister unregisters a client from the hub
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}
