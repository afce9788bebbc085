package websocket

import (
	"log"
	"sync"

	"fermata/types"
)

// Hub interface defines the methods for managing WebSocket connections
type Hub interface {
	Run()
	BroadcastProgress(msg types.ProgressMessage)
	RegisterClient(client *Client)
	UnregisterClient(client *Client)
}

// FirehoseKey returns the subscription key for one user's firehose, so a
// watcher only ever receives that user's own download activity
func FirehoseKey(userID string) string {
	return "all:" + userID
}

// hub maintains the set of active clients and broadcasts messages to them
type hub struct {
	// Registered clients mapped by download ID
	clients map[string]map[*Client]bool

	// Broadcast channel for sending messages to all clients of a download
	broadcast chan types.ProgressMessage

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Mutex for thread-safe operations
	mu sync.RWMutex
}

// NewHub creates a new WebSocket hub
func NewHub() Hub {
	return &hub{
		clients:    make(map[string]map[*Client]bool),
		broadcast:  make(chan types.ProgressMessage),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's main event loop
func (h *hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.downloadID] == nil {
				h.clients[client.downloadID] = make(map[*Client]bool)
			}
			h.clients[client.downloadID][client] = true
			h.mu.Unlock()
			log.Printf("WebSocket client connected for download %s", client.downloadID)

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.downloadID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.clients, client.downloadID)
					}
				}
			}
			h.mu.Unlock()
			log.Printf("WebSocket client disconnected for download %s", client.downloadID)

		case message := <-h.broadcast:
			h.mu.RLock()
			// Send to the download's own subscribers
			if clients, ok := h.clients[message.DownloadID]; ok {
				for client := range clients {
					select {
					case client.send <- message:
					default:
						close(client.send)
						delete(clients, client)
					}
				}
				if len(clients) == 0 {
					delete(h.clients, message.DownloadID)
				}
			}

			// Also send to the owner's firehose subscribers
			firehose := FirehoseKey(message.UserID)
			if allClients, ok := h.clients[firehose]; ok {
				for client := range allClients {
					select {
					case client.send <- message:
					default:
						close(client.send)
						delete(allClients, client)
					}
				}
				if len(allClients) == 0 {
					delete(h.clients, firehose)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// BroadcastProgress sends a progress message to the download's subscribers
func (h *hub) BroadcastProgress(msg types.ProgressMessage) {
	select {
	case h.broadcast <- msg:
	default:
		log.Printf("WebSocket broadcast channel full, dropping message for download %s", msg.DownloadID)
	}
}

// RegisterClient registers a new client with the hub
func (h *hub) RegisterClient(client *Client) {
	h.register <- client
}

// UnregisterClient unregisters a client from the hub
func (h *hub) UnregisterClient(client *Client) {
	h.unregister <- client
}
