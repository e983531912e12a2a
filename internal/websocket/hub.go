package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/songsmith/api/internal/model"
)

// Client represents one connected viewer subscribed to a track.
type Client struct {
	TrackID string
	Conn    *websocket.Conn

	// send is closed at most once, by the hub dropping a slow consumer or
	// by unregistration. The mutex makes trySend safe against that close
	// while the reader is still replying to pings.
	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// NewClient creates a client subscribed to one track.
func NewClient(trackID string, conn *websocket.Conn) *Client {
	return &Client{
		TrackID: trackID,
		Conn:    conn,
		send:    make(chan []byte, 256),
	}
}

// trySend queues a message for the writer goroutine. Returns false without
// blocking if the client is closed or its buffer is full.
func (c *Client) trySend(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// Hub fans track status changes out to connected viewers. It is a live tap,
// not a queue: a subscriber receives every event published after it connects
// and nothing from before. Viewers reconcile on (re)connect by re-reading
// the track record.
type Hub struct {
	// Clients grouped by track ID
	clients map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *broadcastMessage

	mu sync.RWMutex
}

type broadcastMessage struct {
	TrackID string
	Message []byte
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *broadcastMessage, 256),
	}
}

// Run starts the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.TrackID] == nil {
				h.clients[client.TrackID] = make(map[*Client]bool)
			}
			h.clients[client.TrackID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.TrackID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					client.closeSend()
					if len(clients) == 0 {
						delete(h.clients, client.TrackID)
					}
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			if clients, ok := h.clients[msg.TrackID]; ok {
				for client := range clients {
					if !client.trySend(msg.Message) {
						// Slow consumer, drop it. Delivery is at most once.
						client.closeSend()
						delete(clients, client)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a new client.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// BroadcastUpdate pushes one notification event to every viewer subscribed
// to its track. Publishing never blocks the caller: the broadcast channel is
// buffered and overflow is dropped with a log line.
func (h *Hub) BroadcastUpdate(update *model.TrackUpdate) {
	if update == nil {
		return
	}
	msg := model.WSUpdateMessage{
		Type:    model.WSMessageTypeUpdate,
		TrackID: update.TrackID,
		Status:  update.Status,
		Message: update.Message,
		Data:    update.Data,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal update message: %v", err)
		return
	}

	select {
	case h.broadcast <- &broadcastMessage{TrackID: update.TrackID, Message: data}:
	default:
		log.Printf("Broadcast buffer full, dropping update for track %s", update.TrackID)
	}
}

// HandleConnection handles a WebSocket connection for one track.
func (h *Hub) HandleConnection(c *websocket.Conn, trackID string) {
	client := NewClient(trackID, c)

	h.Register(client)
	defer h.Unregister(client)

	// Writer goroutine
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case message, ok := <-client.send:
				if !ok {
					c.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := c.WriteMessage(websocket.TextMessage, message); err != nil {
					return
				}

			case <-ticker.C:
				// Keep-alive ping
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// Reader loop
	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var msg model.WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		if msg.Type == model.WSMessageTypePing {
			pong := model.WSMessage{Type: model.WSMessageTypePong}
			data, _ := json.Marshal(pong)
			// The hub may have dropped this client already; never write
			// to a closed channel.
			client.trySend(data)
		}
	}
}
