package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"game-night/internal/models"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// FeedHandler pushes live club activity (recorded sessions, stats
// refreshes) to connected WebSocket clients.
type FeedHandler struct {
	hub *FeedHub
}

func NewFeedHandler() *FeedHandler {
	hub := NewFeedHub()
	go hub.Run()
	return &FeedHandler{hub: hub}
}

// FeedHub maintains active connections and fans out feed events.
type FeedHub struct {
	clients map[*FeedClient]bool
	mu      sync.RWMutex

	register   chan *FeedClient
	unregister chan *FeedClient
	broadcast  chan []byte
}

type FeedClient struct {
	hub  *FeedHub
	conn *websocket.Conn
	send chan []byte
}

// FeedMessage is the wire format for feed events.
type FeedMessage struct {
	Type      string              `json:"type"`
	Session   *models.GameSession `json:"session,omitempty"`
	PlayerID  string              `json:"playerId,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

func NewFeedHub() *FeedHub {
	return &FeedHub{
		clients:    make(map[*FeedClient]bool),
		register:   make(chan *FeedClient),
		unregister: make(chan *FeedClient),
		broadcast:  make(chan []byte),
	}
}

func (h *FeedHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			log.Printf("[Feed] Client connected (%d active)", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			log.Printf("[Feed] Client disconnected (%d active)", count)

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					// Slow consumer, drop it
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (c *FeedClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[Feed] WebSocket error: %v", err)
			}
			break
		}
	}
}

func (c *FeedClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// HandleFeed upgrades the connection and subscribes it to the club feed.
func (h *FeedHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Feed] WebSocket upgrade failed: %v", err)
		return
	}

	client := &FeedClient{
		hub:  h.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	h.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// Deliver pushes a raw feed event to all local clients. Used as the
// event bus delivery callback so events from other server instances
// reach clients connected here.
func (h *FeedHandler) Deliver(_ string, payload []byte) {
	h.hub.broadcast <- payload
}

// MarshalSessionRecorded builds the feed payload for a newly recorded session.
func MarshalSessionRecorded(session *models.GameSession) []byte {
	msg := FeedMessage{
		Type:      "session_recorded",
		Session:   session,
		Timestamp: time.Now().UTC(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[Feed] Failed to marshal session event: %v", err)
		return nil
	}
	return data
}

// MarshalStatsUpdated builds the feed payload for a stats refresh.
func MarshalStatsUpdated(playerID string) []byte {
	msg := FeedMessage{
		Type:      "stats_updated",
		PlayerID:  playerID,
		Timestamp: time.Now().UTC(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[Feed] Failed to marshal stats event: %v", err)
		return nil
	}
	return data
}
