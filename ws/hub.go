// Package ws pushes new feed entries to connected browsers.
package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/podbrah/podbrah-backend/logger"
	"github.com/podbrah/podbrah-backend/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 256
)

type Client struct {
	Conn   *websocket.Conn
	Send   chan []byte
	UserID string
	room   string
}

// Hub fans messages out to global listeners (the feed page) and to per-podcast rooms.
type Hub struct {
	mu     sync.RWMutex
	global map[*Client]struct{}
	rooms  map[string]map[*Client]struct{}
	log    *logger.Logger
}

type Stats struct {
	GlobalClients int `json:"global_clients"`
	Rooms         int `json:"rooms"`
	RoomClients   int `json:"room_clients"`
}

type Event struct {
	Type    string            `json:"type"`
	Message string            `json:"message,omitempty"`
	Entry   *models.FeedEntry `json:"entry,omitempty"`
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		global: make(map[*Client]struct{}),
		rooms:  make(map[string]map[*Client]struct{}),
		log:    log,
	}
}

// Register starts the pumps. An empty room means the global feed.
func (h *Hub) Register(room, userID string, conn *websocket.Conn) *Client {
	client := &Client{Conn: conn, Send: make(chan []byte, sendBuffer), UserID: userID, room: room}

	h.mu.Lock()
	if room == "" {
		h.global[client] = struct{}{}
	} else {
		if _, ok := h.rooms[room]; !ok {
			h.rooms[room] = make(map[*Client]struct{})
		}
		h.rooms[room][client] = struct{}{}
	}
	h.mu.Unlock()

	go h.readPump(client)
	go h.writePump(client)
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client.room == "" {
		if _, ok := h.global[client]; ok {
			delete(h.global, client)
			close(client.Send)
		}
		return
	}
	if clients, ok := h.rooms[client.room]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.Send)
		}
		if len(clients) == 0 {
			delete(h.rooms, client.room)
		}
	}
}

// Enqueue drops the message for clients whose buffer is full.
func (h *Hub) enqueue(client *Client, data []byte) {
	select {
	case client.Send <- data:
	default:
		h.log.Warn("ws client too slow, dropping message", "user_id", client.UserID, "room", client.room)
	}
}

func (h *Hub) Broadcast(room string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if room == "" {
		for c := range h.global {
			h.enqueue(c, data)
		}
		return
	}
	for c := range h.rooms[room] {
		h.enqueue(c, data)
	}
}

// BroadcastFeedEntry notifies the global feed and everyone on the podcast's page.
// podcastID is the external id used in page URLs.
func (h *Hub) BroadcastFeedEntry(podcastID string, entry *models.FeedEntry) {
	if entry == nil {
		return
	}
	data, err := json.Marshal(Event{Type: "feed_entry", Entry: entry})
	if err != nil {
		h.log.Error("marshal feed entry", "error", err)
		return
	}
	h.Broadcast("", data)
	if podcastID != "" {
		h.Broadcast(podcastID, data)
	}
}

func (h *Hub) send(client *Client, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.registered(client) {
		return
	}
	h.enqueue(client, data)
}

// registered must be called with mu held. Send is closed once a client leaves the maps.
func (h *Hub) registered(client *Client) bool {
	if client.room == "" {
		_, ok := h.global[client]
		return ok
	}
	_, ok := h.rooms[client.room][client]
	return ok
}

func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	s := Stats{GlobalClients: len(h.global), Rooms: len(h.rooms)}
	for _, clients := range h.rooms {
		s.RoomClients += len(clients)
	}
	return s
}

func (h *Hub) readPump(client *Client) {
	defer func() {
		h.Unregister(client)
		client.Conn.Close()
	}()
	client.Conn.SetReadLimit(512)
	_ = client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		return client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()
	for {
		select {
		case msg, ok := <-client.Send:
			_ = client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
