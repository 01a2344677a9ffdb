package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/pedulirasa/backend/config"
	"github.com/pedulirasa/backend/utils"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     allowedOrigin,
}

func allowedOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range config.Get().AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// Event is what the hub pushes to a connected user.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type delivery struct {
	userID uint
	data   []byte
}

type wsClient struct {
	hub    *ChatHub
	conn   *websocket.Conn
	send   chan []byte
	userID uint
}

// ChatHub keeps the open websocket connections per user. A user may hold several.
type ChatHub struct {
	clients    map[uint]map[*wsClient]struct{}
	register   chan *wsClient
	unregister chan *wsClient
	deliver    chan delivery
	done       chan struct{}
	mu         sync.RWMutex
}

// NewChatHub creates a hub; call Run to start it.
func NewChatHub() *ChatHub {
	return &ChatHub{
		clients:    make(map[uint]map[*wsClient]struct{}),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		deliver:    make(chan delivery, 256),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and deliveries until ctx is cancelled.
func (h *ChatHub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for uid, set := range h.clients {
				for c := range set {
					close(c.send)
				}
				delete(h.clients, uid)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			if h.clients[c.userID] == nil {
				h.clients[c.userID] = make(map[*wsClient]struct{})
			}
			h.clients[c.userID][c] = struct{}{}
			h.mu.Unlock()
			utils.Sugar.Debugw("ws client registered", "user_id", c.userID)

		case c := <-h.unregister:
			h.mu.Lock()
			h.remove(c)
			h.mu.Unlock()
			utils.Sugar.Debugw("ws client unregistered", "user_id", c.userID)

		case d := <-h.deliver:
			h.mu.Lock()
			for c := range h.clients[d.userID] {
				select {
				case c.send <- d.data:
				default:
					// slow consumer
					h.remove(c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with mu held.
func (h *ChatHub) remove(c *wsClient) {
	set, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
}

// Push queues an event for every connection of userID. Offline users are skipped.
func (h *ChatHub) Push(userID uint, eventType string, payload interface{}) {
	if h == nil {
		return
	}
	data, err := json.Marshal(Event{Type: eventType, Payload: payload})
	if err != nil {
		utils.Sugar.Errorw("ws marshal failed", "type", eventType, "error", err)
		return
	}
	select {
	case h.deliver <- delivery{userID: userID, data: data}:
	default:
		utils.Sugar.Warnw("ws delivery queue full", "user_id", userID)
	}
}

// Online reports how many connections userID holds.
func (h *ChatHub) Online(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// ServeWS handles GET /ws. The user comes from AuthRequired, which also reads ?token=.
func (h *ChatHub) ServeWS(ctx *gin.Context) {
	uid, ok := requireUser(ctx)
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		utils.Sugar.Warnw("ws upgrade failed", "error", err)
		return
	}
	c := &wsClient{hub: h, conn: conn, send: make(chan []byte, 64), userID: uid}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// readPump only watches for close and pong frames; clients send over HTTP.
func (c *wsClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				utils.Sugar.Warnw("ws unexpected close", "user_id", c.userID, "error", err)
			}
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
