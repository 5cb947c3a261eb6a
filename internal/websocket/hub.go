package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"invexis/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 256
	queueSize  = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The mobile client connects from arbitrary origins
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Event is the JSON message pushed to clients after the inventory changes
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// subscriber is one connected dashboard
type subscriber struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub fans inventory events out to every subscriber
type Hub struct {
	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
	events      chan []byte
	join        chan *subscriber
	leave       chan *subscriber
	done        chan struct{}
}

// NewHub initializes a new WS Hub instance
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[*subscriber]struct{}),
		events:      make(chan []byte, queueSize),
		join:        make(chan *subscriber),
		leave:       make(chan *subscriber),
		done:        make(chan struct{}),
	}
}

// Run dispatches events until ctx ends, then disconnects every subscriber
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for s := range h.subscribers {
				h.drop(s)
			}
			h.mu.Unlock()
			return
		case s := <-h.join:
			h.mu.Lock()
			h.subscribers[s] = struct{}{}
			h.mu.Unlock()
			logger.Logger.Debug().Int("subscribers", h.ClientCount()).Msg("WebSocket client connected")
		case s := <-h.leave:
			h.mu.Lock()
			if _, ok := h.subscribers[s]; ok {
				h.drop(s)
			}
			h.mu.Unlock()
		case payload := <-h.events:
			h.mu.Lock()
			for s := range h.subscribers {
				select {
				case s.send <- payload:
				default:
					// A subscriber that cannot keep up is disconnected
					logger.Logger.Warn().Msg("WebSocket client too slow, disconnecting")
					h.drop(s)
				}
			}
			h.mu.Unlock()
		}
	}
}

// drop must be called with h.mu held
func (h *Hub) drop(s *subscriber) {
	delete(h.subscribers, s)
	close(s.send)
}

// Publish queues an event for every client. It never blocks the caller: when
// the queue is full the event is dropped.
func (h *Hub) Publish(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Logger.Error().Err(err).Str("event", event.Event).Msg("Failed to encode websocket event")
		return
	}
	select {
	case h.events <- payload:
	default:
		logger.Logger.Warn().Str("event", event.Event).Msg("Websocket queue full, event dropped")
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// writeLoop sends one event per frame and pings to keep idle connections open
func (s *subscriber) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop discards client frames; it exists to notice pongs and disconnects
func (s *subscriber) readLoop() {
	defer func() {
		select {
		case s.hub.leave <- s:
		case <-s.hub.done:
		}
		_ = s.conn.Close()
	}()
	s.conn.SetReadLimit(512)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Logger.Warn().Err(err).Msg("WebSocket read error")
			}
			return
		}
	}
}

// ServeWs upgrades the request and attaches the client to the hub
func ServeWs(hub *Hub, c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn(c.Request.Context()).Err(err).Msg("WebSocket upgrade failed")
		return
	}
	s := &subscriber{hub: hub, conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case hub.join <- s:
	case <-hub.done:
		_ = conn.Close()
		return
	}

	go s.writeLoop()
	go s.readLoop()
}
