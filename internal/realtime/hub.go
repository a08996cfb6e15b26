package realtime

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gestioncarteras/backend/pkg/logger"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Buffered events per client before the hub drops the connection
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Back-office dashboards are served from the same origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub broadcasts score and payment events to connected dashboards.
// Clients that cannot keep up are disconnected rather than allowed to
// block the broadcast loop.
type Hub struct {
	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	broadcast  chan Event
	done       chan struct{}
	logger     *logger.Logger

	mu      sync.RWMutex
	started bool
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan Event
}

// NewHub creates a new Hub instance
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan Event, 256),
		done:       make(chan struct{}),
		logger:     log.WithField("component", "realtime"),
	}
}

// Run drives the hub until Stop is called. Call it in its own
// goroutine.
func (h *Hub) Run() {
	h.mu.Lock()
	h.started = true
	h.mu.Unlock()

	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			h.logger.WithField("clients", len(h.clients)).Debug("Dashboard connected")

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.logger.WithField("clients", len(h.clients)).Debug("Dashboard disconnected")
			}

		case event := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- event:
				default:
					// Slow consumer: drop it.
					delete(h.clients, c)
					close(c.send)
				}
			}

		case <-h.done:
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			return
		}
	}
}

// Stop shuts the hub down and disconnects every client.
func (h *Hub) Stop() {
	close(h.done)
}

// Publish queues an event for broadcast. Never blocks: when the hub is
// saturated or not running, the event is dropped with a warning.
func (h *Hub) Publish(event Event) {
	h.mu.RLock()
	started := h.started
	h.mu.RUnlock()
	if !started {
		return
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case h.broadcast <- event:
	default:
		h.logger.WithField("type", string(event.Type)).Warn("Event dropped, broadcast queue full")
	}
}

// PublishScoreChanged implements report.ScorePublisher.
func (h *Hub) PublishScoreChanged(clientID string, previous, current int) {
	h.Publish(Event{
		Type:     EventScoreChanged,
		ClientID: clientID,
		Payload:  ScoreChangedPayload{Previous: previous, Current: current},
	})
}

// ServeWS upgrades an HTTP request into a dashboard connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan Event, sendBuffer),
	}
	h.register <- c

	go c.writePump()
	go c.readPump()
}

// readPump discards inbound messages; the hub is push-only. It exists
// to process control frames and detect closed connections.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
