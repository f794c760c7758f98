package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/hotsheetiq/frontdesk/monitor"
)

const (
	monitorWriteWait  = 10 * time.Second
	monitorSendBuffer = 32
)

// Hub fans call-lifecycle events out to connected dashboard clients.
// Broadcast never blocks: a client that can't keep up is dropped.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*monitorClient]struct{}
}

type monitorClient struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
	done chan struct{}
}

// NewHub creates a monitor hub restricted to the given origins. "*" allows
// any origin.
func NewHub(allowedOrigins []string) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 4 * 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				for _, allowed := range allowedOrigins {
					if allowed == "*" || allowed == origin {
						return true
					}
				}
				return false
			},
		},
		clients: make(map[*monitorClient]struct{}),
	}
}

// Broadcast pushes an event to every connected client.
func (h *Hub) Broadcast(event *monitor.Event) {
	data, err := event.Encode()
	if err != nil {
		log.Error().Err(err).Str("type", event.Type).Msg("failed to encode monitor event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// Slow client, disconnect it rather than stall the call path.
			c.close()
		}
	}
}

// ClientCount reports the number of connected dashboard clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects all clients.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*monitorClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

// ServeHTTP upgrades the request and streams events until the client leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("monitor upgrade failed")
		return
	}

	c := &monitorClient{
		conn: conn,
		send: make(chan []byte, monitorSendBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	log.Info().Str("remote", conn.RemoteAddr().String()).Msg("monitor client connected")

	go c.readPump()
	c.writePump()

	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	log.Info().Str("remote", conn.RemoteAddr().String()).Msg("monitor client disconnected")
}

// readPump discards inbound frames and notices when the client hangs up.
func (c *monitorClient) readPump() {
	defer c.close()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *monitorClient) writePump() {
	defer c.conn.Close()
	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(monitorWriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *monitorClient) close() {
	c.once.Do(func() { close(c.done) })
}
