// Package wshub fans JSON events out to connected websocket clients.
package wshub

import (
	"net/http"
	"sync"
	"time"

	"trading-dashboard/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	clientBuffer = 64
	pingInterval = 45 * time.Second
	readTimeout  = 90 * time.Second
	writeTimeout = 10 * time.Second
)

type client struct {
	conn *websocket.Conn
	out  chan interface{}
	done chan struct{}
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

type Hub struct {
	log      *logger.Logger
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	clients  map[*client]struct{}
}

// New returns a hub accepting connections from the given origins; an empty
// list or "*" accepts any origin.
func New(log *logger.Logger, allowedOrigins []string) *Hub {
	h := &Hub{
		log:     log,
		clients: make(map[*client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// Broadcast queues v for every client. Slow clients drop messages instead of
// blocking the caller.
func (h *Hub) Broadcast(v interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.out <- v:
		default:
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.close()
		delete(h.clients, c)
	}
}

// ServeWS upgrades the request and blocks until the client goes away. greeting,
// when not nil, is sent first.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, greeting interface{}) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	c := &client{conn: conn, out: make(chan interface{}, clientBuffer), done: make(chan struct{})}
	if greeting != nil {
		c.out <- greeting
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.log.Debug("Websocket client connected", logger.StringField("remote_addr", r.RemoteAddr))

	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		c.close()
		h.log.Debug("Websocket client disconnected", logger.StringField("remote_addr", r.RemoteAddr))
	}()

	go h.writePump(c)
	h.readPump(c)
	return nil
}

func (h *Hub) writePump(c *client) {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case v := <-c.out:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteJSON(v); err != nil {
				c.close()
				return
			}
		case <-ping.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeTimeout))
			_ = c.conn.Close()
			return
		}
	}
}

// readPump only drains control frames; clients never send commands.
func (h *Hub) readPump(c *client) {
	_ = c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
		select {
		case <-c.done:
			return
		default:
		}
	}
}
