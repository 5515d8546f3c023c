package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/draxon/pulse/internal/database"
	"github.com/draxon/pulse/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const (
	feedWriteWait      = 10 * time.Second
	feedPongWait       = 60 * time.Second
	feedPingPeriod     = (feedPongWait * 9) / 10
	feedMaxMessageSize = 512
	feedSendBuffer     = 32
)

// FeedEventAlert is the event type sent for every logged alert
const FeedEventAlert = "alert"

// FeedEvent is one message on the live alert feed
type FeedEvent struct {
	Type  string          `json:"type"`
	Alert *database.Alert `json:"alert"`
}

type feedClient struct {
	conn *websocket.Conn
	send chan FeedEvent
}

// AlertFeed streams newly logged alerts to WebSocket subscribers. Run owns
// the subscriber set; everything else talks to it over channels.
type AlertFeed struct {
	upgrader websocket.Upgrader

	register   chan *feedClient
	unregister chan *feedClient
	broadcast  chan FeedEvent
	done       chan struct{}

	subscribers atomic.Int64
}

// NewAlertFeed creates a feed accepting connections from allowedOrigins.
// No origins, or "*", accepts any origin.
func NewAlertFeed(allowedOrigins ...string) *AlertFeed {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[strings.TrimSuffix(o, "/")] = true
	}

	return &AlertFeed{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || len(origins) == 0 || origins["*"] {
					return true
				}
				return origins[strings.TrimSuffix(origin, "/")]
			},
		},
		register:   make(chan *feedClient),
		unregister: make(chan *feedClient),
		broadcast:  make(chan FeedEvent, feedSendBuffer),
		done:       make(chan struct{}),
	}
}

// SetupRoutes registers the feed endpoint
func (f *AlertFeed) SetupRoutes(r chi.Router) {
	r.Get("/ws/alerts", f.ServeHTTP)
}

// Subscribers returns the number of connected clients
func (f *AlertFeed) Subscribers() int {
	return int(f.subscribers.Load())
}

// Run fans events out to subscribers until ctx is done
func (f *AlertFeed) Run(ctx context.Context) {
	clients := make(map[*feedClient]bool)
	drop := func(c *feedClient) {
		if clients[c] {
			delete(clients, c)
			close(c.send)
		}
		f.setSubscribers(len(clients))
	}

	log.Printf("AlertFeed: Started")
	defer func() {
		close(f.done)
		for c := range clients {
			drop(c)
		}
		log.Printf("AlertFeed: Stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-f.register:
			clients[c] = true
			f.setSubscribers(len(clients))
			log.Printf("AlertFeed: Subscriber connected from %s (total %d)", c.conn.RemoteAddr(), len(clients))
		case c := <-f.unregister:
			drop(c)
		case evt := <-f.broadcast:
			for c := range clients {
				select {
				case c.send <- evt:
				default:
					log.Printf("AlertFeed: Dropping slow subscriber %s", c.conn.RemoteAddr())
					drop(c)
				}
			}
		}
	}
}

func (f *AlertFeed) setSubscribers(n int) {
	f.subscribers.Store(int64(n))
	metrics.FeedSubscribers.Set(float64(n))
}

// AlertSubmitted publishes a logged alert. It never blocks the caller.
func (f *AlertFeed) AlertSubmitted(alert *database.Alert) {
	select {
	case f.broadcast <- FeedEvent{Type: FeedEventAlert, Alert: alert}:
	case <-f.done:
	default:
		log.Printf("AlertFeed: Broadcast queue full, alert %d not published", alert.ID)
	}
}

// ServeHTTP upgrades the request and streams alerts until the peer leaves
func (f *AlertFeed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("AlertFeed: Upgrade failed: %v", err)
		return
	}

	c := &feedClient{conn: conn, send: make(chan FeedEvent, feedSendBuffer)}
	select {
	case f.register <- c:
	case <-f.done:
		conn.Close()
		return
	}

	go c.writePump()
	c.readPump()

	select {
	case f.unregister <- c:
	case <-f.done:
	}
}

// readPump discards client messages and keeps the read deadline fresh
func (c *feedClient) readPump() {
	c.conn.SetReadLimit(feedMaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(feedPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(feedPongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("AlertFeed: Read error: %v", err)
			}
			return
		}
	}
}

func (c *feedClient) writePump() {
	ticker := time.NewTicker(feedPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case evt, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(evt); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
