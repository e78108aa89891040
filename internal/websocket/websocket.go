package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/abrezinsky/motsvote/internal/logger"
	"github.com/abrezinsky/motsvote/internal/models"
	"github.com/abrezinsky/motsvote/internal/services"
)

// Message types pushed to clients
const (
	TypeVotingStatus = "voting_status"
	TypeCountdown    = "countdown"
	TypeTallyUpdated = "tally_updated"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// StatusSource reports the voting window
type StatusSource interface {
	Status(ctx context.Context) (*services.VotingStatus, error)
}

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	log        logger.Logger
	clients    map[*Client]bool
	broadcast  chan models.WSMessage
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	status     StatusSource
	interval   time.Duration
	done       chan struct{}
	lastOpen   *bool
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan models.WSMessage
}

// New creates a new Hub. Every interval the hub pushes a countdown to
// connected clients, and a voting_status message when the window closes.
func New(log logger.Logger, status StatusSource, interval time.Duration) *Hub {
	if interval <= 0 {
		interval = time.Second
	}
	return &Hub{
		log:        log,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan models.WSMessage),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		status:     status,
		interval:   interval,
		done:       make(chan struct{}),
	}
}

// Start runs the hub until ctx is cancelled
func (h *Hub) Start(ctx context.Context) {
	go h.run(ctx)
}

// Done is closed once the hub has stopped and released its clients
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer func() {
		ticker.Stop()
		h.mutex.Lock()
		for client := range h.clients {
			delete(h.clients, client)
			close(client.send)
		}
		h.mutex.Unlock()
		close(h.done)
		h.log.Info("WebSocket hub stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			h.log.Debug("Client connected", "total_clients", total)

			// Send current voting status to new client
			if msg, ok := h.statusMessage(ctx); ok {
				select {
				case client.send <- msg:
				default:
				}
			}

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.log.Debug("Client disconnected", "total_clients", total)

		case message := <-h.broadcast:
			h.fanOut(message)

		case <-ticker.C:
			h.tick(ctx)
		}
	}
}

// fanOut runs on the hub goroutine only
func (h *Hub) fanOut(message models.WSMessage) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			// Client's send channel is full, drop it
			delete(h.clients, client)
			close(client.send)
		}
	}
}

func (h *Hub) statusMessage(ctx context.Context) (models.WSMessage, bool) {
	if h.status == nil {
		return models.WSMessage{}, false
	}
	st, err := h.status.Status(ctx)
	if err != nil {
		h.log.Debug("Voting status unavailable", "error", err)
		return models.WSMessage{}, false
	}
	return models.WSMessage{
		Type: TypeVotingStatus,
		Payload: map[string]interface{}{
			"open":     st.Open,
			"deadline": st.Deadline,
		},
	}, true
}

// tick sends the countdown, and a voting_status message when the window
// changes between open and closed.
func (h *Hub) tick(ctx context.Context) {
	if h.status == nil || h.ClientCount() == 0 {
		return
	}
	st, err := h.status.Status(ctx)
	if err != nil {
		return
	}

	if h.lastOpen != nil && *h.lastOpen != st.Open {
		h.log.Info("Voting window changed", "open", st.Open, "deadline", st.Deadline)
		h.fanOut(models.WSMessage{
			Type:    TypeVotingStatus,
			Payload: map[string]interface{}{"open": st.Open, "deadline": st.Deadline},
		})
	}
	open := st.Open
	h.lastOpen = &open

	h.fanOut(models.WSMessage{
		Type: TypeCountdown,
		Payload: map[string]interface{}{
			"open":      st.Open,
			"deadline":  st.Deadline,
			"remaining": st.Remaining,
		},
	})
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// BroadcastMessage sends a message to all connected clients. It is a no-op
// once the hub has stopped.
func (h *Hub) BroadcastMessage(msgType string, payload interface{}) {
	select {
	case h.broadcast <- models.WSMessage{Type: msgType, Payload: payload}:
	case <-h.done:
	}
}

// BroadcastVotingStatus implements services.Broadcaster
func (h *Hub) BroadcastVotingStatus(open bool, deadline string) {
	h.BroadcastMessage(TypeVotingStatus, map[string]interface{}{
		"open":     open,
		"deadline": deadline,
	})
}

// BroadcastTallyUpdated implements services.Broadcaster
func (h *Hub) BroadcastTallyUpdated(category string) {
	h.BroadcastMessage(TypeTallyUpdated, map[string]interface{}{
		"category": category,
	})
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("WebSocket error", "error", err)
			}
			break
		}

		var msg models.WSMessage
		if err := json.Unmarshal(message, &msg); err == nil {
			c.hub.log.Debug("Received message", "type", msg.Type)
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
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

// ServeWs handles websocket requests from clients
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("WebSocket upgrade error", "error", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan models.WSMessage, 256),
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
