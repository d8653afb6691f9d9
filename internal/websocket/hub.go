package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rzzdr/cds-pricing-engine/pkg/metrics"
	"github.com/rzzdr/cds-pricing-engine/pkg/models"
	"github.com/rzzdr/cds-pricing-engine/pkg/utils/logger"
	"github.com/shopspring/decimal"
)

// BookSource revalues the book for periodic broadcasts
type BookSource interface {
	RevalueBook(ctx context.Context) (*models.BookValuation, error)
}

// Hub maintains the set of active clients and broadcasts book valuations to them
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan *models.BookValuation
	register   chan *Client
	unregister chan *Client
	source     BookSource
	interval   time.Duration
	count      atomic.Int32
	recorder   *metrics.Recorder
	log        *logger.Logger
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	id   string
	// legal entities this client is subscribed to; empty means the whole book
	entities map[string]bool
	mu       sync.RWMutex
}

// Message represents a WebSocket message
type Message struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
	ID    string      `json:"id,omitempty"`
}

// SubscriptionMessage is sent by clients to filter the book by legal entity
type SubscriptionMessage struct {
	Type          string   `json:"type"`
	LegalEntities []string `json:"legal_entities"`
	ID            string   `json:"id,omitempty"`
}

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096
)

// NewHub creates a new WebSocket hub. With a positive interval the hub
// revalues the book from source and broadcasts it on every tick while
// clients are connected. recorder may be nil.
func NewHub(source BookSource, interval time.Duration, recorder *metrics.Recorder) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan *models.BookValuation, 16),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		source:     source,
		interval:   interval,
		recorder:   recorder,
		log:        logger.GetLogger("websocket.hub"),
	}
}

// Run starts the WebSocket hub
func (h *Hub) Run(ctx context.Context) {
	var tick <-chan time.Time
	if h.source != nil && h.interval > 0 {
		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	h.log.Info("Starting WebSocket hub")

	for {
		select {
		case <-ctx.Done():
			h.log.Info("WebSocket hub shutting down")
			for client := range h.clients {
				h.drop(client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.updateCount()
			h.log.Infof("Client %s registered", client.id)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				h.log.Infof("Client %s unregistered", client.id)
			}

		case book := <-h.broadcast:
			h.broadcastToClients(book)

		case <-tick:
			if len(h.clients) == 0 {
				continue
			}
			book, err := h.source.RevalueBook(ctx)
			if err != nil {
				h.log.Warnf("Book revaluation for broadcast failed: %v", err)
				continue
			}
			h.broadcastToClients(book)
		}
	}
}

// Publish queues a book valuation for broadcast. It never blocks; when the
// queue is full the valuation is dropped.
func (h *Hub) Publish(book *models.BookValuation) {
	select {
	case h.broadcast <- book:
	default:
		h.log.Warn("Broadcast queue full, dropping book valuation")
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// HandleWebSocket handles WebSocket upgrade and client management
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Errorf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, 64),
		done:     make(chan struct{}),
		id:       generateClientID(),
		entities: make(map[string]bool),
	}

	client.hub.register <- client

	// Start client goroutines
	go client.writePump()
	go client.readPump()
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.done)
	h.updateCount()
}

func (h *Hub) updateCount() {
	h.count.Store(int32(len(h.clients)))
	if h.recorder != nil {
		h.recorder.SetWebsocketClients(len(h.clients))
	}
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, messageData, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Errorf("WebSocket error: %v", err)
			}
			break
		}

		c.handleMessage(messageData)
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
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

// handleMessage handles incoming messages from the client
func (c *Client) handleMessage(messageData []byte) {
	var msg SubscriptionMessage
	if err := json.Unmarshal(messageData, &msg); err != nil {
		c.sendError("Invalid message format")
		return
	}

	switch msg.Type {
	case "subscribe":
		c.mu.Lock()
		for _, entity := range msg.LegalEntities {
			c.entities[entity] = true
		}
		c.mu.Unlock()
		c.sendMessage(Message{Type: "subscription_confirmed", Data: msg.LegalEntities, ID: msg.ID})
	case "unsubscribe":
		c.mu.Lock()
		for _, entity := range msg.LegalEntities {
			delete(c.entities, entity)
		}
		c.mu.Unlock()
		c.sendMessage(Message{Type: "unsubscription_confirmed", Data: msg.LegalEntities, ID: msg.ID})
	case "ping":
		c.sendMessage(Message{Type: "pong", ID: msg.ID})
	default:
		c.sendError("Unknown message type")
	}
}

// sendMessage queues a message for the client; it is dropped when the
// client is gone or its queue is full
func (c *Client) sendMessage(msg Message) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		c.hub.log.Errorf("Failed to marshal message: %v", err)
		return false
	}

	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// sendError sends an error message to the client
func (c *Client) sendError(errorMsg string) {
	c.sendMessage(Message{
		Type:  "error",
		Error: errorMsg,
	})
}

// broadcastToClients sends every client its view of the book. Clients whose
// queue is full are disconnected.
func (h *Hub) broadcastToClients(book *models.BookValuation) {
	for client := range h.clients {
		view := client.filter(book)
		if !client.sendMessage(Message{Type: "book_valuation", Data: view}) {
			h.log.Warnf("Client %s too slow, disconnecting", client.id)
			h.drop(client)
		}
	}
}

// filter restricts the book to the client's legal entities and recomputes
// the totals
func (c *Client) filter(book *models.BookValuation) *models.BookValuation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.entities) == 0 {
		return book
	}

	view := &models.BookValuation{
		ValuationDate: book.ValuationDate,
		Formula:       book.Formula,
		TotalPV:       make(map[string]decimal.Decimal),
		TotalCS01:     make(map[string]decimal.Decimal),
		ComputedAt:    book.ComputedAt,
	}
	for _, trade := range book.Trades {
		if !c.entities[trade.LegalEntity] {
			continue
		}
		view.Trades = append(view.Trades, trade)
		if trade.Error != "" {
			view.Failed++
			continue
		}
		ccy := trade.PresentValue.Currency
		view.TotalPV[ccy] = view.TotalPV[ccy].Add(trade.PresentValue.Amount)
		view.TotalCS01[ccy] = view.TotalCS01[ccy].Add(trade.ParallelCS01.Amount)
	}
	return view
}

func generateClientID() string {
	return fmt.Sprintf("client_%d", time.Now().UnixNano())
}
