package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/cds-pricing-engine/pkg/models"
)

type staticBook struct {
	book *models.BookValuation
}

func (s staticBook) RevalueBook(context.Context) (*models.BookValuation, error) {
	return s.book, nil
}

func sampleBook() *models.BookValuation {
	return &models.BookValuation{
		Formula: "ORIGINAL_ISDA",
		Trades: []models.TradeRisk{
			{TradeID: "CDS-1", LegalEntity: "ABC", PresentValue: models.NewCurrencyAmount("USD", 100), ParallelCS01: models.NewCurrencyAmount("USD", 5)},
			{TradeID: "CDS-2", LegalEntity: "XYZ", PresentValue: models.NewCurrencyAmount("USD", 40), ParallelCS01: models.NewCurrencyAmount("USD", 2)},
		},
		TotalPV:   map[string]decimal.Decimal{"USD": decimal.NewFromInt(140)},
		TotalCS01: map[string]decimal.Decimal{"USD": decimal.NewFromInt(7)},
	}
}

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
	ID   string          `json:"id"`
}

func dial(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, msg SubscriptionMessage) envelope {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
	return read(t, conn)
}

func read(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var env envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func TestHubBroadcastsFilteredBook(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(nil, 0, nil)
	go hub.Run(ctx)

	conn := dial(t, hub)
	pong := roundTrip(t, conn, SubscriptionMessage{Type: "ping", ID: "1"})
	assert.Equal(t, "pong", pong.Type)
	assert.Equal(t, "1", pong.ID)
	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	ack := roundTrip(t, conn, SubscriptionMessage{Type: "subscribe", LegalEntities: []string{"ABC"}})
	assert.Equal(t, "subscription_confirmed", ack.Type)

	hub.Publish(sampleBook())
	msg := read(t, conn)
	require.Equal(t, "book_valuation", msg.Type)

	var book models.BookValuation
	require.NoError(t, json.Unmarshal(msg.Data, &book))
	require.Len(t, book.Trades, 1)
	assert.Equal(t, "CDS-1", book.Trades[0].TradeID)
	assert.True(t, decimal.NewFromInt(100).Equal(book.TotalPV["USD"]))
	assert.True(t, decimal.NewFromInt(5).Equal(book.TotalCS01["USD"]))
}

func TestHubPeriodicRevaluation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(staticBook{book: sampleBook()}, 20*time.Millisecond, nil)
	go hub.Run(ctx)

	conn := dial(t, hub)
	msg := read(t, conn)
	require.Equal(t, "book_valuation", msg.Type)

	var book models.BookValuation
	require.NoError(t, json.Unmarshal(msg.Data, &book))
	assert.Len(t, book.Trades, 2)
}

func TestHubRejectsUnknownMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(nil, 0, nil)
	go hub.Run(ctx)

	conn := dial(t, hub)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	assert.Equal(t, "error", read(t, conn).Type)

	assert.Equal(t, "error", roundTrip(t, conn, SubscriptionMessage{Type: "trade"}).Type)
}
