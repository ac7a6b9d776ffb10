package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcqlabs/futrun/internal/market"
)

func message(t *testing.T, symbol string, ts int64, o, h, l, c, v float64) []byte {
	t.Helper()
	payload, err := json.Marshal(barMessage{Symbol: symbol, TS: ts, Open: o, High: h, Low: l, Close: c, Volume: v})
	require.NoError(t, err)
	return payload
}

func collectingClient(cfg Config) (*Client, *[]market.Bar) {
	var got []market.Bar
	c := NewClient(cfg, func(b market.Bar) { got = append(got, b) })
	return c, &got
}

func TestDeliver_ValidBar(t *testing.T) {
	c, got := collectingClient(Config{Symbol: "NQ"})

	c.deliver(message(t, "NQ", 1748871000, 18000, 18010, 17995, 18005, 1200))
	require.Len(t, *got, 1)

	b := (*got)[0]
	assert.Equal(t, time.Unix(1748871000, 0).UTC(), b.Timestamp)
	assert.Equal(t, 18005.0, b.Close)
}

func TestDeliver_DropsOtherSymbols(t *testing.T) {
	c, got := collectingClient(Config{Symbol: "NQ"})
	c.deliver(message(t, "ES", 1748871000, 6000, 6005, 5995, 6002, 500))
	assert.Empty(t, *got)
}

func TestDeliver_DropsMalformedBars(t *testing.T) {
	c, got := collectingClient(Config{Symbol: "NQ"})

	c.deliver([]byte("{broken json"))
	c.deliver(message(t, "NQ", 1748871000, 18000, 17000, 17995, 18005, 1200)) // high below close
	c.deliver(message(t, "NQ", 1748871060, 18000, 18010, 17995, 18005, -5))   // negative volume
	assert.Empty(t, *got)
}

func TestDeliver_DropsOutOfOrderBars(t *testing.T) {
	c, got := collectingClient(Config{Symbol: "NQ"})

	c.deliver(message(t, "NQ", 1748871060, 18000, 18010, 17995, 18005, 100))
	c.deliver(message(t, "NQ", 1748871060, 18005, 18012, 18001, 18010, 100)) // duplicate ts
	c.deliver(message(t, "NQ", 1748871000, 18005, 18012, 18001, 18010, 100)) // older ts
	c.deliver(message(t, "NQ", 1748871120, 18005, 18012, 18001, 18010, 100))

	require.Len(t, *got, 2)
	assert.True(t, (*got)[1].Timestamp.After((*got)[0].Timestamp))
}

// wsServer upgrades each connection and hands it to serve.
func wsServer(t *testing.T, serve func(*websocket.Conn)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		serve(conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestRun_ReceivesBarsUntilCancelled(t *testing.T) {
	srv := wsServer(t, func(conn *websocket.Conn) {
		for i := int64(0); i < 3; i++ {
			msg := barMessage{Symbol: "NQ", TS: 1748871000 + i*60, Open: 18000, High: 18010, Low: 17995, Close: 18005, Volume: 100}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	bars := make(chan market.Bar, 8)
	client := NewClient(Config{
		URL:              wsURL(srv),
		Symbol:           "NQ",
		ReconnectBackoff: 10 * time.Millisecond,
		ReconnectPerMin:  5,
	}, func(b market.Bar) { bars <- b })

	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	for i := 0; i < 3; i++ {
		select {
		case <-bars:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for bar")
		}
	}
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("client did not stop after cancel")
	}
}

func TestRun_StopsWhenReconnectBudgetExhausted(t *testing.T) {
	// The server drops every connection immediately.
	srv := wsServer(t, func(conn *websocket.Conn) {})

	client := NewClient(Config{
		URL:              wsURL(srv),
		Symbol:           "NQ",
		ReconnectBackoff: time.Millisecond,
		ReconnectPerMin:  3,
	}, func(market.Bar) {})

	err := client.Run(context.Background())
	assert.ErrorIs(t, err, ErrReconnectBudget)
}
