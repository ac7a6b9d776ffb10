// Package feed streams live bars over a websocket into the same bar type
// the backtest consumes.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jcqlabs/futrun/internal/market"
)

// Handler receives each validated bar in arrival order.
type Handler func(market.Bar)

// Config parameterizes the websocket client.
type Config struct {
	URL              string
	Symbol           string
	ReconnectBackoff time.Duration // wait between reconnect attempts
	ReconnectPerMin  int           // reconnect budget; exceeding it stops the client
}

// barMessage is the wire format: one JSON object per completed bar.
type barMessage struct {
	Symbol string  `json:"symbol"`
	TS     int64   `json:"ts"` // unix seconds, bar open time
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// ErrReconnectBudget is returned when the per-minute reconnect limit is
// exhausted, which usually means the endpoint is down rather than flaky.
var ErrReconnectBudget = errors.New("feed: reconnect budget exhausted")

// Client maintains a websocket subscription with limited reconnects. Bars
// failing validation or belonging to other symbols are dropped with a log
// line; they never reach the handler.
type Client struct {
	cfg     Config
	limiter *rate.Limiter
	handler Handler

	// dial is swappable for tests.
	dial func(ctx context.Context, url string) (*websocket.Conn, error)

	lastTS time.Time
}

// NewClient creates a feed client delivering bars to handler.
func NewClient(cfg Config, handler Handler) *Client {
	perMin := cfg.ReconnectPerMin
	if perMin <= 0 {
		perMin = 10
	}
	return &Client{
		cfg:     cfg,
		handler: handler,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), perMin),
		dial: func(ctx context.Context, url string) (*websocket.Conn, error) {
			conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
			return conn, err
		},
	}
}

// Run consumes the feed until the context ends or the reconnect budget runs
// out. Every disconnect costs one reconnect token.
func (c *Client) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !c.limiter.Allow() {
			return fmt.Errorf("%w: more than %d per minute", ErrReconnectBudget, c.cfg.ReconnectPerMin)
		}

		if err := c.consume(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn().Err(err).Str("url", c.cfg.URL).Msg("feed disconnected, reconnecting")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.cfg.ReconnectBackoff):
		}
	}
}

// consume runs one connection until it fails.
func (c *Client) consume(ctx context.Context) error {
	conn, err := c.dial(ctx, c.cfg.URL)
	if err != nil {
		return fmt.Errorf("feed: dial %s: %w", c.cfg.URL, err)
	}
	defer conn.Close()
	log.Info().Str("url", c.cfg.URL).Str("symbol", c.cfg.Symbol).Msg("feed connected")

	// Close the socket when the context ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("feed: read: %w", err)
		}
		c.deliver(payload)
	}
}

// deliver parses, validates and forwards one message.
func (c *Client) deliver(payload []byte) {
	var msg barMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		log.Warn().Err(err).Msg("feed: undecodable message dropped")
		return
	}
	if c.cfg.Symbol != "" && msg.Symbol != c.cfg.Symbol {
		return
	}

	bar := market.Bar{
		Timestamp: time.Unix(msg.TS, 0).UTC(),
		Open:      msg.Open,
		High:      msg.High,
		Low:       msg.Low,
		Close:     msg.Close,
		Volume:    msg.Volume,
	}
	if err := market.ValidateBar(bar); err != nil {
		log.Warn().Err(err).Time("ts", bar.Timestamp).Msg("feed: malformed bar dropped")
		return
	}
	if !c.lastTS.IsZero() && !bar.Timestamp.After(c.lastTS) {
		log.Warn().
			Time("ts", bar.Timestamp).
			Time("last", c.lastTS).
			Msg("feed: out-of-order bar dropped")
		return
	}

	c.lastTS = bar.Timestamp
	c.handler(bar)
}
