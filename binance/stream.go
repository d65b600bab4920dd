package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rustyeddy/coinsim/market"
)

// Stream dials per-symbol trade streams over websocket.
type Stream struct {
	baseURL string
	log     *zap.Logger
}

// NewStream creates a streaming client. An empty baseURL selects the
// production endpoint.
func NewStream(baseURL string, log *zap.Logger) *Stream {
	if baseURL == "" {
		baseURL = StreamURL
	}
	return &Stream{baseURL: baseURL, log: log}
}

// tradeEvent mirrors the <symbol>@trade stream payload. Error events
// arrive on the same socket with e="error" and a message in m; on trade
// events m is the buyer-is-maker flag, so it is decoded lazily.
type tradeEvent struct {
	EventType string          `json:"e"`
	EventTime int64           `json:"E"`
	Symbol    string          `json:"s"`
	Price     string          `json:"p"`
	M         json.RawMessage `json:"m"`
}

// Subscription is a live tick feed for one symbol.
//
// Close tears the feed down and is safe to call more than once; only the
// first call does anything. After Close the tick channel is closed and
// no further ticks are delivered.
type Subscription struct {
	conn  *websocket.Conn
	ticks chan market.Tick
	done  chan struct{}
	once  sync.Once
}

// Ticks returns the tick channel. It is closed on teardown.
func (s *Subscription) Ticks() <-chan market.Tick {
	return s.ticks
}

// Close terminates the subscription. Idempotent.
func (s *Subscription) Close() error {
	s.once.Do(func() {
		close(s.done)
		// Closing the connection unblocks the reader goroutine.
		_ = s.conn.Close()
	})
	return nil
}

// Subscribe connects to the trade stream for symbol and starts a reader
// goroutine that delivers ticks until Close is called or the upstream
// disconnects.
func (s *Stream) Subscribe(ctx context.Context, symbol string) (*Subscription, error) {
	wsURL := fmt.Sprintf("%s/ws/%s@trade", s.baseURL, strings.ToLower(symbol))

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	sub := &Subscription{
		conn:  conn,
		ticks: make(chan market.Tick, 64),
		done:  make(chan struct{}),
	}

	go s.listen(symbol, sub)
	return sub, nil
}

// listen reads messages off the socket and forwards them as ticks.
// Malformed payloads and error-tagged events become error ticks so the
// consumer can log and keep listening.
func (s *Stream) listen(symbol string, sub *Subscription) {
	defer close(sub.ticks)

	for {
		_, message, err := sub.conn.ReadMessage()
		if err != nil {
			select {
			case <-sub.done:
				// Deliberate teardown, not a failure.
			default:
				s.log.Warn("stream read failed",
					zap.String("symbol", symbol),
					zap.Error(err))
			}
			return
		}

		tick := decodeTick(symbol, message)
		select {
		case sub.ticks <- tick:
		case <-sub.done:
			return
		}
	}
}

// decodeTick converts one raw stream message into a tick.
func decodeTick(symbol string, message []byte) market.Tick {
	var ev tradeEvent
	if err := json.Unmarshal(message, &ev); err != nil {
		return market.Tick{Symbol: symbol, Err: fmt.Sprintf("unmarshal event: %v", err)}
	}

	if ev.EventType == "error" {
		var msg string
		_ = json.Unmarshal(ev.M, &msg)
		if msg == "" {
			msg = "upstream error event"
		}
		return market.Tick{Symbol: symbol, Err: msg}
	}

	price, err := decimal.NewFromString(ev.Price)
	if err != nil {
		return market.Tick{Symbol: symbol, Err: fmt.Sprintf("parse price %q: %v", ev.Price, err)}
	}

	return market.Tick{
		Symbol: symbol,
		Time:   time.UnixMilli(ev.EventTime).UTC(),
		Price:  price,
	}
}
