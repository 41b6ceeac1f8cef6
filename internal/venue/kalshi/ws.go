// ws.go implements the authenticated Kalshi market-data WebSocket.
//
// The feed subscribes to the orderbook_delta channel by ticker. Each market
// runs a small state machine:
//
//	unsubscribed → subscribing → synced → desynced → subscribing → …
//
// A snapshot seeds the authoritative cent-level book and records its seq;
// each delta must carry seq = lastSeq+1 or the market is marked desynced and
// resubscribed. Books in any state but synced are withheld from readers so
// the calculator never prices against stale ladders.
//
// The connection auto-reconnects with exponential backoff (1s → 30s max,
// ±20% jitter); on reconnect every tracked market is resubscribed and stays
// desynced until its fresh snapshot arrives.
package kalshi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"arbscan/internal/book"
	"arbscan/pkg/types"
)

const (
	pingInterval     = 10 * time.Second
	readTimeout      = 30 * time.Second
	maxReconnectWait = 30 * time.Second
	writeTimeout     = 10 * time.Second
)

// MarketState is the per-subscription lifecycle state.
type MarketState string

const (
	StateUnsubscribed MarketState = "unsubscribed"
	StateSubscribing  MarketState = "subscribing"
	StateSynced       MarketState = "synced"
	StateDesynced     MarketState = "desynced"
	StateError        MarketState = "error"
)

// marketBook is the authoritative book for one ticker, valid only in synced.
type marketBook struct {
	state   MarketState
	lastSeq int64
	yes     map[int64]int64 // price_cents → quantity
	no      map[int64]int64
}

// Feed manages the Kalshi WebSocket connection and per-market books.
type Feed struct {
	url    string
	auth   *Auth
	conn   *websocket.Conn
	connMu sync.Mutex

	mu      sync.RWMutex
	markets map[string]*marketBook // ticker → book
	cmdID   int

	notifyCh chan string // tickers with fresh data

	logger *slog.Logger
}

// NewFeed creates the authenticated feed. notifyBuffer bounds the update
// channel; overflow drops the wakeup, never the book mutation.
func NewFeed(wsURL string, auth *Auth, notifyBuffer int, logger *slog.Logger) *Feed {
	return &Feed{
		url:      wsURL,
		auth:     auth,
		markets:  make(map[string]*marketBook),
		notifyCh: make(chan string, notifyBuffer),
		logger:   logger.With("component", "ws_kalshi"),
	}
}

// Notifications returns the channel of tickers whose books changed.
func (f *Feed) Notifications() <-chan string { return f.notifyCh }

// State returns the lifecycle state of one market.
func (f *Feed) State(ticker string) MarketState {
	f.mu.RLock()
	defer f.mu.RUnlock()
	mb, ok := f.markets[ticker]
	if !ok {
		return StateUnsubscribed
	}
	return mb.state
}

// Book returns the unified book for a synced market; ok=false while the
// market is desynced, subscribing, or unknown.
func (f *Feed) Book(ticker string) (types.UnifiedOrderBook, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	mb, ok := f.markets[ticker]
	if !ok || mb.state != StateSynced {
		return types.UnifiedOrderBook{}, false
	}
	return book.KalshiBookFromCents(ticker, mb.yes, mb.no, time.Now()), true
}

// Run connects and maintains the connection with auto-reconnect.
// Blocks until ctx is cancelled.
func (f *Feed) Run(ctx context.Context) error {
	backoff := time.Second

	for {
		err := f.connectAndRead(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		f.logger.Warn("websocket disconnected, reconnecting",
			"error", err,
			"backoff", backoff,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(jitter(backoff)):
		}

		backoff *= 2
		if backoff > maxReconnectWait {
			backoff = maxReconnectWait
		}
	}
}

// jitter spreads reconnect attempts by ±20%.
func jitter(d time.Duration) time.Duration {
	return time.Duration(float64(d) * (0.8 + 0.4*rand.Float64()))
}

// Subscribe adds tickers and requests their snapshots.
func (f *Feed) Subscribe(tickers []string) error {
	f.mu.Lock()
	for _, t := range tickers {
		f.markets[t] = &marketBook{state: StateSubscribing}
	}
	id := f.nextCmdID()
	f.mu.Unlock()

	return f.writeJSON(types.KalshiWSCommand{
		ID:  id,
		Cmd: "subscribe",
		Params: types.KalshiWSCommandParam{
			Channels:      []string{"orderbook_delta"},
			MarketTickers: tickers,
		},
	})
}

// Unsubscribe removes tickers and discards their books.
func (f *Feed) Unsubscribe(tickers []string) error {
	f.mu.Lock()
	for _, t := range tickers {
		delete(f.markets, t)
	}
	id := f.nextCmdID()
	f.mu.Unlock()

	return f.writeJSON(types.KalshiWSCommand{
		ID:  id,
		Cmd: "unsubscribe",
		Params: types.KalshiWSCommandParam{
			Channels:      []string{"orderbook_delta"},
			MarketTickers: tickers,
		},
	})
}

// nextCmdID must be called with f.mu held.
func (f *Feed) nextCmdID() int {
	f.cmdID++
	return f.cmdID
}

// Close gracefully closes the connection.
func (f *Feed) Close() error {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn != nil {
		return f.conn.Close()
	}
	return nil
}

func (f *Feed) connectAndRead(ctx context.Context) error {
	header := http.Header{}
	if f.auth != nil {
		u, err := url.Parse(f.url)
		if err != nil {
			return fmt.Errorf("parse ws url: %w", err)
		}
		signed, err := f.auth.Headers("GET", u.Path)
		if err != nil {
			return fmt.Errorf("sign ws handshake: %w", err)
		}
		for k, v := range signed {
			header.Set(k, v)
		}
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, header)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	f.connMu.Lock()
	f.conn = conn
	f.connMu.Unlock()

	defer func() {
		f.connMu.Lock()
		conn.Close()
		f.conn = nil
		f.connMu.Unlock()
	}()

	f.logger.Info("websocket connected")

	// Every tracked market is stale until its post-reconnect snapshot.
	f.mu.Lock()
	tickers := make([]string, 0, len(f.markets))
	for t, mb := range f.markets {
		mb.state = StateDesynced
		tickers = append(tickers, t)
	}
	f.mu.Unlock()
	if len(tickers) > 0 {
		if err := f.Subscribe(tickers); err != nil {
			return fmt.Errorf("resubscribe: %w", err)
		}
	}

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go f.pingLoop(pingCtx)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		f.handleMessage(msg)
	}
}

func (f *Feed) handleMessage(data []byte) {
	var env types.KalshiWSMessage
	if err := json.Unmarshal(data, &env); err != nil {
		f.logger.Debug("ignoring non-json ws message", "data", string(data))
		return
	}

	switch env.Type {
	case "orderbook_snapshot":
		var snap types.KalshiWSSnapshot
		if err := json.Unmarshal(env.Msg, &snap); err != nil {
			f.logger.Error("unmarshal snapshot", "error", err)
			return
		}
		f.applySnapshot(snap, env.Seq)
		f.notify(snap.MarketTicker)

	case "orderbook_delta":
		var delta types.KalshiWSDelta
		if err := json.Unmarshal(env.Msg, &delta); err != nil {
			f.logger.Error("unmarshal delta", "error", err)
			return
		}
		if f.applyDelta(delta, env.Seq) {
			f.notify(delta.MarketTicker)
		}

	case "subscribed":
		f.logger.Debug("subscription acknowledged", "sid", env.SID)

	case "error":
		f.logger.Error("ws error message", "msg", string(env.Msg))

	default:
		f.logger.Debug("unknown ws message type", "type", env.Type)
	}
}

// applySnapshot seeds a market's book and moves it to synced.
func (f *Feed) applySnapshot(snap types.KalshiWSSnapshot, seq int64) {
	mb := &marketBook{
		state:   StateSynced,
		lastSeq: seq,
		yes:     make(map[int64]int64, len(snap.Yes)),
		no:      make(map[int64]int64, len(snap.No)),
	}
	for _, lvl := range snap.Yes {
		mb.yes[lvl[0]] = lvl[1]
	}
	for _, lvl := range snap.No {
		mb.no[lvl[0]] = lvl[1]
	}

	f.mu.Lock()
	f.markets[snap.MarketTicker] = mb
	f.mu.Unlock()
}

// applyDelta mutates one level when the seq is contiguous. A gap marks the
// market desynced and triggers a resubscribe for a fresh snapshot.
func (f *Feed) applyDelta(delta types.KalshiWSDelta, seq int64) bool {
	f.mu.Lock()
	mb, ok := f.markets[delta.MarketTicker]
	if !ok || mb.state != StateSynced {
		f.mu.Unlock()
		return false
	}

	if seq != mb.lastSeq+1 {
		mb.state = StateDesynced
		lastSeq := mb.lastSeq
		f.mu.Unlock()
		f.logger.Warn("seq gap, resubscribing",
			"ticker", delta.MarketTicker,
			"expected", lastSeq+1,
			"got", seq,
		)
		if err := f.Subscribe([]string{delta.MarketTicker}); err != nil {
			f.logger.Error("resubscribe failed", "ticker", delta.MarketTicker, "error", err)
		}
		return false
	}
	mb.lastSeq = seq

	side := mb.yes
	if delta.Side == "no" {
		side = mb.no
	}
	qty := side[delta.Price] + delta.Delta
	if qty <= 0 {
		delete(side, delta.Price)
	} else {
		side[delta.Price] = qty
	}
	f.mu.Unlock()
	return true
}

func (f *Feed) notify(ticker string) {
	select {
	case f.notifyCh <- ticker:
	default:
		f.logger.Warn("notification channel full, dropping update", "ticker", ticker)
	}
}

func (f *Feed) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := f.writeMessage(websocket.PingMessage, nil); err != nil {
				f.logger.Warn("ping failed", "error", err)
				return
			}
		}
	}
}

func (f *Feed) writeJSON(v interface{}) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn == nil {
		return fmt.Errorf("websocket not connected")
	}
	f.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return f.conn.WriteJSON(v)
}

func (f *Feed) writeMessage(msgType int, data []byte) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn == nil {
		return fmt.Errorf("websocket not connected")
	}
	f.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return f.conn.WriteMessage(msgType, data)
}
