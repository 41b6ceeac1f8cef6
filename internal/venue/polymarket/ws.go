// ws.go implements the public Polymarket market WebSocket feed.
//
// The feed subscribes by asset ID (token ID) and receives "book" snapshots
// and "price_change" deltas. It keeps an authoritative ladder per subscribed
// token and pushes the token ID of every mutation to a bounded notification
// channel for the stream aggregator.
//
// The connection auto-reconnects with exponential backoff (1s → 30s max,
// ±20% jitter) and re-subscribes all tracked tokens on reconnection. Books
// are dropped on reconnect and rebuilt from the next snapshot. A read
// deadline (90s) ensures silent server failures are detected.
package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"arbscan/pkg/types"
)

const (
	pingInterval     = 50 * time.Second // how often we send PING to keep alive
	readTimeout      = 90 * time.Second // ~2 missed pings triggers reconnect
	maxReconnectWait = 30 * time.Second // cap on exponential backoff
	writeTimeout     = 10 * time.Second // deadline for outgoing messages
)

// tokenLadders is the live book for one token, keyed by price string so a
// delta can address its exact level.
type tokenLadders struct {
	bids map[string]float64
	asks map[string]float64
}

// Feed manages the market-channel WebSocket connection and the authoritative
// per-token ladders built from its events.
type Feed struct {
	url    string
	conn   *websocket.Conn
	connMu sync.Mutex // protects conn reads/writes

	// Track subscriptions for automatic re-subscribe on reconnect
	subscribedMu sync.RWMutex
	subscribed   map[string]bool

	booksMu sync.RWMutex
	books   map[string]*tokenLadders // token ID → ladders

	notifyCh chan string // token IDs with fresh data

	logger *slog.Logger
}

// NewFeed creates a market feed. notifyBuffer bounds the update channel;
// when the aggregator lags, notifications are dropped (the authoritative
// book is still current, only the wakeup is lost).
func NewFeed(wsURL string, notifyBuffer int, logger *slog.Logger) *Feed {
	return &Feed{
		url:        wsURL,
		subscribed: make(map[string]bool),
		books:      make(map[string]*tokenLadders),
		notifyCh:   make(chan string, notifyBuffer),
		logger:     logger.With("component", "ws_polymarket"),
	}
}

// Notifications returns the channel of token IDs whose ladders changed.
func (f *Feed) Notifications() <-chan string { return f.notifyCh }

// Run connects and maintains the WebSocket connection with auto-reconnect.
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

		// Exponential backoff: 1s, 2s, 4s, 8s, ..., 30s max
		backoff *= 2
		if backoff > maxReconnectWait {
			backoff = maxReconnectWait
		}
	}
}

// jitter spreads reconnect attempts by ±20%.
func jitter(d time.Duration) time.Duration {
	f := 0.8 + 0.4*rand.Float64()
	return time.Duration(float64(d) * f)
}

// Subscribe adds token IDs to the live subscription.
func (f *Feed) Subscribe(ids []string) error {
	f.subscribedMu.Lock()
	for _, id := range ids {
		f.subscribed[id] = true
	}
	f.subscribedMu.Unlock()

	return f.writeJSON(types.PolyWSUpdateMsg{
		AssetIDs:  ids,
		Operation: "subscribe",
	})
}

// Unsubscribe removes token IDs and discards their ladders.
func (f *Feed) Unsubscribe(ids []string) error {
	f.subscribedMu.Lock()
	for _, id := range ids {
		delete(f.subscribed, id)
	}
	f.subscribedMu.Unlock()

	f.booksMu.Lock()
	for _, id := range ids {
		delete(f.books, id)
	}
	f.booksMu.Unlock()

	return f.writeJSON(types.PolyWSUpdateMsg{
		AssetIDs:  ids,
		Operation: "unsubscribe",
	})
}

// Ladders returns a sorted copy of one token's book, or ok=false when no
// snapshot has arrived since (re)connect.
func (f *Feed) Ladders(tokenID string) (bids, asks []types.BookLevel, ok bool) {
	f.booksMu.RLock()
	defer f.booksMu.RUnlock()
	tl, ok := f.books[tokenID]
	if !ok {
		return nil, nil, false
	}
	return levelsFromMap(tl.bids), levelsFromMap(tl.asks), true
}

func levelsFromMap(side map[string]float64) []types.BookLevel {
	out := make([]types.BookLevel, 0, len(side))
	for priceStr, size := range side {
		price, err := decimal.NewFromString(priceStr)
		if err != nil {
			continue
		}
		out = append(out, types.BookLevel{Price: price.InexactFloat64(), Size: size})
	}
	return out
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
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
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

	// Ladders from the previous connection are stale until a new snapshot.
	f.booksMu.Lock()
	f.books = make(map[string]*tokenLadders)
	f.booksMu.Unlock()

	if err := f.sendInitialSubscription(); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	f.logger.Info("websocket connected")

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go f.pingLoop(pingCtx)

	// Read loop with deadline so we reconnect if server goes silent
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		f.dispatchMessage(msg)
	}
}

func (f *Feed) sendInitialSubscription() error {
	f.subscribedMu.RLock()
	ids := make([]string, 0, len(f.subscribed))
	for id := range f.subscribed {
		ids = append(ids, id)
	}
	f.subscribedMu.RUnlock()

	return f.writeJSON(types.PolyWSSubscribeMsg{
		Type:     "market",
		AssetIDs: ids,
	})
}

func (f *Feed) dispatchMessage(data []byte) {
	// Peek at event_type to route
	var envelope struct {
		EventType string `json:"event_type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		f.logger.Debug("ignoring non-json ws message", "data", string(data))
		return
	}

	switch envelope.EventType {
	case "book":
		var evt types.PolyWSBookEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			f.logger.Error("unmarshal book event", "error", err)
			return
		}
		f.applySnapshot(evt)
		f.notify(evt.AssetID)

	case "price_change":
		var evt types.PolyWSPriceChangeEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			f.logger.Error("unmarshal price_change event", "error", err)
			return
		}
		for _, change := range evt.PriceChanges {
			if f.applyPriceChange(change) {
				f.notify(change.AssetID)
			}
		}

	case "last_trade_price", "tick_size_change", "best_bid_ask":
		f.logger.Debug("ignoring event", "type", envelope.EventType)

	default:
		f.logger.Debug("unknown ws event type", "type", envelope.EventType)
	}
}

// applySnapshot replaces a token's ladders with the full book.
func (f *Feed) applySnapshot(evt types.PolyWSBookEvent) {
	tl := &tokenLadders{
		bids: make(map[string]float64, len(evt.Buys)),
		asks: make(map[string]float64, len(evt.Sells)),
	}
	for _, lvl := range evt.Buys {
		if size, err := decimal.NewFromString(lvl.Size); err == nil {
			tl.bids[lvl.Price] = size.InexactFloat64()
		}
	}
	for _, lvl := range evt.Sells {
		if size, err := decimal.NewFromString(lvl.Size); err == nil {
			tl.asks[lvl.Price] = size.InexactFloat64()
		}
	}

	f.booksMu.Lock()
	f.books[evt.AssetID] = tl
	f.booksMu.Unlock()
}

// applyPriceChange mutates one level; size 0 removes it. Changes for tokens
// without a snapshot yet are ignored.
func (f *Feed) applyPriceChange(change types.PolyWSPriceChange) bool {
	size, err := decimal.NewFromString(change.Size)
	if err != nil {
		f.logger.Debug("bad price_change size", "size", change.Size)
		return false
	}

	f.booksMu.Lock()
	defer f.booksMu.Unlock()
	tl, ok := f.books[change.AssetID]
	if !ok {
		return false
	}

	side := tl.bids
	if change.Side == "SELL" {
		side = tl.asks
	}
	if size.IsZero() {
		delete(side, change.Price)
	} else {
		side[change.Price] = size.InexactFloat64()
	}
	return true
}

func (f *Feed) notify(tokenID string) {
	select {
	case f.notifyCh <- tokenID:
	default:
		f.logger.Warn("notification channel full, dropping update", "token", tokenID)
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
			if err := f.writeMessage(websocket.TextMessage, []byte("PING")); err != nil {
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
