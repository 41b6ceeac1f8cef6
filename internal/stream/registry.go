// Package stream reevaluates tracked market pairs in real time from both
// venues' WebSocket feeds, debouncing bursts and emitting opportunity
// lifecycle events.
package stream

import (
	"sync"

	"arbscan/pkg/types"
)

// PairID is the stable identity of a tracked pair across scans.
func PairID(mp types.MarketPair) string {
	return mp.Pair.PolymarketSlug + "/" + mp.KalshiTicker
}

// Registry indexes tracked pairs by every identifier a feed notification
// can carry: Polymarket token IDs and Kalshi tickers.
type Registry struct {
	mu      sync.RWMutex
	pairs   map[string]types.MarketPair // pair ID → pair
	byToken map[string][]string         // poly token ID → pair IDs
	byTick  map[string][]string         // kalshi ticker → pair IDs
}

func NewRegistry() *Registry {
	return &Registry{
		pairs:   make(map[string]types.MarketPair),
		byToken: make(map[string][]string),
		byTick:  make(map[string][]string),
	}
}

// Get returns a tracked pair by ID.
func (r *Registry) Get(id string) (types.MarketPair, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	mp, ok := r.pairs[id]
	return mp, ok
}

// PairsForToken returns the pair IDs watching a Polymarket token.
func (r *Registry) PairsForToken(tokenID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.byToken[tokenID]...)
}

// PairsForTicker returns the pair IDs watching a Kalshi ticker.
func (r *Registry) PairsForTicker(ticker string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.byTick[ticker]...)
}

// Sync replaces the tracked set with the given pairs and reports which
// Polymarket tokens and Kalshi tickers were added and removed, so the
// caller can adjust feed subscriptions.
func (r *Registry) Sync(pairs []types.MarketPair) (addTokens, dropTokens, addTickers, dropTickers []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	oldTokens := make(map[string]bool, len(r.byToken))
	for t := range r.byToken {
		oldTokens[t] = true
	}
	oldTickers := make(map[string]bool, len(r.byTick))
	for t := range r.byTick {
		oldTickers[t] = true
	}

	r.pairs = make(map[string]types.MarketPair, len(pairs))
	r.byToken = make(map[string][]string)
	r.byTick = make(map[string][]string)

	for _, mp := range pairs {
		if mp.PolyYesTokenID == "" || mp.KalshiTicker == "" {
			continue
		}
		id := PairID(mp)
		r.pairs[id] = mp
		r.byToken[mp.PolyYesTokenID] = append(r.byToken[mp.PolyYesTokenID], id)
		if mp.PolyNoTokenID != "" {
			r.byToken[mp.PolyNoTokenID] = append(r.byToken[mp.PolyNoTokenID], id)
		}
		r.byTick[mp.KalshiTicker] = append(r.byTick[mp.KalshiTicker], id)
	}

	for t := range r.byToken {
		if oldTokens[t] {
			delete(oldTokens, t)
		} else {
			addTokens = append(addTokens, t)
		}
	}
	for t := range oldTokens {
		dropTokens = append(dropTokens, t)
	}
	for t := range r.byTick {
		if oldTickers[t] {
			delete(oldTickers, t)
		} else {
			addTickers = append(addTickers, t)
		}
	}
	for t := range oldTickers {
		dropTickers = append(dropTickers, t)
	}
	return addTokens, dropTokens, addTickers, dropTickers
}
