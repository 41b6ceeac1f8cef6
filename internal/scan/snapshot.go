// snapshot.go holds the scan results behind a swap-by-reference cache.
// The orchestrator is the single writer; HTTP handlers and the dashboard
// read whole snapshots and never observe a partial scan.
package scan

import (
	"sync"
	"time"

	"arbscan/pkg/types"
)

// Entry is one priced pair, with liquidity sizing when the pair ranked high
// enough for book analysis.
type Entry struct {
	Opportunity types.ArbitrageOpportunity
	Liquidity   *types.LiquidityAnalysis
}

// Stats summarizes one scan tick.
type Stats struct {
	PairsResolved int
	PairsFetched  int
	PairsFailed   int
	MarketPairs   int
	Duration      time.Duration
}

// Snapshot is the published result of one scan, sorted by descending profit.
type Snapshot struct {
	Entries   []Entry
	ScannedAt time.Time
	Stats     Stats
}

// Holder is the single long-lived snapshot cache. Swapped atomically under
// a write lock; Get reports whether the snapshot is still within its TTL.
type Holder struct {
	mu   sync.RWMutex
	snap *Snapshot
	ttl  time.Duration
}

// NewHolder creates an empty cache with the given freshness window.
func NewHolder(ttl time.Duration) *Holder {
	return &Holder{ttl: ttl}
}

// Set replaces the cached snapshot.
func (h *Holder) Set(s *Snapshot) {
	h.mu.Lock()
	h.snap = s
	h.mu.Unlock()
}

// Get returns the current snapshot and whether it is fresh. The snapshot
// may be nil before the first successful scan.
func (h *Holder) Get() (*Snapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.snap == nil {
		return nil, false
	}
	return h.snap, time.Since(h.snap.ScannedAt) <= h.ttl
}
