package stream

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"arbscan/internal/arb"
	"arbscan/internal/book"
	"arbscan/internal/config"
	"arbscan/pkg/types"
)

// EventType labels an aggregator emission.
type EventType string

const (
	EventOpportunity       EventType = "opportunity"
	EventOpportunityClosed EventType = "opportunity_closed"
	EventOrderbookUpdate   EventType = "orderbook_update"
)

// Event is one real-time emission. Opportunity and Liquidity are set for
// opportunity events; Spread is the current gross spread for every type.
type Event struct {
	Type        EventType
	PairID      string
	Pair        types.MarketPair
	Opportunity *types.ArbitrageOpportunity
	Liquidity   *types.LiquidityAnalysis
	Spread      float64
	At          time.Time
}

// PolyFeed is the Polymarket stream surface the aggregator consumes.
type PolyFeed interface {
	Notifications() <-chan string
	Ladders(tokenID string) (bids, asks []types.BookLevel, ok bool)
}

// KalshiFeed is the Kalshi stream surface the aggregator consumes.
type KalshiFeed interface {
	Notifications() <-chan string
	Book(ticker string) (types.UnifiedOrderBook, bool)
}

// pairState carries what the last evaluation concluded, so the aggregator
// emits transitions instead of every tick.
type pairState struct {
	active       bool
	profitPct    float64
	maxContracts float64
	lastSpread   float64
	hasSpread    bool
}

// Aggregator fans both venue feeds into per-pair reevaluations. Bursts of
// updates for the same pair are coalesced by a debounce window; each firing
// rebuilds both books from feed state and reprices the pair.
type Aggregator struct {
	cfg    config.StreamConfig
	reg    *Registry
	poly   PolyFeed
	kalshi KalshiFeed
	calc   *arb.Calculator
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]bool // pair IDs with a debounce timer armed
	states  map[string]*pairState

	eventCh chan Event
	now     func() time.Time
}

// NewAggregator wires the aggregator. Events are delivered on a bounded
// channel; a slow consumer loses events, never book state.
func NewAggregator(
	cfg config.StreamConfig,
	reg *Registry,
	poly PolyFeed,
	kalshi KalshiFeed,
	calc *arb.Calculator,
	logger *slog.Logger,
) *Aggregator {
	return &Aggregator{
		cfg:     cfg,
		reg:     reg,
		poly:    poly,
		kalshi:  kalshi,
		calc:    calc,
		logger:  logger.With("component", "aggregator"),
		pending: make(map[string]bool),
		states:  make(map[string]*pairState),
		eventCh: make(chan Event, cfg.NotifyBuffer),
		now:     time.Now,
	}
}

// Events returns the emission channel.
func (a *Aggregator) Events() <-chan Event { return a.eventCh }

// Run consumes both notification channels until ctx is cancelled.
func (a *Aggregator) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case tokenID := <-a.poly.Notifications():
			for _, id := range a.reg.PairsForToken(tokenID) {
				a.schedule(ctx, id)
			}
		case ticker := <-a.kalshi.Notifications():
			for _, id := range a.reg.PairsForTicker(ticker) {
				a.schedule(ctx, id)
			}
		}
	}
}

// schedule arms one debounce timer per pair; further notifications within
// the window coalesce into the same evaluation.
func (a *Aggregator) schedule(ctx context.Context, pairID string) {
	a.mu.Lock()
	if a.pending[pairID] {
		a.mu.Unlock()
		return
	}
	a.pending[pairID] = true
	a.mu.Unlock()

	time.AfterFunc(a.cfg.Debounce, func() {
		a.mu.Lock()
		delete(a.pending, pairID)
		a.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		a.evaluate(pairID)
	})
}

// evaluate rebuilds both books from feed state and reprices one pair.
// Missing or desynced books skip the evaluation; the next notification
// retries.
func (a *Aggregator) evaluate(pairID string) {
	mp, ok := a.reg.Get(pairID)
	if !ok {
		return
	}

	polyBook, ok := a.polyBook(mp)
	if !ok {
		a.logger.Debug("polymarket book unavailable", "pair", pairID)
		return
	}
	kalshiBook, ok := a.kalshi.Book(mp.KalshiTicker)
	if !ok {
		a.logger.Debug("kalshi book unavailable", "pair", pairID)
		return
	}
	if polyBook.Empty() || kalshiBook.Empty() {
		return
	}

	// Reprice from the live top of book.
	mp.PolyYes = polyBook.BestYesAsk()
	mp.PolyNo = polyBook.BestNoAsk()
	mp.KalshiYes = kalshiBook.BestYesAsk()
	mp.KalshiNo = kalshiBook.BestNoAsk()
	mp.Spread = math.Abs(mp.PolyYes - mp.KalshiYes)

	opp := a.calc.Calculate(mp)
	var liq types.LiquidityAnalysis
	if opp != nil {
		liq = a.calc.AnalyzeLiquidity(*opp, polyBook, kalshiBook)
	}
	now := a.now()

	a.mu.Lock()
	st, ok := a.states[pairID]
	if !ok {
		st = &pairState{}
		a.states[pairID] = st
	}
	spreadMoved := !st.hasSpread || math.Abs(mp.Spread-st.lastSpread) > a.cfg.SpreadEpsilon
	wasActive, prevProfit, prevContracts := st.active, st.profitPct, st.maxContracts
	st.lastSpread = mp.Spread
	st.hasSpread = true
	st.active = opp != nil
	st.profitPct = 0
	st.maxContracts = 0
	if opp != nil {
		st.profitPct = opp.ProfitPct
		st.maxContracts = liq.MaxContracts
	}
	a.mu.Unlock()

	switch {
	case opp != nil:
		// Re-emit only when profit or executable size actually moved.
		if wasActive &&
			math.Abs(opp.ProfitPct-prevProfit) <= a.cfg.SpreadEpsilon*100 &&
			liq.MaxContracts == prevContracts {
			break
		}
		a.emit(Event{
			Type:        EventOpportunity,
			PairID:      pairID,
			Pair:        mp,
			Opportunity: opp,
			Liquidity:   &liq,
			Spread:      mp.Spread,
			At:          now,
		})
	case wasActive:
		a.emit(Event{
			Type:   EventOpportunityClosed,
			PairID: pairID,
			Pair:   mp,
			Spread: mp.Spread,
			At:     now,
		})
	}

	if spreadMoved {
		a.emit(Event{
			Type:   EventOrderbookUpdate,
			PairID: pairID,
			Pair:   mp,
			Spread: mp.Spread,
			At:     now,
		})
	}
}

// polyBook combines the YES and NO token ladders into one unified book.
func (a *Aggregator) polyBook(mp types.MarketPair) (types.UnifiedOrderBook, bool) {
	yesBids, yesAsks, ok := a.poly.Ladders(mp.PolyYesTokenID)
	if !ok {
		return types.UnifiedOrderBook{}, false
	}
	noBids, noAsks, ok := a.poly.Ladders(mp.PolyNoTokenID)
	if !ok {
		return types.UnifiedOrderBook{}, false
	}
	return book.PolyBookFromSides(mp.PolyQuestion, yesBids, yesAsks, noBids, noAsks, a.now()), true
}

func (a *Aggregator) emit(ev Event) {
	select {
	case a.eventCh <- ev:
	default:
		a.logger.Warn("event channel full, dropping event", "type", ev.Type, "pair", ev.PairID)
	}
}
