package stream

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"arbscan/internal/arb"
	"arbscan/internal/config"
	"arbscan/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakePolyFeed struct {
	mu      sync.Mutex
	ladders map[string][2][]types.BookLevel // token → [bids, asks]
	ch      chan string
}

func newFakePolyFeed() *fakePolyFeed {
	return &fakePolyFeed{ladders: make(map[string][2][]types.BookLevel), ch: make(chan string, 16)}
}

func (f *fakePolyFeed) Notifications() <-chan string { return f.ch }

func (f *fakePolyFeed) Ladders(tokenID string) ([]types.BookLevel, []types.BookLevel, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.ladders[tokenID]
	if !ok {
		return nil, nil, false
	}
	return l[0], l[1], true
}

func (f *fakePolyFeed) set(tokenID string, bids, asks []types.BookLevel) {
	f.mu.Lock()
	f.ladders[tokenID] = [2][]types.BookLevel{bids, asks}
	f.mu.Unlock()
}

type fakeKalshiFeed struct {
	mu    sync.Mutex
	books map[string]types.UnifiedOrderBook
	ch    chan string
}

func newFakeKalshiFeed() *fakeKalshiFeed {
	return &fakeKalshiFeed{books: make(map[string]types.UnifiedOrderBook), ch: make(chan string, 16)}
}

func (f *fakeKalshiFeed) Notifications() <-chan string { return f.ch }

func (f *fakeKalshiFeed) Book(ticker string) (types.UnifiedOrderBook, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.books[ticker]
	return b, ok
}

func (f *fakeKalshiFeed) set(ticker string, b types.UnifiedOrderBook) {
	f.mu.Lock()
	f.books[ticker] = b
	f.mu.Unlock()
}

func testPair() types.MarketPair {
	return types.MarketPair{
		Pair: types.MatchedPair{
			Name:           "Bitcoin above 100k in June",
			PolymarketSlug: "bitcoin-above-100k-in-june",
			KalshiTicker:   "KXBTCMAX-26JUN",
		},
		PolyQuestion:   "Bitcoin above 100k in June",
		PolyYesTokenID: "py",
		PolyNoTokenID:  "pn",
		KalshiTicker:   "KXBTCMAX-26JUN-T100",
	}
}

func testAggregator(debounce time.Duration) (*Aggregator, *fakePolyFeed, *fakeKalshiFeed) {
	poly := newFakePolyFeed()
	kalshi := newFakeKalshiFeed()
	reg := NewRegistry()
	reg.Sync([]types.MarketPair{testPair()})

	agg := NewAggregator(config.StreamConfig{
		Debounce:      debounce,
		NotifyBuffer:  16,
		SpreadEpsilon: 0.001,
	}, reg, poly, kalshi, arb.NewCalculator(arb.DefaultConfig()), testLogger())
	return agg, poly, kalshi
}

func seedProfitable(poly *fakePolyFeed, kalshi *fakeKalshiFeed) {
	poly.set("py",
		[]types.BookLevel{{Price: 0.44, Size: 100}},
		[]types.BookLevel{{Price: 0.45, Size: 100}})
	poly.set("pn",
		[]types.BookLevel{{Price: 0.55, Size: 100}},
		[]types.BookLevel{{Price: 0.56, Size: 100}})
	// Complement-consistent book: YES ask 0.60 is exactly 1 − NO ask 0.40.
	kalshi.set("KXBTCMAX-26JUN-T100", types.UnifiedOrderBook{
		Venue:    types.VenueKalshi,
		MarketID: "KXBTCMAX-26JUN-T100",
		YesAsks:  []types.BookLevel{{Price: 0.60, Size: 50}},
		NoAsks:   []types.BookLevel{{Price: 0.40, Size: 50}},
		YesBids:  []types.BookLevel{{Price: 0.59, Size: 50}},
		NoBids:   []types.BookLevel{{Price: 0.39, Size: 50}},
	})
}

func drainEvent(t *testing.T, agg *Aggregator) Event {
	t.Helper()
	select {
	case ev := <-agg.Events():
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event")
		return Event{}
	}
}

func TestEvaluateEmitsOpportunity(t *testing.T) {
	t.Parallel()
	agg, poly, kalshi := testAggregator(time.Millisecond)
	seedProfitable(poly, kalshi)

	id := PairID(testPair())
	agg.evaluate(id)

	ev := drainEvent(t, agg)
	if ev.Type != EventOpportunity {
		t.Fatalf("event = %+v, want opportunity", ev)
	}
	if ev.Opportunity == nil || ev.Opportunity.Type != types.OppGuaranteed {
		t.Fatalf("opportunity = %+v", ev.Opportunity)
	}
	// Buy YES 0.45 on Polymarket, NO 0.40 on Kalshi: 15% spread.
	if ev.Opportunity.ProfitPct < 14.9 || ev.Opportunity.ProfitPct > 15.1 {
		t.Errorf("profit = %v", ev.Opportunity.ProfitPct)
	}
	if ev.Liquidity == nil || ev.Liquidity.MaxContracts != 50 {
		t.Errorf("liquidity = %+v", ev.Liquidity)
	}

	// The first evaluation also reports the book move.
	ev = drainEvent(t, agg)
	if ev.Type != EventOrderbookUpdate {
		t.Errorf("second event = %q, want orderbook_update", ev.Type)
	}

	// Unchanged books re-emit nothing.
	agg.evaluate(id)
	select {
	case ev := <-agg.Events():
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEvaluateReEmitsOnLiquidityChange(t *testing.T) {
	t.Parallel()
	agg, poly, kalshi := testAggregator(time.Millisecond)
	seedProfitable(poly, kalshi)

	id := PairID(testPair())
	agg.evaluate(id)
	drainEvent(t, agg) // opportunity
	drainEvent(t, agg) // orderbook_update

	// Same prices, deeper Kalshi NO ladder: profit and spread hold steady
	// but the executable size grows from 50 to 80 contracts.
	kalshi.set("KXBTCMAX-26JUN-T100", types.UnifiedOrderBook{
		Venue:    types.VenueKalshi,
		MarketID: "KXBTCMAX-26JUN-T100",
		YesAsks:  []types.BookLevel{{Price: 0.60, Size: 80}},
		NoAsks:   []types.BookLevel{{Price: 0.40, Size: 80}},
		YesBids:  []types.BookLevel{{Price: 0.59, Size: 80}},
		NoBids:   []types.BookLevel{{Price: 0.39, Size: 80}},
	})
	agg.evaluate(id)

	ev := drainEvent(t, agg)
	if ev.Type != EventOpportunity {
		t.Fatalf("event = %+v, want opportunity", ev)
	}
	if ev.Liquidity == nil || ev.Liquidity.MaxContracts != 80 {
		t.Errorf("liquidity = %+v, want 80 contracts", ev.Liquidity)
	}
}

func TestEvaluateEmitsClosedOnSpreadCollapse(t *testing.T) {
	t.Parallel()
	agg, poly, kalshi := testAggregator(time.Millisecond)
	seedProfitable(poly, kalshi)

	id := PairID(testPair())
	agg.evaluate(id)
	drainEvent(t, agg) // opportunity
	drainEvent(t, agg) // orderbook_update

	// Kalshi reprices to parity: no construction is profitable.
	kalshi.set("KXBTCMAX-26JUN-T100", types.UnifiedOrderBook{
		Venue:    types.VenueKalshi,
		MarketID: "KXBTCMAX-26JUN-T100",
		YesAsks:  []types.BookLevel{{Price: 0.46, Size: 50}},
		NoAsks:   []types.BookLevel{{Price: 0.55, Size: 50}},
	})
	agg.evaluate(id)

	ev := drainEvent(t, agg)
	if ev.Type != EventOpportunityClosed {
		t.Fatalf("event = %+v, want opportunity_closed", ev)
	}
}

func TestEvaluateSkipsMissingBooks(t *testing.T) {
	t.Parallel()
	agg, poly, _ := testAggregator(time.Millisecond)
	// Only the YES token has ladders; the NO side never snapshotted.
	poly.set("py",
		[]types.BookLevel{{Price: 0.44, Size: 100}},
		[]types.BookLevel{{Price: 0.45, Size: 100}})

	agg.evaluate(PairID(testPair()))
	select {
	case ev := <-agg.Events():
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRunDebouncesBursts(t *testing.T) {
	t.Parallel()
	agg, poly, kalshi := testAggregator(30 * time.Millisecond)
	seedProfitable(poly, kalshi)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go agg.Run(ctx)

	// A burst of updates across both venues coalesces into one evaluation.
	poly.ch <- "py"
	poly.ch <- "pn"
	kalshi.ch <- "KXBTCMAX-26JUN-T100"

	ev := drainEvent(t, agg)
	if ev.Type != EventOpportunity {
		t.Fatalf("event = %+v, want opportunity", ev)
	}
	drainEvent(t, agg) // orderbook_update

	select {
	case ev := <-agg.Events():
		t.Fatalf("burst produced extra event %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRegistrySync(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()

	addTok, dropTok, addTick, dropTick := reg.Sync([]types.MarketPair{testPair()})
	if len(addTok) != 2 || len(addTick) != 1 || len(dropTok) != 0 || len(dropTick) != 0 {
		t.Fatalf("first sync: +tok %v -tok %v +tick %v -tick %v", addTok, dropTok, addTick, dropTick)
	}

	id := PairID(testPair())
	if got := reg.PairsForToken("pn"); len(got) != 1 || got[0] != id {
		t.Errorf("PairsForToken = %v", got)
	}
	if got := reg.PairsForTicker("KXBTCMAX-26JUN-T100"); len(got) != 1 || got[0] != id {
		t.Errorf("PairsForTicker = %v", got)
	}

	// Empty sync drops everything.
	addTok, dropTok, addTick, dropTick = reg.Sync(nil)
	if len(addTok) != 0 || len(addTick) != 0 || len(dropTok) != 2 || len(dropTick) != 1 {
		t.Fatalf("second sync: +tok %v -tok %v +tick %v -tick %v", addTok, dropTok, addTick, dropTick)
	}
	if _, ok := reg.Get(id); ok {
		t.Error("pair survived empty sync")
	}
}
