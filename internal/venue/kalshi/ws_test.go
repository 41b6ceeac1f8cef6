package kalshi

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"arbscan/pkg/types"
)

func testWSFeed() *Feed {
	return NewFeed("wss://unused", nil, 16, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func wsFrame(t *testing.T, typ string, seq int64, msg any) []byte {
	t.Helper()
	payload, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	frame, err := json.Marshal(map[string]any{
		"type": typ,
		"sid":  1,
		"seq":  seq,
		"msg":  json.RawMessage(payload),
	})
	if err != nil {
		t.Fatal(err)
	}
	return frame
}

func TestSnapshotAndDeltas(t *testing.T) {
	t.Parallel()
	f := testWSFeed()

	f.handleMessage(wsFrame(t, "orderbook_snapshot", 10, types.KalshiWSSnapshot{
		MarketTicker: "KXT",
		Yes:          [][2]int64{{45, 100}, {44, 50}},
		No:           [][2]int64{{53, 200}},
	}))
	if got := f.State("KXT"); got != StateSynced {
		t.Fatalf("state = %q, want synced", got)
	}

	b, ok := f.Book("KXT")
	if !ok {
		t.Fatal("book unavailable after snapshot")
	}
	if b.BestYesBid() != 0.45 || b.BestYesAsk() != 0.47 {
		t.Errorf("best yes bid/ask = %v/%v", b.BestYesBid(), b.BestYesAsk())
	}

	// Contiguous delta adds quantity at a new level.
	f.handleMessage(wsFrame(t, "orderbook_delta", 11, types.KalshiWSDelta{
		MarketTicker: "KXT", Price: 46, Delta: 25, Side: "yes",
	}))
	b, _ = f.Book("KXT")
	if b.BestYesBid() != 0.46 {
		t.Errorf("best yes bid = %v after delta, want 0.46", b.BestYesBid())
	}

	// A negative delta draining a level removes it.
	f.handleMessage(wsFrame(t, "orderbook_delta", 12, types.KalshiWSDelta{
		MarketTicker: "KXT", Price: 46, Delta: -25, Side: "yes",
	}))
	b, _ = f.Book("KXT")
	if b.BestYesBid() != 0.45 {
		t.Errorf("best yes bid = %v after removal, want 0.45", b.BestYesBid())
	}
}

func TestSeqGapTriggersResync(t *testing.T) {
	t.Parallel()
	f := testWSFeed()

	f.handleMessage(wsFrame(t, "orderbook_snapshot", 10, types.KalshiWSSnapshot{
		MarketTicker: "KXT",
		Yes:          [][2]int64{{45, 100}},
	}))
	f.handleMessage(wsFrame(t, "orderbook_delta", 11, types.KalshiWSDelta{
		MarketTicker: "KXT", Price: 45, Delta: 10, Side: "yes",
	}))

	// seq 13 skips 12: the book is withheld until a fresh snapshot.
	f.handleMessage(wsFrame(t, "orderbook_delta", 13, types.KalshiWSDelta{
		MarketTicker: "KXT", Price: 45, Delta: 10, Side: "yes",
	}))
	if got := f.State("KXT"); got == StateSynced {
		t.Fatal("market still synced after seq gap")
	}
	if _, ok := f.Book("KXT"); ok {
		t.Error("desynced book still readable")
	}

	// The replacement snapshot restores synced at its own seq.
	f.handleMessage(wsFrame(t, "orderbook_snapshot", 20, types.KalshiWSSnapshot{
		MarketTicker: "KXT",
		Yes:          [][2]int64{{45, 110}},
	}))
	if got := f.State("KXT"); got != StateSynced {
		t.Fatalf("state = %q after fresh snapshot, want synced", got)
	}
	f.handleMessage(wsFrame(t, "orderbook_delta", 21, types.KalshiWSDelta{
		MarketTicker: "KXT", Price: 44, Delta: 5, Side: "yes",
	}))
	b, ok := f.Book("KXT")
	if !ok {
		t.Fatal("book unavailable after resync")
	}
	if len(b.YesBids) != 2 {
		t.Errorf("YesBids = %+v", b.YesBids)
	}
}

func TestSnapshotReplayIdempotent(t *testing.T) {
	t.Parallel()

	snapshot := types.KalshiWSSnapshot{
		MarketTicker: "KXT",
		Yes:          [][2]int64{{45, 100}, {44, 50}},
		No:           [][2]int64{{53, 200}},
	}
	deltas := []types.KalshiWSDelta{
		{MarketTicker: "KXT", Price: 46, Delta: 25, Side: "yes"},
		{MarketTicker: "KXT", Price: 53, Delta: -200, Side: "no"},
		{MarketTicker: "KXT", Price: 44, Delta: -20, Side: "yes"},
	}

	// Straight application.
	a := testWSFeed()
	a.handleMessage(wsFrame(t, "orderbook_snapshot", 10, snapshot))
	for i, d := range deltas {
		a.handleMessage(wsFrame(t, "orderbook_delta", 11+int64(i), d))
	}

	// Re-snapshot mid-stream at the same cumulative state, then the tail.
	b := testWSFeed()
	b.handleMessage(wsFrame(t, "orderbook_snapshot", 10, snapshot))
	b.handleMessage(wsFrame(t, "orderbook_delta", 11, deltas[0]))
	b.handleMessage(wsFrame(t, "orderbook_snapshot", 11, types.KalshiWSSnapshot{
		MarketTicker: "KXT",
		Yes:          [][2]int64{{45, 100}, {44, 50}, {46, 25}},
		No:           [][2]int64{{53, 200}},
	}))
	for i, d := range deltas[1:] {
		b.handleMessage(wsFrame(t, "orderbook_delta", 12+int64(i), d))
	}

	bookA, okA := a.Book("KXT")
	bookB, okB := b.Book("KXT")
	if !okA || !okB {
		t.Fatal("books unavailable")
	}
	if len(bookA.YesBids) != len(bookB.YesBids) || len(bookA.NoBids) != len(bookB.NoBids) {
		t.Fatalf("books diverge: %+v vs %+v", bookA, bookB)
	}
	for i := range bookA.YesBids {
		if bookA.YesBids[i] != bookB.YesBids[i] {
			t.Errorf("YesBids[%d]: %+v vs %+v", i, bookA.YesBids[i], bookB.YesBids[i])
		}
	}
}

func TestDeltaBeforeSnapshotIgnored(t *testing.T) {
	t.Parallel()
	f := testWSFeed()

	f.handleMessage(wsFrame(t, "orderbook_delta", 5, types.KalshiWSDelta{
		MarketTicker: "KXT", Price: 45, Delta: 10, Side: "yes",
	}))
	if got := f.State("KXT"); got != StateUnsubscribed {
		t.Errorf("state = %q, want unsubscribed", got)
	}
}
