package mapping

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"arbscan/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testResolver(t *testing.T) *Resolver {
	t.Helper()
	btcMax, err := NewDynamicTemplate("Bitcoin monthly high", "crypto", FreqMonthly,
		"what-price-will-bitcoin-hit-in-{month}", "KXBTCMAX", "KXBTCMAX-{yy}{MON}")
	if err != nil {
		t.Fatal(err)
	}

	catalog := NewCatalog(
		[]StaticMapping{{
			Name:       "Fed decision March",
			Category:   "economics",
			Polymarket: "fed-decision-in-march",
			Kalshi:     "KXFEDDECISION-26MAR",
		}},
		[]DynamicTemplate{btcMax},
	)
	teams := NewTeams(nil, map[string]string{
		"PHX": "Phoenix Suns", "MIA": "Miami Heat",
	})

	r := NewResolver(catalog, teams, testLogger())
	r.SetClock(func() time.Time {
		return time.Date(2025, time.December, 10, 0, 0, 0, 0, time.UTC)
	})
	return r
}

func TestFindMatchStatic(t *testing.T) {
	t.Parallel()
	r := testResolver(t)

	pair := r.FindMatch("Fed-Decision-In-March", types.VenuePolymarket)
	if pair == nil {
		t.Fatal("static slug lookup failed")
	}
	if pair.MatchType != types.MatchStatic || pair.KalshiTicker != "KXFEDDECISION-26MAR" {
		t.Errorf("pair = %+v", pair)
	}

	pair = r.FindMatch("kxfeddecision-26mar", types.VenueKalshi)
	if pair == nil || pair.PolymarketSlug != "fed-decision-in-march" {
		t.Errorf("static ticker lookup = %+v", pair)
	}
}

func TestFindMatchDynamic(t *testing.T) {
	t.Parallel()
	r := testResolver(t)

	// No year in the slug: the resolver's clock supplies 2025.
	pair := r.FindMatch("what-price-will-bitcoin-hit-in-december", types.VenuePolymarket)
	if pair == nil {
		t.Fatal("dynamic slug lookup failed")
	}
	if pair.KalshiTicker != "KXBTCMAX-25DEC" {
		t.Errorf("KalshiTicker = %q, want KXBTCMAX-25DEC", pair.KalshiTicker)
	}
	if pair.MatchType != types.MatchDynamic {
		t.Errorf("MatchType = %q", pair.MatchType)
	}

	pair = r.FindMatch("KXBTCMAX-26JUN", types.VenueKalshi)
	if pair == nil || pair.PolymarketSlug != "what-price-will-bitcoin-hit-in-june" {
		t.Errorf("reverse dynamic lookup = %+v", pair)
	}
}

func TestFindMatchGame(t *testing.T) {
	t.Parallel()
	r := testResolver(t)

	pair := r.FindMatch("nba-phx-mia-2026-01-13", types.VenuePolymarket)
	if pair == nil {
		t.Fatal("game slug lookup failed")
	}
	if pair.KalshiTicker != "KXNBAGAME-26JAN13PHXMIA" {
		t.Errorf("KalshiTicker = %q", pair.KalshiTicker)
	}
	if pair.Name != "Phoenix Suns @ Miami Heat" {
		t.Errorf("Name = %q", pair.Name)
	}

	// Unknown team code: the game is skipped, not guessed.
	if p := r.FindMatch("nba-zzz-mia-2026-01-13", types.VenuePolymarket); p != nil {
		t.Errorf("unknown code resolved to %+v, want nil", p)
	}

	if p := r.FindMatch("totally-unrelated-slug", types.VenuePolymarket); p != nil {
		t.Errorf("unrelated slug resolved to %+v, want nil", p)
	}
}

func TestDynamicPairs(t *testing.T) {
	t.Parallel()
	r := testResolver(t)

	now := time.Date(2025, time.November, 29, 0, 0, 0, 0, time.UTC)
	pairs := r.DynamicPairs(now, 3) // spans November and December
	if len(pairs) != 2 {
		t.Fatalf("DynamicPairs = %d entries, want 2: %+v", len(pairs), pairs)
	}
	if pairs[0].KalshiTicker != "KXBTCMAX-25NOV" || pairs[1].KalshiTicker != "KXBTCMAX-25DEC" {
		t.Errorf("tickers = %q, %q", pairs[0].KalshiTicker, pairs[1].KalshiTicker)
	}
}
