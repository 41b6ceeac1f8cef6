package arb

import (
	"testing"
	"time"

	"arbscan/pkg/types"
)

func feelessCalculator() *Calculator {
	return NewCalculator(Config{SimpleSpreadMin: 0.02})
}

func polyYesBook(asks ...types.BookLevel) types.UnifiedOrderBook {
	return types.UnifiedOrderBook{
		Venue: types.VenuePolymarket, MarketID: "poly",
		YesAsks: asks, FetchedAt: time.Now(),
	}
}

func kalshiNoBook(asks ...types.BookLevel) types.UnifiedOrderBook {
	return types.UnifiedOrderBook{
		Venue: types.VenueKalshi, MarketID: "KXT",
		NoAsks: asks, FetchedAt: time.Now(),
	}
}

func polyYesOpp() types.ArbitrageOpportunity {
	return types.ArbitrageOpportunity{Strategy: types.BuyPolyYesKalshiNo}
}

func TestAnalyzeLiquidityWalk(t *testing.T) {
	t.Parallel()
	c := feelessCalculator()

	poly := polyYesBook(
		types.BookLevel{Price: 0.45, Size: 100},
		types.BookLevel{Price: 0.47, Size: 200},
	)
	kalshi := kalshiNoBook(
		types.BookLevel{Price: 0.40, Size: 50},
		types.BookLevel{Price: 0.42, Size: 300},
	)

	a := c.AnalyzeLiquidity(polyYesOpp(), poly, kalshi)

	if len(a.Ladder) != 3 {
		t.Fatalf("ladder = %+v, want 3 steps", a.Ladder)
	}
	steps := []struct {
		contracts, priceA, priceB, profit float64
	}{
		{50, 0.45, 0.40, 0.15},
		{50, 0.45, 0.42, 0.13},
		{200, 0.47, 0.42, 0.11},
	}
	for i, want := range steps {
		got := a.Ladder[i]
		if got.Contracts != want.contracts || got.PriceA != want.priceA ||
			got.PriceB != want.priceB || !almostEqual(got.ProfitPerContract, want.profit) {
			t.Errorf("step %d = %+v, want %+v", i, got, want)
		}
	}

	if a.MaxContracts != 300 {
		t.Errorf("MaxContracts = %v, want 300", a.MaxContracts)
	}
	if !almostEqual(a.MaxInvestment, 264.0) {
		t.Errorf("MaxInvestment = %v, want 264.0", a.MaxInvestment)
	}
	if !almostEqual(a.MaxProfit, 36.0) {
		t.Errorf("MaxProfit = %v, want 36.0", a.MaxProfit)
	}
	if a.LimitedBy != types.LimitPolyLiquidity {
		t.Errorf("LimitedBy = %q, want polymarket_liquidity", a.LimitedBy)
	}

	// Ladder sums reproduce the totals.
	var sumContracts, sumProfit float64
	for _, step := range a.Ladder {
		sumContracts += step.Contracts
		sumProfit += step.Contracts * step.ProfitPerContract
	}
	if sumContracts != a.MaxContracts {
		t.Errorf("Σ contracts = %v, MaxContracts = %v", sumContracts, a.MaxContracts)
	}
	if !almostEqual(sumProfit, a.MaxProfit) {
		t.Errorf("Σ profit = %v, MaxProfit = %v", sumProfit, a.MaxProfit)
	}
}

func TestAnalyzeLiquidityKalshiExhausted(t *testing.T) {
	t.Parallel()
	c := feelessCalculator()

	poly := polyYesBook(types.BookLevel{Price: 0.45, Size: 500})
	kalshi := kalshiNoBook(types.BookLevel{Price: 0.40, Size: 50})

	a := c.AnalyzeLiquidity(polyYesOpp(), poly, kalshi)
	if a.MaxContracts != 50 || a.LimitedBy != types.LimitKalshiLiquidity {
		t.Errorf("analysis = %+v", a)
	}
}

func TestAnalyzeLiquiditySpreadExhausted(t *testing.T) {
	t.Parallel()
	c := feelessCalculator()

	poly := polyYesBook(
		types.BookLevel{Price: 0.45, Size: 50},
		types.BookLevel{Price: 0.70, Size: 500},
	)
	kalshi := kalshiNoBook(types.BookLevel{Price: 0.40, Size: 1000})

	a := c.AnalyzeLiquidity(polyYesOpp(), poly, kalshi)
	if a.LimitedBy != types.LimitSpreadExhausted {
		t.Errorf("LimitedBy = %q, want spread_exhausted", a.LimitedBy)
	}
	if a.MaxContracts != 50 {
		t.Errorf("MaxContracts = %v, want 50", a.MaxContracts)
	}
}

func TestAnalyzeLiquiditySpreadClosed(t *testing.T) {
	t.Parallel()
	c := feelessCalculator()

	poly := polyYesBook(types.BookLevel{Price: 0.55, Size: 100})
	poly.NoAsks = []types.BookLevel{{Price: 0.48, Size: 10}}
	kalshi := kalshiNoBook(types.BookLevel{Price: 0.50, Size: 100})
	kalshi.YesAsks = []types.BookLevel{{Price: 0.52, Size: 10}}

	a := c.AnalyzeLiquidity(polyYesOpp(), poly, kalshi)
	if a.LimitedBy != types.LimitSpreadClosed {
		t.Errorf("LimitedBy = %q, want spread_closed", a.LimitedBy)
	}
	if a.MaxContracts != 0 || len(a.Ladder) != 0 {
		t.Errorf("analysis = %+v, want empty walk", a)
	}
	if a.BestPolyYesAsk != 0.55 || a.BestKalshiNoAsk != 0.50 {
		t.Errorf("diagnostics = %v/%v", a.BestPolyYesAsk, a.BestKalshiNoAsk)
	}
	if a.BestKalshiYes != 0.52 || a.BestPolyNoAsk != 0.48 {
		t.Errorf("cross diagnostics = %v/%v", a.BestKalshiYes, a.BestPolyNoAsk)
	}
}

func TestAnalyzeLiquidityNoLiquidity(t *testing.T) {
	t.Parallel()
	c := feelessCalculator()

	a := c.AnalyzeLiquidity(polyYesOpp(), polyYesBook(), kalshiNoBook(types.BookLevel{Price: 0.4, Size: 10}))
	if a.LimitedBy != types.LimitNoLiquidity || a.MaxContracts != 0 {
		t.Errorf("analysis = %+v", a)
	}
}

func TestAnalyzeLiquidityMinProfitFloor(t *testing.T) {
	t.Parallel()
	c := NewCalculator(Config{MinProfitPct: 1.0, PolyFeePct: 2.0, KalshiFeePct: 1.0})

	// 1 − 0.52 − 0.44 − 0.03 = 0.01, not above the 1% floor.
	poly := polyYesBook(types.BookLevel{Price: 0.52, Size: 100})
	kalshi := kalshiNoBook(types.BookLevel{Price: 0.44, Size: 100})

	a := c.AnalyzeLiquidity(polyYesOpp(), poly, kalshi)
	if a.LimitedBy != types.LimitSpreadClosed {
		t.Errorf("LimitedBy = %q, want spread_closed at the profit floor", a.LimitedBy)
	}
}
