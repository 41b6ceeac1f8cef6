// Package arb prices cross-venue positions. The calculator works from
// midpoint YES prices; the liquidity analyzer walks both ask ladders to
// size the executable quantity.
package arb

import (
	"fmt"
	"math"
	"sort"
	"time"

	"arbscan/pkg/types"
)

// Config carries the pricing thresholds and venue fees, all in percent
// except MinGuaranteed which is a price fraction.
type Config struct {
	MinGuaranteed   float64 // extra spread required beyond fees, default 0
	SimpleSpreadMin float64 // YES-price divergence for a simple opportunity
	MinProfitPct    float64 // liquidity walk stops below this per-contract %
	PolyFeePct      float64
	KalshiFeePct    float64
}

// DefaultConfig matches the scanner's stock tuning.
func DefaultConfig() Config {
	return Config{
		MinGuaranteed:   0,
		SimpleSpreadMin: 0.02,
		MinProfitPct:    1.0,
		PolyFeePct:      2.0,
		KalshiFeePct:    1.0,
	}
}

// Calculator evaluates market pairs against the configured thresholds.
type Calculator struct {
	cfg Config
}

func NewCalculator(cfg Config) *Calculator {
	return &Calculator{cfg: cfg}
}

// fees returns the combined venue fees as a price fraction.
func (c *Calculator) fees() float64 {
	return (c.cfg.PolyFeePct + c.cfg.KalshiFeePct) / 100
}

// Calculate prices one pair. It returns nil when neither a guaranteed nor a
// simple opportunity exists.
//
// The synthetic dollar costs min(yPoly + (1 − yKalshi), yKalshi + (1 −
// yPoly)); the cheaper construction picks the strategy and spread = 1 − cost.
func (c *Calculator) Calculate(pair types.MarketPair) *types.ArbitrageOpportunity {
	costPolyYes := pair.PolyYes + (1 - pair.KalshiYes)
	costKalshiYes := pair.KalshiYes + (1 - pair.PolyYes)

	cost := costPolyYes
	strategy := types.BuyPolyYesKalshiNo
	if costKalshiYes < cost {
		cost = costKalshiYes
		strategy = types.BuyKalshiYesPolyNo
	}
	spread := 1 - cost

	if spread > c.cfg.MinGuaranteed+c.fees() {
		return &types.ArbitrageOpportunity{
			Pair:             pair,
			Type:             types.OppGuaranteed,
			Strategy:         strategy,
			Cost:             cost,
			ProfitPct:        spread * 100,
			GuaranteedProfit: spread,
			Action:           c.action(strategy, pair),
			DetectedAt:       time.Now(),
		}
	}

	divergence := math.Abs(pair.PolyYes - pair.KalshiYes)
	if divergence >= c.cfg.SimpleSpreadMin {
		return &types.ArbitrageOpportunity{
			Pair:       pair,
			Type:       types.OppSimple,
			Strategy:   strategy,
			Cost:       cost,
			ProfitPct:  divergence * 100,
			Action:     c.action(strategy, pair),
			DetectedAt: time.Now(),
		}
	}
	return nil
}

func (c *Calculator) action(strategy types.Strategy, pair types.MarketPair) string {
	if strategy == types.BuyPolyYesKalshiNo {
		return fmt.Sprintf("Buy YES on Polymarket @ %.2f, buy NO on Kalshi @ %.2f",
			pair.PolyYes, pair.KalshiNo)
	}
	return fmt.Sprintf("Buy YES on Kalshi @ %.2f, buy NO on Polymarket @ %.2f",
		pair.KalshiYes, pair.PolyNo)
}

// FindOpportunities prices every pair and returns the hits sorted by
// descending profit.
func (c *Calculator) FindOpportunities(pairs []types.MarketPair) []types.ArbitrageOpportunity {
	var out []types.ArbitrageOpportunity
	for _, pair := range pairs {
		if opp := c.Calculate(pair); opp != nil {
			out = append(out, *opp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ProfitPct > out[j].ProfitPct
	})
	return out
}

// CreateFromAllPairs returns an entry for every pair so the UI can show
// non-profitable spreads too. Pairs without a real opportunity carry type
// spread with the raw YES divergence as profit.
func (c *Calculator) CreateFromAllPairs(pairs []types.MarketPair) []types.ArbitrageOpportunity {
	out := make([]types.ArbitrageOpportunity, 0, len(pairs))
	for _, pair := range pairs {
		if opp := c.Calculate(pair); opp != nil {
			out = append(out, *opp)
			continue
		}
		costPolyYes := pair.PolyYes + (1 - pair.KalshiYes)
		costKalshiYes := pair.KalshiYes + (1 - pair.PolyYes)
		cost := math.Min(costPolyYes, costKalshiYes)
		strategy := types.BuyPolyYesKalshiNo
		if costKalshiYes < costPolyYes {
			strategy = types.BuyKalshiYesPolyNo
		}
		out = append(out, types.ArbitrageOpportunity{
			Pair:       pair,
			Type:       types.OppSpread,
			Strategy:   strategy,
			Cost:       cost,
			ProfitPct:  math.Abs(pair.PolyYes-pair.KalshiYes) * 100,
			Action:     c.action(strategy, pair),
			DetectedAt: time.Now(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ProfitPct > out[j].ProfitPct
	})
	return out
}
