package arb

import (
	"github.com/shopspring/decimal"

	"arbscan/pkg/types"
)

var one = decimal.NewFromInt(1)

// AnalyzeLiquidity walks the two ask ladders of an opportunity in lock-step,
// consuming min(remaining) at the current pair of levels until the next
// level pair stops clearing the profit floor or one side runs dry.
//
// The Polymarket-side ladder and Kalshi-side ladder follow the strategy:
// buying YES on Polymarket consumes polyBook.YesAsks against
// kalshiBook.NoAsks, and symmetrically for the other strategy. Totals
// accumulate in decimal so ladder sums stay exact.
func (c *Calculator) AnalyzeLiquidity(opp types.ArbitrageOpportunity, polyBook, kalshiBook types.UnifiedOrderBook) types.LiquidityAnalysis {
	var polySide, kalshiSide []types.BookLevel
	if opp.Strategy == types.BuyPolyYesKalshiNo {
		polySide = polyBook.YesAsks
		kalshiSide = kalshiBook.NoAsks
	} else {
		kalshiSide = kalshiBook.YesAsks
		polySide = polyBook.NoAsks
	}

	diag := func(a types.LiquidityAnalysis) types.LiquidityAnalysis {
		a.BestPolyYesAsk = polyBook.BestYesAsk()
		a.BestKalshiNoAsk = kalshiBook.BestNoAsk()
		a.BestKalshiYes = kalshiBook.BestYesAsk()
		a.BestPolyNoAsk = polyBook.BestNoAsk()
		return a
	}

	if len(polySide) == 0 || len(kalshiSide) == 0 {
		return diag(types.LiquidityAnalysis{LimitedBy: types.LimitNoLiquidity})
	}

	fees := decimal.NewFromFloat(c.fees())
	minProfit := decimal.NewFromFloat(c.cfg.MinProfitPct / 100)

	profitAt := func(pa, pb float64) decimal.Decimal {
		return one.Sub(decimal.NewFromFloat(pa)).Sub(decimal.NewFromFloat(pb)).Sub(fees)
	}

	if profitAt(polySide[0].Price, kalshiSide[0].Price).LessThanOrEqual(minProfit) {
		return diag(types.LiquidityAnalysis{LimitedBy: types.LimitSpreadClosed})
	}

	var (
		ladder       []types.LadderStep
		cumContracts = decimal.Zero
		cumCost      = decimal.Zero
		cumProfit    = decimal.Zero
	)

	ia, ib := 0, 0
	remA := decimal.NewFromFloat(polySide[0].Size)
	remB := decimal.NewFromFloat(kalshiSide[0].Size)
	limiter := types.Limiter("")

	for ia < len(polySide) && ib < len(kalshiSide) {
		pa, pb := polySide[ia].Price, kalshiSide[ib].Price
		profitPer := profitAt(pa, pb)
		if profitPer.LessThanOrEqual(minProfit) {
			limiter = types.LimitSpreadExhausted
			break
		}

		avail := decimal.Min(remA, remB)
		costPer := decimal.NewFromFloat(pa).Add(decimal.NewFromFloat(pb))

		cumContracts = cumContracts.Add(avail)
		cumCost = cumCost.Add(avail.Mul(costPer))
		cumProfit = cumProfit.Add(avail.Mul(profitPer))

		ladder = append(ladder, types.LadderStep{
			Contracts:         avail.InexactFloat64(),
			PriceA:            pa,
			PriceB:            pb,
			ProfitPerContract: profitPer.InexactFloat64(),
			CumContracts:      cumContracts.InexactFloat64(),
			CumCost:           cumCost.InexactFloat64(),
			CumProfit:         cumProfit.InexactFloat64(),
		})

		remA = remA.Sub(avail)
		remB = remB.Sub(avail)
		if remA.IsZero() {
			ia++
			if ia < len(polySide) {
				remA = decimal.NewFromFloat(polySide[ia].Size)
			}
		}
		if remB.IsZero() {
			ib++
			if ib < len(kalshiSide) {
				remB = decimal.NewFromFloat(kalshiSide[ib].Size)
			}
		}
	}

	if limiter == "" {
		if ia >= len(polySide) {
			limiter = types.LimitPolyLiquidity
		} else {
			limiter = types.LimitKalshiLiquidity
		}
	}

	analysis := types.LiquidityAnalysis{
		MaxContracts:  cumContracts.InexactFloat64(),
		MaxInvestment: cumCost.InexactFloat64(),
		MaxProfit:     cumProfit.InexactFloat64(),
		Ladder:        ladder,
		LimitedBy:     limiter,
	}
	if cumCost.IsPositive() {
		analysis.AvgProfitPct = cumProfit.Div(cumCost).Mul(decimal.NewFromInt(100)).InexactFloat64()
	}
	return analysis
}
