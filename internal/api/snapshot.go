package api

import (
	"fmt"
	"strings"
	"time"

	"arbscan/internal/config"
	"arbscan/internal/scan"
	"arbscan/internal/stream"
	"arbscan/pkg/types"
)

// BuildSnapshot converts the scanner's last accepted snapshot into the wire
// form. A nil snapshot yields an empty response with Fresh=false.
func BuildSnapshot(snap *scan.Snapshot, fresh bool, cfg config.Config) SnapshotResponse {
	if snap == nil {
		return SnapshotResponse{Timestamp: time.Now()}
	}

	opportunities := make([]Opportunity, 0, len(snap.Entries))
	for _, e := range snap.Entries {
		opportunities = append(opportunities, buildOpportunity(e, cfg))
	}

	return SnapshotResponse{
		Timestamp:     snap.ScannedAt,
		Fresh:         fresh,
		Opportunities: opportunities,
		Stats: ScanStats{
			PairsResolved: snap.Stats.PairsResolved,
			PairsFetched:  snap.Stats.PairsFetched,
			PairsFailed:   snap.Stats.PairsFailed,
			MarketPairs:   snap.Stats.MarketPairs,
			Duration:      snap.Stats.Duration.String(),
		},
	}
}

func buildOpportunity(e scan.Entry, cfg config.Config) Opportunity {
	opp := e.Opportunity
	mp := opp.Pair

	out := Opportunity{
		ID:         stream.PairID(mp),
		EventName:  mp.Pair.Name,
		MarketName: marketName(mp),
		Category:   mp.Pair.Category,
		Type:       string(opp.Type),
		SpreadPct:  opp.ProfitPct,
		Action:     opp.Action,
		Fees: Fees{
			Polymarket: cfg.Arb.PolyFeePct,
			Kalshi:     cfg.Arb.KalshiFeePct,
		},
		Prices: Prices{
			Polymarket: VenuePrices{Yes: mp.PolyYes, No: mp.PolyNo},
			Kalshi:     VenuePrices{Yes: mp.KalshiYes, No: mp.KalshiNo},
		},
		URLs: URLs{
			Polymarket: "https://polymarket.com/event/" + mp.Pair.PolymarketSlug,
			Kalshi:     "https://kalshi.com/markets/" + strings.ToLower(seriesOf(mp)),
		},
		Liq:         LiquidityInfo{Status: "not_analyzed"},
		LastUpdated: opp.DetectedAt,
	}

	if opp.Type == types.OppGuaranteed {
		out.PotentialProfit = opp.GuaranteedProfit
	}
	if opp.Cost > 0 {
		out.ROI = opp.ProfitPct
	}
	// Dynamic and game pairs carry a template date; static and fuzzy pairs
	// fall back to the fetched market end time.
	resolution := mp.Pair.Date
	if resolution.IsZero() {
		resolution = mp.EndDate
	}
	if !resolution.IsZero() {
		out.TimeToResolution = timeToResolution(resolution, opp.DetectedAt)
		if days := resolution.Sub(opp.DetectedAt).Hours() / 24; days > 0 {
			out.APR = out.ROI * 365 / days
		}
	}

	if e.Liquidity != nil {
		liq := e.Liquidity
		out.MaxInvestment = liq.MaxInvestment
		out.Liq = LiquidityInfo{
			Status:       liquidityStatus(liq),
			LimitedBy:    string(liq.LimitedBy),
			MaxContracts: liq.MaxContracts,
			MaxProfit:    liq.MaxProfit,
			AvgProfitPct: liq.AvgProfitPct,
		}
		out.Prices.OrderBook = OrderBookPrices{
			PolyYesAsk:   liq.BestPolyYesAsk,
			KalshiNoAsk:  liq.BestKalshiNoAsk,
			KalshiYesAsk: liq.BestKalshiYes,
			PolyNoAsk:    liq.BestPolyNoAsk,
		}
	}

	return out
}

func marketName(mp types.MarketPair) string {
	if mp.PolyQuestion != "" {
		return mp.PolyQuestion
	}
	return mp.KalshiQuestion
}

func seriesOf(mp types.MarketPair) string {
	if mp.Pair.KalshiSeries != "" {
		return mp.Pair.KalshiSeries
	}
	return mp.KalshiTicker
}

func liquidityStatus(liq *types.LiquidityAnalysis) string {
	switch liq.LimitedBy {
	case types.LimitNoLiquidity:
		return "no_liquidity"
	case types.LimitSpreadClosed:
		return "spread_closed"
	default:
		return "available"
	}
}

// timeToResolution renders the remaining time as an ISO-8601 duration.
func timeToResolution(end, now time.Time) string {
	d := end.Sub(now)
	if d <= 0 {
		return "PT0S"
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	switch {
	case days > 0 && hours > 0:
		return fmt.Sprintf("P%dDT%dH", days, hours)
	case days > 0:
		return fmt.Sprintf("P%dD", days)
	default:
		return fmt.Sprintf("PT%dH", hours)
	}
}
