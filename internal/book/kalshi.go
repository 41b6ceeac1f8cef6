package book

import (
	"time"

	"github.com/shopspring/decimal"

	"arbscan/pkg/types"
)

// parseKalshiBids converts [price, quantity] dollar-string tuples into bid
// levels, filtering like the Polymarket parser.
func parseKalshiBids(raw [][2]string) []types.BookLevel {
	out := make([]types.BookLevel, 0, len(raw))
	for _, tuple := range raw {
		price, err := decimal.NewFromString(tuple[0])
		if err != nil {
			continue
		}
		size, err := decimal.NewFromString(tuple[1])
		if err != nil {
			continue
		}
		if !validLevel(price, size) {
			continue
		}
		out = append(out, types.BookLevel{
			Price: price.InexactFloat64(),
			Size:  size.InexactFloat64(),
		})
	}
	return out
}

// complementAsks derives one side's ask ladder from the other side's bids:
// a bid of x for NO is an ask at 1 − x for YES. The complement is computed
// in decimal so 1 − 0.43 stays exactly 0.57.
func complementAsks(bids []types.BookLevel) []types.BookLevel {
	out := make([]types.BookLevel, 0, len(bids))
	for _, lvl := range bids {
		price := one.Sub(decimal.NewFromFloat(lvl.Price))
		out = append(out, types.BookLevel{
			Price: price.InexactFloat64(),
			Size:  lvl.Size,
		})
	}
	return out
}

// ParseKalshiBook converts the REST orderbook payload. yes_dollars and
// no_dollars are the resting bids for each side; asks exist only by
// complement and are never read directly from the payload.
func ParseKalshiBook(ticker string, ob types.KalshiOrderbook, fetchedAt time.Time) types.UnifiedOrderBook {
	b := types.UnifiedOrderBook{
		Venue:     types.VenueKalshi,
		MarketID:  ticker,
		YesBids:   parseKalshiBids(ob.YesDollars),
		NoBids:    parseKalshiBids(ob.NoDollars),
		FetchedAt: fetchedAt,
	}
	sortBids(b.YesBids)
	sortBids(b.NoBids)

	b.YesAsks = complementAsks(b.NoBids)
	b.NoAsks = complementAsks(b.YesBids)
	sortAsks(b.YesAsks)
	sortAsks(b.NoAsks)
	return b
}

// KalshiBookFromCents builds a unified book from the streaming client's
// authoritative cent-level maps (price_cents → quantity).
func KalshiBookFromCents(ticker string, yes, no map[int64]int64, at time.Time) types.UnifiedOrderBook {
	b := types.UnifiedOrderBook{
		Venue:     types.VenueKalshi,
		MarketID:  ticker,
		YesBids:   centsToLevels(yes),
		NoBids:    centsToLevels(no),
		FetchedAt: at,
	}
	sortBids(b.YesBids)
	sortBids(b.NoBids)

	b.YesAsks = complementAsks(b.NoBids)
	b.NoAsks = complementAsks(b.YesBids)
	sortAsks(b.YesAsks)
	sortAsks(b.NoAsks)
	return b
}

func centsToLevels(side map[int64]int64) []types.BookLevel {
	out := make([]types.BookLevel, 0, len(side))
	for cents, qty := range side {
		if qty <= 0 || cents <= 0 || cents >= 100 {
			continue
		}
		out = append(out, types.BookLevel{
			Price: float64(cents) / 100,
			Size:  float64(qty),
		})
	}
	return out
}
