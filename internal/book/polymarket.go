package book

import (
	"time"

	"github.com/shopspring/decimal"

	"arbscan/pkg/types"
)

// parsePolyLevels converts CLOB string levels, dropping entries whose price
// falls outside (0,1) or whose size is not positive.
func parsePolyLevels(raw []types.PriceLevel) []types.BookLevel {
	out := make([]types.BookLevel, 0, len(raw))
	for _, lvl := range raw {
		price, err := decimal.NewFromString(lvl.Price)
		if err != nil {
			continue
		}
		size, err := decimal.NewFromString(lvl.Size)
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

// ParsePolyBook combines the YES-token and NO-token REST responses into one
// unified book. Each token contributes its own bid and ask ladders.
func ParsePolyBook(marketID string, yes, no types.PolyBookResponse, fetchedAt time.Time) types.UnifiedOrderBook {
	b := types.UnifiedOrderBook{
		Venue:     types.VenuePolymarket,
		MarketID:  marketID,
		YesBids:   parsePolyLevels(yes.Bids),
		YesAsks:   parsePolyLevels(yes.Asks),
		NoBids:    parsePolyLevels(no.Bids),
		NoAsks:    parsePolyLevels(no.Asks),
		FetchedAt: fetchedAt,
	}
	sortBids(b.YesBids)
	sortAsks(b.YesAsks)
	sortBids(b.NoBids)
	sortAsks(b.NoAsks)
	return b
}

// PolyBookFromSides builds a unified book from already-parsed ladders, used
// by the streaming client which maintains levels incrementally. Ladders are
// filtered and re-sorted; inputs are not mutated.
func PolyBookFromSides(marketID string, yesBids, yesAsks, noBids, noAsks []types.BookLevel, at time.Time) types.UnifiedOrderBook {
	b := types.UnifiedOrderBook{
		Venue:     types.VenuePolymarket,
		MarketID:  marketID,
		YesBids:   filterLevels(yesBids),
		YesAsks:   filterLevels(yesAsks),
		NoBids:    filterLevels(noBids),
		NoAsks:    filterLevels(noAsks),
		FetchedAt: at,
	}
	sortBids(b.YesBids)
	sortAsks(b.YesAsks)
	sortBids(b.NoBids)
	sortAsks(b.NoAsks)
	return b
}

func filterLevels(levels []types.BookLevel) []types.BookLevel {
	out := make([]types.BookLevel, 0, len(levels))
	for _, lvl := range levels {
		if lvl.Size > 0 && lvl.Price > 0 && lvl.Price < 1 {
			out = append(out, lvl)
		}
	}
	return out
}
