// Package book converts raw venue order-book payloads into the unified
// model: decimal prices in (0,1), positive sizes, bids sorted descending and
// asks ascending. Kalshi asks are derived by complement from the opposite
// side's bids.
package book

import (
	"sort"

	"github.com/shopspring/decimal"

	"arbscan/pkg/types"
)

var one = decimal.NewFromInt(1)

// validLevel reports whether a parsed level survives filtering.
func validLevel(price, size decimal.Decimal) bool {
	return size.IsPositive() && price.IsPositive() && price.LessThan(one)
}

// sortBids orders levels best-first: descending by price.
func sortBids(levels []types.BookLevel) {
	sort.Slice(levels, func(i, j int) bool {
		return levels[i].Price > levels[j].Price
	})
}

// sortAsks orders levels best-first: ascending by price.
func sortAsks(levels []types.BookLevel) {
	sort.Slice(levels, func(i, j int) bool {
		return levels[i].Price < levels[j].Price
	})
}
