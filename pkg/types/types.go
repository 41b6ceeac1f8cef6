// Package types defines shared data structures used across all packages.
//
// This package is the common vocabulary for the scanner — venue tags, event
// and market references, matched pairs, order books, and arbitrage results.
// It has no dependencies on internal packages, so it can be imported by any
// layer.
package types

import (
	"encoding/json"
	"time"
)

// ————————————————————————————————————————————————————————————————————————
// Venues
// ————————————————————————————————————————————————————————————————————————

// Venue identifies one of the two exchanges the scanner arbitrages across.
type Venue string

const (
	VenuePolymarket Venue = "polymarket" // decimal prices, CLOB token ids
	VenueKalshi     Venue = "kalshi"     // cent prices, tickers
)

// ————————————————————————————————————————————————————————————————————————
// Events and markets
// ————————————————————————————————————————————————————————————————————————

// EventRef is a venue-level event: a group of related binary markets.
// Identifier is the Polymarket slug or the Kalshi event ticker.
type EventRef struct {
	Venue      Venue
	ID         string
	Identifier string
	Title      string
	Category   string
}

// MarketRef is a single binary market inside an event. Prices are normalized
// to [0,1] regardless of venue convention; YesPrice + NoPrice ≈ 1.
type MarketRef struct {
	Venue    Venue
	ID       string
	EventID  string
	Question string
	EndDate  time.Time

	YesPrice float64
	NoPrice  float64

	// Polymarket order book identifiers. Index order from the API is
	// preserved: YesTokenID is outcome index 0.
	YesTokenID string
	NoTokenID  string

	// Kalshi order book identifier.
	Ticker string
}

// MatchType records which resolver produced a MatchedPair.
type MatchType string

const (
	MatchStatic  MatchType = "static"  // exact catalog lookup
	MatchDynamic MatchType = "dynamic" // date-template expansion
	MatchFuzzy   MatchType = "fuzzy"   // similarity over blocked candidates
	MatchGame    MatchType = "game"    // sports slug/ticker synthesis
)

// MatchedPair links one Polymarket event to one Kalshi event.
// Date is zero unless the pair came from a dated template or game.
type MatchedPair struct {
	Name           string
	Category       string
	PolymarketSlug string
	KalshiTicker   string
	KalshiSeries   string
	Date           time.Time
	MatchType      MatchType
}

// MarketPair aligns one binary market on each venue within a matched event.
// Confidence is the matcher's score in [0,1]; Spread is |PolyYes - KalshiYes|.
type MarketPair struct {
	Pair MatchedPair

	PolyQuestion   string
	PolyYes        float64
	PolyNo         float64
	PolyYesTokenID string
	PolyNoTokenID  string

	KalshiQuestion string
	KalshiTicker   string
	KalshiYes      float64
	KalshiNo       float64

	Confidence float64
	Spread     float64

	// Earliest market end time across the two sides, used for time to
	// resolution when the matched pair carries no template date.
	EndDate time.Time
}

// ————————————————————————————————————————————————————————————————————————
// Order books
// ————————————————————————————————————————————————————————————————————————

// BookLevel is a single price level. Price ∈ (0,1), Size > 0 after parsing.
type BookLevel struct {
	Price float64
	Size  float64
}

// UnifiedOrderBook is the venue-neutral book model. Bids are sorted
// descending by price, asks ascending; every level has positive size.
// For Kalshi, asks on one side are derived as 1 − the other side's bids.
type UnifiedOrderBook struct {
	Venue     Venue
	MarketID  string
	YesBids   []BookLevel
	YesAsks   []BookLevel
	NoBids    []BookLevel
	NoAsks    []BookLevel
	FetchedAt time.Time
}

// BestYesAsk returns the lowest YES ask, or 0 if the ladder is empty.
func (b *UnifiedOrderBook) BestYesAsk() float64 {
	if len(b.YesAsks) == 0 {
		return 0
	}
	return b.YesAsks[0].Price
}

// BestNoAsk returns the lowest NO ask, or 0 if the ladder is empty.
func (b *UnifiedOrderBook) BestNoAsk() float64 {
	if len(b.NoAsks) == 0 {
		return 0
	}
	return b.NoAsks[0].Price
}

// BestYesBid returns the highest YES bid, or 0 if the ladder is empty.
func (b *UnifiedOrderBook) BestYesBid() float64 {
	if len(b.YesBids) == 0 {
		return 0
	}
	return b.YesBids[0].Price
}

// BestNoBid returns the highest NO bid, or 0 if the ladder is empty.
func (b *UnifiedOrderBook) BestNoBid() float64 {
	if len(b.NoBids) == 0 {
		return 0
	}
	return b.NoBids[0].Price
}

// Empty reports whether the book has no levels on any side.
func (b *UnifiedOrderBook) Empty() bool {
	return len(b.YesBids) == 0 && len(b.YesAsks) == 0 &&
		len(b.NoBids) == 0 && len(b.NoAsks) == 0
}

// ————————————————————————————————————————————————————————————————————————
// Arbitrage
// ————————————————————————————————————————————————————————————————————————

// Strategy names the two legs of a cross-venue position.
type Strategy string

const (
	// BuyPolyYesKalshiNo: buy YES on Polymarket, NO on Kalshi.
	BuyPolyYesKalshiNo Strategy = "poly_yes_kalshi_no"
	// BuyKalshiYesPolyNo: buy YES on Kalshi, NO on Polymarket.
	BuyKalshiYesPolyNo Strategy = "kalshi_yes_poly_no"
)

// OpportunityType classifies how an opportunity was detected.
type OpportunityType string

const (
	// OppGuaranteed: combined cost < 1 − fees; locked-in profit per unit.
	OppGuaranteed OpportunityType = "guaranteed"
	// OppSimple: YES prices diverge ≥ threshold but cost ≥ 1 − fees.
	OppSimple OpportunityType = "simple"
	// OppSpread: informational entry created for every pair (UI display).
	OppSpread OpportunityType = "spread"
)

// ArbitrageOpportunity is the midpoint-price arbitrage result for one pair.
// Cost is the cheaper synthetic-dollar construction; Spread = 1 − Cost.
type ArbitrageOpportunity struct {
	Pair             MarketPair
	Type             OpportunityType
	Strategy         Strategy
	Cost             float64
	ProfitPct        float64
	GuaranteedProfit float64 // 0 unless Type == OppGuaranteed
	Action           string  // human-readable instruction
	DetectedAt       time.Time
}

// ————————————————————————————————————————————————————————————————————————
// Liquidity
// ————————————————————————————————————————————————————————————————————————

// Limiter explains what stopped the liquidity walk.
type Limiter string

const (
	LimitPolyLiquidity   Limiter = "polymarket_liquidity" // Polymarket ladder exhausted first
	LimitKalshiLiquidity Limiter = "kalshi_liquidity"     // Kalshi ladder exhausted first
	LimitSpreadExhausted Limiter = "spread_exhausted"     // walk became unprofitable
	LimitSpreadClosed    Limiter = "spread_closed"        // best asks already unprofitable
	LimitNoLiquidity     Limiter = "no_liquidity"         // one or both ladders empty
)

// LadderStep records one step of the two-sided book walk. Cumulative fields
// include all prior steps.
type LadderStep struct {
	Contracts         float64
	PriceA            float64 // Polymarket-side ask consumed at this step
	PriceB            float64 // Kalshi-side ask consumed at this step
	ProfitPerContract float64
	CumContracts      float64
	CumCost           float64
	CumProfit         float64
}

// LiquidityAnalysis quantifies the executable size of an opportunity.
// Invariants: Σ step.Contracts = MaxContracts and Σ step.Contracts ×
// step.ProfitPerContract = MaxProfit.
type LiquidityAnalysis struct {
	MaxContracts  float64
	MaxInvestment float64
	MaxProfit     float64
	AvgProfitPct  float64
	Ladder        []LadderStep
	LimitedBy     Limiter

	// Diagnostic best asks, populated when the walk cannot start.
	BestPolyYesAsk  float64
	BestKalshiNoAsk float64
	BestKalshiYes   float64
	BestPolyNoAsk   float64
}

// ————————————————————————————————————————————————————————————————————————
// Polymarket wire formats
// ————————————————————————————————————————————————————————————————————————
// Prices and sizes arrive as strings to preserve decimal precision; the book
// parser converts them with shopspring/decimal.

// PriceLevel is a raw bid or ask level from the Polymarket CLOB API.
type PriceLevel struct {
	Price string `json:"price"` // e.g. "0.55"
	Size  string `json:"size"`  // e.g. "100.5"
}

// PolyBookResponse is the REST response from GET /book for a single token.
type PolyBookResponse struct {
	Market    string       `json:"market"`
	AssetID   string       `json:"asset_id"`
	Bids      []PriceLevel `json:"bids"`
	Asks      []PriceLevel `json:"asks"`
	Hash      string       `json:"hash"`
	Timestamp string       `json:"timestamp"`
}

// PolyWSBookEvent is a full order book snapshot from the Polymarket market WS.
type PolyWSBookEvent struct {
	EventType string       `json:"event_type"` // always "book"
	AssetID   string       `json:"asset_id"`
	Market    string       `json:"market"`
	Timestamp string       `json:"timestamp"`
	Hash      string       `json:"hash"`
	Buys      []PriceLevel `json:"buys"`
	Sells     []PriceLevel `json:"sells"`
}

// PolyWSPriceChange is a single level update within a price_change event.
type PolyWSPriceChange struct {
	AssetID string `json:"asset_id"`
	Price   string `json:"price"`
	Size    string `json:"size"` // new size at that level, 0 = removed
	Side    string `json:"side"` // "BUY" or "SELL"
}

// PolyWSPriceChangeEvent is an incremental book update from the market WS.
type PolyWSPriceChangeEvent struct {
	EventType    string              `json:"event_type"` // always "price_change"
	Market       string              `json:"market"`
	Timestamp    string              `json:"timestamp"`
	PriceChanges []PolyWSPriceChange `json:"price_changes"`
}

// PolyWSSubscribeMsg is the initial market-channel subscription message.
type PolyWSSubscribeMsg struct {
	Type     string   `json:"type"` // "market"
	AssetIDs []string `json:"assets_ids,omitempty"`
}

// PolyWSUpdateMsg subscribes or unsubscribes token ids after connect.
type PolyWSUpdateMsg struct {
	AssetIDs  []string `json:"assets_ids,omitempty"`
	Operation string   `json:"operation"` // "subscribe" or "unsubscribe"
}

// ————————————————————————————————————————————————————————————————————————
// Kalshi wire formats
// ————————————————————————————————————————————————————————————————————————

// KalshiOrderbook holds the raw bid ladders for each side. Asks are implied:
// a NO bid at x is a YES ask at 1 − x.
type KalshiOrderbook struct {
	YesDollars [][2]string `json:"yes_dollars"`
	NoDollars  [][2]string `json:"no_dollars"`
}

// KalshiOrderbookResponse wraps GET /markets/{ticker}/orderbook.
type KalshiOrderbookResponse struct {
	Orderbook KalshiOrderbook `json:"orderbook"`
}

// KalshiWSCommand is sent to subscribe or unsubscribe market tickers.
type KalshiWSCommand struct {
	ID     int                  `json:"id"`
	Cmd    string               `json:"cmd"` // "subscribe" / "unsubscribe"
	Params KalshiWSCommandParam `json:"params"`
}

// KalshiWSCommandParam carries the channels and tickers for a command.
type KalshiWSCommandParam struct {
	Channels      []string `json:"channels"`
	MarketTickers []string `json:"market_tickers"`
}

// KalshiWSMessage is the envelope for every Kalshi WS frame. Msg holds the
// type-specific payload, decoded after dispatch on Type.
type KalshiWSMessage struct {
	Type string          `json:"type"` // "orderbook_snapshot", "orderbook_delta", "error"
	SID  int             `json:"sid"`
	Seq  int64           `json:"seq"`
	Msg  json.RawMessage `json:"msg"`
}

// KalshiWSSnapshot seeds the authoritative book for one ticker.
// Prices are integer cents [1,99].
type KalshiWSSnapshot struct {
	MarketTicker string     `json:"market_ticker"`
	Yes          [][2]int64 `json:"yes"` // [price_cents, quantity]
	No           [][2]int64 `json:"no"`
}

// KalshiWSDelta mutates one level of the authoritative book by a signed
// quantity; the level is removed when its quantity reaches zero.
type KalshiWSDelta struct {
	MarketTicker string `json:"market_ticker"`
	Price        int64  `json:"price"` // cents
	Delta        int64  `json:"delta"` // signed contract count
	Side         string `json:"side"`  // "yes" or "no"
}
