package api

import (
	"time"
)

// SnapshotResponse is the complete dashboard state: every priced pair from
// the last accepted scan, best first.
type SnapshotResponse struct {
	Timestamp     time.Time     `json:"timestamp"`
	Fresh         bool          `json:"fresh"` // false once the snapshot outlives its TTL
	Opportunities []Opportunity `json:"opportunities"`
	Stats         ScanStats     `json:"stats"`
}

// Opportunity is the wire form of one priced pair.
type Opportunity struct {
	ID         string `json:"id"`
	EventName  string `json:"event_name"`
	MarketName string `json:"market_name"`
	Category   string `json:"category"`

	// guaranteed, simple, or spread
	Type string `json:"type"`

	SpreadPct        float64 `json:"spread_pct"`
	Action           string  `json:"action"`
	PotentialProfit  float64 `json:"potential_profit"`  // per contract, after fees
	MaxInvestment    float64 `json:"max_investment"`    // 0 when not analyzed
	TimeToResolution string  `json:"time_to_resolution"`

	Fees   Fees          `json:"fees"`
	Prices Prices        `json:"prices"`
	URLs   URLs          `json:"urls"`
	Liq    LiquidityInfo `json:"liquidity"`

	ROI float64 `json:"roi"` // percent on cost
	APR float64 `json:"apr"` // ROI annualized over time to resolution

	LastUpdated time.Time `json:"last_updated"`
}

// Fees are the per-venue fee assumptions in percent.
type Fees struct {
	Polymarket float64 `json:"polymarket"`
	Kalshi     float64 `json:"kalshi"`
}

// Prices carries both venues' midpoint prices plus the order-book asks the
// liquidity walk priced against.
type Prices struct {
	Polymarket VenuePrices     `json:"polymarket"`
	Kalshi     VenuePrices     `json:"kalshi"`
	OrderBook  OrderBookPrices `json:"order_book"`
}

// VenuePrices is one venue's YES/NO quote.
type VenuePrices struct {
	Yes float64 `json:"yes"`
	No  float64 `json:"no"`
}

// OrderBookPrices are the best asks on the four relevant sides.
type OrderBookPrices struct {
	PolyYesAsk   float64 `json:"poly_yes_ask"`
	KalshiNoAsk  float64 `json:"kalshi_no_ask"`
	KalshiYesAsk float64 `json:"kalshi_yes_ask"`
	PolyNoAsk    float64 `json:"poly_no_ask"`
}

// URLs link back to each venue's market page.
type URLs struct {
	Polymarket string `json:"polymarket"`
	Kalshi     string `json:"kalshi"`
}

// LiquidityInfo summarizes the book walk. Status is available,
// spread_closed, no_liquidity, or not_analyzed.
type LiquidityInfo struct {
	Status       string  `json:"status"`
	LimitedBy    string  `json:"limited_by,omitempty"`
	MaxContracts float64 `json:"max_contracts"`
	MaxProfit    float64 `json:"max_profit"`
	AvgProfitPct float64 `json:"avg_profit_pct"`
}

// ScanStats describes the scan tick that produced the snapshot.
type ScanStats struct {
	PairsResolved int    `json:"pairs_resolved"`
	PairsFetched  int    `json:"pairs_fetched"`
	PairsFailed   int    `json:"pairs_failed"`
	MarketPairs   int    `json:"market_pairs"`
	Duration      string `json:"duration"`
}

// WireEvent is the envelope broadcast to WebSocket clients.
type WireEvent struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}
