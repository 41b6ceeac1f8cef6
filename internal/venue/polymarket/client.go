// Package polymarket implements the Polymarket REST and WebSocket clients.
//
// The REST client talks to two hosts:
//   - GetEvent:     GET {gamma}/events?slug=<slug> — event discovery with
//     embedded markets; outcomes, outcomePrices, and clobTokenIds arrive as
//     JSON-encoded strings that need a second decode
//   - GetOrderBook: GET {clob}/book?token_id=<id>  — L2 book for one token
//
// Every request is rate-limited via per-category TokenBuckets and retried on
// 5xx errors. Order-book failures degrade to an empty book so one dead
// market never sinks a scan.
package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"arbscan/internal/book"
	"arbscan/internal/config"
	"arbscan/pkg/types"
)

// Client is the Polymarket REST API client.
type Client struct {
	gamma  *resty.Client // event discovery host
	clob   *resty.Client // order book host
	rl     *RateLimiter
	logger *slog.Logger
}

// NewClient creates a REST client with rate limiting and retry.
func NewClient(cfg config.PolymarketConfig, logger *slog.Logger) *Client {
	newHTTP := func(baseURL string) *resty.Client {
		return resty.New().
			SetBaseURL(baseURL).
			SetTimeout(10 * time.Second).
			SetRetryCount(3).
			SetRetryWaitTime(500 * time.Millisecond).
			SetRetryMaxWaitTime(5 * time.Second).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				if err != nil {
					return true
				}
				return r.StatusCode() >= 500
			}).
			SetHeader("Content-Type", "application/json")
	}

	return &Client{
		gamma:  newHTTP(cfg.GammaBaseURL),
		clob:   newHTTP(cfg.CLOBBaseURL),
		rl:     NewRateLimiter(),
		logger: logger.With("component", "polymarket"),
	}
}

// gammaEvent is the raw Gamma API event shape.
type gammaEvent struct {
	ID       string        `json:"id"`
	Slug     string        `json:"slug"`
	Title    string        `json:"title"`
	Category string        `json:"category"`
	Markets  []gammaMarket `json:"markets"`
}

// gammaMarket carries three JSON-encoded string fields that hold arrays.
type gammaMarket struct {
	ID            string `json:"id"`
	Question      string `json:"question"`
	EndDate       string `json:"endDate"`
	Outcomes      string `json:"outcomes"`      // e.g. `["Yes","No"]`
	OutcomePrices string `json:"outcomePrices"` // e.g. `["0.45","0.55"]`
	ClobTokenIDs  string `json:"clobTokenIds"`  // e.g. `["123...","456..."]`
}

// GetEvent fetches one event by slug with its embedded markets.
func (c *Client) GetEvent(ctx context.Context, slug string) (*types.EventRef, []types.MarketRef, error) {
	if err := c.rl.Events.Wait(ctx); err != nil {
		return nil, nil, err
	}

	var events []gammaEvent
	resp, err := c.gamma.R().
		SetContext(ctx).
		SetQueryParam("slug", slug).
		SetResult(&events).
		Get("/events")
	if err != nil {
		return nil, nil, fmt.Errorf("get event %s: %w", slug, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, nil, fmt.Errorf("get event %s: status %d: %s", slug, resp.StatusCode(), resp.String())
	}
	if len(events) == 0 {
		return nil, nil, fmt.Errorf("get event %s: not found", slug)
	}

	ev := events[0]
	ref := &types.EventRef{
		Venue:      types.VenuePolymarket,
		ID:         ev.ID,
		Identifier: ev.Slug,
		Title:      ev.Title,
		Category:   ev.Category,
	}

	markets := make([]types.MarketRef, 0, len(ev.Markets))
	for _, gm := range ev.Markets {
		m, err := parseGammaMarket(ev.ID, gm)
		if err != nil {
			c.logger.Debug("dropping market", "event", slug, "market", gm.ID, "error", err)
			continue
		}
		markets = append(markets, m)
	}
	return ref, markets, nil
}

// parseGammaMarket decodes the embedded string arrays and normalizes the
// market to the binary YES/NO view. Token index 0 is the YES side.
func parseGammaMarket(eventID string, gm gammaMarket) (types.MarketRef, error) {
	var outcomes, prices, tokens []string
	if err := json.Unmarshal([]byte(gm.Outcomes), &outcomes); err != nil {
		return types.MarketRef{}, fmt.Errorf("outcomes: %w", err)
	}
	if err := json.Unmarshal([]byte(gm.OutcomePrices), &prices); err != nil {
		return types.MarketRef{}, fmt.Errorf("outcomePrices: %w", err)
	}
	if err := json.Unmarshal([]byte(gm.ClobTokenIDs), &tokens); err != nil {
		return types.MarketRef{}, fmt.Errorf("clobTokenIds: %w", err)
	}
	if len(prices) < 2 || len(tokens) < 2 {
		return types.MarketRef{}, fmt.Errorf("not a binary market: %d outcomes, %d tokens", len(prices), len(tokens))
	}

	yes, err := decimal.NewFromString(prices[0])
	if err != nil {
		return types.MarketRef{}, fmt.Errorf("yes price %q: %w", prices[0], err)
	}
	no, err := decimal.NewFromString(prices[1])
	if err != nil {
		return types.MarketRef{}, fmt.Errorf("no price %q: %w", prices[1], err)
	}

	m := types.MarketRef{
		Venue:      types.VenuePolymarket,
		ID:         gm.ID,
		EventID:    eventID,
		Question:   gm.Question,
		YesPrice:   yes.InexactFloat64(),
		NoPrice:    no.InexactFloat64(),
		YesTokenID: tokens[0],
		NoTokenID:  tokens[1],
	}
	if gm.EndDate != "" {
		if end, err := time.Parse(time.RFC3339, gm.EndDate); err == nil {
			m.EndDate = end
		}
	}
	return m, nil
}

// GetOrderBook fetches the raw book for a single token.
func (c *Client) GetOrderBook(ctx context.Context, tokenID string) (*types.PolyBookResponse, error) {
	if err := c.rl.Book.Wait(ctx); err != nil {
		return nil, err
	}

	var result types.PolyBookResponse
	resp, err := c.clob.R().
		SetContext(ctx).
		SetQueryParam("token_id", tokenID).
		SetResult(&result).
		Get("/book")
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("get book: status %d: %s", resp.StatusCode(), resp.String())
	}
	return &result, nil
}

// FetchBook fetches both token books and combines them into a unified book.
// Transport failures degrade to an empty book.
func (c *Client) FetchBook(ctx context.Context, marketID, yesTokenID, noTokenID string) types.UnifiedOrderBook {
	empty := types.UnifiedOrderBook{
		Venue:     types.VenuePolymarket,
		MarketID:  marketID,
		FetchedAt: time.Now(),
	}

	yes, err := c.GetOrderBook(ctx, yesTokenID)
	if err != nil {
		c.logger.Warn("yes book unavailable", "market", marketID, "error", err)
		return empty
	}
	no, err := c.GetOrderBook(ctx, noTokenID)
	if err != nil {
		c.logger.Warn("no book unavailable", "market", marketID, "error", err)
		return empty
	}
	return book.ParsePolyBook(marketID, *yes, *no, time.Now())
}
