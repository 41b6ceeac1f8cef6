// Package kalshi implements the Kalshi trade API REST and WebSocket clients.
//
// The REST client covers the scanner's read paths:
//   - GetEvents:    GET /events?series_ticker=<S>&status=open&limit=100
//   - GetEvent:     GET /events/<event_ticker>
//   - GetOrderbook: GET /markets/<ticker>/orderbook
//
// Prices arrive as integer cents and are divided by 100. HTTP 429 surfaces
// as ErrRateLimited so the orchestrator's backoff layer can retry; other
// order-book failures degrade to an empty book. Requests are paced with a
// golang.org/x/time rate limiter.
package kalshi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"arbscan/internal/book"
	"arbscan/internal/config"
	"arbscan/pkg/types"
)

// ErrRateLimited signals HTTP 429; callers retry with backoff.
var ErrRateLimited = errors.New("kalshi: rate limited")

// Client is the Kalshi trade API REST client.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient creates a REST client with request pacing and 5xx retry.
func NewClient(cfg config.KalshiConfig, logger *slog.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
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

	rps := cfg.RequestsPerS
	if rps <= 0 {
		rps = 5
	}

	return &Client{
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		logger:  logger.With("component", "kalshi"),
	}
}

// kalshiEvent is the raw event shape.
type kalshiEvent struct {
	EventTicker  string         `json:"event_ticker"`
	SeriesTicker string         `json:"series_ticker"`
	Title        string         `json:"title"`
	Category     string         `json:"category"`
	Markets      []kalshiMarket `json:"markets"`
}

// kalshiMarket prices are integer cents in [0,100].
type kalshiMarket struct {
	Ticker      string `json:"ticker"`
	Title       string `json:"title"`
	YesSubTitle string `json:"yes_sub_title"`
	YesBid      int64  `json:"yes_bid"`
	YesAsk      int64  `json:"yes_ask"`
	LastPrice   int64  `json:"last_price"`
	CloseTime   string `json:"close_time"`
}

type eventsResponse struct {
	Events []kalshiEvent `json:"events"`
}

type eventResponse struct {
	Event   kalshiEvent    `json:"event"`
	Markets []kalshiMarket `json:"markets"`
}

// EventMarkets bundles one event with its normalized markets.
type EventMarkets struct {
	Event   types.EventRef
	Markets []types.MarketRef
}

// GetEvents fetches the open events of a series.
func (c *Client) GetEvents(ctx context.Context, seriesTicker string) ([]EventMarkets, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var result eventsResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"series_ticker": seriesTicker,
			"status":        "open",
			"limit":         "100",
		}).
		SetResult(&result).
		Get("/events")
	if err != nil {
		return nil, fmt.Errorf("get events %s: %w", seriesTicker, err)
	}
	if resp.StatusCode() == http.StatusTooManyRequests {
		return nil, fmt.Errorf("get events %s: %w", seriesTicker, ErrRateLimited)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("get events %s: status %d: %s", seriesTicker, resp.StatusCode(), resp.String())
	}

	out := make([]EventMarkets, 0, len(result.Events))
	for _, ev := range result.Events {
		out = append(out, normalizeEvent(ev, ev.Markets))
	}
	return out, nil
}

// GetEvent fetches one event by its event ticker.
func (c *Client) GetEvent(ctx context.Context, eventTicker string) (*EventMarkets, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var result eventResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/events/" + eventTicker)
	if err != nil {
		return nil, fmt.Errorf("get event %s: %w", eventTicker, err)
	}
	if resp.StatusCode() == http.StatusTooManyRequests {
		return nil, fmt.Errorf("get event %s: %w", eventTicker, ErrRateLimited)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("get event %s: status %d: %s", eventTicker, resp.StatusCode(), resp.String())
	}

	markets := result.Markets
	if len(markets) == 0 {
		markets = result.Event.Markets
	}
	em := normalizeEvent(result.Event, markets)
	return &em, nil
}

func normalizeEvent(ev kalshiEvent, markets []kalshiMarket) EventMarkets {
	out := EventMarkets{
		Event: types.EventRef{
			Venue:      types.VenueKalshi,
			ID:         ev.EventTicker,
			Identifier: ev.EventTicker,
			Title:      ev.Title,
			Category:   ev.Category,
		},
	}
	for _, km := range markets {
		out.Markets = append(out.Markets, normalizeMarket(ev.EventTicker, km))
	}
	return out
}

// normalizeMarket converts cent prices to the [0,1] convention. The YES
// price is the bid/ask midpoint when both sides are quoted, otherwise the
// last trade.
func normalizeMarket(eventID string, km kalshiMarket) types.MarketRef {
	var yes float64
	if km.YesBid > 0 && km.YesAsk > 0 {
		yes = float64(km.YesBid+km.YesAsk) / 2 / 100
	} else {
		yes = float64(km.LastPrice) / 100
	}

	question := km.Title
	if km.YesSubTitle != "" {
		question = km.YesSubTitle
	}

	m := types.MarketRef{
		Venue:    types.VenueKalshi,
		ID:       km.Ticker,
		EventID:  eventID,
		Question: question,
		Ticker:   km.Ticker,
		YesPrice: yes,
		NoPrice:  1 - yes,
	}
	if km.CloseTime != "" {
		if end, err := time.Parse(time.RFC3339, km.CloseTime); err == nil {
			m.EndDate = end
		}
	}
	return m
}

// GetOrderbook fetches the raw book for one market ticker.
func (c *Client) GetOrderbook(ctx context.Context, ticker string) (*types.KalshiOrderbookResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var result types.KalshiOrderbookResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/markets/" + ticker + "/orderbook")
	if err != nil {
		return nil, fmt.Errorf("get orderbook %s: %w", ticker, err)
	}
	if resp.StatusCode() == http.StatusTooManyRequests {
		return nil, fmt.Errorf("get orderbook %s: %w", ticker, ErrRateLimited)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("get orderbook %s: status %d: %s", ticker, resp.StatusCode(), resp.String())
	}
	return &result, nil
}

// FetchBook fetches and unifies one market's book. Transport failures
// degrade to an empty book except rate limiting, which propagates so the
// caller's retry layer can back off.
func (c *Client) FetchBook(ctx context.Context, ticker string) (types.UnifiedOrderBook, error) {
	resp, err := c.GetOrderbook(ctx, ticker)
	if err != nil {
		if errors.Is(err, ErrRateLimited) || ctx.Err() != nil {
			return types.UnifiedOrderBook{}, err
		}
		c.logger.Warn("book unavailable", "ticker", ticker, "error", err)
		return types.UnifiedOrderBook{
			Venue:     types.VenueKalshi,
			MarketID:  ticker,
			FetchedAt: time.Now(),
		}, nil
	}
	return book.ParseKalshiBook(ticker, resp.Orderbook, time.Now()), nil
}
