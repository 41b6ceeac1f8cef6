package kalshi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"arbscan/internal/config"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.KalshiConfig{
		BaseURL:      srv.URL,
		RequestsPerS: 1000, // no pacing in tests
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestGetEvents(t *testing.T) {
	t.Parallel()
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/events" || r.URL.Query().Get("series_ticker") != "KXBTCMAX" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("status") != "open" || r.URL.Query().Get("limit") != "100" {
			http.Error(w, "missing params", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"events":[{
			"event_ticker": "KXBTCMAX-26JUN",
			"title": "Bitcoin high in June",
			"category": "crypto",
			"markets": [
				{"ticker": "KXBTCMAX-26JUN-T100", "title": "Above 100k", "yes_bid": 44, "yes_ask": 46, "close_time": "2026-06-30T23:59:00Z"},
				{"ticker": "KXBTCMAX-26JUN-T120", "title": "Above 120k", "last_price": 12}
			]
		}]}`)
	}))

	events, err := c.GetEvents(context.Background(), "KXBTCMAX")
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("events = %+v", events)
	}
	ev := events[0]
	if ev.Event.Identifier != "KXBTCMAX-26JUN" {
		t.Errorf("event = %+v", ev.Event)
	}
	if len(ev.Markets) != 2 {
		t.Fatalf("markets = %+v", ev.Markets)
	}
	// Midpoint of 44/46 cents.
	if ev.Markets[0].YesPrice != 0.45 || ev.Markets[0].NoPrice != 0.55 {
		t.Errorf("prices = %v/%v", ev.Markets[0].YesPrice, ev.Markets[0].NoPrice)
	}
	if ev.Markets[0].EndDate.IsZero() {
		t.Error("close time not parsed")
	}
	// No quotes: last price in cents.
	if ev.Markets[1].YesPrice != 0.12 {
		t.Errorf("last-price market yes = %v", ev.Markets[1].YesPrice)
	}
}

func TestGetOrderbookRateLimited(t *testing.T) {
	t.Parallel()
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))

	_, err := c.GetOrderbook(context.Background(), "KXT")
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("err = %v, want ErrRateLimited", err)
	}

	// FetchBook propagates 429 instead of degrading.
	if _, err := c.FetchBook(context.Background(), "KXT"); !errors.Is(err, ErrRateLimited) {
		t.Errorf("FetchBook err = %v, want ErrRateLimited", err)
	}
}

func TestFetchBook(t *testing.T) {
	t.Parallel()
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/markets/KXT/orderbook" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"orderbook":{"yes_dollars":[["0.40","100"]],"no_dollars":[["0.55","30"]]}}`)
	}))

	b, err := c.FetchBook(context.Background(), "KXT")
	if err != nil {
		t.Fatal(err)
	}
	if b.BestYesBid() != 0.40 || b.BestYesAsk() != 0.45 {
		t.Errorf("best yes bid/ask = %v/%v", b.BestYesBid(), b.BestYesAsk())
	}
}

func TestFetchBookDegradesToEmpty(t *testing.T) {
	t.Parallel()
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	b, err := c.FetchBook(context.Background(), "KXT")
	if err != nil {
		t.Fatalf("non-429 failure should degrade, got %v", err)
	}
	if !b.Empty() {
		t.Errorf("book = %+v, want empty", b)
	}
}
