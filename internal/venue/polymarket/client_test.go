package polymarket

import (
	"context"
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
	return NewClient(config.PolymarketConfig{
		GammaBaseURL: srv.URL,
		CLOBBaseURL:  srv.URL,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestGetEvent(t *testing.T) {
	t.Parallel()
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/events" || r.URL.Query().Get("slug") != "nba-phx-mia-2026-01-13" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[{
			"id": "ev-1",
			"slug": "nba-phx-mia-2026-01-13",
			"title": "Suns vs. Heat",
			"category": "sports",
			"markets": [
				{
					"id": "m-1",
					"question": "Phoenix Suns vs. Miami Heat",
					"endDate": "2026-01-14T03:00:00Z",
					"outcomes": "[\"Yes\",\"No\"]",
					"outcomePrices": "[\"0.45\",\"0.55\"]",
					"clobTokenIds": "[\"tok-yes\",\"tok-no\"]"
				},
				{
					"id": "m-bad",
					"question": "Broken",
					"outcomes": "not json",
					"outcomePrices": "[]",
					"clobTokenIds": "[]"
				}
			]
		}]`)
	}))

	ev, markets, err := c.GetEvent(context.Background(), "nba-phx-mia-2026-01-13")
	if err != nil {
		t.Fatal(err)
	}
	if ev.ID != "ev-1" || ev.Title != "Suns vs. Heat" {
		t.Errorf("event = %+v", ev)
	}
	if len(markets) != 1 {
		t.Fatalf("markets = %+v, want the broken one dropped", markets)
	}
	m := markets[0]
	if m.YesPrice != 0.45 || m.NoPrice != 0.55 {
		t.Errorf("prices = %v/%v", m.YesPrice, m.NoPrice)
	}
	if m.YesTokenID != "tok-yes" || m.NoTokenID != "tok-no" {
		t.Errorf("tokens = %q/%q, index order must be preserved", m.YesTokenID, m.NoTokenID)
	}
	if m.EndDate.IsZero() {
		t.Error("end date not parsed")
	}
}

func TestGetEventNotFound(t *testing.T) {
	t.Parallel()
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[]`)
	}))

	if _, _, err := c.GetEvent(context.Background(), "missing"); err == nil {
		t.Error("expected error for empty event list")
	}
}

func TestFetchBook(t *testing.T) {
	t.Parallel()
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/book" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("token_id") {
		case "tok-yes":
			io.WriteString(w, `{"bids":[{"price":"0.44","size":"100"}],"asks":[{"price":"0.46","size":"50"}]}`)
		case "tok-no":
			io.WriteString(w, `{"bids":[{"price":"0.53","size":"80"}],"asks":[{"price":"0.56","size":"40"}]}`)
		default:
			http.NotFound(w, r)
		}
	}))

	b := c.FetchBook(context.Background(), "m-1", "tok-yes", "tok-no")
	if b.BestYesAsk() != 0.46 || b.BestNoAsk() != 0.56 {
		t.Errorf("best asks = %v/%v", b.BestYesAsk(), b.BestNoAsk())
	}
	if b.BestYesBid() != 0.44 {
		t.Errorf("best yes bid = %v", b.BestYesBid())
	}
}

func TestFetchBookDegradesToEmpty(t *testing.T) {
	t.Parallel()
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))

	b := c.FetchBook(context.Background(), "m-1", "tok-yes", "tok-no")
	if !b.Empty() {
		t.Errorf("book = %+v, want empty on transport failure", b)
	}
}
