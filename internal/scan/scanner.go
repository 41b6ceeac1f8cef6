// Package scan runs the batch arbitrage pipeline: resolve candidate pairs,
// fetch both venues' markets with bounded concurrency and rate-limit
// backoff, match markets, price them, size the best by order-book walking,
// and publish an immutable snapshot.
package scan

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"arbscan/internal/arb"
	"arbscan/internal/config"
	"arbscan/internal/mapping"
	"arbscan/internal/match"
	"arbscan/internal/venue/kalshi"
	"arbscan/pkg/types"
)

// PolyAPI is the Polymarket capability set the scanner depends on.
type PolyAPI interface {
	GetEvent(ctx context.Context, slug string) (*types.EventRef, []types.MarketRef, error)
	FetchBook(ctx context.Context, marketID, yesTokenID, noTokenID string) types.UnifiedOrderBook
}

// KalshiAPI is the Kalshi capability set the scanner depends on.
type KalshiAPI interface {
	GetEvent(ctx context.Context, eventTicker string) (*kalshi.EventMarkets, error)
	GetEvents(ctx context.Context, seriesTicker string) ([]kalshi.EventMarkets, error)
	FetchBook(ctx context.Context, ticker string) (types.UnifiedOrderBook, error)
}

// Scanner is the batch orchestrator.
type Scanner struct {
	cfg      config.ScannerConfig
	poly     PolyAPI
	kalshi   KalshiAPI
	resolver *mapping.Resolver
	fuzzy    *mapping.FuzzyMatcher
	matcher  *match.Matcher
	calc     *arb.Calculator
	holder   *Holder
	logger   *slog.Logger

	results chan *Snapshot
	now     func() time.Time
}

// New wires the orchestrator. The holder receives every accepted snapshot.
func New(
	cfg config.ScannerConfig,
	poly PolyAPI,
	kalshiAPI KalshiAPI,
	resolver *mapping.Resolver,
	fuzzy *mapping.FuzzyMatcher,
	matcher *match.Matcher,
	calc *arb.Calculator,
	holder *Holder,
	logger *slog.Logger,
) *Scanner {
	return &Scanner{
		cfg:      cfg,
		poly:     poly,
		kalshi:   kalshiAPI,
		resolver: resolver,
		fuzzy:    fuzzy,
		matcher:  matcher,
		calc:     calc,
		holder:   holder,
		logger:   logger.With("component", "scanner"),
		results:  make(chan *Snapshot, 1),
		now:      time.Now,
	}
}

// Results delivers each accepted snapshot. Only the latest is retained when
// the consumer lags.
func (s *Scanner) Results() <-chan *Snapshot { return s.results }

// Run scans on every poll tick until ctx is cancelled. The first scan fires
// immediately.
func (s *Scanner) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := s.ScanOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("scan failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ScanOnce executes one full scan tick and publishes the snapshot when
// enough pairs succeeded.
func (s *Scanner) ScanOnce(ctx context.Context) error {
	start := s.now()
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ScanTimeout)
	defer cancel()

	pairs := s.resolvePairs(ctx)
	if len(pairs) == 0 {
		s.logger.Warn("no candidate pairs resolved")
		return nil
	}

	marketPairs, stats := s.fetchPairs(ctx, pairs)
	stats.PairsResolved = len(pairs)

	opportunities := s.calc.CreateFromAllPairs(marketPairs)
	entries := s.analyzeTop(ctx, opportunities)

	stats.MarketPairs = len(marketPairs)
	stats.Duration = s.now().Sub(start)

	snap := &Snapshot{
		Entries:   entries,
		ScannedAt: s.now(),
		Stats:     stats,
	}

	// A mostly-failed scan keeps the previous snapshot instead of
	// publishing holes.
	if total := stats.PairsFetched + stats.PairsFailed; total > 0 {
		ratio := float64(stats.PairsFetched) / float64(total)
		if ratio < s.cfg.MinSuccessRatio {
			s.logger.Warn("discarding partial scan",
				"fetched", stats.PairsFetched,
				"failed", stats.PairsFailed,
			)
			return nil
		}
	}

	s.holder.Set(snap)
	select {
	case s.results <- snap:
	default:
		// Drop the stale queued snapshot, keep the new one.
		select {
		case <-s.results:
		default:
		}
		select {
		case s.results <- snap:
		default:
		}
	}
	s.logger.Info("scan complete",
		"pairs", len(pairs),
		"market_pairs", len(marketPairs),
		"entries", len(entries),
		"duration", stats.Duration,
	)
	return nil
}

// resolvePairs gathers candidates from every mapping source: the static
// catalog, dynamic templates over the scan window, open games on Kalshi,
// and previously confirmed fuzzy matches.
func (s *Scanner) resolvePairs(ctx context.Context) []types.MatchedPair {
	now := s.now()
	pairs := s.resolver.StaticPairs()
	pairs = append(pairs, s.resolver.DynamicPairs(now, s.cfg.DynamicScanDays)...)

	games, err := s.kalshi.GetEvents(ctx, mapping.GameSeries())
	if err != nil {
		s.logger.Warn("game discovery failed", "error", err)
	} else {
		tickers := make([]string, 0, len(games))
		for _, ev := range games {
			tickers = append(tickers, ev.Event.Identifier)
		}
		pairs = append(pairs, s.resolver.GamePairsFromTickers(tickers)...)
	}

	pairs = append(pairs, s.fuzzy.CachedPairs()...)

	// Dedup: a cached fuzzy pair may duplicate a catalog entry.
	seen := make(map[string]bool, len(pairs))
	out := pairs[:0]
	for _, p := range pairs {
		key := p.PolymarketSlug + "|" + p.KalshiTicker
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

// fetchPairs fetches both venues' markets for every pair with bounded
// concurrency. Per-pair failures are counted, never fatal.
func (s *Scanner) fetchPairs(ctx context.Context, pairs []types.MatchedPair) ([]types.MarketPair, Stats) {
	var (
		mu          sync.Mutex
		marketPairs []types.MarketPair
		stats       Stats
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxConcurrent)

	for _, pair := range pairs {
		pair := pair
		g.Go(func() error {
			// Spacing keeps each venue under its rate limit even
			// when the pool is saturated.
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(s.cfg.RateLimitDelay):
			}

			mps, err := s.fetchPair(ctx, pair)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				stats.PairsFailed++
				s.logger.Debug("pair fetch failed",
					"poly", pair.PolymarketSlug,
					"kalshi", pair.KalshiTicker,
					"error", err,
				)
				return nil
			}
			stats.PairsFetched++
			marketPairs = append(marketPairs, mps...)
			return nil
		})
	}
	g.Wait()

	return marketPairs, stats
}

func (s *Scanner) fetchPair(ctx context.Context, pair types.MatchedPair) ([]types.MarketPair, error) {
	_, polyMarkets, err := s.poly.GetEvent(ctx, pair.PolymarketSlug)
	if err != nil {
		return nil, err
	}

	var kalshiEvent *kalshi.EventMarkets
	err = s.withBackoff(ctx, func() error {
		var err error
		kalshiEvent, err = s.kalshi.GetEvent(ctx, pair.KalshiTicker)
		return err
	})
	if err != nil {
		return nil, err
	}

	return s.matcher.MatchMarkets(pair, polyMarkets, kalshiEvent.Markets), nil
}

// withBackoff retries rate-limited Kalshi calls with exponential backoff.
func (s *Scanner) withBackoff(ctx context.Context, fn func() error) error {
	backoff := s.cfg.RetryBackoffBase
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || !errors.Is(err, kalshi.ErrRateLimited) || attempt >= s.cfg.MaxRetries {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

// analyzeTop runs the liquidity walker over the best opportunities. Books
// are fetched per entry; a missing book leaves Liquidity nil (not_analyzed).
func (s *Scanner) analyzeTop(ctx context.Context, opportunities []types.ArbitrageOpportunity) []Entry {
	entries := make([]Entry, len(opportunities))
	for i, opp := range opportunities {
		entries[i] = Entry{Opportunity: opp}
	}

	limit := s.cfg.MaxLiquidityAnalysis
	if limit > len(entries) {
		limit = len(entries)
	}

	for i := 0; i < limit; i++ {
		if ctx.Err() != nil {
			break
		}
		opp := entries[i].Opportunity
		if opp.Pair.PolyYesTokenID == "" || opp.Pair.KalshiTicker == "" {
			continue
		}

		polyBook := s.poly.FetchBook(ctx, opp.Pair.PolyQuestion, opp.Pair.PolyYesTokenID, opp.Pair.PolyNoTokenID)

		var kalshiBook types.UnifiedOrderBook
		err := s.withBackoff(ctx, func() error {
			var err error
			kalshiBook, err = s.kalshi.FetchBook(ctx, opp.Pair.KalshiTicker)
			return err
		})
		if err != nil {
			s.logger.Debug("kalshi book fetch failed", "ticker", opp.Pair.KalshiTicker, "error", err)
			continue
		}

		analysis := s.calc.AnalyzeLiquidity(opp, polyBook, kalshiBook)
		entries[i].Liquidity = &analysis
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Opportunity.ProfitPct > entries[j].Opportunity.ProfitPct
	})
	return entries
}
