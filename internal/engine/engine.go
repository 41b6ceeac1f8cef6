// Package engine is the central orchestrator of the arbitrage scanner.
//
// It wires together all subsystems:
//
//  1. The resolver turns catalog entries, dynamic templates, open Kalshi
//     games, and cached fuzzy matches into candidate pairs.
//  2. The batch scanner fetches both venues, matches markets, prices every
//     pair, and publishes a snapshot for the API.
//  3. When streaming is enabled, two WebSocket feeds keep authoritative
//     books and the aggregator reevaluates pairs on every debounced change.
//  4. After each scan the stream subscriptions are reconciled with the
//     snapshot's tracked pairs.
//
// Lifecycle: New() → Start() → [runs until SIGINT] → Stop()
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"arbscan/internal/arb"
	"arbscan/internal/config"
	"arbscan/internal/mapping"
	"arbscan/internal/match"
	"arbscan/internal/scan"
	"arbscan/internal/store"
	"arbscan/internal/stream"
	"arbscan/internal/venue/kalshi"
	"arbscan/internal/venue/polymarket"
	"arbscan/pkg/types"
)

// Engine owns the lifecycle of every component and goroutine.
type Engine struct {
	cfg     config.Config
	scanner *scan.Scanner
	holder  *scan.Holder
	logger  *slog.Logger

	// Streaming components, nil when stream.enabled is false.
	polyFeed   *polymarket.Feed
	kalshiFeed *kalshi.Feed
	registry   *stream.Registry
	aggregator *stream.Aggregator

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates and wires all engine components.
func New(cfg config.Config, logger *slog.Logger) (*Engine, error) {
	catalog, err := mapping.LoadCatalog(cfg.Mappings.MarketMappings)
	if err != nil {
		return nil, fmt.Errorf("load market mappings: %w", err)
	}
	teams, err := mapping.LoadTeams(cfg.Mappings.Teams)
	if err != nil {
		return nil, fmt.Errorf("load teams: %w", err)
	}
	cache, err := store.OpenMatchCache(cfg.Store.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open match cache: %w", err)
	}

	resolver := mapping.NewResolver(catalog, teams, logger)
	fuzzy := mapping.NewFuzzyMatcher(cache, logger)
	matcher := match.NewMatcher(teams, logger)
	calc := arb.NewCalculator(arb.Config{
		MinGuaranteed:   cfg.Arb.MinGuaranteed,
		SimpleSpreadMin: cfg.Arb.MinSpreadPct / 100,
		MinProfitPct:    cfg.Arb.MinProfitPct,
		PolyFeePct:      cfg.Arb.PolyFeePct,
		KalshiFeePct:    cfg.Arb.KalshiFeePct,
	})

	polyClient := polymarket.NewClient(cfg.Polymarket, logger)
	kalshiClient := kalshi.NewClient(cfg.Kalshi, logger)

	// The snapshot stays servable for two missed scans before /health
	// reports it stale.
	holder := scan.NewHolder(2 * cfg.Scanner.PollInterval)
	scanner := scan.New(cfg.Scanner, polyClient, kalshiClient,
		resolver, fuzzy, matcher, calc, holder, logger)

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		cfg:     cfg,
		scanner: scanner,
		holder:  holder,
		logger:  logger.With("component", "engine"),
		ctx:     ctx,
		cancel:  cancel,
	}

	if cfg.Stream.Enabled {
		auth, err := kalshi.NewAuth(cfg.Kalshi.APIKeyID, cfg.Kalshi.PrivateKey)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("kalshi auth: %w", err)
		}

		e.polyFeed = polymarket.NewFeed(cfg.Polymarket.WSMarketURL, cfg.Stream.NotifyBuffer, logger)
		e.kalshiFeed = kalshi.NewFeed(cfg.Kalshi.WSURL, auth, cfg.Stream.NotifyBuffer, logger)
		e.registry = stream.NewRegistry()
		e.aggregator = stream.NewAggregator(cfg.Stream, e.registry,
			e.polyFeed, e.kalshiFeed, calc, logger)
	}

	return e, nil
}

// Holder exposes the snapshot cache for the API server.
func (e *Engine) Holder() *scan.Holder { return e.holder }

// Events returns the aggregator's emission channel, nil when streaming is
// disabled.
func (e *Engine) Events() <-chan stream.Event {
	if e.aggregator == nil {
		return nil
	}
	return e.aggregator.Events()
}

// Start launches the scan loop and, when enabled, both feeds, the
// aggregator, and the subscription reconciler.
func (e *Engine) Start() error {
	e.spawn("scanner", func(ctx context.Context) error {
		return e.scanner.Run(ctx)
	})

	if e.cfg.Stream.Enabled {
		e.spawn("polymarket feed", func(ctx context.Context) error {
			return e.polyFeed.Run(ctx)
		})
		e.spawn("kalshi feed", func(ctx context.Context) error {
			return e.kalshiFeed.Run(ctx)
		})
		e.spawn("aggregator", func(ctx context.Context) error {
			return e.aggregator.Run(ctx)
		})
		e.spawn("subscription sync", func(ctx context.Context) error {
			e.syncSubscriptions(ctx)
			return nil
		})
	}

	return nil
}

func (e *Engine) spawn(name string, fn func(context.Context) error) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if err := fn(e.ctx); err != nil && e.ctx.Err() == nil {
			e.logger.Error(name+" stopped", "error", err)
		}
	}()
}

// Stop cancels all goroutines and waits for them to exit.
func (e *Engine) Stop() {
	e.logger.Info("shutting down...")
	e.cancel()

	if e.polyFeed != nil {
		e.polyFeed.Close()
	}
	if e.kalshiFeed != nil {
		e.kalshiFeed.Close()
	}

	e.wg.Wait()
	e.logger.Info("shutdown complete")
}

// syncSubscriptions reconciles feed subscriptions with each published
// snapshot: new pairs are subscribed on both venues, dropped pairs
// unsubscribed.
func (e *Engine) syncSubscriptions(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-e.scanner.Results():
			e.reconcile(snap)
		}
	}
}

func (e *Engine) reconcile(snap *scan.Snapshot) {
	pairs := make([]types.MarketPair, 0, len(snap.Entries))
	for _, entry := range snap.Entries {
		pairs = append(pairs, entry.Opportunity.Pair)
	}

	addTokens, dropTokens, addTickers, dropTickers := e.registry.Sync(pairs)

	if len(dropTokens) > 0 {
		if err := e.polyFeed.Unsubscribe(dropTokens); err != nil {
			e.logger.Warn("polymarket unsubscribe failed", "error", err)
		}
	}
	if len(addTokens) > 0 {
		if err := e.polyFeed.Subscribe(addTokens); err != nil {
			e.logger.Warn("polymarket subscribe failed", "error", err)
		}
	}
	if len(dropTickers) > 0 {
		if err := e.kalshiFeed.Unsubscribe(dropTickers); err != nil {
			e.logger.Warn("kalshi unsubscribe failed", "error", err)
		}
	}
	if len(addTickers) > 0 {
		if err := e.kalshiFeed.Subscribe(addTickers); err != nil {
			e.logger.Warn("kalshi subscribe failed", "error", err)
		}
	}

	if len(addTokens)+len(dropTokens)+len(addTickers)+len(dropTickers) > 0 {
		e.logger.Info("stream subscriptions reconciled",
			"tracked", len(pairs),
			"tokens_added", len(addTokens),
			"tokens_dropped", len(dropTokens),
			"tickers_added", len(addTickers),
			"tickers_dropped", len(dropTickers),
		)
	}
}
