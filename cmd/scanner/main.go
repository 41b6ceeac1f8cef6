// Arbscan — a cross-venue arbitrage scanner for binary prediction markets
// on Polymarket and Kalshi.
//
// Architecture:
//
//	main.go             — entry point: loads config, starts engine, waits for SIGINT/SIGTERM
//	engine/engine.go    — orchestrator: wires mapping → scan → stream → api
//	mapping/            — pair resolution: static catalog, dynamic date templates,
//	                      NBA game synthesis, fuzzy title matching with a persisted cache
//	match/matcher.go    — aligns binary markets inside a matched event pair
//	scan/scanner.go     — batch loop: fetch both venues, price every pair, publish snapshots
//	arb/                — arbitrage pricing and order-book liquidity walking
//	book/               — venue book normalization (Kalshi complement pricing included)
//	venue/polymarket    — Gamma/CLOB REST client and market WebSocket feed
//	venue/kalshi        — trade API REST client (RSA-PSS signed) and orderbook_delta feed
//	stream/             — debounced real-time reevaluation of tracked pairs
//	api/                — snapshot REST endpoints and the dashboard WebSocket hub
//	store/              — JSON file persistence for fuzzy-match decisions
//
// How it finds money:
//
//	The same binary outcome often trades at different prices on the two
//	venues. Buying YES on one and NO on the other costs Σ of the two asks;
//	when that sum is below $1 minus fees, the $1 settlement is a locked-in
//	profit whichever way the market resolves. The scanner prices every
//	matched pair, walks both order books to size the trade, and surfaces
//	the results over HTTP and WebSocket.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"arbscan/internal/api"
	"arbscan/internal/config"
	"arbscan/internal/engine"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()
	if p := os.Getenv("ARB_CONFIG"); p != "" && !flagPassed("config") {
		*cfgPath = p
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", *cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Logging.Level)}
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	eng, err := engine.New(*cfg, logger)
	if err != nil {
		logger.Error("failed to create engine", "error", err)
		os.Exit(1)
	}

	var apiServer *api.Server
	if cfg.Dashboard.Enabled {
		apiServer = api.NewServer(*cfg, eng.Holder(), eng.Events(), logger)
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error("dashboard server failed", "error", err)
			}
		}()
		logger.Info("dashboard started", "url", fmt.Sprintf("http://localhost:%d", cfg.Dashboard.Port))
	}

	if err := eng.Start(); err != nil {
		logger.Error("failed to start engine", "error", err)
		os.Exit(1)
	}

	logger.Info("arbitrage scanner started",
		"poll_interval", cfg.Scanner.PollInterval,
		"streaming", cfg.Stream.Enabled,
		"min_spread_pct", cfg.Arb.MinSpreadPct,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	if apiServer != nil {
		if err := apiServer.Stop(); err != nil {
			logger.Error("failed to stop dashboard", "error", err)
		}
	}
	eng.Stop()
}

func flagPassed(name string) bool {
	passed := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			passed = true
		}
	})
	return passed
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
