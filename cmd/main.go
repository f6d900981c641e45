// Command folio periodically values exchange account balances in a single
// quote currency, persists the history and serves it over HTTP together
// with externally ingested per-symbol scores aligned to market candles.
//
// Usage:
//
//	folio --config config.yaml
//	folio setup (interactive configuration wizard)
//	folio (uses CLI arguments)
//
// Required environment variables:
//
//	For Binance: BINANCE_API_KEY, BINANCE_API_SECRET
//	For Bybit: BYBIT_API_KEY, BYBIT_API_SECRET
//	With use_hyperliquid: PRIVATE_KEY
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"folio/config"
	"folio/internal/clients"
	"folio/internal/services/collector"
	"folio/internal/services/join"
	"folio/internal/services/market"
	"folio/internal/services/pricer"
	"folio/internal/services/valuation"
	"folio/internal/setup"
	scorestore "folio/internal/storage/scores"
	snapshotstore "folio/internal/storage/snapshots"
	"folio/internal/web"
)

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	var err error
	if len(os.Args) > 1 && os.Args[1] == "setup" {
		if err := setup.RunTUI(); err != nil {
			log.Fatal(err)
		}
		cfg, err = config.FromFile("config.gen.yaml")
	} else {
		cfg, err = config.Get()
	}
	if err != nil {
		log.Fatal(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	var source market.Source
	switch cfg.Platform {
	case "binance":
		apiKey := os.Getenv("BINANCE_API_KEY")
		apiSecret := os.Getenv("BINANCE_API_SECRET")
		if apiKey == "" || apiSecret == "" {
			logger.Fatal("BINANCE_API_KEY and BINANCE_API_SECRET environment variables must be set")
		}
		source = market.NewBinanceSource(
			clients.NewBinanceClient(apiKey, apiSecret),
			clients.NewBinanceFuturesClient(apiKey, apiSecret),
		)
	case "bybit":
		apiKey := os.Getenv("BYBIT_API_KEY")
		apiSecret := os.Getenv("BYBIT_API_SECRET")
		if apiKey == "" || apiSecret == "" {
			logger.Fatal("BYBIT_API_KEY and BYBIT_API_SECRET environment variables must be set")
		}
		source = market.NewBybitSource(clients.NewBybitClient(apiKey, apiSecret))
	default:
		logger.Fatal("unsupported platform", zap.String("platform", cfg.Platform))
	}

	var fallback pricer.Pricer
	if cfg.UseHyperliquid {
		privateKey := os.Getenv("PRIVATE_KEY")
		if privateKey == "" {
			logger.Fatal("PRIVATE_KEY environment variable must be set when use_hyperliquid is enabled")
		}
		hlClient, err := clients.NewHyperliquidClient(privateKey, "")
		if err != nil {
			logger.Fatal("failed to create hyperliquid client", zap.Error(err))
		}
		fallback = pricer.NewHyperliquidPricer(hlClient.Info())
	}

	scores, err := scorestore.NewWALStore(cfg.ScoresDir)
	if err != nil {
		logger.Fatal("failed to open scores store", zap.Error(err))
	}
	defer scores.Close()

	snapshots, err := snapshotstore.NewWALStore(cfg.SnapshotsDir)
	if err != nil {
		logger.Fatal("failed to open snapshots store", zap.Error(err))
	}
	defer snapshots.Close()

	targets := make([]collector.Target, 0, len(cfg.Segments))
	for _, segment := range cfg.Segments {
		targets = append(targets, collector.Target{
			Segment: segment,
			Engine:  valuation.NewEngine(source, cfg.QuoteCurrency),
		})
	}

	coll := collector.New(targets, snapshots, fallback, cfg.QuoteCurrency, logger)
	series := join.NewAlignedSeries(source, scores)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := coll.Run(ctx, cfg.CollectInterval); err != nil && ctx.Err() == nil {
			logger.Error("collector stopped", zap.Error(err))
		}
	}()

	server := web.NewServer(cfg.ListenAddr, scores, snapshots, series)
	server.TLSDomains = cfg.TLSDomains
	server.CertCacheDir = cfg.CertCacheDir

	logger.Info("started",
		zap.String("platform", cfg.Platform),
		zap.String("quote", cfg.QuoteCurrency),
		zap.String("listen", cfg.ListenAddr))

	if err := server.Start(ctx); err != nil {
		logger.Fatal("web server failed", zap.Error(err))
	}
}
