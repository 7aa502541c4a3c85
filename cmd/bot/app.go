package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vitos/crypto_scalp_sim/internal/config"
	"github.com/vitos/crypto_scalp_sim/internal/domain"
	"github.com/vitos/crypto_scalp_sim/internal/infrastructure/exchange"
	"github.com/vitos/crypto_scalp_sim/internal/infrastructure/logger"
	"github.com/vitos/crypto_scalp_sim/internal/infrastructure/notify"
	"github.com/vitos/crypto_scalp_sim/internal/infrastructure/storage"
	"github.com/vitos/crypto_scalp_sim/internal/usecase"
)

// app holds the wired components shared by the subcommands.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	store   *storage.SQLiteStore
	market  *usecase.MarketService
	scanner *usecase.ScanService
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if !exchange.ValidInterval(cfg.Scanner.Interval) {
		return nil, fmt.Errorf("unsupported candle interval %q", cfg.Scanner.Interval)
	}

	log, err := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Encoding)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	store, err := storage.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("init sqlite: %w", err)
	}

	strategy, err := loadStrategy(ctx, cfg, store, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	market := usecase.NewMarketService(newMarketData(cfg), usecase.MarketOptions{
		CallTimeout: cfg.Scanner.CallTimeout,
		PriceMaxAge: cfg.Scanner.PriceMaxAge,
		MinCandles:  cfg.Scanner.MinCandles,
	}, log)

	scanner := usecase.NewScanService(market, store, newNotifier(cfg, log), strategy, usecase.ScanSettings{
		Pairs:       cfg.Scanner.Pairs,
		Interval:    cfg.Scanner.Interval,
		CandleLimit: cfg.Scanner.CandleLimit,
		MaxWorkers:  cfg.Scanner.MaxWorkers,
		FrameMaxAge: cfg.Scanner.FrameMaxAge,
	}, log)

	return &app{cfg: cfg, log: log, store: store, market: market, scanner: scanner}, nil
}

// openStore opens the database named by the config file without building the
// rest of the app, so a broken strategy table can still be inspected or fixed.
func openStore(configPath string) (*storage.SQLiteStore, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return storage.NewSQLiteStore(cfg.Storage.Path)
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("Failed to close sqlite", zap.Error(err))
	}
	_ = a.log.Sync()
}

// seedDefaults is the built-in configuration overlaid with the strategy
// section of the config file.
func seedDefaults(cfg *config.Config) domain.Configuration {
	defaults := usecase.DefaultConfiguration()
	for k, v := range cfg.Strategy {
		defaults[k] = v
	}
	return defaults
}

// loadStrategy seeds missing keys, then builds the strategy from what the
// table holds. Values already stored win over the file.
func loadStrategy(ctx context.Context, cfg *config.Config, store *storage.SQLiteStore, log *zap.Logger) (*usecase.Strategy, error) {
	added, err := store.SeedConfiguration(ctx, seedDefaults(cfg))
	if err != nil {
		return nil, fmt.Errorf("seed configuration: %w", err)
	}
	if added > 0 {
		log.Info("Seeded configuration", zap.Int("keys", added))
	}

	stored, err := store.LoadConfiguration(ctx)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	strategy, err := usecase.NewStrategy(stored, cfg.Scanner.StablePairs)
	if err != nil {
		return nil, err
	}
	log.Info("Strategy loaded",
		zap.Int("keys", len(stored)),
		zap.Int("warmup_candles", strategy.Periods.StartIndex()+1),
	)
	if need := strategy.Periods.StartIndex() + 1; cfg.Scanner.CandleLimit < need {
		log.Warn("Candle limit does not cover indicator warm-up; no pair will produce frames",
			zap.Int("candle_limit", cfg.Scanner.CandleLimit),
			zap.Int("required", need),
		)
	}
	return strategy, nil
}

func newMarketData(cfg *config.Config) domain.MarketData {
	ex := cfg.Exchange
	if ex.Name == "bybit" {
		return exchange.NewBybitAdapter(ex.RESTEndpoint, ex.Category)
	}
	return exchange.NewBinanceAdapter(ex.APIKey, ex.APISecret, ex.RESTEndpoint, ex.Testnet)
}

func newPriceStream(cfg *config.Config, log *zap.Logger) domain.PriceStream {
	if cfg.Exchange.Name == "bybit" {
		return exchange.NewBybitTickerStream(cfg.Exchange.WSEndpoint, log)
	}
	return exchange.NewBinanceTickerStream(cfg.Exchange.WSEndpoint, log)
}

func newNotifier(cfg *config.Config, log *zap.Logger) domain.Notifier {
	if cfg.Telegram.Token == "" {
		log.Info("Telegram token not set, alerts go to the log")
		return notify.NewLogNotifier(log)
	}
	return notify.NewTelegramNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID, cfg.Telegram.BaseURL, cfg.Telegram.Timeout)
}
