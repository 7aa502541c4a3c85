package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/vitos/crypto_scalp_sim/internal/config"
	"github.com/vitos/crypto_scalp_sim/internal/domain"
	"github.com/vitos/crypto_scalp_sim/internal/infrastructure/exchange"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "Configuration file path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	var adapter domain.MarketData
	endpoint := cfg.Exchange.RESTEndpoint
	switch cfg.Exchange.Name {
	case "bybit":
		adapter = exchange.NewBybitAdapter(endpoint, cfg.Exchange.Category)
		if endpoint == "" {
			endpoint = exchange.BybitBaseURL
		}
	default:
		adapter = exchange.NewBinanceAdapter(cfg.Exchange.APIKey, cfg.Exchange.APISecret, endpoint, cfg.Exchange.Testnet)
		if endpoint == "" {
			endpoint = exchange.BinanceBaseURL
		}
	}

	fmt.Printf("Testing %s market data...\n", cfg.Exchange.Name)
	fmt.Printf("Endpoint: %s\n", endpoint)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := adapter.Ping(ctx); err != nil {
		fmt.Printf("❌ Ping failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Ping OK\n")

	prices, err := adapter.GetPrices(ctx, cfg.Scanner.Pairs)
	if err != nil {
		fmt.Printf("❌ Failed to get prices: %v\n", err)
	}

	failed := false
	for _, pair := range cfg.Scanner.Pairs {
		price, ok := prices[pair]
		if !ok {
			fmt.Printf("❌ %s: no price\n", pair)
			failed = true
			continue
		}
		candles, err := adapter.GetCandles(ctx, pair, cfg.Scanner.Interval, cfg.Scanner.CandleLimit)
		if err != nil {
			fmt.Printf("❌ %s: price %f, candles failed: %v\n", pair, price, err)
			failed = true
			continue
		}
		status := "✅"
		if len(candles) < cfg.Scanner.MinCandles {
			status = "⚠️"
		}
		fmt.Printf("%s %s: price %f, %d/%d candles (%s)\n", status, pair, price, len(candles), cfg.Scanner.CandleLimit, cfg.Scanner.Interval)
	}

	if failed {
		os.Exit(1)
	}
}
