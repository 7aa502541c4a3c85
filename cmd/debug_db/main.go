package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/vitos/crypto_scalp_sim/internal/infrastructure/storage"
)

func main() {
	dbPath := flag.String("db", "scalper.db", "SQLite database path")
	flag.Parse()

	store, err := storage.NewSQLiteStore(*dbPath)
	if err != nil {
		fmt.Printf("Failed to init sqlite: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	cfg, err := store.LoadConfiguration(ctx)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	keys := make([]string, 0, len(cfg))
	for k := range cfg {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Printf("Configuration (%d keys):\n", len(keys))
	for _, k := range keys {
		fmt.Printf("  %-28s %g\n", k, cfg[k])
	}

	summary, err := store.Summary(ctx)
	if err != nil {
		fmt.Printf("Failed to summarize positions: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nPositions by state:\n")
	for _, s := range summary {
		fmt.Printf("  %-28s %5d  profit %.4f\n", s.Name, s.Count, s.Profit)
	}

	open, err := store.FetchOpenPositions(ctx)
	if err != nil {
		fmt.Printf("Failed to list open positions: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nFound %d open positions:\n", len(open))
	for _, p := range open {
		be := ""
		if p.BreakevenActive {
			be = " (breakeven)"
		}
		fmt.Printf("- %s %s %s entry %f size %f sl %f%s opened %s\n",
			p.ID, p.Pair, p.Side, p.EntryPrice, p.Size, p.StopLoss, be, p.EntryTime.Format("2006-01-02 15:04:05"))
	}
}
