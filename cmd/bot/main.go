package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vitos/crypto_scalp_sim/internal/config"
	"github.com/vitos/crypto_scalp_sim/internal/usecase"
	"github.com/vitos/crypto_scalp_sim/internal/web"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "scalper",
		Short:        "Crypto scalping simulator",
		Long:         "Scans pairs for RSI/volume entries and follows simulated positions through breakeven, stop loss and take profit.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context(), configPath)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Configuration file path")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the scan loop, price stream and HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context(), configPath)
		},
	})
	rootCmd.AddCommand(newScanCmd(&configPath))
	rootCmd.AddCommand(newPositionsCmd(&configPath))
	rootCmd.AddCommand(newSeedCmd(&configPath))
	rootCmd.AddCommand(newSetCmd(&configPath))

	return rootCmd
}

func runBot(parent context.Context, configPath string) error {
	ctx, stop := signal.NotifyContext(contextOrBackground(parent), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.Scanner.StreamPrices {
		stream := newPriceStream(a.cfg, a.log)
		stream.OnPriceUpdate(a.market.HandlePrice)
		go func() {
			if err := stream.Run(ctx, a.cfg.Scanner.Pairs); err != nil {
				a.log.Error("Price stream stopped", zap.Error(err))
			}
		}()
	}

	server := web.NewServer(a.cfg.Server.Port, a.store, a.scanner, a.log)
	go func() {
		if err := server.Start(); err != nil {
			a.log.Error("Server failed", zap.Error(err))
			stop()
		}
	}()

	a.log.Info("Scalper started",
		zap.String("exchange", a.cfg.Exchange.Name),
		zap.Strings("pairs", a.cfg.Scanner.Pairs),
		zap.String("interval", a.cfg.Scanner.Interval),
		zap.Duration("cycle_delay", a.cfg.Scanner.CycleDelay),
	)

	if err := a.market.Ping(ctx); err != nil {
		a.log.Warn("Exchange probe failed", zap.Error(err))
	}

	if err := usecase.NewScheduler(a.scanner, a.cfg.Scanner.CycleDelay, a.log).Run(ctx); err != nil {
		a.log.Error("Scheduler failed", zap.Error(err))
	}

	a.log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newScanCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Run a single monitoring and scan cycle and print the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := contextOrBackground(cmd.Context())
			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			report := a.scanner.RunCycle(ctx)
			return printJSON(cmd, report)
		},
	}
}

func newPositionsCmd(configPath *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "positions",
		Short: "List recent simulated positions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := contextOrBackground(cmd.Context())
			store, err := openStore(*configPath)
			if err != nil {
				return err
			}
			defer store.Close()

			positions, err := store.ListPositions(ctx, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-36s %-10s %-5s %-18s %14s %14s %12s\n", "ID", "PAIR", "SIDE", "STATE", "ENTRY", "STOP", "PROFIT")
			for _, p := range positions {
				profit := "-"
				if p.Profit != nil {
					profit = strconv.FormatFloat(*p.Profit, 'f', 4, 64)
				}
				fmt.Fprintf(out, "%-36s %-10s %-5s %-18s %14.6f %14.6f %12s\n",
					p.ID, p.Pair, p.Side, p.State, p.EntryPrice, p.StopLoss, profit)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of positions to show")
	return cmd
}

func newSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert missing strategy keys and print the stored configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := contextOrBackground(cmd.Context())
			// newApp seeds before it builds the strategy.
			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			stored, err := a.store.LoadConfiguration(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, stored)
		},
	}
}

func newSetCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Store one strategy value; takes effect on the next start",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("value must be numeric: %w", err)
			}
			ctx := contextOrBackground(cmd.Context())
			store, err := openStore(*configPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.SetConfigValue(ctx, args[0], value); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %g\n", args[0], value)
			return nil
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
