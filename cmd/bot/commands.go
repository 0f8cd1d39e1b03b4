// ====================================
// File: cmd/bot/commands.go
// ====================================
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/moonbag/internal/bot"
	"github.com/rovshanmuradov/moonbag/internal/config"
	"github.com/rovshanmuradov/moonbag/internal/logger"
	"github.com/rovshanmuradov/moonbag/internal/position"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Monitor every position in the positions file until all are closed",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withRunner(func(ctx context.Context, r *bot.Runner) error {
			positions, err := r.LoadPositions()
			if err != nil {
				return err
			}
			return r.Run(ctx, positions)
		})
	},
}

var (
	watchMint  string
	watchLabel string
	watchEntry string
	watchQty   string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Monitor one position given on the command line",
	RunE: func(cmd *cobra.Command, _ []string) error {
		entry, err := decimal.NewFromString(watchEntry)
		if err != nil {
			return fmt.Errorf("invalid --entry: %w", err)
		}

		return withRunner(func(ctx context.Context, r *bot.Runner) error {
			qty, err := watchQuantity(ctx, r)
			if err != nil {
				return err
			}
			pos := position.New(watchMint, entry, qty)
			pos.Label = watchLabel
			return r.Run(ctx, []position.Position{pos})
		})
	},
}

// watchQuantity reads --qty or falls back to the wallet's token balance.
func watchQuantity(ctx context.Context, r *bot.Runner) (decimal.Decimal, error) {
	if watchQty != "" {
		qty, err := decimal.NewFromString(watchQty)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid --qty: %w", err)
		}
		return qty, nil
	}

	qty, err := r.TokenBalance(ctx, watchMint)
	if err != nil {
		return decimal.Zero, fmt.Errorf("--qty not given and wallet balance unavailable: %w", err)
	}
	if !qty.IsPositive() {
		return decimal.Zero, fmt.Errorf("wallet holds no %s tokens", watchMint)
	}
	r.Logger().Info("Using wallet balance as quantity", zap.String("quantity", qty.String()))
	return qty, nil
}

var (
	transferTo  string
	transferSOL string
)

var transferCmd = &cobra.Command{
	Use:   "transfer",
	Short: "Send SOL from the configured wallet",
	RunE: func(cmd *cobra.Command, _ []string) error {
		amount, err := decimal.NewFromString(transferSOL)
		if err != nil {
			return fmt.Errorf("invalid --sol: %w", err)
		}

		return withRunner(func(ctx context.Context, r *bot.Runner) error {
			sig, err := r.TransferSOL(ctx, transferTo, amount)
			if err != nil {
				return err
			}
			fmt.Println(sig.String())
			return nil
		})
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchMint, "mint", "", "token mint address")
	watchCmd.Flags().StringVar(&watchLabel, "label", "", "display name")
	watchCmd.Flags().StringVar(&watchEntry, "entry", "", "entry price in SOL per token")
	watchCmd.Flags().StringVar(&watchQty, "qty", "", "tokens held (defaults to the wallet balance)")
	_ = watchCmd.MarkFlagRequired("mint")
	_ = watchCmd.MarkFlagRequired("entry")

	transferCmd.Flags().StringVar(&transferTo, "to", "", "recipient address")
	transferCmd.Flags().StringVar(&transferSOL, "sol", "", "amount in SOL")
	_ = transferCmd.MarkFlagRequired("to")
	_ = transferCmd.MarkFlagRequired("sol")
}

// withRunner loads config, builds the logger and runner, and tears everything down after fn.
// SIGINT/SIGTERM cancel the context passed to fn.
func withRunner(fn func(ctx context.Context, r *bot.Runner) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() {
		if err := logger.Sync(log); err != nil {
			fmt.Fprintf(os.Stderr, "failed to sync logger: %v\n", err)
		}
	}()
	log.Info("🚀 Bot started", zap.String("rpc", cfg.RPCURL), zap.String("mode", cfg.Execution.Mode))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := bot.NewRunner(cfg, log)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := r.Close(closeCtx); err != nil {
			log.Error("Shutdown finished with errors", zap.Error(err))
		}
	}()

	if err := r.Initialize(); err != nil {
		log.Error("💥 Failed to initialize bot", zap.Error(err))
		return err
	}
	if err := r.StartMetrics(); err != nil {
		log.Warn("Metrics endpoint disabled", zap.Error(err))
	}

	return fn(ctx, r)
}

// loadConfig falls back to defaults and environment when the default config file is missing.
func loadConfig() (*config.Config, error) {
	path := configPath
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && !rootCmd.PersistentFlags().Changed("config") {
		path = ""
	}
	return config.LoadConfig(path)
}
