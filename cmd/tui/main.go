// ====================================
// File: cmd/tui/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/moonbag/internal/bot"
	"github.com/rovshanmuradov/moonbag/internal/config"
	"github.com/rovshanmuradov/moonbag/internal/logger"
	"github.com/rovshanmuradov/moonbag/internal/ui"
	"github.com/rovshanmuradov/moonbag/internal/ui/state"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "moonbag-tui:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	if _, err := os.Stat(configPath); err != nil {
		configPath = ""
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	// The terminal belongs to the dashboard: logs go to the file and the in-memory buffer.
	logBuffer := logger.NewLogBuffer(500)
	log, err := logger.New(cfg.Log, logger.WithBuffer(logBuffer), logger.WithoutConsole())
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync(log) }()
	log.Info("🚀 Bot started", zap.String("mode", cfg.Execution.Mode))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := bot.NewRunner(cfg, log)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := runner.Close(closeCtx); err != nil {
			log.Error("Shutdown finished with errors", zap.Error(err))
		}
	}()
	if err := runner.Initialize(); err != nil {
		return err
	}
	if err := runner.StartMetrics(); err != nil {
		log.Warn("Metrics endpoint disabled", zap.Error(err))
	}

	positions, err := runner.LoadPositions()
	if err != nil {
		return err
	}

	quotes := state.NewUICache(log.Named("ui_cache"))
	quotes.Attach(runner.Events())

	createUI := func() (tea.Model, []tea.ProgramOption) {
		return ui.NewDashboard(ui.Options{
			Sessions: runner.Service(),
			Alerts:   runner.Alerts(),
			Quotes:   quotes,
			Logs:     logBuffer,
			Rules:    runner.Service().Rules(),
			Mode:     cfg.Execution.Mode,
		}), []tea.ProgramOption{tea.WithAltScreen(), tea.WithoutSignalHandler()}
	}
	recovery := ui.NewRecoveryHandler(log.Named("ui"), createUI)

	runCtx, cancelRun := context.WithCancel(ctx)
	runDone := make(chan error, 1)
	go func() {
		err := runner.Run(runCtx, positions)
		recovery.SendSticky(ui.RunFinishedMsg{Err: err})
		runDone <- err
	}()

	go func() {
		<-ctx.Done()
		recovery.Stop()
	}()

	uiErr := recovery.RunWithRecovery()

	// Leaving the dashboard stops monitoring; open positions stay as they are.
	cancelRun()
	runErr := <-runDone
	if uiErr != nil {
		return uiErr
	}
	return runErr
}
