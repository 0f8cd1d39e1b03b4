// internal/bot/runner.go
package bot

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/moonbag/internal/blockchain/solbc"
	"github.com/rovshanmuradov/moonbag/internal/config"
	"github.com/rovshanmuradov/moonbag/internal/events"
	"github.com/rovshanmuradov/moonbag/internal/execution"
	"github.com/rovshanmuradov/moonbag/internal/export"
	"github.com/rovshanmuradov/moonbag/internal/monitor"
	"github.com/rovshanmuradov/moonbag/internal/notify"
	"github.com/rovshanmuradov/moonbag/internal/position"
	"github.com/rovshanmuradov/moonbag/internal/price"
	"github.com/rovshanmuradov/moonbag/internal/wallet"
)

const (
	eventBufferSize  = 256
	maxJournalTrades = 500
	maxAlerts        = 1000
	shutdownTimeout  = 30 * time.Second
)

// Runner wires the exit manager from config and owns the lifetime of its services.
type Runner struct {
	logger *zap.Logger
	config *config.Config
	clock  monitor.Clock

	registry  *prometheus.Registry
	chain     *solbc.Client
	wallet    *wallet.Wallet // nil in paper mode without a key
	oracle    price.Source
	seller    execution.Seller
	notifiers []monitor.Notifier

	bus      *events.Bus
	alerts   *monitor.AlertManager
	history  *monitor.TradeHistory
	service  *monitor.Service
	shutdown *ShutdownHandler

	metricsSrv *http.Server
	metricsLn  net.Listener
	reportPath string
}

// Option customizes a Runner before Initialize.
type Option func(*Runner)

// WithClock replaces the wall clock of every monitor.
func WithClock(c monitor.Clock) Option {
	return func(r *Runner) { r.clock = c }
}

// WithNotifiers replaces the notifiers built from config.
func WithNotifiers(n ...monitor.Notifier) Option {
	return func(r *Runner) { r.notifiers = n }
}

// NewRunner принимает cfg и logger; сервисы создаются в Initialize.
func NewRunner(cfg *config.Config, logger *zap.Logger, opts ...Option) *Runner {
	r := &Runner{
		logger:   logger,
		config:   cfg,
		clock:    monitor.RealClock(),
		registry: prometheus.NewRegistry(),
		shutdown: NewShutdownHandler(logger.Named("shutdown"), shutdownTimeout),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Initialize builds every collaborator of the monitor. Call Close to release them,
// even when Initialize fails half way.
func (r *Runner) Initialize() error {
	cfg := r.config

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r.chain = solbc.NewClient(cfg.RPCURL, r.logger)

	if cfg.PrivateKey != "" {
		w, err := wallet.NewWallet(cfg.PrivateKey)
		if err != nil {
			return fmt.Errorf("failed to load wallet: %w", err)
		}
		r.wallet = w
		r.logger.Info("🔑 Wallet loaded", zap.String("address", w.String()))
	} else if !cfg.Execution.Paper() {
		return fmt.Errorf("private key is required in live mode (set %s)", config.EnvPrivateKey)
	}

	dex := price.NewDexScreener(cfg.Price.BaseURL, cfg.Price.TimeoutDuration(), r.logger)
	r.oracle = price.NewCached(
		price.NewLimited(dex, cfg.Price.RequestsPerSecond, r.logger),
		cfg.Price.CacheTTLDuration(),
	)

	r.seller = r.buildSeller()

	if r.notifiers == nil {
		notifiers, err := r.buildNotifiers()
		if err != nil {
			return err
		}
		r.notifiers = notifiers
	}
	r.alerts = monitor.NewAlertManager(monitor.AlertConfig{
		CooldownDuration: cfg.Notify.AlertCooldownDuration(),
		MaxAlerts:        maxAlerts,
	}, r.logger.Named("alerts"), r.notifiers...)

	history, err := monitor.NewTradeHistory(cfg.JournalDir, maxJournalTrades, r.logger.Named("journal"))
	if err != nil {
		return fmt.Errorf("failed to open trade journal: %w", err)
	}
	r.history = history
	// Runs last, once the bus has delivered every exit.
	r.shutdown.AddFunc("trade_report", r.writeReport)
	r.shutdown.Add("trade_journal", history)

	// Registered after the journal so it is drained first.
	r.bus = events.NewBus(r.logger, eventBufferSize)
	r.shutdown.AddFunc("event_bus", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return r.bus.Shutdown(ctx)
	})
	r.history.Attach(r.bus)

	m, err := monitor.New(monitor.Config{
		Oracle:       r.oracle,
		Executor:     r.seller,
		Alerts:       r.alerts,
		Events:       r.bus,
		Clock:        r.clock,
		Metrics:      monitor.NewMetrics(r.registry),
		Logger:       r.logger.Named("monitor"),
		Rules:        rulesFromConfig(cfg.Monitor),
		PollInterval: cfg.Monitor.PollIntervalDuration(),
		CycleTimeout: cfg.Monitor.CycleTimeoutDuration(),
	})
	if err != nil {
		return fmt.Errorf("failed to create monitor: %w", err)
	}
	r.service = monitor.NewService(m, r.logger)

	r.logger.Info("✅ Exit manager initialized",
		zap.String("mode", cfg.Execution.Mode),
		zap.Duration("poll_interval", cfg.Monitor.PollIntervalDuration()),
		zap.Int("notifiers", len(r.notifiers)))
	return nil
}

func (r *Runner) buildSeller() execution.Seller {
	cfg := r.config.Execution

	var (
		seller execution.Seller
		venue  string
	)
	if cfg.Paper() {
		var prices execution.PriceSource
		if cfg.PaperPriceFromAPI {
			prices = r.oracle
		}
		seller, venue = execution.NewPaperSeller(prices, r.logger), "paper"
		r.logger.Warn("📝 Paper mode: sells are simulated")
	} else {
		seller = execution.NewJupiterSeller(execution.JupiterConfig{
			BaseURL:        cfg.JupiterURL,
			SlippageBps:    cfg.SlippageBps,
			PriorityFee:    cfg.PriorityFee,
			ConfirmTimeout: cfg.ConfirmTimeoutDuration(),
			Retries:        cfg.Retries,
		}, r.chain, r.wallet, r.logger)
		venue = "jupiter"
	}

	instrumented := execution.NewInstrumented(seller, venue, r.registry)
	return execution.NewThrottled(instrumented, cfg.SellsPerMinute, r.logger.Named("sell_limiter"))
}

func (r *Runner) buildNotifiers() ([]monitor.Notifier, error) {
	cfg := r.config.Notify

	var notifiers []monitor.Notifier
	if cfg.TelegramToken != "" {
		tg, err := notify.NewTelegram(notify.TelegramConfig{
			Token:  cfg.TelegramToken,
			ChatID: cfg.TelegramChatID,
		}, r.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to init telegram notifier: %w", err)
		}
		notifiers = append(notifiers, tg)
	}
	if cfg.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewWebhook(cfg.WebhookURL, 10*time.Second))
	}
	if len(notifiers) == 0 {
		r.logger.Info("No chat configured, alerts go to the log only")
		notifiers = append(notifiers, notify.NewLog(r.logger))
	}
	return notifiers, nil
}

func rulesFromConfig(c config.MonitorConfig) position.Rules {
	return position.Rules{
		TakeProfitMultiple:  decimal.NewFromFloat(c.TakeProfitMultiple),
		PartialExitFraction: decimal.NewFromFloat(c.PartialExitFraction),
		TrailingStopRatio:   decimal.NewFromFloat(c.TrailingStopRatio),
	}
}

// LoadPositions reads the positions file named in config.
func (r *Runner) LoadPositions() ([]position.Position, error) {
	positions, err := position.NewLoader(r.logger).LoadFile(r.config.PositionsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load positions from %s: %w", r.config.PositionsFile, err)
	}
	return positions, nil
}

// TokenBalance returns how many tokens of mint the wallet holds.
func (r *Runner) TokenBalance(ctx context.Context, mint string) (decimal.Decimal, error) {
	if r.wallet == nil {
		return decimal.Zero, fmt.Errorf("wallet not configured")
	}
	mintKey, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid token mint %q: %w", mint, err)
	}
	amount, err := r.chain.GetTokenBalance(ctx, r.wallet.PublicKey, mintKey)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(amount)
}

// StartMetrics serves /metrics on the configured address. An empty address disables it.
func (r *Runner) StartMetrics() error {
	addr := r.config.MetricsAddr
	if addr == "" {
		return nil
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))
	r.metricsSrv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	r.metricsLn = ln

	go func() {
		if err := r.metricsSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.Error("Metrics server stopped", zap.Error(err))
		}
	}()
	r.shutdown.AddFunc("metrics_server", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return r.metricsSrv.Shutdown(ctx)
	})

	r.logger.Info("📈 Metrics endpoint listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// Run monitors positions until every one is closed or ctx is cancelled.
// Positions that fail to start are logged and skipped.
func (r *Runner) Run(ctx context.Context, positions []position.Position) error {
	if r.service == nil {
		return fmt.Errorf("runner not initialized")
	}

	started := 0
	for _, pos := range positions {
		if _, err := r.service.Start(ctx, pos); err != nil {
			r.logger.Warn("Position not monitored",
				zap.String("token", pos.AssetID),
				zap.Error(err))
			continue
		}
		started++
	}
	if started == 0 {
		return fmt.Errorf("no position could be monitored")
	}
	r.logger.Info(fmt.Sprintf("📋 Monitoring %d positions", started))

	allDone := make(chan struct{})
	go func() {
		r.service.Wait()
		close(allDone)
	}()

	select {
	case <-allDone:
		r.logger.Info("✅ All positions closed")
	case <-ctx.Done():
		r.logger.Info("📡 Stop requested, finishing current cycles")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), r.config.Monitor.CycleTimeoutDuration()+5*time.Second)
		defer cancel()
		if err := r.service.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("monitor shutdown: %w", err)
		}
	}

	stats := r.history.GetStatistics()
	r.logger.Info("📊 Session summary",
		zap.Int("sells", stats.SuccessfulTrades),
		zap.Int("failed_sells", stats.FailedTrades),
		zap.String("proceeds_sol", stats.ProceedsSOL.StringFixed(6)),
		zap.String("realized_pnl_sol", stats.RealizedPnL.StringFixed(6)))
	return nil
}

// writeReport exports the session's sells as JSON next to the journal.
func (r *Runner) writeReport() error {
	trades := r.history.GetRecentTrades(0)
	if len(trades) == 0 {
		return nil
	}
	path, err := export.NewTradeExporter(r.logger.Named("export")).ExportTrades(trades, export.ExportOptions{
		Format:    export.FormatJSON,
		OutputDir: filepath.Join(r.config.JournalDir, "reports"),
	})
	if err != nil {
		return fmt.Errorf("trade report: %w", err)
	}
	r.reportPath = path
	return nil
}

// ReportPath is the last report written by Close, empty when there were no sells.
func (r *Runner) ReportPath() string { return r.reportPath }

// Close releases every service in reverse start order.
func (r *Runner) Close(ctx context.Context) error {
	r.logger.Info("👋 Bot shutting down gracefully")
	return r.shutdown.Shutdown(ctx)
}

// TransferSOL sends sol from the configured wallet to recipient.
func (r *Runner) TransferSOL(ctx context.Context, recipient string, sol decimal.Decimal) (solana.Signature, error) {
	if r.wallet == nil {
		return solana.Signature{}, fmt.Errorf("wallet not configured")
	}
	to, err := solana.PublicKeyFromBase58(recipient)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("invalid recipient %q: %w", recipient, err)
	}
	return solbc.TransferSOL(ctx, r.chain, r.wallet, to, sol, r.logger)
}

func (r *Runner) Service() *monitor.Service      { return r.service }
func (r *Runner) Alerts() *monitor.AlertManager  { return r.alerts }
func (r *Runner) Events() *events.Bus            { return r.bus }
func (r *Runner) History() *monitor.TradeHistory { return r.history }
func (r *Runner) Registry() *prometheus.Registry { return r.registry }
func (r *Runner) MetricsAddr() string            { return addrOf(r.metricsLn) }
func (r *Runner) Wallet() *wallet.Wallet         { return r.wallet }
func (r *Runner) Config() *config.Config         { return r.config }
func (r *Runner) Logger() *zap.Logger            { return r.logger }

func addrOf(ln net.Listener) string {
	if ln == nil {
		return ""
	}
	return ln.Addr().String()
}
