package monitor

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/moonbag/internal/events"
	"github.com/rovshanmuradov/moonbag/internal/logger"
)

// TradeHistory journals exit sells to CSV and keeps the latest ones in memory.
type TradeHistory struct {
	mu        sync.RWMutex
	csvWriter *logger.SafeCSVWriter
	trades    []Trade
	maxTrades int
	started   map[string]time.Time // token -> monitoring start
	logger    *zap.Logger
	sub       events.Subscription

	totalTrades      int
	successfulTrades int
	realizedPnL      decimal.Decimal
	proceeds         decimal.Decimal
}

// NewTradeHistory creates trades/trades_<timestamp>.csv under logDir.
func NewTradeHistory(logDir string, maxTrades int, zapLogger *zap.Logger) (*TradeHistory, error) {
	filename := fmt.Sprintf("trades_%s.csv", time.Now().Format("20060102_150405"))
	csvPath := filepath.Join(logDir, "trades", filename)

	csvWriter, err := logger.NewSafeCSVWriter(csvPath, CSVHeaders(), 30*time.Second, zapLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV writer: %w", err)
	}
	if maxTrades <= 0 {
		maxTrades = 500
	}

	zapLogger.Info("Trade history initialized",
		zap.String("csv_file", csvPath),
		zap.Int("max_memory_trades", maxTrades))

	return &TradeHistory{
		csvWriter: csvWriter,
		trades:    make([]Trade, 0, maxTrades),
		maxTrades: maxTrades,
		started:   make(map[string]time.Time),
		logger:    zapLogger,
	}, nil
}

// Attach subscribes the history to exit and lifecycle events on bus.
func (th *TradeHistory) Attach(bus *events.Bus) {
	th.sub = bus.Subscribe(th,
		events.MonitoringStarted,
		events.TakeProfitFired,
		events.TrailingStopFired,
		events.SellFailed)
}

// Handle implements events.Handler.
func (th *TradeHistory) Handle(_ context.Context, event events.Event) error {
	switch e := event.(type) {
	case *events.MonitoringStartedEvent:
		th.mu.Lock()
		th.started[e.TokenMint] = e.Timestamp()
		th.mu.Unlock()
		return nil
	case *events.ExitEvent:
		return th.LogTrade(th.tradeFromEvent(e))
	}
	return nil
}

func (th *TradeHistory) tradeFromEvent(e *events.ExitEvent) Trade {
	trade := Trade{
		Timestamp:   e.Timestamp(),
		TokenMint:   e.TokenMint,
		Label:       e.Label,
		Rule:        e.Rule,
		Quantity:    e.Quantity,
		Price:       e.Price,
		EntryPrice:  e.EntryPrice,
		PeakPrice:   e.PeakPrice,
		TxSignature: e.Signature,
		Success:     e.Type() != events.SellFailed,
	}
	if e.Error != nil {
		trade.ErrorMsg = e.Error.Error()
	}

	th.mu.RLock()
	start, ok := th.started[e.TokenMint]
	th.mu.RUnlock()
	if ok && trade.Success {
		trade.HoldTime = CalculateHoldTime(start, trade.Timestamp)
	}
	return trade
}

// LogTrade logs a new trade
func (th *TradeHistory) LogTrade(trade Trade) error {
	th.mu.Lock()
	defer th.mu.Unlock()

	if trade.ID == "" {
		trade.ID = uuid.New().String()
	}
	if trade.Timestamp.IsZero() {
		trade.Timestamp = time.Now()
	}

	if err := th.csvWriter.WriteRecord(trade.ToCSV()); err != nil {
		th.logger.Error("Failed to write trade to CSV",
			zap.String("trade_id", trade.ID),
			zap.Error(err))
		return fmt.Errorf("failed to write trade: %w", err)
	}

	if len(th.trades) >= th.maxTrades {
		th.trades = th.trades[1:]
	}
	th.trades = append(th.trades, trade)

	th.totalTrades++
	if trade.Success {
		th.successfulTrades++
		th.realizedPnL = th.realizedPnL.Add(trade.PnL())
		th.proceeds = th.proceeds.Add(trade.ProceedsSOL())
	}

	th.logger.Debug("Trade logged",
		zap.String("id", trade.ID),
		zap.String("rule", trade.Rule),
		zap.String("token", trade.TokenMint),
		zap.Bool("success", trade.Success))
	return nil
}

// GetRecentTrades returns recent trades from memory
func (th *TradeHistory) GetRecentTrades(limit int) []Trade {
	th.mu.RLock()
	defer th.mu.RUnlock()

	if limit <= 0 || limit > len(th.trades) {
		limit = len(th.trades)
	}
	result := make([]Trade, limit)
	copy(result, th.trades[len(th.trades)-limit:])
	return result
}

// GetTradesByToken returns all trades for a specific token
func (th *TradeHistory) GetTradesByToken(tokenMint string) []Trade {
	th.mu.RLock()
	defer th.mu.RUnlock()

	var result []Trade
	for _, trade := range th.trades {
		if trade.TokenMint == tokenMint {
			result = append(result, trade)
		}
	}
	return result
}

// TradeStatistics holds aggregate trade statistics
type TradeStatistics struct {
	TotalTrades      int             `json:"total_trades"`
	SuccessfulTrades int             `json:"successful_trades"`
	FailedTrades     int             `json:"failed_trades"`
	RealizedPnL      decimal.Decimal `json:"realized_pnl"`
	ProceedsSOL      decimal.Decimal `json:"proceeds_sol"`
}

// GetStatistics returns trading statistics
func (th *TradeHistory) GetStatistics() TradeStatistics {
	th.mu.RLock()
	defer th.mu.RUnlock()
	return th.statsLocked()
}

func (th *TradeHistory) statsLocked() TradeStatistics {
	return TradeStatistics{
		TotalTrades:      th.totalTrades,
		SuccessfulTrades: th.successfulTrades,
		FailedTrades:     th.totalTrades - th.successfulTrades,
		RealizedPnL:      th.realizedPnL,
		ProceedsSOL:      th.proceeds,
	}
}

// Flush forces a write of any buffered trades
func (th *TradeHistory) Flush() error {
	return th.csvWriter.Flush()
}

// Path returns the CSV file of this session.
func (th *TradeHistory) Path() string {
	return th.csvWriter.Path()
}

// Close detaches from the bus and flushes the journal.
func (th *TradeHistory) Close() error {
	if th.sub != nil {
		th.sub.Unsubscribe()
	}

	th.mu.Lock()
	defer th.mu.Unlock()

	stats := th.statsLocked()
	th.logger.Info("Closing trade history",
		zap.Int("total_trades", stats.TotalTrades),
		zap.Int("failed_trades", stats.FailedTrades),
		zap.String("realized_pnl_sol", stats.RealizedPnL.StringFixed(6)))

	return th.csvWriter.Close()
}
