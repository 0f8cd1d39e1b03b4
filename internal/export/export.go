package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/moonbag/internal/monitor"
	"github.com/rovshanmuradov/moonbag/internal/position"
)

// ExportFormat represents the export file format
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// ExportOptions configures the export behavior
type ExportOptions struct {
	Format      ExportFormat
	StartTime   time.Time
	EndTime     time.Time
	TokenFilter string // Filter by token mint
	RuleFilter  string // take_profit | trailing_stop
	OnlySuccess bool   // Only export successful sells
	OutputDir   string
}

// TradeExporter writes exit sells to report files
type TradeExporter struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewTradeExporter creates a new trade exporter
func NewTradeExporter(logger *zap.Logger) *TradeExporter {
	return &TradeExporter{
		logger: logger,
		now:    time.Now,
	}
}

// ExportTrades exports trades based on the provided options
func (te *TradeExporter) ExportTrades(trades []monitor.Trade, options ExportOptions) (string, error) {
	filtered := te.filterTrades(trades, options)
	if len(filtered) == 0 {
		return "", fmt.Errorf("no trades match the export criteria")
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].Timestamp.Before(filtered[j].Timestamp)
	})

	outputPath := filepath.Join(options.OutputDir, te.generateFilename(options))
	if err := os.MkdirAll(options.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	switch options.Format {
	case FormatCSV:
		err = te.exportToCSV(filtered, outputPath)
	case FormatJSON:
		err = te.exportToJSON(filtered, outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}
	if err != nil {
		return "", err
	}

	te.logger.Info("Trades exported",
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(options.Format)))
	return outputPath, nil
}

// filterTrades applies filters to the trade list
func (te *TradeExporter) filterTrades(trades []monitor.Trade, options ExportOptions) []monitor.Trade {
	var filtered []monitor.Trade
	for _, trade := range trades {
		if !options.StartTime.IsZero() && trade.Timestamp.Before(options.StartTime) {
			continue
		}
		if !options.EndTime.IsZero() && trade.Timestamp.After(options.EndTime) {
			continue
		}
		if options.TokenFilter != "" && trade.TokenMint != options.TokenFilter {
			continue
		}
		if options.RuleFilter != "" && trade.Rule != options.RuleFilter {
			continue
		}
		if options.OnlySuccess && !trade.Success {
			continue
		}
		filtered = append(filtered, trade)
	}
	return filtered
}

// generateFilename creates a filename based on export options
func (te *TradeExporter) generateFilename(options ExportOptions) string {
	prefix := "exits_all"
	if options.RuleFilter != "" {
		prefix = "exits_" + options.RuleFilter
	}
	if options.TokenFilter != "" && len(options.TokenFilter) >= 8 {
		prefix += "_" + options.TokenFilter[:8]
	}
	return fmt.Sprintf("%s_%s.%s", prefix, te.now().Format("20060102_150405"), options.Format)
}

// exportToCSV exports trades to CSV format
func (te *TradeExporter) exportToCSV(trades []monitor.Trade, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(monitor.CSVHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, trade := range trades {
		if err := writer.Write(trade.ToCSV()); err != nil {
			return fmt.Errorf("failed to write trade: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// Report is the JSON export document.
type Report struct {
	ExportTime time.Time        `json:"export_time"`
	TradeCount int              `json:"trade_count"`
	Summary    ExportSummary    `json:"summary"`
	Tokens     []TokenBreakdown `json:"tokens"`
	Trades     []monitor.Trade  `json:"trades"`
}

// exportToJSON exports trades to JSON format
func (te *TradeExporter) exportToJSON(trades []monitor.Trade, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	report := Report{
		ExportTime: te.now(),
		TradeCount: len(trades),
		Summary:    calculateSummary(trades),
		Tokens:     tokenBreakdown(trades),
		Trades:     trades,
	}
	if err := encoder.Encode(report); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// ExportSummary contains summary statistics for exported trades
type ExportSummary struct {
	TotalTrades      int             `json:"total_trades"`
	SuccessfulTrades int             `json:"successful_trades"`
	FailedTrades     int             `json:"failed_trades"`
	TakeProfits      int             `json:"take_profits"`
	TrailingStops    int             `json:"trailing_stops"`
	UniqueTokens     int             `json:"unique_tokens"`
	ProceedsSOL      decimal.Decimal `json:"proceeds_sol"`
	RealizedPnL      decimal.Decimal `json:"realized_pnl_sol"`
	WinCount         int             `json:"win_count"`
	LossCount        int             `json:"loss_count"`
	StartDate        time.Time       `json:"start_date"`
	EndDate          time.Time       `json:"end_date"`
}

// calculateSummary expects trades sorted by time.
func calculateSummary(trades []monitor.Trade) ExportSummary {
	summary := ExportSummary{
		TotalTrades: len(trades),
		ProceedsSOL: decimal.Zero,
		RealizedPnL: decimal.Zero,
	}
	if len(trades) == 0 {
		return summary
	}

	summary.StartDate = trades[0].Timestamp
	summary.EndDate = trades[len(trades)-1].Timestamp

	tokenSet := make(map[string]bool)
	for i := range trades {
		trade := &trades[i]
		tokenSet[trade.TokenMint] = true

		if !trade.Success {
			summary.FailedTrades++
			continue
		}
		summary.SuccessfulTrades++
		switch trade.Rule {
		case position.ActionTakeProfit.String():
			summary.TakeProfits++
		case position.ActionTrailingStop.String():
			summary.TrailingStops++
		}

		pnl := trade.PnL()
		summary.ProceedsSOL = summary.ProceedsSOL.Add(trade.ProceedsSOL())
		summary.RealizedPnL = summary.RealizedPnL.Add(pnl)
		if pnl.IsPositive() {
			summary.WinCount++
		} else if pnl.IsNegative() {
			summary.LossCount++
		}
	}
	summary.UniqueTokens = len(tokenSet)
	return summary
}

// TokenBreakdown is the realized result of one position.
type TokenBreakdown struct {
	TokenMint   string          `json:"token_mint"`
	Label       string          `json:"label,omitempty"`
	Sold        decimal.Decimal `json:"sold"`
	ProceedsSOL decimal.Decimal `json:"proceeds_sol"`
	RealizedPnL decimal.Decimal `json:"realized_pnl_sol"`
	Closed      bool            `json:"closed"` // trailing stop executed
}

func tokenBreakdown(trades []monitor.Trade) []TokenBreakdown {
	byToken := make(map[string]*TokenBreakdown)
	var order []string
	for i := range trades {
		trade := &trades[i]
		if !trade.Success {
			continue
		}
		tb, ok := byToken[trade.TokenMint]
		if !ok {
			tb = &TokenBreakdown{
				TokenMint:   trade.TokenMint,
				Label:       trade.Label,
				Sold:        decimal.Zero,
				ProceedsSOL: decimal.Zero,
				RealizedPnL: decimal.Zero,
			}
			byToken[trade.TokenMint] = tb
			order = append(order, trade.TokenMint)
		}
		tb.Sold = tb.Sold.Add(trade.Quantity)
		tb.ProceedsSOL = tb.ProceedsSOL.Add(trade.ProceedsSOL())
		tb.RealizedPnL = tb.RealizedPnL.Add(trade.PnL())
		if trade.Rule == position.ActionTrailingStop.String() {
			tb.Closed = true
		}
	}

	result := make([]TokenBreakdown, 0, len(order))
	for _, mint := range order {
		result = append(result, *byToken[mint])
	}
	return result
}
