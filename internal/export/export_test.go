package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/moonbag/internal/monitor"
)

const (
	mintA = "MintAAAAbbbbCCCCddddEEEEffff1111"
	mintB = "MintBBBBbbbbCCCCddddEEEEffff2222"
)

func generateTestTrades() []monitor.Trade {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	d := decimal.RequireFromString
	return []monitor.Trade{
		{ID: "3", Timestamp: base.Add(2 * time.Hour), TokenMint: mintA, Label: "POPCAT", Rule: "trailing_stop",
			Quantity: d("500"), Price: d("1.5"), EntryPrice: d("1"), PeakPrice: d("2.5"), Success: true},
		{ID: "1", Timestamp: base, TokenMint: mintA, Label: "POPCAT", Rule: "take_profit",
			Quantity: d("500"), Price: d("2.5"), EntryPrice: d("1"), PeakPrice: d("2.5"), Success: true},
		{ID: "2", Timestamp: base.Add(time.Hour), TokenMint: mintB, Rule: "take_profit",
			Quantity: d("100"), Price: d("0.2"), EntryPrice: d("0.1"), Success: false, ErrorMsg: "sell rejected"},
	}
}

func newExporter(t *testing.T) *TradeExporter {
	te := NewTradeExporter(zaptest.NewLogger(t))
	te.now = func() time.Time { return time.Date(2025, 3, 2, 9, 30, 0, 0, time.UTC) }
	return te
}

func TestTradeExportCSV(t *testing.T) {
	dir := t.TempDir()
	path, err := newExporter(t).ExportTrades(generateTestTrades(), ExportOptions{Format: FormatCSV, OutputDir: dir})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "exits_all_20250302_093000.csv"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 4)
	assert.Equal(t, monitor.CSVHeaders(), records[0])
	// Sorted by time.
	assert.Equal(t, "1", records[1][0])
	assert.Equal(t, "3", records[3][0])
}

func TestTradeExportJSON(t *testing.T) {
	path, err := newExporter(t).ExportTrades(generateTestTrades(), ExportOptions{Format: FormatJSON, OutputDir: t.TempDir()})
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var report Report
	require.NoError(t, json.Unmarshal(raw, &report))

	s := report.Summary
	assert.Equal(t, 3, s.TotalTrades)
	assert.Equal(t, 2, s.SuccessfulTrades)
	assert.Equal(t, 1, s.FailedTrades)
	assert.Equal(t, 1, s.TakeProfits)
	assert.Equal(t, 1, s.TrailingStops)
	assert.Equal(t, 2, s.UniqueTokens)
	assert.Equal(t, 2, s.WinCount)
	assert.True(t, s.ProceedsSOL.Equal(decimal.NewFromInt(2000)), s.ProceedsSOL.String())
	assert.True(t, s.RealizedPnL.Equal(decimal.NewFromInt(1000)), s.RealizedPnL.String())

	require.Len(t, report.Tokens, 1)
	assert.Equal(t, mintA, report.Tokens[0].TokenMint)
	assert.True(t, report.Tokens[0].Closed)
	assert.True(t, report.Tokens[0].Sold.Equal(decimal.NewFromInt(1000)))
}

func TestTradeExportFilters(t *testing.T) {
	te := newExporter(t)
	dir := t.TempDir()

	path, err := te.ExportTrades(generateTestTrades(), ExportOptions{
		Format:      FormatCSV,
		RuleFilter:  "take_profit",
		OnlySuccess: true,
		OutputDir:   dir,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "exits_take_profit_"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(strings.TrimSpace(string(raw)), "\n")+1)

	_, err = te.ExportTrades(generateTestTrades(), ExportOptions{Format: FormatCSV, TokenFilter: "nope", OutputDir: dir})
	assert.Error(t, err)

	_, err = te.ExportTrades(generateTestTrades(), ExportOptions{Format: "xml", OutputDir: dir})
	assert.Error(t, err)
}
