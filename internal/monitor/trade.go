package monitor

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Trade is one exit sell attempt as recorded in the journal.
type Trade struct {
	ID          string          `json:"id"`
	Timestamp   time.Time       `json:"timestamp"`
	TokenMint   string          `json:"token_mint"`
	Label       string          `json:"label"`
	Rule        string          `json:"rule"` // take_profit | trailing_stop
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	EntryPrice  decimal.Decimal `json:"entry_price"`
	PeakPrice   decimal.Decimal `json:"peak_price"`
	TxSignature string          `json:"tx_signature"`
	HoldTime    string          `json:"hold_time,omitempty"`
	Success     bool            `json:"success"`
	ErrorMsg    string          `json:"error_msg,omitempty"`
}

// ProceedsSOL is the SOL received for the sold quantity.
func (t *Trade) ProceedsSOL() decimal.Decimal {
	return t.Quantity.Mul(t.Price)
}

// PnL is the realized profit in SOL against the entry price.
func (t *Trade) PnL() decimal.Decimal {
	return t.Price.Sub(t.EntryPrice).Mul(t.Quantity)
}

// PnLPercent is the price change against entry, in percent.
func (t *Trade) PnLPercent() decimal.Decimal {
	if !t.EntryPrice.IsPositive() {
		return decimal.Zero
	}
	return t.Price.Div(t.EntryPrice).Sub(decimal.NewFromInt(1)).Mul(decimal.NewFromInt(100))
}

// ToCSV converts trade to CSV record
func (t *Trade) ToCSV() []string {
	var pnl, pnlPct, proceeds string
	if t.Success {
		pnl = t.PnL().StringFixed(9)
		pnlPct = t.PnLPercent().StringFixed(2)
		proceeds = t.ProceedsSOL().StringFixed(9)
	}
	return []string{
		t.ID,
		t.Timestamp.Format(time.RFC3339),
		t.TokenMint,
		t.Label,
		t.Rule,
		t.Quantity.String(),
		t.Price.String(),
		t.EntryPrice.String(),
		t.PeakPrice.String(),
		proceeds,
		pnl,
		pnlPct,
		t.HoldTime,
		t.TxSignature,
		formatBool(t.Success),
		t.ErrorMsg,
	}
}

// CSVHeaders returns the header row for trade CSV files
func CSVHeaders() []string {
	return []string{
		"id",
		"timestamp",
		"token_mint",
		"label",
		"rule",
		"quantity",
		"price",
		"entry_price",
		"peak_price",
		"proceeds_sol",
		"pnl_sol",
		"pnl_percent",
		"hold_time",
		"tx_signature",
		"success",
		"error_msg",
	}
}

func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// CalculateHoldTime calculates the duration between entry and exit
func CalculateHoldTime(start, end time.Time) string {
	duration := end.Sub(start)
	switch {
	case duration < time.Minute:
		return fmt.Sprintf("%ds", int(duration.Seconds()))
	case duration < time.Hour:
		return fmt.Sprintf("%dm", int(duration.Minutes()))
	case duration < 24*time.Hour:
		return fmt.Sprintf("%dh%dm", int(duration.Hours()), int(duration.Minutes())%60)
	}
	days := int(duration.Hours() / 24)
	hours := int(duration.Hours()) % 24
	return fmt.Sprintf("%dd%dh", days, hours)
}
