package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/moonbag/internal/position"
)

// AlertType represents different types of alerts
type AlertType string

const (
	AlertTakeProfit   AlertType = "take_profit"
	AlertTrailingStop AlertType = "trailing_stop"
	AlertSellFailed   AlertType = "sell_failed"
)

// ErrAlertSuppressed is returned when an alert falls inside its cooldown window.
var ErrAlertSuppressed = errors.New("alert suppressed by cooldown")

// Alert represents a triggered alert
type Alert struct {
	ID          string    `json:"id"`
	Type        AlertType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	TokenMint   string    `json:"token_mint"`
	TokenSymbol string    `json:"token_symbol"`
	Message     string    `json:"message"`
	Details     string    `json:"details"`
	Severity    string    `json:"severity"` // "info", "warning", "critical"

	Price     string `json:"price,omitempty"`
	Quantity  string `json:"quantity,omitempty"`
	Signature string `json:"signature,omitempty"`
}

// Text renders the alert as a chat message.
func (a Alert) Text() string {
	icon := "ℹ️"
	switch a.Type {
	case AlertTakeProfit:
		icon = "💰"
	case AlertTrailingStop:
		icon = "📉"
	case AlertSellFailed:
		icon = "❌"
	}
	if a.Details == "" {
		return fmt.Sprintf("%s %s", icon, a.Message)
	}
	return fmt.Sprintf("%s %s\n%s", icon, a.Message, a.Details)
}

func newExitAlert(t AlertType, pos position.Position, price, qty decimal.Decimal, sig string) Alert {
	msg := fmt.Sprintf("Take-profit fired for %s: sold %s at %s SOL", pos.Name(), qty, price)
	details := fmt.Sprintf("Moonbag left: %s, entry %s SOL", pos.RemainingQuantity, pos.EntryPrice)
	if t == AlertTrailingStop {
		msg = fmt.Sprintf("Trailing stop fired for %s: sold %s at %s SOL", pos.Name(), qty, price)
		details = fmt.Sprintf("Peak %s SOL, position closed", pos.PeakPrice)
	}
	return Alert{
		Type:        t,
		TokenMint:   pos.AssetID,
		TokenSymbol: pos.Name(),
		Message:     msg,
		Details:     details,
		Severity:    "info",
		Price:       price.String(),
		Quantity:    qty.String(),
		Signature:   sig,
	}
}

func newSellFailedAlert(pos position.Position, rule string, price, qty decimal.Decimal, err error) Alert {
	return Alert{
		Type:        AlertSellFailed,
		TokenMint:   pos.AssetID,
		TokenSymbol: pos.Name(),
		Message:     fmt.Sprintf("Sell failed for %s (%s), retrying next cycle", pos.Name(), rule),
		Details:     fmt.Sprintf("Quantity %s at %s SOL: %v", qty, price, err),
		Severity:    "warning",
		Price:       price.String(),
		Quantity:    qty.String(),
	}
}

// Notifier delivers alert text to a chat or webhook.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// AlertConfig holds alert configuration
type AlertConfig struct {
	// Repeated sell_failed alerts for one token are muted for this long.
	// Exit alerts always go through; they fire at most once per position.
	CooldownDuration time.Duration `json:"cooldown_duration"`

	// Maximum alerts kept in memory
	MaxAlerts int `json:"max_alerts"`
}

// DefaultAlertConfig returns default alert configuration
func DefaultAlertConfig() AlertConfig {
	return AlertConfig{
		CooldownDuration: 15 * time.Minute,
		MaxAlerts:        1000,
	}
}

// AlertHandler is called when an alert is triggered
type AlertHandler func(alert Alert)

// AlertManager records alerts and forwards them to notifiers.
type AlertManager struct {
	mu     sync.RWMutex
	config AlertConfig
	logger *zap.Logger
	now    func() time.Time

	alerts       []Alert
	alertHistory map[string]time.Time // token|type -> last alert time

	notifiers []Notifier
	handlers  []AlertHandler
}

// NewAlertManager creates a new alert manager
func NewAlertManager(config AlertConfig, logger *zap.Logger, notifiers ...Notifier) *AlertManager {
	if config.MaxAlerts <= 0 {
		config.MaxAlerts = DefaultAlertConfig().MaxAlerts
	}
	return &AlertManager{
		config:       config,
		logger:       logger,
		now:          time.Now,
		alerts:       make([]Alert, 0, 100),
		alertHistory: make(map[string]time.Time),
		notifiers:    notifiers,
	}
}

// AddHandler adds an in-process alert handler (UI, tests).
func (am *AlertManager) AddHandler(handler AlertHandler) {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.handlers = append(am.handlers, handler)
}

// Raise records the alert and delivers it to every notifier.
// It returns ErrAlertSuppressed inside the cooldown and the joined notifier errors otherwise.
func (am *AlertManager) Raise(ctx context.Context, alert Alert) error {
	am.mu.Lock()
	now := am.now()
	if alert.Type == AlertSellFailed && am.config.CooldownDuration > 0 {
		key := alert.TokenMint + "|" + string(alert.Type)
		if last, ok := am.alertHistory[key]; ok && now.Sub(last) < am.config.CooldownDuration {
			am.mu.Unlock()
			return ErrAlertSuppressed
		}
		am.alertHistory[key] = now
	}

	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	if alert.Timestamp.IsZero() {
		alert.Timestamp = now
	}
	if len(am.alerts) >= am.config.MaxAlerts {
		am.alerts = am.alerts[1:]
	}
	am.alerts = append(am.alerts, alert)

	notifiers := append([]Notifier(nil), am.notifiers...)
	handlers := append([]AlertHandler(nil), am.handlers...)
	am.mu.Unlock()

	am.log(alert)
	for _, handler := range handlers {
		go handler(alert)
	}

	var errs []error
	text := alert.Text()
	for _, n := range notifiers {
		if err := n.Notify(ctx, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (am *AlertManager) log(alert Alert) {
	fields := []zap.Field{
		zap.String("type", string(alert.Type)),
		zap.String("token", alert.TokenSymbol),
		zap.String("message", alert.Message),
	}
	switch alert.Severity {
	case "critical":
		am.logger.Error("Alert triggered", fields...)
	case "warning":
		am.logger.Warn("Alert triggered", fields...)
	default:
		am.logger.Info("Alert triggered", fields...)
	}
}

// GetRecentAlerts returns recent alerts
func (am *AlertManager) GetRecentAlerts(limit int) []Alert {
	am.mu.RLock()
	defer am.mu.RUnlock()

	if limit <= 0 || limit > len(am.alerts) {
		limit = len(am.alerts)
	}

	result := make([]Alert, limit)
	copy(result, am.alerts[len(am.alerts)-limit:])
	return result
}

// GetAlertsByToken returns alerts for a specific token
func (am *AlertManager) GetAlertsByToken(tokenMint string) []Alert {
	am.mu.RLock()
	defer am.mu.RUnlock()

	var result []Alert
	for _, alert := range am.alerts {
		if alert.TokenMint == tokenMint {
			result = append(result, alert)
		}
	}
	return result
}

// ClearHistory clears the alert cooldown history
func (am *AlertManager) ClearHistory() {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.alertHistory = make(map[string]time.Time)
}
