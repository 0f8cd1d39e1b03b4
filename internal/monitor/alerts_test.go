package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type captureNotifier struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (n *captureNotifier) Notify(_ context.Context, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
	return n.err
}

func TestAlertManager_DeliversExitAlerts(t *testing.T) {
	n := &captureNotifier{}
	am := NewAlertManager(DefaultAlertConfig(), zaptest.NewLogger(t), n)

	pos := openPosition()
	require.NoError(t, am.Raise(context.Background(), newExitAlert(AlertTakeProfit, pos, d("2"), d("500"), "sig1")))
	require.NoError(t, am.Raise(context.Background(), newExitAlert(AlertTrailingStop, pos, d("2"), d("500"), "sig2")))

	require.Len(t, n.messages, 2)
	assert.Contains(t, n.messages[0], "💰 Take-profit fired")
	assert.Contains(t, n.messages[1], "📉 Trailing stop fired")

	recent := am.GetRecentAlerts(1)
	require.Len(t, recent, 1)
	assert.Equal(t, AlertTrailingStop, recent[0].Type)
	assert.NotEmpty(t, recent[0].ID)
}

func TestAlertManager_SellFailedCooldown(t *testing.T) {
	n := &captureNotifier{}
	am := NewAlertManager(AlertConfig{CooldownDuration: time.Minute}, zaptest.NewLogger(t), n)
	now := time.Unix(1_700_000_000, 0)
	am.now = func() time.Time { return now }

	pos := openPosition()
	alert := newSellFailedAlert(pos, "take_profit", d("2"), d("500"), errors.New("boom"))

	require.NoError(t, am.Raise(context.Background(), alert))
	assert.ErrorIs(t, am.Raise(context.Background(), alert), ErrAlertSuppressed)

	now = now.Add(2 * time.Minute)
	require.NoError(t, am.Raise(context.Background(), alert))
	assert.Len(t, n.messages, 2)

	am.ClearHistory()
	require.NoError(t, am.Raise(context.Background(), alert))
	assert.Len(t, am.GetAlertsByToken(pos.AssetID), 3)
}

func TestAlertManager_JoinsNotifierErrors(t *testing.T) {
	bad := &captureNotifier{err: errors.New("chat not found")}
	good := &captureNotifier{}
	am := NewAlertManager(DefaultAlertConfig(), zaptest.NewLogger(t), bad, good)

	err := am.Raise(context.Background(), newExitAlert(AlertTakeProfit, openPosition(), d("2"), d("1"), ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
	assert.Len(t, good.messages, 1)
}

func TestAlertManager_HistoryIsBounded(t *testing.T) {
	am := NewAlertManager(AlertConfig{MaxAlerts: 2}, zaptest.NewLogger(t))
	for i := 0; i < 5; i++ {
		require.NoError(t, am.Raise(context.Background(), Alert{Type: AlertTakeProfit, TokenMint: "m"}))
	}
	assert.Len(t, am.GetRecentAlerts(0), 2)
}

func TestAlertManager_Handlers(t *testing.T) {
	am := NewAlertManager(DefaultAlertConfig(), zaptest.NewLogger(t))
	got := make(chan Alert, 1)
	am.AddHandler(func(a Alert) { got <- a })

	require.NoError(t, am.Raise(context.Background(), Alert{Type: AlertSellFailed, TokenMint: "m"}))
	select {
	case a := <-got:
		assert.Equal(t, AlertSellFailed, a.Type)
	case <-time.After(time.Second):
		t.Fatal("handler not called")
	}
}
