package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv(EnvRPCURL, "")
	t.Setenv(EnvPrivateKey, "")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, DefaultRPCURL, cfg.RPCURL)
	assert.Equal(t, 60*time.Second, cfg.Monitor.PollIntervalDuration())
	assert.Equal(t, 90*time.Second, cfg.Monitor.CycleTimeoutDuration())
	assert.Equal(t, 2.0, cfg.Monitor.TakeProfitMultiple)
	assert.Equal(t, 0.5, cfg.Monitor.PartialExitFraction)
	assert.Equal(t, 0.7, cfg.Monitor.TrailingStopRatio)
	assert.Equal(t, 2*time.Second, cfg.Price.CacheTTLDuration())
	assert.False(t, cfg.Execution.Paper())
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfig_FileAndEnvironment(t *testing.T) {
	path := writeConfig(t, `
rpc_url: https://rpc.example.org
monitor:
  poll_interval: 15
execution:
  mode: paper
notify:
  webhook_url: https://hooks.example.org/x
`)
	t.Setenv(EnvRPCURL, "https://override.example.org")
	t.Setenv(EnvPrivateKey, "[1,2,3]")
	t.Setenv("MOONBAG_EXECUTION_SLIPPAGE_BPS", "150")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://override.example.org", cfg.RPCURL)
	assert.Equal(t, "[1,2,3]", cfg.PrivateKey)
	assert.Equal(t, 15*time.Second, cfg.Monitor.PollIntervalDuration())
	assert.True(t, cfg.Execution.Paper())
	assert.Equal(t, 150, cfg.Execution.SlippageBps)
	assert.Equal(t, "https://hooks.example.org/x", cfg.Notify.WebhookURL)
}

func TestLoadConfig_Validation(t *testing.T) {
	t.Setenv(EnvRPCURL, "")

	tests := []struct {
		name string
		body string
	}{
		{"bad mode", "execution:\n  mode: yolo\n"},
		{"ratio out of range", "monitor:\n  trailing_stop_ratio: 1.2\n"},
		{"multiple not a gain", "monitor:\n  take_profit_multiple: 1\n"},
		{"fraction sells everything", "monitor:\n  partial_exit_fraction: 1\n"},
		{"plain http webhook", "notify:\n  webhook_url: http://hooks.example.org\n"},
		{"rpc scheme", "rpc_url: ws://rpc.example.org\n"},
		{"telegram without chat", "notify:\n  telegram_token: abc\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
