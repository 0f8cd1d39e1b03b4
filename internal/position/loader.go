// =============================================
// File: internal/position/loader.go
// =============================================
package position

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// File represents the structure of the positions YAML file
type File struct {
	Positions []struct {
		Label      string `yaml:"label"`
		TokenMint  string `yaml:"token_mint"`
		EntryPrice string `yaml:"entry_price"` // SOL per token, kept as text to avoid float rounding
		Quantity   string `yaml:"quantity"`    // tokens held after the buy
	} `yaml:"positions"`
}

// Loader reads positions handed over by the entry side of the bot.
type Loader struct {
	logger *zap.Logger
}

// NewLoader constructs a Loader with the given logger.
func NewLoader(logger *zap.Logger) *Loader {
	return &Loader{logger: logger}
}

// LoadFile reads positions from a YAML file. Invalid rows are skipped with a warning.
func (l *Loader) LoadFile(path string) ([]Position, error) {
	if filepath.IsAbs(path) {
		l.logger.Debug("Using absolute path for positions file", zap.String("path", path))
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return l.Parse(data)
}

// Parse decodes positions from raw YAML.
func (l *Loader) Parse(data []byte) ([]Position, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if len(file.Positions) == 0 {
		return nil, fmt.Errorf("no positions found in file")
	}

	seen := make(map[string]bool, len(file.Positions))
	positions := make([]Position, 0, len(file.Positions))
	for i, row := range file.Positions {
		entry, err := decimal.NewFromString(row.EntryPrice)
		if err != nil {
			l.logger.Warn("Skipping position with invalid entry price",
				zap.Int("row", i), zap.String("entry_price", row.EntryPrice), zap.Error(err))
			continue
		}
		qty, err := decimal.NewFromString(row.Quantity)
		if err != nil {
			l.logger.Warn("Skipping position with invalid quantity",
				zap.Int("row", i), zap.String("quantity", row.Quantity), zap.Error(err))
			continue
		}

		p := New(row.TokenMint, entry, qty)
		p.Label = row.Label
		if err := p.Validate(); err != nil {
			l.logger.Warn("Skipping invalid position", zap.Int("row", i), zap.Error(err))
			continue
		}
		if seen[p.AssetID] {
			l.logger.Warn("Skipping duplicate position", zap.String("token_mint", p.AssetID))
			continue
		}
		seen[p.AssetID] = true

		// Entry price <= 0 is accepted: take-profit simply never fires for such a position.
		if !entry.IsPositive() {
			l.logger.Warn("Position has non-positive entry price, take-profit disabled",
				zap.String("token_mint", p.AssetID))
		}

		positions = append(positions, p)
	}

	if len(positions) == 0 {
		return nil, fmt.Errorf("no valid positions loaded")
	}

	l.logger.Info("Loaded positions", zap.Int("count", len(positions)))
	return positions, nil
}
