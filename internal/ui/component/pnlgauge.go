package component

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/moonbag/internal/ui/style"
)

// PnLGauge renders a profit/loss percentage as a bar.
type PnLGauge struct {
	value    float64 // PnL percentage
	width    int
	maxScale float64 // percentage drawn as a full bar

	// Thresholds for color coding
	profitThreshold float64
	lossThreshold   float64
}

// NewPnLGauge creates a gauge whose full bar is +100% (the default take-profit at 2x).
func NewPnLGauge(width int) *PnLGauge {
	return &PnLGauge{
		width:           width,
		maxScale:        100,
		profitThreshold: 50,
		lossThreshold:   -20,
	}
}

// SetValue sets the PnL percentage value
func (p *PnLGauge) SetValue(value decimal.Decimal) *PnLGauge {
	p.value = value.InexactFloat64()
	return p
}

// SetScale sets the percentage drawn as a full bar.
func (p *PnLGauge) SetScale(maxScale float64) *PnLGauge {
	if maxScale > 0 {
		p.maxScale = maxScale
	}
	return p
}

// View renders the PnL gauge
func (p *PnLGauge) View() string {
	color := p.color()
	bar := lipgloss.NewStyle().Foreground(color).Render(p.bar())

	prefix := ""
	if p.value > 0 {
		prefix = "+"
	} else if p.value < 0 {
		prefix = "-"
	}
	text := fmt.Sprintf("%s%.2f%% %s", prefix, math.Abs(p.value), p.arrow())
	return bar + " " + lipgloss.NewStyle().Foreground(color).Bold(true).Render(text)
}

// bar creates the visual gauge representation
func (p *PnLGauge) bar() string {
	if p.width <= 0 {
		return ""
	}

	chars := []string{"▁", "▂", "▃", "▄", "▅", "▆", "▇", "█"}
	absValue := math.Abs(p.value)
	intensity := math.Min(absValue/p.maxScale, 1.0)
	charIndex := int(intensity * float64(len(chars)-1))

	filledWidth := int(intensity * float64(p.width))
	if filledWidth < 1 && absValue > 0 {
		filledWidth = 1
	}

	var result strings.Builder
	for i := 0; i < p.width; i++ {
		if i < filledWidth {
			result.WriteString(chars[charIndex])
		} else {
			result.WriteString("▁")
		}
	}
	return result.String()
}

func (p *PnLGauge) color() lipgloss.Color {
	palette := style.DefaultPalette()
	switch {
	case p.value > 0:
		return palette.Gain
	case p.value < 0:
		return palette.Loss
	default:
		return palette.TextMuted
	}
}

func (p *PnLGauge) arrow() string {
	switch {
	case p.value >= p.profitThreshold:
		return "↗"
	case p.value <= p.lossThreshold:
		return "↘"
	case p.value > 0:
		return "↑"
	case p.value < 0:
		return "↓"
	default:
		return "→"
	}
}
