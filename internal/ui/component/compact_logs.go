package component

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap/zapcore"

	"github.com/rovshanmuradov/moonbag/internal/logger"
	"github.com/rovshanmuradov/moonbag/internal/position"
	"github.com/rovshanmuradov/moonbag/internal/ui/style"
)

// CompactLogViewer shows the tail of the in-memory log buffer.
type CompactLogViewer struct {
	buffer   *logger.LogBuffer
	minLevel zapcore.Level
	width    int
	lines    int
	title    string
}

// NewCompactLogViewer creates a new compact log viewer
func NewCompactLogViewer(logBuffer *logger.LogBuffer) *CompactLogViewer {
	return &CompactLogViewer{
		buffer:   logBuffer,
		minLevel: zapcore.InfoLevel, // debug hidden in compact view
		width:    80,
		lines:    6,
		title:    "Recent Logs",
	}
}

// SetSize sets the component dimensions
func (clv *CompactLogViewer) SetSize(width, lines int) {
	clv.width = width
	if lines > 0 {
		clv.lines = lines
	}
}

// SetMinLevel hides entries below level.
func (clv *CompactLogViewer) SetMinLevel(level zapcore.Level) {
	clv.minLevel = level
}

// View renders the panel. A nil buffer renders nothing.
func (clv *CompactLogViewer) View() string {
	if clv.buffer == nil {
		return ""
	}

	// Over-read so filtered levels do not leave the panel short.
	entries := clv.buffer.GetRecentLogs(clv.lines * 4)
	var rows []string
	for i := len(entries) - 1; i >= 0 && len(rows) < clv.lines; i-- {
		if entries[i].Level < clv.minLevel {
			continue
		}
		rows = append(rows, clv.formatEntry(entries[i]))
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	if len(rows) == 0 {
		rows = append(rows, style.MutedStyle.Render("no log entries yet"))
	}

	body := style.SubHeaderStyle.Render(clv.title) + "\n" + strings.Join(rows, "\n")
	return style.PanelStyle.Width(clv.width).Render(body)
}

func (clv *CompactLogViewer) formatEntry(e logger.LogEntry) string {
	ts := style.MutedStyle.Render(e.Timestamp.Format("15:04:05"))

	var level lipgloss.Style
	switch {
	case e.Level >= zapcore.ErrorLevel:
		level = style.ErrorStyle
	case e.Level == zapcore.WarnLevel:
		level = style.WarningStyle
	case e.Level == zapcore.InfoLevel:
		level = style.InfoStyle
	default:
		level = style.MutedStyle
	}

	msg := e.Message
	if e.Token != "" {
		msg = fmt.Sprintf("[%s] %s", position.ShortMint(e.Token), msg)
	}
	if max := clv.width - 16; max > 10 {
		if r := []rune(msg); len(r) > max {
			msg = string(r[:max-1]) + "…"
		}
	}
	return fmt.Sprintf("%s %s %s", ts, level.Render(fmt.Sprintf("%-5s", e.Level.CapitalString())), msg)
}
