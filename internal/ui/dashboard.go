package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/moonbag/internal/logger"
	"github.com/rovshanmuradov/moonbag/internal/monitor"
	"github.com/rovshanmuradov/moonbag/internal/position"
	"github.com/rovshanmuradov/moonbag/internal/ui/component"
	"github.com/rovshanmuradov/moonbag/internal/ui/state"
	"github.com/rovshanmuradov/moonbag/internal/ui/style"
)

// Sessions is the part of the monitor service the dashboard drives.
type Sessions interface {
	Snapshots() []position.Position
	Stop(tokenMint string) (position.Position, error)
}

// AlertFeed lists alerts already raised.
type AlertFeed interface {
	GetRecentAlerts(limit int) []monitor.Alert
}

// Options configures the dashboard. Sessions is required.
type Options struct {
	Sessions Sessions
	Alerts   AlertFeed         // optional
	Quotes   *state.UICache    // optional, last price per token
	Logs     *logger.LogBuffer // optional
	Rules    position.Rules
	Mode     string // "live" or "paper", shown in the header
	Refresh  time.Duration
}

// Quotes older than this are dropped; a live session refreshes its quote every poll.
const staleQuoteAge = 10 * time.Minute

type tickMsg time.Time

// StoppedMsg reports the result of a stop request.
type StoppedMsg struct {
	TokenMint string
	Position  position.Position
	Err       error
}

// RunFinishedMsg tells the dashboard the runner has returned.
type RunFinishedMsg struct {
	Err error
}

// Dashboard is the bubbletea model of the live position table.
type Dashboard struct {
	opts     Options
	keys     KeyMap
	help     help.Model
	table    table.Model
	logs     *component.CompactLogViewer
	showLogs bool

	positions []position.Position
	status    string
	finished  bool
	width     int
	height    int
}

var columns = []table.Column{
	{Title: "Token", Width: 14},
	{Title: "Status", Width: 17},
	{Title: "Entry", Width: 12},
	{Title: "Price", Width: 12},
	{Title: "PnL", Width: 9},
	{Title: "Peak", Width: 12},
	{Title: "Stop at", Width: 12},
	{Title: "Left", Width: 14},
}

// NewDashboard creates the model. It reads state on every refresh tick.
func NewDashboard(opts Options) *Dashboard {
	if opts.Refresh <= 0 {
		opts.Refresh = time.Second
	}
	if opts.Rules == (position.Rules{}) {
		opts.Rules = position.DefaultRules()
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(8),
	)
	t.SetStyles(style.TableStyles())

	d := &Dashboard{
		opts:     opts,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		table:    t,
		logs:     component.NewCompactLogViewer(opts.Logs),
		showLogs: opts.Logs != nil,
	}
	d.refresh()
	return d
}

func (d *Dashboard) Init() tea.Cmd {
	return d.tick()
}

func (d *Dashboard) tick() tea.Cmd {
	return tea.Tick(d.opts.Refresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		d.width, d.height = msg.Width, msg.Height
		d.help.Width = msg.Width
		d.logs.SetSize(msg.Width-2, 6)
		if h := msg.Height - 20; h > 3 {
			d.table.SetHeight(h)
		}
		return d, nil

	case tickMsg:
		if d.opts.Quotes != nil {
			d.opts.Quotes.CleanupStale(staleQuoteAge)
		}
		d.refresh()
		return d, d.tick()

	case StoppedMsg:
		if msg.Err != nil {
			d.status = fmt.Sprintf("stop %s failed: %v", position.ShortMint(msg.TokenMint), msg.Err)
		} else {
			d.status = fmt.Sprintf("stopped %s, %s left", msg.Position.Name(), msg.Position.RemainingQuantity)
		}
		d.refresh()
		return d, nil

	case RunFinishedMsg:
		d.finished = true
		if msg.Err != nil {
			d.status = "runner stopped: " + msg.Err.Error()
		} else {
			d.status = "all positions closed, press q to exit"
		}
		d.refresh()
		return d, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, d.keys.Quit):
			return d, tea.Quit
		case key.Matches(msg, d.keys.Help):
			d.help.ShowAll = !d.help.ShowAll
			return d, nil
		case key.Matches(msg, d.keys.ToggleLogs):
			d.showLogs = !d.showLogs && d.opts.Logs != nil
			return d, nil
		case key.Matches(msg, d.keys.Refresh):
			d.refresh()
			return d, nil
		case key.Matches(msg, d.keys.Stop):
			return d, d.stopSelected()
		}
	}

	var cmd tea.Cmd
	d.table, cmd = d.table.Update(msg)
	return d, cmd
}

// stopSelected stops the highlighted session off the UI goroutine; Stop waits for the current cycle.
func (d *Dashboard) stopSelected() tea.Cmd {
	i := d.table.Cursor()
	if i < 0 || i >= len(d.positions) {
		return nil
	}
	pos := d.positions[i]
	if pos.IsClosed() {
		d.status = pos.Name() + " is already closed"
		return nil
	}

	d.status = "stopping " + pos.Name() + "..."
	sessions := d.opts.Sessions
	return func() tea.Msg {
		final, err := sessions.Stop(pos.AssetID)
		return StoppedMsg{TokenMint: pos.AssetID, Position: final, Err: err}
	}
}

func (d *Dashboard) refresh() {
	d.positions = d.opts.Sessions.Snapshots()
	rows := make([]table.Row, 0, len(d.positions))
	for _, p := range d.positions {
		rows = append(rows, d.row(p))
	}
	d.table.SetRows(rows)
}

func (d *Dashboard) row(p position.Position) table.Row {
	price, pnl := "-", "-"
	if q, ok := d.quote(p.AssetID); ok {
		price = fmtSOL(q.Price)
		pnl = q.PnLPercent.StringFixed(1) + "%"
	}

	peak, stop := "-", "-"
	if p.TakeProfitTriggered {
		peak = fmtSOL(p.PeakPrice)
		if !p.IsClosed() {
			stop = fmtSOL(p.PeakPrice.Mul(d.opts.Rules.TrailingStopRatio))
		}
	}

	return table.Row{
		p.Name(),
		string(p.Status),
		fmtSOL(p.EntryPrice),
		price,
		pnl,
		peak,
		stop,
		p.RemainingQuantity.String(),
	}
}

func (d *Dashboard) quote(mint string) (state.Quote, bool) {
	if d.opts.Quotes == nil {
		return state.Quote{}, false
	}
	return d.opts.Quotes.Get(mint)
}

func fmtSOL(v decimal.Decimal) string {
	if v.IsZero() {
		return "-"
	}
	return v.Round(9).String()
}

func (d *Dashboard) View() string {
	var b strings.Builder

	b.WriteString(d.header())
	b.WriteString("\n")
	b.WriteString(style.ActivePanelStyle.Render(d.table.View()))
	b.WriteString("\n")

	if detail := d.selectedDetail(); detail != "" {
		b.WriteString(detail)
		b.WriteString("\n")
	}
	if alerts := d.alertsView(); alerts != "" {
		b.WriteString(alerts)
		b.WriteString("\n")
	}
	if d.showLogs {
		b.WriteString(d.logs.View())
		b.WriteString("\n")
	}
	if d.status != "" {
		b.WriteString(style.WarningStyle.Render(d.status))
		b.WriteString("\n")
	}
	b.WriteString(d.help.View(d.keys))
	return b.String()
}

func (d *Dashboard) header() string {
	var open, partial, closed int
	for _, p := range d.positions {
		switch p.Status {
		case position.StatusOpen:
			open++
		case position.StatusPartiallyExited:
			partial++
		default:
			closed++
		}
	}

	mode := strings.ToUpper(d.opts.Mode)
	if mode == "" {
		mode = "LIVE"
	}
	title := style.HeaderStyle.Render(fmt.Sprintf("🌙 moonbag [%s]", mode))
	counts := lipgloss.JoinHorizontal(lipgloss.Top,
		style.StatusStyle(string(position.StatusOpen)).Render(fmt.Sprintf("open %d  ", open)),
		style.StatusStyle(string(position.StatusPartiallyExited)).Render(fmt.Sprintf("moonbag %d  ", partial)),
		style.StatusStyle(string(position.StatusClosed)).Render(fmt.Sprintf("closed %d", closed)),
	)
	rules := style.MutedStyle.Render(fmt.Sprintf("  TP x%s sells %s%%, stop at %s%% of peak",
		d.opts.Rules.TakeProfitMultiple,
		d.opts.Rules.PartialExitFraction.Mul(decimal.NewFromInt(100)),
		d.opts.Rules.TrailingStopRatio.Mul(decimal.NewFromInt(100))))
	return lipgloss.JoinHorizontal(lipgloss.Top, title, counts, rules)
}

func (d *Dashboard) selectedDetail() string {
	i := d.table.Cursor()
	if i < 0 || i >= len(d.positions) {
		return ""
	}
	p := d.positions[i]
	q, ok := d.quote(p.AssetID)
	if !ok || p.IsClosed() {
		return ""
	}

	scale := d.opts.Rules.TakeProfitMultiple.Sub(decimal.NewFromInt(1)).Mul(decimal.NewFromInt(100))
	gauge := component.NewPnLGauge(24).SetScale(scale.InexactFloat64()).SetValue(q.PnLPercent)
	return fmt.Sprintf(" %s  %s  %s", style.SubHeaderStyle.Render(p.Name()), gauge.View(),
		style.MutedStyle.Render("updated "+q.UpdatedAt.Format("15:04:05")))
}

func (d *Dashboard) alertsView() string {
	if d.opts.Alerts == nil {
		return ""
	}
	alerts := d.opts.Alerts.GetRecentAlerts(5)
	if len(alerts) == 0 {
		return ""
	}

	lines := []string{style.SubHeaderStyle.Render("Alerts")}
	for i := len(alerts) - 1; i >= 0; i-- {
		a := alerts[i]
		line := style.MutedStyle.Render(a.Timestamp.Format("15:04:05")) + " " + a.Text()
		if a.Severity == "warning" {
			line = style.MutedStyle.Render(a.Timestamp.Format("15:04:05")) + " " + style.WarningStyle.Render(a.Message)
		}
		lines = append(lines, strings.SplitN(line, "\n", 2)[0])
	}
	return style.PanelStyle.Render(strings.Join(lines, "\n"))
}
