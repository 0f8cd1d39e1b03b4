package style

import "github.com/charmbracelet/lipgloss"

var (
	Cyan    = lipgloss.Color("#00E5FF")
	Magenta = lipgloss.Color("#FF1B6B")
	Amber   = lipgloss.Color("#FFB500")
	Mint    = lipgloss.Color("#2AFFAA")
	Coral   = lipgloss.Color("#FF5555")
	Azure   = lipgloss.Color("#3B82F6")
	Night   = lipgloss.Color("#1B1D23")
	Slate   = lipgloss.Color("#6C7280")
)

// Palette maps dashboard roles to colors.
type Palette struct {
	Primary    lipgloss.Color
	Secondary  lipgloss.Color
	Background lipgloss.Color
	TextMuted  lipgloss.Color

	Success lipgloss.Color
	Error   lipgloss.Color
	Warning lipgloss.Color
	Info    lipgloss.Color

	// PnL direction
	Gain lipgloss.Color
	Loss lipgloss.Color

	// Position status: OPEN, PARTIALLY_EXITED (moonbag riding the trailing stop), CLOSED
	Open            lipgloss.Color
	PartiallyExited lipgloss.Color
	Closed          lipgloss.Color
}

func DefaultPalette() Palette {
	return Palette{
		Primary:    Cyan,
		Secondary:  Magenta,
		Background: Night,
		TextMuted:  Slate,

		Success: Mint,
		Error:   Coral,
		Warning: Amber,
		Info:    Azure,

		Gain: Mint,
		Loss: Coral,

		Open:            Azure,
		PartiallyExited: Amber,
		Closed:          Slate,
	}
}
