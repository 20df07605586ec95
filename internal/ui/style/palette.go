package style

import "github.com/charmbracelet/lipgloss"

var (
	Cyan    = lipgloss.Color("#00E5FF") // Primary highlight
	Magenta = lipgloss.Color("#FF1B6B") // Accent
	Yellow  = lipgloss.Color("#FFB500") // Warnings, migration in progress
	Green   = lipgloss.Color("#2AFFAA") // Buys / success
	Red     = lipgloss.Color("#FF5555") // Sells / errors
	Blue    = lipgloss.Color("#3B82F6") // Info
	Purple  = lipgloss.Color("#8B5CF6") // Migrated pools

	Base02 = lipgloss.Color("#262831")
	Base01 = lipgloss.Color("#6C7280") // Muted text
	Base2  = lipgloss.Color("#ECEFF4") // Primary text
	Base1  = lipgloss.Color("#B4BCC8") // Secondary text
)

// Palette provides a centralized color management
type Palette struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Success   lipgloss.Color
	Error     lipgloss.Color
	Warning   lipgloss.Color
	Info      lipgloss.Color

	BackgroundAlt lipgloss.Color
	Text          lipgloss.Color
	TextMuted     lipgloss.Color
	TextSecondary lipgloss.Color

	Buy      lipgloss.Color
	Sell     lipgloss.Color
	Migrated lipgloss.Color
}

// DefaultPalette returns the default color palette
func DefaultPalette() Palette {
	return Palette{
		Primary:   Cyan,
		Secondary: Magenta,
		Success:   Green,
		Error:     Red,
		Warning:   Yellow,
		Info:      Blue,

		BackgroundAlt: Base02,
		Text:          Base2,
		TextMuted:     Base01,
		TextSecondary: Base1,

		Buy:      Green,
		Sell:     Red,
		Migrated: Purple,
	}
}

// Common styles shared by the dashboard panes.
var (
	Title = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Base01).
		Padding(0, 1)

	FocusedPanel = Panel.BorderForeground(Cyan)

	Muted = lipgloss.NewStyle().Foreground(Base01)

	Buy  = lipgloss.NewStyle().Foreground(Green)
	Sell = lipgloss.NewStyle().Foreground(Red)
)
