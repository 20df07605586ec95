package component

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/curve-launchpad/internal/logger"
	"github.com/rovshanmuradov/curve-launchpad/internal/ui/style"
)

const logPaneEntries = 50

// LogPane shows the tail of the in-memory log buffer.
type LogPane struct {
	buffer    *logger.LogBuffer
	viewport  viewport.Model
	showDebug bool
	visible   bool

	timestamp lipgloss.Style
	levels    map[string]lipgloss.Style
}

// NewLogPane creates a log pane over buffer.
func NewLogPane(buffer *logger.LogBuffer) *LogPane {
	p := style.DefaultPalette()
	return &LogPane{
		buffer:    buffer,
		viewport:  viewport.New(50, 4),
		visible:   true,
		timestamp: lipgloss.NewStyle().Foreground(p.TextMuted),
		levels: map[string]lipgloss.Style{
			"error": lipgloss.NewStyle().Foreground(p.Error).Bold(true),
			"warn":  lipgloss.NewStyle().Foreground(p.Warning),
			"info":  lipgloss.NewStyle().Foreground(p.Text),
			"debug": lipgloss.NewStyle().Foreground(p.TextMuted),
		},
	}
}

// SetSize sets the pane dimensions, borders included.
func (lp *LogPane) SetSize(width, height int) {
	lp.viewport.Width = max(width-4, 10)
	lp.viewport.Height = max(height-3, 2)
}

// Toggle flips visibility.
func (lp *LogPane) Toggle() { lp.visible = !lp.visible }

// Visible reports whether the pane is shown.
func (lp *LogPane) Visible() bool { return lp.visible }

// ToggleDebug включает/выключает debug-записи.
func (lp *LogPane) ToggleDebug() {
	lp.showDebug = !lp.showDebug
	lp.Refresh()
}

// Update forwards scrolling keys to the viewport.
func (lp *LogPane) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	lp.viewport, cmd = lp.viewport.Update(msg)
	return cmd
}

// Refresh reloads entries from the buffer and scrolls to the newest.
func (lp *LogPane) Refresh() {
	if lp.buffer == nil {
		lp.viewport.SetContent("No log buffer available")
		return
	}

	var lines []string
	for _, e := range lp.buffer.GetRecentLogs(logPaneEntries) {
		level := strings.ToLower(e.Level)
		if level == "warning" {
			level = "warn"
		}
		if level == "debug" && !lp.showDebug {
			continue
		}
		st, ok := lp.levels[level]
		if !ok {
			st = lp.levels["info"]
		}
		lines = append(lines, fmt.Sprintf("%s %s", lp.timestamp.Render(e.Timestamp.Format("15:04:05")), st.Render(e.Message)))
	}
	if len(lines) == 0 {
		lp.viewport.SetContent("No logs yet")
		return
	}
	lp.viewport.SetContent(strings.Join(lines, "\n"))
	lp.viewport.GotoBottom()
}

// View renders the pane.
func (lp *LogPane) View() string {
	if !lp.visible {
		return ""
	}
	return style.Panel.Render(lipgloss.JoinVertical(lipgloss.Left,
		style.Title.Render("Logs"),
		lp.viewport.View(),
	))
}
