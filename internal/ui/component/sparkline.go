package component

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/curve-launchpad/internal/monitor"
	"github.com/rovshanmuradov/curve-launchpad/internal/ui/style"
)

var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders candle closes as a one-line price graph.
type Sparkline struct {
	data  []float64
	width int
	color lipgloss.Color
}

// NewSparkline creates a new sparkline component
func NewSparkline(width int) *Sparkline {
	return &Sparkline{width: width, color: style.DefaultPalette().Primary}
}

// SetWidth sets the width of the sparkline
func (s *Sparkline) SetWidth(width int) *Sparkline {
	s.width = width
	s.trim()
	return s
}

// SetData sets the data points for the sparkline
func (s *Sparkline) SetData(data []float64) *Sparkline {
	s.data = append(s.data[:0], data...)
	s.trim()
	return s
}

// SetCandles plots the close of every candle, oldest first.
func (s *Sparkline) SetCandles(candles []monitor.Candle) *Sparkline {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return s.SetData(closes)
}

func (s *Sparkline) trim() {
	if s.width > 0 && len(s.data) > s.width {
		s.data = s.data[len(s.data)-s.width:]
	}
}

// Blocks returns the raw spark characters, padded to width.
func (s *Sparkline) Blocks() string {
	if len(s.data) == 0 {
		return strings.Repeat("▁", s.width)
	}

	lo, hi := s.data[0], s.data[0]
	for _, v := range s.data {
		lo = min(lo, v)
		hi = max(hi, v)
	}

	var b strings.Builder
	for _, v := range s.data {
		idx := 3 // ровная линия
		if hi > lo {
			idx = int((v - lo) / (hi - lo) * float64(len(sparkChars)-1))
		}
		b.WriteRune(sparkChars[idx])
	}
	for i := len(s.data); i < s.width; i++ {
		b.WriteRune(' ')
	}
	return b.String()
}

// ChangePercent returns the percentage change from first to last data point
func (s *Sparkline) ChangePercent() float64 {
	if len(s.data) < 2 || s.data[0] == 0 {
		return 0
	}
	first, last := s.data[0], s.data[len(s.data)-1]
	return (last - first) / first * 100
}

// View renders the sparkline followed by the change over the window.
func (s *Sparkline) View() string {
	p := style.DefaultPalette()
	line := lipgloss.NewStyle().Foreground(s.color).Render(s.Blocks())
	if len(s.data) < 2 {
		return line
	}

	change := s.ChangePercent()
	color := p.TextMuted
	switch {
	case change > 0:
		color = p.Buy
	case change < 0:
		color = p.Sell
	}
	return line + " " + lipgloss.NewStyle().Foreground(color).Render(fmt.Sprintf("%+.2f%%", change))
}
