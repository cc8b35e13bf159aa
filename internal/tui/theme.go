package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/imkarma/streak/internal/board"
)

// Palette is the set of colors a theme provides.
type Palette struct {
	Accent lipgloss.AdaptiveColor
	Subtle lipgloss.AdaptiveColor
	Dim    lipgloss.AdaptiveColor
	Text   lipgloss.AdaptiveColor
	Todo   lipgloss.AdaptiveColor
	Doing  lipgloss.AdaptiveColor
	Done   lipgloss.AdaptiveColor
	Alert  lipgloss.AdaptiveColor
	Warn   lipgloss.AdaptiveColor
}

var (
	clrSubtle = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#666666"}
	clrDim    = lipgloss.AdaptiveColor{Light: "#999999", Dark: "#555555"}
	clrWhite  = lipgloss.AdaptiveColor{Light: "#333333", Dark: "#DDDDDD"}
	clrRed    = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	clrYellow = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#F59E0B"}
)

// palettes maps theme names to colors. Unknown names fall back to meadow.
var palettes = map[string]Palette{
	"meadow": {
		Accent: lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#4ADE80"},
		Todo:   clrWhite,
		Doing:  lipgloss.AdaptiveColor{Light: "#65A30D", Dark: "#A3E635"},
		Done:   lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"},
	},
	"ocean": {
		Accent: lipgloss.AdaptiveColor{Light: "#0E7490", Dark: "#22D3EE"},
		Todo:   clrWhite,
		Doing:  lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"},
		Done:   lipgloss.AdaptiveColor{Light: "#0F766E", Dark: "#2DD4BF"},
	},
	"ember": {
		Accent: lipgloss.AdaptiveColor{Light: "#C2410C", Dark: "#FB923C"},
		Todo:   clrWhite,
		Doing:  lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"},
		Done:   lipgloss.AdaptiveColor{Light: "#BE123C", Dark: "#FB7185"},
	},
	"aurora": {
		Accent: lipgloss.AdaptiveColor{Light: "#7E22CE", Dark: "#C084FC"},
		Todo:   clrWhite,
		Doing:  lipgloss.AdaptiveColor{Light: "#0E7490", Dark: "#22D3EE"},
		Done:   lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#4ADE80"},
	},
}

func paletteFor(theme string) Palette {
	p, ok := palettes[theme]
	if !ok {
		p = palettes["meadow"]
	}
	p.Subtle = clrSubtle
	p.Dim = clrDim
	p.Text = clrWhite
	p.Alert = clrRed
	p.Warn = clrYellow
	return p
}

type styles struct {
	palette Palette

	title  lipgloss.Style
	dim    lipgloss.Style
	subtle lipgloss.Style

	column         lipgloss.Style
	columnSelected lipgloss.Style
	columnHeader   [numColumns]lipgloss.Style

	card         lipgloss.Style
	cardSelected lipgloss.Style
	impeded      lipgloss.Style

	popup lipgloss.Style

	status lipgloss.Style
	err    lipgloss.Style

	footerKey  lipgloss.Style
	footerDesc lipgloss.Style

	barFull  lipgloss.Style
	barEmpty lipgloss.Style
}

func newStyles(p Palette) styles {
	s := styles{palette: p}

	s.title = lipgloss.NewStyle().Bold(true).Foreground(p.Accent)
	s.dim = lipgloss.NewStyle().Foreground(p.Dim)
	s.subtle = lipgloss.NewStyle().Foreground(p.Subtle)

	s.column = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.Subtle).
		Padding(0, 1)
	s.columnSelected = s.column.BorderForeground(p.Accent)
	for i, c := range []lipgloss.AdaptiveColor{p.Todo, p.Doing, p.Done} {
		s.columnHeader[i] = lipgloss.NewStyle().Bold(true).Foreground(c)
	}

	s.card = lipgloss.NewStyle().Foreground(p.Text)
	s.cardSelected = lipgloss.NewStyle().Bold(true).Foreground(p.Accent)
	s.impeded = lipgloss.NewStyle().Foreground(p.Alert)

	s.popup = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.Accent).
		Padding(1, 2).
		Width(60)

	s.status = lipgloss.NewStyle().Foreground(p.Done).Bold(true)
	s.err = lipgloss.NewStyle().Foreground(p.Alert).Bold(true)

	s.footerKey = lipgloss.NewStyle().Bold(true).Foreground(p.Accent)
	s.footerDesc = lipgloss.NewStyle().Foreground(p.Subtle)

	s.barFull = lipgloss.NewStyle().Foreground(p.Accent)
	s.barEmpty = lipgloss.NewStyle().Foreground(p.Dim)
	return s
}

func (s styles) priority(p board.Priority) lipgloss.Style {
	switch p {
	case board.PriorityUrgent:
		return lipgloss.NewStyle().Foreground(s.palette.Alert).Bold(true)
	case board.PriorityHigh:
		return lipgloss.NewStyle().Foreground(s.palette.Alert)
	case board.PriorityMedium:
		return lipgloss.NewStyle().Foreground(s.palette.Warn)
	default:
		return lipgloss.NewStyle().Foreground(s.palette.Dim)
	}
}
