package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/WessleyAI/wessley-coverage/engine/coverage"
	"github.com/WessleyAI/wessley-coverage/engine/domain"
	"github.com/WessleyAI/wessley-coverage/pkg/fn"
)

const cellWidth = 6

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Left   key.Binding
	Right  key.Binding
	Toggle key.Binding
	Quit   key.Binding
}

var keys = keyMap{
	Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Left:   key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "newer")),
	Right:  key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "older")),
	Toggle: key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space", "toggle")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
}

var (
	coveredStyle   = lipgloss.NewStyle().Width(cellWidth).Align(lipgloss.Center).Foreground(lipgloss.Color("#3fb950"))
	uncoveredStyle = lipgloss.NewStyle().Width(cellWidth).Align(lipgloss.Center).Foreground(lipgloss.Color("#484f58"))
	cursorStyle    = lipgloss.NewStyle().Reverse(true)
	yearStyle      = lipgloss.NewStyle().Width(cellWidth).Align(lipgloss.Center).Bold(true)
	modelStyle     = lipgloss.NewStyle().Align(lipgloss.Right).PaddingRight(1)
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#8b949e"))
)

// stateStyles maps each visual cell state to its style and glyph.
var stateStyles = map[coverage.State]struct {
	style lipgloss.Style
	glyph string
}{
	coverage.StateCovered:   {coveredStyle, "■■"},
	coverage.StateUncovered: {uncoveredStyle, "··"},
}

type model struct {
	layout     coverage.Layout
	labelWidth int
	row, col   int
}

// newModel renders grid once. Cells keep their own state from then on.
func newModel(grid *coverage.Grid, listener func(domain.VehicleModel, domain.ModelYear, bool)) model {
	layout := grid.Layout("", listener)
	width := fn.Reduce(layout.Models, 0, func(w int, m domain.VehicleModel) int {
		return max(w, lipgloss.Width(m))
	})
	return model{layout: layout, labelWidth: width}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	rows, cols := len(m.layout.Rows), len(m.layout.Years)
	switch {
	case key.Matches(km, keys.Quit):
		return m, tea.Quit
	case key.Matches(km, keys.Up):
		if m.row > 0 {
			m.row--
		}
	case key.Matches(km, keys.Down):
		if m.row < rows-1 {
			m.row++
		}
	case key.Matches(km, keys.Left):
		if m.col > 0 {
			m.col--
		}
	case key.Matches(km, keys.Right):
		if m.col < cols-1 {
			m.col++
		}
	case key.Matches(km, keys.Toggle):
		if rows > 0 && cols > 0 {
			m.layout.At(m.row, m.col).Toggle()
		}
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	label := modelStyle.Width(m.labelWidth + 1)

	headers := fn.Map(m.layout.Years, func(y domain.ModelYear) string {
		return yearStyle.Render(fmt.Sprint(y))
	})
	b.WriteString(label.Render(""))
	b.WriteString(strings.Join(headers, ""))
	b.WriteByte('\n')

	for i, row := range m.layout.Rows {
		b.WriteString(label.Render(row.Model))
		for j, cell := range row.Cells {
			s := stateStyles[cell.State()]
			style := s.style
			if i == m.row && j == m.col {
				style = style.Inherit(cursorStyle)
			}
			b.WriteString(style.Render(s.glyph))
		}
		b.WriteByte('\n')
	}

	help := fn.Map([]key.Binding{keys.Up, keys.Down, keys.Left, keys.Right, keys.Toggle, keys.Quit},
		func(k key.Binding) string { return k.Help().Key + " " + k.Help().Desc })
	b.WriteByte('\n')
	b.WriteString(helpStyle.Render(strings.Join(help, " • ")))
	b.WriteByte('\n')
	return b.String()
}
