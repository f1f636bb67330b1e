package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/comitanigiacomo/habitlite/internal/core/domain"
)

var (
	colorGreen  = lipgloss.Color("#8ec07c")
	colorRed    = lipgloss.Color("#fb4934")
	colorDim    = lipgloss.Color("#928374")
	colorHeader = lipgloss.Color("#fe8019")
)

var (
	styleGreen  = lipgloss.NewStyle().Foreground(colorGreen)
	styleRed    = lipgloss.NewStyle().Foreground(colorRed)
	styleDim    = lipgloss.NewStyle().Foreground(colorDim)
	styleHeader = lipgloss.NewStyle().Foreground(colorHeader).Bold(true)
	styleBold   = lipgloss.NewStyle().Bold(true)
)

// habitName renders a name in the habit's own colour.
func habitName(h *domain.Habit) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(h.Color)).Render(h.Name)
}

func header(text string) string {
	upper := strings.ToUpper(text)
	return fmt.Sprintf("%s\n%s", styleHeader.Render(upper), styleDim.Render(strings.Repeat("─", len(upper))))
}

func cellGlyph(s domain.CellState) string {
	switch s {
	case domain.CellDone:
		return styleGreen.Render("●")
	case domain.CellMissed:
		return styleRed.Render("○")
	case domain.CellInactive:
		return styleDim.Render("·")
	default:
		return " "
	}
}

func doneMark(done bool) string {
	if done {
		return styleGreen.Render("✓")
	}
	return styleRed.Render("✗")
}

// progressBar draws count against target in width cells. At-most habits fill
// up as the allowance is used.
func progressBar(p domain.Progress, width int) string {
	filled := width
	if p.Target > 0 {
		filled = min(width, p.Count*width/p.Target)
	}
	style := styleGreen
	if !p.Done {
		style = styleRed
	}
	return style.Render(strings.Repeat("█", filled)) + styleDim.Render(strings.Repeat("░", width-filled))
}

// ratioShade maps a done/active ratio to a five step scale.
func ratioShade(r *float64) string {
	if r == nil {
		return styleDim.Render(" ·")
	}
	shades := []string{"░", "▒", "▓", "█"}
	switch {
	case *r == 0:
		return styleRed.Render(" ○")
	case *r >= 1:
		return styleGreen.Render(" " + shades[3])
	default:
		i := min(2, int(*r*3))
		return styleGreen.Render(" " + shades[i])
	}
}

func percent(rate float64) string {
	return fmt.Sprintf("%3.0f%%", rate)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// renderTable pads columns to their visible width, so styled cells align.
func renderTable(headers []string, rows [][]string) string {
	const gap = 2

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := 0; i < len(headers) && i < len(row); i++ {
			widths[i] = max(widths[i], lipgloss.Width(row[i]))
		}
	}

	var b strings.Builder
	writeRow := func(cells []string, style func(string) string) {
		for i := range headers {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			b.WriteString(style(cell))
			if i < len(headers)-1 {
				b.WriteString(strings.Repeat(" ", widths[i]-lipgloss.Width(cell)+gap))
			}
		}
		b.WriteString("\n")
	}

	writeRow(headers, func(s string) string { return styleHeader.Render(s) })

	for i, w := range widths {
		b.WriteString(styleDim.Render(strings.Repeat("─", w)))
		if i < len(widths)-1 {
			b.WriteString(strings.Repeat(" ", gap))
		}
	}
	b.WriteString("\n")

	for _, row := range rows {
		writeRow(row, func(s string) string { return s })
	}

	return b.String()
}
