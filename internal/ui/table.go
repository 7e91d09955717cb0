package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// column describes one table column. A zero width shares the space left
// over by fixed columns.
type column struct {
	title string
	width int
	right bool
}

// cell is one rendered table cell with an optional style override.
type cell struct {
	text  string
	style *lipgloss.Style
}

func plain(text string) cell { return cell{text: text} }

func styled(text string, style lipgloss.Style) cell { return cell{text: text, style: &style} }

// layoutColumns fills flexible column widths so the row spans width.
func layoutColumns(cols []column, width int) []int {
	widths := make([]int, len(cols))
	fixed, flex := 0, 0
	for i, c := range cols {
		widths[i] = c.width
		if c.width > 0 {
			fixed += c.width
		} else {
			flex++
		}
	}
	gaps := len(cols) - 1
	if flex > 0 {
		share := (width - fixed - gaps) / flex
		if share < 4 {
			share = 4
		}
		for i := range widths {
			if widths[i] == 0 {
				widths[i] = share
			}
		}
	}
	return widths
}

// renderTable draws a header row and rows, highlighting selected (-1 for
// none). Only the rows that fit in height are shown, keeping the selected
// row visible.
func (m Model) renderTable(cols []column, rows [][]cell, selected, width, height int, bgColor string) string {
	styles := m.theme.Styles()
	bg := NewBgStyle(bgColor)
	widths := layoutColumns(cols, width)

	var b strings.Builder
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = bg.Render(fitCell(c.title, widths[i], c.right), styles.MutedText.Bold(true))
	}
	b.WriteString(bg.FillLine(bg.Join(header, " "), width))

	visible := height - 1
	if visible < 1 {
		return b.String()
	}
	start := 0
	if selected >= visible {
		start = selected - visible + 1
	}
	end := min(start+visible, len(rows))

	for r := start; r < end; r++ {
		b.WriteString("\n")
		rowBg := bg
		if r == selected {
			rowBg = NewBgStyle(m.theme.SelectionBg)
		}
		parts := make([]string, len(cols))
		for i := range cols {
			var c cell
			if i < len(rows[r]) {
				c = rows[r][i]
			}
			style := styles.Text
			if r == selected {
				style = styles.Selected
			} else if c.style != nil {
				style = *c.style
			}
			parts[i] = rowBg.Render(fitCell(c.text, widths[i], cols[i].right), style)
		}
		b.WriteString(rowBg.FillLine(rowBg.Join(parts, " "), width))
	}
	return b.String()
}
