package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/shopspring/decimal"
)

// truncate shortens value to limit terminal cells, adding an ellipsis.
// Wide (CJK) characters count as two cells.
func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 {
		return value
	}
	if lipgloss.Width(value) <= limit {
		return value
	}
	if limit <= 1 {
		return ansi.Truncate(value, limit, "")
	}
	return ansi.Truncate(value, limit, "…")
}

// truncateMiddle keeps the start and end of value, which suits file paths.
func truncateMiddle(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 || lipgloss.Width(value) <= limit {
		return value
	}
	if limit <= 3 {
		return truncate(value, limit)
	}
	runes := []rune(value)
	keep := limit - 1
	head := keep / 3
	tail := keep - head
	return string(runes[:head]) + "…" + string(runes[len(runes)-tail:])
}

// padRight pads s with spaces to width cells.
func padRight(s string, width int) string {
	w := lipgloss.Width(s)
	if width <= 0 || w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

// padLeft right-aligns s in width cells.
func padLeft(s string, width int) string {
	w := lipgloss.Width(s)
	if width <= 0 || w >= width {
		return s
	}
	return strings.Repeat(" ", width-w) + s
}

// fitCell truncates and pads s to exactly width cells.
func fitCell(s string, width int, alignRight bool) string {
	s = truncate(s, width)
	if alignRight {
		return padLeft(s, width)
	}
	return padRight(s, width)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

var (
	tenThousand   = decimal.NewFromInt(10_000)
	hundredMillon = decimal.NewFromInt(100_000_000)
)

// formatVolume renders large counts in 万 and 亿 units the way exchange
// quotes do.
func formatVolume(d decimal.Decimal) string {
	abs := d.Abs()
	switch {
	case abs.GreaterThanOrEqual(hundredMillon):
		return d.Div(hundredMillon).StringFixed(2) + "亿"
	case abs.GreaterThanOrEqual(tenThousand):
		return d.Div(tenThousand).StringFixed(2) + "万"
	default:
		return d.Round(0).String()
	}
}

// formatSigned renders d with an explicit sign.
func formatSigned(d decimal.Decimal, places int32) string {
	s := d.StringFixed(places)
	if d.IsPositive() {
		return "+" + s
	}
	return s
}

// formatTradeDate turns YYYYMMDD into YYYY-MM-DD. Other values pass through.
func formatTradeDate(date string) string {
	if len(date) != 8 {
		return date
	}
	for _, r := range date {
		if r < '0' || r > '9' {
			return date
		}
	}
	return date[:4] + "-" + date[4:6] + "-" + date[6:]
}

// changeStyle picks the up or down color for a price move.
func changeStyle(d decimal.Decimal, styles Styles) lipgloss.Style {
	switch d.Sign() {
	case 1:
		return styles.UpText
	case -1:
		return styles.DownText
	default:
		return styles.Text
	}
}
