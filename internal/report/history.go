// Package report renders history series into printable documents.
package report

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/phpdave11/gofpdf"
	"github.com/shopspring/decimal"

	"github.com/five82/tickerdeck/internal/api"
)

// ErrNoRows is returned when there is nothing to render.
var ErrNoRows = errors.New("no rows to export")

// Stats summarises a history series.
type Stats struct {
	From, To   string
	FirstClose decimal.Decimal
	LastClose  decimal.Decimal
	High       decimal.Decimal
	Low        decimal.Decimal
	Change     decimal.Decimal
	ChangePct  decimal.Decimal // percent, 2 places
	Volume     decimal.Decimal
	Rows       int
}

// Summarize computes range statistics. bars must be oldest first.
func Summarize(bars []api.Bar) Stats {
	if len(bars) == 0 {
		return Stats{}
	}
	first, last := bars[0], bars[len(bars)-1]
	st := Stats{
		From:       first.Date,
		To:         last.Date,
		FirstClose: first.Close,
		LastClose:  last.Close,
		High:       first.High,
		Low:        first.Low,
		Rows:       len(bars),
	}
	for _, b := range bars {
		if b.High.GreaterThan(st.High) {
			st.High = b.High
		}
		if b.Low.LessThan(st.Low) {
			st.Low = b.Low
		}
		st.Volume = st.Volume.Add(b.Volume)
	}
	st.Change = last.Close.Sub(first.Close)
	if !first.Close.IsZero() {
		st.ChangePct = st.Change.Div(first.Close).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return st
}

type column struct {
	title string
	width float64
	value func(api.Bar) string
}

var historyColumns = []column{
	{"Date", 28, func(b api.Bar) string { return b.Date }},
	{"Open", 26, func(b api.Bar) string { return b.Open.StringFixed(2) }},
	{"High", 26, func(b api.Bar) string { return b.High.StringFixed(2) }},
	{"Low", 26, func(b api.Bar) string { return b.Low.StringFixed(2) }},
	{"Close", 26, func(b api.Bar) string { return b.Close.StringFixed(2) }},
	{"Volume", 38, func(b api.Bar) string { return b.Volume.String() }},
	{"Amount", 44, func(b api.Bar) string { return b.Amount.StringFixed(0) }},
	{"Change %", 26, func(b api.Bar) string { return b.ChangePct.StringFixed(2) }},
	{"Turnover %", 28, func(b api.Bar) string { return b.Turnover.StringFixed(2) }},
}

// HistoryPDF writes a landscape A4 table of bars to w. title should be
// ASCII; the core fonts carry no CJK glyphs.
func HistoryPDF(w io.Writer, title string, query api.HistoryQuery, bars []api.Bar) error {
	if len(bars) == 0 {
		return ErrNoRows
	}
	st := Summarize(bars)

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(title, false)
	pdf.SetCreator("tickerdeck", false)
	pdf.SetAutoPageBreak(true, 15)

	pdf.SetHeaderFunc(func() {
		pdf.SetFont("Helvetica", "B", 14)
		pdf.Cell(0, 8, title)
		pdf.Ln(10)
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for _, col := range historyColumns {
			pdf.CellFormat(col.width, 7, col.title, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 6, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 9)
	for _, b := range bars {
		for i, col := range historyColumns {
			align := "R"
			if i == 0 {
				align = "L"
			}
			pdf.CellFormat(col.width, 6, col.value(b), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.Cell(0, 6, "Summary")
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 10)
	lines := []string{
		fmt.Sprintf("Code: %s   Source: %s   Adjust: %s", query.Code, orDash(query.Source), orDash(query.Adjust)),
		fmt.Sprintf("Range: %s to %s (%d rows)", st.From, st.To, st.Rows),
		fmt.Sprintf("Close: %s -> %s   Change: %s (%s%%)", st.FirstClose.StringFixed(2), st.LastClose.StringFixed(2), st.Change.StringFixed(2), st.ChangePct.StringFixed(2)),
		fmt.Sprintf("High: %s   Low: %s   Total volume: %s", st.High.StringFixed(2), st.Low.StringFixed(2), st.Volume.String()),
		"Generated " + time.Now().Format("2006-01-02 15:04"),
	}
	for _, line := range lines {
		pdf.Cell(0, 6, line)
		pdf.Ln(6)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

// HistoryTitle builds an ASCII document title for a query.
func HistoryTitle(query api.HistoryQuery) string {
	title := "Price history " + query.Code
	if query.StartDate != "" || query.EndDate != "" {
		title += fmt.Sprintf(" (%s - %s)", orDash(query.StartDate), orDash(query.EndDate))
	}
	return title
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
