package report

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/tickerdeck/internal/api"
)

func bar(date string, open, high, low, close string, volume int64) api.Bar {
	return api.Bar{
		Date:   date,
		Open:   decimal.RequireFromString(open),
		High:   decimal.RequireFromString(high),
		Low:    decimal.RequireFromString(low),
		Close:  decimal.RequireFromString(close),
		Volume: decimal.NewFromInt(volume),
	}
}

func sampleBars() []api.Bar {
	return []api.Bar{
		bar("2024-01-02", "10.00", "10.50", "9.80", "10.20", 1000),
		bar("2024-01-03", "10.20", "11.10", "10.10", "11.00", 2500),
		bar("2024-01-04", "11.00", "11.05", "9.50", "9.69", 1500),
	}
}

func TestSummarize(t *testing.T) {
	st := Summarize(sampleBars())

	assert.Equal(t, "2024-01-02", st.From)
	assert.Equal(t, "2024-01-04", st.To)
	assert.Equal(t, 3, st.Rows)
	assert.Equal(t, "11.1", st.High.String())
	assert.Equal(t, "9.5", st.Low.String())
	assert.Equal(t, "-0.51", st.Change.String())
	assert.Equal(t, "-5", st.ChangePct.String())
	assert.Equal(t, "5000", st.Volume.String())
}

func TestSummarize_Empty(t *testing.T) {
	assert.Equal(t, Stats{}, Summarize(nil))
}

func TestSummarize_ZeroFirstClose(t *testing.T) {
	st := Summarize([]api.Bar{bar("d1", "0", "0", "0", "0", 0), bar("d2", "1", "1", "1", "1", 0)})
	assert.True(t, st.ChangePct.IsZero())
}

func TestHistoryPDF(t *testing.T) {
	var buf bytes.Buffer
	query := api.HistoryQuery{Code: "600519", StartDate: "20240102", EndDate: "20240104", Source: "eastmoney"}

	require.NoError(t, HistoryPDF(&buf, HistoryTitle(query), query, sampleBars()))

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")), "output is a PDF document")
	assert.Greater(t, buf.Len(), 1000)
}

func TestHistoryPDF_ManyRowsPaginates(t *testing.T) {
	bars := make([]api.Bar, 0, 120)
	for i := 0; i < 120; i++ {
		bars = append(bars, bar("2024-01-02", "1", "1", "1", "1", 1))
	}
	var one, many bytes.Buffer
	require.NoError(t, HistoryPDF(&one, "t", api.HistoryQuery{Code: "x"}, bars[:1]))
	require.NoError(t, HistoryPDF(&many, "t", api.HistoryQuery{Code: "x"}, bars))

	assert.Equal(t, 1, bytes.Count(one.Bytes(), []byte("/Type /Page\n")))
	assert.Greater(t, bytes.Count(many.Bytes(), []byte("/Type /Page\n")), 1)
}

func TestHistoryPDF_NoRows(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, HistoryPDF(&buf, "t", api.HistoryQuery{}, nil), ErrNoRows)
	assert.Zero(t, buf.Len())
}

func TestHistoryTitle(t *testing.T) {
	assert.Equal(t, "Price history 600519", HistoryTitle(api.HistoryQuery{Code: "600519"}))
	assert.Equal(t, "Price history 1 (20240101 - -)", HistoryTitle(api.HistoryQuery{Code: "1", StartDate: "20240101"}))
}
