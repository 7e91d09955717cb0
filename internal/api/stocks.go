package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// TradeDates retrieves the trading calendar as YYYYMMDD strings, oldest first.
func (c *Client) TradeDates(ctx context.Context) ([]string, error) {
	var dates []string
	if err := c.get(ctx, "/stocks/trade_dates", nil, &dates); err != nil {
		return nil, err
	}
	for i, d := range dates {
		dates[i] = strings.ReplaceAll(strings.TrimSpace(d), "-", "")
	}
	return dates, nil
}

// DailySummary retrieves the SSE daily summary. An empty date asks the
// backend for the last completed trading day.
func (c *Client) DailySummary(ctx context.Context, date string) (*DailySummary, error) {
	params := url.Values{}
	if d := strings.TrimSpace(date); d != "" {
		params.Set("date", d)
	}
	var payload DailySummary
	if err := c.get(ctx, "/stocks/sse_daily_summary", params, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// History retrieves a historical price series.
func (c *Client) History(ctx context.Context, query HistoryQuery) ([]Bar, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("code", strings.TrimSpace(query.Code))
	if query.StartDate != "" {
		params.Set("start_date", query.StartDate)
	}
	if query.EndDate != "" {
		params.Set("end_date", query.EndDate)
	}
	params.Set("adjust", query.Adjust)
	source := query.Source
	if source == "" {
		source = historySources[0]
	}
	params.Set("source", source)

	var bars []Bar
	if err := c.get(ctx, "/stocks/history", params, &bars); err != nil {
		return nil, err
	}
	return bars, nil
}

// SearchStocks returns autocomplete suggestions for q.
func (c *Client) SearchStocks(ctx context.Context, q string, limit int) ([]Suggestion, error) {
	params := url.Values{}
	params.Set("q", q)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var hits []Suggestion
	if err := c.get(ctx, "/stocks/search", params, &hits); err != nil {
		return nil, err
	}
	return hits, nil
}

// CompanyProfile looks up a company by code or name.
func (c *Client) CompanyProfile(ctx context.Context, q string) (*CompanyProfile, error) {
	if strings.TrimSpace(q) == "" {
		return nil, fmt.Errorf("%w: query required", ErrInvalidQuery)
	}
	params := url.Values{}
	params.Set("q", strings.TrimSpace(q))
	var profile CompanyProfile
	if err := c.get(ctx, "/stocks/company_profile", params, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// SearchCompanies runs a paginated company search.
func (c *Client) SearchCompanies(ctx context.Context, query CompanyQuery) (CompanyPage, error) {
	params := url.Values{}
	params.Set("q", query.Query)
	page := query.Page
	if page < 1 {
		page = 1
	}
	params.Set("page", strconv.Itoa(page))
	if query.PageSize > 0 {
		params.Set("page_size", strconv.Itoa(query.PageSize))
	}
	if industry := strings.TrimSpace(query.Industry); industry != "" {
		params.Set("industry", industry)
	}
	var payload CompanyPage
	if err := c.get(ctx, "/stocks/search_companies", params, &payload); err != nil {
		return CompanyPage{}, err
	}
	return payload, nil
}
