package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "20060102"

// Summary statuses reported by /stocks/sse_daily_summary.
const (
	SummaryOK              = "ok"
	SummaryHoliday         = "holiday"
	SummaryFuture          = "future"
	SummaryTodayIncomplete = "today_incomplete"
)

// DailySummary mirrors /stocks/sse_daily_summary.
type DailySummary struct {
	Date         string           `json:"date"`
	Data         []map[string]any `json:"data"`
	Holiday      bool             `json:"holiday"`
	Message      string           `json:"message"`
	Status       string           `json:"status"`
	LastOpenDate string           `json:"last_open_date"`
}

// Columns returns the record keys in first-seen order so tables render
// consistently.
func (s DailySummary) Columns() []string {
	seen := make(map[string]bool)
	var cols []string
	for _, row := range s.Data {
		keys := make([]string, 0, len(row))
		for k := range row {
			if !seen[k] {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			seen[k] = true
			cols = append(cols, k)
		}
	}
	return cols
}

// Bar is one row of /stocks/history. Field names follow the backend's
// column names.
type Bar struct {
	Date      string          `json:"日期"`
	Code      FlexString      `json:"股票代码"`
	Open      decimal.Decimal `json:"开盘"`
	Close     decimal.Decimal `json:"收盘"`
	High      decimal.Decimal `json:"最高"`
	Low       decimal.Decimal `json:"最低"`
	Volume    decimal.Decimal `json:"成交量"`
	Amount    decimal.Decimal `json:"成交额"`
	Amplitude decimal.Decimal `json:"振幅"`
	ChangePct decimal.Decimal `json:"涨跌幅"`
	Change    decimal.Decimal `json:"涨跌额"`
	Turnover  decimal.Decimal `json:"换手率"`
}

// Adjust modes accepted by /stocks/history.
var adjustModes = []string{"", "qfq", "hfq"}

// Sources accepted by /stocks/history.
var historySources = []string{"eastmoney", "sina", "tencent"}

// AdjustModes returns the supported price adjustment modes.
func AdjustModes() []string { return append([]string(nil), adjustModes...) }

// HistorySources returns the supported history data sources.
func HistorySources() []string { return append([]string(nil), historySources...) }

// HistoryQuery configures /stocks/history requests.
type HistoryQuery struct {
	Code      string
	StartDate string // YYYYMMDD
	EndDate   string // YYYYMMDD
	Adjust    string
	Source    string
}

// Validate rejects queries the backend would not understand.
func (q HistoryQuery) Validate() error {
	if strings.TrimSpace(q.Code) == "" {
		return fmt.Errorf("%w: code required", ErrInvalidQuery)
	}
	if !contains(adjustModes, q.Adjust) {
		return fmt.Errorf("%w: adjust %q not one of qfq, hfq or empty", ErrInvalidQuery, q.Adjust)
	}
	if q.Source != "" && !contains(historySources, q.Source) {
		return fmt.Errorf("%w: source %q not one of %s", ErrInvalidQuery, q.Source, strings.Join(historySources, ", "))
	}
	for _, d := range []string{q.StartDate, q.EndDate} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(dateLayout, d); err != nil {
			return fmt.Errorf("%w: date %q is not YYYYMMDD", ErrInvalidQuery, d)
		}
	}
	if q.StartDate != "" && q.EndDate != "" && q.StartDate > q.EndDate {
		return fmt.Errorf("%w: start date after end date", ErrInvalidQuery)
	}
	return nil
}

// Suggestion is one autocomplete hit from /stocks/search.
type Suggestion struct {
	Code   FlexString `json:"code"`
	Name   string     `json:"name"`
	Market string     `json:"market,omitempty"`
}

// Label renders the suggestion for a list.
func (s Suggestion) Label() string {
	if s.Name == "" {
		return string(s.Code)
	}
	return fmt.Sprintf("%s %s", s.Code, s.Name)
}

// ProfileField is one labelled fact about a company.
type ProfileField struct {
	Item  string
	Value string
}

// CompanyProfile mirrors /stocks/company_profile. The backend sends either
// an object or a list of {item, value} records; both decode here.
type CompanyProfile struct {
	Fields []ProfileField
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *CompanyProfile) UnmarshalJSON(raw []byte) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		p.Fields = nil
		return nil
	}
	if trimmed[0] == '[' {
		var rows []struct {
			Item  any `json:"item"`
			Value any `json:"value"`
		}
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return err
		}
		p.Fields = make([]ProfileField, 0, len(rows))
		for _, row := range rows {
			p.Fields = append(p.Fields, ProfileField{Item: FormatValue(row.Item), Value: FormatValue(row.Value)})
		}
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return err
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	p.Fields = make([]ProfileField, 0, len(keys))
	for _, k := range keys {
		p.Fields = append(p.Fields, ProfileField{Item: k, Value: FormatValue(obj[k])})
	}
	return nil
}

// Get returns the value for item, if present.
func (p CompanyProfile) Get(item string) (string, bool) {
	for _, f := range p.Fields {
		if f.Item == item {
			return f.Value, true
		}
	}
	return "", false
}

// Company is one row of /stocks/search_companies. Rows are kept as loose
// records because column names vary by data source.
type Company map[string]any

// Code returns the security code.
func (c Company) Code() string { return c.first("code", "股票代码", "ts_code", "symbol") }

// Name returns the short name.
func (c Company) Name() string { return c.first("name", "股票简称", "company_name") }

// Industry returns the industry classification.
func (c Company) Industry() string { return c.first("industry", "行业", "所属行业") }

func (c Company) first(keys ...string) string {
	for _, k := range keys {
		if v, ok := c[k]; ok && v != nil {
			return FormatValue(v)
		}
	}
	return ""
}

// CompanyQuery configures /stocks/search_companies.
type CompanyQuery struct {
	Query    string
	Page     int
	PageSize int
	Industry string
}

// CompanyPage mirrors /stocks/search_companies.
type CompanyPage struct {
	Data  []Company `json:"data"`
	Total int       `json:"total"`
}

// FlexString decodes either a JSON string or a number as text. Security
// codes arrive as both depending on the data source.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(raw []byte) error {
	trimmed := bytes.TrimSpace(raw)
	if bytes.Equal(trimmed, []byte("null")) {
		*f = ""
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("flex string: %w", err)
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string { return string(f) }

// FormatValue renders a loosely typed JSON value for display.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

// LoginRequest is the body of /auth/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the body of /auth/register.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=6"`
}

// Token is the /auth/login payload.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// User mirrors /users/me.
type User struct {
	ID        int64  `json:"id,omitempty"`
	Username  string `json:"username"`
	Avatar    string `json:"avatar,omitempty"`
	Nickname  string `json:"nickname,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
	Signature string `json:"signature,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// DisplayName prefers the nickname.
func (u User) DisplayName() string {
	if strings.TrimSpace(u.Nickname) != "" {
		return u.Nickname
	}
	return u.Username
}

// ProfileUpdate is the body of PUT /users/me/profile.
type ProfileUpdate struct {
	Nickname  string `json:"nickname,omitempty" validate:"omitempty,max=50"`
	Phone     string `json:"phone,omitempty" validate:"omitempty,numeric,min=5,max=20"`
	Email     string `json:"email,omitempty" validate:"omitempty,email"`
	Signature string `json:"signature,omitempty" validate:"omitempty,max=200"`
}

// AvatarUpdate is the body of PUT /users/me/avatar.
type AvatarUpdate struct {
	Avatar string `json:"avatar" validate:"required"`
}

// PasswordChange is the body of POST /users/me/password.
type PasswordChange struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6,nefield=OldPassword"`
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
