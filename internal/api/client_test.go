package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/five82/tickerdeck/internal/notify"
)

type fakeCreds struct {
	mu      sync.Mutex
	token   string
	expired int
}

func (f *fakeCreds) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeCreds) Expire(string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = ""
	f.expired++
}

func newBackend(t *testing.T, register func(r *gin.RouterGroup)) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	register(router.Group("/api"))
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func newTestClient(t *testing.T, server *httptest.Server, creds Credentials, rec *notify.Recorder) *Client {
	t.Helper()
	c, err := NewClient(server.URL+"/api", WithCredentials(creds), WithNotifier(rec))
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return c
}

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.String() != defaultAPIURL+"/" {
		t.Fatalf("url = %q, want %q", u.String(), defaultAPIURL+"/")
	}

	u, err = parseBaseURL("example.com:1234/api/?x=1#frag")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Scheme != "http" || u.Path != "/api/" || u.RawQuery != "" || u.Fragment != "" {
		t.Fatalf("url not normalized: %q", u.String())
	}

	if _, err := parseBaseURL("http://"); err == nil {
		t.Fatalf("parseBaseURL accepted a URL without host")
	}
}

func TestSend_AttachesHeadersAndUnwrapsEnvelope(t *testing.T) {
	var gotAuth, gotUA, gotRequestID string
	server := newBackend(t, func(r *gin.RouterGroup) {
		r.GET("/users/me", func(c *gin.Context) {
			gotAuth = c.GetHeader("Authorization")
			gotUA = c.GetHeader("User-Agent")
			gotRequestID = c.GetHeader("X-Request-ID")
			c.JSON(http.StatusOK, gin.H{"data": gin.H{"username": "alice", "avatar": nil}, "message": "ok"})
		})
	})
	creds := &fakeCreds{token: "tok-1"}
	rec := &notify.Recorder{}
	c := newTestClient(t, server, creds, rec)

	user, err := c.CurrentUser(context.Background())
	if err != nil {
		t.Fatalf("CurrentUser returned error: %v", err)
	}
	if user.Username != "alice" {
		t.Fatalf("user = %#v, want alice", user)
	}
	if gotAuth != "Bearer tok-1" {
		t.Fatalf("Authorization = %q, want Bearer tok-1", gotAuth)
	}
	if !strings.HasPrefix(gotUA, "tickerdeck/") {
		t.Fatalf("User-Agent = %q, want tickerdeck/*", gotUA)
	}
	if gotRequestID == "" {
		t.Fatalf("X-Request-ID missing")
	}
	if len(rec.Notices()) != 0 {
		t.Fatalf("notices = %#v, want none", rec.Notices())
	}
}

func TestSend_NoTokenSendsNoAuthorization(t *testing.T) {
	var sawAuth bool
	server := newBackend(t, func(r *gin.RouterGroup) {
		r.GET("/stocks/trade_dates", func(c *gin.Context) {
			_, sawAuth = c.Request.Header["Authorization"]
			c.JSON(http.StatusOK, []string{"2024-01-02", "20240103"})
		})
	})
	c := newTestClient(t, server, &fakeCreds{}, &notify.Recorder{})

	dates, err := c.TradeDates(context.Background())
	if err != nil {
		t.Fatalf("TradeDates returned error: %v", err)
	}
	if sawAuth {
		t.Fatalf("Authorization header sent without a token")
	}
	if len(dates) != 2 || dates[0] != "20240102" || dates[1] != "20240103" {
		t.Fatalf("dates = %v, want normalized YYYYMMDD", dates)
	}
}

func TestSend_BareResourceWithDataFieldIsNotUnwrapped(t *testing.T) {
	server := newBackend(t, func(r *gin.RouterGroup) {
		r.GET("/stocks/sse_daily_summary", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"date":           c.Query("date"),
				"data":           []gin.H{{"单日情况": "挂牌数", "股票": 2000}},
				"holiday":        false,
				"message":        "成功",
				"status":         "ok",
				"last_open_date": "20240102",
			})
		})
	})
	c := newTestClient(t, server, &fakeCreds{}, &notify.Recorder{})

	summary, err := c.DailySummary(context.Background(), "20240103")
	if err != nil {
		t.Fatalf("DailySummary returned error: %v", err)
	}
	if summary.Date != "20240103" || summary.Status != SummaryOK || len(summary.Data) != 1 {
		t.Fatalf("summary = %#v, want date/status/data kept", summary)
	}
	if cols := summary.Columns(); len(cols) != 2 {
		t.Fatalf("Columns = %v, want 2", cols)
	}
}

func TestSend_HTTPErrorNotifiesOnceWithDetail(t *testing.T) {
	server := newBackend(t, func(r *gin.RouterGroup) {
		r.GET("/stocks/history", func(c *gin.Context) {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "akshare timeout"})
		})
		r.POST("/auth/register", func(c *gin.Context) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": []gin.H{{"loc": []string{"body", "password"}, "msg": "too short"}}})
		})
		r.GET("/stocks/trade_dates", func(c *gin.Context) {
			c.String(http.StatusBadGateway, "upstream down")
		})
	})
	creds := &fakeCreds{token: "tok"}
	rec := &notify.Recorder{}
	c := newTestClient(t, server, creds, rec)

	_, err := c.History(context.Background(), HistoryQuery{Code: "600000"})
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("History error = %v, want *Error", err)
	}
	if apiErr.Status != 500 || apiErr.Message != "akshare timeout" {
		t.Fatalf("apiErr = %#v, want 500 akshare timeout", apiErr)
	}
	if !Notified(err) {
		t.Fatalf("Notified = false, want true")
	}

	err = c.Register(context.Background(), RegisterRequest{Username: "bob", Password: "x"})
	if !errors.As(err, &apiErr) || apiErr.Message != "too short" {
		t.Fatalf("Register error = %v, want validation detail", err)
	}

	_, err = c.TradeDates(context.Background())
	if !errors.As(err, &apiErr) || apiErr.Message != serverMessage {
		t.Fatalf("TradeDates error = %v, want fallback message", err)
	}

	notices := rec.Notices()
	if len(notices) != 3 {
		t.Fatalf("notices = %#v, want exactly one per failed call", notices)
	}
	for i, want := range []string{"akshare timeout", "too short", serverMessage} {
		if notices[i].Level != notify.Error || notices[i].Message != want {
			t.Fatalf("notice[%d] = %#v, want error %q", i, notices[i], want)
		}
	}
	if creds.expired != 0 {
		t.Fatalf("credentials expired on non-401 errors")
	}
}

func TestSend_UnauthorizedExpiresCredentials(t *testing.T) {
	server := newBackend(t, func(r *gin.RouterGroup) {
		r.GET("/users/me", func(c *gin.Context) {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Could not validate credentials"})
		})
	})
	creds := &fakeCreds{token: "stale"}
	rec := &notify.Recorder{}
	c := newTestClient(t, server, creds, rec)

	_, err := c.CurrentUser(context.Background())
	if !IsUnauthorized(err) {
		t.Fatalf("error = %v, want 401", err)
	}
	if creds.expired != 1 || creds.Token() != "" {
		t.Fatalf("expired = %d token = %q, want cleared once", creds.expired, creds.Token())
	}
	if rec.Count(notify.Error) != 1 {
		t.Fatalf("error notices = %d, want 1", rec.Count(notify.Error))
	}
}

func TestSend_NetworkFailureNotifiesGenericMessage(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	creds := &fakeCreds{token: "tok"}
	rec := &notify.Recorder{}
	c, err := NewClient(addr, WithCredentials(creds), WithNotifier(rec), WithTimeout(time.Second))
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	_, err = c.TradeDates(context.Background())
	var apiErr *Error
	if !errors.As(err, &apiErr) || !apiErr.Network || apiErr.Status != 0 {
		t.Fatalf("error = %v, want network *Error", err)
	}
	notices := rec.Notices()
	if len(notices) != 1 || notices[0].Message != networkMessage {
		t.Fatalf("notices = %#v, want one network notice", notices)
	}
	if creds.expired != 0 {
		t.Fatalf("network failure must not log out")
	}
}

func TestSend_CancelledContextIsNotNotified(t *testing.T) {
	server := newBackend(t, func(r *gin.RouterGroup) {
		r.GET("/stocks/trade_dates", func(c *gin.Context) {
			time.Sleep(200 * time.Millisecond)
			c.JSON(http.StatusOK, []string{})
		})
	})
	rec := &notify.Recorder{}
	c := newTestClient(t, server, &fakeCreds{}, rec)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	if _, err := c.TradeDates(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want canceled", err)
	}
	if len(rec.Notices()) != 0 {
		t.Fatalf("notices = %#v, want none for caller cancellation", rec.Notices())
	}
}

func TestSend_CallerDeadlineIsNetworkFailure(t *testing.T) {
	server := newBackend(t, func(r *gin.RouterGroup) {
		r.GET("/stocks/trade_dates", func(c *gin.Context) {
			time.Sleep(400 * time.Millisecond)
			c.JSON(http.StatusOK, []string{})
		})
	})
	rec := &notify.Recorder{}
	c, err := NewClient(server.URL+"/api", WithNotifier(rec), WithTimeout(5*time.Second))
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = c.TradeDates(ctx)
	var apiErr *Error
	if !errors.As(err, &apiErr) || !apiErr.Network {
		t.Fatalf("error = %v, want network *Error", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) || !Notified(err) {
		t.Fatalf("error = %v, want notified deadline", err)
	}
	notices := rec.Notices()
	if len(notices) != 1 || notices[0].Message != networkMessage {
		t.Fatalf("notices = %#v, want one network notice", notices)
	}
}

func TestSend_DecodeErrorIsNotNotified(t *testing.T) {
	server := newBackend(t, func(r *gin.RouterGroup) {
		r.GET("/stocks/trade_dates", func(c *gin.Context) {
			c.Data(http.StatusOK, "application/json", []byte("{not-json"))
		})
	})
	rec := &notify.Recorder{}
	c := newTestClient(t, server, &fakeCreds{}, rec)

	_, err := c.TradeDates(context.Background())
	if err == nil || !strings.Contains(err.Error(), "decode response") {
		t.Fatalf("error = %v, want decode response error", err)
	}
	if Notified(err) || len(rec.Notices()) != 0 {
		t.Fatalf("decode errors are left to the caller")
	}
}

func TestHistory_EncodesQueryAndDecodesBars(t *testing.T) {
	var got url.Values
	server := newBackend(t, func(r *gin.RouterGroup) {
		r.GET("/stocks/history", func(c *gin.Context) {
			got = c.Request.URL.Query()
			c.Data(http.StatusOK, "application/json", []byte(`[
				{"日期":"2024-01-02","股票代码":600000,"开盘":7.05,"收盘":7.10,"最高":7.12,"最低":7.01,"成交量":123456,"成交额":8.7e7,"振幅":1.56,"涨跌幅":0.71,"涨跌额":0.05,"换手率":null}
			]`))
		})
	})
	c := newTestClient(t, server, &fakeCreds{}, &notify.Recorder{})

	bars, err := c.History(context.Background(), HistoryQuery{
		Code:      " 600000 ",
		StartDate: "20240101",
		EndDate:   "20240131",
		Adjust:    "qfq",
	})
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	if got.Get("code") != "600000" || got.Get("start_date") != "20240101" || got.Get("end_date") != "20240131" ||
		got.Get("adjust") != "qfq" || got.Get("source") != "eastmoney" {
		t.Fatalf("query = %v, want params encoded", got)
	}
	if len(bars) != 1 {
		t.Fatalf("bars = %#v, want 1", bars)
	}
	b := bars[0]
	if b.Code != "600000" || b.Date != "2024-01-02" {
		t.Fatalf("bar = %#v, want code/date", b)
	}
	if !b.Close.Equal(decimal.RequireFromString("7.10")) || !b.Turnover.IsZero() {
		t.Fatalf("bar prices = %s/%s, want 7.10 and zero turnover", b.Close, b.Turnover)
	}
}

func TestHistory_RejectsInvalidQueryBeforeDispatch(t *testing.T) {
	calls := 0
	server := newBackend(t, func(r *gin.RouterGroup) {
		r.GET("/stocks/history", func(c *gin.Context) {
			calls++
			c.JSON(http.StatusOK, []gin.H{})
		})
	})
	c := newTestClient(t, server, &fakeCreds{}, &notify.Recorder{})

	cases := []HistoryQuery{
		{},
		{Code: "600000", Adjust: "xx"},
		{Code: "600000", Source: "yahoo"},
		{Code: "600000", StartDate: "2024-01-01"},
		{Code: "600000", StartDate: "20240201", EndDate: "20240101"},
	}
	for _, q := range cases {
		if _, err := c.History(context.Background(), q); !errors.Is(err, ErrInvalidQuery) {
			t.Fatalf("History(%#v) error = %v, want ErrInvalidQuery", q, err)
		}
	}
	if calls != 0 {
		t.Fatalf("backend called %d times, want 0", calls)
	}
}

func TestSearchEndpoints(t *testing.T) {
	var companyQuery url.Values
	server := newBackend(t, func(r *gin.RouterGroup) {
		r.GET("/stocks/search", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"data": []gin.H{{"code": "600519", "name": "贵州茅台"}}})
		})
		r.GET("/stocks/company_profile", func(c *gin.Context) {
			c.JSON(http.StatusOK, []gin.H{{"item": "股票简称", "value": "贵州茅台"}, {"item": "总股本", "value": 1256197800}})
		})
		r.GET("/stocks/search_companies", func(c *gin.Context) {
			companyQuery = c.Request.URL.Query()
			c.JSON(http.StatusOK, gin.H{"data": []gin.H{{"股票代码": "600519", "股票简称": "贵州茅台", "行业": "酿酒行业"}}, "total": 41})
		})
	})
	c := newTestClient(t, server, &fakeCreds{}, &notify.Recorder{})
	ctx := context.Background()

	hits, err := c.SearchStocks(ctx, "茅台", 10)
	if err != nil || len(hits) != 1 || hits[0].Label() != "600519 贵州茅台" {
		t.Fatalf("SearchStocks = %#v, %v", hits, err)
	}

	profile, err := c.CompanyProfile(ctx, "600519")
	if err != nil {
		t.Fatalf("CompanyProfile returned error: %v", err)
	}
	if v, ok := profile.Get("总股本"); !ok || v != "1256197800" {
		t.Fatalf("profile 总股本 = %q, %v", v, ok)
	}

	page, err := c.SearchCompanies(ctx, CompanyQuery{Query: "酒", Page: 2, PageSize: 20, Industry: "酿酒行业"})
	if err != nil {
		t.Fatalf("SearchCompanies returned error: %v", err)
	}
	if page.Total != 41 || len(page.Data) != 1 || page.Data[0].Code() != "600519" || page.Data[0].Industry() != "酿酒行业" {
		t.Fatalf("page = %#v, want total 41 and one company", page)
	}
	if companyQuery.Get("page") != "2" || companyQuery.Get("page_size") != "20" || companyQuery.Get("industry") != "酿酒行业" {
		t.Fatalf("company query = %v", companyQuery)
	}
}

func TestCompanyProfile_DecodesObject(t *testing.T) {
	var p CompanyProfile
	if err := p.UnmarshalJSON([]byte(`{"name":"Kweichow Moutai","employees":30000}`)); err != nil {
		t.Fatalf("UnmarshalJSON returned error: %v", err)
	}
	if len(p.Fields) != 2 || p.Fields[0].Item != "employees" || p.Fields[0].Value != "30000" {
		t.Fatalf("fields = %#v, want sorted keys", p.Fields)
	}
}

func TestUnwrapEnvelope(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{`{"data":{"a":1}}`, `{"a":1}`},
		{`{"data":[1,2],"message":"ok","code":0}`, `[1,2]`},
		{`{"data":[1],"total":1}`, `{"data":[1],"total":1}`},
		{`{"access_token":"x"}`, `{"access_token":"x"}`},
		{`[1,2]`, `[1,2]`},
		{`  "s" `, `"s"`},
	}
	for _, tc := range cases {
		if got := string(unwrapEnvelope([]byte(tc.in))); got != tc.want {
			t.Fatalf("unwrapEnvelope(%s) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestErrorMessage(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{`{"detail":"用户名已被注册"}`, "用户名已被注册"},
		{`{"detail":[{"msg":""},{"msg":"field required"}]}`, "field required"},
		{`{"message":"bad"}`, "bad"},
		{`{"error":"nope"}`, "nope"},
		{`{"detail":{"x":1}}`, serverMessage},
		{`<html>`, serverMessage},
		{``, serverMessage},
	}
	for _, tc := range cases {
		if got := errorMessage([]byte(tc.in)); got != tc.want {
			t.Fatalf("errorMessage(%s) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
