package provider

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/makutaku/vortex-go/internal/dataseries"
	"github.com/makutaku/vortex-go/internal/instrument"
	"github.com/makutaku/vortex-go/internal/period"
	"github.com/makutaku/vortex-go/internal/vortexerr"
)

// barchartFrequencies lists the periods Barchart's CSV export actually
// distinguishes (barchartPeriodCode collapses everything else to daily),
// each with the roughly 20-year history Barchart's free tier advertises
// and the 10000-row page size its /my/download endpoint enforces.
var barchartFrequencies = []period.FrequencyAttributes{
	{Frequency: period.OneDay, MaxRecordsPerDownload: 10000, MaxWindow: 20 * 365 * 24 * time.Hour, MinStart: relativeMinStart(20 * 365 * 24 * time.Hour), Relative: true},
	{Frequency: period.OneWeek, MaxRecordsPerDownload: 10000, MaxWindow: 20 * 365 * 24 * time.Hour, MinStart: relativeMinStart(20 * 365 * 24 * time.Hour), Relative: true},
	{Frequency: period.OneMonth, MaxRecordsPerDownload: 10000, MaxWindow: 20 * 365 * 24 * time.Hour, MinStart: relativeMinStart(20 * 365 * 24 * time.Hour), Relative: true},
	{Frequency: period.ThreeMonths, MaxRecordsPerDownload: 10000, MaxWindow: 20 * 365 * 24 * time.Hour, MinStart: relativeMinStart(20 * 365 * 24 * time.Hour), Relative: true},
}

// columnAliases maps the various header spellings Barchart's CSV export
// has used over time onto the canonical dataseries.Row fields.
var columnAliases = map[string]string{
	"time":         "timestamp",
	"date":         "timestamp",
	"tradingday":   "timestamp",
	"open":         "open",
	"high":         "high",
	"low":          "low",
	"last":         "close",
	"close":        "close",
	"volume":       "volume",
	"openinterest": "open_interest",
}

// Barchart implements Provider against barchart.com's historical-data
// export endpoints, following the teacher's raw-HTTP-over-SDK approach in
// massiveDataProvider but via resty instead of net/http directly, since
// Barchart additionally requires scraping a CSRF/XSRF token out of an HTML
// login page before CSV export requests will authenticate.
type Barchart struct {
	client     *resty.Client
	baseURL    string
	username   string
	password   string
	dailyLimit int

	mu       sync.Mutex
	loggedIn bool
}

// NewBarchart constructs a Barchart provider. baseURL defaults to
// https://www.barchart.com when empty. dailyLimit, when positive, gates
// Fetch behind a Usage() pre-flight check.
func NewBarchart(username, password, baseURL string, dailyLimit int) *Barchart {
	if baseURL == "" {
		baseURL = "https://www.barchart.com"
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(60 * time.Second).
		SetRetryCount(0). // resilience package owns retry policy, not the HTTP client
		SetHeader("User-Agent", "vortex-go/1.0")
	return &Barchart{client: client, baseURL: baseURL, username: username, password: password, dailyLimit: dailyLimit}
}

func (b *Barchart) Name() string { return "barchart" }

func (b *Barchart) SupportedFrequencies() []period.FrequencyAttributes { return barchartFrequencies }

func (b *Barchart) MinStart(p period.Period) (time.Time, bool) {
	return minStartFor(barchartFrequencies, p, time.Now().UTC())
}

// Login fetches the login page, scrapes the hidden "_token" form field, and
// posts credentials; success is judged by the response's final URL no
// longer being the login page rather than by status code, since a failed
// Laravel login re-renders /login with 200 and a flashed error.
func (b *Barchart) Login(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.loggedIn {
		return nil
	}

	resp, err := b.client.R().SetContext(ctx).Get("/login")
	if err != nil {
		return vortexerr.Wrap(vortexerr.ConnectionFailed("barchart", "/login"), err)
	}
	token := scrapeHiddenToken(resp.String())
	if token == "" {
		return vortexerr.AuthenticationFailed("barchart", "could not locate CSRF token on login page")
	}

	loginResp, err := b.client.R().SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetFormData(map[string]string{
			"email":    b.username,
			"password": b.password,
			"_token":   token,
		}).
		Post("/login")
	if err != nil {
		return vortexerr.Wrap(vortexerr.ConnectionFailed("barchart", "/login"), err)
	}
	if loginResp.StatusCode() == 401 || loginResp.StatusCode() == 403 {
		return vortexerr.AuthenticationFailed("barchart", "credentials rejected")
	}
	if finalURL := responseURL(loginResp); strings.Contains(finalURL, "/login") {
		return vortexerr.AuthenticationFailed("barchart", "credentials rejected")
	}

	b.loggedIn = true
	return nil
}

// Logout drops the local session flag; Barchart's cookie jar is left
// intact for the process lifetime, matching the teacher's pattern of
// treating logout as client-side bookkeeping rather than a server call.
func (b *Barchart) Logout(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loggedIn = false
	return nil
}

// responseURL returns the URL path of the last request actually sent, which for
// a redirect-following client is the page the server ultimately routed to
// rather than the one originally requested.
func responseURL(resp *resty.Response) string {
	if resp == nil || resp.RawResponse == nil || resp.RawResponse.Request == nil || resp.RawResponse.Request.URL == nil {
		return ""
	}
	return resp.RawResponse.Request.URL.Path
}

// scrapeHiddenToken extracts the value of a
// <input type="hidden" name="_token" value="..."> field, the mechanism
// Barchart's login form uses to carry its CSRF token.
func scrapeHiddenToken(html string) string {
	const marker = `name="_token" value="`
	idx := strings.Index(html, marker)
	if idx < 0 {
		return ""
	}
	rest := html[idx+len(marker):]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return ""
	}
	return rest[:end]
}

// xsrfCookie extracts and URL-decodes the XSRF-TOKEN cookie Barchart's
// session sets on login, the value /my/download expects back in the
// x-xsrf-token request header.
func (b *Barchart) xsrfCookie() (string, error) {
	u, err := url.Parse(b.baseURL)
	if err != nil {
		return "", err
	}
	for _, c := range b.client.GetClient().Jar.Cookies(u) {
		if c.Name == "XSRF-TOKEN" {
			return url.QueryUnescape(c.Value)
		}
	}
	return "", fmt.Errorf("barchart: no XSRF-TOKEN cookie on session")
}

// scrapeCSRFToken extracts the value of a
// <meta name="csrf-token" content="..."> tag from an HTML document, the
// mechanism Barchart's web UI uses instead of a JSON auth API.
func scrapeCSRFToken(html string) string {
	const marker = `name="csrf-token" content="`
	idx := strings.Index(html, marker)
	if idx < 0 {
		return ""
	}
	rest := html[idx+len(marker):]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return ""
	}
	return rest[:end]
}

// Usage asks /my/download how much of the day's download allowance has
// been consumed, via the same onlyCheckPermissions request the historical
// export endpoint itself accepts as a dry run.
func (b *Barchart) Usage(ctx context.Context) (used, limit int, ok bool) {
	csrfToken, xsrfToken, referer, err := b.pageTokens(ctx, instrument.NewStock("AAPL"), "AAPL")
	if err != nil {
		return 0, 0, false
	}
	var body struct {
		Count     int `json:"count"`
		Available int `json:"available"`
	}
	resp, err := b.client.R().SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetHeader("x-xsrf-token", xsrfToken).
		SetHeader("Referer", referer).
		SetResult(&body).
		SetFormData(map[string]string{
			"_token":               csrfToken,
			"onlyCheckPermissions": "true",
		}).
		Post("/my/download")
	if err != nil || resp.StatusCode() != 200 {
		return 0, 0, false
	}
	return body.Count, body.Available, true
}

// checkAllowance enforces the configured dailyLimit ahead of a Fetch call.
// A zero dailyLimit or a provider that can't report usage disables the
// check rather than blocking downloads.
func (b *Barchart) checkAllowance(ctx context.Context) error {
	if b.dailyLimit <= 0 {
		return nil
	}
	used, _, ok := b.Usage(ctx)
	if !ok {
		return nil
	}
	if used > b.dailyLimit {
		return vortexerr.AllowanceExceeded("barchart", fmt.Sprintf("daily usage %d exceeds configured limit %d", used, b.dailyLimit))
	}
	return nil
}

// pageTokens fetches the asset's historical-download page, scrapes its
// CSRF meta tag, and extracts the session's XSRF-TOKEN cookie, returning
// everything a POST to /my/download needs besides the request body.
func (b *Barchart) pageTokens(ctx context.Context, inst instrument.Instrument, symbol string) (csrfToken, xsrfToken, referer string, err error) {
	assetPath, err := barchartAssetPath(inst)
	if err != nil {
		return "", "", "", err
	}
	pagePath := fmt.Sprintf("/%s/quotes/%s/historical-download", assetPath, symbol)

	resp, err := b.client.R().SetContext(ctx).Get(pagePath)
	if err != nil {
		return "", "", "", vortexerr.Wrap(vortexerr.ConnectionFailed("barchart", pagePath), err)
	}
	csrfToken = scrapeCSRFToken(resp.String())
	if csrfToken == "" {
		return "", "", "", vortexerr.AuthenticationFailed("barchart", "could not locate CSRF token on historical-download page")
	}
	xsrfToken, err = b.xsrfCookie()
	if err != nil {
		return "", "", "", vortexerr.Wrap(vortexerr.AuthenticationFailed("barchart", "missing XSRF-TOKEN cookie"), err)
	}
	return csrfToken, xsrfToken, b.baseURL + pagePath, nil
}

// Fetch downloads a CSV export for the given instrument/period/window and
// parses it into a dataseries.Series.
func (b *Barchart) Fetch(ctx context.Context, req FetchRequest) (dataseries.Series, error) {
	if err := b.Login(ctx); err != nil {
		return dataseries.Series{}, err
	}
	if err := b.checkAllowance(ctx); err != nil {
		return dataseries.Series{}, err
	}

	symbol, err := barchartSymbol(req.Instrument)
	if err != nil {
		return dataseries.Series{}, err
	}

	csrfToken, xsrfToken, referer, err := b.pageTokens(ctx, req.Instrument, symbol)
	if err != nil {
		return dataseries.Series{}, err
	}

	periodKey := "period"
	if period.Intraday(req.Period) {
		periodKey = "interval"
	}

	resp, err := b.client.R().SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetHeader("x-xsrf-token", xsrfToken).
		SetHeader("Referer", referer).
		SetFormData(map[string]string{
			"_token":     csrfToken,
			"fileName":   symbol,
			"symbol":     symbol,
			"fields":     "tradeTime.format(Y-m-d),openPrice,highPrice,lowPrice,lastPrice,volume,openInterest",
			"startDate":  req.Start.Format("2006-01-02"),
			"endDate":    req.End.Format("2006-01-02"),
			"orderBy":    "tradeTime",
			"orderDir":   "asc",
			"method":     "historical",
			"limit":      "10000",
			"customView": "true",
			"type":       barchartTypeCode(req.Period),
			periodKey:    barchartPeriodCode(req.Period),
		}).
		Post("/my/download")
	if err != nil {
		return dataseries.Series{}, vortexerr.Wrap(vortexerr.ConnectionFailed("barchart", symbol), err)
	}

	switch resp.StatusCode() {
	case 429:
		return dataseries.Series{}, vortexerr.RateLimited("barchart", "daily download export rate limited", nil)
	case 402, 403:
		return dataseries.Series{}, vortexerr.AllowanceExceeded("barchart", "download allowance exhausted")
	case 404:
		return dataseries.Series{}, vortexerr.DataNotFound("barchart", symbol)
	}
	if resp.StatusCode() != 200 {
		return dataseries.Series{}, vortexerr.ProviderError("barchart", resp.Status())
	}

	rows, err := parseBarchartCSV(resp.String())
	if err != nil {
		return dataseries.Series{}, vortexerr.Wrap(vortexerr.ProviderError("barchart", "malformed CSV export"), err)
	}
	if len(rows) == 0 {
		return dataseries.Series{}, vortexerr.DataNotFound("barchart", symbol)
	}
	return dataseries.New(rows), nil
}

func (b *Barchart) MaxWindow(p period.Period) time.Duration {
	if period.Intraday(p) {
		return 90 * 24 * time.Hour
	}
	return 20 * 365 * 24 * time.Hour
}

func barchartSymbol(i instrument.Instrument) (string, error) {
	switch v := i.(type) {
	case instrument.Stock:
		return v.Symbol(), nil
	case instrument.Forex:
		return "^" + v.Symbol(), nil
	case instrument.Future:
		return v.FuturesCode() + string(byte(v.MonthCode())) + strconv.Itoa(v.Year()%100), nil
	default:
		return "", vortexerr.Configuration("barchart: unsupported instrument kind")
	}
}

// barchartAssetPath returns the quotes-section path segment the
// historical-download page lives under for i's instrument kind.
func barchartAssetPath(i instrument.Instrument) (string, error) {
	switch i.(type) {
	case instrument.Stock:
		return "stocks", nil
	case instrument.Forex:
		return "forex", nil
	case instrument.Future:
		return "futures", nil
	default:
		return "", vortexerr.Configuration("barchart: unsupported instrument kind")
	}
}

// barchartTypeCode selects the /my/download "type" field: Barchart's own
// UI distinguishes minute-bar exports from end-of-day exports here.
func barchartTypeCode(p period.Period) string {
	if period.Intraday(p) {
		return "minutes"
	}
	return "eod"
}

func barchartPeriodCode(p period.Period) string {
	switch p {
	case period.OneDay:
		return "daily"
	case period.OneWeek:
		return "weekly"
	case period.OneMonth, period.ThreeMonths:
		return "monthly"
	default:
		return "daily"
	}
}

func parseBarchartCSV(body string) ([]dataseries.Row, error) {
	r := csv.NewReader(strings.NewReader(body))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, nil
	}

	colIdx := map[string]int{}
	for i, h := range records[0] {
		key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(h), " ", ""))
		if canon, ok := columnAliases[key]; ok {
			colIdx[canon] = i
		}
	}

	var rows []dataseries.Row
	for _, rec := range records[1:] {
		// Barchart appends a trailing "Downloaded from..." footer line on
		// some exports; tolerate it by skipping rows without a parseable
		// timestamp rather than failing the whole file.
		ts, ok := parseFirstOf(rec, colIdx["timestamp"])
		if !ok {
			continue
		}
		rows = append(rows, dataseries.Row{
			Timestamp: ts,
			Open:      parseFloatAt(rec, colIdx["open"]),
			High:      parseFloatAt(rec, colIdx["high"]),
			Low:       parseFloatAt(rec, colIdx["low"]),
			Close:     parseFloatAt(rec, colIdx["close"]),
			Volume:    parseFloatAt(rec, colIdx["volume"]),
			OpenInt:   parseFloatAt(rec, colIdx["open_interest"]),
		})
	}
	return rows, nil
}

func parseFirstOf(rec []string, idx int) (time.Time, bool) {
	if idx < 0 || idx >= len(rec) {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02T15:04:05Z0700", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, strings.TrimSpace(rec[idx])); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func parseFloatAt(rec []string, idx int) float64 {
	if idx < 0 || idx >= len(rec) {
		return 0
	}
	v, _ := strconv.ParseFloat(strings.TrimSpace(rec[idx]), 64)
	return v
}
