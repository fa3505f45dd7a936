package provider

import (
	"context"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/makutaku/vortex-go/internal/dataseries"
	"github.com/makutaku/vortex-go/internal/instrument"
	"github.com/makutaku/vortex-go/internal/period"
	"github.com/makutaku/vortex-go/internal/vortexerr"
)

// Yahoo implements Provider against Yahoo Finance's chart API. Unlike
// Barchart it requires no login, but it is aggressively rate-limited, so a
// golang.org/x/time/rate.Limiter throttles outgoing requests independently
// of the resilience package's retry/backoff policy (the limiter paces
// well-behaved traffic; the retrier recovers from the provider's own
// rate-limit responses when the limiter's pacing still wasn't enough).
type Yahoo struct {
	client  *resty.Client
	limiter *rate.Limiter
}

// NewYahoo constructs a Yahoo provider, allowing at most ratePerSecond
// requests/sec with a burst of 1.
func NewYahoo(ratePerSecond float64) *Yahoo {
	if ratePerSecond <= 0 {
		ratePerSecond = 2
	}
	return &Yahoo{
		client: resty.New().
			SetBaseURL("https://query1.finance.yahoo.com").
			SetTimeout(30 * time.Second).
			SetHeader("User-Agent", "vortex-go/1.0"),
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), 1),
	}
}

// yahooFrequencies lists the periods yahooIntervalCode maps to a distinct
// interval code, each with the rolling history window Yahoo's chart API
// actually serves for that bar size (intraday bars roll off much sooner
// than daily+).
var yahooFrequencies = []period.FrequencyAttributes{
	{Frequency: period.OneMinute, MaxRecordsPerDownload: 0, MaxWindow: 7 * 24 * time.Hour, MinStart: relativeMinStart(30 * 24 * time.Hour), Relative: true},
	{Frequency: period.FiveMinutes, MaxRecordsPerDownload: 0, MaxWindow: 7 * 24 * time.Hour, MinStart: relativeMinStart(60 * 24 * time.Hour), Relative: true},
	{Frequency: period.FifteenMin, MaxRecordsPerDownload: 0, MaxWindow: 7 * 24 * time.Hour, MinStart: relativeMinStart(60 * 24 * time.Hour), Relative: true},
	{Frequency: period.ThirtyMinutes, MaxRecordsPerDownload: 0, MaxWindow: 7 * 24 * time.Hour, MinStart: relativeMinStart(60 * 24 * time.Hour), Relative: true},
	{Frequency: period.OneHour, MaxRecordsPerDownload: 0, MaxWindow: 7 * 24 * time.Hour, MinStart: relativeMinStart(730 * 24 * time.Hour), Relative: true},
	{Frequency: period.OneDay, MaxRecordsPerDownload: 0, MaxWindow: 10 * 365 * 24 * time.Hour, MinStart: relativeMinStart(10 * 365 * 24 * time.Hour), Relative: true},
	{Frequency: period.OneWeek, MaxRecordsPerDownload: 0, MaxWindow: 10 * 365 * 24 * time.Hour, MinStart: relativeMinStart(10 * 365 * 24 * time.Hour), Relative: true},
	{Frequency: period.OneMonth, MaxRecordsPerDownload: 0, MaxWindow: 10 * 365 * 24 * time.Hour, MinStart: relativeMinStart(10 * 365 * 24 * time.Hour), Relative: true},
}

func (y *Yahoo) Name() string { return "yahoo" }

// Login is a no-op: Yahoo's chart API requires no authentication.
func (y *Yahoo) Login(ctx context.Context) error { return nil }

// Logout is a no-op: Login never established any session state to release.
func (y *Yahoo) Logout(ctx context.Context) error { return nil }

// Usage always reports ok=false: Yahoo exposes no allowance API.
func (y *Yahoo) Usage(ctx context.Context) (used, limit int, ok bool) { return 0, 0, false }

func (y *Yahoo) SupportedFrequencies() []period.FrequencyAttributes { return yahooFrequencies }

func (y *Yahoo) MinStart(p period.Period) (time.Time, bool) {
	return minStartFor(yahooFrequencies, p, time.Now().UTC())
}

func (y *Yahoo) Fetch(ctx context.Context, req FetchRequest) (dataseries.Series, error) {
	if err := y.limiter.Wait(ctx); err != nil {
		return dataseries.Series{}, err
	}

	symbol, err := yahooSymbol(req.Instrument)
	if err != nil {
		return dataseries.Series{}, err
	}

	var body struct {
		Chart struct {
			Result []struct {
				Timestamp  []int64 `json:"timestamp"`
				Indicators struct {
					Quote []struct {
						Open   []float64 `json:"open"`
						High   []float64 `json:"high"`
						Low    []float64 `json:"low"`
						Close  []float64 `json:"close"`
						Volume []float64 `json:"volume"`
					} `json:"quote"`
				} `json:"indicators"`
			} `json:"result"`
			Error *struct {
				Code        string `json:"code"`
				Description string `json:"description"`
			} `json:"error"`
		} `json:"chart"`
	}

	resp, err := y.client.R().SetContext(ctx).
		SetResult(&body).
		SetQueryParams(map[string]string{
			"interval": yahooIntervalCode(req.Period),
			"period1":  formatUnix(req.Start),
			"period2":  formatUnix(req.End),
		}).
		Get("/v8/finance/chart/" + symbol)
	if err != nil {
		return dataseries.Series{}, vortexerr.Wrap(vortexerr.ConnectionFailed("yahoo", symbol), err)
	}
	if resp.StatusCode() == 429 {
		return dataseries.Series{}, vortexerr.RateLimited("yahoo", "chart API rate limited", nil)
	}
	if body.Chart.Error != nil {
		return dataseries.Series{}, vortexerr.DataNotFound("yahoo", body.Chart.Error.Description)
	}
	if len(body.Chart.Result) == 0 || len(body.Chart.Result[0].Indicators.Quote) == 0 {
		return dataseries.Series{}, vortexerr.DataNotFound("yahoo", symbol)
	}

	result := body.Chart.Result[0]
	q := result.Indicators.Quote[0]
	rows := make([]dataseries.Row, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		rows = append(rows, dataseries.Row{
			Timestamp: time.Unix(ts, 0).UTC(),
			Open:      valueAt(q.Open, i),
			High:      valueAt(q.High, i),
			Low:       valueAt(q.Low, i),
			Close:     valueAt(q.Close, i),
			Volume:    valueAt(q.Volume, i),
		})
	}
	if len(rows) == 0 {
		return dataseries.Series{}, vortexerr.DataNotFound("yahoo", symbol)
	}
	return dataseries.New(rows), nil
}

func (y *Yahoo) MaxWindow(p period.Period) time.Duration {
	if period.Intraday(p) {
		return 7 * 24 * time.Hour
	}
	return 10 * 365 * 24 * time.Hour
}

func yahooSymbol(i instrument.Instrument) (string, error) {
	switch v := i.(type) {
	case instrument.Stock:
		return v.Symbol(), nil
	case instrument.Forex:
		return v.Symbol() + "=X", nil
	default:
		return "", vortexerr.Configuration("yahoo: futures are not supported by this provider")
	}
}

func yahooIntervalCode(p period.Period) string {
	switch p {
	case period.OneMinute:
		return "1m"
	case period.FiveMinutes:
		return "5m"
	case period.FifteenMin:
		return "15m"
	case period.ThirtyMinutes:
		return "30m"
	case period.OneHour:
		return "60m"
	case period.OneWeek:
		return "1wk"
	case period.OneMonth, period.ThreeMonths:
		return "1mo"
	default:
		return "1d"
	}
}

func formatUnix(t time.Time) string {
	if t.IsZero() {
		return "0"
	}
	return strconv.FormatInt(t.Unix(), 10)
}

func valueAt(xs []float64, i int) float64 {
	if i < 0 || i >= len(xs) {
		return 0
	}
	return xs[i]
}
