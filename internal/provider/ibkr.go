package provider

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/makutaku/vortex-go/internal/dataseries"
	"github.com/makutaku/vortex-go/internal/instrument"
	"github.com/makutaku/vortex-go/internal/period"
	"github.com/makutaku/vortex-go/internal/vortexerr"
)

// Conn is the narrow surface IBKR needs from an Interactive Brokers TWS/IB
// Gateway client. It is defined here, rather than imported from a concrete
// client SDK, so the provider can be exercised against a fake in tests
// without a running gateway — no IBKR Go client appears anywhere in the
// example corpus, so this boundary has no teacher implementation to adapt
// and is hand-rolled to the shape IBKR's own API documentation describes
// (reqHistoricalData callbacks keyed by request ID).
type Conn interface {
	// Connected reports whether the gateway handshake has completed.
	Connected() bool
	// Connect performs the API handshake.
	Connect(ctx context.Context) error
	// RequestHistoricalData issues a reqHistoricalData call and blocks
	// until the corresponding historicalDataEnd callback fires.
	RequestHistoricalData(ctx context.Context, contract ContractSpec, endDateTime time.Time, duration, barSize string) ([]dataseries.Row, error)
	// Disconnect tears down the gateway connection.
	Disconnect(ctx context.Context) error
}

// ibkrFrequencies lists the periods ibkrBarSize maps to a distinct IBKR
// bar-size string. Intraday history is capped to the roughly six months
// IBKR's pacing rules make practical to backfill; daily+ bars go back
// years, bounded by MaxWindow's own per-request span.
var ibkrFrequencies = []period.FrequencyAttributes{
	{Frequency: period.OneMinute, MaxRecordsPerDownload: 0, MaxWindow: 24 * time.Hour, MinStart: relativeMinStart(180 * 24 * time.Hour), Relative: true},
	{Frequency: period.FiveMinutes, MaxRecordsPerDownload: 0, MaxWindow: 24 * time.Hour, MinStart: relativeMinStart(180 * 24 * time.Hour), Relative: true},
	{Frequency: period.FifteenMin, MaxRecordsPerDownload: 0, MaxWindow: 24 * time.Hour, MinStart: relativeMinStart(180 * 24 * time.Hour), Relative: true},
	{Frequency: period.ThirtyMinutes, MaxRecordsPerDownload: 0, MaxWindow: 24 * time.Hour, MinStart: relativeMinStart(180 * 24 * time.Hour), Relative: true},
	{Frequency: period.OneHour, MaxRecordsPerDownload: 0, MaxWindow: 24 * time.Hour, MinStart: relativeMinStart(180 * 24 * time.Hour), Relative: true},
	{Frequency: period.OneDay, MaxRecordsPerDownload: 0, MaxWindow: 365 * 24 * time.Hour, MinStart: relativeMinStart(5 * 365 * 24 * time.Hour), Relative: true},
	{Frequency: period.OneWeek, MaxRecordsPerDownload: 0, MaxWindow: 365 * 24 * time.Hour, MinStart: relativeMinStart(5 * 365 * 24 * time.Hour), Relative: true},
	{Frequency: period.OneMonth, MaxRecordsPerDownload: 0, MaxWindow: 365 * 24 * time.Hour, MinStart: relativeMinStart(5 * 365 * 24 * time.Hour), Relative: true},
	{Frequency: period.ThreeMonths, MaxRecordsPerDownload: 0, MaxWindow: 365 * 24 * time.Hour, MinStart: relativeMinStart(5 * 365 * 24 * time.Hour), Relative: true},
}

// ContractSpec is the subset of an IBKR contract descriptor needed to place
// a historical-data request.
type ContractSpec struct {
	Symbol     string
	SecType    string // "STK", "CASH", "FUT"
	Exchange   string
	Currency   string
	Expiry     string // "YYYYMM", futures only
}

// IBKR implements Provider by delegating to a Conn, keeping the
// TWS-protocol plumbing out of the download engine itself.
type IBKR struct {
	conn Conn
}

// NewIBKR constructs an IBKR provider around an already-configured Conn.
func NewIBKR(conn Conn) *IBKR {
	return &IBKR{conn: conn}
}

func (p *IBKR) Name() string { return "ibkr" }

func (p *IBKR) Login(ctx context.Context) error {
	if p.conn.Connected() {
		return nil
	}
	if err := p.conn.Connect(ctx); err != nil {
		return vortexerr.Wrap(vortexerr.ConnectionFailed("ibkr", "gateway handshake failed"), err)
	}
	return nil
}

// Logout tears down the gateway connection if one is established.
func (p *IBKR) Logout(ctx context.Context) error {
	if !p.conn.Connected() {
		return nil
	}
	if err := p.conn.Disconnect(ctx); err != nil {
		return vortexerr.Wrap(vortexerr.ConnectionFailed("ibkr", "gateway disconnect failed"), err)
	}
	return nil
}

// Usage always reports ok=false: IBKR has no download-allowance concept,
// only a pacing-violation response surfaced per-request.
func (p *IBKR) Usage(ctx context.Context) (used, limit int, ok bool) { return 0, 0, false }

func (p *IBKR) SupportedFrequencies() []period.FrequencyAttributes { return ibkrFrequencies }

func (p *IBKR) MinStart(per period.Period) (time.Time, bool) {
	return minStartFor(ibkrFrequencies, per, time.Now().UTC())
}

func (p *IBKR) Fetch(ctx context.Context, req FetchRequest) (dataseries.Series, error) {
	spec, err := ibkrContractSpec(req.Instrument)
	if err != nil {
		return dataseries.Series{}, err
	}

	rows, err := p.conn.RequestHistoricalData(ctx, spec, req.End, ibkrDuration(req.Start, req.End), ibkrBarSize(req.Period))
	if err != nil {
		return dataseries.Series{}, vortexerr.Wrap(vortexerr.ProviderError("ibkr", "reqHistoricalData failed"), err)
	}
	if len(rows) == 0 {
		return dataseries.Series{}, vortexerr.DataNotFound("ibkr", spec.Symbol)
	}
	return dataseries.New(rows), nil
}

func (p *IBKR) MaxWindow(per period.Period) time.Duration {
	if period.Intraday(per) {
		return 24 * time.Hour // IBKR caps intraday historical requests to 1 day per bar-size tier
	}
	return 365 * 24 * time.Hour
}

func ibkrContractSpec(i instrument.Instrument) (ContractSpec, error) {
	switch v := i.(type) {
	case instrument.Stock:
		return ContractSpec{Symbol: v.Symbol(), SecType: "STK", Exchange: "SMART", Currency: "USD"}, nil
	case instrument.Forex:
		return ContractSpec{Symbol: v.Symbol(), SecType: "CASH", Exchange: "IDEALPRO"}, nil
	case instrument.Future:
		return ContractSpec{
			Symbol:   v.FuturesCode(),
			SecType:  "FUT",
			Exchange: "GLOBEX",
			Expiry:   fmt.Sprintf("%04d%02d", v.Year(), int(v.ContractMonth())),
		}, nil
	default:
		return ContractSpec{}, vortexerr.Configuration("ibkr: unsupported instrument kind")
	}
}

// ibkrDuration formats the span as an IBKR "durationString" ("N D"), the
// unit reqHistoricalData expects for sub-year requests.
func ibkrDuration(start, end time.Time) string {
	days := int(end.Sub(start).Hours()/24) + 1
	if days <= 0 {
		days = 1
	}
	return strconv.Itoa(days) + " D"
}

func ibkrBarSize(p period.Period) string {
	switch p {
	case period.OneMinute:
		return "1 min"
	case period.FiveMinutes:
		return "5 mins"
	case period.FifteenMin:
		return "15 mins"
	case period.ThirtyMinutes:
		return "30 mins"
	case period.OneHour:
		return "1 hour"
	case period.OneWeek:
		return "1 week"
	case period.OneMonth, period.ThreeMonths:
		return "1 month"
	default:
		return "1 day"
	}
}
