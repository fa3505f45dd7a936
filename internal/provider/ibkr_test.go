package provider

import (
	"context"
	"testing"
	"time"

	"github.com/makutaku/vortex-go/internal/dataseries"
	"github.com/makutaku/vortex-go/internal/instrument"
	"github.com/makutaku/vortex-go/internal/period"
)

type fakeConn struct {
	connected bool
	rows      []dataseries.Row
	err       error
}

func (f *fakeConn) Connected() bool { return f.connected }
func (f *fakeConn) Connect(ctx context.Context) error {
	f.connected = true
	return nil
}
func (f *fakeConn) Disconnect(ctx context.Context) error {
	f.connected = false
	return nil
}
func (f *fakeConn) RequestHistoricalData(ctx context.Context, spec ContractSpec, end time.Time, duration, barSize string) ([]dataseries.Row, error) {
	return f.rows, f.err
}

func TestIBKRLoginConnectsOnce(t *testing.T) {
	fc := &fakeConn{}
	p := NewIBKR(fc)
	if err := p.Login(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !fc.connected {
		t.Fatalf("expected Connect to be called")
	}
}

func TestIBKRFetchReturnsDataNotFoundWhenEmpty(t *testing.T) {
	fc := &fakeConn{connected: true}
	p := NewIBKR(fc)
	_, err := p.Fetch(context.Background(), FetchRequest{
		Instrument: instrument.NewStock("AAPL"),
		Period:     period.OneDay,
		Start:      time.Now().AddDate(0, 0, -5),
		End:        time.Now(),
	})
	if err == nil {
		t.Fatalf("expected DataNotFound error")
	}
}

func TestIBKRFetchReturnsRows(t *testing.T) {
	fc := &fakeConn{connected: true, rows: []dataseries.Row{{Timestamp: time.Now(), Close: 1.23}}}
	p := NewIBKR(fc)
	s, err := p.Fetch(context.Background(), FetchRequest{
		Instrument: instrument.NewStock("AAPL"),
		Period:     period.OneDay,
		Start:      time.Now().AddDate(0, 0, -5),
		End:        time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 row, got %d", s.Len())
	}
}

func TestIBKRLogoutDisconnects(t *testing.T) {
	fc := &fakeConn{connected: true}
	p := NewIBKR(fc)
	if err := p.Logout(context.Background()); err != nil {
		t.Fatal(err)
	}
	if fc.connected {
		t.Fatalf("expected Disconnect to be called")
	}
}

func TestIBKRContractSpecByKind(t *testing.T) {
	spec, err := ibkrContractSpec(instrument.NewForex("EURUSD"))
	if err != nil {
		t.Fatal(err)
	}
	if spec.SecType != "CASH" {
		t.Fatalf("expected CASH sectype, got %s", spec.SecType)
	}
}
