package instrument

import (
	"testing"
	"time"
)

func TestKeyIdentity(t *testing.T) {
	a := NewStock("AAPL")
	b := NewStock("AAPL")
	c := NewStock("MSFT")
	if a.Key() != b.Key() {
		t.Fatalf("expected equal keys for identical stocks")
	}
	if a.Key() == c.Key() {
		t.Fatalf("expected distinct keys for different symbols")
	}
}

func TestFutureKeyDistinguishesContractMonth(t *testing.T) {
	f1, err := NewFuture("GC", "GC", 2024, June, time.Time{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	f2, err := NewFuture("GC", "GC", 2024, December, time.Time{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if f1.Key() == f2.Key() {
		t.Fatalf("expected distinct keys for different contract months")
	}
}

func TestNewFutureRejectsInvalidMonthCode(t *testing.T) {
	if _, err := NewFuture("GC", "GC", 2024, MonthCode('A'), time.Time{}, 0); err == nil {
		t.Fatalf("expected error for invalid month code")
	}
}

func TestValidityWindowDerivation(t *testing.T) {
	f, err := NewFuture("GC", "GC", 2024, March, time.Time{}, 30)
	if err != nil {
		t.Fatal(err)
	}
	start, end, ok := f.ValidityWindow()
	if !ok {
		t.Fatalf("expected valid window")
	}
	want := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	if !start.Equal(want) {
		t.Fatalf("start = %v, want %v", start, want)
	}
	if !end.Equal(want.AddDate(0, 0, 30)) {
		t.Fatalf("end = %v, want %v", end, want.AddDate(0, 0, 30))
	}
}

func TestValidityWindowUnknownWithoutDaysCount(t *testing.T) {
	f, err := NewFuture("GC", "GC", 2024, March, time.Time{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, ok := f.ValidityWindow(); ok {
		t.Fatalf("expected ok=false when daysCount is unset")
	}
}

func TestStockForexValidityWindowAlwaysFalse(t *testing.T) {
	if _, _, ok := NewStock("AAPL").ValidityWindow(); ok {
		t.Fatalf("stock should report ok=false")
	}
	if _, _, ok := NewForex("EURUSD").ValidityWindow(); ok {
		t.Fatalf("forex should report ok=false")
	}
}

func TestRollCycleMonthCodes(t *testing.T) {
	cycle := RollCycle("HMUZ")
	codes := cycle.MonthCodes()
	want := []MonthCode{March, June, September, December}
	if len(codes) != len(want) {
		t.Fatalf("got %d codes, want %d", len(codes), len(want))
	}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("codes[%d] = %c, want %c", i, codes[i], want[i])
		}
	}
	if cycle.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", cycle.Len())
	}
}

func TestConfigFuturesExpansion(t *testing.T) {
	cfg := Config{
		AssetClass: KindFuture,
		Code:       "GC",
		Cycle:      RollCycle("HMUZ"),
		DaysCount:  30,
	}
	futs, err := cfg.Futures(2024, 2025)
	if err != nil {
		t.Fatal(err)
	}
	if len(futs) != 8 {
		t.Fatalf("expected 8 contracts (4 months * 2 years), got %d", len(futs))
	}
}

func TestConfigFuturesClampsToStartDate(t *testing.T) {
	cfg := Config{
		AssetClass: KindFuture,
		Code:       "GC",
		Cycle:      RollCycle("HMUZ"),
		DaysCount:  30,
		StartDate:  time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
	futs, err := cfg.Futures(2024, 2024)
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range futs {
		_, end, _ := f.ValidityWindow()
		if end.Before(cfg.StartDate) {
			t.Fatalf("contract %v should have been clamped out", f)
		}
	}
}
