// Package instrument models the three tradable instrument shapes the
// engine downloads data for — Stock, Forex, Future — as a narrow interface
// implemented by structs with unexported fields, replacing runtime type-switching on a
// tagged union with an exhaustive type-switch confined to the two dispatch
// sites the design calls out: planner expansion and storage path
// generation.
package instrument

import (
	"fmt"
	"time"
)

// Kind identifies which instrument variant a value holds.
type Kind string

const (
	KindStock  Kind = "stock"
	KindForex  Kind = "forex"
	KindFuture Kind = "future"
)

// Instrument is implemented by Stock, Forex, and Future. Identity is
// defined by (Kind, Symbol, [Year, MonthCode for futures]); Key returns a
// string suitable for map-based equality checks honoring that invariant.
// ValidityWindow is only meaningful for Future; Stock and Forex report ok=false.
type Instrument interface {
	Kind() Kind
	Symbol() string
	Key() string
	ValidityWindow() (start, end time.Time, ok bool)
	fmt.Stringer
}

// Stock is an equity instrument.
type Stock struct {
	symbol string
}

// NewStock constructs a Stock instrument.
func NewStock(symbol string) Stock { return Stock{symbol: symbol} }

func (s Stock) Kind() Kind     { return KindStock }
func (s Stock) Symbol() string { return s.symbol }
func (s Stock) Key() string    { return "stock:" + s.symbol }
func (s Stock) String() string { return s.Key() }

func (s Stock) ValidityWindow() (start, end time.Time, ok bool) {
	return time.Time{}, time.Time{}, false
}

// Forex is a currency-pair instrument.
type Forex struct {
	symbol string
}

// NewForex constructs a Forex instrument.
func NewForex(symbol string) Forex { return Forex{symbol: symbol} }

func (f Forex) Kind() Kind     { return KindForex }
func (f Forex) Symbol() string { return f.symbol }
func (f Forex) Key() string    { return "forex:" + f.symbol }
func (f Forex) String() string { return f.Key() }

func (f Forex) ValidityWindow() (start, end time.Time, ok bool) {
	return time.Time{}, time.Time{}, false
}
