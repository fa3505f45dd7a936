package instrument

import (
	"fmt"
	"time"
)

// Config is the declarative description of an instrument the engine should
// download data for, as it would be decoded from an external assets file.
// Validation tags mirror the teacher's use of go-playground/validator on
// its own config structs.
type Config struct {
	AssetClass Kind      `json:"asset_class" validate:"required,oneof=stock forex future"`
	Code       string    `json:"code" validate:"required"`
	Cycle      RollCycle `json:"cycle,omitempty"`
	Periods    []string  `json:"periods" validate:"required,min=1,dive,required"`
	TickDate   time.Time `json:"tick_date,omitempty"`
	DaysCount  int       `json:"days_count,omitempty" validate:"omitempty,min=1"`
	StartDate  time.Time `json:"start_date,omitempty"`
}

// Futures builds the set of Future instruments a futures Config expands to,
// one per year in [fromYear, toYear] and per month code in Cycle, clamped
// to StartDate when set.
func (c Config) Futures(fromYear, toYear int) ([]Future, error) {
	if c.AssetClass != KindFuture {
		return nil, fmt.Errorf("instrument: Futures called on non-future config %q", c.AssetClass)
	}
	var out []Future
	for year := fromYear; year <= toYear; year++ {
		for _, mc := range c.Cycle.MonthCodes() {
			f, err := NewFuture(c.Code, c.Code, year, mc, c.TickDate, c.DaysCount)
			if err != nil {
				return nil, err
			}
			if !c.StartDate.IsZero() {
				if _, end, ok := f.ValidityWindow(); ok && end.Before(c.StartDate) {
					continue
				}
			}
			out = append(out, f)
		}
	}
	return out, nil
}
