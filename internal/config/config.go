// Package config holds the validated, typed surface the engine core
// exposes to its caller (cmd/vortex): the core never reads a config file
// itself, it only validates whatever struct main decodes JSON/YAML into.
package config

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/makutaku/vortex-go/internal/instrument"
	"github.com/makutaku/vortex-go/internal/vortexerr"
)

// ProviderName enumerates the supported data backends.
type ProviderName string

const (
	ProviderBarchart ProviderName = "barchart"
	ProviderYahoo    ProviderName = "yahoo"
	ProviderIBKR     ProviderName = "ibkr"
)

// ProviderConfig holds backend-specific credentials and tuning.
type ProviderConfig struct {
	Name        ProviderName `json:"name" validate:"required,oneof=barchart yahoo ibkr"`
	Username    string       `json:"username,omitempty"`
	Password    string       `json:"password,omitempty"`
	BaseURL     string       `json:"base_url,omitempty" validate:"omitempty,url"`
	DailyLimit  int          `json:"daily_limit,omitempty" validate:"omitempty,min=1"`
	RateLimitHz float64      `json:"rate_limit_hz,omitempty" validate:"omitempty,gt=0"`
}

// DownloadConfig is the top-level, validated configuration for one
// download run.
type DownloadConfig struct {
	OutputDirectory string                `json:"output_directory" validate:"required"`
	StorageFormat   string                `json:"storage_format" validate:"required,oneof=csv parquet"`
	Provider        ProviderConfig        `json:"provider" validate:"required"`
	Instruments     []instrument.Config   `json:"instruments" validate:"required,min=1,dive"`
	Backfill        bool                  `json:"backfill,omitempty"`
	DryRun          bool                  `json:"dry_run,omitempty"`
	MaxConcurrency  int                   `json:"max_concurrency,omitempty" validate:"omitempty,min=1"`
	RangeStart      time.Time             `json:"range_start,omitempty"`
	RangeEnd        time.Time             `json:"range_end,omitempty"`
}

var validate = validator.New()

// Validate runs struct-tag validation over c, returning a
// *vortexerr.Error(KindConfiguration) whose message lists every failing
// field when invalid.
func (c DownloadConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return vortexerr.Wrap(vortexerr.Configuration(err.Error()), err)
	}
	if !c.RangeStart.IsZero() && !c.RangeEnd.IsZero() && c.RangeStart.After(c.RangeEnd) {
		return vortexerr.Configuration("range_start must not be after range_end")
	}
	return nil
}

// EffectiveMaxConcurrency returns MaxConcurrency, defaulting to 1
// (sequential) when unset.
func (c DownloadConfig) EffectiveMaxConcurrency() int {
	if c.MaxConcurrency <= 0 {
		return 1
	}
	return c.MaxConcurrency
}
