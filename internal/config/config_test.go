package config

import (
	"testing"
	"time"

	"github.com/makutaku/vortex-go/internal/instrument"
)

func validConfig() DownloadConfig {
	return DownloadConfig{
		OutputDirectory: "/data",
		StorageFormat:   "csv",
		Provider:        ProviderConfig{Name: ProviderBarchart},
		Instruments: []instrument.Config{
			{AssetClass: instrument.KindStock, Code: "AAPL", Periods: []string{"1d"}},
		},
	}
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsMissingOutputDirectory(t *testing.T) {
	c := validConfig()
	c.OutputDirectory = ""
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidateRejectsUnknownStorageFormat(t *testing.T) {
	c := validConfig()
	c.StorageFormat = "xml"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error for unsupported storage format")
	}
}

func TestValidateRejectsInvertedRange(t *testing.T) {
	c := validConfig()
	c.RangeStart = mustParse("2024-06-01")
	c.RangeEnd = mustParse("2024-01-01")
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error for inverted range")
	}
}

func mustParse(s string) time.Time {
	parsed, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return parsed
}

func TestEffectiveMaxConcurrencyDefaultsToOne(t *testing.T) {
	c := validConfig()
	if got := c.EffectiveMaxConcurrency(); got != 1 {
		t.Fatalf("expected default concurrency 1, got %d", got)
	}
	c.MaxConcurrency = 4
	if got := c.EffectiveMaxConcurrency(); got != 4 {
		t.Fatalf("expected configured concurrency 4, got %d", got)
	}
}
