package dataseries

import "time"

// Metadata is the sidecar, JSON-persisted record accompanying a persisted
// Series, describing what the series contains without requiring the data
// file itself to be parsed.
type Metadata struct {
	Symbol        string    `json:"symbol"`
	Period        string    `json:"period"`
	FirstRow      time.Time `json:"first_row"`
	LastRow       time.Time `json:"last_row"`
	RowCount      int       `json:"row_count"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
	Provider      string    `json:"provider"`
}

// NewMetadata derives Metadata from a persisted series.
func NewMetadata(symbol, period, provider string, s Series, now time.Time) Metadata {
	return Metadata{
		Symbol:        symbol,
		Period:        period,
		FirstRow:      s.First(),
		LastRow:       s.Last(),
		RowCount:      s.Len(),
		LastUpdatedAt: now,
		Provider:      provider,
	}
}
