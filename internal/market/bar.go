package market

import (
	"time"
)

// Bar is a fixed-interval OHLCV summary of price action. Bars are immutable
// once produced; the engine only ever reads them.
type Bar struct {
	Timestamp time.Time `json:"ts"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// FeatureVector holds timestamp-aligned named features for one bar.
type FeatureVector struct {
	Timestamp time.Time          `json:"ts"`
	Values    map[string]float64 `json:"values"`
}

// Get returns the named feature value and whether it is present.
func (fv FeatureVector) Get(name string) (float64, bool) {
	v, ok := fv.Values[name]
	return v, ok
}

// ModelOutput is the per-bar estimate produced by the external probability
// model: directional win probabilities, expected return magnitude, and
// opaque metadata the core never interprets.
type ModelOutput struct {
	Timestamp      time.Time         `json:"ts"`
	ProbUp         float64           `json:"prob_up"`
	ProbDown       float64           `json:"prob_down"`
	ExpectedReturn float64           `json:"expected_return"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// Favored returns the favored direction ("long"/"short") and its probability.
func (m ModelOutput) Favored() (string, float64) {
	if m.ProbDown > m.ProbUp {
		return "short", m.ProbDown
	}
	return "long", m.ProbUp
}
