// Package strategy turns per-bar model estimates into scored, rule-checked
// trade candidates.
package strategy

import (
	"time"
)

// Side is a trade direction.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// Candidate is an ephemeral, not-yet-sized trade proposal for one bar. It is
// consumed immediately by scoring, rule filtering and sizing; never persisted.
type Candidate struct {
	Timestamp      time.Time `json:"ts"`
	Symbol         string    `json:"symbol"`
	Side           Side      `json:"side"`
	Entry          float64   `json:"entry"`           // entry reference price
	StopDistance   float64   `json:"stop_distance"`   // price points, > 0
	TargetDistance float64   `json:"target_distance"` // price points, > 0
	Probability    float64   `json:"probability"`     // P(win) from the model
	EV             float64   `json:"ev"`              // expected value in R, set by the scorer
	Setup          string    `json:"setup"`           // which setup proposed it
}

// StopPrice returns the protective stop level implied by the entry reference.
func (c Candidate) StopPrice() float64 {
	if c.Side == SideShort {
		return c.Entry + c.StopDistance
	}
	return c.Entry - c.StopDistance
}

// TargetPrice returns the profit target level implied by the entry reference.
func (c Candidate) TargetPrice() float64 {
	if c.Side == SideShort {
		return c.Entry - c.TargetDistance
	}
	return c.Entry + c.TargetDistance
}

// RewardMultiple is target distance over stop distance.
func (c Candidate) RewardMultiple() float64 {
	if c.StopDistance == 0 {
		return 0
	}
	return c.TargetDistance / c.StopDistance
}
