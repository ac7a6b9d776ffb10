// Package contracts holds static per-instrument trading parameters.
package contracts

import (
	"fmt"
)

// Spec describes the static trading parameters of one futures contract.
type Spec struct {
	Symbol        string  `yaml:"symbol" json:"symbol"`
	TickSize      float64 `yaml:"tick_size" json:"tick_size"`
	TickValue     float64 `yaml:"tick_value" json:"tick_value"`   // dollars per tick per contract
	PointValue    float64 `yaml:"point_value" json:"point_value"` // dollars per point per contract
	InitialMargin float64 `yaml:"initial_margin" json:"initial_margin"`
	MaxPosition   int     `yaml:"max_position" json:"max_position"` // hard qty ceiling per instrument
	MicroAlias    string  `yaml:"micro_alias,omitempty" json:"micro_alias,omitempty"`
}

// TicksToPrice converts a tick count into a price distance.
func (s Spec) TicksToPrice(ticks float64) float64 { return ticks * s.TickSize }

// PriceToTicks converts a price distance into ticks.
func (s Spec) PriceToTicks(price float64) float64 {
	if s.TickSize == 0 {
		return 0
	}
	return price / s.TickSize
}

// DollarsAtRisk is the worst-case loss for qty contracts with the given stop
// distance in price points.
func (s Spec) DollarsAtRisk(qty int, stopDistance float64) float64 {
	return float64(qty) * stopDistance * s.PointValue
}

// Registry maps symbols to contract specs.
type Registry struct {
	specs map[string]Spec
}

// NewRegistry builds a registry from the given specs.
func NewRegistry(specs ...Spec) *Registry {
	r := &Registry{specs: make(map[string]Spec, len(specs))}
	for _, s := range specs {
		r.specs[s.Symbol] = s
	}
	return r
}

// DefaultRegistry covers the CME equity-index contracts the system trades.
func DefaultRegistry() *Registry {
	return NewRegistry(
		Spec{Symbol: "NQ", TickSize: 0.25, TickValue: 5.0, PointValue: 20.0, InitialMargin: 17700, MaxPosition: 10, MicroAlias: "MNQ"},
		Spec{Symbol: "MNQ", TickSize: 0.25, TickValue: 0.5, PointValue: 2.0, InitialMargin: 1770, MaxPosition: 50},
		Spec{Symbol: "ES", TickSize: 0.25, TickValue: 12.5, PointValue: 50.0, InitialMargin: 15500, MaxPosition: 10, MicroAlias: "MES"},
		Spec{Symbol: "MES", TickSize: 0.25, TickValue: 1.25, PointValue: 5.0, InitialMargin: 1550, MaxPosition: 50},
	)
}

// Get returns the spec for symbol.
func (r *Registry) Get(symbol string) (Spec, error) {
	s, ok := r.specs[symbol]
	if !ok {
		return Spec{}, fmt.Errorf("contracts: unknown symbol %q", symbol)
	}
	return s, nil
}

// Micro returns the micro-contract spec aliased by symbol, if any.
func (r *Registry) Micro(symbol string) (Spec, bool) {
	s, ok := r.specs[symbol]
	if !ok || s.MicroAlias == "" {
		return Spec{}, false
	}
	m, ok := r.specs[s.MicroAlias]
	return m, ok
}
