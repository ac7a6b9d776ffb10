package sim

import (
	"fmt"

	"github.com/jcqlabs/futrun/internal/contracts"
	"github.com/jcqlabs/futrun/internal/strategy"
)

// SlippageModel adjusts a reference price against the trader. Models are
// deterministic: identical inputs always produce identical fills.
type SlippageModel interface {
	// Adjust returns the fill price for the given reference, moved against
	// the trade direction. Entry and exit both pay.
	Adjust(ref float64, side strategy.Side, spec contracts.Spec) float64
	Name() string
}

// FixedTicks slips a constant number of ticks per side.
type FixedTicks struct {
	Ticks float64 `yaml:"ticks"`
}

func (f FixedTicks) Adjust(ref float64, side strategy.Side, spec contracts.Spec) float64 {
	d := f.Ticks * spec.TickSize
	if side == strategy.SideShort {
		return ref - d
	}
	return ref + d
}

func (f FixedTicks) Name() string { return "fixed_ticks" }

// Proportional slips a fixed fraction of the reference price per side.
type Proportional struct {
	Fraction float64 `yaml:"fraction"`
}

func (p Proportional) Adjust(ref float64, side strategy.Side, spec contracts.Spec) float64 {
	d := ref * p.Fraction
	if side == strategy.SideShort {
		return ref - d
	}
	return ref + d
}

func (p Proportional) Name() string { return "proportional" }

// SlippageConfig selects and parameterizes the slippage model.
type SlippageConfig struct {
	Model      string  `yaml:"model"` // "fixed_ticks" | "proportional"
	Ticks      float64 `yaml:"ticks"`
	Proportion float64 `yaml:"proportion"`
}

// BuildSlippage constructs the configured model.
func BuildSlippage(cfg SlippageConfig) (SlippageModel, error) {
	switch cfg.Model {
	case "", "fixed_ticks":
		return FixedTicks{Ticks: cfg.Ticks}, nil
	case "proportional":
		return Proportional{Fraction: cfg.Proportion}, nil
	default:
		return nil, fmt.Errorf("sim: unknown slippage model %q", cfg.Model)
	}
}

// CostConfig holds commission settings. Fees are charged per contract on
// both entry and exit.
type CostConfig struct {
	FeePerContract float64 `yaml:"fee_per_contract"`
}

// RoundTripFees is the commission for qty contracts in and out.
func (c CostConfig) RoundTripFees(qty int) float64 {
	return c.FeePerContract * float64(qty) * 2
}
