package risk

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/jcqlabs/futrun/internal/contracts"
	"github.com/jcqlabs/futrun/internal/strategy"
)

// Config holds the dollar-denominated risk limits.
type Config struct {
	PerTradeCapUSD    float64 `yaml:"per_trade_cap_usd"`
	AccountOpenCapUSD float64 `yaml:"account_open_cap_usd"`
	PreferMicro       bool    `yaml:"prefer_micro"`
}

// DefaultConfig mirrors the production risk profile.
func DefaultConfig() Config {
	return Config{
		PerTradeCapUSD:    100.0,
		AccountOpenCapUSD: 300.0,
		PreferMicro:       true,
	}
}

// SizedOrder is an accepted candidate plus an integer contract quantity.
// Qty is always >= 1 here; rejected candidates never become orders.
type SizedOrder struct {
	Candidate strategy.Candidate
	Spec      contracts.Spec // may be the micro alias of the candidate's symbol
	Qty       int
	RiskUSD   float64 // qty * stop distance * point value
}

// Decision explains an accepted or rejected sizing. Limit names the
// constraint that rejected the candidate.
type Decision struct {
	Allowed bool
	Limit   string
	Reason  string
}

// Limit names used in rejection decisions.
const (
	LimitStopDistance = "stop_distance"
	LimitPerTrade     = "per_trade_cap"
	LimitAccountOpen  = "account_open_cap"
	LimitMaxPosition  = "max_position"
)

// Manager converts eligible candidates into sized orders. Deterministic
// given the same candidate and risk state.
type Manager struct {
	cfg      Config
	registry *contracts.Registry
}

// NewManager creates a risk manager over a contract registry.
func NewManager(cfg Config, registry *contracts.Registry) *Manager {
	return &Manager{cfg: cfg, registry: registry}
}

// Size returns the largest integer quantity satisfying every constraint
// simultaneously, or a rejection when even one contract would violate any of
// them. When the full-size contract cannot carry one contract and a micro
// alias exists, sizing is retried on the micro before rejecting.
func (m *Manager) Size(c strategy.Candidate, st *State) (SizedOrder, Decision) {
	if c.StopDistance <= 0 || math.IsNaN(c.StopDistance) {
		return SizedOrder{}, Decision{Limit: LimitStopDistance, Reason: fmt.Sprintf("stop distance %.4f not positive", c.StopDistance)}
	}

	spec, err := m.registry.Get(c.Symbol)
	if err != nil {
		return SizedOrder{}, Decision{Limit: LimitStopDistance, Reason: err.Error()}
	}

	order, dec := m.sizeOn(c, spec, st)
	if dec.Allowed {
		return order, dec
	}

	if m.cfg.PreferMicro {
		if micro, ok := m.registry.Micro(c.Symbol); ok {
			mo, mdec := m.sizeOn(c, micro, st)
			if mdec.Allowed {
				log.Debug().
					Str("symbol", c.Symbol).
					Str("micro", micro.Symbol).
					Int("qty", mo.Qty).
					Msg("sized on micro contract")
				return mo, mdec
			}
		}
	}
	return SizedOrder{}, dec
}

func (m *Manager) sizeOn(c strategy.Candidate, spec contracts.Spec, st *State) (SizedOrder, Decision) {
	perContract := c.StopDistance * spec.PointValue

	// Per-trade cap, boundary inclusive: a contract whose worst-case loss
	// equals the cap exactly is accepted.
	qty := int(math.Floor(m.cfg.PerTradeCapUSD / perContract))
	if qty < 1 {
		return SizedOrder{}, Decision{
			Limit:  LimitPerTrade,
			Reason: fmt.Sprintf("one %s contract risks $%.2f > per-trade cap $%.2f", spec.Symbol, perContract, m.cfg.PerTradeCapUSD),
		}
	}

	// Account-level open risk headroom.
	headroom := m.cfg.AccountOpenCapUSD - st.OpenRiskUSD()
	headQty := int(math.Floor(headroom / perContract))
	if headQty < 1 {
		return SizedOrder{}, Decision{
			Limit: LimitAccountOpen,
			Reason: fmt.Sprintf("open risk $%.2f leaves headroom $%.2f < one %s contract $%.2f",
				st.OpenRiskUSD(), headroom, spec.Symbol, perContract),
		}
	}
	if headQty < qty {
		qty = headQty
	}

	// Instrument ceiling from the contract spec.
	if spec.MaxPosition > 0 && qty > spec.MaxPosition {
		qty = spec.MaxPosition
	}
	if qty < 1 {
		return SizedOrder{}, Decision{
			Limit:  LimitMaxPosition,
			Reason: fmt.Sprintf("%s max position %d admits no contracts", spec.Symbol, spec.MaxPosition),
		}
	}

	return SizedOrder{
		Candidate: c,
		Spec:      spec,
		Qty:       qty,
		RiskUSD:   spec.DollarsAtRisk(qty, c.StopDistance),
	}, Decision{Allowed: true}
}
