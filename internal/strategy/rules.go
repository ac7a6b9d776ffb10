package strategy

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jcqlabs/futrun/internal/session"
)

// PortfolioView is the snapshot of account state the rule gates see. The
// engine fills it from its risk state each bar; the filter never holds
// mutable state of its own.
type PortfolioView struct {
	OpenPositions  int           // currently open positions on the symbol
	DailyTrades    int           // trades opened this session day
	DailyRealizedR float64       // realized R this session day (losses negative)
	SinceLastTrade time.Duration // time since the last trade opened; 0 when none yet
	HasTraded      bool
}

// RulesConfig enables and parameterizes each gate independently.
type RulesConfig struct {
	TradeWindow struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"trade_window"`
	MaxOpenPositions struct {
		Enabled bool `yaml:"enabled"`
		Max     int  `yaml:"max"`
	} `yaml:"max_open_positions"`
	Cooldown struct {
		Enabled bool `yaml:"enabled"`
		Minutes int  `yaml:"minutes"`
	} `yaml:"cooldown"`
	DailyTradeCap struct {
		Enabled bool `yaml:"enabled"`
		Max     int  `yaml:"max"`
	} `yaml:"daily_trade_cap"`
	DailyLossHalt struct {
		Enabled bool    `yaml:"enabled"`
		MaxR    float64 `yaml:"max_r"` // halt once realized R <= -MaxR
	} `yaml:"daily_loss_halt"`
}

// DefaultRulesConfig enables every gate with production thresholds.
func DefaultRulesConfig() RulesConfig {
	var cfg RulesConfig
	cfg.TradeWindow.Enabled = true
	cfg.MaxOpenPositions.Enabled = true
	cfg.MaxOpenPositions.Max = 1
	cfg.Cooldown.Enabled = true
	cfg.Cooldown.Minutes = 15
	cfg.DailyTradeCap.Enabled = true
	cfg.DailyTradeCap.Max = 10
	cfg.DailyLossHalt.Enabled = true
	cfg.DailyLossHalt.MaxR = 5.0
	return cfg
}

// Decision is the outcome of running a candidate through the gates. Gate and
// Reason are recorded for observability only; control flow keys off Allowed.
type Decision struct {
	Allowed bool
	Gate    string
	Reason  string
}

type gate struct {
	name    string
	enabled bool
	check   func(c Candidate, view PortfolioView) (bool, string)
}

// Filter applies an ordered list of named predicate gates to candidates.
type Filter struct {
	gates []gate
}

// NewFilter builds the gate chain from config. Gate order is fixed so that
// rejection reasons are deterministic.
func NewFilter(cfg RulesConfig, cal *session.Calendar) *Filter {
	f := &Filter{}

	f.gates = append(f.gates, gate{
		name:    "trade_window",
		enabled: cfg.TradeWindow.Enabled,
		check: func(c Candidate, _ PortfolioView) (bool, string) {
			if !cal.InTradeWindow(c.Timestamp) {
				return false, "outside configured trade windows"
			}
			return true, ""
		},
	})

	f.gates = append(f.gates, gate{
		name:    "max_open_positions",
		enabled: cfg.MaxOpenPositions.Enabled,
		check: func(_ Candidate, view PortfolioView) (bool, string) {
			if view.OpenPositions >= cfg.MaxOpenPositions.Max {
				return false, fmt.Sprintf("open positions %d >= %d", view.OpenPositions, cfg.MaxOpenPositions.Max)
			}
			return true, ""
		},
	})

	f.gates = append(f.gates, gate{
		name:    "cooldown",
		enabled: cfg.Cooldown.Enabled,
		check: func(_ Candidate, view PortfolioView) (bool, string) {
			period := time.Duration(cfg.Cooldown.Minutes) * time.Minute
			if view.HasTraded && view.SinceLastTrade < period {
				return false, fmt.Sprintf("cooldown %v since last trade < %v", view.SinceLastTrade, period)
			}
			return true, ""
		},
	})

	f.gates = append(f.gates, gate{
		name:    "daily_trade_cap",
		enabled: cfg.DailyTradeCap.Enabled,
		check: func(_ Candidate, view PortfolioView) (bool, string) {
			if view.DailyTrades >= cfg.DailyTradeCap.Max {
				return false, fmt.Sprintf("daily trades %d >= %d", view.DailyTrades, cfg.DailyTradeCap.Max)
			}
			return true, ""
		},
	})

	f.gates = append(f.gates, gate{
		name:    "daily_loss_halt",
		enabled: cfg.DailyLossHalt.Enabled,
		check: func(_ Candidate, view PortfolioView) (bool, string) {
			if view.DailyRealizedR <= -cfg.DailyLossHalt.MaxR {
				return false, fmt.Sprintf("daily realized %.2fR <= -%.2fR, halted for the session", view.DailyRealizedR, cfg.DailyLossHalt.MaxR)
			}
			return true, ""
		},
	})

	return f
}

// Evaluate runs the candidate through every enabled gate in order. The first
// failing gate decides the rejection.
func (f *Filter) Evaluate(c Candidate, view PortfolioView) Decision {
	for _, g := range f.gates {
		if !g.enabled {
			continue
		}
		ok, reason := g.check(c, view)
		if !ok {
			log.Debug().
				Str("symbol", c.Symbol).
				Time("ts", c.Timestamp).
				Str("gate", g.name).
				Str("reason", reason).
				Msg("candidate rejected by rule gate")
			return Decision{Allowed: false, Gate: g.name, Reason: reason}
		}
	}
	return Decision{Allowed: true}
}
