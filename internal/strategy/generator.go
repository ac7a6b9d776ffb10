package strategy

import (
	"math"

	"github.com/rs/zerolog/log"

	"github.com/jcqlabs/futrun/internal/market"
	"github.com/jcqlabs/futrun/internal/session"
)

// Feature names the generator reads from the feature vector.
const (
	FeatureATR       = "atr_14"
	FeatureVWAP      = "session_vwap"
	FeaturePriorHigh = "prior_high"
	FeaturePriorLow  = "prior_low"
)

// GeneratorConfig controls candidate construction.
type GeneratorConfig struct {
	MinEdgeProb   float64 `yaml:"min_edge_prob"`  // minimum model P(win) to consider a bar
	MaxProb       float64 `yaml:"max_prob"`       // reject implausibly confident estimates
	MinRewardRisk float64 `yaml:"min_reward_risk"`
	MaxRewardRisk float64 `yaml:"max_reward_risk"`
	MinEV         float64 `yaml:"min_ev"` // best candidate must score at least this EV
	StopATR       float64 `yaml:"stop_atr"`      // stop distance as a multiple of ATR
	TargetRR      float64 `yaml:"target_rr"`     // baseline target as a multiple of the stop
	LevelTolATR   float64 `yaml:"level_tol_atr"` // proximity for level-retest setups

	EnableBaseline     bool `yaml:"enable_baseline"`
	EnableVWAP         bool `yaml:"enable_vwap"`
	EnablePriorSession bool `yaml:"enable_prior_session"`
}

// DefaultGeneratorConfig mirrors the production strategy defaults.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		MinEdgeProb:        0.45,
		MaxProb:            0.95,
		MinRewardRisk:      1.5,
		MaxRewardRisk:      5.0,
		MinEV:              0.0,
		StopATR:            0.5,
		TargetRR:           2.0,
		LevelTolATR:        0.25,
		EnableBaseline:     true,
		EnableVWAP:         true,
		EnablePriorSession: true,
	}
}

// Generator builds at most one candidate per bar per symbol. It is a pure
// function of its inputs plus static configuration: no side effects, no
// access to anything later than the decision bar.
type Generator struct {
	cfg GeneratorConfig
	cal *session.Calendar
}

// NewGenerator creates a generator bound to a session calendar.
func NewGenerator(cfg GeneratorConfig, cal *session.Calendar) *Generator {
	return &Generator{cfg: cfg, cal: cal}
}

// Generate proposes the single best candidate for this bar, or ok=false when
// the bar yields nothing: probability below the edge threshold, outside the
// trading window, no setup with admissible geometry, or the best setup
// scoring under the EV floor. Only one direction, the model's favored side,
// is ever considered per bar.
func (g *Generator) Generate(symbol string, bar market.Bar, feats market.FeatureVector, model market.ModelOutput) (Candidate, bool) {
	if !g.cal.InTradeWindow(bar.Timestamp) {
		return Candidate{}, false
	}

	sideStr, pWin := model.Favored()
	if pWin < g.cfg.MinEdgeProb || pWin > g.cfg.MaxProb {
		return Candidate{}, false
	}
	side := Side(sideStr)

	atr, ok := feats.Get(FeatureATR)
	if !ok || atr <= 0 || math.IsNaN(atr) {
		return Candidate{}, false
	}

	proposals := g.propose(symbol, bar, feats, side, pWin, atr)
	ranked := Rank(proposals)
	if len(ranked) == 0 {
		return Candidate{}, false
	}

	best := ranked[0]
	if best.EV < g.cfg.MinEV {
		return Candidate{}, false
	}
	log.Debug().
		Str("symbol", symbol).
		Time("ts", bar.Timestamp).
		Str("side", string(best.Side)).
		Str("setup", best.Setup).
		Float64("p_win", best.Probability).
		Float64("ev", best.EV).
		Msg("candidate generated")
	return best, true
}

// propose builds same-side proposals from every enabled setup.
func (g *Generator) propose(symbol string, bar market.Bar, feats market.FeatureVector, side Side, pWin, atr float64) []Candidate {
	var out []Candidate
	stop := g.cfg.StopATR * atr

	add := func(entry, target float64, setup string) {
		if target <= 0 || stop <= 0 {
			return
		}
		rr := target / stop
		if rr < g.cfg.MinRewardRisk || rr > g.cfg.MaxRewardRisk {
			return
		}
		out = append(out, Candidate{
			Timestamp:      bar.Timestamp,
			Symbol:         symbol,
			Side:           side,
			Entry:          entry,
			StopDistance:   stop,
			TargetDistance: target,
			Probability:    pWin,
			Setup:          setup,
		})
	}

	// Baseline: enter at the close in the model's direction.
	if g.cfg.EnableBaseline {
		add(bar.Close, stop*g.cfg.TargetRR, "baseline")
	}

	// VWAP pullback: price stretched away from session VWAP, expect reversion
	// toward it. Only taken when the stretch is on the favorable side.
	if g.cfg.EnableVWAP {
		if vwap, ok := feats.Get(FeatureVWAP); ok && vwap > 0 {
			dist := bar.Close - vwap
			if side == SideLong && dist < 0 {
				add(bar.Close, -dist+stop, "vwap_pullback")
			}
			if side == SideShort && dist > 0 {
				add(bar.Close, dist+stop, "vwap_pullback")
			}
		}
	}

	// Prior-session level retest: close near yesterday's extreme with the
	// model pointing back inside the range.
	if g.cfg.EnablePriorSession {
		tol := g.cfg.LevelTolATR * atr
		if pl, ok := feats.Get(FeaturePriorLow); ok && pl > 0 && side == SideLong {
			if math.Abs(bar.Close-pl) <= tol {
				if ph, ok := feats.Get(FeaturePriorHigh); ok && ph > bar.Close {
					add(bar.Close, ph-bar.Close, "prior_low_retest")
				}
			}
		}
		if ph, ok := feats.Get(FeaturePriorHigh); ok && ph > 0 && side == SideShort {
			if math.Abs(bar.Close-ph) <= tol {
				if pl, ok := feats.Get(FeaturePriorLow); ok && pl < bar.Close && pl > 0 {
					add(bar.Close, bar.Close-pl, "prior_high_retest")
				}
			}
		}
	}

	return out
}
