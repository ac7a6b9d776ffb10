package strategy

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Scoring errors. A candidate failing these is not scoreable at all, as
// opposed to scoring below a configured EV gate.
var (
	ErrBadStopDistance   = errors.New("strategy: stop distance must be positive")
	ErrBadRewardMultiple = errors.New("strategy: reward multiple must be finite")
	ErrBadProbability    = errors.New("strategy: probability must be within [0, 1]")
)

// ScoreEV computes the candidate's expected value in risk multiples:
//
//	EV = pWin*rewardMultiple - (1-pWin)*1.0
//
// A losing trade always costs exactly one R; winners pay the reward multiple.
func ScoreEV(c *Candidate) (float64, error) {
	if c.StopDistance <= 0 {
		return 0, fmt.Errorf("%w: %.4f", ErrBadStopDistance, c.StopDistance)
	}
	if c.Probability < 0 || c.Probability > 1 || math.IsNaN(c.Probability) {
		return 0, fmt.Errorf("%w: %.4f", ErrBadProbability, c.Probability)
	}
	rm := c.TargetDistance / c.StopDistance
	if math.IsNaN(rm) || math.IsInf(rm, 0) {
		return 0, ErrBadRewardMultiple
	}
	ev := c.Probability*rm - (1-c.Probability)*1.0
	c.EV = ev
	return ev, nil
}

// Better reports whether a should rank ahead of b among candidates at the
// same timestamp. EV decides; ties prefer the larger reward multiple, then
// the lower required probability (the more conservative signal).
func Better(a, b Candidate) bool {
	if a.EV != b.EV {
		return a.EV > b.EV
	}
	if am, bm := a.RewardMultiple(), b.RewardMultiple(); am != bm {
		return am > bm
	}
	return a.Probability < b.Probability
}

// Rank scores every candidate and returns the scoreable ones in rank order.
// Unscoreable candidates are dropped silently; they represent degenerate
// geometry, not strategy decisions.
func Rank(candidates []Candidate) []Candidate {
	ranked := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if _, err := ScoreEV(&c); err != nil {
			continue
		}
		ranked = append(ranked, c)
	}
	sort.SliceStable(ranked, func(i, j int) bool { return Better(ranked[i], ranked[j]) })
	return ranked
}
