package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cand(p, stop, target float64) Candidate {
	return Candidate{
		Timestamp:      time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC),
		Symbol:         "NQ",
		Side:           SideLong,
		Entry:          18000,
		StopDistance:   stop,
		TargetDistance: target,
		Probability:    p,
	}
}

func TestScoreEV_KnownValue(t *testing.T) {
	// p=0.55, 10-tick stop, 20-tick target: EV = 0.55*2 - 0.45*1 = 0.65.
	c := cand(0.55, 10*0.25, 20*0.25)
	ev, err := ScoreEV(&c)
	require.NoError(t, err)
	assert.InDelta(t, 0.65, ev, 1e-12)
	assert.InDelta(t, 0.65, c.EV, 1e-12)

	// Passes a zero EV gate, fails a 0.7 gate.
	assert.Greater(t, ev, 0.0)
	assert.Less(t, ev, 0.7)
}

func TestScoreEV_MonotoneInProbability(t *testing.T) {
	prev := -2.0
	for p := 0.05; p <= 0.95; p += 0.05 {
		c := cand(p, 10, 20)
		ev, err := ScoreEV(&c)
		require.NoError(t, err)
		assert.Greater(t, ev, prev, "EV must increase with probability at fixed reward multiple")
		prev = ev
	}
}

func TestScoreEV_MonotoneInRewardMultiple(t *testing.T) {
	prev := -2.0
	for rm := 1.0; rm <= 5.0; rm += 0.5 {
		c := cand(0.5, 10, 10*rm)
		ev, err := ScoreEV(&c)
		require.NoError(t, err)
		assert.Greater(t, ev, prev, "EV must increase with reward multiple at fixed probability")
		prev = ev
	}
}

func TestScoreEV_Rejections(t *testing.T) {
	c := cand(0.5, 0, 20)
	_, err := ScoreEV(&c)
	assert.ErrorIs(t, err, ErrBadStopDistance)

	c = cand(0.5, -5, 20)
	_, err = ScoreEV(&c)
	assert.ErrorIs(t, err, ErrBadStopDistance)

	c = cand(1.5, 10, 20)
	_, err = ScoreEV(&c)
	assert.ErrorIs(t, err, ErrBadProbability)
}

func TestBetter_TieBreaks(t *testing.T) {
	// EV decides first.
	hi := cand(0.6, 10, 30)
	lo := cand(0.6, 10, 20)
	hi.EV, lo.EV = 1.4, 0.8
	assert.True(t, Better(hi, lo))
	assert.False(t, Better(lo, hi))

	// On EV ties the larger reward multiple ranks first.
	a := cand(0.50, 10, 30) // rm 3
	b := cand(0.60, 10, 20) // rm 2
	a.EV, b.EV = 1.0, 1.0
	assert.True(t, Better(a, b), "larger reward multiple ranks first on EV ties")
	assert.False(t, Better(b, a))

	// Identical EV and geometry: prefer the lower probability.
	c1 := cand(0.50, 10, 20)
	c2 := cand(0.51, 10, 20)
	c1.EV, c2.EV = 1.0, 1.0
	assert.True(t, Better(c1, c2))
	assert.False(t, Better(c2, c1))
}

func TestRank_OrdersByEVAndDropsUnscoreable(t *testing.T) {
	good := cand(0.6, 10, 20)
	better := cand(0.6, 10, 30)
	broken := cand(0.6, 0, 20)

	ranked := Rank([]Candidate{good, broken, better})
	require.Len(t, ranked, 2)
	assert.Equal(t, 30.0, ranked[0].TargetDistance)
	assert.Equal(t, 20.0, ranked[1].TargetDistance)
}
