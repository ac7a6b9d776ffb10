package market

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkBar(ts time.Time, o, h, l, c, v float64) Bar {
	return Bar{Timestamp: ts, Open: o, High: h, Low: l, Close: c, Volume: v}
}

func TestValidate_WellFormedSeries(t *testing.T) {
	s := NewSeries("NQ", "1m")
	base := time.Date(2025, 3, 3, 14, 30, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		ts := base.Add(time.Duration(i) * time.Minute)
		s.Append(mkBar(ts, 18000, 18010, 17995, 18005, 1200))
	}
	require.NoError(t, s.Validate())
}

func TestValidate_EmptySeries(t *testing.T) {
	s := NewSeries("NQ", "1m")
	assert.ErrorIs(t, s.Validate(), ErrEmptySeries)
}

func TestValidate_NonMonotonicTimestamps(t *testing.T) {
	s := NewSeries("NQ", "1m")
	base := time.Date(2025, 3, 3, 14, 30, 0, 0, time.UTC)
	s.Append(mkBar(base, 18000, 18010, 17995, 18005, 100))
	s.Append(mkBar(base.Add(time.Minute), 18005, 18015, 18000, 18010, 100))
	s.Append(mkBar(base.Add(time.Minute), 18010, 18020, 18005, 18015, 100)) // duplicate ts
	assert.ErrorIs(t, s.Validate(), ErrNonMonotonic)
}

func TestValidate_MalformedOHLC(t *testing.T) {
	base := time.Date(2025, 3, 3, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		bar  Bar
		want error
	}{
		{"high below close", mkBar(base, 18000, 18001, 17990, 18005, 100), ErrMalformedBar},
		{"low above open", mkBar(base, 18000, 18010, 18002, 18005, 100), ErrMalformedBar},
		{"negative volume", mkBar(base, 18000, 18010, 17990, 18005, -1), ErrMalformedBar},
		{"nan close", mkBar(base, 18000, 18010, 17990, math.NaN(), 100), ErrNonFinite},
		{"inf high", mkBar(base, 18000, math.Inf(1), 17990, 18005, 100), ErrNonFinite},
		{"zero price", mkBar(base, 0, 18010, 17990, 18005, 100), ErrNonFinite},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSeries("NQ", "1m")
			s.Append(tt.bar)
			assert.ErrorIs(t, s.Validate(), tt.want)
		})
	}
}

func TestSeries_FeatureAndModelAlignment(t *testing.T) {
	s := NewSeries("NQ", "1m")
	ts := time.Date(2025, 3, 3, 14, 30, 0, 0, time.UTC)
	s.Append(mkBar(ts, 18000, 18010, 17995, 18005, 1200))

	s.SetFeatures(FeatureVector{Timestamp: ts, Values: map[string]float64{"atr_14": 12.5}})
	s.SetModel(ModelOutput{Timestamp: ts, ProbUp: 0.58, ProbDown: 0.42})

	fv, ok := s.FeaturesAt(ts)
	require.True(t, ok)
	atr, ok := fv.Get("atr_14")
	require.True(t, ok)
	assert.Equal(t, 12.5, atr)

	m, ok := s.ModelAt(ts)
	require.True(t, ok)
	side, p := m.Favored()
	assert.Equal(t, "long", side)
	assert.Equal(t, 0.58, p)

	// Gaps are tolerated: absence is not an error.
	_, ok = s.FeaturesAt(ts.Add(time.Minute))
	assert.False(t, ok)
}

func TestSeries_Slice(t *testing.T) {
	s := NewSeries("NQ", "1m")
	base := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		s.Append(mkBar(base.Add(time.Duration(i)*time.Minute), 18000, 18010, 17995, 18005, 100))
	}

	sub := s.Slice(base.Add(2*time.Minute), base.Add(7*time.Minute))
	require.Equal(t, 5, sub.Len())
	first, last := sub.Range()
	assert.Equal(t, base.Add(2*time.Minute), first)
	assert.Equal(t, base.Add(6*time.Minute), last)
}
