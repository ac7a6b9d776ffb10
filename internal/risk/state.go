// Package risk sizes candidates and enforces per-trade and account limits.
package risk

import (
	"time"

	"github.com/google/uuid"
)

// State is the mutable account-risk state shared by sizing and rule checks:
// open risk per position, daily counters, last trade time. It is owned by
// exactly one engine instance and passed explicitly into every decision call;
// there is no process-wide singleton, which is what makes parallel fold and
// path execution safe.
type State struct {
	openRiskUSD    map[uuid.UUID]float64
	dailyRealizedR map[time.Time]float64
	dailyTrades    map[time.Time]int
	lastTradeAt    time.Time
	hasTraded      bool
}

// NewState creates an empty risk state.
func NewState() *State {
	return &State{
		openRiskUSD:    make(map[uuid.UUID]float64),
		dailyRealizedR: make(map[time.Time]float64),
		dailyTrades:    make(map[time.Time]int),
	}
}

// Reserve records the worst-case dollar risk of a newly opened position.
func (s *State) Reserve(id uuid.UUID, riskUSD float64) {
	s.openRiskUSD[id] = riskUSD
}

// Release frees the open risk held by a closed position.
func (s *State) Release(id uuid.UUID) {
	delete(s.openRiskUSD, id)
}

// OpenRiskUSD is the summed worst-case loss across open positions.
func (s *State) OpenRiskUSD() float64 {
	total := 0.0
	for _, r := range s.openRiskUSD {
		total += r
	}
	return total
}

// OpenPositions is the number of currently open positions.
func (s *State) OpenPositions() int { return len(s.openRiskUSD) }

// RecordOpen bumps the daily trade counter and the last-trade time.
func (s *State) RecordOpen(sessionDay time.Time, at time.Time) {
	s.dailyTrades[sessionDay]++
	s.lastTradeAt = at
	s.hasTraded = true
}

// RecordRealized adds a closed trade's r-multiple to the session-day total.
func (s *State) RecordRealized(sessionDay time.Time, r float64) {
	s.dailyRealizedR[sessionDay] += r
}

// DailyTrades returns the trade count for a session day.
func (s *State) DailyTrades(sessionDay time.Time) int { return s.dailyTrades[sessionDay] }

// DailyRealizedR returns the realized r-multiple total for a session day.
func (s *State) DailyRealizedR(sessionDay time.Time) float64 { return s.dailyRealizedR[sessionDay] }

// SinceLastTrade reports the elapsed time since the last opened trade.
func (s *State) SinceLastTrade(now time.Time) (time.Duration, bool) {
	if !s.hasTraded {
		return 0, false
	}
	return now.Sub(s.lastTradeAt), true
}
