// Package session implements timezone-aware trading sessions for futures.
package session

import (
	"fmt"
	"time"
)

// Window is an intraday trading window in the calendar's timezone,
// e.g. {Start: "09:30", End: "11:30"}. End is inclusive.
type Window struct {
	Start string `yaml:"start" json:"start"`
	End   string `yaml:"end" json:"end"`
}

// Config describes the session calendar for one market.
type Config struct {
	Timezone     string   `yaml:"timezone" json:"timezone"`
	RTHStart     string   `yaml:"rth_start" json:"rth_start"`
	RTHEnd       string   `yaml:"rth_end" json:"rth_end"`
	RollHour     int      `yaml:"roll_hour" json:"roll_hour"` // local hour the session date rolls forward; 0 keeps calendar dates
	TradeWindows []Window `yaml:"trade_windows" json:"trade_windows"`
}

// DefaultConfig matches the CME equity-index session: RTH 09:30-16:00 ET,
// Globex day rolling at 18:00 ET.
func DefaultConfig() Config {
	return Config{
		Timezone: "America/New_York",
		RTHStart: "09:30",
		RTHEnd:   "16:00",
		RollHour: 18,
		TradeWindows: []Window{
			{Start: "09:30", End: "11:30"},
			{Start: "13:30", End: "15:45"},
		},
	}
}

// Calendar answers session membership questions for timestamps.
type Calendar struct {
	loc      *time.Location
	rthStart minuteOfDay
	rthEnd   minuteOfDay
	rollHour int
	windows  [][2]minuteOfDay
}

type minuteOfDay int

func parseClock(s string) (minuteOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("session: bad clock time %q: %w", s, err)
	}
	return minuteOfDay(t.Hour()*60 + t.Minute()), nil
}

// NewCalendar builds a calendar from config. An empty trade-window list means
// every RTH minute is tradeable.
func NewCalendar(cfg Config) (*Calendar, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("session: load timezone %q: %w", cfg.Timezone, err)
	}
	if cfg.RollHour < 0 || cfg.RollHour > 23 {
		return nil, fmt.Errorf("session: roll hour %d outside [0, 23]", cfg.RollHour)
	}
	cal := &Calendar{loc: loc, rollHour: cfg.RollHour}
	if cal.rthStart, err = parseClock(cfg.RTHStart); err != nil {
		return nil, err
	}
	if cal.rthEnd, err = parseClock(cfg.RTHEnd); err != nil {
		return nil, err
	}
	for _, w := range cfg.TradeWindows {
		start, err := parseClock(w.Start)
		if err != nil {
			return nil, err
		}
		end, err := parseClock(w.End)
		if err != nil {
			return nil, err
		}
		if end < start {
			return nil, fmt.Errorf("session: window %s-%s ends before it starts", w.Start, w.End)
		}
		cal.windows = append(cal.windows, [2]minuteOfDay{start, end})
	}
	return cal, nil
}

func (c *Calendar) minute(ts time.Time) minuteOfDay {
	local := ts.In(c.loc)
	return minuteOfDay(local.Hour()*60 + local.Minute())
}

// IsRTH reports whether ts falls within regular trading hours.
func (c *Calendar) IsRTH(ts time.Time) bool {
	m := c.minute(ts)
	return m >= c.rthStart && m <= c.rthEnd
}

// InTradeWindow reports whether ts falls inside a configured trade window.
// With no windows configured, RTH membership decides.
func (c *Calendar) InTradeWindow(ts time.Time) bool {
	if len(c.windows) == 0 {
		return c.IsRTH(ts)
	}
	m := c.minute(ts)
	for _, w := range c.windows {
		if m >= w[0] && m <= w[1] {
			return true
		}
	}
	return false
}

// SessionDay maps ts onto its session date. With the default 18:00 roll the
// Globex session opens the prior evening, so a 19:00 bar on Jan 1 belongs to
// Jan 2. A zero roll hour keeps calendar dates.
func (c *Calendar) SessionDay(ts time.Time) time.Time {
	local := ts.In(c.loc)
	if c.rollHour > 0 && local.Hour() >= c.rollHour {
		local = local.AddDate(0, 0, 1)
	}
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// MinutesSinceRTHOpen returns whole minutes elapsed since the RTH open, or
// false when ts is before the open.
func (c *Calendar) MinutesSinceRTHOpen(ts time.Time) (int, bool) {
	m := c.minute(ts)
	if m < c.rthStart {
		return 0, false
	}
	return int(m - c.rthStart), true
}
