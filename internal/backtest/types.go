// Package backtest orchestrates one deterministic pass over a bar series.
package backtest

import (
	"time"

	"github.com/google/uuid"

	"github.com/jcqlabs/futrun/internal/sim"
)

// EquityPoint is the cumulative net PnL after processing one bar.
type EquityPoint struct {
	Timestamp time.Time `json:"ts"`
	CumPnL    float64   `json:"cum_pnl"`
}

// Summary aggregates a run's closed trades.
type Summary struct {
	NumTrades    int     `json:"num_trades"`
	TotalR       float64 `json:"total_r"`
	TotalPnL     float64 `json:"total_pnl"`
	TotalFees    float64 `json:"total_fees"`
	WinRate      float64 `json:"win_rate"`
	AvgWinR      float64 `json:"avg_win_r"`
	AvgLossR     float64 `json:"avg_loss_r"`
	ProfitFactor float64 `json:"profit_factor"`
	MaxDrawdownR float64 `json:"max_drawdown_r"` // most negative excursion of the R equity curve
	Sharpe       float64 `json:"sharpe"`         // per-trade mean/std, annualized at 252
}

// RunResult is the immutable product of one backtest pass: the closed-trade
// ledger, the equity curve, and summary metrics. Consumers define their own
// storage encoding.
type RunResult struct {
	ID          uuid.UUID      `json:"id"`
	Symbol      string         `json:"symbol"`
	Timeframe   string         `json:"timeframe"`
	Start       time.Time      `json:"start"`
	End         time.Time      `json:"end"`
	Trades      []sim.Trade    `json:"trades"`
	Equity      []EquityPoint  `json:"equity"`
	Summary     Summary        `json:"summary"`
	SkippedBars int            `json:"skipped_bars"` // bars without features or model output
	Rejections  map[string]int `json:"rejections"`   // rejection reason -> count
	OpenAtEnd   int            `json:"open_at_end"`  // positions still open when bars ran out
}

// RMultiples extracts the closed trades' r-multiples in chronological order,
// the input shape Monte Carlo resampling consumes.
func (r *RunResult) RMultiples() []float64 {
	out := make([]float64, len(r.Trades))
	for i, t := range r.Trades {
		out[i] = t.RMultiple
	}
	return out
}
