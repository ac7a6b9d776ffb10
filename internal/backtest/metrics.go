package backtest

import (
	"math"

	"github.com/jcqlabs/futrun/internal/sim"
)

// Summarize computes the run summary from closed trades. Empty ledgers yield
// a zero summary, not an error.
func Summarize(trades []sim.Trade) Summary {
	s := Summary{NumTrades: len(trades)}
	if len(trades) == 0 {
		return s
	}

	var wins, losses int
	var winR, lossR, grossProfit, grossLoss float64
	equity := 0.0
	peak := 0.0

	rs := make([]float64, len(trades))
	for i, t := range trades {
		r := t.RMultiple
		rs[i] = r
		s.TotalR += r
		s.TotalPnL += t.PnL
		s.TotalFees += t.Fees

		if r > 0 {
			wins++
			winR += r
			grossProfit += r
		} else if r < 0 {
			losses++
			lossR += r
			grossLoss += -r
		}

		equity += r
		if equity > peak {
			peak = equity
		}
		if dd := equity - peak; dd < s.MaxDrawdownR {
			s.MaxDrawdownR = dd
		}
	}

	s.WinRate = float64(wins) / float64(len(trades))
	if wins > 0 {
		s.AvgWinR = winR / float64(wins)
	}
	if losses > 0 {
		s.AvgLossR = lossR / float64(losses)
	}
	if grossLoss > 0 {
		s.ProfitFactor = grossProfit / grossLoss
	} else if grossProfit > 0 {
		s.ProfitFactor = math.Inf(1)
	}

	if len(trades) > 1 {
		mean := s.TotalR / float64(len(trades))
		var ss float64
		for _, r := range rs {
			ss += (r - mean) * (r - mean)
		}
		std := math.Sqrt(ss / float64(len(rs)-1))
		if std > 0 {
			s.Sharpe = mean / std * math.Sqrt(252)
		}
	}
	return s
}
