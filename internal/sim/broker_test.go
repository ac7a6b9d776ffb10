package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcqlabs/futrun/internal/contracts"
	"github.com/jcqlabs/futrun/internal/market"
	"github.com/jcqlabs/futrun/internal/risk"
	"github.com/jcqlabs/futrun/internal/strategy"
)

var nqSpec = contracts.Spec{Symbol: "NQ", TickSize: 0.25, TickValue: 5, PointValue: 20, MaxPosition: 10}

func sizedOrder(side strategy.Side, entry, stop, target float64, qty int) risk.SizedOrder {
	stopDist := entry - stop
	targetDist := target - entry
	if side == strategy.SideShort {
		stopDist = stop - entry
		targetDist = entry - target
	}
	return risk.SizedOrder{
		Candidate: strategy.Candidate{
			Timestamp:      time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC),
			Symbol:         "NQ",
			Side:           side,
			Entry:          entry,
			StopDistance:   stopDist,
			TargetDistance: targetDist,
			Probability:    0.55,
			Setup:          "baseline",
		},
		Spec:    nqSpec,
		Qty:     qty,
		RiskUSD: stopDist * nqSpec.PointValue * float64(qty),
	}
}

func bar(minuteOffset int, o, h, l, c float64) market.Bar {
	base := time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC)
	return market.Bar{Timestamp: base.Add(time.Duration(minuteOffset) * time.Minute), Open: o, High: h, Low: l, Close: c, Volume: 100}
}

func noSlipBroker(maxHold int) *PaperBroker {
	return NewPaperBroker(FixedTicks{Ticks: 0}, CostConfig{}, maxHold)
}

func TestMarkBar_FillsOnBarAfterSubmission(t *testing.T) {
	b := noSlipBroker(20)
	b.Submit(sizedOrder(strategy.SideLong, 18000, 17990, 18020, 1))

	// First bar after submission: fill only, no resolution even though the
	// target level trades within the bar.
	closed := b.MarkBar(bar(1, 18000, 18030, 17995, 18010))
	assert.Empty(t, closed)
	require.Len(t, b.OpenOrders(), 1)
	o := b.OpenOrders()[0]
	assert.Equal(t, StateFilled, o.State)
	assert.Equal(t, 18000.0, o.EntryFill)
}

func TestMarkBar_TargetExit(t *testing.T) {
	b := noSlipBroker(20)
	b.Submit(sizedOrder(strategy.SideLong, 18000, 17990, 18020, 2))

	b.MarkBar(bar(1, 18000, 18005, 17998, 18002)) // fill
	closed := b.MarkBar(bar(2, 18002, 18025, 18001, 18020))
	require.Len(t, closed, 1)

	tr := closed[0]
	assert.Equal(t, StateTargeted, tr.ExitReason)
	assert.Equal(t, 18020.0, tr.ExitPrice)
	// 20 points * $20/pt * 2 contracts = $800 gross, no fees configured.
	assert.InDelta(t, 800.0, tr.PnL, 1e-9)
	// Risk was 10 points * $20 * 2 = $400 => 2R.
	assert.InDelta(t, 2.0, tr.RMultiple, 1e-9)
	assert.Empty(t, b.OpenOrders())
}

func TestMarkBar_StopExit(t *testing.T) {
	b := noSlipBroker(20)
	b.Submit(sizedOrder(strategy.SideShort, 18000, 18010, 17980, 1))

	b.MarkBar(bar(1, 18000, 18003, 17996, 18001)) // fill
	closed := b.MarkBar(bar(2, 18001, 18012, 18000, 18011))
	require.Len(t, closed, 1)

	tr := closed[0]
	assert.Equal(t, StateStopped, tr.ExitReason)
	assert.Equal(t, 18010.0, tr.ExitPrice)
	// Short stopped 10 points against: -10 * $20 = -$200 => -1R.
	assert.InDelta(t, -200.0, tr.PnL, 1e-9)
	assert.InDelta(t, -1.0, tr.RMultiple, 1e-9)
}

func TestMarkBar_StopBeforeTargetWithinOneBar(t *testing.T) {
	// The bar's range covers both the stop and the target. Policy: the stop
	// is assumed to trigger first. Never TARGETED.
	b := noSlipBroker(20)
	b.Submit(sizedOrder(strategy.SideLong, 18000, 17990, 18020, 1))

	b.MarkBar(bar(1, 18000, 18001, 17999, 18000)) // fill
	closed := b.MarkBar(bar(2, 18000, 18030, 17985, 18025))
	require.Len(t, closed, 1)
	assert.Equal(t, StateStopped, closed[0].ExitReason)
	assert.InDelta(t, -1.0, closed[0].RMultiple, 1e-9)
}

func TestMarkBar_Timeout(t *testing.T) {
	b := noSlipBroker(3)
	b.Submit(sizedOrder(strategy.SideLong, 18000, 17950, 18100, 1))

	b.MarkBar(bar(1, 18000, 18005, 17995, 18002)) // fill
	assert.Empty(t, b.MarkBar(bar(2, 18002, 18006, 17998, 18004)))
	assert.Empty(t, b.MarkBar(bar(3, 18004, 18008, 18000, 18006)))
	closed := b.MarkBar(bar(4, 18006, 18010, 18002, 18008))
	require.Len(t, closed, 1)

	tr := closed[0]
	assert.Equal(t, StateTimedOut, tr.ExitReason)
	assert.Equal(t, 18008.0, tr.ExitPrice) // closed at that bar's close
	// +8 points * $20 = $160.
	assert.InDelta(t, 160.0, tr.PnL, 1e-9)
}

func TestMarkBar_FixedTickSlippageAndFees(t *testing.T) {
	// 2 ticks of entry slippage on NQ = 0.5 points; $1.10/contract/side.
	b := NewPaperBroker(FixedTicks{Ticks: 2}, CostConfig{FeePerContract: 1.10}, 20)
	b.Submit(sizedOrder(strategy.SideLong, 18000, 17990, 18020, 1))

	b.MarkBar(bar(1, 18000, 18005, 17998, 18002))
	require.Len(t, b.OpenOrders(), 1)
	assert.Equal(t, 18000.5, b.OpenOrders()[0].EntryFill) // paid up

	closed := b.MarkBar(bar(2, 18002, 18025, 18001, 18020))
	require.Len(t, closed, 1)
	tr := closed[0]
	// Gross (18020 - 18000.5) * $20 = $390, fees $2.20.
	assert.InDelta(t, 387.80, tr.PnL, 1e-9)
	assert.InDelta(t, 2.20, tr.Fees, 1e-9)
	// Entry slipped 0.5 points: $10 recorded as slippage.
	assert.InDelta(t, 10.0, tr.Slippage, 1e-9)
}

func TestMarkBar_StopExitPaysSlippage(t *testing.T) {
	b := NewPaperBroker(FixedTicks{Ticks: 2}, CostConfig{}, 20)
	b.Submit(sizedOrder(strategy.SideLong, 18000, 17990, 18020, 1))

	b.MarkBar(bar(1, 18000, 18001, 17999, 18000))
	closed := b.MarkBar(bar(2, 18000, 18001, 17985, 17990))
	require.Len(t, closed, 1)
	tr := closed[0]
	assert.Equal(t, StateStopped, tr.ExitReason)
	// Stop 17990 slips 0.5 against the closing sale: fill 17989.5.
	assert.Equal(t, 17989.5, tr.ExitPrice)
}

func TestMarkBar_ProportionalSlippage(t *testing.T) {
	b := NewPaperBroker(Proportional{Fraction: 0.0001}, CostConfig{}, 20)
	b.Submit(sizedOrder(strategy.SideShort, 18000, 18010, 17980, 1))

	b.MarkBar(bar(1, 18000, 18002, 17998, 18000))
	require.Len(t, b.OpenOrders(), 1)
	// Short entry slips down: 18000 * (1 - 0.0001) = 17998.2.
	assert.InDelta(t, 17998.2, b.OpenOrders()[0].EntryFill, 1e-9)
}

func TestBuildSlippage(t *testing.T) {
	m, err := BuildSlippage(SlippageConfig{Model: "fixed_ticks", Ticks: 1})
	require.NoError(t, err)
	assert.Equal(t, "fixed_ticks", m.Name())

	m, err = BuildSlippage(SlippageConfig{Model: "proportional", Proportion: 0.001})
	require.NoError(t, err)
	assert.Equal(t, "proportional", m.Name())

	_, err = BuildSlippage(SlippageConfig{Model: "randomized"})
	assert.Error(t, err)
}

func TestOrder_StateTransitions(t *testing.T) {
	o := NewOrder(sizedOrder(strategy.SideLong, 18000, 17990, 18020, 1))
	assert.Equal(t, StatePending, o.State)
	assert.False(t, o.State.Terminal())
	assert.Equal(t, 17990.0, o.Stop)
	assert.Equal(t, 18020.0, o.Target)

	for _, s := range []OrderState{StateStopped, StateTargeted, StateTimedOut} {
		assert.True(t, s.Terminal())
	}
}
