package sim

import (
	"github.com/google/uuid"

	"github.com/jcqlabs/futrun/internal/market"
	"github.com/jcqlabs/futrun/internal/risk"
	"github.com/jcqlabs/futrun/internal/strategy"
)

// Broker is the execution capability the engine depends on: submit a sized
// order, advance open orders against a bar, report fills. The paper broker
// below is the only shipping implementation; a live adapter would satisfy
// the same interface.
type Broker interface {
	Submit(sized risk.SizedOrder) uuid.UUID
	MarkBar(bar market.Bar) []Trade
	OpenOrders() []*Order
}

// PaperBroker simulates bracket-order execution bar by bar.
//
// Fill and exit policy, applied deterministically:
//   - a pending order fills on the first bar after submission, at the entry
//     reference adjusted against the trader by the slippage model;
//   - from the next bar on, the stop is checked before the target — when
//     both levels sit inside one bar's [low, high] the trade closes STOPPED,
//     by policy, never TARGETED;
//   - stop exits pay slippage (stop market), target exits fill at the limit
//     level exactly, timeouts close at the bar's close;
//   - fees are charged per contract on entry and exit.
type PaperBroker struct {
	slippage SlippageModel
	costs    CostConfig
	maxHold  int

	open []*Order
}

// NewPaperBroker creates a paper broker. maxHold is the holding period in
// bars after the fill bar before a TIMED_OUT close.
func NewPaperBroker(slippage SlippageModel, costs CostConfig, maxHold int) *PaperBroker {
	return &PaperBroker{slippage: slippage, costs: costs, maxHold: maxHold}
}

// Submit accepts a sized order. The order cannot fill before the next bar.
func (b *PaperBroker) Submit(sized risk.SizedOrder) uuid.UUID {
	o := NewOrder(sized)
	b.open = append(b.open, o)
	return o.ID
}

// OpenOrders returns the orders not yet closed, in submission order.
func (b *PaperBroker) OpenOrders() []*Order { return b.open }

// MarkBar advances every open order one bar and returns the trades closed on
// this bar. Orders are processed in submission order so results are
// deterministic.
func (b *PaperBroker) MarkBar(bar market.Bar) []Trade {
	var closed []Trade
	remaining := b.open[:0]

	for _, o := range b.open {
		switch o.State {
		case StatePending:
			o.EntryFill = b.slippage.Adjust(o.Sized.Candidate.Entry, o.Side(), o.Sized.Spec)
			o.FilledAt = bar.Timestamp
			o.State = StateFilled
			remaining = append(remaining, o)

		case StateFilled:
			o.BarsHeld++
			if t, done := b.resolve(o, bar); done {
				closed = append(closed, t)
			} else {
				remaining = append(remaining, o)
			}
		}
	}

	b.open = remaining
	return closed
}

// resolve checks stop, then target, then timeout for one filled order.
func (b *PaperBroker) resolve(o *Order, bar market.Bar) (Trade, bool) {
	long := o.Side() != "short"

	stopHit := (long && bar.Low <= o.Stop) || (!long && bar.High >= o.Stop)
	if stopHit {
		// Stop market: the exit slips against the trade's closing side.
		exitDir := strategy.SideShort
		if !long {
			exitDir = strategy.SideLong
		}
		exit := b.slippage.Adjust(o.Stop, exitDir, o.Sized.Spec)
		return b.close(o, bar, exit, StateStopped), true
	}

	targetHit := (long && bar.High >= o.Target) || (!long && bar.Low <= o.Target)
	if targetHit {
		return b.close(o, bar, o.Target, StateTargeted), true
	}

	if b.maxHold > 0 && o.BarsHeld >= b.maxHold {
		return b.close(o, bar, bar.Close, StateTimedOut), true
	}
	return Trade{}, false
}

// close writes the trade record once. The order reaches a terminal state and
// is never touched again.
func (b *PaperBroker) close(o *Order, bar market.Bar, exitPrice float64, reason OrderState) Trade {
	o.State = reason

	c := o.Sized.Candidate
	spec := o.Sized.Spec
	qty := o.Sized.Qty

	points := exitPrice - o.EntryFill
	if c.Side == "short" {
		points = -points
	}
	gross := points * spec.PointValue * float64(qty)
	fees := b.costs.RoundTripFees(qty)
	net := gross - fees

	riskUSD := c.StopDistance * spec.PointValue * float64(qty)
	rMult := 0.0
	if riskUSD > 0 {
		rMult = net / riskUSD
	}

	entrySlip := abs(o.EntryFill-c.Entry) * spec.PointValue * float64(qty)
	exitSlip := 0.0
	if reason == StateStopped {
		exitSlip = abs(exitPrice-o.Stop) * spec.PointValue * float64(qty)
	}

	return Trade{
		ID:          o.ID,
		Symbol:      spec.Symbol,
		Side:        c.Side,
		Qty:         qty,
		EntryTime:   o.FilledAt,
		EntryPrice:  o.EntryFill,
		ExitTime:    bar.Timestamp,
		ExitPrice:   exitPrice,
		StopPrice:   o.Stop,
		TargetPrice: o.Target,
		PnL:         net,
		RMultiple:   rMult,
		Fees:        fees,
		Slippage:    entrySlip + exitSlip,
		ExitReason:  reason,
		Setup:       c.Setup,
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
