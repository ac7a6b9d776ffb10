// Package sim simulates bracket-order execution against historical bars.
package sim

import (
	"time"

	"github.com/google/uuid"

	"github.com/jcqlabs/futrun/internal/risk"
	"github.com/jcqlabs/futrun/internal/strategy"
)

// OrderState is the lifecycle state of a simulated order.
type OrderState string

const (
	StatePending  OrderState = "PENDING"
	StateFilled   OrderState = "FILLED"
	StateStopped  OrderState = "STOPPED"
	StateTargeted OrderState = "TARGETED"
	StateTimedOut OrderState = "TIMED_OUT"
)

// Terminal reports whether the state is a closed one.
func (s OrderState) Terminal() bool {
	return s == StateStopped || s == StateTargeted || s == StateTimedOut
}

// Order is one simulated bracket order advancing through
// PENDING -> FILLED -> {STOPPED, TARGETED, TIMED_OUT}.
type Order struct {
	ID     uuid.UUID
	Sized  risk.SizedOrder
	State  OrderState
	Stop   float64 // protective stop level
	Target float64 // profit target level

	SubmittedAt time.Time
	EntryFill   float64
	FilledAt    time.Time
	BarsHeld    int
}

// NewOrder wraps a sized order for submission.
func NewOrder(sized risk.SizedOrder) *Order {
	return &Order{
		ID:          uuid.New(),
		Sized:       sized,
		State:       StatePending,
		Stop:        sized.Candidate.StopPrice(),
		Target:      sized.Candidate.TargetPrice(),
		SubmittedAt: sized.Candidate.Timestamp,
	}
}

// Side is the order's trade direction.
func (o *Order) Side() strategy.Side { return o.Sized.Candidate.Side }

// Trade is the immutable record of one completed round trip. It is written
// exactly once, when the order closes; nothing mutates it afterwards.
type Trade struct {
	ID          uuid.UUID     `json:"id" db:"id"`
	Symbol      string        `json:"symbol" db:"symbol"`
	Side        strategy.Side `json:"side" db:"side"`
	Qty         int           `json:"qty" db:"qty"`
	EntryTime   time.Time     `json:"entry_ts" db:"entry_ts"`
	EntryPrice  float64       `json:"entry_price" db:"entry_price"`
	ExitTime    time.Time     `json:"exit_ts" db:"exit_ts"`
	ExitPrice   float64       `json:"exit_price" db:"exit_price"`
	StopPrice   float64       `json:"stop_price" db:"stop_price"`
	TargetPrice float64       `json:"target_price" db:"target_price"`
	PnL         float64       `json:"pnl" db:"pnl"` // net of fees and slippage, in dollars
	RMultiple   float64       `json:"r_multiple" db:"r_multiple"`
	Fees        float64       `json:"fees" db:"fees"`
	Slippage    float64       `json:"slippage" db:"slippage"` // dollars lost to fill adjustment
	ExitReason  OrderState    `json:"exit_reason" db:"exit_reason"`
	Setup       string        `json:"setup" db:"setup"`
}
