package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/jcqlabs/futrun/internal/backtest"
	"github.com/jcqlabs/futrun/internal/montecarlo"
)

// BreakerStore wraps a Store with a circuit breaker so a dead database fails
// fast instead of stalling every run on connection timeouts. Reads and
// writes share one breaker: if the database is down, both are down.
type BreakerStore struct {
	inner Store
	cb    *gobreaker.CircuitBreaker
}

// NewBreakerStore wraps inner. The breaker opens after five consecutive
// failures and probes again after the cooldown.
func NewBreakerStore(inner Store, cooldown time.Duration) *BreakerStore {
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "postgres",
		Timeout: cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A missing row is an answer from a healthy database, not a fault.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrRunNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("store breaker state changed")
		},
	})
	return &BreakerStore{inner: inner, cb: cb}
}

func (b *BreakerStore) exec(op func() (interface{}, error)) (interface{}, error) {
	return b.cb.Execute(op)
}

func (b *BreakerStore) SaveRun(ctx context.Context, run *backtest.RunResult) error {
	_, err := b.exec(func() (interface{}, error) {
		return nil, b.inner.SaveRun(ctx, run)
	})
	return err
}

func (b *BreakerStore) GetRun(ctx context.Context, id uuid.UUID) (*backtest.RunResult, error) {
	v, err := b.exec(func() (interface{}, error) {
		return b.inner.GetRun(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*backtest.RunResult), nil
}

func (b *BreakerStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	v, err := b.exec(func() (interface{}, error) {
		return b.inner.ListRuns(ctx, limit)
	})
	if err != nil {
		return nil, err
	}
	return v.([]RunRecord), nil
}

func (b *BreakerStore) SaveMonteCarlo(ctx context.Context, runID uuid.UUID, report *montecarlo.Report) error {
	_, err := b.exec(func() (interface{}, error) {
		return nil, b.inner.SaveMonteCarlo(ctx, runID, report)
	})
	return err
}

// Close bypasses the breaker: shutdown must always reach the pool.
func (b *BreakerStore) Close() error { return b.inner.Close() }
