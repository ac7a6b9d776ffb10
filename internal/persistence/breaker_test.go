package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcqlabs/futrun/internal/backtest"
	"github.com/jcqlabs/futrun/internal/montecarlo"
)

var errDown = errors.New("connection refused")

// fakeStore fails every call while failing is set.
type fakeStore struct {
	failing  bool
	notFound bool
	saves    int
	gets     int
}

func (f *fakeStore) SaveRun(context.Context, *backtest.RunResult) error {
	f.saves++
	if f.failing {
		return errDown
	}
	return nil
}

func (f *fakeStore) GetRun(context.Context, uuid.UUID) (*backtest.RunResult, error) {
	f.gets++
	if f.failing {
		return nil, errDown
	}
	if f.notFound {
		return nil, ErrRunNotFound
	}
	return &backtest.RunResult{ID: uuid.New()}, nil
}

func (f *fakeStore) ListRuns(context.Context, int) ([]RunRecord, error) {
	if f.failing {
		return nil, errDown
	}
	return []RunRecord{{Symbol: "NQ"}}, nil
}

func (f *fakeStore) SaveMonteCarlo(context.Context, uuid.UUID, *montecarlo.Report) error {
	if f.failing {
		return errDown
	}
	return nil
}

func (f *fakeStore) Close() error { return nil }

func TestBreakerStore_PassesThroughWhenHealthy(t *testing.T) {
	inner := &fakeStore{}
	store := NewBreakerStore(inner, time.Second)
	ctx := context.Background()

	require.NoError(t, store.SaveRun(ctx, &backtest.RunResult{ID: uuid.New()}))

	run, err := store.GetRun(ctx, uuid.New())
	require.NoError(t, err)
	assert.NotNil(t, run)

	records, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	require.NoError(t, store.SaveMonteCarlo(ctx, uuid.New(), &montecarlo.Report{}))
}

func TestBreakerStore_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &fakeStore{failing: true}
	store := NewBreakerStore(inner, time.Minute)
	ctx := context.Background()
	run := &backtest.RunResult{ID: uuid.New()}

	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, store.SaveRun(ctx, run), errDown)
	}
	assert.Equal(t, 5, inner.saves)

	// Open breaker: the store is no longer called.
	err := store.SaveRun(ctx, run)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 5, inner.saves)

	// Reads share the breaker.
	_, err = store.GetRun(ctx, uuid.New())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Zero(t, inner.gets)
}

func TestBreakerStore_NotFoundIsNotAFault(t *testing.T) {
	inner := &fakeStore{notFound: true}
	store := NewBreakerStore(inner, time.Minute)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := store.GetRun(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrRunNotFound)
	}
	// Ten misses never open the breaker.
	require.NoError(t, store.SaveRun(ctx, &backtest.RunResult{ID: uuid.New()}))
}

func TestBreakerStore_CloseBypassesBreaker(t *testing.T) {
	inner := &fakeStore{failing: true}
	store := NewBreakerStore(inner, time.Minute)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_ = store.SaveRun(ctx, &backtest.RunResult{ID: uuid.New()})
	}
	assert.NoError(t, store.Close())
}
