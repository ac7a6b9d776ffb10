// Package persistence stores run results, trades and resampling reports in
// Postgres.
package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jcqlabs/futrun/internal/backtest"
	"github.com/jcqlabs/futrun/internal/montecarlo"
)

// RunRecord is the list-view projection of a stored run.
type RunRecord struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Symbol    string    `db:"symbol" json:"symbol"`
	Timeframe string    `db:"timeframe" json:"timeframe"`
	StartTS   time.Time `db:"start_ts" json:"start_ts"`
	EndTS     time.Time `db:"end_ts" json:"end_ts"`
	NumTrades int       `db:"num_trades" json:"num_trades"`
	TotalR    float64   `db:"total_r" json:"total_r"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Store is the persistence capability the commands and the API depend on.
type Store interface {
	SaveRun(ctx context.Context, run *backtest.RunResult) error
	GetRun(ctx context.Context, id uuid.UUID) (*backtest.RunResult, error)
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
	SaveMonteCarlo(ctx context.Context, runID uuid.UUID, report *montecarlo.Report) error
	Close() error
}
