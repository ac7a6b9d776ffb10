package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/jcqlabs/futrun/internal/backtest"
	"github.com/jcqlabs/futrun/internal/montecarlo"
	"github.com/jcqlabs/futrun/internal/sim"
)

// ErrRunNotFound is returned when a run id has no stored row.
var ErrRunNotFound = errors.New("persistence: run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id          UUID PRIMARY KEY,
    symbol      TEXT NOT NULL,
    timeframe   TEXT NOT NULL,
    start_ts    TIMESTAMPTZ NOT NULL,
    end_ts      TIMESTAMPTZ NOT NULL,
    summary     JSONB NOT NULL,
    equity      JSONB NOT NULL,
    rejections  JSONB NOT NULL,
    skipped_bars INT NOT NULL,
    open_at_end  INT NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS trades (
    id           UUID PRIMARY KEY,
    run_id       UUID NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    seq          INT NOT NULL,
    symbol       TEXT NOT NULL,
    side         TEXT NOT NULL,
    qty          INT NOT NULL,
    entry_ts     TIMESTAMPTZ NOT NULL,
    entry_price  DOUBLE PRECISION NOT NULL,
    exit_ts      TIMESTAMPTZ NOT NULL,
    exit_price   DOUBLE PRECISION NOT NULL,
    stop_price   DOUBLE PRECISION NOT NULL,
    target_price DOUBLE PRECISION NOT NULL,
    pnl          DOUBLE PRECISION NOT NULL,
    r_multiple   DOUBLE PRECISION NOT NULL,
    fees         DOUBLE PRECISION NOT NULL,
    slippage     DOUBLE PRECISION NOT NULL,
    exit_reason  TEXT NOT NULL,
    setup        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS trades_run_idx ON trades (run_id, seq);

CREATE TABLE IF NOT EXISTS mc_reports (
    run_id     UUID NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    report     JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (run_id, created_at)
);
`

// PostgresStore persists runs via sqlx over lib/pq.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore connects, bounds the pool and creates the schema.
func NewPostgresStore(ctx context.Context, dsn string, maxOpen int, connTimeout time.Duration) (*PostgresStore, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("persistence: open: %w", err)
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetConnMaxIdleTime(time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, connTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("persistence: ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("persistence: schema: %w", err)
	}
	log.Info().Int("max_open_conns", maxOpen).Msg("postgres store ready")
	return &PostgresStore{db: db}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error { return s.db.Close() }

// SaveRun writes the run row and its trades in one transaction.
func (s *PostgresStore) SaveRun(ctx context.Context, run *backtest.RunResult) error {
	summary, err := json.Marshal(run.Summary)
	if err != nil {
		return fmt.Errorf("persistence: encode summary: %w", err)
	}
	equity, err := json.Marshal(run.Equity)
	if err != nil {
		return fmt.Errorf("persistence: encode equity: %w", err)
	}
	rejections, err := json.Marshal(run.Rejections)
	if err != nil {
		return fmt.Errorf("persistence: encode rejections: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("persistence: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, symbol, timeframe, start_ts, end_ts, summary, equity, rejections, skipped_bars, open_at_end)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		run.ID, run.Symbol, run.Timeframe, run.Start, run.End,
		summary, equity, rejections, run.SkippedBars, run.OpenAtEnd)
	if err != nil {
		return fmt.Errorf("persistence: insert run: %w", err)
	}

	for i, t := range run.Trades {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO trades (id, run_id, seq, symbol, side, qty, entry_ts, entry_price,
			                    exit_ts, exit_price, stop_price, target_price, pnl, r_multiple,
			                    fees, slippage, exit_reason, setup)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
			t.ID, run.ID, i, t.Symbol, string(t.Side), t.Qty, t.EntryTime, t.EntryPrice,
			t.ExitTime, t.ExitPrice, t.StopPrice, t.TargetPrice, t.PnL, t.RMultiple,
			t.Fees, t.Slippage, string(t.ExitReason), t.Setup)
		if err != nil {
			return fmt.Errorf("persistence: insert trade %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("persistence: commit: %w", err)
	}
	log.Debug().Str("run_id", run.ID.String()).Int("trades", len(run.Trades)).Msg("run persisted")
	return nil
}

type runRow struct {
	ID          uuid.UUID `db:"id"`
	Symbol      string    `db:"symbol"`
	Timeframe   string    `db:"timeframe"`
	StartTS     time.Time `db:"start_ts"`
	EndTS       time.Time `db:"end_ts"`
	Summary     []byte    `db:"summary"`
	Equity      []byte    `db:"equity"`
	Rejections  []byte    `db:"rejections"`
	SkippedBars int       `db:"skipped_bars"`
	OpenAtEnd   int       `db:"open_at_end"`
	CreatedAt   time.Time `db:"created_at"`
}

// GetRun reassembles one run with its trades in execution order.
func (s *PostgresStore) GetRun(ctx context.Context, id uuid.UUID) (*backtest.RunResult, error) {
	var row runRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM runs WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("persistence: select run: %w", err)
	}

	run := &backtest.RunResult{
		ID:          row.ID,
		Symbol:      row.Symbol,
		Timeframe:   row.Timeframe,
		Start:       row.StartTS,
		End:         row.EndTS,
		SkippedBars: row.SkippedBars,
		OpenAtEnd:   row.OpenAtEnd,
	}
	if err := json.Unmarshal(row.Summary, &run.Summary); err != nil {
		return nil, fmt.Errorf("persistence: decode summary: %w", err)
	}
	if err := json.Unmarshal(row.Equity, &run.Equity); err != nil {
		return nil, fmt.Errorf("persistence: decode equity: %w", err)
	}
	if err := json.Unmarshal(row.Rejections, &run.Rejections); err != nil {
		return nil, fmt.Errorf("persistence: decode rejections: %w", err)
	}

	var trades []sim.Trade
	err = s.db.SelectContext(ctx, &trades, `
		SELECT id, symbol, side, qty, entry_ts, entry_price, exit_ts, exit_price,
		       stop_price, target_price, pnl, r_multiple, fees, slippage, exit_reason, setup
		FROM trades WHERE run_id = $1 ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("persistence: select trades: %w", err)
	}
	run.Trades = trades
	return run, nil
}

// ListRuns returns the newest runs first.
func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []RunRecord
	err := s.db.SelectContext(ctx, &records, `
		SELECT id, symbol, timeframe, start_ts, end_ts,
		       (summary->>'num_trades')::INT AS num_trades,
		       (summary->>'total_r')::DOUBLE PRECISION AS total_r,
		       created_at
		FROM runs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("persistence: list runs: %w", err)
	}
	return records, nil
}

// SaveMonteCarlo attaches a resampling report to a run.
func (s *PostgresStore) SaveMonteCarlo(ctx context.Context, runID uuid.UUID, report *montecarlo.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("persistence: encode report: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO mc_reports (run_id, report) VALUES ($1, $2)`, runID, payload)
	if err != nil {
		return fmt.Errorf("persistence: insert report: %w", err)
	}
	return nil
}
