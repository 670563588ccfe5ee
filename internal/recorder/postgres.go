package recorder

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
)

// PostgresRecorder persists historical data to PostgreSQL.
type PostgresRecorder struct {
	db  *sqlx.DB
	log zerolog.Logger
}

// NewPostgresRecorder connects to dsn and runs migrations.
func NewPostgresRecorder(ctx context.Context, dsn string, log zerolog.Logger) (*PostgresRecorder, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	r := &PostgresRecorder{db: db, log: log.With().Str("component", "recorder").Logger()}
	if err := r.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	r.log.Info().Msg("postgres recorder opened")
	return r, nil
}

func (r *PostgresRecorder) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS factor_snapshots (
			id           BIGSERIAL PRIMARY KEY,
			run_id       UUID NOT NULL UNIQUE,
			fetched_at   TIMESTAMPTZ NOT NULL,
			source       TEXT,
			record_count INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_fetched ON factor_snapshots(fetched_at)`,

		`CREATE TABLE IF NOT EXISTS factor_returns (
			id           BIGSERIAL PRIMARY KEY,
			run_id       UUID NOT NULL REFERENCES factor_snapshots(run_id) ON DELETE CASCADE,
			factor_id    INTEGER NOT NULL,
			name         TEXT NOT NULL,
			type         TEXT,
			perf_1d      DOUBLE PRECISION,
			perf_5d      DOUBLE PRECISION,
			perf_1m      DOUBLE PRECISION,
			perf_3m      DOUBLE PRECISION,
			perf_6m      DOUBLE PRECISION,
			perf_1y      DOUBLE PRECISION,
			num_holdings INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_returns_factor ON factor_returns(factor_id)`,

		`CREATE TABLE IF NOT EXISTS digests (
			id        BIGSERIAL PRIMARY KEY,
			run_id    UUID,
			sent_at   TIMESTAMPTZ NOT NULL,
			horizon   TEXT,
			top_n     INTEGER,
			top       TEXT,
			bottom    TEXT,
			x_horizon TEXT,
			y_horizon TEXT,
			delivered BOOLEAN,
			error     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_digests_sent ON digests(sent_at)`,
	}
	for _, s := range stmts {
		if _, err := r.db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordSnapshot stores the snapshot header and every record in one transaction.
func (r *PostgresRecorder) RecordSnapshot(ctx context.Context, snap *Snapshot) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO factor_snapshots
		(run_id, fetched_at, source, record_count)
		VALUES ($1, $2, $3, $4)`,
		snap.RunID, timeOrNow(snap.FetchedAt), snap.Source, len(snap.Records),
	); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, `INSERT INTO factor_returns
		(run_id, factor_id, name, type, perf_1d, perf_5d, perf_1m, perf_3m, perf_6m, perf_1y, num_holdings)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`)
	if err != nil {
		return fmt.Errorf("prepare returns: %w", err)
	}
	defer stmt.Close()

	for _, rec := range snap.Records {
		if _, err := stmt.ExecContext(ctx,
			snap.RunID, rec.ID, rec.Name, rec.Type,
			nullFloat(rec.Perf1D), nullFloat(rec.Perf5D), nullFloat(rec.Perf1M),
			nullFloat(rec.Perf3M), nullFloat(rec.Perf6M), nullFloat(rec.Perf1Y),
			nullInt(rec.NumHoldings),
		); err != nil {
			return fmt.Errorf("insert factor %d: %w", rec.ID, err)
		}
	}
	return tx.Commit()
}

func (r *PostgresRecorder) RecordDigest(ctx context.Context, evt *DigestEvent) error {
	var runID any
	if evt.RunID != "" {
		runID = evt.RunID
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO digests
		(run_id, sent_at, horizon, top_n, top, bottom, x_horizon, y_horizon, delivered, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		runID, timeOrNow(evt.SentAt), evt.Horizon.String(), evt.TopN,
		joinNames(evt.Top), joinNames(evt.Bottom),
		evt.XHorizon.String(), evt.YHorizon.String(), evt.Delivered, evt.Error,
	)
	return err
}

func (r *PostgresRecorder) Close() error {
	r.log.Info().Msg("closing postgres recorder")
	return r.db.Close()
}
