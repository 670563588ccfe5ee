package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists historical data to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets dashboards read while the scheduler writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log.With().Str("component", "recorder").Logger()}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS factor_snapshots (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id       TEXT NOT NULL UNIQUE,
			timestamp    INTEGER NOT NULL,
			source       TEXT,
			record_count INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_ts ON factor_snapshots(timestamp)`,

		`CREATE TABLE IF NOT EXISTS factor_returns (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id       TEXT NOT NULL,
			factor_id    INTEGER NOT NULL,
			name         TEXT NOT NULL,
			type         TEXT,
			perf_1d      REAL,
			perf_5d      REAL,
			perf_1m      REAL,
			perf_3m      REAL,
			perf_6m      REAL,
			perf_1y      REAL,
			num_holdings INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_returns_run ON factor_returns(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_returns_factor ON factor_returns(factor_id)`,

		`CREATE TABLE IF NOT EXISTS digests (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id    TEXT,
			timestamp INTEGER NOT NULL,
			horizon   TEXT,
			top_n     INTEGER,
			top       TEXT,
			bottom    TEXT,
			x_horizon TEXT,
			y_horizon TEXT,
			delivered INTEGER,
			error     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_digests_ts ON digests(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordSnapshot stores the snapshot header and every record in one transaction.
func (r *SQLiteRecorder) RecordSnapshot(ctx context.Context, snap *Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO factor_snapshots
		(run_id, timestamp, source, record_count)
		VALUES (?,?,?,?)`,
		snap.RunID, unixOrNow(snap.FetchedAt), snap.Source, len(snap.Records),
	); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO factor_returns
		(run_id, factor_id, name, type, perf_1d, perf_5d, perf_1m, perf_3m, perf_6m, perf_1y, num_holdings)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`)
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

func (r *SQLiteRecorder) RecordDigest(ctx context.Context, evt *DigestEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `INSERT INTO digests
		(run_id, timestamp, horizon, top_n, top, bottom, x_horizon, y_horizon, delivered, error)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		evt.RunID, unixOrNow(evt.SentAt), evt.Horizon.String(), evt.TopN,
		joinNames(evt.Top), joinNames(evt.Bottom),
		evt.XHorizon.String(), evt.YHorizon.String(), evt.Delivered, evt.Error,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
