package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"FactorPulse/internal/model"
)

// Snapshot is one persisted fetch of the factor list.
type Snapshot struct {
	RunID     string
	FetchedAt time.Time
	Source    string
	Records   []model.FactorRecord
}

// NewSnapshot wraps a fetched snapshot with a fresh run id.
func NewSnapshot(s *model.FactorSnapshot) *Snapshot {
	return &Snapshot{
		RunID:     uuid.NewString(),
		FetchedAt: s.FetchedAt,
		Source:    s.Source,
		Records:   s.Records,
	}
}

// DigestEvent records one scheduled digest and whether it reached Telegram.
type DigestEvent struct {
	RunID     string
	SentAt    time.Time
	Horizon   model.Horizon
	TopN      int
	Top       []string
	Bottom    []string
	XHorizon  model.Horizon
	YHorizon  model.Horizon
	Delivered bool
	Error     string
}

// Recorder persists historical data for analysis.
type Recorder interface {
	RecordSnapshot(ctx context.Context, snap *Snapshot) error
	RecordDigest(ctx context.Context, evt *DigestEvent) error
	Close() error
}

func joinNames(names []string) string {
	return strings.Join(names, "\n")
}

// Open picks the recorder for the configured database: Postgres when a DSN
// is given, SQLite when a path is given, otherwise a no-op.
func Open(ctx context.Context, sqlitePath, postgresDSN string, log zerolog.Logger) (Recorder, error) {
	switch {
	case postgresDSN != "":
		return NewPostgresRecorder(ctx, postgresDSN, log)
	case sqlitePath != "":
		if dir := filepath.Dir(sqlitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
		}
		return NewSQLiteRecorder(sqlitePath, log)
	default:
		return NewNoopRecorder(), nil
	}
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

func unixOrNow(t time.Time) int64 {
	return timeOrNow(t).Unix()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
