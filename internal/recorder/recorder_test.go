package recorder

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FactorPulse/internal/model"
)

func sampleSnapshot() *model.FactorSnapshot {
	holdings := 40
	return &model.FactorSnapshot{
		Source:    "backend",
		FetchedAt: time.Date(2025, 6, 2, 20, 0, 0, 0, time.UTC),
		Records: []model.FactorRecord{
			{ID: 1, Name: "AI Infrastructure", Type: model.FactorTypeThematic, Perf1D: model.Float(0.01), Perf1Y: model.Float(0.35), NumHoldings: &holdings},
			{ID: 2, Name: "Value", Type: model.FactorTypeStatistical, Perf1D: model.Float(-0.002)},
		},
	}
}

func TestNewSnapshotAssignsRunID(t *testing.T) {
	a := NewSnapshot(sampleSnapshot())
	b := NewSnapshot(sampleSnapshot())

	_, err := uuid.Parse(a.RunID)
	require.NoError(t, err)
	assert.NotEqual(t, a.RunID, b.RunID)
	assert.Equal(t, "backend", a.Source)
	assert.Len(t, a.Records, 2)
}

func TestSQLiteRecorder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	rec, err := Open(context.Background(), path, "", zerolog.Nop())
	require.NoError(t, err)
	defer rec.Close()

	sqlite, ok := rec.(*SQLiteRecorder)
	require.True(t, ok)

	ctx := context.Background()
	snap := NewSnapshot(sampleSnapshot())
	require.NoError(t, rec.RecordSnapshot(ctx, snap))

	var count int
	require.NoError(t, sqlite.db.QueryRow(`SELECT record_count FROM factor_snapshots WHERE run_id = ?`, snap.RunID).Scan(&count))
	assert.Equal(t, 2, count)

	var (
		perf1D   *float64
		perf5D   *float64
		holdings *int64
	)
	require.NoError(t, sqlite.db.QueryRow(
		`SELECT perf_1d, perf_5d, num_holdings FROM factor_returns WHERE run_id = ? AND factor_id = 2`, snap.RunID,
	).Scan(&perf1D, &perf5D, &holdings))
	require.NotNil(t, perf1D)
	assert.InDelta(t, -0.002, *perf1D, 1e-12)
	assert.Nil(t, perf5D)
	assert.Nil(t, holdings)

	// Run ids are unique per snapshot.
	assert.Error(t, rec.RecordSnapshot(ctx, snap))

	require.NoError(t, rec.RecordDigest(ctx, &DigestEvent{
		RunID:     snap.RunID,
		Horizon:   model.Horizon1D,
		TopN:      2,
		Top:       []string{"AI Infrastructure", "Value"},
		Bottom:    []string{"Value", "AI Infrastructure"},
		XHorizon:  model.Horizon1M,
		YHorizon:  model.Horizon3M,
		Delivered: true,
	}))

	var horizon, top string
	var delivered bool
	require.NoError(t, sqlite.db.QueryRow(`SELECT horizon, top, delivered FROM digests`).Scan(&horizon, &top, &delivered))
	assert.Equal(t, "1D", horizon)
	assert.Equal(t, "AI Infrastructure\nValue", top)
	assert.True(t, delivered)
}

func TestOpenWithoutDatabaseIsNoop(t *testing.T) {
	rec, err := Open(context.Background(), "", "", zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &NoopRecorder{}, rec)
	assert.NoError(t, rec.RecordSnapshot(context.Background(), NewSnapshot(sampleSnapshot())))
	assert.NoError(t, rec.RecordDigest(context.Background(), &DigestEvent{}))
	assert.NoError(t, rec.Close())
}

func TestPostgresRecorder(t *testing.T) {
	dsn := os.Getenv("FACTORPULSE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("FACTORPULSE_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	rec, err := NewPostgresRecorder(ctx, dsn, zerolog.Nop())
	require.NoError(t, err)
	defer rec.Close()

	snap := NewSnapshot(sampleSnapshot())
	require.NoError(t, rec.RecordSnapshot(ctx, snap))

	var count int
	require.NoError(t, rec.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM factor_returns WHERE run_id = $1`, snap.RunID))
	assert.Equal(t, 2, count)

	require.NoError(t, rec.RecordDigest(ctx, &DigestEvent{Horizon: model.Horizon5D, XHorizon: model.Horizon1D, YHorizon: model.Horizon6M}))
}
