package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehicle-intelligence/internal/domain"
	"vehicle-intelligence/internal/observability"
	"vehicle-intelligence/internal/storage"
)

func TestFeatureMirror_ReconcileSchema(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	mirror := NewFeatureMirror(conn, nil)

	added, err := mirror.ReconcileSchema(ctx, domain.FeatureColumns)
	require.NoError(t, err)
	assert.Len(t, added, len(domain.FeatureColumns))

	added, err = mirror.ReconcileSchema(ctx, domain.FeatureColumns)
	require.NoError(t, err)
	assert.Empty(t, added)
}

func TestFeatureMirror_LatestVersionWins(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	m := observability.NewMetrics("test", prometheus.NewRegistry())
	mirror := NewFeatureMirror(conn, nil).WithMetrics(m)
	_, err := mirror.ReconcileSchema(ctx, domain.FeatureColumns)
	require.NoError(t, err)

	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	mirror.now = func() time.Time { return clock }
	mirror.BeginRun("run-1")

	res, err := mirror.ApplyBatch(ctx, []*domain.DerivedFeatureSet{
		{RecordID: 1, EntryHour: ptr(8), IsWeekend: ptr(false), DurationMinutes: ptr(45.0), VehicleID: ptr("VH_000001")},
		{RecordID: 2, EntryHour: ptr(9)},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Applied)

	clock = clock.Add(time.Hour)
	mirror.BeginRun("run-2")
	_, err = mirror.ApplyBatch(ctx, []*domain.DerivedFeatureSet{
		{RecordID: 1, EntryHour: ptr(10), IsWeekend: ptr(true)},
	})
	require.NoError(t, err)

	got, err := mirror.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(10), got["entry_hour"])
	assert.Equal(t, true, got["is_weekend"])
	_, hasDuration := got["duration_minutes"]
	assert.False(t, hasDuration, "full-row replace leaves unset features NULL")

	got, err = mirror.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(9), got["entry_hour"])

	_, err = mirror.Get(ctx, 3)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.Equal(t, 2, testutil.CollectAndCount(m.DBQueryDuration))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.DBQueryErrors.WithLabelValues(observability.DatabaseClickhouse, "apply_batch")))
}
