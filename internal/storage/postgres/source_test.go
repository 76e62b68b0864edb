package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehicle-intelligence/internal/adapter"
	"vehicle-intelligence/internal/observability"
	"vehicle-intelligence/internal/storage"
)

func TestMovementSource_LoadMovements(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	entry := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	exit := entry.Add(90 * time.Minute)

	id1 := insertMovement(t, pool, "KAA 001A", &entry, &exit, 150, "Card", "Central Mall")
	id2 := insertMovement(t, pool, "KBB 002B", &entry, nil, 0, "Cash", "Airport")

	src := NewMovementSource(pool, "parking_records", "parking_records", time.UTC, nil)
	batch, err := src.LoadMovements(ctx)
	require.NoError(t, err)

	require.Len(t, batch.Records, 2)
	assert.Empty(t, batch.Missing)
	assert.Empty(t, batch.Issues)

	first := batch.Records[0]
	assert.Equal(t, id1, first.ID)
	assert.Equal(t, "KAA 001A", first.Plate)
	assert.True(t, entry.Equal(*first.EntryTime))
	assert.True(t, exit.Equal(*first.ExitTime))
	assert.Equal(t, 150.0, *first.Amount)
	assert.Equal(t, "Card", first.PaymentMethod)

	second := batch.Records[1]
	assert.Equal(t, id2, second.ID)
	assert.Nil(t, second.ExitTime)
	assert.Nil(t, second.PaymentTime)
}

func TestMovementSource_CombinedDatasetLayout(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	_, err := pool.Exec(ctx, `
		CREATE TABLE combined_dataset (
			id SERIAL PRIMARY KEY,
			"Plate Number" TEXT,
			"Entry Time" TEXT,
			"Amount Paid" TEXT,
			"Organization" TEXT
		);
		INSERT INTO combined_dataset ("Plate Number", "Entry Time", "Amount Paid", "Organization")
		VALUES ('KCC 003C', '2024-03-01 10:00:00', '1,200', 'Airport'),
		       ('KDD 004D', 'not a date', '', 'Airport');
	`)
	require.NoError(t, err)

	src := NewMovementSource(pool, "combined_dataset", "auto", time.UTC, nil)
	batch, err := src.LoadMovements(ctx)
	require.NoError(t, err)

	assert.Equal(t, "auto", batch.Layout)
	assert.Contains(t, batch.Missing, adapter.FieldExitTime)
	require.Len(t, batch.Records, 2)
	assert.Equal(t, 1200.0, *batch.Records[0].Amount)
	assert.Nil(t, batch.Records[1].EntryTime)
	require.Len(t, batch.Issues, 1)
	assert.ErrorIs(t, batch.Issues[0], adapter.ErrInvalidTimestamp)
}

func TestMovementSource_MissingIDColumn(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	_, err := pool.Exec(ctx, `CREATE TABLE no_ids (plate_number TEXT, entry_time TIMESTAMP)`)
	require.NoError(t, err)

	_, err = NewMovementSource(pool, "no_ids", "parking_records", time.UTC, nil).LoadMovements(ctx)
	assert.ErrorIs(t, err, adapter.ErrMissingColumn)
}

func TestMovementSource_MissingTable(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	m := observability.NewMetrics("test", prometheus.NewRegistry())
	_, err := NewMovementSource(pool, "absent", "parking_records", time.UTC, nil).
		WithMetrics(m).
		LoadMovements(context.Background())
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DBQueryErrors.WithLabelValues(observability.DatabasePostgres, "load_movements")))
}
