package features

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehicle-intelligence/internal/domain"
)

var base = time.Date(2024, time.February, 1, 8, 0, 0, 0, time.UTC)

func record(id int64, plate string, entryDay float64, minutes float64, amount float64) *domain.MovementRecord {
	entry := base.Add(time.Duration(entryDay * float64(24*time.Hour)))
	exit := entry.Add(time.Duration(minutes * float64(time.Minute)))
	return &domain.MovementRecord{
		ID:           id,
		Plate:        plate,
		EntryTime:    &entry,
		ExitTime:     &exit,
		Amount:       &amount,
		Organization: "Central Mall",
	}
}

func emptySets(records []*domain.MovementRecord) []*domain.DerivedFeatureSet {
	out := make([]*domain.DerivedFeatureSet, len(records))
	for i, r := range records {
		out[i] = &domain.DerivedFeatureSet{RecordID: r.ID}
	}
	return out
}

func withDurations(records []*domain.MovementRecord) []*domain.DerivedFeatureSet {
	out := emptySets(records)
	for i, r := range records {
		d := r.ExitTime.Sub(*r.EntryTime).Minutes()
		out[i].DurationMinutes = &d
	}
	return out
}

func TestSequenceVisits_GapsInChronologicalOrder(t *testing.T) {
	// stored out of chronological order
	records := []*domain.MovementRecord{
		record(1, "KAA 100A", 10, 30, 50),
		record(2, "KAA 100A", 0, 30, 50),
		record(3, "KAA 100A", 5, 30, 50),
	}
	out := emptySets(records)

	SequenceVisits(records, out, DefaultOptions().VisitFrequency)

	require.NotNil(t, out[1].DaysSinceLastVisit)
	assert.Equal(t, 0, *out[1].DaysSinceLastVisit, "first visit")
	assert.Equal(t, 5, *out[2].DaysSinceLastVisit)
	assert.Equal(t, 5, *out[0].DaysSinceLastVisit)

	assert.Equal(t, 3, *out[1].VisitFrequencyCategory, "gap 0 is the most frequent bucket")
	assert.Equal(t, 2, *out[2].VisitFrequencyCategory)
}

func TestSequenceVisits_WholeDaysTruncate(t *testing.T) {
	records := []*domain.MovementRecord{
		record(1, "KBB 200B", 0, 10, 0),
		record(2, "KBB 200B", 1.9, 10, 0),
		record(3, "KBB 200B", 40, 10, 0),
	}
	out := emptySets(records)

	SequenceVisits(records, out, DefaultOptions().VisitFrequency)

	assert.Equal(t, 1, *out[1].DaysSinceLastVisit)
	assert.Equal(t, 3, *out[1].VisitFrequencyCategory)
	assert.Equal(t, 38, *out[2].DaysSinceLastVisit)
	assert.Equal(t, 0, *out[2].VisitFrequencyCategory)
}

func TestSequenceVisits_VehiclesAreIndependent(t *testing.T) {
	records := []*domain.MovementRecord{
		record(1, "A", 0, 10, 0),
		record(2, "B", 3, 10, 0),
		record(3, "A", 2, 10, 0),
		record(4, "a", 9, 10, 0),
	}
	out := emptySets(records)

	SequenceVisits(records, out, DefaultOptions().VisitFrequency)

	assert.Equal(t, 0, *out[0].DaysSinceLastVisit)
	assert.Equal(t, 0, *out[1].DaysSinceLastVisit)
	assert.Equal(t, 2, *out[2].DaysSinceLastVisit)
	assert.Equal(t, 0, *out[3].DaysSinceLastVisit, "plates are case-sensitive")
}

func TestSequenceVisits_MissingEntryStaysNull(t *testing.T) {
	records := []*domain.MovementRecord{
		record(1, "A", 0, 10, 0),
		{ID: 2, Plate: "A"},
	}
	out := emptySets(records)

	SequenceVisits(records, out, DefaultOptions().VisitFrequency)

	assert.Equal(t, 0, *out[0].DaysSinceLastVisit)
	assert.Nil(t, out[1].DaysSinceLastVisit)
	assert.Nil(t, out[1].VisitFrequencyCategory)
}

func TestDetectAnomalies_OnlyFarOutlierFlagged(t *testing.T) {
	// 10x60, 5x50, 5x70 plus 80 (about 1.5 sd) and 100 (about 3.2 sd)
	var records []*domain.MovementRecord
	id := int64(1)
	add := func(minutes float64, n int) {
		for i := 0; i < n; i++ {
			records = append(records, record(id, "P", float64(id), minutes, 100))
			id++
		}
	}
	add(60, 10)
	add(50, 5)
	add(70, 5)
	add(80, 1)
	add(100, 1)
	out := withDurations(records)

	DetectAnomalies(records, out, 2.0, BaselineGlobal)

	for i, f := range out {
		require.NotNil(t, f.IsDurationAnomaly)
		want := i == len(out)-1
		assert.Equal(t, want, *f.IsDurationAnomaly, "record %d (%v min)", f.RecordID, *f.DurationMinutes)
		assert.False(t, *f.IsPaymentAnomaly, "identical amounts never flag")
	}
}

func TestDetectAnomalies_ZeroVariance(t *testing.T) {
	records := []*domain.MovementRecord{
		record(1, "A", 0, 45, 0.1),
		record(2, "B", 0, 45, 0.1),
		record(3, "C", 0, 45, 0.1),
	}
	out := withDurations(records)

	DetectAnomalies(records, out, 0.5, BaselineGlobal)

	for _, f := range out {
		assert.False(t, *f.IsDurationAnomaly)
		assert.False(t, *f.IsPaymentAnomaly)
	}
}

func TestDetectAnomalies_SingleRecord(t *testing.T) {
	records := []*domain.MovementRecord{record(1, "A", 0, 45, 10)}
	out := withDurations(records)

	DetectAnomalies(records, out, 2.0, BaselineGlobal)

	assert.False(t, *out[0].IsDurationAnomaly)
	assert.False(t, *out[0].IsPaymentAnomaly)
}

func TestDetectAnomalies_NullDurationExcluded(t *testing.T) {
	records := []*domain.MovementRecord{
		record(1, "A", 0, 45, 10),
		{ID: 2, Plate: "A"},
	}
	out := withDurations(records[:1])
	out = append(out, &domain.DerivedFeatureSet{RecordID: 2})

	DetectAnomalies(records, out, 2.0, BaselineGlobal)

	assert.Nil(t, out[1].IsDurationAnomaly)
	require.NotNil(t, out[1].IsPaymentAnomaly, "missing amount counts as 0")
}

func TestDetectAnomalies_VehicleBaseline(t *testing.T) {
	// Vehicle A always stays about 20 minutes, vehicle B about 600. Globally
	// neither is unusual; per vehicle, A's 200 minute stay is.
	var records []*domain.MovementRecord
	id := int64(1)
	for _, m := range []float64{20, 21, 19, 20, 22, 18, 20, 21, 19, 200} {
		records = append(records, record(id, "A", float64(id), m, 10))
		id++
	}
	for _, m := range []float64{600, 610, 590, 600, 605, 595, 600, 610, 590, 600} {
		records = append(records, record(id, "B", float64(id), m, 10))
		id++
	}

	global := withDurations(records)
	DetectAnomalies(records, global, 2.0, BaselineGlobal)
	assert.False(t, *global[9].IsDurationAnomaly)

	perVehicle := withDurations(records)
	DetectAnomalies(records, perVehicle, 2.0, BaselineVehicle)
	assert.True(t, *perVehicle[9].IsDurationAnomaly)
	for i := 10; i < len(records); i++ {
		assert.False(t, *perVehicle[i].IsDurationAnomaly)
	}
}
