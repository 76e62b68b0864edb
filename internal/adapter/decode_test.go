package adapter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_FullRow(t *testing.T) {
	nairobi, err := time.LoadLocation("Africa/Nairobi")
	require.NoError(t, err)

	rec, errs := NewDecoder(nairobi).Decode(Row{
		FieldID:            "42",
		FieldPlate:         "  KAA 001A ",
		FieldEntryTime:     "2024-03-01 08:15:00",
		FieldExitTime:      "2024-03-01 09:45:30.5",
		FieldPaymentTime:   "2024-03-01T06:40:00Z",
		FieldAmount:        "1,250.50",
		FieldPaymentMethod: "Mobile",
		FieldOrganization:  "Central Mall",
		FieldVehicleType:   "Saloon",
	})
	require.Empty(t, errs)

	assert.Equal(t, int64(42), rec.ID)
	assert.Equal(t, "KAA 001A", rec.Plate)
	assert.Equal(t, time.Date(2024, 3, 1, 8, 15, 0, 0, nairobi), *rec.EntryTime)
	assert.Equal(t, 9, rec.ExitTime.Hour())
	assert.Equal(t, 9, rec.PaymentTime.Hour(), "zoned timestamps convert to the configured location")
	assert.Equal(t, 1250.5, *rec.Amount)
	assert.Equal(t, "Mobile", rec.PaymentMethod)
	assert.Empty(t, rec.VehicleBrand)
}

func TestDecode_PostgresTimestamptz(t *testing.T) {
	rec, errs := NewDecoder(time.UTC).Decode(Row{
		FieldID:        "1",
		FieldEntryTime: "2024-03-01 08:15:00+03",
	})
	require.Empty(t, errs)
	assert.Equal(t, 5, rec.EntryTime.Hour())
}

func TestDecode_NullsAndFailures(t *testing.T) {
	rec, errs := NewDecoder(time.UTC).Decode(Row{
		FieldID:        "9",
		FieldEntryTime: "yesterday",
		FieldExitTime:  "NaT",
		FieldAmount:    "free",
		FieldPlate:     "nan",
	})

	assert.Equal(t, int64(9), rec.ID)
	assert.Nil(t, rec.EntryTime)
	assert.Nil(t, rec.ExitTime)
	assert.Nil(t, rec.Amount)
	assert.Empty(t, rec.Plate)

	require.Len(t, errs, 2)
	assert.Equal(t, FieldEntryTime, errs[0].Field)
	assert.ErrorIs(t, errs[0], ErrInvalidTimestamp)
	assert.Equal(t, int64(9), errs[0].RecordID)
	assert.ErrorIs(t, errs[1], ErrInvalidAmount)
}

func TestDecode_InvalidID(t *testing.T) {
	for _, raw := range []string{"", "abc", "0", "-3"} {
		rec, errs := NewDecoder(time.UTC).Decode(Row{FieldID: raw})
		assert.Equal(t, int64(0), rec.ID, "id %q", raw)
		require.Len(t, errs, 1)
		assert.ErrorIs(t, errs[0], ErrInvalidID)
	}
}

func TestDecode_SerialDates(t *testing.T) {
	dec := NewDecoder(time.UTC)

	_, errs := dec.Decode(Row{FieldID: "1", FieldEntryTime: "45352.5"})
	require.Len(t, errs, 1, "serials rejected unless enabled")

	dec.SerialDates = true
	rec, errs := dec.Decode(Row{FieldID: "1", FieldEntryTime: "45352.5"})
	require.Empty(t, errs)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), *rec.EntryTime)
}
