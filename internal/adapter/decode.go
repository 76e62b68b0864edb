package adapter

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"vehicle-intelligence/internal/domain"
)

var (
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidID        = errors.New("invalid record id")
)

// zoned layouts carry an offset; the rest are read in the configured location.
var (
	zonedLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02 15:04:05-07",
	}
	localLayouts = []string{
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04",
		"01/02/2006 15:04:05",
		"01/02/2006 15:04",
		"2006-01-02",
	}
)

// Row holds the raw text of one source row keyed by canonical field.
// An empty string is NULL.
type Row map[Field]string

// FieldError is a value that could not be decoded. The field is left NULL.
type FieldError struct {
	RecordID int64
	Field    Field
	Value    string
	Err      error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("record %d: %s %q: %v", e.RecordID, e.Field, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// Decoder converts raw rows to MovementRecords.
type Decoder struct {
	loc *time.Location

	// SerialDates accepts spreadsheet date serials in timestamp fields.
	SerialDates bool
}

// NewDecoder creates a decoder reading zone-less timestamps in loc.
func NewDecoder(loc *time.Location) *Decoder {
	if loc == nil {
		loc = time.UTC
	}
	return &Decoder{loc: loc}
}

// Decode builds a record from row. Values that fail to parse are returned as
// FieldErrors and leave the field NULL; decoding never drops a row.
func (d *Decoder) Decode(row Row) (*domain.MovementRecord, []*FieldError) {
	var errs []*FieldError
	rec := &domain.MovementRecord{
		Plate:         clean(row[FieldPlate]),
		PaymentMethod: clean(row[FieldPaymentMethod]),
		Organization:  clean(row[FieldOrganization]),
		VehicleType:   clean(row[FieldVehicleType]),
		VehicleBrand:  clean(row[FieldVehicleBrand]),
		PlateColor:    clean(row[FieldPlateColor]),
	}

	fail := func(f Field, err error) {
		errs = append(errs, &FieldError{Field: f, Value: row[f], Err: err})
	}

	if raw := clean(row[FieldID]); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			fail(FieldID, ErrInvalidID)
		} else {
			rec.ID = id
		}
	} else {
		fail(FieldID, ErrInvalidID)
	}

	var err error
	if rec.EntryTime, err = d.parseTime(row[FieldEntryTime]); err != nil {
		fail(FieldEntryTime, err)
	}
	if rec.ExitTime, err = d.parseTime(row[FieldExitTime]); err != nil {
		fail(FieldExitTime, err)
	}
	if rec.PaymentTime, err = d.parseTime(row[FieldPaymentTime]); err != nil {
		fail(FieldPaymentTime, err)
	}
	if rec.Amount, err = parseAmount(row[FieldAmount]); err != nil {
		fail(FieldAmount, err)
	}

	for _, e := range errs {
		e.RecordID = rec.ID
	}
	return rec, errs
}

func (d *Decoder) parseTime(raw string) (*time.Time, error) {
	s := clean(raw)
	if s == "" {
		return nil, nil
	}

	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.In(d.loc)
			return &t, nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, d.loc); err == nil {
			return &t, nil
		}
	}

	if d.SerialDates {
		if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
			if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
				// serials carry wall-clock time without a zone
				local := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), d.loc)
				return &local, nil
			}
		}
	}

	return nil, ErrInvalidTimestamp
}

func parseAmount(raw string) (*float64, error) {
	s := strings.ReplaceAll(clean(raw), ",", "")
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, ErrInvalidAmount
	}
	return &v, nil
}

// clean trims whitespace and maps the NULL spellings of spreadsheet and
// dataframe exports to empty.
func clean(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "nan", "nat", "none", "null":
		return ""
	}
	return s
}
