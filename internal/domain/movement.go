package domain

import "time"

// MovementRecord represents one parking session as ingested upstream.
// Corresponds to a row of the parking_records table (or any source variant
// mapped onto it by an adapter layout). Never mutated by the pipeline.
type MovementRecord struct {
	ID            int64      // source primary key, > 0 when valid
	Plate         string     // vehicle plate, exact match for grouping
	EntryTime     *time.Time // NULL if missing or unparseable
	ExitTime      *time.Time // NULL for an active session
	PaymentTime   *time.Time // NULL if not paid
	Amount        *float64   // NULL treated as 0
	PaymentMethod string
	Organization  string // site/organization name
	VehicleType   string
	VehicleBrand  string
	PlateColor    string
}

// HasValidID reports whether the record can be targeted by a write-back.
func (r *MovementRecord) HasValidID() bool {
	return r != nil && r.ID > 0
}

// AmountOrZero returns the payment amount with NULL collapsed to 0.
func (r *MovementRecord) AmountOrZero() float64 {
	if r.Amount == nil {
		return 0
	}
	return *r.Amount
}

// Session status values.
const (
	SessionStatusActive    = "active"
	SessionStatusCompleted = "completed"
)
