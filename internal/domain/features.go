package domain

// DerivedFeatureSet holds every feature computed for one MovementRecord.
// Nil pointers are NULL: the feature could not be computed for this record
// and is left out of the partial write-back.
type DerivedFeatureSet struct {
	RecordID  int64
	VehicleID *string // deterministic VH_###### from the plate

	// Temporal
	EntryHour       *int
	EntryDayOfWeek  *int // 0=Monday .. 6=Sunday
	EntryWeekOfYear *int // ISO week
	EntryMonth      *int
	EntryQuarter    *int
	EntrySeason     *int // 0=winter(Dec-Feb) .. 3=autumn(Sep-Nov)
	IsWeekend       *bool
	IsBusinessHours *bool
	IsPeakHours     *bool
	IsNightEntry    *bool

	// Duration
	SessionStatus           *string // active | completed
	DurationMinutes         *float64
	DurationCategory        *int
	DurationEfficiencyScore *float64
	IsOverstay              *bool

	// Vehicle fan-out
	VisitFrequency       *int
	TotalRevenue         *float64
	UniqueSites          *int
	VehicleUsageCategory *int
	VehicleRevenueTier   *int
	IsMultiSiteVehicle   *bool

	// Organization fan-out
	OrgVehicleCount             *int
	OrgTotalRevenue             *float64
	OrganizationSizeCategory    *int
	OrganizationPerformanceTier *int

	// Behavioral
	DaysSinceLastVisit     *int // 0 for the first visit of a vehicle
	VisitFrequencyCategory *int // descending: smallest gap -> highest label
	IsDurationAnomaly      *bool
	IsPaymentAnomaly       *bool

	// Financial
	RevenuePerMinute       *float64
	IsDigitalPayment       *bool
	PaymentEfficiencyScore *float64
}

// ColumnValue is one non-NULL feature column ready to be written.
type ColumnValue struct {
	Name  string
	Value any
}

// NonNullValues returns the computed columns in FeatureColumns order, skipping NULLs.
func (f *DerivedFeatureSet) NonNullValues() []ColumnValue {
	values := make([]ColumnValue, 0, len(FeatureColumns))
	for _, c := range FeatureColumns {
		if v := c.Value(f); v != nil {
			values = append(values, ColumnValue{Name: c.Name, Value: v})
		}
	}
	return values
}
