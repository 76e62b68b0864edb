package domain

// ColumnType is the semantic type of a derived column. Each store maps it
// to its own SQL type.
type ColumnType string

const (
	ColumnInteger ColumnType = "integer"
	ColumnReal    ColumnType = "real"
	ColumnBoolean ColumnType = "boolean"
	ColumnText    ColumnType = "text"
)

// Column describes one derived feature column and how to read it from a feature set.
type Column struct {
	Name string
	Type ColumnType
	get  func(f *DerivedFeatureSet) any
}

// Value returns the column value, or nil when the feature is NULL.
func (c Column) Value(f *DerivedFeatureSet) any {
	return c.get(f)
}

// FeatureColumns is the fixed list of columns every output store must carry.
// Order is stable and drives statement generation.
var FeatureColumns = []Column{
	{"vehicle_id", ColumnText, func(f *DerivedFeatureSet) any { return stringValue(f.VehicleID) }},

	{"entry_hour", ColumnInteger, func(f *DerivedFeatureSet) any { return intValue(f.EntryHour) }},
	{"entry_day_of_week", ColumnInteger, func(f *DerivedFeatureSet) any { return intValue(f.EntryDayOfWeek) }},
	{"entry_week_of_year", ColumnInteger, func(f *DerivedFeatureSet) any { return intValue(f.EntryWeekOfYear) }},
	{"entry_month", ColumnInteger, func(f *DerivedFeatureSet) any { return intValue(f.EntryMonth) }},
	{"entry_quarter", ColumnInteger, func(f *DerivedFeatureSet) any { return intValue(f.EntryQuarter) }},
	{"entry_season", ColumnInteger, func(f *DerivedFeatureSet) any { return intValue(f.EntrySeason) }},
	{"is_weekend", ColumnBoolean, func(f *DerivedFeatureSet) any { return boolValue(f.IsWeekend) }},
	{"is_business_hours", ColumnBoolean, func(f *DerivedFeatureSet) any { return boolValue(f.IsBusinessHours) }},
	{"is_peak_hours", ColumnBoolean, func(f *DerivedFeatureSet) any { return boolValue(f.IsPeakHours) }},
	{"is_night_entry", ColumnBoolean, func(f *DerivedFeatureSet) any { return boolValue(f.IsNightEntry) }},

	{"session_status", ColumnText, func(f *DerivedFeatureSet) any { return stringValue(f.SessionStatus) }},
	{"duration_minutes", ColumnReal, func(f *DerivedFeatureSet) any { return floatValue(f.DurationMinutes) }},
	{"duration_category", ColumnInteger, func(f *DerivedFeatureSet) any { return intValue(f.DurationCategory) }},
	{"duration_efficiency_score", ColumnReal, func(f *DerivedFeatureSet) any { return floatValue(f.DurationEfficiencyScore) }},
	{"is_overstay", ColumnBoolean, func(f *DerivedFeatureSet) any { return boolValue(f.IsOverstay) }},

	{"visit_frequency", ColumnInteger, func(f *DerivedFeatureSet) any { return intValue(f.VisitFrequency) }},
	{"total_revenue", ColumnReal, func(f *DerivedFeatureSet) any { return floatValue(f.TotalRevenue) }},
	{"unique_sites", ColumnInteger, func(f *DerivedFeatureSet) any { return intValue(f.UniqueSites) }},
	{"vehicle_usage_category", ColumnInteger, func(f *DerivedFeatureSet) any { return intValue(f.VehicleUsageCategory) }},
	{"vehicle_revenue_tier", ColumnInteger, func(f *DerivedFeatureSet) any { return intValue(f.VehicleRevenueTier) }},
	{"is_multi_site_vehicle", ColumnBoolean, func(f *DerivedFeatureSet) any { return boolValue(f.IsMultiSiteVehicle) }},

	{"org_vehicle_count", ColumnInteger, func(f *DerivedFeatureSet) any { return intValue(f.OrgVehicleCount) }},
	{"org_total_revenue", ColumnReal, func(f *DerivedFeatureSet) any { return floatValue(f.OrgTotalRevenue) }},
	{"organization_size_category", ColumnInteger, func(f *DerivedFeatureSet) any { return intValue(f.OrganizationSizeCategory) }},
	{"organization_performance_tier", ColumnInteger, func(f *DerivedFeatureSet) any { return intValue(f.OrganizationPerformanceTier) }},

	{"days_since_last_visit", ColumnInteger, func(f *DerivedFeatureSet) any { return intValue(f.DaysSinceLastVisit) }},
	{"visit_frequency_category", ColumnInteger, func(f *DerivedFeatureSet) any { return intValue(f.VisitFrequencyCategory) }},
	{"is_duration_anomaly", ColumnBoolean, func(f *DerivedFeatureSet) any { return boolValue(f.IsDurationAnomaly) }},
	{"is_payment_anomaly", ColumnBoolean, func(f *DerivedFeatureSet) any { return boolValue(f.IsPaymentAnomaly) }},

	{"revenue_per_minute", ColumnReal, func(f *DerivedFeatureSet) any { return floatValue(f.RevenuePerMinute) }},
	{"is_digital_payment", ColumnBoolean, func(f *DerivedFeatureSet) any { return boolValue(f.IsDigitalPayment) }},
	{"payment_efficiency_score", ColumnReal, func(f *DerivedFeatureSet) any { return floatValue(f.PaymentEfficiencyScore) }},
}

// FeatureColumnNames returns the names of FeatureColumns in order.
func FeatureColumnNames() []string {
	names := make([]string, len(FeatureColumns))
	for i, c := range FeatureColumns {
		names[i] = c.Name
	}
	return names
}

// Untyped nil is required here: a typed nil pointer stored in an interface is not nil.

func intValue(p *int) any {
	if p == nil {
		return nil
	}
	return int64(*p)
}

func floatValue(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func boolValue(p *bool) any {
	if p == nil {
		return nil
	}
	return *p
}

func stringValue(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
