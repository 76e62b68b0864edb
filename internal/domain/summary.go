package domain

import "time"

// FeatureSummary is the non-authoritative per-run snapshot for external reporting.
// Corresponds to feature_engineering_summary (PostgreSQL) and feature_summaries (ClickHouse).
type FeatureSummary struct {
	RunID              string
	TotalRecords       int
	UniqueVehicles     int
	Organizations      int
	TotalRevenue       float64
	AvgDurationMinutes float64
	MultiSiteVehicles  int // distinct plates visiting more than one site
	FrequentVehicles   int // distinct plates with visit_frequency > 10
	WeekendPct         float64
	PeakHourPct        float64
	NightEntryPct      float64
	OverstayPct        float64
	DigitalPaymentPct  float64
	DurationAnomalyPct float64
	PaymentAnomalyPct  float64
	CreatedAt          time.Time
}
