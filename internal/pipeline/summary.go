package pipeline

import (
	"time"

	"vehicle-intelligence/internal/domain"
	"vehicle-intelligence/internal/features"
)

// frequentVisits is the visit count above which a vehicle is frequent.
const frequentVisits = 10

// BuildSummary reduces a computed batch to its run summary. Percentages
// are taken over the records where the feature is not NULL.
func BuildSummary(runID string, res *features.Result, createdAt time.Time) *domain.FeatureSummary {
	s := &domain.FeatureSummary{
		RunID:          runID,
		TotalRecords:   len(res.Records),
		UniqueVehicles: len(res.Vehicles),
		Organizations:  len(res.Organizations),
		CreatedAt:      createdAt,
	}

	// Records are in id order, so the sum is reproducible.
	for _, r := range res.Records {
		s.TotalRevenue += r.AmountOrZero()
	}
	for _, v := range res.Vehicles {
		if v.UniqueSites > 1 {
			s.MultiSiteVehicles++
		}
		if v.VisitFrequency > frequentVisits {
			s.FrequentVehicles++
		}
	}

	var durationSum float64
	var durations int
	var weekend, peak, night, overstay, digital, durAnomaly, payAnomaly ratio
	for _, f := range res.Features {
		if f.DurationMinutes != nil {
			durationSum += *f.DurationMinutes
			durations++
		}
		weekend.add(f.IsWeekend)
		peak.add(f.IsPeakHours)
		night.add(f.IsNightEntry)
		overstay.add(f.IsOverstay)
		digital.add(f.IsDigitalPayment)
		durAnomaly.add(f.IsDurationAnomaly)
		payAnomaly.add(f.IsPaymentAnomaly)
	}
	if durations > 0 {
		s.AvgDurationMinutes = durationSum / float64(durations)
	}

	s.WeekendPct = weekend.pct()
	s.PeakHourPct = peak.pct()
	s.NightEntryPct = night.pct()
	s.OverstayPct = overstay.pct()
	s.DigitalPaymentPct = digital.pct()
	s.DurationAnomalyPct = durAnomaly.pct()
	s.PaymentAnomalyPct = payAnomaly.pct()
	return s
}

type ratio struct {
	hits, total int
}

func (r *ratio) add(v *bool) {
	if v == nil {
		return
	}
	r.total++
	if *v {
		r.hits++
	}
}

func (r ratio) pct() float64 {
	if r.total == 0 {
		return 0
	}
	return float64(r.hits) / float64(r.total) * 100
}
