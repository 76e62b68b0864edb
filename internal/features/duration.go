package features

import (
	"math"
	"time"

	"vehicle-intelligence/internal/domain"
)

const (
	idealStayMinutes    = 60.0
	overstayMinutes     = 240.0
	efficiencyDecayRate = 10.0 // minutes of deviation per score point
)

// Duration holds the stay features of one record.
type Duration struct {
	Status          string
	Minutes         float64
	Category        int
	EfficiencyScore float64
	IsOverstay      bool
}

// ExtractDuration derives stay features. A nil exit is an active session of
// zero minutes; an exit before the entry also yields zero.
func ExtractDuration(entry time.Time, exit *time.Time, bins Bins) Duration {
	status := domain.SessionStatusActive
	minutes := 0.0
	if exit != nil {
		status = domain.SessionStatusCompleted
		minutes = math.Max(0, exit.Sub(entry).Minutes())
	}

	return Duration{
		Status:          status,
		Minutes:         minutes,
		Category:        bins.Categorize(minutes),
		EfficiencyScore: efficiencyScore(minutes),
		IsOverstay:      minutes > overstayMinutes,
	}
}

// efficiencyScore peaks at 100 for a 60 minute stay and loses one point per
// 10 minutes of deviation.
func efficiencyScore(minutes float64) float64 {
	return clip(100-math.Abs(minutes-idealStayMinutes)/efficiencyDecayRate, 0, 100)
}

func (d Duration) apply(f *domain.DerivedFeatureSet) {
	f.SessionStatus = ptr(d.Status)
	f.DurationMinutes = ptr(d.Minutes)
	f.DurationCategory = ptr(d.Category)
	f.DurationEfficiencyScore = ptr(d.EfficiencyScore)
	f.IsOverstay = ptr(d.IsOverstay)
}
