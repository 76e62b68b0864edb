package features

import (
	"time"

	"vehicle-intelligence/internal/domain"
)

// seasonByMonth maps month 1..12 to 0=Dec-Feb, 1=Mar-May, 2=Jun-Aug, 3=Sep-Nov.
var seasonByMonth = [13]int{0, 0, 0, 1, 1, 1, 2, 2, 2, 3, 3, 3, 0}

var peakHours = map[int]bool{8: true, 9: true, 17: true, 18: true}

// Temporal holds the entry-time features of one record.
type Temporal struct {
	Hour            int
	DayOfWeek       int // 0=Monday
	WeekOfYear      int
	Month           int
	Quarter         int
	Season          int
	IsWeekend       bool
	IsBusinessHours bool
	IsPeakHours     bool
	IsNightEntry    bool
}

// ExtractTemporal derives calendar features from an entry timestamp in its own location.
func ExtractTemporal(entry time.Time) Temporal {
	hour := entry.Hour()
	month := int(entry.Month())
	dow := (int(entry.Weekday()) + 6) % 7
	_, week := entry.ISOWeek()

	return Temporal{
		Hour:            hour,
		DayOfWeek:       dow,
		WeekOfYear:      week,
		Month:           month,
		Quarter:         (month-1)/3 + 1,
		Season:          seasonByMonth[month],
		IsWeekend:       dow >= 5,
		IsBusinessHours: hour >= 9 && hour <= 17,
		IsPeakHours:     peakHours[hour],
		// wraps midnight: 22,23,0..5
		IsNightEntry: hour >= 22 || hour <= 5,
	}
}

func (t Temporal) apply(f *domain.DerivedFeatureSet) {
	f.EntryHour = ptr(t.Hour)
	f.EntryDayOfWeek = ptr(t.DayOfWeek)
	f.EntryWeekOfYear = ptr(t.WeekOfYear)
	f.EntryMonth = ptr(t.Month)
	f.EntryQuarter = ptr(t.Quarter)
	f.EntrySeason = ptr(t.Season)
	f.IsWeekend = ptr(t.IsWeekend)
	f.IsBusinessHours = ptr(t.IsBusinessHours)
	f.IsPeakHours = ptr(t.IsPeakHours)
	f.IsNightEntry = ptr(t.IsNightEntry)
}
