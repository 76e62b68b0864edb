package features

import (
	"math"
	"sort"
	"time"

	"vehicle-intelligence/internal/domain"
)

const day = 24 * time.Hour

// SequenceVisits computes days_since_last_visit and visit_frequency_category.
// records and out are index-aligned. Each vehicle's records are ordered by
// entry time (ties by record ID); the first visit gets 0. Records without a
// plate or an entry time are left NULL.
func SequenceVisits(records []*domain.MovementRecord, out []*domain.DerivedFeatureSet, bins Bins) {
	groups := make(map[string][]int)
	for i, r := range records {
		if r.Plate == "" || r.EntryTime == nil {
			continue
		}
		groups[r.Plate] = append(groups[r.Plate], i)
	}

	for _, idx := range groups {
		sort.SliceStable(idx, func(a, b int) bool {
			ra, rb := records[idx[a]], records[idx[b]]
			if !ra.EntryTime.Equal(*rb.EntryTime) {
				return ra.EntryTime.Before(*rb.EntryTime)
			}
			return ra.ID < rb.ID
		})

		var prev time.Time
		for n, i := range idx {
			gap := 0
			if n > 0 {
				gap = int(records[i].EntryTime.Sub(prev) / day)
			}
			prev = *records[i].EntryTime

			out[i].DaysSinceLastVisit = ptr(gap)
			out[i].VisitFrequencyCategory = ptr(bins.Categorize(float64(gap)))
		}
	}
}

// DetectAnomalies flags records whose duration or payment amount deviates
// from the baseline mean by more than threshold standard deviations.
// Records without a computed duration get no duration flag. A baseline with
// zero variance flags nothing.
func DetectAnomalies(records []*domain.MovementRecord, out []*domain.DerivedFeatureSet, threshold float64, baseline Baseline) {
	durations := make([]observation, 0, len(records))
	payments := make([]observation, 0, len(records))
	for i, r := range records {
		if d := out[i].DurationMinutes; d != nil {
			durations = append(durations, observation{index: i, group: r.Plate, value: *d})
		}
		payments = append(payments, observation{index: i, group: r.Plate, value: r.AmountOrZero()})
	}

	for i, flagged := range flagOutliers(durations, threshold, baseline) {
		out[i].IsDurationAnomaly = ptr(flagged)
	}
	for i, flagged := range flagOutliers(payments, threshold, baseline) {
		out[i].IsPaymentAnomaly = ptr(flagged)
	}
}

type observation struct {
	index int
	group string
	value float64
}

type moments struct {
	mean, std float64
	constant  bool
}

func momentsOf(obs []observation) moments {
	values := make([]float64, len(obs))
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, o := range obs {
		values[i] = o.value
		lo = math.Min(lo, o.value)
		hi = math.Max(hi, o.value)
	}
	m := mean(values)
	return moments{mean: m, std: stddev(values, m), constant: len(values) == 0 || lo == hi}
}

func (m moments) outlier(v, threshold float64) bool {
	if m.constant || m.std == 0 {
		return false
	}
	return math.Abs(v-m.mean) > threshold*m.std
}

// flagOutliers returns record index -> flag for every observation.
func flagOutliers(obs []observation, threshold float64, baseline Baseline) map[int]bool {
	global := momentsOf(obs)

	perGroup := map[string]moments{}
	if baseline == BaselineVehicle {
		grouped := make(map[string][]observation)
		for _, o := range obs {
			if o.group != "" {
				grouped[o.group] = append(grouped[o.group], o)
			}
		}
		for g, members := range grouped {
			perGroup[g] = momentsOf(members)
		}
	}

	flags := make(map[int]bool, len(obs))
	for _, o := range obs {
		m := global
		if gm, ok := perGroup[o.group]; ok {
			m = gm
		}
		flags[o.index] = m.outlier(o.value, threshold)
	}
	return flags
}
