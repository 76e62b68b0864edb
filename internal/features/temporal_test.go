package features

import (
	"testing"
	"time"
)

func at(year int, month time.Month, d, hour int) time.Time {
	return time.Date(year, month, d, hour, 0, 0, 0, time.UTC)
}

func TestExtractTemporal_Season(t *testing.T) {
	want := map[time.Month]int{
		time.January: 0, time.February: 0, time.March: 1, time.April: 1,
		time.May: 1, time.June: 2, time.July: 2, time.August: 2,
		time.September: 3, time.October: 3, time.November: 3, time.December: 0,
	}
	for month, season := range want {
		got := ExtractTemporal(at(2024, month, 10, 12))
		if got.Season != season {
			t.Errorf("month %d: season = %d, want %d", month, got.Season, season)
		}
		if got.Month != int(month) {
			t.Errorf("month %d: Month = %d", month, got.Month)
		}
	}
}

func TestExtractTemporal_Quarter(t *testing.T) {
	tests := []struct {
		month time.Month
		want  int
	}{
		{time.January, 1}, {time.March, 1}, {time.April, 2},
		{time.September, 3}, {time.October, 4}, {time.December, 4},
	}
	for _, tt := range tests {
		if got := ExtractTemporal(at(2024, tt.month, 1, 0)).Quarter; got != tt.want {
			t.Errorf("month %d: quarter = %d, want %d", tt.month, got, tt.want)
		}
	}
}

func TestExtractTemporal_HourFlags(t *testing.T) {
	for hour := 0; hour < 24; hour++ {
		got := ExtractTemporal(at(2024, time.March, 4, hour))

		wantNight := hour >= 22 || hour <= 5
		wantBusiness := hour >= 9 && hour <= 17
		wantPeak := hour == 8 || hour == 9 || hour == 17 || hour == 18

		if got.IsNightEntry != wantNight {
			t.Errorf("hour %d: IsNightEntry = %v, want %v", hour, got.IsNightEntry, wantNight)
		}
		if got.IsBusinessHours != wantBusiness {
			t.Errorf("hour %d: IsBusinessHours = %v, want %v", hour, got.IsBusinessHours, wantBusiness)
		}
		if got.IsPeakHours != wantPeak {
			t.Errorf("hour %d: IsPeakHours = %v, want %v", hour, got.IsPeakHours, wantPeak)
		}
		if got.Hour != hour {
			t.Errorf("hour %d: Hour = %d", hour, got.Hour)
		}
	}
}

func TestExtractTemporal_DayOfWeek(t *testing.T) {
	// 2024-01-01 is a Monday.
	for d := 0; d < 7; d++ {
		got := ExtractTemporal(at(2024, time.January, 1+d, 10))
		if got.DayOfWeek != d {
			t.Errorf("day %d: DayOfWeek = %d", d, got.DayOfWeek)
		}
		if got.IsWeekend != (d >= 5) {
			t.Errorf("day %d: IsWeekend = %v", d, got.IsWeekend)
		}
	}
}

func TestExtractTemporal_WeekOfYear(t *testing.T) {
	// 2021-01-03 (Sunday) still belongs to ISO week 53 of 2020.
	if got := ExtractTemporal(at(2021, time.January, 3, 10)).WeekOfYear; got != 53 {
		t.Errorf("WeekOfYear = %d, want 53", got)
	}
	if got := ExtractTemporal(at(2021, time.January, 4, 10)).WeekOfYear; got != 1 {
		t.Errorf("WeekOfYear = %d, want 1", got)
	}
}

func TestExtractTemporal_UsesTimestampLocation(t *testing.T) {
	nairobi := time.FixedZone("EAT", 3*3600)
	// 20:00 UTC is 23:00 in Nairobi.
	entry := time.Date(2024, time.May, 1, 20, 0, 0, 0, time.UTC).In(nairobi)

	got := ExtractTemporal(entry)
	if got.Hour != 23 || !got.IsNightEntry {
		t.Errorf("got hour %d night %v, want 23 true", got.Hour, got.IsNightEntry)
	}
}
