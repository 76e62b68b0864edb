package postgres

import (
	"context"
	"errors"
	"fmt"

	"vehicle-intelligence/internal/domain"
	"vehicle-intelligence/internal/storage"
)

// SummaryStore implements storage.SummaryStore using PostgreSQL.
type SummaryStore struct {
	pool *Pool
}

// NewSummaryStore creates a new SummaryStore.
func NewSummaryStore(pool *Pool) *SummaryStore {
	return &SummaryStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SummaryStore = (*SummaryStore)(nil)

// InsertSummary appends a run summary. Returns ErrDuplicateKey if run_id exists.
func (s *SummaryStore) InsertSummary(ctx context.Context, sum *domain.FeatureSummary) error {
	query := `
		INSERT INTO feature_engineering_summary (
			run_id, total_records, unique_vehicles, organizations, total_revenue,
			avg_duration_minutes, multi_site_vehicles, frequent_vehicles,
			weekend_pct, peak_hour_pct, night_entry_pct, overstay_pct,
			digital_payment_pct, duration_anomaly_pct, payment_anomaly_pct,
			created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11, $12,
			$13, $14, $15,
			$16
		)
	`

	_, err := s.pool.Exec(ctx, query,
		sum.RunID, sum.TotalRecords, sum.UniqueVehicles, sum.Organizations, sum.TotalRevenue,
		sum.AvgDurationMinutes, sum.MultiSiteVehicles, sum.FrequentVehicles,
		sum.WeekendPct, sum.PeakHourPct, sum.NightEntryPct, sum.OverstayPct,
		sum.DigitalPaymentPct, sum.DurationAnomalyPct, sum.PaymentAnomalyPct,
		sum.CreatedAt,
	)
	if err != nil {
		if err = mapError(err); errors.Is(err, storage.ErrDuplicateKey) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert feature summary: %w", err)
	}
	return nil
}

// GetByRunID retrieves a summary. Returns ErrNotFound if not exists.
func (s *SummaryStore) GetByRunID(ctx context.Context, runID string) (*domain.FeatureSummary, error) {
	query := `
		SELECT run_id, total_records, unique_vehicles, organizations, total_revenue,
			avg_duration_minutes, multi_site_vehicles, frequent_vehicles,
			weekend_pct, peak_hour_pct, night_entry_pct, overstay_pct,
			digital_payment_pct, duration_anomaly_pct, payment_anomaly_pct,
			created_at
		FROM feature_engineering_summary
		WHERE run_id = $1
	`

	var sum domain.FeatureSummary
	err := s.pool.QueryRow(ctx, query, runID).Scan(
		&sum.RunID, &sum.TotalRecords, &sum.UniqueVehicles, &sum.Organizations, &sum.TotalRevenue,
		&sum.AvgDurationMinutes, &sum.MultiSiteVehicles, &sum.FrequentVehicles,
		&sum.WeekendPct, &sum.PeakHourPct, &sum.NightEntryPct, &sum.OverstayPct,
		&sum.DigitalPaymentPct, &sum.DurationAnomalyPct, &sum.PaymentAnomalyPct,
		&sum.CreatedAt,
	)
	if err != nil {
		if err = mapError(err); errors.Is(err, storage.ErrNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get feature summary: %w", err)
	}
	return &sum, nil
}
