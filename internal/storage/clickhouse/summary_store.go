package clickhouse

import (
	"context"
	"fmt"

	"vehicle-intelligence/internal/domain"
	"vehicle-intelligence/internal/storage"
)

// SummaryStore keeps the history of run summaries in feature_summaries.
type SummaryStore struct {
	conn *Conn
}

// NewSummaryStore creates a new SummaryStore.
func NewSummaryStore(conn *Conn) *SummaryStore {
	return &SummaryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SummaryStore = (*SummaryStore)(nil)

// InsertSummary appends a summary. Returns ErrDuplicateKey if run_id exists.
func (s *SummaryStore) InsertSummary(ctx context.Context, sum *domain.FeatureSummary) error {
	var count uint64
	if err := s.conn.QueryRow(ctx, `SELECT count(*) FROM feature_summaries WHERE run_id = ?`, sum.RunID).Scan(&count); err != nil {
		return fmt.Errorf("check summary exists: %w", err)
	}
	if count > 0 {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO feature_summaries (
			run_id, total_records, unique_vehicles, organizations, total_revenue,
			avg_duration_minutes, multi_site_vehicles, frequent_vehicles,
			weekend_pct, peak_hour_pct, night_entry_pct, overstay_pct,
			digital_payment_pct, duration_anomaly_pct, payment_anomaly_pct,
			created_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	err = batch.Append(
		sum.RunID, uint32(sum.TotalRecords), uint32(sum.UniqueVehicles), uint32(sum.Organizations), sum.TotalRevenue,
		sum.AvgDurationMinutes, uint32(sum.MultiSiteVehicles), uint32(sum.FrequentVehicles),
		sum.WeekendPct, sum.PeakHourPct, sum.NightEntryPct, sum.OverstayPct,
		sum.DigitalPaymentPct, sum.DurationAnomalyPct, sum.PaymentAnomalyPct,
		sum.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// Recent returns up to limit summaries, newest first.
func (s *SummaryStore) Recent(ctx context.Context, limit int) ([]*domain.FeatureSummary, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT
			run_id, total_records, unique_vehicles, organizations, total_revenue,
			avg_duration_minutes, multi_site_vehicles, frequent_vehicles,
			weekend_pct, peak_hour_pct, night_entry_pct, overstay_pct,
			digital_payment_pct, duration_anomaly_pct, payment_anomaly_pct,
			created_at
		FROM feature_summaries
		ORDER BY created_at DESC, run_id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	defer rows.Close()

	return scanSummaries(rows)
}

func scanSummaries(rows chRows) ([]*domain.FeatureSummary, error) {
	var out []*domain.FeatureSummary
	for rows.Next() {
		var sum domain.FeatureSummary
		var total, vehicles, orgs, multi, frequent uint32

		err := rows.Scan(
			&sum.RunID, &total, &vehicles, &orgs, &sum.TotalRevenue,
			&sum.AvgDurationMinutes, &multi, &frequent,
			&sum.WeekendPct, &sum.PeakHourPct, &sum.NightEntryPct, &sum.OverstayPct,
			&sum.DigitalPaymentPct, &sum.DurationAnomalyPct, &sum.PaymentAnomalyPct,
			&sum.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}

		sum.TotalRecords = int(total)
		sum.UniqueVehicles = int(vehicles)
		sum.Organizations = int(orgs)
		sum.MultiSiteVehicles = int(multi)
		sum.FrequentVehicles = int(frequent)
		out = append(out, &sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summary rows: %w", err)
	}
	return out, nil
}
