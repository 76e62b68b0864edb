package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"vehicle-intelligence/internal/domain"
	"vehicle-intelligence/internal/storage"
)

// writeBack commits the feature sets in batches of batchSize. Each batch is
// applied to the target first; mirrors receive only the records the target
// accepted. The context is checked between batches.
func (r *run) writeBack(ctx context.Context, sets []*domain.DerivedFeatureSet) error {
	sets = r.writable(sets)

	for start, n := 0, 0; start < len(sets); start, n = start+r.batchSize, n+1 {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("write batch %d: %w", n, err)
		}
		chunk := sets[start:min(start+r.batchSize, len(sets))]

		res, err := r.target.ApplyBatch(ctx, chunk)
		if err != nil {
			r.metrics.BatchFailures.WithLabelValues(TargetStore).Inc()
			return fatal(fmt.Sprintf("write batch %d", n), err)
		}
		r.metrics.BatchesWritten.WithLabelValues(TargetStore).Inc()
		r.metrics.RecordsProcessed.Add(float64(res.Applied))
		r.result.Batches++
		r.result.Processed += res.Applied

		conflicted := make(map[int64]bool, len(res.Conflicts))
		for _, c := range res.Conflicts {
			conflicted[c.RecordID] = true
			r.skip(c.RecordID, SkipWriteConflict, c.Err)
		}

		if err := r.mirror(ctx, n, chunk, conflicted); err != nil {
			return err
		}

		r.log.Debug("batch committed",
			zap.Int("batch", n),
			zap.Int("applied", res.Applied),
			zap.Int("conflicts", len(res.Conflicts)),
		)
	}
	return nil
}

func (r *run) mirror(ctx context.Context, n int, chunk []*domain.DerivedFeatureSet, conflicted map[int64]bool) error {
	if len(r.mirrors) == 0 {
		return nil
	}

	applied := chunk
	if len(conflicted) > 0 {
		applied = make([]*domain.DerivedFeatureSet, 0, len(chunk))
		for _, f := range chunk {
			if !conflicted[f.RecordID] {
				applied = append(applied, f)
			}
		}
	}

	for _, m := range r.mirrors {
		if _, err := m.store.ApplyBatch(ctx, applied); err != nil {
			r.metrics.BatchFailures.WithLabelValues(m.name).Inc()
			return fatal(fmt.Sprintf("mirror %s batch %d", m.name, n), err)
		}
		r.metrics.BatchesWritten.WithLabelValues(m.name).Inc()
	}
	return nil
}

// writable drops feature sets the write-back cannot target: a non-positive
// id, or an id carried by more than one source row.
func (r *run) writable(sets []*domain.DerivedFeatureSet) []*domain.DerivedFeatureSet {
	counts := make(map[int64]int, len(sets))
	for _, f := range sets {
		counts[f.RecordID]++
	}

	out := make([]*domain.DerivedFeatureSet, 0, len(sets))
	for _, f := range sets {
		switch {
		case f.RecordID <= 0:
			r.skip(f.RecordID, SkipInvalidID, fmt.Errorf("record id %d: %w", f.RecordID, storage.ErrInvalidInput))
		case counts[f.RecordID] > 1:
			r.skip(f.RecordID, SkipDuplicateID, fmt.Errorf("record id %d: %w", f.RecordID, storage.ErrDuplicateKey))
		default:
			out = append(out, f)
		}
	}
	return out
}

func (r *run) skip(recordID int64, reason string, cause error) {
	r.result.Skipped++
	r.metrics.RecordSkipped(reason, 1)
	r.addIssue(&RecordError{RecordID: recordID, Kind: ErrWriteConflict, Err: cause})
}
