// Package pipeline runs one feature computation end to end: job lock,
// source load, schema reconciliation, computation, batched write-back and
// the run summary.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"vehicle-intelligence/internal/adapter"
	"vehicle-intelligence/internal/domain"
	"vehicle-intelligence/internal/features"
	"vehicle-intelligence/internal/observability"
	"vehicle-intelligence/internal/storage"
)

// DefaultBatchSize is the number of records committed per write-back batch.
const DefaultBatchSize = 1000

// TargetStore is the store name of the authoritative write-back target.
const TargetStore = "target"

// Skip reasons reported to metrics.
const (
	SkipInvalidID     = "invalid_id"
	SkipDuplicateID   = "duplicate_id"
	SkipWriteConflict = "write_conflict"
)

type namedStore struct {
	name  string
	store storage.FeatureStore
}

// Runner orchestrates feature runs against one source and one target.
type Runner struct {
	source    storage.MovementSource
	target    storage.FeatureStore
	engine    *features.Engine
	mirrors   []namedStore
	summaries []storage.SummaryStore
	locker    storage.Locker
	lockName  string
	metrics   *observability.Metrics
	log       *zap.Logger
	clock     func() time.Time
	newRunID  func() string
	batchSize int
	dryRun    bool
}

// NewRunner creates a runner reading from source and writing to target.
func NewRunner(source storage.MovementSource, target storage.FeatureStore, engine *features.Engine) *Runner {
	return &Runner{
		source:    source,
		target:    target,
		engine:    engine,
		metrics:   observability.NewMetrics("", prometheus.NewRegistry()),
		log:       zap.NewNop(),
		clock:     func() time.Time { return time.Now().UTC() },
		newRunID:  uuid.NewString,
		batchSize: DefaultBatchSize,
	}
}

// WithMirror adds a secondary store that receives every applied batch.
func (p *Runner) WithMirror(name string, store storage.FeatureStore) *Runner {
	p.mirrors = append(p.mirrors, namedStore{name: name, store: store})
	return p
}

// WithSummaryStore adds a store for the run summary.
func (p *Runner) WithSummaryStore(s storage.SummaryStore) *Runner {
	p.summaries = append(p.summaries, s)
	return p
}

// WithLocker guards each run with the named job lock.
func (p *Runner) WithLocker(l storage.Locker, name string) *Runner {
	p.locker = l
	p.lockName = name
	return p
}

// WithMetrics reports run and stage metrics to m.
func (p *Runner) WithMetrics(m *observability.Metrics) *Runner {
	p.metrics = m
	p.engine.OnStage = m.RecordStage
	return p
}

// WithLogger sets the logger.
func (p *Runner) WithLogger(log *zap.Logger) *Runner {
	p.log = log
	return p
}

// WithClock sets a custom clock function for deterministic output.
func (p *Runner) WithClock(clock func() time.Time) *Runner {
	p.clock = clock
	return p
}

// WithRunIDs sets the run id generator.
func (p *Runner) WithRunIDs(gen func() string) *Runner {
	p.newRunID = gen
	return p
}

// WithBatchSize sets the write-back batch size. Values below 1 keep the default.
func (p *Runner) WithBatchSize(n int) *Runner {
	if n > 0 {
		p.batchSize = n
	}
	return p
}

// WithDryRun computes features and the summary without touching any store.
func (p *Runner) WithDryRun(dry bool) *Runner {
	p.dryRun = dry
	return p
}

// RunResult reports what a run did. On failure it holds the progress made
// before the error.
type RunResult struct {
	RunID        string
	State        State
	Loaded       int
	Processed    int // records written to the target
	Skipped      int // records not written because of a write conflict
	Batches      int // committed target batches
	ColumnsAdded map[string][]string
	Issues       []*RecordError
	Summary      *domain.FeatureSummary
	StartedAt    time.Time
	Duration     time.Duration
}

// Count returns the number of issues of the given kind.
func (r *RunResult) Count(kind error) int {
	n := 0
	for _, issue := range r.Issues {
		if errors.Is(issue, kind) {
			n++
		}
	}
	return n
}

// run is the state of one Run call.
type run struct {
	*Runner
	result *RunResult
	log    *zap.Logger
}

// Run executes one feature run. The returned error wraps ErrFatalStorage
// for storage failures, storage.ErrLocked when another run holds the job
// lock, or the context error when cancelled between batches.
func (p *Runner) Run(ctx context.Context) (*RunResult, error) {
	r := &run{
		Runner: p,
		result: &RunResult{
			RunID:        p.newRunID(),
			State:        StateInitializing,
			ColumnsAdded: make(map[string][]string),
			StartedAt:    p.clock(),
		},
	}
	r.log = p.log.With(zap.String("run_id", r.result.RunID))
	r.log.Info("feature run started", zap.Bool("dry_run", p.dryRun), zap.Int("batch_size", p.batchSize))

	err := r.execute(ctx)
	r.result.Duration = p.clock().Sub(r.result.StartedAt)

	if err != nil {
		status := observability.StatusFailed
		if errors.Is(err, storage.ErrLocked) {
			status = observability.StatusLocked
		}
		r.log.Error("feature run failed",
			zap.String("state", string(r.result.State)),
			zap.Int("processed", r.result.Processed),
			zap.Int("batches", r.result.Batches),
			zap.Error(err),
		)
		r.result.State = StateFailed
		p.metrics.RecordRun(status, r.result.Duration)
		return r.result, err
	}

	r.log.Info("feature run completed",
		zap.Int("loaded", r.result.Loaded),
		zap.Int("processed", r.result.Processed),
		zap.Int("skipped", r.result.Skipped),
		zap.Int("issues", len(r.result.Issues)),
		zap.Int("batches", r.result.Batches),
		zap.Duration("duration", r.result.Duration),
	)
	p.metrics.RecordRun(observability.StatusSuccess, r.result.Duration)
	return r.result, nil
}

func (r *run) execute(ctx context.Context) error {
	if r.locker != nil {
		release, err := r.locker.TryLock(ctx, r.lockName)
		if err != nil {
			return fmt.Errorf("acquire job lock %q: %w", r.lockName, err)
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				r.log.Warn("release job lock", zap.String("lock", r.lockName), zap.Error(err))
			}
		}()
	}

	batch, err := r.source.LoadMovements(ctx)
	if err != nil {
		return fatal("load movements", err)
	}
	r.result.Loaded = len(batch.Records)
	r.metrics.RecordsLoaded.Add(float64(len(batch.Records)))
	badEntry := r.noteSourceIssues(batch)

	if err := r.reconcile(ctx); err != nil {
		return err
	}
	if err := r.transition(StateSchemaReady); err != nil {
		return err
	}

	computed, err := r.engine.ComputeAll(ctx, batch.Records)
	if err != nil {
		return fmt.Errorf("compute features: %w", err)
	}
	for _, issue := range computed.Issues {
		if errors.Is(issue.Err, features.ErrMissingEntryTime) && badEntry[issue.RecordID] {
			continue
		}
		r.addIssue(&RecordError{RecordID: issue.RecordID, Kind: ErrComputation, Err: issue.Err})
	}
	r.result.Summary = BuildSummary(r.result.RunID, computed, r.clock())
	if err := r.transition(StateFeaturesComputed); err != nil {
		return err
	}

	if r.dryRun {
		r.log.Info("dry run: write-back skipped", zap.Int("feature_sets", len(computed.Features)))
		return r.transition(StateCompleted)
	}

	if err := r.transition(StateWritingBatches); err != nil {
		return err
	}
	if err := r.writeBack(ctx, computed.Features); err != nil {
		return err
	}
	r.storeSummary(ctx)
	return r.transition(StateCompleted)
}

// noteSourceIssues records missing source fields and undecodable values.
// It returns the ids whose entry time failed to decode.
func (r *run) noteSourceIssues(batch *adapter.Batch) map[int64]bool {
	for _, f := range batch.Missing {
		r.addIssue(&RecordError{
			Kind: ErrSchemaMismatch,
			Err:  fmt.Errorf("field %s: %w", f, adapter.ErrMissingColumn),
		})
	}

	badEntry := make(map[int64]bool)
	for _, fe := range batch.Issues {
		r.addIssue(&RecordError{RecordID: fe.RecordID, Kind: ErrComputation, Err: fe})
		if fe.Field == adapter.FieldEntryTime {
			badEntry[fe.RecordID] = true
		}
	}
	return badEntry
}

// reconcile adds missing feature columns to the target and every mirror.
func (r *run) reconcile(ctx context.Context) error {
	if r.dryRun {
		r.log.Info("dry run: schema reconciliation skipped")
		return nil
	}

	stores := append([]namedStore{{name: TargetStore, store: r.target}}, r.mirrors...)
	for _, s := range stores {
		added, err := s.store.ReconcileSchema(ctx, domain.FeatureColumns)
		if err != nil {
			return fatal("reconcile "+s.name+" schema", err)
		}
		if len(added) > 0 {
			r.result.ColumnsAdded[s.name] = added
			r.metrics.ColumnsAdded.WithLabelValues(s.name).Add(float64(len(added)))
			r.log.Info("feature columns added", zap.String("store", s.name), zap.Strings("columns", added))
		}
		if scoped, ok := s.store.(storage.RunScoped); ok {
			scoped.BeginRun(r.result.RunID)
		}
	}
	return nil
}

func (r *run) storeSummary(ctx context.Context) {
	for _, s := range r.summaries {
		if err := s.InsertSummary(ctx, r.result.Summary); err != nil {
			r.log.Warn("summary not persisted", zap.Error(err))
		}
	}
}

func (r *run) addIssue(issue *RecordError) {
	r.result.Issues = append(r.result.Issues, issue)
	if errors.Is(issue.Kind, ErrComputation) {
		r.metrics.ComputationIssues.Inc()
	}
	r.log.Warn(issue.Kind.Error(), zap.Int64("record_id", issue.RecordID), zap.Error(issue.Err))
}

func (r *run) transition(to State) error {
	if !CanTransition(r.result.State, to) {
		return fmt.Errorf("invalid run transition %s -> %s", r.result.State, to)
	}
	r.log.Debug("run state", zap.String("from", string(r.result.State)), zap.String("state", string(to)))
	r.result.State = to
	return nil
}
