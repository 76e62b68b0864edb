// Package features computes the derived feature set of parking movement
// records: row-local temporal, duration and financial extraction, vehicle
// and organization fan-out aggregates, visit sequencing and anomaly flags.
package features

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"vehicle-intelligence/internal/domain"
)

// Record-level computation failures. The batch continues; the affected
// features stay NULL.
var (
	ErrMissingEntryTime = errors.New("entry time missing or unparseable")
	ErrMissingPlate     = errors.New("vehicle plate missing")
)

// Stage names reported to the stage hook.
const (
	StageRowLocal     = "row_local"
	StageVehicle      = "vehicle_aggregate"
	StageOrganization = "organization_aggregate"
	StageBehavior     = "behavior"
)

// Issue is a record that could not be fully computed.
type Issue struct {
	RecordID int64
	Err      error
}

// Result is the output of one computation over a materialized batch.
// Records and Features are index-aligned and ordered by record ID.
type Result struct {
	Records       []*domain.MovementRecord
	Features      []*domain.DerivedFeatureSet
	Vehicles      map[string]*domain.VehicleAggregate
	Organizations map[string]*domain.OrganizationAggregate
	Issues        []Issue
}

// Engine computes feature sets.
type Engine struct {
	opts    Options
	methods PaymentMethods
	log     *zap.Logger

	// OnStage, when set, receives the wall time of each stage.
	OnStage func(stage string, elapsed time.Duration)
}

// NewEngine creates an engine. A nil logger disables logging.
// Returns ErrInvalidOptions when opts fail validation.
func NewEngine(opts Options, log *zap.Logger) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Engine{
		opts:    opts,
		methods: NewPaymentMethods(opts.DigitalPaymentMethods),
		log:     log,
	}, nil
}

// ComputeAll computes features for the whole batch. Aggregation and
// sequencing need every record, so the input must be the full snapshot.
// The result is a pure function of the record set: input order does not matter.
func (e *Engine) ComputeAll(ctx context.Context, records []*domain.MovementRecord) (*Result, error) {
	sorted := make([]*domain.MovementRecord, 0, len(records))
	for _, r := range records {
		if r != nil {
			sorted = append(sorted, r)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	out := make([]*domain.DerivedFeatureSet, len(sorted))
	rowErrs := make([]error, len(sorted))

	// Row-local phase: each worker only writes its own slots.
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for i, r := range sorted {
		i, r := i, r
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i], rowErrs[i] = e.computeRow(r)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("row-local features: %w", err)
	}
	e.stage(StageRowLocal, start)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start = time.Now()
	vehicles := AggregateVehicles(sorted)
	for i, r := range sorted {
		if agg, ok := vehicles[r.Plate]; ok {
			applyVehicle(agg, &e.opts, out[i])
		} else if rowErrs[i] == nil {
			rowErrs[i] = ErrMissingPlate
		}
	}
	e.stage(StageVehicle, start)

	start = time.Now()
	orgs := AggregateOrganizations(sorted)
	for i, r := range sorted {
		if agg, ok := orgs[r.Organization]; ok {
			applyOrganization(agg, &e.opts, out[i])
		}
	}
	e.stage(StageOrganization, start)

	start = time.Now()
	SequenceVisits(sorted, out, e.opts.VisitFrequency)
	DetectAnomalies(sorted, out, e.opts.AnomalyThreshold, e.opts.AnomalyBaseline)
	e.stage(StageBehavior, start)

	var issues []Issue
	for i, err := range rowErrs {
		if err != nil {
			issues = append(issues, Issue{RecordID: sorted[i].ID, Err: err})
		}
	}

	e.log.Debug("features computed",
		zap.Int("records", len(sorted)),
		zap.Int("vehicles", len(vehicles)),
		zap.Int("organizations", len(orgs)),
		zap.Int("issues", len(issues)),
	)

	return &Result{
		Records:       sorted,
		Features:      out,
		Vehicles:      vehicles,
		Organizations: orgs,
		Issues:        issues,
	}, nil
}

// computeRow runs the row-local extractors for one record.
func (e *Engine) computeRow(r *domain.MovementRecord) (*domain.DerivedFeatureSet, error) {
	f := &domain.DerivedFeatureSet{RecordID: r.ID}
	e.methods.applyPayment(r, f)

	if r.EntryTime == nil {
		return f, ErrMissingEntryTime
	}

	ExtractTemporal(*r.EntryTime).apply(f)
	d := ExtractDuration(*r.EntryTime, r.ExitTime, e.opts.Duration)
	d.apply(f)
	ExtractFinancial(r.AmountOrZero(), d.Minutes).apply(f)
	return f, nil
}

func (e *Engine) stage(name string, start time.Time) {
	if e.OnStage != nil {
		e.OnStage(name, time.Since(start))
	}
}
