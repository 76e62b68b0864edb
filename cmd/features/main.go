// Package main provides the feature pipeline entry point.
// Loads parking movements, computes derived features and writes them back
// to the source table, optionally mirroring them to ClickHouse.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"vehicle-intelligence/internal/adapter"
	"vehicle-intelligence/internal/config"
	"vehicle-intelligence/internal/features"
	"vehicle-intelligence/internal/logger"
	"vehicle-intelligence/internal/observability"
	"vehicle-intelligence/internal/pipeline"
	"vehicle-intelligence/internal/storage"
	chstore "vehicle-intelligence/internal/storage/clickhouse"
	"vehicle-intelligence/internal/storage/memory"
	"vehicle-intelligence/internal/storage/migrations"
	pgstore "vehicle-intelligence/internal/storage/postgres"
)

type options struct {
	source      string
	sheet       string
	output      string
	dryRun      bool
	migrate     bool
	metricsAddr string
}

func main() {
	os.Exit(realMain(os.Args[1:]))
}

// realMain runs the command and returns the process exit code, so deferred
// cleanup and the logger flush run before exit.
func realMain(args []string) int {
	fs := flag.NewFlagSet("features", flag.ContinueOnError)
	configPath := fs.String("config", "", "YAML configuration file")
	source := fs.String("source", "postgres", "Movement source: postgres, or the path of an .xlsx export")
	sheet := fs.String("sheet", "", "Workbook sheet to read (default: first sheet)")
	output := fs.String("output", "", "Save the enhanced workbook to this path (xlsx source only)")
	dryRun := fs.Bool("dry-run", false, "Compute features and the summary without writing anything")
	migrate := fs.Bool("migrate", false, "Apply embedded migrations before the run")
	metricsAddr := fs.String("metrics-addr", "", "Prometheus metrics HTTP address (empty to disable)")
	postgresDSN := fs.String("postgres-dsn", "", "PostgreSQL connection string (overrides config)")
	clickhouseDSN := fs.String("clickhouse-dsn", "", "ClickHouse connection string (overrides config)")
	table := fs.String("table", "", "Movement table (overrides config)")
	layout := fs.String("layout", "", "Source layout: parking_records, combined_dataset or auto (overrides config)")
	batchSize := fs.Int("batch-size", 0, "Records per write-back batch (overrides config)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return 1
	}

	// Flags win over file and environment
	if *postgresDSN != "" {
		cfg.PostgresDSN = *postgresDSN
	}
	if *clickhouseDSN != "" {
		cfg.ClickhouseDSN = *clickhouseDSN
	}
	if *table != "" {
		cfg.Table = *table
	}
	if *layout != "" {
		cfg.Layout = *layout
	}
	if *batchSize > 0 {
		cfg.BatchSize = *batchSize
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		return 1
	}

	log, err := logger.New(cfg.Environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			log.Warn("received signal, cancelling run after the current batch", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	opts := options{
		source:      *source,
		sheet:       *sheet,
		output:      *output,
		dryRun:      *dryRun,
		migrate:     *migrate,
		metricsAddr: *metricsAddr,
	}
	if err := run(ctx, cfg, opts, log); err != nil {
		log.Error("feature run failed", zap.Error(err))
		return 1
	}
	return 0
}

func run(ctx context.Context, cfg *config.Config, opts options, log *zap.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	reg := observability.NewRegistry()
	metrics := observability.NewMetrics("", reg)
	if opts.metricsAddr != "" {
		go serveMetrics(opts.metricsAddr, reg, log)
	}

	engine, err := features.NewEngine(features.OptionsFromConfig(cfg), log.Named("features"))
	if err != nil {
		return err
	}

	stores, cleanup, err := openStores(ctx, cfg, opts, loc, metrics, log)
	if err != nil {
		return err
	}
	defer cleanup()

	runner := pipeline.NewRunner(stores.source, stores.target, engine).
		WithLogger(log.Named("pipeline")).
		WithMetrics(metrics).
		WithBatchSize(cfg.BatchSize).
		WithDryRun(opts.dryRun)
	if stores.locker != nil {
		runner = runner.WithLocker(stores.locker, cfg.Table)
	}
	if stores.mirror != nil {
		runner = runner.WithMirror("clickhouse", stores.mirror)
	}
	for _, s := range stores.summaries {
		runner = runner.WithSummaryStore(s)
	}

	result, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	if stores.workbook != nil && opts.output != "" && !opts.dryRun {
		batch, err := stores.source.LoadMovements(ctx)
		if err != nil {
			return err
		}
		if err := adapter.WriteWorkbook(opts.output, batch.Records, stores.workbook.Snapshot()); err != nil {
			return err
		}
		log.Info("enhanced workbook saved", zap.String("path", opts.output))
	}

	printResult(result)
	return nil
}

// runStores holds the stores a run is wired to.
type runStores struct {
	source    storage.MovementSource
	target    storage.FeatureStore
	mirror    storage.FeatureStore
	summaries []storage.SummaryStore
	locker    storage.Locker
	workbook  *memory.MovementTable // set for the xlsx source
}

// openStores connects the configured backends.
func openStores(ctx context.Context, cfg *config.Config, opts options, loc *time.Location, metrics *observability.Metrics, log *zap.Logger) (*runStores, func(), error) {
	stores := &runStores{}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if strings.HasSuffix(strings.ToLower(opts.source), ".xlsx") {
		src := adapter.NewWorkbookSource(opts.source, opts.sheet, cfg.Layout, loc)
		batch, err := src.LoadMovements(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("read workbook: %w", err)
		}
		table := memory.NewMovementTable(batch.Records)
		stores.source = src
		stores.target = table
		stores.workbook = table
		stores.locker = memory.NewLocker()
	} else {
		if opts.source != "postgres" {
			return nil, nil, fmt.Errorf("unknown source %q: want postgres or an .xlsx path", opts.source)
		}
		if cfg.PostgresDSN == "" {
			return nil, nil, errors.New("postgres source requires postgres_dsn")
		}

		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		closers = append(closers, pool.Close)

		if opts.migrate {
			applied, err := migrations.RunPostgresMigrations(ctx, pool)
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("postgres migrations: %w", err)
			}
			log.Info("postgres migrations applied", zap.Strings("files", applied))
		}

		stores.source = pgstore.NewMovementSource(pool, cfg.Table, cfg.Layout, loc, log.Named("source")).
			WithMetrics(metrics)
		stores.target = pgstore.NewFeatureStore(pool, cfg.Table, "id", log.Named("target")).
			WithMetrics(metrics)
		stores.locker = pgstore.NewLocker(pool)
		stores.summaries = append(stores.summaries, pgstore.NewSummaryStore(pool))
	}

	if cfg.ClickhouseDSN != "" {
		var conn *chstore.Conn
		var err error
		if opts.migrate {
			conn, err = migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		} else {
			conn, err = chstore.NewConn(ctx, cfg.ClickhouseDSN)
		}
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		closers = append(closers, func() { _ = conn.Close() })

		stores.mirror = chstore.NewFeatureMirror(conn, log.Named("mirror")).WithMetrics(metrics)
		stores.summaries = append(stores.summaries, chstore.NewSummaryStore(conn))
	}

	return stores, cleanup, nil
}

func serveMetrics(addr string, g prometheus.Gatherer, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.HandlerFor(g))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	log.Info("metrics server listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("metrics server", zap.Error(err))
	}
}

func printResult(r *pipeline.RunResult) {
	fmt.Printf("Feature run %s %s in %s\n", r.RunID, r.State, r.Duration.Round(time.Millisecond))
	fmt.Printf("  Loaded:    %d\n", r.Loaded)
	fmt.Printf("  Processed: %d\n", r.Processed)
	fmt.Printf("  Skipped:   %d\n", r.Skipped)
	fmt.Printf("  Batches:   %d\n", r.Batches)
	for store, cols := range r.ColumnsAdded {
		fmt.Printf("  Columns added (%s): %d\n", store, len(cols))
	}
	fmt.Printf("  Issues: schema=%d computation=%d conflict=%d\n",
		r.Count(pipeline.ErrSchemaMismatch), r.Count(pipeline.ErrComputation), r.Count(pipeline.ErrWriteConflict))

	if s := r.Summary; s != nil {
		fmt.Println("\nSummary:")
		fmt.Printf("  Records:        %d\n", s.TotalRecords)
		fmt.Printf("  Vehicles:       %d\n", s.UniqueVehicles)
		fmt.Printf("  Organizations:  %d\n", s.Organizations)
		fmt.Printf("  Revenue:        %.2f\n", s.TotalRevenue)
		fmt.Printf("  Avg duration:   %.1f min\n", s.AvgDurationMinutes)
		fmt.Printf("  Weekend:        %.1f%%\n", s.WeekendPct)
		fmt.Printf("  Overstay:       %.1f%%\n", s.OverstayPct)
		fmt.Printf("  Digital:        %.1f%%\n", s.DigitalPaymentPct)
	}
}
