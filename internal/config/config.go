// Package config loads pipeline configuration from defaults, an optional YAML
// file and FEATURES_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every recognized environment variable.
const EnvPrefix = "FEATURES"

// Anomaly baselines.
const (
	BaselineGlobal  = "global"
	BaselineVehicle = "vehicle"
)

// Source layouts.
const (
	LayoutParkingRecords  = "parking_records"
	LayoutCombinedDataset = "combined_dataset"
	LayoutAuto            = "auto"
)

// ErrInvalidBoundaries is returned when a boundary table is not strictly increasing.
var ErrInvalidBoundaries = errors.New("boundaries must hold at least two strictly increasing edges")

// Config is the full pipeline configuration.
type Config struct {
	Environment   string `yaml:"environment" split_words:"true"`
	PostgresDSN   string `yaml:"postgres_dsn" split_words:"true"`
	ClickhouseDSN string `yaml:"clickhouse_dsn" split_words:"true"`
	Table         string `yaml:"table" split_words:"true" validate:"required"`
	Layout        string `yaml:"layout" split_words:"true" validate:"oneof=parking_records combined_dataset auto"`
	Timezone      string `yaml:"timezone" split_words:"true" validate:"required"`

	BatchSize        int     `yaml:"batch_size" split_words:"true" validate:"gt=0"`
	Workers          int     `yaml:"workers" split_words:"true" validate:"gt=0"`
	AnomalyThreshold float64 `yaml:"anomaly_threshold" split_words:"true" validate:"gt=0"`
	AnomalyBaseline  string  `yaml:"anomaly_baseline" split_words:"true" validate:"oneof=global vehicle"`

	DigitalPaymentMethods []string `yaml:"digital_payment_methods" split_words:"true" validate:"min=1"`

	Boundaries Boundaries `yaml:"boundaries" split_words:"true"`
}

// Boundaries holds the finite edges of every category table. The last bucket
// is always open towards +Inf, so [0,30,120,480] describes four buckets.
type Boundaries struct {
	Duration                []float64 `yaml:"duration" split_words:"true"`
	VehicleUsage            []float64 `yaml:"vehicle_usage" split_words:"true"`
	VehicleRevenue          []float64 `yaml:"vehicle_revenue" split_words:"true"`
	OrganizationSize        []float64 `yaml:"organization_size" split_words:"true"`
	OrganizationPerformance []float64 `yaml:"organization_performance" split_words:"true"`
	VisitFrequency          []float64 `yaml:"visit_frequency" split_words:"true"`
}

// Default returns the configuration with every default applied. It is the
// only source of defaults; Load layers the file and environment on top.
func Default() *Config {
	return &Config{
		Environment:           "development",
		Table:                 "parking_records",
		Layout:                LayoutParkingRecords,
		Timezone:              "UTC",
		BatchSize:             1000,
		Workers:               4,
		AnomalyThreshold:      2.0,
		AnomalyBaseline:       BaselineGlobal,
		DigitalPaymentMethods: []string{"Card", "Mobile", "Digital"},
		Boundaries: Boundaries{
			Duration:                []float64{0, 30, 120, 480},
			VehicleUsage:            []float64{0, 2, 5, 10},
			VehicleRevenue:          []float64{0, 100, 500, 1000},
			OrganizationSize:        []float64{0, 50, 200, 500},
			OrganizationPerformance: []float64{0, 1000, 5000, 10000},
			VisitFrequency:          []float64{0, 1, 7, 30},
		},
	}
}

// Load builds the configuration. path may be empty, in which case only
// defaults and environment variables apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	// Only variables that are set are assigned, so unset ones keep the
	// file and default values. split_words keys have no unprefixed fallback.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct constraints, boundary tables and the time zone.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	tables := map[string][]float64{
		"duration":                 c.Boundaries.Duration,
		"vehicle_usage":            c.Boundaries.VehicleUsage,
		"vehicle_revenue":          c.Boundaries.VehicleRevenue,
		"organization_size":        c.Boundaries.OrganizationSize,
		"organization_performance": c.Boundaries.OrganizationPerformance,
		"visit_frequency":          c.Boundaries.VisitFrequency,
	}
	for name, edges := range tables {
		if err := validateEdges(edges); err != nil {
			return fmt.Errorf("boundaries.%s: %w", name, err)
		}
	}

	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func validateEdges(edges []float64) error {
	if len(edges) < 2 {
		return ErrInvalidBoundaries
	}
	for i := 1; i < len(edges); i++ {
		if !(edges[i] > edges[i-1]) {
			return ErrInvalidBoundaries
		}
	}
	return nil
}
