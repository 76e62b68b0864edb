package features

import (
	"errors"
	"fmt"
	"math"

	"vehicle-intelligence/internal/config"
)

// ErrInvalidOptions wraps every option validation failure.
var ErrInvalidOptions = errors.New("invalid feature options")

// Baseline selects the population anomaly statistics are computed over.
type Baseline string

const (
	BaselineGlobal  Baseline = config.BaselineGlobal
	BaselineVehicle Baseline = config.BaselineVehicle
)

// Options parameterizes feature computation.
type Options struct {
	Duration                Bins
	VehicleUsage            Bins
	VehicleRevenue          Bins
	OrganizationSize        Bins
	OrganizationPerformance Bins
	VisitFrequency          Bins // descending labels

	AnomalyThreshold      float64 // in standard deviations
	AnomalyBaseline       Baseline
	DigitalPaymentMethods []string
	Workers               int
}

// Validate checks every category table, the anomaly threshold and the baseline.
func (o Options) Validate() error {
	tables := []struct {
		name string
		bins Bins
	}{
		{"duration", o.Duration},
		{"vehicle_usage", o.VehicleUsage},
		{"vehicle_revenue", o.VehicleRevenue},
		{"organization_size", o.OrganizationSize},
		{"organization_performance", o.OrganizationPerformance},
		{"visit_frequency", o.VisitFrequency},
	}
	for _, tb := range tables {
		if err := tb.bins.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidOptions, tb.name, err)
		}
	}
	if !(o.AnomalyThreshold > 0) || math.IsInf(o.AnomalyThreshold, 1) {
		return fmt.Errorf("%w: anomaly threshold %v must be a positive number", ErrInvalidOptions, o.AnomalyThreshold)
	}
	if o.AnomalyBaseline != BaselineGlobal && o.AnomalyBaseline != BaselineVehicle {
		return fmt.Errorf("%w: unknown anomaly baseline %q", ErrInvalidOptions, o.AnomalyBaseline)
	}
	return nil
}

// DefaultOptions returns the options matching config.Default.
func DefaultOptions() Options {
	return OptionsFromConfig(config.Default())
}

// OptionsFromConfig builds options from a validated configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	b := cfg.Boundaries
	return Options{
		Duration:                NewBins(b.Duration),
		VehicleUsage:            NewBins(b.VehicleUsage),
		VehicleRevenue:          NewBins(b.VehicleRevenue),
		OrganizationSize:        NewBins(b.OrganizationSize),
		OrganizationPerformance: NewBins(b.OrganizationPerformance),
		VisitFrequency:          NewDescendingBins(b.VisitFrequency),
		AnomalyThreshold:        cfg.AnomalyThreshold,
		AnomalyBaseline:         Baseline(cfg.AnomalyBaseline),
		DigitalPaymentMethods:   append([]string(nil), cfg.DigitalPaymentMethods...),
		Workers:                 cfg.Workers,
	}
}
