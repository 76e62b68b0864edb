package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1000, cfg.BatchSize)
	assert.Equal(t, 2.0, cfg.AnomalyThreshold)
	assert.Equal(t, []float64{0, 30, 120, 480}, cfg.Boundaries.Duration)
	assert.Equal(t, []string{"Card", "Mobile", "Digital"}, cfg.DigitalPaymentMethods)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "features.yaml")
	content := `
table: movements
batch_size: 250
anomaly_baseline: vehicle
boundaries:
  duration: [0, 15, 60, 240]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("FEATURES_BATCH_SIZE", "50")
	t.Setenv("FEATURES_DIGITAL_PAYMENT_METHODS", "Card,Wallet")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "movements", cfg.Table)
	assert.Equal(t, 50, cfg.BatchSize, "env overrides file")
	assert.Equal(t, BaselineVehicle, cfg.AnomalyBaseline)
	assert.Equal(t, []float64{0, 15, 60, 240}, cfg.Boundaries.Duration)
	assert.Equal(t, []float64{0, 2, 5, 10}, cfg.Boundaries.VehicleUsage, "untouched tables keep defaults")
	assert.Equal(t, []string{"Card", "Wallet"}, cfg.DigitalPaymentMethods)
	assert.Equal(t, 4, cfg.Workers)
}

func TestLoad_NoFile(t *testing.T) {
	t.Setenv("FEATURES_BOUNDARIES_VISIT_FREQUENCY", "0,2,14,60")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 2, 14, 60}, cfg.Boundaries.VisitFrequency)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }},
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"negative threshold", func(c *Config) { c.AnomalyThreshold = -1 }},
		{"unknown baseline", func(c *Config) { c.AnomalyBaseline = "site" }},
		{"unknown layout", func(c *Config) { c.Layout = "csv" }},
		{"empty table", func(c *Config) { c.Table = "" }},
		{"no digital methods", func(c *Config) { c.DigitalPaymentMethods = nil }},
		{"unsorted edges", func(c *Config) { c.Boundaries.Duration = []float64{0, 120, 30} }},
		{"duplicate edges", func(c *Config) { c.Boundaries.OrganizationSize = []float64{0, 50, 50} }},
		{"single edge", func(c *Config) { c.Boundaries.VehicleRevenue = []float64{0} }},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Validate() = nil, want error")
			}
		})
	}
}

func TestLocation(t *testing.T) {
	cfg := Default()
	cfg.Timezone = "Africa/Nairobi"
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Africa/Nairobi", loc.String())
}

func TestLoad_IgnoresUnprefixedVariables(t *testing.T) {
	t.Setenv("TABLE", "other")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("BATCH_SIZE", "7")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "parking_records", cfg.Table)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 1000, cfg.BatchSize)
}

func TestLoad_EmptyVariableOverrides(t *testing.T) {
	t.Setenv("FEATURES_CLICKHOUSE_DSN", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "features.yaml")
	require.NoError(t, os.WriteFile(path, []byte("clickhouse_dsn: clickhouse://localhost:9000/default\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.ClickhouseDSN)
}

func TestConfig_NoTagDefaults(t *testing.T) {
	var walk func(reflect.Type)
	walk = func(typ reflect.Type) {
		for i := 0; i < typ.NumField(); i++ {
			f := typ.Field(i)
			if _, ok := f.Tag.Lookup("default"); ok {
				t.Errorf("%s.%s has a default tag; defaults belong in Default()", typ.Name(), f.Name)
			}
			if f.Type.Kind() == reflect.Struct {
				walk(f.Type)
			}
		}
	}
	walk(reflect.TypeOf(Config{}))
}
