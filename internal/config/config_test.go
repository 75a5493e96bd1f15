package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/premo/internal/model"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, ".", cfg.Data.WorkingDir)
	assert.Equal(t, "data", cfg.Data.RasterDir)
	assert.Equal(t, "data/buffered_sites", cfg.Data.BufferDir)
	assert.Equal(t, "%s_m_sites.shp", cfg.Data.BufferPattern)
	assert.Equal(t, "c_slop+asp", cfg.Model.CombinedDistanceExempt)
	assert.InDelta(t, 5.0, cfg.Model.ValidationRadius, 0.001)
	assert.InDelta(t, 0.5, cfg.Model.GoodPredictionThreshold, 0.001)
	assert.Equal(t, []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.75, 0.8, 0.9}, cfg.Model.GainThresholds)
	assert.InDelta(t, -9999.0, cfg.Model.NoData, 0.001)
	assert.False(t, cfg.Postprocess.Enabled)
	assert.Equal(t, "gdalwarp", cfg.Postprocess.GDALWarpPath)
	assert.Equal(t, "sqlite", cfg.Ledger.Driver)
	assert.Equal(t, "premo.db", cfg.Ledger.DatabaseURL)
	assert.Equal(t, 5, cfg.Ledger.RetryAttempts)
	assert.Equal(t, "sweep.yaml", cfg.Sweep.File)
	assert.Equal(t, 1, cfg.Sweep.Concurrency)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
  format: console
data:
  raster_dir: rasters
variables:
  - name: slope
    path: slope.asc
    category: topography
  - name: c_river
    category: distance
postprocess:
  enabled: true
  keep_intermediate: true
ledger:
  driver: postgres
  database_url: postgres://localhost/premo
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "rasters", cfg.Data.RasterDir)
	require.Len(t, cfg.Variables, 2)
	assert.Equal(t, "slope", cfg.Variables[0].Name)
	assert.Equal(t, "distance", cfg.Variables[1].Category)
	assert.True(t, cfg.Postprocess.Enabled)
	assert.True(t, cfg.Postprocess.KeepIntermediate)
	assert.Equal(t, "postgres", cfg.Ledger.Driver)
	// Defaults still apply for unset values
	assert.Equal(t, "data/buffered_sites", cfg.Data.BufferDir)
	assert.InDelta(t, 5.0, cfg.Model.ValidationRadius, 0.001)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
ledger:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("PREMO_LEDGER_DRIVER", "postgres")
	t.Setenv("PREMO_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Ledger.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("PREMO_SWEEP_CONCURRENCY", "4")
	t.Setenv("PREMO_MODEL_VALIDATION_RADIUS", "10")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Sweep.Concurrency)
	assert.InDelta(t, 10.0, cfg.Model.ValidationRadius, 0.001)
}

func TestLoadBadYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log: [unclosed"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func TestPaths(t *testing.T) {
	cfg := &Config{Data: DataConfig{WorkingDir: "/work", RasterDir: "data", BufferDir: "buf", BufferPattern: "%s_m_sites.shp", MaskPath: "mask.shp"}}
	p := cfg.Paths()
	assert.Equal(t, "/work/buf/50_m_sites.shp", p.Buffers("50"))
	assert.Equal(t, "/work/mask.shp", p.Mask())
}

func TestVariableSet(t *testing.T) {
	cfg := &Config{Variables: []VariableConfig{
		{Name: "slope", Path: "slope.asc", Category: "topography"},
		{Name: "c_river", Category: "Distance"},
		{Name: "e_roads"},
		{Name: "aspect"},
	}}

	set, err := cfg.VariableSet()
	require.NoError(t, err)
	require.Len(t, set, 4)
	assert.Equal(t, []string{"slope", "c_river", "e_roads", "aspect"}, set.Names())
	assert.Equal(t, model.CategoryDistance, set[1].Category)
	assert.Equal(t, "c_river.asc", set[1].Path)
	assert.Equal(t, model.CategoryDistance, set[2].Category)
	assert.Equal(t, model.CategoryTopography, set[3].Category)
}

func TestVariableSet_Errors(t *testing.T) {
	tests := []struct {
		name string
		vars []VariableConfig
	}{
		{"missing name", []VariableConfig{{Path: "x.asc"}}},
		{"duplicate", []VariableConfig{{Name: "slope"}, {Name: "slope"}}},
		{"bad category", []VariableConfig{{Name: "slope", Category: "hydrology"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Variables: tt.vars}
			_, err := cfg.VariableSet()
			require.Error(t, err)
			assert.True(t, model.IsConfigError(err))
		})
	}
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Variables = []VariableConfig{{Name: "slope", Category: "topography"}}
	cfg.Model.ValidationRadius = 5
	cfg.Model.GoodPredictionThreshold = 0.5
	cfg.Model.GainThresholds = []float64{0.5}
	cfg.Ledger.Driver = "sqlite"
	cfg.Sweep.Concurrency = 1
	return cfg
}

func TestValidateRun_Valid(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("run"))
}

func TestValidateRun_Missing(t *testing.T) {
	cfg := validDefaults()
	cfg.Variables = nil
	cfg.Model.ValidationRadius = 0
	cfg.Model.GainThresholds = nil

	err := cfg.Validate("run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "variables must not be empty")
	assert.Contains(t, err.Error(), "model.validation_radius must be > 0")
	assert.Contains(t, err.Error(), "model.gain_thresholds must not be empty")
}

func TestValidateGoodThresholdBounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Model.GoodPredictionThreshold = 1.5
	err := cfg.Validate("run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "good_prediction_threshold")
}

func TestValidatePostprocess(t *testing.T) {
	cfg := validDefaults()
	cfg.Postprocess.Enabled = true
	err := cfg.Validate("run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gdalwarp_path")

	cfg.Postprocess.GDALWarpPath = "gdalwarp"
	assert.NoError(t, cfg.Validate("run"))
}

func TestValidateLedger(t *testing.T) {
	cfg := validDefaults()
	cfg.Ledger.Driver = "postgres"
	err := cfg.Validate("ledger")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger.database_url is required")

	cfg.Ledger.DatabaseURL = "postgres://localhost/premo"
	assert.NoError(t, cfg.Validate("ledger"))

	cfg.Ledger.Driver = "mysql"
	err = cfg.Validate("ledger")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger.driver")
}

func TestValidateSweepConcurrency(t *testing.T) {
	cfg := validDefaults()

	cfg.Sweep.Concurrency = 0
	err := cfg.Validate("sweep")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sweep.concurrency must be between 1 and 64")

	cfg.Sweep.Concurrency = 65
	assert.Error(t, cfg.Validate("sweep"))

	cfg.Sweep.Concurrency = 8
	assert.NoError(t, cfg.Validate("sweep"))
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
