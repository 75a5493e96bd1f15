package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/premo/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
	Data        DataConfig        `yaml:"data" mapstructure:"data"`
	Variables   []VariableConfig  `yaml:"variables" mapstructure:"variables"`
	Model       ModelConfig       `yaml:"model" mapstructure:"model"`
	Postprocess PostprocessConfig `yaml:"postprocess" mapstructure:"postprocess"`
	Ledger      LedgerConfig      `yaml:"ledger" mapstructure:"ledger"`
	Sweep       SweepOptions      `yaml:"sweep" mapstructure:"sweep"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DataConfig locates the input rasters, buffers and output tree.
type DataConfig struct {
	WorkingDir    string `yaml:"working_dir" mapstructure:"working_dir"`
	RasterDir     string `yaml:"raster_dir" mapstructure:"raster_dir"`
	BufferDir     string `yaml:"buffer_dir" mapstructure:"buffer_dir"`
	BufferPattern string `yaml:"buffer_pattern" mapstructure:"buffer_pattern"`
	MaskPath      string `yaml:"mask_path" mapstructure:"mask_path"`
}

// VariableConfig declares one predictor raster. Category may be empty in
// older configs, in which case the name prefix decides.
type VariableConfig struct {
	Name     string `yaml:"name" mapstructure:"name"`
	Path     string `yaml:"path" mapstructure:"path"`
	Category string `yaml:"category" mapstructure:"category"`
}

// ModelConfig holds the model constants shared by every configuration.
type ModelConfig struct {
	CombinedDistanceExempt  string    `yaml:"combined_distance_exempt" mapstructure:"combined_distance_exempt"`
	ValidationRadius        float64   `yaml:"validation_radius" mapstructure:"validation_radius"`
	GoodPredictionThreshold float64   `yaml:"good_prediction_threshold" mapstructure:"good_prediction_threshold"`
	GainThresholds          []float64 `yaml:"gain_thresholds" mapstructure:"gain_thresholds"`
	NoData                  float64   `yaml:"nodata" mapstructure:"nodata"`
}

// PostprocessConfig configures resampling and cropping of the suitability grid.
type PostprocessConfig struct {
	Enabled          bool   `yaml:"enabled" mapstructure:"enabled"`
	GDALWarpPath     string `yaml:"gdalwarp_path" mapstructure:"gdalwarp_path"`
	KeepIntermediate bool   `yaml:"keep_intermediate" mapstructure:"keep_intermediate"`
}

// LedgerConfig configures the run ledger backend.
type LedgerConfig struct {
	Driver        string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL   string `yaml:"database_url" mapstructure:"database_url"`
	RetryAttempts int    `yaml:"retry_attempts" mapstructure:"retry_attempts"`
}

// SweepOptions locates the sweep definition and bounds its concurrency.
type SweepOptions struct {
	File        string `yaml:"file" mapstructure:"file"`
	Concurrency int    `yaml:"concurrency" mapstructure:"concurrency"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PREMO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("data.working_dir", ".")
	v.SetDefault("data.raster_dir", "data")
	v.SetDefault("data.buffer_dir", "data/buffered_sites")
	v.SetDefault("data.buffer_pattern", "%s_m_sites.shp")
	v.SetDefault("data.mask_path", "")
	v.SetDefault("model.combined_distance_exempt", "c_slop+asp")
	v.SetDefault("model.validation_radius", 5.0)
	v.SetDefault("model.good_prediction_threshold", 0.5)
	v.SetDefault("model.gain_thresholds", []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.75, 0.8, 0.9})
	v.SetDefault("model.nodata", -9999.0)
	v.SetDefault("postprocess.enabled", false)
	v.SetDefault("postprocess.gdalwarp_path", "gdalwarp")
	v.SetDefault("postprocess.keep_intermediate", false)
	v.SetDefault("ledger.driver", "sqlite")
	v.SetDefault("ledger.database_url", "premo.db")
	v.SetDefault("ledger.retry_attempts", 5)
	v.SetDefault("sweep.file", "sweep.yaml")
	v.SetDefault("sweep.concurrency", 1)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Paths builds the path resolver for the configured data layout.
func (c *Config) Paths() model.Paths {
	return model.Paths{
		WorkingDir:    c.Data.WorkingDir,
		RasterDir:     c.Data.RasterDir,
		BufferDir:     c.Data.BufferDir,
		BufferPattern: c.Data.BufferPattern,
		MaskPath:      c.Data.MaskPath,
	}
}

// VariableSet converts the configured variables. A variable without a
// category falls back to the legacy name prefix rule.
func (c *Config) VariableSet() (model.VariableSet, error) {
	set := make(model.VariableSet, 0, len(c.Variables))
	seen := make(map[string]bool, len(c.Variables))
	for _, vc := range c.Variables {
		if vc.Name == "" {
			return nil, &model.ConfigError{Field: "variables", Err: eris.New("variable without name")}
		}
		if seen[vc.Name] {
			return nil, &model.ConfigError{Field: "variables", Err: eris.Errorf("duplicate variable %q", vc.Name)}
		}
		seen[vc.Name] = true

		var category model.Category
		if vc.Category == "" {
			category = model.LegacyCategory(vc.Name)
			zap.L().Warn("config: variable has no category, using name prefix",
				zap.String("variable", vc.Name),
				zap.String("category", string(category)),
			)
		} else {
			parsed, err := model.ParseCategory(vc.Category)
			if err != nil {
				return nil, &model.ConfigError{Field: "variables." + vc.Name + ".category", Err: err}
			}
			category = parsed
		}

		path := vc.Path
		if path == "" {
			path = vc.Name + ".asc"
		}
		set = append(set, model.PredictorVariable{Name: vc.Name, Path: path, Category: category})
	}
	return set, nil
}

// Validate checks that required config fields are present for the given mode.
// Modes: "run", "sweep", "ledger".
func (c *Config) Validate(mode string) error {
	var errs []string

	checkLedger := func() {
		switch strings.ToLower(c.Ledger.Driver) {
		case "", "sqlite":
		case "postgres", "postgresql":
			if c.Ledger.DatabaseURL == "" {
				errs = append(errs, "ledger.database_url is required for postgres")
			}
		default:
			errs = append(errs, "ledger.driver must be sqlite or postgres")
		}
	}
	checkModel := func() {
		if len(c.Variables) == 0 {
			errs = append(errs, "variables must not be empty")
		}
		if c.Model.ValidationRadius <= 0 {
			errs = append(errs, "model.validation_radius must be > 0")
		}
		if c.Model.GoodPredictionThreshold < 0 || c.Model.GoodPredictionThreshold > 1 {
			errs = append(errs, "model.good_prediction_threshold must be between 0 and 1")
		}
		if len(c.Model.GainThresholds) == 0 {
			errs = append(errs, "model.gain_thresholds must not be empty")
		}
		if c.Postprocess.Enabled && c.Postprocess.GDALWarpPath == "" {
			errs = append(errs, "postprocess.gdalwarp_path is required when postprocess is enabled")
		}
	}

	switch mode {
	case "run":
		checkModel()
		checkLedger()
	case "sweep":
		checkModel()
		checkLedger()
		if c.Sweep.Concurrency < 1 || c.Sweep.Concurrency > 64 {
			errs = append(errs, "sweep.concurrency must be between 1 and 64")
		}
	case "ledger":
		checkLedger()
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
