package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Data     DataConfig     `yaml:"data" mapstructure:"data"`
	Geometry GeometryConfig `yaml:"geometry" mapstructure:"geometry"`
	Classify ClassifyConfig `yaml:"classify" mapstructure:"classify"`
	View     ViewConfig     `yaml:"view" mapstructure:"view"`
	Playback PlaybackConfig `yaml:"playback" mapstructure:"playback"`
	Fetch    FetchConfig    `yaml:"fetch" mapstructure:"fetch"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// DataConfig locates the crop statistics dataset.
type DataConfig struct {
	Source   string `yaml:"source" mapstructure:"source"`
	Format   string `yaml:"format" mapstructure:"format"`
	Encoding string `yaml:"encoding" mapstructure:"encoding"`
	Sheet    string `yaml:"sheet" mapstructure:"sheet"`
	Member   string `yaml:"member" mapstructure:"member"`
}

// GeometryConfig locates the world map geometry.
type GeometryConfig struct {
	Source       string `yaml:"source" mapstructure:"source"`
	Format       string `yaml:"format" mapstructure:"format"`
	Object       string `yaml:"object" mapstructure:"object"`
	NameProperty string `yaml:"name_property" mapstructure:"name_property"`
	// IDProperty names the feature property holding the numeric code. Empty
	// means the feature's own id.
	IDProperty string `yaml:"id_property" mapstructure:"id_property"`
}

// ClassifyConfig configures area classification.
type ClassifyConfig struct {
	PolicyFile string `yaml:"policy_file" mapstructure:"policy_file"`
	WorldName  string `yaml:"world_name" mapstructure:"world_name"`
}

// ViewConfig holds selection defaults and bounds.
type ViewConfig struct {
	TopN              int    `yaml:"top_n" mapstructure:"top_n"`
	TopNMin           int    `yaml:"top_n_min" mapstructure:"top_n_min"`
	TopNMax           int    `yaml:"top_n_max" mapstructure:"top_n_max"`
	SelectionCapacity int    `yaml:"selection_capacity" mapstructure:"selection_capacity"`
	ResetYear         string `yaml:"reset_year" mapstructure:"reset_year"`
}

// PlaybackConfig configures the year animation.
type PlaybackConfig struct {
	IntervalMs int `yaml:"interval_ms" mapstructure:"interval_ms"`
}

// Interval returns the tick interval.
func (p PlaybackConfig) Interval() time.Duration {
	return time.Duration(p.IntervalMs) * time.Millisecond
}

// FetchConfig configures remote source downloads.
type FetchConfig struct {
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	// RatePerSecond paces requests per host; zero disables pacing.
	RatePerSecond float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
}

// Timeout returns the per-request timeout.
func (f FetchConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSecs) * time.Second
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CROP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Every key is defaulted so AutomaticEnv can see it.
	v.SetDefault("data.source", "")
	v.SetDefault("data.format", "auto")
	v.SetDefault("data.encoding", "utf-8")
	v.SetDefault("data.sheet", "")
	v.SetDefault("data.member", "*.csv")
	v.SetDefault("geometry.source", "")
	v.SetDefault("geometry.format", "auto")
	v.SetDefault("geometry.object", "countries")
	v.SetDefault("geometry.name_property", "name")
	v.SetDefault("geometry.id_property", "")
	v.SetDefault("classify.policy_file", "")
	v.SetDefault("classify.world_name", "World")
	v.SetDefault("view.top_n", 15)
	v.SetDefault("view.top_n_min", 1)
	v.SetDefault("view.top_n_max", 50)
	v.SetDefault("view.selection_capacity", 5)
	v.SetDefault("view.reset_year", "latest")
	v.SetDefault("playback.interval_ms", 800)
	v.SetDefault("fetch.timeout_secs", 60)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.user_agent", "crop-explorer/1.0")
	v.SetDefault("fetch.rate_per_second", 2.0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks the settings a command needs before any data is loaded.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Data.Source) == "" {
		return eris.New("config: data.source is required")
	}
	if strings.TrimSpace(c.Geometry.Source) == "" {
		return eris.New("config: geometry.source is required")
	}
	if c.View.TopNMin < 1 || c.View.TopNMax < c.View.TopNMin {
		return eris.Errorf("config: view.top_n_min/top_n_max must satisfy 1 <= min <= max (got %d, %d)",
			c.View.TopNMin, c.View.TopNMax)
	}
	if c.View.TopN < c.View.TopNMin || c.View.TopN > c.View.TopNMax {
		return eris.Errorf("config: view.top_n must be between %d and %d", c.View.TopNMin, c.View.TopNMax)
	}
	if c.View.SelectionCapacity < 1 {
		return eris.New("config: view.selection_capacity must be > 0")
	}
	if c.Playback.IntervalMs <= 0 {
		return eris.New("config: playback.interval_ms must be > 0")
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
