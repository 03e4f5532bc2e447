package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config is the complete application configuration. Values load from the
// environment (DP_ prefix) first, then an optional YAML file overrides
// unset fields.
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Pipeline  PipelineConfig  `yaml:"pipeline" envconfig:"PIPELINE"`
	RateLimit RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration for the serving layer.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/districtpulse.log"`
}

// PathsConfig contains file system path configuration.
type PathsConfig struct {
	DataDir string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	LogsDir string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// PipelineConfig controls snapshot-run execution.
type PipelineConfig struct {
	// MaxConcurrency bounds parallel per-district analytics.
	MaxConcurrency int           `yaml:"max_concurrency" envconfig:"MAX_CONCURRENCY" default:"4"`
	RunTimeout     time.Duration `yaml:"run_timeout" envconfig:"RUN_TIMEOUT" default:"30m"`
	// DCPCheckpointGoals is the goals-met pace a club must hold to count
	// as on track for the in-year checkpoint.
	DCPCheckpointGoals int `yaml:"dcp_checkpoint_goals" envconfig:"DCP_CHECKPOINT_GOALS" default:"3"`
}

// RateLimitConfig contains API rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50"`
}

// TelemetryConfig controls OpenTelemetry setup.
type TelemetryConfig struct {
	EnableTracing  bool   `yaml:"enable_tracing" envconfig:"ENABLE_TRACING" default:"false"`
	EnableMetrics  bool   `yaml:"enable_metrics" envconfig:"ENABLE_METRICS" default:"true"`
	TraceExporter  string `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" default:"stdout"`
	MetricExporter string `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER" default:"prometheus"`
}

// Load loads configuration from environment variables, then merges an
// optional YAML file named by DP_CONFIG_FILE (or config.yaml beside the
// data dir).
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("DP", &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	configFile := os.Getenv("DP_CONFIG_FILE")
	if configFile == "" {
		configFile = "config.yaml"
	}
	if _, err := os.Stat(configFile); err == nil {
		fileCfg, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileCfg, cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// mergeConfigs overlays file values on the env-derived config. A field
// only yields to the file when its environment variable is not actually
// set; envconfig default values are indistinguishable from env-set ones
// in the struct, so presence is checked against the environment itself.
func mergeConfigs(file, env Config) Config {
	merged := env
	if file.Server.Port != 0 && !envSet("DP_SERVER_PORT") {
		merged.Server.Port = file.Server.Port
	}
	if file.Server.ReadTimeout != 0 && !envSet("DP_SERVER_READ_TIMEOUT") {
		merged.Server.ReadTimeout = file.Server.ReadTimeout
	}
	if file.Server.WriteTimeout != 0 && !envSet("DP_SERVER_WRITE_TIMEOUT") {
		merged.Server.WriteTimeout = file.Server.WriteTimeout
	}
	if file.Server.IdleTimeout != 0 && !envSet("DP_SERVER_IDLE_TIMEOUT") {
		merged.Server.IdleTimeout = file.Server.IdleTimeout
	}
	if file.Server.ShutdownTimeout != 0 && !envSet("DP_SERVER_SHUTDOWN_TIMEOUT") {
		merged.Server.ShutdownTimeout = file.Server.ShutdownTimeout
	}
	if file.Logging.Level != "" && !envSet("DP_LOGGING_LEVEL") {
		merged.Logging.Level = file.Logging.Level
	}
	if file.Logging.Format != "" && !envSet("DP_LOGGING_FORMAT") {
		merged.Logging.Format = file.Logging.Format
	}
	if file.Logging.Output != "" && !envSet("DP_LOGGING_OUTPUT") {
		merged.Logging.Output = file.Logging.Output
	}
	if file.Logging.FilePath != "" && !envSet("DP_LOGGING_FILE_PATH") {
		merged.Logging.FilePath = file.Logging.FilePath
	}
	if file.Paths.DataDir != "" && !envSet("DP_PATHS_DATA_DIR") {
		merged.Paths.DataDir = file.Paths.DataDir
	}
	if file.Paths.LogsDir != "" && !envSet("DP_PATHS_LOGS_DIR") {
		merged.Paths.LogsDir = file.Paths.LogsDir
	}
	if file.Pipeline.MaxConcurrency != 0 && !envSet("DP_PIPELINE_MAX_CONCURRENCY") {
		merged.Pipeline.MaxConcurrency = file.Pipeline.MaxConcurrency
	}
	if file.Pipeline.RunTimeout != 0 && !envSet("DP_PIPELINE_RUN_TIMEOUT") {
		merged.Pipeline.RunTimeout = file.Pipeline.RunTimeout
	}
	if file.Pipeline.DCPCheckpointGoals != 0 && !envSet("DP_PIPELINE_DCP_CHECKPOINT_GOALS") {
		merged.Pipeline.DCPCheckpointGoals = file.Pipeline.DCPCheckpointGoals
	}
	if file.RateLimit.RPS != 0 && !envSet("DP_RATE_LIMIT_RPS") {
		merged.RateLimit.RPS = file.RateLimit.RPS
	}
	if file.RateLimit.Burst != 0 && !envSet("DP_RATE_LIMIT_BURST") {
		merged.RateLimit.Burst = file.RateLimit.Burst
	}
	return merged
}

func envSet(key string) bool {
	_, ok := os.LookupEnv(key)
	return ok
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if c.Pipeline.MaxConcurrency < 1 {
		return fmt.Errorf("pipeline max_concurrency must be positive, got %d", c.Pipeline.MaxConcurrency)
	}
	if c.Pipeline.DCPCheckpointGoals < 0 || c.Pipeline.DCPCheckpointGoals > 10 {
		return fmt.Errorf("dcp_checkpoint_goals out of range: %d", c.Pipeline.DCPCheckpointGoals)
	}
	return nil
}
