package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the daemon configuration
type Config struct {
	DataDir string `mapstructure:"data_dir"`
	APIAddr string `mapstructure:"api_addr"`

	CheckInterval     time.Duration `mapstructure:"check_interval"`
	RunTimeout        time.Duration `mapstructure:"run_timeout"`
	Backoff           time.Duration `mapstructure:"backoff"`
	MaxConcurrentRuns int           `mapstructure:"max_concurrent_runs"`

	TaskWorkers   int           `mapstructure:"task_workers"`
	TaskQueueSize int           `mapstructure:"task_queue_size"`
	TaskTimeout   time.Duration `mapstructure:"task_timeout"`

	Docker DockerConfig `mapstructure:"docker"`
	Images Images       `mapstructure:"images"`
	Log    LogConfig    `mapstructure:"log"`
}

// DockerConfig controls the remote Docker clients
type DockerConfig struct {
	APIVersion string `mapstructure:"api_version"` // empty negotiates
}

// Images are the images used when an infrastructure container has to be created
type Images struct {
	Traefik  string `mapstructure:"traefik"`
	Caddy    string `mapstructure:"caddy"`
	LogDrain string `mapstructure:"log_drain"`
	Sentinel string `mapstructure:"sentinel"`
}

// LogConfig mirrors log.Config
type LogConfig struct {
	Level      string `mapstructure:"level"`
	JSON       bool   `mapstructure:"json"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// SetDefaults registers default values on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "./hostkeeper-data")
	v.SetDefault("api_addr", "127.0.0.1:8480")

	v.SetDefault("check_interval", time.Minute)
	v.SetDefault("run_timeout", 60*time.Second)
	v.SetDefault("backoff", 3*time.Second)
	v.SetDefault("max_concurrent_runs", 16)

	v.SetDefault("task_workers", 4)
	v.SetDefault("task_queue_size", 256)
	v.SetDefault("task_timeout", 2*time.Minute)

	v.SetDefault("images.traefik", "traefik:v3.1")
	v.SetDefault("images.caddy", "lucaslorentz/caddy-docker-proxy:2.8-alpine")
	v.SetDefault("images.log_drain", "fluent/fluent-bit:3.1")
	v.SetDefault("images.sentinel", "ghcr.io/cuemby/hostkeeper-sentinel:latest")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 7)
}

// New returns a viper instance reading hostkeeper.yaml and HOSTKEEPER_* env vars.
// An explicit file path takes precedence over the search path.
func New(file string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("hostkeeper")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/hostkeeper")
	}

	v.SetEnvPrefix("hostkeeper")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the configuration. A missing config file is not an error.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.CheckInterval <= 0 {
		return fmt.Errorf("check_interval must be positive, got %s", c.CheckInterval)
	}
	if c.RunTimeout <= 0 {
		return fmt.Errorf("run_timeout must be positive, got %s", c.RunTimeout)
	}
	if c.Backoff < 0 {
		return fmt.Errorf("backoff must not be negative, got %s", c.Backoff)
	}
	if c.MaxConcurrentRuns < 1 {
		return fmt.Errorf("max_concurrent_runs must be at least 1, got %d", c.MaxConcurrentRuns)
	}
	if c.TaskWorkers < 1 {
		return fmt.Errorf("task_workers must be at least 1, got %d", c.TaskWorkers)
	}
	if c.TaskQueueSize < 1 {
		return fmt.Errorf("task_queue_size must be at least 1, got %d", c.TaskQueueSize)
	}
	return nil
}
