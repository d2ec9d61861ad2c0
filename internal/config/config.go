// Package config loads portsim settings from defaults, an optional
// portsim.yaml and PORTSIM_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "PORTSIM"

type Config struct {
	DB         DBConfig         `mapstructure:"db"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Events     EventsConfig     `mapstructure:"events"`
	Log        LogConfig        `mapstructure:"log"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type CacheConfig struct {
	TTL  time.Duration `mapstructure:"ttl"`
	Size int           `mapstructure:"size"`
}

type SimulationConfig struct {
	// LatencyBudget is advisory: runs over it are logged, never aborted.
	LatencyBudget time.Duration `mapstructure:"latency_budget"`
}

type EventsConfig struct {
	Buffer int `mapstructure:"buffer"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
}

type MetricsConfig struct {
	// Addr is the listen address for /metrics. Empty disables the endpoint.
	Addr string `mapstructure:"addr"`
}

// DefaultConfig returns the built-in settings. The database lives under
// ~/.portsim unless overridden.
func DefaultConfig() Config {
	dbPath := "portsim.db"
	if home, err := os.UserHomeDir(); err == nil {
		dbPath = filepath.Join(home, ".portsim", "portsim.db")
	}
	return Config{
		DB:         DBConfig{Path: dbPath},
		Cache:      CacheConfig{TTL: time.Hour, Size: 256},
		Simulation: SimulationConfig{LatencyBudget: 5 * time.Second},
		Events:     EventsConfig{Buffer: 64},
		Log:        LogConfig{Level: "info", Format: "text"},
		Tracing:    TracingConfig{ServiceName: "portsim"},
	}
}

// Options adjusts where Load looks for the config file.
type Options struct {
	// File, when set, is read instead of searching for portsim.yaml and
	// must exist.
	File string
	// SearchPaths override the default search path list.
	SearchPaths []string
}

// aliases are short env names accepted alongside the derived
// PORTSIM_<SECTION>_<KEY> form.
var aliases = map[string]string{
	"simulation.latency_budget": envPrefix + "_LATENCY_BUDGET",
}

// Load resolves the configuration.
func Load(opts Options) (Config, error) {
	defaults := DefaultConfig()

	v := viper.New()
	v.SetDefault("db.path", defaults.DB.Path)
	v.SetDefault("cache.ttl", defaults.Cache.TTL)
	v.SetDefault("cache.size", defaults.Cache.Size)
	v.SetDefault("simulation.latency_budget", defaults.Simulation.LatencyBudget)
	v.SetDefault("events.buffer", defaults.Events.Buffer)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)
	v.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	v.SetDefault("tracing.service_name", defaults.Tracing.ServiceName)
	v.SetDefault("metrics.addr", defaults.Metrics.Addr)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, alias := range aliases {
		derived := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, derived, alias); err != nil {
			return Config{}, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	if opts.File != "" {
		v.SetConfigFile(opts.File)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file %s: %w", opts.File, err)
		}
	} else {
		v.SetConfigName("portsim")
		v.SetConfigType("yaml")
		paths := opts.SearchPaths
		if len(paths) == 0 {
			paths = defaultSearchPaths()
		}
		for _, p := range paths {
			v.AddConfigPath(p)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func defaultSearchPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".portsim"))
	}
	return paths
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.DB.Path) == "" {
		problems = append(problems, "db.path must not be empty")
	}
	if c.Cache.TTL <= 0 {
		problems = append(problems, "cache.ttl must be positive")
	}
	if c.Cache.Size < 0 {
		problems = append(problems, "cache.size must not be negative")
	}
	if c.Simulation.LatencyBudget <= 0 {
		problems = append(problems, "simulation.latency_budget must be positive")
	}
	if c.Events.Buffer < 1 {
		problems = append(problems, "events.buffer must be at least 1")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
