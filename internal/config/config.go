package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/fair-rent/internal/pricing"
)

const (
	defaultPort               = "8080"
	defaultRateLimitRPS       = 25.0
	defaultRateLimitBurst     = 50
	defaultSolverTimeout      = 10 * time.Second
	defaultSolverMaxNodes     = 20000
	defaultSolverTolerance    = 1e-10
	defaultMaxDescentRounds   = 1000
	defaultMaxStoredDivisions = 1000
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > Defaults
type Config struct {
	Port                 string
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	RateLimitRPS         float64
	RateLimitBurst       int
	LogLevel             string
	DefaultMethod        pricing.Method
	SolverTimeout        time.Duration
	SolverMaxNodes       int
	SolverTolerance      float64
	MaxDescentRounds     int
	MaxStoredDivisions   int
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	Port                 string        `yaml:"port"`
	ShutdownGracePeriod  string        `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string        `yaml:"read_header_timeout"`
	WriteTimeout         string        `yaml:"write_timeout"`
	IdleTimeout          string        `yaml:"idle_timeout"`
	EnableRequestLogging *bool         `yaml:"enable_request_logging"`
	RateLimit            yamlRateLimit `yaml:"rate_limit"`
	LogLevel             string        `yaml:"log_level"`
	DefaultMethod        string        `yaml:"default_method"`
	Solver               yamlSolver    `yaml:"solver"`
	MaxDescentRounds     int           `yaml:"max_descent_rounds"`
	MaxStoredDivisions   int           `yaml:"max_stored_divisions"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   *float64 `yaml:"rps"`
	Burst *int     `yaml:"burst"`
}

// yamlSolver represents the solver section in YAML.
type yamlSolver struct {
	Timeout   string  `yaml:"timeout"`
	MaxNodes  int     `yaml:"max_nodes"`
	Tolerance float64 `yaml:"tolerance"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	Port           *string
	RateLimitRPS   *float64
	RateLimitBurst *int
	LogLevel       *string
	DefaultMethod  *string
	SolverTimeout  *time.Duration
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML config > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	// Apply environment variables
	if err := applyEnvConfig(&cfg); err != nil {
		return Config{}, err
	}

	// Load from YAML file if specified (overrides env)
	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		if err := applyYAMLConfig(&cfg, yamlCfg); err != nil {
			return Config{}, fmt.Errorf("apply YAML config: %w", err)
		}
	}

	// Apply CLI overrides (highest precedence)
	if overrides != nil {
		if err := applyCLIOverrides(&cfg, overrides); err != nil {
			return Config{}, err
		}
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		Port:                 defaultPort,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         30 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
		LogLevel:             "info",
		DefaultMethod:        pricing.SungVlachMethod,
		SolverTimeout:        defaultSolverTimeout,
		SolverMaxNodes:       defaultSolverMaxNodes,
		SolverTolerance:      defaultSolverTolerance,
		MaxDescentRounds:     defaultMaxDescentRounds,
		MaxStoredDivisions:   defaultMaxStoredDivisions,
	}
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct. Unset
// fields keep their current value.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) error {
	if yamlCfg.Port != "" {
		cfg.Port = yamlCfg.Port
	}

	durations := []struct {
		raw  string
		name string
		dst  *time.Duration
	}{
		{yamlCfg.ShutdownGracePeriod, "shutdown_grace_period", &cfg.ShutdownGracePeriod},
		{yamlCfg.ReadHeaderTimeout, "read_header_timeout", &cfg.ReadHeaderTimeout},
		{yamlCfg.WriteTimeout, "write_timeout", &cfg.WriteTimeout},
		{yamlCfg.IdleTimeout, "idle_timeout", &cfg.IdleTimeout},
		{yamlCfg.Solver.Timeout, "solver.timeout", &cfg.SolverTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		value, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = value
	}

	if yamlCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.EnableRequestLogging
	}
	if yamlCfg.RateLimit.RPS != nil {
		cfg.RateLimitRPS = *yamlCfg.RateLimit.RPS
	}
	if yamlCfg.RateLimit.Burst != nil {
		cfg.RateLimitBurst = *yamlCfg.RateLimit.Burst
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	if yamlCfg.DefaultMethod != "" {
		method, err := pricing.ParseMethod(yamlCfg.DefaultMethod)
		if err != nil {
			return err
		}
		cfg.DefaultMethod = method
	}
	if yamlCfg.Solver.MaxNodes > 0 {
		cfg.SolverMaxNodes = yamlCfg.Solver.MaxNodes
	}
	if yamlCfg.Solver.Tolerance > 0 {
		cfg.SolverTolerance = yamlCfg.Solver.Tolerance
	}
	if yamlCfg.MaxDescentRounds > 0 {
		cfg.MaxDescentRounds = yamlCfg.MaxDescentRounds
	}
	if yamlCfg.MaxStoredDivisions > 0 {
		cfg.MaxStoredDivisions = yamlCfg.MaxStoredDivisions
	}
	return nil
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config) error {
	if port := env("PORT"); port != "" {
		cfg.Port = port
	}

	if rps := env("RATE_LIMIT_RPS"); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}

	if burst := env("RATE_LIMIT_BURST"); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}

	if level := env("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	if raw := env("DEFAULT_METHOD"); raw != "" {
		method, err := pricing.ParseMethod(raw)
		if err != nil {
			return fmt.Errorf("DEFAULT_METHOD: %w", err)
		}
		cfg.DefaultMethod = method
	}

	if raw := env("SOLVER_TIMEOUT"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			cfg.SolverTimeout = d
		}
	}

	if raw := env("SOLVER_MAX_NODES"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.SolverMaxNodes = value
		}
	}

	if raw := env("MAX_DESCENT_ROUNDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.MaxDescentRounds = value
		}
	}

	if raw := env("MAX_STORED_DIVISIONS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.MaxStoredDivisions = value
		}
	}
	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) error {
	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}

	if overrides.LogLevel != nil && *overrides.LogLevel != "" {
		cfg.LogLevel = *overrides.LogLevel
	}

	if overrides.DefaultMethod != nil && *overrides.DefaultMethod != "" {
		method, err := pricing.ParseMethod(*overrides.DefaultMethod)
		if err != nil {
			return fmt.Errorf("parse default method: %w", err)
		}
		cfg.DefaultMethod = method
	}

	if overrides.SolverTimeout != nil && *overrides.SolverTimeout > 0 {
		cfg.SolverTimeout = *overrides.SolverTimeout
	}

	return nil
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	if _, err := zapcore.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q", cfg.LogLevel)
	}
	if cfg.SolverTimeout <= 0 {
		return fmt.Errorf("solver timeout must be positive")
	}
	if cfg.SolverTolerance <= 0 || cfg.SolverTolerance >= 1 {
		return fmt.Errorf("solver tolerance must be in (0, 1), got %g", cfg.SolverTolerance)
	}
	return nil
}
