package config

import (
	"fmt"
	"strings"
	"time"

	coreagg "github.com/aevon-lab/collate/internal/core/aggregation"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// envPrefix scopes environment overrides: COLLATE_SERVER__PORT=9090 sets server.port.
const envPrefix = "COLLATE_"

// Config represents the top-level application config plus the loaded plan catalog.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Plans     PlansConfig     `koanf:"plans"`
	Execution ExecutionConfig `koanf:"execution"`

	// PlanLoading is populated by Load after parsing plan files.
	PlanLoading PlanLoadingConfig `koanf:"-"`
}

type ServerConfig struct {
	Port int    `koanf:"port"`
	Host string `koanf:"host"`
	Mode string `koanf:"mode"` // debug | release
}

type DatabaseConfig struct {
	Type         string `koanf:"type"`
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
}

type PlansConfig struct {
	Dir          string `koanf:"dir"`
	RequirePlans bool   `koanf:"require_plans"`
}

type ExecutionConfig struct {
	Enabled          bool   `koanf:"enabled"`
	WorkerCount      int    `koanf:"worker_count"`
	RefreshInterval  string `koanf:"refresh_interval"`  // empty disables the scheduler
	StatementTimeout string `koanf:"statement_timeout"` // empty means no timeout
}

type PlanLoadingConfig struct {
	Dir   string
	Plans *coreagg.FileSystemPlanRepository
}

// RefreshIntervalDuration parses refresh_interval; zero means disabled.
func (c ExecutionConfig) RefreshIntervalDuration() (time.Duration, error) {
	return optionalDuration(c.RefreshInterval)
}

// StatementTimeoutDuration parses statement_timeout; zero means no timeout.
func (c ExecutionConfig) StatementTimeoutDuration() (time.Duration, error) {
	return optionalDuration(c.StatementTimeout)
}

func optionalDuration(s string) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}

	if c.Database.Type != "" && c.Database.Type != "postgres" {
		return fmt.Errorf("unsupported database.type %q", c.Database.Type)
	}
	if c.Execution.Enabled {
		if strings.TrimSpace(c.Database.DSN) == "" {
			return fmt.Errorf("database.dsn is required when execution is enabled")
		}
		if c.Database.MaxOpenConns <= 0 {
			return fmt.Errorf("database.max_open_conns must be > 0")
		}
		if c.Database.MaxIdleConns <= 0 {
			return fmt.Errorf("database.max_idle_conns must be > 0")
		}
	}

	if strings.TrimSpace(c.Plans.Dir) == "" {
		return fmt.Errorf("plans.dir is required")
	}

	if c.Execution.WorkerCount <= 0 {
		return fmt.Errorf("execution.worker_count must be > 0")
	}
	interval, err := c.Execution.RefreshIntervalDuration()
	if err != nil {
		return fmt.Errorf("invalid execution.refresh_interval %q: %w", c.Execution.RefreshInterval, err)
	}
	if interval < 0 {
		return fmt.Errorf("execution.refresh_interval must be >= 0")
	}
	if interval > 0 && !c.Execution.Enabled {
		return fmt.Errorf("execution.refresh_interval requires execution.enabled")
	}
	timeout, err := c.Execution.StatementTimeoutDuration()
	if err != nil {
		return fmt.Errorf("invalid execution.statement_timeout %q: %w", c.Execution.StatementTimeout, err)
	}
	if timeout < 0 {
		return fmt.Errorf("execution.statement_timeout must be >= 0")
	}

	return nil
}

// Load parses config from file + env, validates it, then loads and validates the plan catalog.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":                 8080,
		"server.host":                 "0.0.0.0",
		"server.mode":                 "release",
		"database.type":               "postgres",
		"database.dsn":                "",
		"database.max_open_conns":     10,
		"database.max_idle_conns":     10,
		"plans.dir":                   "./plans",
		"plans.require_plans":         true,
		"execution.enabled":           false,
		"execution.worker_count":      4,
		"execution.refresh_interval":  "",
		"execution.statement_timeout": "",
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	repo, err := coreagg.NewFileSystemPlanRepository(cfg.Plans.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load aggregation plans: %w", err)
	}
	if cfg.Plans.RequirePlans && len(repo.Plans()) == 0 {
		return nil, fmt.Errorf("no aggregation plans found in %q", cfg.Plans.Dir)
	}

	cfg.PlanLoading = PlanLoadingConfig{
		Dir:   cfg.Plans.Dir,
		Plans: repo,
	}

	return &cfg, nil
}
