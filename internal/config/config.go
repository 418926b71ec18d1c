// Package config provides Viper-based configuration loading for the simulator.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SimulationConfig holds the defaults applied to every run request.
type SimulationConfig struct {
	Iterations       int `mapstructure:"iterations"`
	Rounds           int `mapstructure:"rounds"`
	EncountersPerDay int `mapstructure:"encounters_per_day"`
	// ShortRestEvery is the number of encounters between short rests; -1 disables them.
	ShortRestEvery int   `mapstructure:"short_rest_every"`
	Seed           int64 `mapstructure:"seed"`
	// Workers bounds concurrent iterations; 0 means one per CPU.
	Workers          int     `mapstructure:"workers"`
	FailureTolerance float64 `mapstructure:"failure_tolerance"`
	// Budget caps the wall-clock time of a run; 0 means unlimited.
	Budget         time.Duration `mapstructure:"budget"`
	CarryHP        bool          `mapstructure:"carry_hp"`
	TieBreak       string        `mapstructure:"tie_break"`
	CancelPolicy   string        `mapstructure:"cancel_policy"`
	CritMultiplier int           `mapstructure:"crit_multiplier"`
}

// ContentConfig locates the YAML and Lua content directories.
type ContentConfig struct {
	// Creatures is the directory of character and monster definitions.
	Creatures string `mapstructure:"creatures"`
	// Conditions is a directory of extra condition definitions; empty uses only the built-ins.
	Conditions string `mapstructure:"conditions"`
	// Scripts is a directory of Lua ability scripts; empty loads none.
	Scripts string `mapstructure:"scripts"`
	// InstructionLimit bounds the VM instructions of one script hook call.
	InstructionLimit int `mapstructure:"instruction_limit"`
}

// DatabaseConfig holds PostgreSQL connection settings for the report store.
type DatabaseConfig struct {
	// Enabled turns on report persistence.
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// RedisConfig holds report cache settings.
type RedisConfig struct {
	// Enabled turns on the report cache.
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// TTL is how long a cached report lives; 0 keeps it until evicted.
	TTL time.Duration `mapstructure:"ttl"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	Simulation SimulationConfig `mapstructure:"simulation"`
	Content    ContentConfig    `mapstructure:"content"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string
	for _, err := range []error{
		validateSimulation(c.Simulation),
		validateContent(c.Content),
		validateDatabase(c.Database),
		validateRedis(c.Redis),
		validateLogging(c.Logging),
	} {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateSimulation(s SimulationConfig) error {
	var errs []string
	if s.Iterations < 1 || s.Iterations > 10000 {
		errs = append(errs, fmt.Sprintf("simulation.iterations must be 1-10000, got %d", s.Iterations))
	}
	if s.Rounds < 1 {
		errs = append(errs, fmt.Sprintf("simulation.rounds must be >= 1, got %d", s.Rounds))
	}
	if s.EncountersPerDay < 1 {
		errs = append(errs, fmt.Sprintf("simulation.encounters_per_day must be >= 1, got %d", s.EncountersPerDay))
	}
	if s.ShortRestEvery < 1 && s.ShortRestEvery != -1 {
		errs = append(errs, fmt.Sprintf("simulation.short_rest_every must be >= 1 or -1, got %d", s.ShortRestEvery))
	}
	if s.Workers < 0 {
		errs = append(errs, fmt.Sprintf("simulation.workers must be >= 0, got %d", s.Workers))
	}
	if s.FailureTolerance < 0 || s.FailureTolerance > 1 {
		errs = append(errs, fmt.Sprintf("simulation.failure_tolerance must be 0-1, got %g", s.FailureTolerance))
	}
	if s.Budget < 0 {
		errs = append(errs, "simulation.budget must not be negative")
	}
	validTieBreaks := map[string]bool{"modifier": true, "insertion": true}
	if !validTieBreaks[s.TieBreak] {
		errs = append(errs, fmt.Sprintf("simulation.tie_break must be one of [modifier, insertion], got %q", s.TieBreak))
	}
	validPolicies := map[string]bool{"cancel": true, "advantage": true, "disadvantage": true}
	if !validPolicies[s.CancelPolicy] {
		errs = append(errs, fmt.Sprintf("simulation.cancel_policy must be one of [cancel, advantage, disadvantage], got %q", s.CancelPolicy))
	}
	if s.CritMultiplier < 1 {
		errs = append(errs, fmt.Sprintf("simulation.crit_multiplier must be >= 1, got %d", s.CritMultiplier))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateContent(c ContentConfig) error {
	var errs []string
	if c.Creatures == "" {
		errs = append(errs, "content.creatures must not be empty")
	}
	if c.InstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("content.instruction_limit must be >= 0, got %d", c.InstructionLimit))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	if !d.Enabled {
		return nil
	}
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateRedis(r RedisConfig) error {
	if !r.Enabled {
		return nil
	}
	var errs []string
	if r.Addr == "" {
		errs = append(errs, "redis.addr must not be empty")
	}
	if r.DB < 0 {
		errs = append(errs, fmt.Sprintf("redis.db must be >= 0, got %d", r.DB))
	}
	if r.TTL < 0 {
		errs = append(errs, "redis.ttl must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// ErrNoConfigFile is wrapped by Load when path names a missing file.
var ErrNoConfigFile = errors.New("config file not found")

// New returns a Viper instance with defaults and DPR_ environment overrides
// applied. Callers may bind flags to it before calling LoadFromViper.
//
// Postcondition: when path is non-empty it is read; a missing file wraps ErrNoConfigFile.
func New(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("DPR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path == "" {
		return v, nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoConfigFile, path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return v, nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path uses defaults and the
// environment only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v, err := New(path)
	if err != nil {
		return Config{}, err
	}
	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("simulation.iterations", 500)
	v.SetDefault("simulation.rounds", 5)
	v.SetDefault("simulation.encounters_per_day", 3)
	v.SetDefault("simulation.short_rest_every", 1)
	v.SetDefault("simulation.seed", 1)
	v.SetDefault("simulation.workers", 0)
	v.SetDefault("simulation.failure_tolerance", 0.05)
	v.SetDefault("simulation.budget", "0s")
	v.SetDefault("simulation.carry_hp", false)
	v.SetDefault("simulation.tie_break", "modifier")
	v.SetDefault("simulation.cancel_policy", "cancel")
	v.SetDefault("simulation.crit_multiplier", 2)

	v.SetDefault("content.creatures", "content/creatures")
	v.SetDefault("content.conditions", "content/conditions")
	v.SetDefault("content.scripts", "content/scripts")
	v.SetDefault("content.instruction_limit", 100000)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "dpr")
	v.SetDefault("database.password", "dpr")
	v.SetDefault("database.name", "dpr")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "24h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}
