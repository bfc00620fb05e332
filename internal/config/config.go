package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DatabaseURI string

	// CronSpec schedules reconciliation runs.
	CronSpec string

	// LookaheadDays is how far ahead occurrences are materialized.
	LookaheadDays int

	// ToleranceMinutes is the duplicate-match window around a candidate.
	ToleranceMinutes int

	// MaxParallel bounds concurrent template reconciliation.
	MaxParallel int
}

// fileConfig is the optional YAML policy file. Zero fields keep defaults.
type fileConfig struct {
	Cron             string `yaml:"cron"`
	LookaheadDays    int    `yaml:"lookahead_days"`
	ToleranceMinutes int    `yaml:"tolerance_minutes"`
	MaxParallel      int    `yaml:"max_parallel"`
}

// Load reads the environment (plus an optional .env file) and, when
// PLANNERD_CONFIG points at a YAML file, overlays its policy values.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// .env file is optional in production
	}

	cfg := &Config{
		DatabaseURI:      os.Getenv("DATABASE_URI"),
		CronSpec:         "*/15 * * * *",
		LookaheadDays:    14,
		ToleranceMinutes: 5,
		MaxParallel:      4,
	}

	path := os.Getenv("PLANNERD_CONFIG")
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.Cron != "" {
		cfg.CronSpec = fc.Cron
	}
	if fc.LookaheadDays > 0 {
		cfg.LookaheadDays = fc.LookaheadDays
	}
	if fc.ToleranceMinutes > 0 {
		cfg.ToleranceMinutes = fc.ToleranceMinutes
	}
	if fc.MaxParallel > 0 {
		cfg.MaxParallel = fc.MaxParallel
	}
	return cfg, nil
}
