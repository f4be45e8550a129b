package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration. It merges file defaults and
// environment overrides so local and deployed runs share one code path.
type Config struct {
	Port int

	LockWait time.Duration

	SettlementPollInterval time.Duration
	SettlementMaxAttempts  int
	SettlementBaseBackoff  time.Duration

	// RedisURL selects the durable settlement queue; empty falls back to
	// the in-process queue (acceptable only when the process outlives
	// every open auction).
	RedisURL string

	JWTSecret string
}

// configFile mirrors the YAML schema. Durations are strings in
// time.ParseDuration form ("3s", "250ms").
type configFile struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Store struct {
		LockWait string `yaml:"lock_wait"`
	} `yaml:"store"`
	Settlement struct {
		PollInterval string `yaml:"poll_interval"`
		MaxAttempts  int    `yaml:"max_attempts"`
		BaseBackoff  string `yaml:"base_backoff"`
	} `yaml:"settlement"`
	Dependencies struct {
		RedisURL string `yaml:"redis_url"`
	} `yaml:"dependencies"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Port:                   8080,
		LockWait:               3 * time.Second,
		SettlementPollInterval: 250 * time.Millisecond,
		SettlementMaxAttempts:  3,
		SettlementBaseBackoff:  time.Second,
	}
}

// Load reads an optional YAML file and applies environment overrides
// (PORT, REDIS_URL, JWT_SECRET). A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else {
			var f configFile
			if err := yaml.Unmarshal(raw, &f); err != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
			}
			if err := applyFile(&cfg, f); err != nil {
				return Config{}, fmt.Errorf("config: %s: %w", path, err)
			}
		}
	}

	if p := os.Getenv("PORT"); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return Config{}, fmt.Errorf("config: invalid PORT %q: %w", p, err)
		}
		cfg.Port = port
	}
	if u := os.Getenv("REDIS_URL"); u != "" {
		cfg.RedisURL = u
	}
	if s := os.Getenv("JWT_SECRET"); s != "" {
		cfg.JWTSecret = s
	}

	return cfg, nil
}

func applyFile(cfg *Config, f configFile) error {
	if f.Server.Port != 0 {
		cfg.Port = f.Server.Port
	}
	if err := applyDuration(&cfg.LockWait, f.Store.LockWait, "store.lock_wait"); err != nil {
		return err
	}
	if err := applyDuration(&cfg.SettlementPollInterval, f.Settlement.PollInterval, "settlement.poll_interval"); err != nil {
		return err
	}
	if f.Settlement.MaxAttempts != 0 {
		cfg.SettlementMaxAttempts = f.Settlement.MaxAttempts
	}
	if err := applyDuration(&cfg.SettlementBaseBackoff, f.Settlement.BaseBackoff, "settlement.base_backoff"); err != nil {
		return err
	}
	if f.Dependencies.RedisURL != "" {
		cfg.RedisURL = f.Dependencies.RedisURL
	}
	if f.Auth.JWTSecret != "" {
		cfg.JWTSecret = f.Auth.JWTSecret
	}
	return nil
}

func applyDuration(dst *time.Duration, raw, field string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", field, raw, err)
	}
	*dst = d
	return nil
}
