package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	pkgconfig "crmsweep/pkg/config"
)

type PushConfig struct {
	URL            string `yaml:"url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type SweepConfig struct {
	TaskIntervalMinutes  int    `yaml:"task_interval_minutes"`
	LeadCheckTime        string `yaml:"lead_check_time"` // HH:MM, local time
	CaringInactivityDays int    `yaml:"caring_inactivity_days"`
	LeadInactivityDays   int    `yaml:"lead_inactivity_days"`
	LockTTLSeconds       int    `yaml:"lock_ttl_seconds"`
}

type Config struct {
	DB     pkgconfig.DBConfig     `yaml:"db"`
	MQ     pkgconfig.MQConfig     `yaml:"mq"`
	Redis  pkgconfig.RedisConfig  `yaml:"redis"`
	Push   PushConfig             `yaml:"push"`
	Sweep  SweepConfig            `yaml:"sweep"`
	Server pkgconfig.ServerConfig `yaml:"server"`
}

// Load reads config.yaml from the working directory and applies environment
// overrides. Fatal on error, matching service startup semantics.
func Load() *Config {
	cfg, err := LoadFrom("config.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// LoadFrom reads the config file at path and applies environment overrides.
func LoadFrom(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	applyDefaults(&cfg)
	overrideFromEnv(&cfg)

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Sweep.TaskIntervalMinutes <= 0 {
		cfg.Sweep.TaskIntervalMinutes = 5
	}
	if cfg.Sweep.LeadCheckTime == "" {
		cfg.Sweep.LeadCheckTime = "08:00"
	}
	if cfg.Sweep.CaringInactivityDays <= 0 {
		cfg.Sweep.CaringInactivityDays = 7
	}
	if cfg.Sweep.LeadInactivityDays <= 0 {
		cfg.Sweep.LeadInactivityDays = 3
	}
	if cfg.Sweep.LockTTLSeconds <= 0 {
		cfg.Sweep.LockTTLSeconds = 240
	}
	if cfg.Push.TimeoutSeconds <= 0 {
		cfg.Push.TimeoutSeconds = 5
	}
}

func overrideFromEnv(cfg *Config) {
	pkgconfig.OverrideDBFromEnv(&cfg.DB)
	pkgconfig.OverrideMQFromEnv(&cfg.MQ)
	pkgconfig.OverrideRedisFromEnv(&cfg.Redis)
	pkgconfig.OverrideServerFromEnv(&cfg.Server)

	if url := os.Getenv("PUSH_URL"); url != "" {
		cfg.Push.URL = url
	}
	if t := os.Getenv("SWEEP_LEAD_CHECK_TIME"); t != "" {
		cfg.Sweep.LeadCheckTime = t
	}
	if v := os.Getenv("SWEEP_TASK_INTERVAL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Sweep.TaskIntervalMinutes = n
		}
	}
}
