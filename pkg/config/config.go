// Package config loads the watcher's configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	ModeAPI = "api"
	ModeCLI = "cli"
)

type Config struct {
	IdleTimeout       time.Duration
	CheckInterval     time.Duration
	ActivityThreshold int64
	ContainerFilter   string

	NomadEndpoint string
	NomadToken    string

	DockerMode   string
	DockerSocket string

	RedisAddr     string
	RedisDB       int
	RedisPassword string

	MetricsPort int
	LogLevel    string
	DryRun      bool
}

// Load reads configuration from the environment and validates it. A missing
// Nomad endpoint or token is fatal: the watcher must not start without a
// stop target.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("IDLE_TIMEOUT", 900)
	v.SetDefault("CHECK_INTERVAL", 60)
	v.SetDefault("ACTIVITY_THRESHOLD", 500)
	v.SetDefault("CONTAINER_FILTER", "")
	v.SetDefault("DOCKER_MODE", ModeAPI)
	v.SetDefault("DOCKER_SOCKET", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("METRICS_PORT", 0)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DRY_RUN", false)

	cfg := &Config{
		IdleTimeout:       time.Duration(v.GetInt("IDLE_TIMEOUT")) * time.Second,
		CheckInterval:     time.Duration(v.GetInt("CHECK_INTERVAL")) * time.Second,
		ActivityThreshold: v.GetInt64("ACTIVITY_THRESHOLD"),
		ContainerFilter:   v.GetString("CONTAINER_FILTER"),
		NomadEndpoint:     v.GetString("NOMAD_ENDPOINT"),
		NomadToken:        v.GetString("NOMAD_TOKEN"),
		DockerMode:        v.GetString("DOCKER_MODE"),
		DockerSocket:      v.GetString("DOCKER_SOCKET"),
		RedisAddr:         v.GetString("REDIS_ADDR"),
		RedisDB:           v.GetInt("REDIS_DB"),
		RedisPassword:     v.GetString("REDIS_PASSWORD"),
		MetricsPort:       v.GetInt("METRICS_PORT"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		DryRun:            v.GetBool("DRY_RUN"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.NomadEndpoint == "" {
		return fmt.Errorf("fatal config error: NOMAD_ENDPOINT is required")
	}
	if c.NomadToken == "" {
		return fmt.Errorf("fatal config error: NOMAD_TOKEN is required")
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("fatal config error: IDLE_TIMEOUT must be positive, got %s", c.IdleTimeout)
	}
	if c.CheckInterval <= 0 {
		return fmt.Errorf("fatal config error: CHECK_INTERVAL must be positive, got %s", c.CheckInterval)
	}
	if c.ActivityThreshold < 0 {
		return fmt.Errorf("fatal config error: ACTIVITY_THRESHOLD must be non-negative, got %d", c.ActivityThreshold)
	}
	if c.DockerMode != ModeAPI && c.DockerMode != ModeCLI {
		return fmt.Errorf("fatal config error: DOCKER_MODE must be %q or %q, got %q", ModeAPI, ModeCLI, c.DockerMode)
	}
	return nil
}
