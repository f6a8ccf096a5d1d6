package config

import (
	"time"

	redisclient "github.com/vietddude/pacer/internal/infra/redis"
	"github.com/vietddude/pacer/internal/infra/storage/postgres"
	"github.com/vietddude/pacer/internal/pacing"
	"github.com/vietddude/pacer/internal/pagemap"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Logging  LoggingConfig      `yaml:"logging"`
	Redis    redisclient.Config `yaml:"redis"`
	Database postgres.Config    `yaml:"database"`
	PageMap  pagemap.Config     `yaml:"page_map"`
	Runner   RunnerConfig       `yaml:"runner"`
	Pacing   PacingConfig       `yaml:"pacing"`
	Replay   ReplayConfig       `yaml:"replay"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// RunnerConfig holds settings for the automation runner backend.
type RunnerConfig struct {
	Name     string `yaml:"name"`
	Protocol string `yaml:"protocol"` // http, grpc
	Endpoint string `yaml:"endpoint"`

	// Timeout for one runner call; browser automation is slow, so the
	// default is 60s.
	Timeout time.Duration `yaml:"timeout"`
}

// PacingConfig selects the default pacing policy.
type PacingConfig struct {
	// Preset names a built-in policy (bulk, standard, loadtest).
	// Ignored when Policy is set.
	Preset string `yaml:"preset"`

	// Policy is an inline policy overriding the preset.
	Policy *pacing.Policy `yaml:"policy"`
}

// ReplayConfig holds replay loop settings.
type ReplayConfig struct {
	// Namespace isolates replay queues of independent deployments
	// sharing one Redis.
	Namespace string        `yaml:"namespace"`
	Interval  time.Duration `yaml:"interval"`
	BatchSize int           `yaml:"batch_size"`
}
