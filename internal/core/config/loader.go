package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/pacer/internal/pacing"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults if necessary
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Runner.Protocol == "" {
		cfg.Runner.Protocol = "http"
	}
	if cfg.Runner.Name == "" {
		cfg.Runner.Name = "runner"
	}
	if cfg.Runner.Timeout == 0 {
		cfg.Runner.Timeout = 60 * time.Second
	}
	if cfg.Pacing.Preset == "" {
		cfg.Pacing.Preset = "standard"
	}
	if cfg.Replay.Namespace == "" {
		cfg.Replay.Namespace = "default"
	}
	if cfg.Replay.Interval == 0 {
		cfg.Replay.Interval = 15 * time.Second
	}
	if cfg.Replay.BatchSize == 0 {
		cfg.Replay.BatchSize = 10
	}

	if cfg.Pacing.Policy != nil {
		if err := cfg.Pacing.Policy.Validate(); err != nil {
			return nil, fmt.Errorf("invalid pacing policy: %w", err)
		}
	}

	return &cfg, nil
}

// DefaultPolicy resolves the configured pacing policy: the inline
// policy wins, then the named preset.
func (c *AppConfig) DefaultPolicy() (pacing.Policy, error) {
	if c.Pacing.Policy != nil {
		return *c.Pacing.Policy, nil
	}

	p, ok := pacing.LookupPolicy(c.Pacing.Preset)
	if !ok {
		return pacing.Policy{}, fmt.Errorf("unknown pacing preset %q, expected one of %v", c.Pacing.Preset, pacing.PresetNames())
	}
	return p, nil
}
