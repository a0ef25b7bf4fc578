package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Settings holds runtime tuning for the orchestration engine and its
// services, as opposed to SwarmFile which declares the agent topology.
type Settings struct {
	Engine  EngineSettings  `mapstructure:"engine"`
	Memory  MemorySettings  `mapstructure:"memory"`
	Archive ArchiveSettings `mapstructure:"archive"`
	Models  ModelSettings   `mapstructure:"models"`
	Logging LoggingSettings `mapstructure:"logging"`
}

// EngineSettings tunes conversation turn processing.
type EngineSettings struct {
	HopLimit     int           `mapstructure:"hop_limit"`
	HopTimeout   time.Duration `mapstructure:"hop_timeout"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// MemorySettings tunes the bounded conversation memory.
type MemorySettings struct {
	Budget       int `mapstructure:"budget"`
	RecentWindow int `mapstructure:"recent_window"`
}

// ArchiveSettings selects the archive backend. An empty Path keeps closed
// conversations in memory; a file path enables the SQLite store.
type ArchiveSettings struct {
	Path string `mapstructure:"path"`
}

// ModelSettings selects the completion backend for model-backed agents.
type ModelSettings struct {
	// Provider is one of "openai", "anthropic" or "mock".
	Provider string `mapstructure:"provider"`
	// APIKey overrides the provider's environment variable lookup.
	APIKey string `mapstructure:"api_key"`
}

// LoggingSettings tunes structured log output.
type LoggingSettings struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// LoadSettings reads runtime settings with the following precedence
// (highest to lowest):
//  1. Environment variables (RACISWARM_* and OPENAI_API_KEY/ANTHROPIC_API_KEY)
//  2. The given config file, if path is non-empty
//  3. Built-in defaults
func LoadSettings(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading settings from %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("RACISWARM")
	v.AutomaticEnv()
	v.BindEnv("engine.hop_limit", "RACISWARM_HOP_LIMIT")
	v.BindEnv("archive.path", "RACISWARM_ARCHIVE_PATH")
	v.BindEnv("models.provider", "RACISWARM_MODEL_PROVIDER")

	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("unmarshaling settings: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("engine.hop_limit", 10)
	v.SetDefault("engine.hop_timeout", "30s")
	v.SetDefault("engine.retry_backoff", "500ms")
	v.SetDefault("engine.idle_timeout", "10m")

	v.SetDefault("memory.budget", 8192)
	v.SetDefault("memory.recent_window", 4)

	v.SetDefault("archive.path", "")

	v.SetDefault("models.provider", "mock")
	v.SetDefault("models.api_key", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.json", false)
}

func (s *Settings) validate() error {
	if s.Engine.HopLimit < 1 {
		return fmt.Errorf("engine.hop_limit must be at least 1, got %d", s.Engine.HopLimit)
	}
	if s.Memory.Budget < 1 {
		return fmt.Errorf("memory.budget must be positive, got %d", s.Memory.Budget)
	}
	switch s.Models.Provider {
	case "openai", "anthropic", "mock":
	default:
		return fmt.Errorf("unknown models.provider %q", s.Models.Provider)
	}
	return nil
}
