// Package config loads loom configuration from a YAML file with
// environment-variable overrides for secrets.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/driftwood-studio/loom/internal/collab"
	"github.com/driftwood-studio/loom/internal/memory"
)

// Config is the top-level loom configuration.
type Config struct {
	// Collaborator holds generation collaborator settings.
	Collaborator CollaboratorConfig `yaml:"collaborator"`

	// Memory holds continuity subsystem thresholds.
	Memory MemoryConfig `yaml:"memory"`

	// Store holds persistence settings.
	Store StoreConfig `yaml:"store"`
}

// CollaboratorConfig configures the generation collaborator client.
type CollaboratorConfig struct {
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// MemoryConfig configures the orchestration thresholds.
type MemoryConfig struct {
	MinChapterLength   int     `yaml:"min_chapter_length"`
	StalenessThreshold float64 `yaml:"staleness_threshold"`
}

// StoreConfig configures where project aggregates live.
type StoreConfig struct {
	// Path is the SQLite database file. Empty means in-memory only.
	Path string `yaml:"path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Collaborator: CollaboratorConfig{
			Model:     collab.DefaultConfig().Model,
			MaxTokens: collab.DefaultConfig().MaxTokens,
		},
		Memory: MemoryConfig{
			MinChapterLength:   memory.DefaultMinChapterLength,
			StalenessThreshold: memory.DefaultStalenessThreshold,
		},
	}
}

// Load reads configuration from the given path, layered over defaults.
// A missing file is not an error; the defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if cfg.Memory.MinChapterLength <= 0 {
		cfg.Memory.MinChapterLength = memory.DefaultMinChapterLength
	}
	if cfg.Memory.StalenessThreshold <= 0 {
		cfg.Memory.StalenessThreshold = memory.DefaultStalenessThreshold
	}
	if cfg.Collaborator.Model == "" {
		cfg.Collaborator.Model = collab.DefaultConfig().Model
	}

	return cfg, nil
}

// DefaultPath returns the conventional config location, ~/.loom/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".loom", "config.yaml")
}

// CollabConfig converts the collaborator section into a client config.
func (c Config) CollabConfig() collab.Config {
	return collab.Config{
		Model:       c.Collaborator.Model,
		Temperature: c.Collaborator.Temperature,
		MaxTokens:   c.Collaborator.MaxTokens,
	}
}
