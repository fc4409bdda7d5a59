// Package config handles loading and persisting the quorum configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/quorumlabs/quorum/internal/consts"
)

const (
	configFileName = "config.json"
	logFileName    = "quorum.log"
	dbFileName     = "quorum.db"
	keyFileName    = "secret.key"
	swapDirName    = "swap"
	projectsDir    = "projects"
)

// Config represents application configuration.
type Config struct {
	OllamaBaseURL  string   `json:"ollama_base_url"`
	MessengerModel string   `json:"messenger_model"`
	PlannerModels  []string `json:"planner_models"`
	ExecutorModel  string   `json:"executor_model"`
	MaxLoops       int      `json:"max_loops"`
	LogLevel       string   `json:"log_level"` // debug, info, warn, error, none

	// Derived paths, never persisted
	HomeDir string `json:"-"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		OllamaBaseURL:  "http://localhost:11434",
		MessengerModel: "llama2",
		PlannerModels:  []string{"llama2", "mistral", "codellama"},
		ExecutorModel:  "llama2",
		MaxLoops:       consts.DefaultMaxLoops,
		LogLevel:       "info",
	}
}

// HomeDir resolves the quorum home directory: QUORUM_HOME if set, otherwise
// ~/.quorum.
func HomeDir() (string, error) {
	if dir := os.Getenv("QUORUM_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".quorum"), nil
}

// Load reads the configuration from the quorum home directory, creating it
// with defaults on first run.
func Load() (*Config, error) {
	home, err := HomeDir()
	if err != nil {
		return nil, err
	}
	return LoadFrom(home)
}

// LoadFrom reads the configuration rooted at the given home directory.
func LoadFrom(home string) (*Config, error) {
	if err := os.MkdirAll(home, 0755); err != nil {
		return nil, fmt.Errorf("failed to create home directory: %w", err)
	}

	cfg := DefaultConfig()
	cfg.HomeDir = home

	path := filepath.Join(home, configFileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := cfg.Save(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.MaxLoops <= 0 {
		cfg.MaxLoops = consts.DefaultMaxLoops
	}
	if cfg.OllamaBaseURL == "" {
		cfg.OllamaBaseURL = DefaultConfig().OllamaBaseURL
	}

	return cfg, nil
}

// Save writes the configuration back to disk.
func (c *Config) Save() error {
	if c.HomeDir == "" {
		return fmt.Errorf("config has no home directory")
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	path := filepath.Join(c.HomeDir, configFileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// LogPath returns the append-only log file path.
func (c *Config) LogPath() string {
	return filepath.Join(c.HomeDir, logFileName)
}

// DBPath returns the SQLite database path backing memory and audit tables.
func (c *Config) DBPath() string {
	return filepath.Join(c.HomeDir, dbFileName)
}

// KeyPath returns the path of the command-signing secret.
func (c *Config) KeyPath() string {
	return filepath.Join(c.HomeDir, keyFileName)
}

// SwapDir returns the directory of content-addressed overflow blobs.
func (c *Config) SwapDir() string {
	return filepath.Join(c.HomeDir, swapDirName)
}

// ProjectsDir returns the directory holding one working directory per task.
func (c *Config) ProjectsDir() string {
	return filepath.Join(c.HomeDir, projectsDir)
}
