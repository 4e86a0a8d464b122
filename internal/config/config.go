// Package config provides configuration management for Loom.
// Settings resolve in three layers: built-in defaults, then an optional YAML
// file, then environment variables with the LOOM_ prefix. Later layers win.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration settings for the Loom pipelines.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Detector  DetectorConfig  `yaml:"detector"`
	Episodes  EpisodesConfig  `yaml:"episodes"`
}

// StorageConfig contains database backend configuration.
type StorageConfig struct {
	Engine string `yaml:"engine"` // Storage engine: postgres, sqlite (default: postgres)
	DSN    string `yaml:"dsn"`    // Connection string or sqlite file path
}

// EmbeddingConfig contains the embedding service configuration.
type EmbeddingConfig struct {
	BaseURL           string  `yaml:"base_url"`            // Ollama API URL (default: http://localhost:11434)
	Model             string  `yaml:"model"`               // Embedding model name (default: nomic-embed-text)
	TimeoutSeconds    int     `yaml:"timeout_seconds"`     // Per-request timeout (default: 30)
	BatchSize         int     `yaml:"batch_size"`          // Texts per embed request (default: 20)
	RequestsPerSecond float64 `yaml:"requests_per_second"` // Client-side pacing (default: 2)
}

// DetectorConfig contains duplicate detection tuning.
type DetectorConfig struct {
	Threshold     float64 `yaml:"threshold"`       // Minimum pending-match score (default: 0.5)
	RPCsPerSecond float64 `yaml:"rpcs_per_second"` // Similarity lookup pacing (default: 10)
}

// EpisodesConfig contains episode clustering tuning.
type EpisodesConfig struct {
	GapDays          int `yaml:"gap_days"`           // Cluster split gap in days (default: 14)
	MinItems         int `yaml:"min_items"`          // Minimum items per episode (default: 2)
	ActiveWindowDays int `yaml:"active_window_days"` // Recency window for active status (default: 14)
}

// Load resolves configuration from defaults, the YAML file at path when path
// is non-empty, and LOOM_ environment variables, in that order.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Engine {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("config: unknown storage engine %q", c.Storage.Engine)
	}
	if c.Detector.Threshold < 0 || c.Detector.Threshold > 1 {
		return errors.New("config: detector threshold must be between 0 and 1")
	}
	if c.Episodes.GapDays < 1 {
		return errors.New("config: episodes gap_days must be at least 1")
	}
	if c.Episodes.MinItems < 1 {
		return errors.New("config: episodes min_items must be at least 1")
	}
	if c.Embedding.BatchSize < 1 {
		return errors.New("config: embedding batch_size must be at least 1")
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Storage: StorageConfig{
			Engine: "postgres",
			DSN:    "",
		},
		Embedding: EmbeddingConfig{
			BaseURL:           "http://localhost:11434",
			Model:             "nomic-embed-text",
			TimeoutSeconds:    30,
			BatchSize:         20,
			RequestsPerSecond: 2,
		},
		Detector: DetectorConfig{
			Threshold:     0.5,
			RPCsPerSecond: 10,
		},
		Episodes: EpisodesConfig{
			GapDays:          14,
			MinItems:         2,
			ActiveWindowDays: 14,
		},
	}
}

func applyEnv(cfg *Config) {
	cfg.Storage.Engine = getEnv("LOOM_STORAGE_ENGINE", cfg.Storage.Engine)
	cfg.Storage.DSN = getEnv("LOOM_DSN", cfg.Storage.DSN)

	cfg.Embedding.BaseURL = getEnv("LOOM_OLLAMA_URL", cfg.Embedding.BaseURL)
	cfg.Embedding.Model = getEnv("LOOM_EMBEDDING_MODEL", cfg.Embedding.Model)
	cfg.Embedding.TimeoutSeconds = getEnvInt("LOOM_EMBEDDING_TIMEOUT_SECONDS", cfg.Embedding.TimeoutSeconds)
	cfg.Embedding.BatchSize = getEnvInt("LOOM_EMBEDDING_BATCH_SIZE", cfg.Embedding.BatchSize)
	cfg.Embedding.RequestsPerSecond = getEnvFloat("LOOM_EMBEDDING_RPS", cfg.Embedding.RequestsPerSecond)

	cfg.Detector.Threshold = getEnvFloat("LOOM_DETECTOR_THRESHOLD", cfg.Detector.Threshold)
	cfg.Detector.RPCsPerSecond = getEnvFloat("LOOM_DETECTOR_RPS", cfg.Detector.RPCsPerSecond)

	cfg.Episodes.GapDays = getEnvInt("LOOM_EPISODE_GAP_DAYS", cfg.Episodes.GapDays)
	cfg.Episodes.MinItems = getEnvInt("LOOM_EPISODE_MIN_ITEMS", cfg.Episodes.MinItems)
	cfg.Episodes.ActiveWindowDays = getEnvInt("LOOM_EPISODE_ACTIVE_WINDOW_DAYS", cfg.Episodes.ActiveWindowDays)
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value.
// If the environment variable exists but cannot be parsed as an integer,
// it returns the default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default value.
// If the environment variable exists but cannot be parsed as a float,
// it returns the default value.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
