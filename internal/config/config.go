// Package config holds all mnemod configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all mnemod configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Memstore    MemstoreConfig    `mapstructure:"memstore"`
	Namespaces  NamespacesConfig  `mapstructure:"namespaces"`
	Embedder    EmbedderConfig    `mapstructure:"embedder"`
	Scoring     ScoringConfig     `mapstructure:"scoring"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
}

type ServerConfig struct {
	Bind string `mapstructure:"bind"`
	Port int    `mapstructure:"port"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type MemstoreConfig struct {
	Mode     string `mapstructure:"mode"`     // "embedded" or "remote"
	Endpoint string `mapstructure:"endpoint"` // remote service URL
}

type NamespacesConfig struct {
	User string `mapstructure:"user"` // facts about the end user
	Self string `mapstructure:"self"` // the assistant's self-knowledge
}

type EmbedderConfig struct {
	OllamaURL  string `mapstructure:"ollama_url"`
	Model      string `mapstructure:"model"`
	Dimensions int    `mapstructure:"dimensions"`
}

type ScoringConfig struct {
	Profile string `mapstructure:"profile"` // "base" or "feedback"
}

type MaintenanceConfig struct {
	ScanIntervalHours   int     `mapstructure:"scan_interval_hours"`
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 38600,
		},
		Database: DatabaseConfig{
			Path: "", // resolved at runtime via store.DefaultDBPath()
		},
		Memstore: MemstoreConfig{
			Mode: "embedded",
		},
		Namespaces: NamespacesConfig{
			User: "user-memories",
			Self: "assistant-self",
		},
		Embedder: EmbedderConfig{
			OllamaURL:  "http://localhost:11434",
			Model:      "nomic-embed-text",
			Dimensions: 768,
		},
		Scoring: ScoringConfig{
			Profile: "feedback",
		},
		Maintenance: MaintenanceConfig{
			ScanIntervalHours:   24,
			SimilarityThreshold: 0.85,
		},
	}
}

// Load reads ~/.mnemod/config.yaml (when present) over the defaults, with
// MNEMOD_* environment variables taking highest precedence.
func Load() (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".mnemod"))
	}
	v.SetEnvPrefix("MNEMOD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file means defaults; anything else is a real error.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("server.bind", cfg.Server.Bind)
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("database.path", cfg.Database.Path)
	v.SetDefault("memstore.mode", cfg.Memstore.Mode)
	v.SetDefault("memstore.endpoint", cfg.Memstore.Endpoint)
	v.SetDefault("namespaces.user", cfg.Namespaces.User)
	v.SetDefault("namespaces.self", cfg.Namespaces.Self)
	v.SetDefault("embedder.ollama_url", cfg.Embedder.OllamaURL)
	v.SetDefault("embedder.model", cfg.Embedder.Model)
	v.SetDefault("embedder.dimensions", cfg.Embedder.Dimensions)
	v.SetDefault("scoring.profile", cfg.Scoring.Profile)
	v.SetDefault("maintenance.scan_interval_hours", cfg.Maintenance.ScanIntervalHours)
	v.SetDefault("maintenance.similarity_threshold", cfg.Maintenance.SimilarityThreshold)
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// NamespaceList returns the configured namespaces in a stable order.
func (c *Config) NamespaceList() []string {
	return []string{c.Namespaces.User, c.Namespaces.Self}
}
