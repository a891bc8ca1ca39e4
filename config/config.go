// Package config loads the pipeline's configuration from a YAML file
// layered with environment-variable overrides and a .env file, following the
// same loader shape the teacher scanner used: godotenv, then YAML, then env
// overrides, then defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full pipeline configuration.
type Config struct {
	News       NewsConfig       `yaml:"news"`
	Platforms  PlatformsConfig  `yaml:"platforms"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Matching   MatchingConfig   `yaml:"matching"`
	Validation ValidationConfig `yaml:"validation"`
	Alerts     AlertsConfig     `yaml:"alerts"`
	LLM        LLMConfig        `yaml:"llm"`
	Storage    StorageConfig    `yaml:"storage"`
	Retention  RetentionConfig  `yaml:"retention"`
	Log        LogConfig        `yaml:"log"`
}

// NewsConfig lists the news sources to ingest from.
type NewsConfig struct {
	Sources   []string          `yaml:"sources"`    // plugin names resolved by the Coordinator's registry
	Endpoints map[string]string `yaml:"endpoints"`  // source name -> HTTP(S)/WS(S) endpoint URL
}

// PlatformsConfig lists the market platforms to sync.
type PlatformsConfig struct {
	Names     []string          `yaml:"names"`
	Endpoints map[string]string `yaml:"endpoints"` // platform name -> REST base URL
	APIKeys   map[string]string `yaml:"api_keys"`  // platform name -> API key, from YAML only (no env override)
}

// EmbeddingConfig controls the embedding provider and batching.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	Endpoint   string `yaml:"endpoint"`
	Dimension  int    `yaml:"dimension"`
	BatchSize  int    `yaml:"batch_size"`
}

// MatchingConfig tunes the similarity search.
type MatchingConfig struct {
	BatchSize     int     `yaml:"batch_size"`
	TopN          int     `yaml:"top_n"`
	MinSimilarity float64 `yaml:"min_similarity"`
}

// ValidationConfig tunes the LLM validation stage.
type ValidationConfig struct {
	BatchSize      int     `yaml:"batch_size"`
	MaxCandidates  int     `yaml:"max_candidates"`
	ChunkSize      int     `yaml:"chunk_size"`
	MinConfidence  float64 `yaml:"min_confidence"`
}

// AlertsConfig controls alert suppression and order placement.
type AlertsConfig struct {
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	CooldownMinutes     int     `yaml:"cooldown_minutes"`
	TradingEnabled      bool    `yaml:"trading_enabled"`
	DryRun              bool    `yaml:"dry_run"`
}

// LLMConfig holds credentials and model selection for the LLM capability.
type LLMConfig struct {
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
}

// StorageConfig is the Postgres/pgvector connection string and batch limits.
type StorageConfig struct {
	DSN              string `yaml:"dsn"`
	DeactivateBatch  int    `yaml:"deactivate_batch"`
}

// RetentionConfig controls the retention sweep.
type RetentionConfig struct {
	Days int `yaml:"days"`
}

// LogConfig controls logging format and verbosity.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load reads the YAML file at path, layers a .env file and environment
// overrides on top, applies defaults, then validates. Validate's error
// aggregates every offending setting (spec §7 "Configuration fault").
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // ignored if no .env file present

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// RetentionWindow is Retention.Days as a time.Duration.
func (c *Config) RetentionWindow() time.Duration {
	return time.Duration(c.Retention.Days) * 24 * time.Hour
}

// CooldownWindow is Alerts.CooldownMinutes as a time.Duration.
func (c *Config) CooldownWindow() time.Duration {
	return time.Duration(c.Alerts.CooldownMinutes) * time.Minute
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("EMBEDDING_ENDPOINT"); v != "" {
		cfg.Embedding.Endpoint = v
	}
	if v := os.Getenv("NEWS_SOURCES"); v != "" {
		cfg.News.Sources = splitCSV(v)
	}
	if v := os.Getenv("PLATFORM_NAMES"); v != "" {
		cfg.Platforms.Names = splitCSV(v)
	}
	if v := os.Getenv("ALERTS_MIN_CONFIDENCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Alerts.ConfidenceThreshold = f
		}
	}
	if v := os.Getenv("ALERTS_DRY_RUN"); v != "" {
		cfg.Alerts.DryRun = v == "true" || v == "1"
	}
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func setDefaults(cfg *Config) {
	if cfg.Embedding.BatchSize <= 0 {
		cfg.Embedding.BatchSize = 10
	}
	if cfg.Embedding.Dimension <= 0 {
		cfg.Embedding.Dimension = 768
	}
	if cfg.Matching.BatchSize <= 0 {
		cfg.Matching.BatchSize = 5
	}
	if cfg.Matching.TopN <= 0 {
		cfg.Matching.TopN = 20
	}
	if cfg.Matching.MinSimilarity <= 0 {
		cfg.Matching.MinSimilarity = 0.3
	}
	if cfg.Validation.BatchSize <= 0 {
		cfg.Validation.BatchSize = 3
	}
	if cfg.Validation.MaxCandidates <= 0 {
		cfg.Validation.MaxCandidates = 10
	}
	if cfg.Validation.ChunkSize <= 0 {
		cfg.Validation.ChunkSize = 10
	}
	if cfg.Validation.MinConfidence <= 0 {
		cfg.Validation.MinConfidence = 0.7
	}
	if cfg.Alerts.ConfidenceThreshold <= 0 {
		cfg.Alerts.ConfidenceThreshold = 0.7
	}
	if cfg.Alerts.CooldownMinutes <= 0 {
		cfg.Alerts.CooldownMinutes = 60
	}
	if cfg.Storage.DeactivateBatch <= 0 {
		cfg.Storage.DeactivateBatch = 10000
	}
	if cfg.Retention.Days <= 0 {
		cfg.Retention.Days = 7
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "claude"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "auto"
	}
}

// ConfigError aggregates every offending setting found by Validate into one
// error, per spec §7: "Fail fast at startup with an aggregated error listing
// every offending setting."
type ConfigError struct {
	Errors []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", strings.Join(e.Errors, "; "))
}

// Validate checks every configuration fault named in spec §7 and returns a
// single *ConfigError listing all of them, or nil.
func (c *Config) Validate() error {
	var errs []string

	if len(c.News.Sources) == 0 {
		errs = append(errs, "news.sources must list at least one source plugin name")
	}
	for _, name := range c.News.Sources {
		if _, ok := c.News.Endpoints[name]; !ok {
			errs = append(errs, fmt.Sprintf("news.sources: unknown source %q (no news.endpoints entry)", name))
		}
	}
	if len(c.Platforms.Names) == 0 {
		errs = append(errs, "platforms.names must list at least one platform plugin name")
	}
	for _, name := range c.Platforms.Names {
		if _, ok := c.Platforms.Endpoints[name]; !ok {
			errs = append(errs, fmt.Sprintf("platforms.names: unknown platform %q (no platforms.endpoints entry)", name))
		}
	}
	if c.Storage.DSN == "" {
		errs = append(errs, "storage.dsn is required")
	}
	if c.LLM.APIKey == "" {
		errs = append(errs, "llm.api_key is required (or set LLM_API_KEY)")
	}
	if c.Matching.MinSimilarity < 0 || c.Matching.MinSimilarity > 1 {
		errs = append(errs, "matching.min_similarity must be in [0,1]")
	}
	if c.Validation.MinConfidence < 0 || c.Validation.MinConfidence > 1 {
		errs = append(errs, "validation.min_confidence must be in [0,1]")
	}
	if c.Alerts.ConfidenceThreshold < 0 || c.Alerts.ConfidenceThreshold > 1 {
		errs = append(errs, "alerts.confidence_threshold must be in [0,1]")
	}

	if len(errs) > 0 {
		return &ConfigError{Errors: errs}
	}
	return nil
}
