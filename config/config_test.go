package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
news:
  sources: ["reuters"]
  endpoints:
    reuters: "https://reuters.example/feed"
platforms:
  names: ["kalshi"]
  endpoints:
    kalshi: "https://kalshi.example/api"
storage:
  dsn: "postgres://x"
llm:
  api_key: "sk-test"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Embedding.BatchSize)
	assert.Equal(t, 20, cfg.Matching.TopN)
	assert.Equal(t, 0.3, cfg.Matching.MinSimilarity)
	assert.Equal(t, 3, cfg.Validation.BatchSize)
	assert.Equal(t, 0.7, cfg.Validation.MinConfidence)
	assert.Equal(t, 0.7, cfg.Alerts.ConfidenceThreshold)
	assert.Equal(t, 60, cfg.Alerts.CooldownMinutes)
	assert.Equal(t, 7, cfg.Retention.Days)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_MissingRequiredFieldsAggregatesErrors(t *testing.T) {
	path := writeConfig(t, "log:\n  level: debug\n")

	_, err := Load(path)
	require.Error(t, err)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.GreaterOrEqual(t, len(cfgErr.Errors), 4)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, `
news:
  sources: ["reuters"]
  endpoints:
    reuters: "https://reuters.example/feed"
platforms:
  names: ["kalshi"]
  endpoints:
    kalshi: "https://kalshi.example/api"
storage:
  dsn: "postgres://x"
llm:
  api_key: "sk-test"
log:
  level: info
`)

	t.Setenv("LOG_LEVEL", "debug")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_UnknownPluginNameFailsValidation(t *testing.T) {
	path := writeConfig(t, `
news:
  sources: ["reuters", "bloomberg"]
  endpoints:
    reuters: "https://reuters.example/feed"
platforms:
  names: ["kalshi"]
  endpoints:
    kalshi: "https://kalshi.example/api"
storage:
  dsn: "postgres://x"
llm:
  api_key: "sk-test"
`)

	_, err := Load(path)
	require.Error(t, err)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Error(), `unknown source "bloomberg"`)
}

func TestRetentionWindow(t *testing.T) {
	cfg := &Config{Retention: RetentionConfig{Days: 7}}
	assert.Equal(t, 7*24, int(cfg.RetentionWindow().Hours()))
}
