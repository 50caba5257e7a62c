package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(orig) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, float64(10), cfg.Server.RateLimitRPS)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, float64(5), cfg.Listings.RateLimit)
	assert.Equal(t, 60, cfg.Cache.SweepIntervalSecs)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Vision.AnthropicModel)
	assert.Equal(t, "gpt-4o", cfg.Vision.OpenAIModel)
	assert.Equal(t, "gemini-2.0-flash", cfg.Vision.GeminiModel)
	assert.Equal(t, float64(20), cfg.Invest.DownPaymentPct)
	assert.Equal(t, 30, cfg.Invest.LoanTermYears)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  port: 9090
listings:
  key: file-key
  base_url: https://listings.internal
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
	chdir(t, dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "file-key", cfg.Listings.Key)
	assert.Equal(t, "https://listings.internal", cfg.Listings.BaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Unset keys keep their defaults.
	assert.Equal(t, float64(5), cfg.Listings.RateLimit)
}

func TestLoadFromEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("LEADGEN_VISION_ANTHROPIC_KEY", "env-key")
	t.Setenv("LEADGEN_SERVER_PORT", "7070")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.Vision.AnthropicKey)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("::: not yaml"), 0o644))
	chdir(t, dir)

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "shouting", Format: "json"}))
}
