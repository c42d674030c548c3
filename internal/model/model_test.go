package model

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialValid(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, Credential{AccessToken: "t", ExpiresAt: now.Add(time.Minute)}.Valid(now))
	assert.False(t, Credential{AccessToken: "t", ExpiresAt: now.Add(-time.Minute)}.Valid(now))
	// Expiry is exclusive: a token expiring exactly now is invalid.
	assert.False(t, Credential{AccessToken: "t", ExpiresAt: now}.Valid(now))
	// An empty token is never valid, whatever the expiry says.
	assert.False(t, Credential{ExpiresAt: now.Add(time.Hour)}.Valid(now))
}

func TestEmailPending(t *testing.T) {
	assert.True(t, Email{Category: ""}.Pending())
	assert.True(t, Email{Category: CategoryUncategorized}.Pending())
	assert.False(t, Email{Category: "order"}.Pending())
	assert.False(t, Email{Category: "other"}.Pending())
}

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "commerce", cfg.Taxonomy)
	assert.Equal(t, 20, cfg.Gmail.PageSize)
	assert.Equal(t, "gemini-1.5-flash", cfg.AI.Model)
	assert.Equal(t, 3, cfg.AI.MaxAttempts)
	assert.Equal(t, 1000, cfg.AI.BaseDelayMS)
	assert.NotEmpty(t, cfg.DataDir)
}

func TestLoadConfigOverridesAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("taxonomy: general\ngmail:\n  page_size: 50\nai:\n  model: gemini-1.5-pro\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "general", cfg.Taxonomy)
	assert.Equal(t, 50, cfg.Gmail.PageSize)
	assert.Equal(t, "gemini-1.5-pro", cfg.AI.Model)
	// Untouched keys keep their defaults.
	assert.Equal(t, 3, cfg.AI.MaxAttempts)
	assert.Equal(t, 1000, cfg.AI.BaseDelayMS)
}

func TestLoadConfigRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("taxonomy: [unterminated"), 0o600))

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestDBPath(t *testing.T) {
	cfg := AppConfig{DataDir: "/tmp/mt"}
	assert.Equal(t, filepath.Join("/tmp/mt", "mailtriage.db"), cfg.DBPath())
}
