package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"HTTP_PORT", "RPC_PORT", "DATABASE_URL", "INGRESS_URL",
		"ANTHROPIC_API_KEY", "ANTHROPIC_BASE_URL", "ANTHROPIC_MODEL",
		"OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_MODEL",
		"BACKEND_TIMEOUT_MS", "DEDUPE_INFLIGHT", "AGENTENGINE_MODE",
		"AGENTENGINE_CONFIG", "LOG_LEVEL", "STALE_RUN_AFTER_MS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 2*time.Minute, cfg.BackendTimeout)
	assert.True(t, cfg.DedupeInflight)
	assert.Equal(t, 5*time.Minute, cfg.StaleRunAfter)
	assert.False(t, cfg.Anthropic.Configured())
	assert.False(t, cfg.OpenAI.Configured())
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("BACKEND_TIMEOUT_MS", "1500")
	t.Setenv("DEDUPE_INFLIGHT", "false")
	t.Setenv("AGENTENGINE_MODE", "mock")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.OpenAI.Configured())
	assert.Equal(t, 1500*time.Millisecond, cfg.BackendTimeout)
	assert.False(t, cfg.DedupeInflight)
	assert.Equal(t, ModeMock, cfg.Mode)
	assert.Equal(t, 3*time.Second+time.Minute, cfg.StaleRunAfter)
}

func TestLoadYAMLOverlay(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database_url: "file:overlay.db"
backend_timeout: 45s
provider_policy: |
  package provider_policy
  default provider = "openai"
providers:
  anthropic:
    api_key: file-key
    model: file-model
  openai:
    api_key: other
`), 0o600))
	t.Setenv("AGENTENGINE_CONFIG", path)
	t.Setenv("ANTHROPIC_API_KEY", "env-key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "file:overlay.db", cfg.DatabaseURL)
	assert.Equal(t, 45*time.Second, cfg.BackendTimeout)
	assert.Equal(t, "env-key", cfg.Anthropic.APIKey)
	assert.Equal(t, "file-model", cfg.Anthropic.Model)
	assert.Equal(t, "other", cfg.OpenAI.APIKey)
	assert.Contains(t, cfg.ProviderPolicy, "package provider_policy")
}

func TestLoadYAMLErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv("AGENTENGINE_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend_timeout: soon\n"), 0o600))
	t.Setenv("AGENTENGINE_CONFIG", path)
	_, err = Load()
	assert.Error(t, err)
}
