package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setRequiredEnv populates the minimum environment for a valid config.
func setRequiredEnv(t *testing.T) {
	t.Setenv("PROFILEGEN_DATABASE_URL", "postgres://localhost:5432/profilegen")
	t.Setenv("PROFILEGEN_LLM_GEMINI_API_KEY", "test-api-key")
	t.Setenv("PROFILEGEN_LLM_PROMPT_TEMPLATE_PATH", "prompts/profile.tmpl")
	t.Setenv("PROFILEGEN_ORG_HIERARCHY_PATH", "data/hierarchy.yaml")
	t.Setenv("PROFILEGEN_ORG_KPI_CATALOG_PATH", "data/kpi_catalog.yaml")
	t.Setenv("PROFILEGEN_ORG_BLOCK_TABLE_PATH", "data/block_table.yaml")
}

func TestLoadFromEnvironment(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PROFILEGEN_SERVER_PORT", "9090")
	t.Setenv("PROFILEGEN_SERVER_LOG_LEVEL", "debug")
	t.Setenv("PROFILEGEN_TASK_TIMEOUT_SECONDS", "120")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, 120, cfg.Task.TimeoutSeconds)
	assert.Equal(t, "test-api-key", cfg.LLM.GeminiAPIKey)
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, 8, cfg.Task.MaxConcurrent)
	assert.Equal(t, 300, cfg.Task.TimeoutSeconds)
	assert.Equal(t, 3, cfg.LLM.MaxRetries)
}

func TestLoadRejectsMissingSecrets(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PROFILEGEN_LLM_GEMINI_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	setRequiredEnv(t)

	cases := map[string]struct {
		key   string
		value string
	}{
		"port out of range":  {"PROFILEGEN_SERVER_PORT", "70000"},
		"unknown log level":  {"PROFILEGEN_SERVER_LOG_LEVEL", "verbose"},
		"non-positive limit": {"PROFILEGEN_TASK_MAX_CONCURRENT", "0"},
		"malformed db url":   {"PROFILEGEN_DATABASE_URL", "not a url"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tc.key, tc.value)

			_, err := Load()
			require.Error(t, err)
		})
	}
}
