package gemini

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"text/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profilegen/profilegen-api/internal/config"
	"github.com/profilegen/profilegen-api/internal/domain"
	"github.com/profilegen/profilegen-api/internal/generation"
)

// writeTemplate drops a prompt template into a temp dir and returns its path.
func writeTemplate(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.tmpl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func validLLMConfig(t *testing.T) config.LLMConfig {
	return config.LLMConfig{
		GeminiAPIKey:       "test-key",
		ModelName:          "gemini-2.0-flash",
		PromptTemplatePath: writeTemplate(t, "Profile for {{.PositionName}} in {{.UnitPath}} using {{.ContextDocumentID}}"),
		MaxRetries:         1,
		RetryBaseDelayMs:   10,
	}
}

func TestNewGeneratorConfigValidation(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("nil logger", func(t *testing.T) {
		_, err := NewGenerator(ctx, nil, validLLMConfig(t))
		require.Error(t, err)
	})

	t.Run("missing api key", func(t *testing.T) {
		cfg := validLLMConfig(t)
		cfg.GeminiAPIKey = ""
		_, err := NewGenerator(ctx, logger, cfg)
		assert.ErrorIs(t, err, generation.ErrInvalidConfig)
	})

	t.Run("missing model name", func(t *testing.T) {
		cfg := validLLMConfig(t)
		cfg.ModelName = ""
		_, err := NewGenerator(ctx, logger, cfg)
		assert.ErrorIs(t, err, generation.ErrInvalidConfig)
	})

	t.Run("unreadable template", func(t *testing.T) {
		cfg := validLLMConfig(t)
		cfg.PromptTemplatePath = filepath.Join(t.TempDir(), "missing.tmpl")
		_, err := NewGenerator(ctx, logger, cfg)
		assert.ErrorIs(t, err, generation.ErrInvalidConfig)
	})

	t.Run("malformed template", func(t *testing.T) {
		cfg := validLLMConfig(t)
		cfg.PromptTemplatePath = writeTemplate(t, "{{.Unclosed")
		_, err := NewGenerator(ctx, logger, cfg)
		assert.ErrorIs(t, err, generation.ErrInvalidConfig)
	})
}

func TestRenderPrompt(t *testing.T) {
	t.Parallel()

	tmpl, err := template.New("profile").Parse(
		"Position {{.PositionName}} ({{.PositionCategory}}) at {{.UnitPath}}, KPI doc {{.ContextDocumentID}}")
	require.NoError(t, err)

	g := &Generator{logger: slog.Default(), promptTemplate: tmpl}

	req := generation.Request{
		Unit: &domain.BusinessUnit{
			Path: []string{"Horizon Group", "IT Block", "Infrastructure"},
			Name: "Infrastructure",
		},
		Position: &domain.Position{
			UnitPath: "Horizon Group / IT Block / Infrastructure",
			Name:     "Lead Engineer",
			Category: domain.CategoryTechnical,
		},
		ContextDocumentID: "kpi-infrastructure",
	}

	prompt, err := g.renderPrompt(req)
	require.NoError(t, err)
	assert.Contains(t, prompt, "Lead Engineer")
	assert.Contains(t, prompt, "Horizon Group / IT Block / Infrastructure")
	assert.Contains(t, prompt, "kpi-infrastructure")
	assert.Contains(t, prompt, "technical")
}

func TestGenerateProfileRejectsNilRequest(t *testing.T) {
	t.Parallel()

	g := &Generator{logger: slog.Default()}

	_, err := g.GenerateProfile(context.Background(), generation.Request{})
	assert.ErrorIs(t, err, ErrNilRequest)
}

func TestGenerateProfileWrapsRenderFailures(t *testing.T) {
	t.Parallel()

	// promptData has no NoSuchField, so execution fails at render time.
	tmpl, err := template.New("profile").Parse("{{.NoSuchField}}")
	require.NoError(t, err)

	g := &Generator{logger: slog.Default(), promptTemplate: tmpl}

	_, err = g.GenerateProfile(context.Background(), generation.Request{
		Unit:     &domain.BusinessUnit{Path: []string{"Horizon Group"}, Name: "Horizon Group"},
		Position: &domain.Position{UnitPath: "Horizon Group", Name: "Lead Engineer"},
	})
	assert.ErrorIs(t, err, generation.ErrGenerationFailed)
}

func TestValidateProfile(t *testing.T) {
	t.Parallel()

	valid := &ProfileSchema{
		Title:            "Lead Engineer",
		Mission:          "Keep the infrastructure running",
		Responsibilities: []string{"Operate the network core"},
	}
	assert.NoError(t, validateProfile(valid))

	assert.ErrorIs(t, validateProfile(nil), generation.ErrInvalidResponse)

	missingTitle := *valid
	missingTitle.Title = ""
	assert.ErrorIs(t, validateProfile(&missingTitle), generation.ErrInvalidResponse)

	empty := *valid
	empty.Responsibilities = nil
	assert.ErrorIs(t, validateProfile(&empty), generation.ErrInvalidResponse)
}
