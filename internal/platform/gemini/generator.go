// Package gemini implements the generation.Generator interface using
// Google's Gemini API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"text/template"
	"time"

	"google.golang.org/genai"

	"github.com/profilegen/profilegen-api/internal/config"
	"github.com/profilegen/profilegen-api/internal/generation"
)

// Generator produces position profiles through the Gemini API. It renders a
// prompt from a template, calls the model with exponential-backoff retries,
// and validates the structured JSON response before handing it back as an
// opaque payload.
type Generator struct {
	logger         *slog.Logger
	config         config.LLMConfig
	promptTemplate *template.Template
	client         *genai.Client
	model          string
}

// NewGenerator creates a Gemini-backed Generator from the LLM configuration.
// Returns generation.ErrInvalidConfig for missing or unreadable settings.
func NewGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.PromptTemplatePath == "" {
		return nil, fmt.Errorf("%w: prompt template path cannot be empty", generation.ErrInvalidConfig)
	}

	templateContent, err := os.ReadFile(cfg.PromptTemplatePath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read prompt template from %s: %v",
			generation.ErrInvalidConfig, cfg.PromptTemplatePath, err)
	}

	promptTemplate, err := template.New("profile").Parse(string(templateContent))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v",
			generation.ErrInvalidConfig, err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	return &Generator{
		logger:         logger,
		config:         cfg,
		promptTemplate: promptTemplate,
		client:         client,
		model:          cfg.ModelName,
	}, nil
}

// GenerateProfile implements generation.Generator.
func (g *Generator) GenerateProfile(ctx context.Context, req generation.Request) (json.RawMessage, error) {
	if req.Unit == nil || req.Position == nil {
		return nil, ErrNilRequest
	}

	prompt, err := g.renderPrompt(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
	}

	schema, err := g.callWithRetry(ctx, prompt)
	if err != nil {
		return nil, err
	}

	if err := validateProfile(schema); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to re-marshal profile: %v",
			generation.ErrInvalidResponse, err)
	}

	g.logger.InfoContext(ctx, "profile generated",
		"unit_path", req.Unit.PathKey(),
		"position", req.Position.Name,
		"context_document", req.ContextDocumentID)
	return payload, nil
}

// renderPrompt executes the template with the request data.
func (g *Generator) renderPrompt(req generation.Request) (string, error) {
	data := promptData{
		UnitName:          req.Unit.Name,
		UnitPath:          req.Unit.PathKey(),
		PositionName:      req.Position.Name,
		PositionCategory:  string(req.Position.Category),
		PositionSeniority: req.Position.Seniority,
		ContextDocumentID: req.ContextDocumentID,
	}

	var buf bytes.Buffer
	if err := g.promptTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	if buf.Len() == 0 {
		return "", ErrEmptyPrompt
	}
	return buf.String(), nil
}

// callWithRetry calls the Gemini API up to MaxRetries+1 times with
// exponential backoff and jitter. Permanent errors (blocked content,
// malformed responses) return immediately; only transient API failures are
// retried.
func (g *Generator) callWithRetry(ctx context.Context, prompt string) (*ProfileSchema, error) {
	maxRetries := g.config.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	baseDelay := time.Duration(g.config.RetryBaseDelayMs) * time.Millisecond
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	genCfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	for attempt := 0; ; attempt++ {
		g.logger.InfoContext(ctx, "calling Gemini API",
			"attempt", attempt+1,
			"max_attempts", maxRetries+1,
			"model", g.model)

		schema, transient, err := g.callOnce(ctx, prompt, genCfg)
		if err == nil {
			return schema, nil
		}

		g.logger.ErrorContext(ctx, "Gemini API call failed",
			"attempt", attempt+1,
			"transient", transient,
			"error", err)

		if !transient {
			return nil, err
		}
		if attempt >= maxRetries {
			return nil, fmt.Errorf("%w: exceeded maximum retry attempts (%d): %v",
				generation.ErrTransientFailure, maxRetries, err)
		}

		// delay = base * 2^attempt * jitter in [0.5, 1.0)
		backoff := float64(baseDelay) * math.Pow(2, float64(attempt))
		delay := time.Duration(backoff * (0.5 + rng.Float64()*0.5))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", generation.ErrTransientFailure, context.Cause(ctx))
		}
	}
}

// callOnce performs a single API call and classifies any failure as
// transient (retryable) or permanent.
func (g *Generator) callOnce(
	ctx context.Context,
	prompt string,
	cfg *genai.GenerateContentConfig,
) (*ProfileSchema, bool, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		// Network and server-side failures are assumed transient.
		return nil, true, fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, false, fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}
	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return nil, false, fmt.Errorf("%w: finish reason safety", generation.ErrContentBlocked)
	}

	text := resp.Text()
	if text == "" {
		return nil, false, fmt.Errorf("%w: empty response text", generation.ErrInvalidResponse)
	}

	var schema ProfileSchema
	if err := json.Unmarshal([]byte(text), &schema); err != nil {
		return nil, false, fmt.Errorf("%w: failed to parse JSON response: %v",
			generation.ErrInvalidResponse, err)
	}
	return &schema, false, nil
}

// validateProfile checks the minimum structure a usable profile must have.
func validateProfile(schema *ProfileSchema) error {
	if schema == nil {
		return fmt.Errorf("%w: response is nil", generation.ErrInvalidResponse)
	}
	if schema.Title == "" {
		return fmt.Errorf("%w: profile missing title", generation.ErrInvalidResponse)
	}
	if len(schema.Responsibilities) == 0 {
		return fmt.Errorf("%w: profile missing responsibilities", generation.ErrInvalidResponse)
	}
	return nil
}
