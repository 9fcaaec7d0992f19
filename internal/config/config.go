// Package config loads and validates application configuration from
// environment variables and optional config files.
package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm"      validate:"required"`
	Org      OrgConfig      `mapstructure:"org"      validate:"required"`
	Task     TaskConfig     `mapstructure:"task"     validate:"required"`
}

// ServerConfig contains all HTTP server related settings.
type ServerConfig struct {
	Port                   int    `mapstructure:"port"                     validate:"required,gt=0,lt=65536"`
	LogLevel               string `mapstructure:"log_level"                validate:"required,oneof=debug info warn error"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds" validate:"gte=0"`
}

// DatabaseConfig contains all database related settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// LLMConfig contains all settings for the profile generation model.
type LLMConfig struct {
	GeminiAPIKey       string `mapstructure:"gemini_api_key"       validate:"required"`
	ModelName          string `mapstructure:"model_name"           validate:"required"`
	PromptTemplatePath string `mapstructure:"prompt_template_path" validate:"required"`
	MaxRetries         int    `mapstructure:"max_retries"          validate:"gte=0,lte=10"`
	RetryBaseDelayMs   int    `mapstructure:"retry_base_delay_ms"  validate:"gte=0"`
}

// OrgConfig points at the curated organization data files loaded at startup.
type OrgConfig struct {
	HierarchyPath  string `mapstructure:"hierarchy_path"   validate:"required"`
	KPICatalogPath string `mapstructure:"kpi_catalog_path" validate:"required"`
	BlockTablePath string `mapstructure:"block_table_path" validate:"required"`
}

// TaskConfig tunes the generation task orchestrator.
type TaskConfig struct {
	MaxConcurrent  int `mapstructure:"max_concurrent"  validate:"required,gt=0"`
	TimeoutSeconds int `mapstructure:"timeout_seconds" validate:"required,gt=0"`
}
