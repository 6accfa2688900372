// Package config loads enrichpipe's layered configuration: a YAML file for
// structural settings (endpoints, concurrency, registry overlays) with
// environment-variable expansion for secrets, mirroring the teacher's
// pkg/config package.
package config

import "time"

// Config is the umbrella configuration object returned by Initialize,
// wiring every external collaborator the runner needs.
type Config struct {
	configDir string

	Run          RunConfig
	HTTP         HTTPConfig
	Source       SourceConfig
	Fulfillment  FulfillmentConfig
	PDFExtractor PDFExtractorConfig
	IndexSink    IndexSinkConfig
	Registry     RegistryConfig
}

// ConfigDir returns the configuration directory path.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// RunConfig holds the `run` section (spec.md §5). Only Concurrency is passed
// to the orchestrator (cmd/enrichpipe/main.go). RateLimitThreshold,
// RateLimitSleep and DefaultMaxRecords are loaded and validated, but the
// runner uses its own RateLimitThreshold and RateLimitSleep constants and
// does not read DefaultMaxRecords.
type RunConfig struct {
	Concurrency        int           `yaml:"concurrency"`
	RateLimitThreshold int           `yaml:"rate_limit_threshold"`
	RateLimitSleep     time.Duration `yaml:"rate_limit_sleep"`
	DefaultMaxRecords  int           `yaml:"default_max_records"`
}

// DefaultRunConfig returns the built-in run defaults, matching
// pkg/runner's own constants so an empty enrichpipe.yaml still behaves
// sensibly.
func DefaultRunConfig() *RunConfig {
	return &RunConfig{
		Concurrency:        5,
		RateLimitThreshold: 10,
		RateLimitSleep:     2 * time.Second,
		DefaultMaxRecords:  0, // 0 means unbounded
	}
}

// HTTPConfig controls the Gin HTTP surface (pkg/apihttp).
type HTTPConfig struct {
	Port    string `yaml:"port"`
	GinMode string `yaml:"gin_mode"`
}

// SourceConfig configures the upstream DocumentSource (pkg/source).
type SourceConfig struct {
	BaseURL  string `yaml:"base_url"`
	TokenEnv string `yaml:"token_env"`
	Token    string `yaml:"-"` // resolved from TokenEnv at load time
}

// FulfillmentConfig configures the paid-source purchase flow (pkg/source).
type FulfillmentConfig struct {
	BaseURL     string  `yaml:"base_url"`
	TokenEnv    string  `yaml:"token_env"`
	Token       string  `yaml:"-"`
	BudgetLimit float64 `yaml:"budget_limit"`
}

// PDFExtractorConfig configures the PDF-to-text extraction service.
type PDFExtractorConfig struct {
	BaseURL string `yaml:"base_url"`
}

// IndexSinkConfig configures the downstream search/vector index handoff.
type IndexSinkConfig struct {
	BaseURL  string `yaml:"base_url"`
	TokenEnv string `yaml:"token_env"`
	Token    string `yaml:"-"`
}

// RegistryConfig locates the optional YAML overlay for the court, reporter,
// and judge-initials registries (pkg/registry).
type RegistryConfig struct {
	OverlayPath string `yaml:"overlay_path"`
}
