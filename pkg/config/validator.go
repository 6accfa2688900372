package config

import (
	"fmt"
	"net/url"
)

// Validator validates configuration comprehensively with clear error
// messages, grounded on the teacher's fail-fast, one-section-at-a-time
// Validator.
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll performs comprehensive validation, fail-fast — stops at the
// first error.
func (v *Validator) ValidateAll() error {
	if err := v.validateRun(); err != nil {
		return fmt.Errorf("run validation failed: %w", err)
	}
	if err := v.validateHTTP(); err != nil {
		return fmt.Errorf("http validation failed: %w", err)
	}
	if err := v.validateSource(); err != nil {
		return fmt.Errorf("source validation failed: %w", err)
	}
	if err := v.validateFulfillment(); err != nil {
		return fmt.Errorf("fulfillment validation failed: %w", err)
	}
	if err := v.validateIndexSink(); err != nil {
		return fmt.Errorf("index_sink validation failed: %w", err)
	}
	return nil
}

func (v *Validator) validateRun() error {
	run := v.cfg.Run
	if run.Concurrency < 1 {
		return NewValidationError("run", "concurrency", fmt.Errorf("must be at least 1, got %d", run.Concurrency))
	}
	if run.RateLimitThreshold < 0 {
		return NewValidationError("run", "rate_limit_threshold", fmt.Errorf("must be non-negative, got %d", run.RateLimitThreshold))
	}
	if run.RateLimitSleep < 0 {
		return NewValidationError("run", "rate_limit_sleep", fmt.Errorf("must be non-negative, got %v", run.RateLimitSleep))
	}
	if run.DefaultMaxRecords < 0 {
		return NewValidationError("run", "default_max_records", fmt.Errorf("must be non-negative, got %d", run.DefaultMaxRecords))
	}
	return nil
}

func (v *Validator) validateHTTP() error {
	if v.cfg.HTTP.Port == "" {
		return NewValidationError("http", "port", ErrMissingRequiredField)
	}
	switch v.cfg.HTTP.GinMode {
	case "release", "debug", "test":
	default:
		return NewValidationError("http", "gin_mode", fmt.Errorf("must be one of release, debug, test, got %q", v.cfg.HTTP.GinMode))
	}
	return nil
}

func (v *Validator) validateSource() error {
	return validateBaseURL("source", v.cfg.Source.BaseURL)
}

func (v *Validator) validateFulfillment() error {
	if v.cfg.Fulfillment.BaseURL == "" {
		// Fulfillment is optional: not every deployment buys documents from
		// a paid source (spec.md §9's purchase flow is conditional on a
		// fulfillment client being wired at all).
		return nil
	}
	if err := validateBaseURL("fulfillment", v.cfg.Fulfillment.BaseURL); err != nil {
		return err
	}
	if v.cfg.Fulfillment.BudgetLimit <= 0 {
		return NewValidationError("fulfillment", "budget_limit", fmt.Errorf("must be positive, got %v", v.cfg.Fulfillment.BudgetLimit))
	}
	return nil
}

func (v *Validator) validateIndexSink() error {
	if v.cfg.IndexSink.BaseURL == "" {
		return nil
	}
	return validateBaseURL("index_sink", v.cfg.IndexSink.BaseURL)
}

func validateBaseURL(section, raw string) error {
	if raw == "" {
		return NewValidationError(section, "base_url", ErrMissingRequiredField)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return NewValidationError(section, "base_url", fmt.Errorf("not a valid absolute URL: %q", raw))
	}
	return nil
}
