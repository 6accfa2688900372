package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// yamlConfig represents the complete enrichpipe.yaml file structure.
type yamlConfig struct {
	Run          *RunConfig          `yaml:"run"`
	HTTP         *HTTPConfig         `yaml:"http"`
	Source       *SourceConfig       `yaml:"source"`
	Fulfillment  *FulfillmentConfig  `yaml:"fulfillment"`
	PDFExtractor *PDFExtractorConfig `yaml:"pdf_extractor"`
	IndexSink    *IndexSinkConfig    `yaml:"index_sink"`
	Registry     *RegistryConfig     `yaml:"registry"`
}

// Initialize loads, validates, and returns ready-to-use configuration. This
// is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load enrichpipe.yaml from configDir
//  2. Expand environment variables
//  3. Merge user config onto built-in defaults
//  4. Resolve secrets (token_env -> Token) from the environment
//  5. Validate all configuration
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	log.Info("configuration initialized successfully",
		"concurrency", cfg.Run.Concurrency,
		"http_port", cfg.HTTP.Port,
		"source_base_url", cfg.Source.BaseURL)

	return cfg, nil
}

func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{configDir: configDir}

	user, err := loader.loadYAMLConfig()
	if err != nil {
		return nil, NewLoadError("enrichpipe.yaml", err)
	}

	run := DefaultRunConfig()
	if user.Run != nil {
		if err := mergo.Merge(run, user.Run, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge run config: %w", err)
		}
	}

	httpCfg := defaultHTTPConfig()
	if user.HTTP != nil {
		if err := mergo.Merge(httpCfg, user.HTTP, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge http config: %w", err)
		}
	}

	source := resolveSourceConfig(user.Source)
	fulfillment := resolveFulfillmentConfig(user.Fulfillment)
	indexSink := resolveIndexSinkConfig(user.IndexSink)

	pdfExtractor := PDFExtractorConfig{}
	if user.PDFExtractor != nil {
		pdfExtractor = *user.PDFExtractor
	}

	registry := RegistryConfig{}
	if user.Registry != nil {
		registry = *user.Registry
	}

	return &Config{
		configDir:    configDir,
		Run:          *run,
		HTTP:         *httpCfg,
		Source:       source,
		Fulfillment:  fulfillment,
		PDFExtractor: pdfExtractor,
		IndexSink:    indexSink,
		Registry:     registry,
	}, nil
}

func validate(cfg *Config) error {
	validator := NewValidator(cfg)
	return validator.ValidateAll()
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAMLConfig() (*yamlConfig, error) {
	path := filepath.Join(l.configDir, "enrichpipe.yaml")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// An entirely absent config file is not fatal: every section
			// resolves to its built-in default, matching the teacher's
			// tolerance for a minimal tarsy.yaml.
			return &yamlConfig{}, nil
		}
		return nil, err
	}

	data = ExpandEnv(data)

	var cfg yamlConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return &cfg, nil
}

func defaultHTTPConfig() *HTTPConfig {
	return &HTTPConfig{Port: "8080", GinMode: "release"}
}

func resolveSourceConfig(user *SourceConfig) SourceConfig {
	cfg := SourceConfig{TokenEnv: "ENRICHPIPE_SOURCE_TOKEN"}
	if user != nil {
		if user.BaseURL != "" {
			cfg.BaseURL = user.BaseURL
		}
		if user.TokenEnv != "" {
			cfg.TokenEnv = user.TokenEnv
		}
	}
	cfg.Token = os.Getenv(cfg.TokenEnv)
	return cfg
}

func resolveFulfillmentConfig(user *FulfillmentConfig) FulfillmentConfig {
	cfg := FulfillmentConfig{TokenEnv: "ENRICHPIPE_FULFILLMENT_TOKEN", BudgetLimit: 100.0}
	if user != nil {
		if user.BaseURL != "" {
			cfg.BaseURL = user.BaseURL
		}
		if user.TokenEnv != "" {
			cfg.TokenEnv = user.TokenEnv
		}
		if user.BudgetLimit > 0 {
			cfg.BudgetLimit = user.BudgetLimit
		}
	}
	cfg.Token = os.Getenv(cfg.TokenEnv)
	return cfg
}

func resolveIndexSinkConfig(user *IndexSinkConfig) IndexSinkConfig {
	cfg := IndexSinkConfig{TokenEnv: "ENRICHPIPE_INDEX_TOKEN"}
	if user != nil {
		if user.BaseURL != "" {
			cfg.BaseURL = user.BaseURL
		}
		if user.TokenEnv != "" {
			cfg.TokenEnv = user.TokenEnv
		}
	}
	cfg.Token = os.Getenv(cfg.TokenEnv)
	return cfg
}
