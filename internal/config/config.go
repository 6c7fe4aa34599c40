// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Citeseek Contributors

// Package config loads and validates the citeseek configuration from
// file, environment, and defaults.
package config

import (
	"errors"
	"net"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	cserr "github.com/citeseek-dev/citeseek/pkg/errors"
)

// Config is the top-level citeseek configuration.
type Config struct {
	Networking NetworkingConfig          `mapstructure:"networking"`
	Index      IndexConfig               `mapstructure:"index"`
	Providers  map[string]ProviderConfig `mapstructure:"providers"`
	Models     ModelsConfig              `mapstructure:"models"`
	Gather     GatherConfig              `mapstructure:"gather"`
	Answer     AnswerConfig              `mapstructure:"answer"`
	Resilience ResilienceConfig          `mapstructure:"resilience"`
	Pricing    map[string]PricingConfig  `mapstructure:"pricing"`
}

// NetworkingConfig controls how the citeseek server listens.
type NetworkingConfig struct {
	Listen string `mapstructure:"listen"`
}

// IndexConfig selects and tunes the vector index backend.
type IndexConfig struct {
	Backend    string `mapstructure:"backend"`
	Path       string `mapstructure:"path"`
	Dimensions int    `mapstructure:"dimensions"`
}

// ProviderConfig holds credentials and endpoint for an LLM provider.
type ProviderConfig struct {
	APIKey   string `mapstructure:"api_key"`
	Endpoint string `mapstructure:"endpoint"`
}

// ModelsConfig selects the models for each pipeline role, in
// "provider/model" form.
type ModelsConfig struct {
	Summary   string `mapstructure:"summary"`
	Answer    string `mapstructure:"answer"`
	Embedding string `mapstructure:"embedding"`
}

// GatherConfig tunes evidence gathering.
type GatherConfig struct {
	EvidenceK      int     `mapstructure:"evidence_k"`
	Lambda         float64 `mapstructure:"lambda"`
	ScoreThreshold float64 `mapstructure:"score_threshold"`
	MaxConcurrency int     `mapstructure:"max_concurrency"`
}

// AnswerConfig tunes answer synthesis.
type AnswerConfig struct {
	MaxSources int `mapstructure:"max_sources"`
}

// ResilienceConfig tunes collaborator retry behavior.
type ResilienceConfig struct {
	MaxAttempts      int  `mapstructure:"max_attempts"`
	InitialBackoffMS int  `mapstructure:"initial_backoff_ms"`
	MaxBackoffMS     int  `mapstructure:"max_backoff_ms"`
	BreakerDisabled  bool `mapstructure:"breaker_disabled"`
}

// PricingConfig sets USD-per-million-token rates for a model, keyed by
// "provider/model".
type PricingConfig struct {
	InputPerMTokUSD  float64 `mapstructure:"input_per_mtok_usd"`
	OutputPerMTokUSD float64 `mapstructure:"output_per_mtok_usd"`
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix CITESEEK_).
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("networking.listen", "127.0.0.1:18990")
	v.SetDefault("index.backend", "sqlite")
	v.SetDefault("index.path", "citeseek.db")
	v.SetDefault("index.dimensions", 1536)
	v.SetDefault("models.summary", "openai/gpt-4o-mini")
	v.SetDefault("models.answer", "anthropic/claude-sonnet-4-5")
	v.SetDefault("models.embedding", "openai/text-embedding-3-small")
	v.SetDefault("gather.evidence_k", 10)
	v.SetDefault("gather.lambda", 0.9)
	v.SetDefault("gather.score_threshold", 0.0)
	v.SetDefault("gather.max_concurrency", 4)
	v.SetDefault("answer.max_sources", 5)
	v.SetDefault("resilience.max_attempts", 3)
	v.SetDefault("resilience.initial_backoff_ms", 250)
	v.SetDefault("resilience.max_backoff_ms", 5000)

	// Environment
	v.SetEnvPrefix("CITESEEK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// File
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, cserr.Errorf(cserr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, cserr.Errorf(cserr.CodeConfigValidateInvalidValue, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, cserr.Errorf(cserr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors, collecting all
// issues rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateNetworking()...)
	errs = append(errs, c.validateIndex()...)
	errs = append(errs, c.validateModels()...)
	errs = append(errs, c.validateGather()...)
	errs = append(errs, c.validateResilience()...)

	return errs
}

func (c *Config) validateNetworking() []error {
	var errs []error

	if c.Networking.Listen == "" {
		errs = append(errs, cserr.Errorf(cserr.CodeConfigValidateInvalidValue, "config: networking.listen must not be empty"))
		return errs
	}

	_, portStr, err := net.SplitHostPort(c.Networking.Listen)
	if err != nil {
		errs = append(errs, cserr.Errorf(cserr.CodeConfigValidateInvalidValue,
			"config: networking.listen must be a valid host:port address, got %q: %w",
			c.Networking.Listen, err,
		))
		return errs
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		errs = append(errs, cserr.Errorf(cserr.CodeConfigValidateInvalidValue,
			"config: networking.listen port must be a number, got %q",
			portStr,
		))
	} else if port < 1 || port > 65535 {
		errs = append(errs, cserr.Errorf(cserr.CodeConfigValidateInvalidValue,
			"config: networking.listen port must be between 1 and 65535, got %d",
			port,
		))
	}

	return errs
}

func (c *Config) validateIndex() []error {
	var errs []error

	validBackends := map[string]bool{"sqlite": true, "memory": true}
	if !validBackends[c.Index.Backend] {
		errs = append(errs, cserr.Errorf(cserr.CodeConfigValidateInvalidValue,
			"config: index.backend must be one of [sqlite, memory], got %q",
			c.Index.Backend,
		))
	}

	if c.Index.Backend == "sqlite" && c.Index.Path == "" {
		errs = append(errs, cserr.Errorf(cserr.CodeConfigValidateInvalidValue, "config: index.path must not be empty for the sqlite backend"))
	}

	if c.Index.Dimensions <= 0 {
		errs = append(errs, cserr.Errorf(cserr.CodeConfigValidateInvalidValue,
			"config: index.dimensions must be greater than 0, got %d",
			c.Index.Dimensions,
		))
	}

	return errs
}

func (c *Config) validateModels() []error {
	var errs []error

	for _, ref := range []struct {
		key   string
		value string
	}{
		{"models.summary", c.Models.Summary},
		{"models.answer", c.Models.Answer},
		{"models.embedding", c.Models.Embedding},
	} {
		if ref.value == "" {
			errs = append(errs, cserr.Errorf(cserr.CodeConfigValidateInvalidValue,
				"config: %s must not be empty", ref.key))
			continue
		}
		if !strings.Contains(ref.value, "/") {
			errs = append(errs, cserr.Errorf(cserr.CodeConfigValidateInvalidValue,
				"config: %s must be in \"provider/model\" format, got %q",
				ref.key, ref.value,
			))
			continue
		}
		if c.Providers != nil {
			// Only cross-reference providers when the providers section
			// exists; a nil map means defaults only, which is valid.
			providerName := providerFromModel(ref.value)
			if _, ok := c.Providers[providerName]; !ok {
				errs = append(errs, cserr.Errorf(cserr.CodeConfigValidateInvalidValue,
					"config: %s %q references provider %q which is not configured",
					ref.key, ref.value, providerName,
				))
			}
		}
	}

	return errs
}

func (c *Config) validateGather() []error {
	var errs []error

	if c.Gather.EvidenceK <= 0 {
		errs = append(errs, cserr.Errorf(cserr.CodeConfigValidateInvalidValue,
			"config: gather.evidence_k must be greater than 0, got %d",
			c.Gather.EvidenceK,
		))
	}

	// lambda 0 is valid: pure-diversity MMR selection.
	if c.Gather.Lambda < 0 || c.Gather.Lambda > 1 {
		errs = append(errs, cserr.Errorf(cserr.CodeConfigValidateInvalidValue,
			"config: gather.lambda must be in [0, 1], got %g",
			c.Gather.Lambda,
		))
	}

	if c.Gather.ScoreThreshold < 0 || c.Gather.ScoreThreshold > 10 {
		errs = append(errs, cserr.Errorf(cserr.CodeConfigValidateInvalidValue,
			"config: gather.score_threshold must be in [0, 10], got %g",
			c.Gather.ScoreThreshold,
		))
	}

	if c.Gather.MaxConcurrency <= 0 {
		errs = append(errs, cserr.Errorf(cserr.CodeConfigValidateInvalidValue,
			"config: gather.max_concurrency must be greater than 0, got %d",
			c.Gather.MaxConcurrency,
		))
	}

	if c.Answer.MaxSources <= 0 {
		errs = append(errs, cserr.Errorf(cserr.CodeConfigValidateInvalidValue,
			"config: answer.max_sources must be greater than 0, got %d",
			c.Answer.MaxSources,
		))
	}

	return errs
}

func (c *Config) validateResilience() []error {
	var errs []error

	if c.Resilience.MaxAttempts <= 0 {
		errs = append(errs, cserr.Errorf(cserr.CodeConfigValidateInvalidValue,
			"config: resilience.max_attempts must be greater than 0, got %d",
			c.Resilience.MaxAttempts,
		))
	}

	return errs
}

// PricingFor returns the configured pricing for a "provider/model"
// reference, or zero pricing when none is configured.
func (c *Config) PricingFor(modelRef string) PricingConfig {
	return c.Pricing[modelRef]
}

// providerFromModel extracts the provider prefix from a "provider/model" string.
func providerFromModel(model string) string {
	if idx := strings.Index(model, "/"); idx > 0 {
		return model[:idx]
	}
	return model
}
