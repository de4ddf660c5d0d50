package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfig is matched by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// Unwrap makes errors.Is(err, ErrInvalidConfig) hold.
func (v *ValidationError) Unwrap() error { return ErrInvalidConfig }

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg before any computation starts. It returns a
// *ValidationError listing every problem found.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateData(cfg, ve)
	validateEmbedder(cfg, ve)
	validateTraining(cfg, ve)
	validateToy(cfg, ve)
	validateLogger(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateData(cfg *Config, ve *ValidationError) {
	if cfg.Data.TestFraction <= 0 || cfg.Data.TestFraction >= 1 {
		ve.Add("data.test_fraction must be in (0, 1), got %v", cfg.Data.TestFraction)
	}
}

var validEmbedderTypes = map[string]bool{
	"hashing": true,
	"tfidf":   true,
	"remote":  true,
}

func validateEmbedder(cfg *Config, ve *ValidationError) {
	e := cfg.Embedder
	if !validEmbedderTypes[e.Type] {
		ve.Add("embedder.type %q is not one of hashing, tfidf, remote", e.Type)
	}
	if e.Dimensions < 0 {
		ve.Add("embedder.dimensions must be >= 0")
	}
	if e.CacheSize < 0 {
		ve.Add("embedder.cache_size must be >= 0")
	}
	if e.MinDocFreq < 0 {
		ve.Add("embedder.min_doc_freq must be >= 0")
	}
	if e.Type == "remote" {
		if e.Remote == nil {
			ve.Add("embedder.remote is required when embedder.type is remote")
			return
		}
		if e.Remote.API != "openai" && e.Remote.API != "ollama" {
			ve.Add("embedder.remote.api %q is not one of openai, ollama", e.Remote.API)
		}
		if e.Remote.Model == "" {
			ve.Add("embedder.remote.model must not be empty")
		}
		if e.Remote.RateLimit < 0 {
			ve.Add("embedder.remote.rate_limit must be >= 0")
		}
	}
}

func validateTraining(cfg *Config, ve *ValidationError) {
	t := cfg.Training
	if t.Epochs <= 0 {
		ve.Add("training.epochs must be > 0")
	}
	if t.BatchSize <= 0 {
		ve.Add("training.batch_size must be > 0")
	}
	if t.Dropout < 0 || t.Dropout >= 1 {
		ve.Add("training.dropout must be in [0, 1), got %v", t.Dropout)
	}
	if t.LearningRate <= 0 {
		ve.Add("training.learning_rate must be > 0")
	}
	if t.Optimizer != "adam" && t.Optimizer != "sgd" {
		ve.Add("training.optimizer %q is not one of adam, sgd", t.Optimizer)
	}
	if t.ReportEvery <= 0 {
		ve.Add("training.report_every must be > 0")
	}
}

func validateToy(cfg *Config, ve *ValidationError) {
	if cfg.Toy.Steps <= 0 {
		ve.Add("toy.steps must be > 0")
	}
	if cfg.Toy.Dropout < 0 || cfg.Toy.Dropout >= 1 {
		ve.Add("toy.dropout must be in [0, 1), got %v", cfg.Toy.Dropout)
	}
	if cfg.Toy.LearningRate <= 0 {
		ve.Add("toy.learning_rate must be > 0")
	}
}

func validateLogger(cfg *Config, ve *ValidationError) {
	switch strings.ToLower(cfg.Logger.Format) {
	case "", "text", "json":
	default:
		ve.Add("logger.format %q is not one of text, json", cfg.Logger.Format)
	}
	switch strings.ToLower(cfg.Logger.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		ve.Add("logger.level %q is not one of debug, info, warn, error", cfg.Logger.Level)
	}
}
