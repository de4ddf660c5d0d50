// Package config holds the YAML configuration of the textclf tool.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DataConfig locates the labelled CSV and its columns.
type DataConfig struct {
	Path         string  `yaml:"path"` // empty = search the default locations
	TextColumn   string  `yaml:"text_column,omitempty"`
	TargetColumn string  `yaml:"target_column,omitempty"`
	TestFraction float64 `yaml:"test_fraction"`
	SplitSeed    int64   `yaml:"split_seed"`
}

// RemoteEmbedderConfig configures the HTTP embedder.
type RemoteEmbedderConfig struct {
	API         string  `yaml:"api"` // "openai" or "ollama"
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	Dimensions  int     `yaml:"dimensions,omitempty"`
	TimeoutSecs int     `yaml:"timeout_secs"`
	BatchSize   int     `yaml:"batch_size"`
	Concurrency int     `yaml:"concurrency"`
	RateLimit   float64 `yaml:"rate_limit"` // requests per second, 0 = unlimited
}

// EmbedderConfig selects and configures the sentence encoder.
type EmbedderConfig struct {
	Type       string                `yaml:"type"` // "hashing", "tfidf" or "remote"
	Dimensions int                   `yaml:"dimensions"`
	CacheSize  int                   `yaml:"cache_size"` // 0 disables the cache
	Remote     *RemoteEmbedderConfig `yaml:"remote,omitempty"`

	// tfidf only
	MinDocFreq int  `yaml:"min_doc_freq"`
	Bigrams    bool `yaml:"bigrams"`
}

// TrainingConfig holds the hyperparameters of the epoch-based run.
type TrainingConfig struct {
	Epochs       int     `yaml:"epochs"`
	BatchSize    int     `yaml:"batch_size"`
	Seed         int64   `yaml:"seed"`
	Dropout      float64 `yaml:"dropout"`
	LearningRate float64 `yaml:"learning_rate"`
	Optimizer    string  `yaml:"optimizer"`
	ReportEvery  int     `yaml:"report_every"`
}

// ToyConfig holds the hyperparameters of the inline toy run.
type ToyConfig struct {
	Steps        int     `yaml:"steps"`
	Dropout      float64 `yaml:"dropout"`
	LearningRate float64 `yaml:"learning_rate"`
	Seed         int64   `yaml:"seed"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// OutputConfig holds optional artifacts written after training.
type OutputConfig struct {
	LossPlot string `yaml:"loss_plot,omitempty"`
}

// Config is the root configuration.
type Config struct {
	Data     DataConfig     `yaml:"data"`
	Embedder EmbedderConfig `yaml:"embedder"`
	Training TrainingConfig `yaml:"training"`
	Toy      ToyConfig      `yaml:"toy"`
	Logger   LoggerConfig   `yaml:"logger"`
	Output   OutputConfig   `yaml:"output"`
}

// Defaults returns the configuration used when no file is given.
func Defaults() *Config {
	cfg := &Config{
		Data: DataConfig{TestFraction: 0.15, SplitSeed: 42},
		Embedder: EmbedderConfig{
			Type:       "hashing",
			Dimensions: 384,
			CacheSize:  4096,
		},
		Training: TrainingConfig{
			Epochs:       30,
			BatchSize:    16,
			Seed:         123,
			Dropout:      0.1,
			LearningRate: 1e-3,
			Optimizer:    "adam",
			ReportEvery:  100,
		},
		Toy: ToyConfig{
			Steps:        10,
			Dropout:      0.01,
			LearningRate: 1e-3,
			Seed:         123,
		},
		Logger: LoggerConfig{Level: "info", Format: "text", Output: "stderr"},
	}
	return cfg
}

// Load reads a config from path. If the file does not exist, it returns the
// defaults. Values absent from the file keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, path, err)
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

// Save writes the config to path, creating directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadEnv loads KEY=VALUE pairs from the given .env files into the process
// environment. Missing files are ignored; existing variables are not replaced.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load env %s: %w", p, err)
		}
	}
	return nil
}

// ApplyDefaults fills the settings that depend on other fields, such as the
// remote embedder section once embedder.type is "remote". Load calls it; call
// it again after overriding fields in code.
func ApplyDefaults(cfg *Config) {
	if cfg.Embedder.Type == "remote" {
		if cfg.Embedder.Remote == nil {
			cfg.Embedder.Remote = &RemoteEmbedderConfig{}
		}
		r := cfg.Embedder.Remote
		if r.API == "" {
			r.API = "ollama"
		}
		if r.BaseURL == "" {
			if r.API == "openai" {
				r.BaseURL = "https://api.openai.com/v1"
			} else {
				r.BaseURL = "http://localhost:11434"
			}
		}
		if r.APIKeyEnv == "" && r.API == "openai" {
			r.APIKeyEnv = "OPENAI_API_KEY"
		}
		if r.Model == "" {
			if r.API == "openai" {
				r.Model = "text-embedding-3-small"
			} else {
				r.Model = "nomic-embed-text"
			}
		}
		if r.TimeoutSecs == 0 {
			r.TimeoutSecs = 60
		}
		if r.BatchSize == 0 {
			r.BatchSize = 32
		}
		if r.Concurrency == 0 {
			r.Concurrency = 4
		}
	}
	if cfg.Logger.Output == "" {
		cfg.Logger.Output = "stderr"
	}
}
