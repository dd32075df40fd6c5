// Package config provides configuration management for Paceline.
// Settings are resolved in three layers: built-in defaults, an optional YAML
// config file, then environment variables with the PACELINE_ prefix (highest
// precedence). A .env file in the working directory is loaded into the
// environment first, mirroring how the upstream exporter scripts handle
// credentials.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrMissingCredential indicates a required credential or setting is absent.
// Validation runs before any network or storage I/O so a misconfigured run
// fails immediately with an actionable message.
var ErrMissingCredential = errors.New("missing required configuration")

// Config holds all configuration for the Paceline application.
type Config struct {
	Storage StorageConfig
	LLM     LLMConfig
	Ingest  IngestConfig
	Query   QueryConfig
}

// StorageConfig contains vector store configuration.
type StorageConfig struct {
	Engine      string // storage engine: sqlite, postgres (default: sqlite)
	DataPath    string // sqlite data directory (default: ./data)
	PostgresDSN string // postgres connection string, required when Engine is postgres
	Collection  string // vector collection name (default: activity-summaries)
}

// LLMConfig contains model provider configuration.
type LLMConfig struct {
	Provider             string // llm provider: ollama, openai, anthropic (default: ollama)
	OpenAIAPIKey         string
	OpenAIModel          string // default applied by the client: gpt-4o-mini
	EmbeddingModel       string // OpenAI embedding model (default: text-embedding-3-small)
	OllamaURL            string // default applied by the client: http://localhost:11434
	OllamaModel          string
	OllamaEmbeddingModel string // default: nomic-embed-text
	AnthropicAPIKey      string
	AnthropicModel       string
}

// IngestConfig contains batch pipeline tuning.
type IngestConfig struct {
	DataDir        string        // CSV source directory (default: ./garmin_data)
	Workers        int           // embedding worker pool size (default: 4)
	BatchSize      int           // texts per embedding call (default: 16)
	RatePerSec     float64       // embedding request rate cap (default: 5)
	MaxRetries     int           // attempts per provider call (default: 3)
	RetryBaseDelay time.Duration // first backoff delay (default: 500ms)
}

// QueryConfig contains query path defaults.
type QueryConfig struct {
	TopK int // summaries retrieved per question (default: 5)
}

// fileConfig mirrors Config for YAML decoding.
type fileConfig struct {
	Storage struct {
		Engine      string `yaml:"engine"`
		DataPath    string `yaml:"data_path"`
		PostgresDSN string `yaml:"postgres_dsn"`
		Collection  string `yaml:"collection"`
	} `yaml:"storage"`
	LLM struct {
		Provider             string `yaml:"provider"`
		OpenAIModel          string `yaml:"openai_model"`
		EmbeddingModel       string `yaml:"embedding_model"`
		OllamaURL            string `yaml:"ollama_url"`
		OllamaModel          string `yaml:"ollama_model"`
		OllamaEmbeddingModel string `yaml:"ollama_embedding_model"`
		AnthropicModel       string `yaml:"anthropic_model"`
	} `yaml:"llm"`
	Ingest struct {
		DataDir    string  `yaml:"data_dir"`
		Workers    int     `yaml:"workers"`
		BatchSize  int     `yaml:"batch_size"`
		RatePerSec float64 `yaml:"rate_per_sec"`
		MaxRetries int     `yaml:"max_retries"`
	} `yaml:"ingest"`
	Query struct {
		TopK int `yaml:"top_k"`
	} `yaml:"query"`
}

// Load resolves the full configuration. The YAML file is looked up at
// PACELINE_CONFIG_FILE, then ./paceline.yaml; a missing file is not an error.
// API keys are accepted only from the environment, never from the file.
func Load() (*Config, error) {
	// Hydrate the environment from .env if present (ignored when absent).
	_ = godotenv.Load()

	cfg := defaults()

	path := os.Getenv("PACELINE_CONFIG_FILE")
	if path == "" {
		path = "paceline.yaml"
	}
	if err := cfg.applyFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Storage: StorageConfig{
			Engine:     "sqlite",
			DataPath:   "./data",
			Collection: "activity-summaries",
		},
		LLM: LLMConfig{
			Provider: "ollama",
		},
		Ingest: IngestConfig{
			DataDir:        "./garmin_data",
			Workers:        4,
			BatchSize:      16,
			RatePerSec:     5,
			MaxRetries:     3,
			RetryBaseDelay: 500 * time.Millisecond,
		},
		Query: QueryConfig{
			TopK: 5,
		},
	}
}

// applyFile overlays settings from a YAML file onto the config.
// A missing file is silently skipped; a malformed one is an error.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	overlayString(&c.Storage.Engine, fc.Storage.Engine)
	overlayString(&c.Storage.DataPath, fc.Storage.DataPath)
	overlayString(&c.Storage.PostgresDSN, fc.Storage.PostgresDSN)
	overlayString(&c.Storage.Collection, fc.Storage.Collection)
	overlayString(&c.LLM.Provider, fc.LLM.Provider)
	overlayString(&c.LLM.OpenAIModel, fc.LLM.OpenAIModel)
	overlayString(&c.LLM.EmbeddingModel, fc.LLM.EmbeddingModel)
	overlayString(&c.LLM.OllamaURL, fc.LLM.OllamaURL)
	overlayString(&c.LLM.OllamaModel, fc.LLM.OllamaModel)
	overlayString(&c.LLM.OllamaEmbeddingModel, fc.LLM.OllamaEmbeddingModel)
	overlayString(&c.LLM.AnthropicModel, fc.LLM.AnthropicModel)
	overlayString(&c.Ingest.DataDir, fc.Ingest.DataDir)
	overlayInt(&c.Ingest.Workers, fc.Ingest.Workers)
	overlayInt(&c.Ingest.BatchSize, fc.Ingest.BatchSize)
	if fc.Ingest.RatePerSec > 0 {
		c.Ingest.RatePerSec = fc.Ingest.RatePerSec
	}
	overlayInt(&c.Ingest.MaxRetries, fc.Ingest.MaxRetries)
	overlayInt(&c.Query.TopK, fc.Query.TopK)
	return nil
}

// applyEnv overlays PACELINE_* environment variables, the highest-precedence
// layer.
func (c *Config) applyEnv() {
	overlayString(&c.Storage.Engine, os.Getenv("PACELINE_STORAGE_ENGINE"))
	overlayString(&c.Storage.DataPath, os.Getenv("PACELINE_DATA_PATH"))
	overlayString(&c.Storage.PostgresDSN, os.Getenv("PACELINE_POSTGRES_DSN"))
	overlayString(&c.Storage.Collection, os.Getenv("PACELINE_COLLECTION"))

	overlayString(&c.LLM.Provider, os.Getenv("PACELINE_LLM_PROVIDER"))
	overlayString(&c.LLM.OpenAIAPIKey, firstEnv("PACELINE_OPENAI_API_KEY", "OPENAI_API_KEY"))
	overlayString(&c.LLM.OpenAIModel, os.Getenv("PACELINE_OPENAI_MODEL"))
	overlayString(&c.LLM.EmbeddingModel, os.Getenv("PACELINE_EMBEDDING_MODEL"))
	overlayString(&c.LLM.OllamaURL, os.Getenv("PACELINE_OLLAMA_URL"))
	overlayString(&c.LLM.OllamaModel, os.Getenv("PACELINE_OLLAMA_MODEL"))
	overlayString(&c.LLM.OllamaEmbeddingModel, os.Getenv("PACELINE_OLLAMA_EMBEDDING_MODEL"))
	overlayString(&c.LLM.AnthropicAPIKey, firstEnv("PACELINE_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY"))
	overlayString(&c.LLM.AnthropicModel, os.Getenv("PACELINE_ANTHROPIC_MODEL"))

	overlayString(&c.Ingest.DataDir, os.Getenv("PACELINE_DATA_DIR"))
	overlayInt(&c.Ingest.Workers, getEnvInt("PACELINE_INGEST_WORKERS"))
	overlayInt(&c.Ingest.BatchSize, getEnvInt("PACELINE_INGEST_BATCH_SIZE"))
	overlayInt(&c.Ingest.MaxRetries, getEnvInt("PACELINE_MAX_RETRIES"))
	overlayInt(&c.Query.TopK, getEnvInt("PACELINE_TOP_K"))
}

// Validate checks that every credential and setting the selected providers
// need is present. Called before any client is constructed.
func (c *Config) Validate() error {
	switch c.Storage.Engine {
	case "sqlite":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("%w: PACELINE_POSTGRES_DSN must be set when the storage engine is postgres", ErrMissingCredential)
		}
	default:
		return fmt.Errorf("%w: unknown storage engine %q (expected sqlite or postgres)", ErrMissingCredential, c.Storage.Engine)
	}

	switch c.LLM.Provider {
	case "openai":
		if c.LLM.OpenAIAPIKey == "" {
			return fmt.Errorf("%w: set PACELINE_OPENAI_API_KEY (or OPENAI_API_KEY) to use the openai provider", ErrMissingCredential)
		}
	case "anthropic":
		if c.LLM.AnthropicAPIKey == "" {
			return fmt.Errorf("%w: set PACELINE_ANTHROPIC_API_KEY (or ANTHROPIC_API_KEY) to use the anthropic provider", ErrMissingCredential)
		}
	case "ollama", "":
		// Local provider, no credentials.
	default:
		return fmt.Errorf("%w: unknown LLM provider %q (expected ollama, openai or anthropic)", ErrMissingCredential, c.LLM.Provider)
	}

	return nil
}

func overlayString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func overlayInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func getEnvInt(key string) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return 0
}
