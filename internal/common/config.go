package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration. Values merge in
// order: built-in defaults, config file(s), RESPONSA_* environment
// variables, command-line flags.
type Config struct {
	Environment string           `toml:"environment"` // "development" or "production"
	Storage     StorageConfig    `toml:"storage"`
	Loader      LoaderConfig     `toml:"loader"`
	Chunker     ChunkerConfig    `toml:"chunker"`
	Embedding   EmbeddingConfig  `toml:"embedding"`
	Index       IndexConfig      `toml:"index"`
	Retrieval   RetrievalConfig  `toml:"retrieval"`
	Synthesis   SynthesisConfig  `toml:"synthesis"`
	LLM         LLMConfig        `toml:"llm"`
	Gemini      GeminiConfig     `toml:"gemini"`
	Claude      ClaudeConfig     `toml:"claude"`
	Processing  ProcessingConfig `toml:"processing"`
	Logging     LoggingConfig    `toml:"logging"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoaderConfig struct {
	MaxFileSize int64 `toml:"max_file_size"` // Reject inputs larger than this many bytes
}

type ChunkerConfig struct {
	MaxTokens     int `toml:"max_tokens" validate:"gt=0"`
	OverlapTokens int `toml:"overlap_tokens" validate:"gte=0"`
}

type EmbeddingConfig struct {
	Model             string  `toml:"model"`
	Dimension         int     `toml:"dimension" validate:"gt=0"`
	BatchSize         int     `toml:"batch_size" validate:"gt=0"` // Provider-imposed max texts per request
	MaxInFlight       int     `toml:"max_in_flight"`              // Concurrent embedding batches per document
	RequestsPerMinute int     `toml:"requests_per_minute"`        // Provider rate limit budget
	MaxRetries        int     `toml:"max_retries"`
	InitialBackoff    string  `toml:"initial_backoff"` // e.g. "2s"
	MaxBackoff        string  `toml:"max_backoff"`
	BackoffJitter     float64 `toml:"backoff_jitter"` // Fraction of backoff randomized, 0..1
	Timeout           string  `toml:"timeout"`        // Per-request deadline, e.g. "30s"
}

type IndexConfig struct {
	Provider       string `toml:"provider" validate:"oneof=qdrant memory"` // "qdrant" or "memory"
	URL            string `toml:"url"`
	APIKey         string `toml:"api_key"`
	Collection     string `toml:"collection"` // Namespace isolating one document corpus
	Timeout        string `toml:"timeout"`
	MaxRetries     int    `toml:"max_retries"`
	InitialBackoff string `toml:"initial_backoff"`
	MaxBackoff     string `toml:"max_backoff"`
}

type RetrievalConfig struct {
	TopK            int     `toml:"top_k" validate:"gt=0"`
	MinScore        float64 `toml:"min_score"`
	ExpandNeighbors bool    `toml:"expand_neighbors"`
}

type SynthesisConfig struct {
	MaxContextChunks int    `toml:"max_context_chunks"`
	InsufficientText string `toml:"insufficient_text"` // Response body used when evidence is absent
}

// LLMConfig selects the synthesis provider and its sampling policy.
// Temperature stays low: grounding fidelity over creativity.
type LLMConfig struct {
	DefaultProvider string  `toml:"default_provider" validate:"oneof=gemini claude"`
	Temperature     float32 `toml:"temperature"`
	MaxTokens       int     `toml:"max_tokens"`
	Timeout         string  `toml:"timeout"`
}

type GeminiConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

type ClaudeConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// ProcessingConfig drives the background embedding sweep that retries
// documents stuck in pending state (e.g. after a crash mid-ingestion).
type ProcessingConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"` // Cron schedule format
	Limit    int    `toml:"limit"`    // Max documents to process per sweep
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// DefaultConfig returns the built-in defaults. Chunk size, overlap,
// retry counts and similarity floors are deployment parameters, never
// hard-coded at use sites.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/responsa",
			},
		},
		Loader: LoaderConfig{
			MaxFileSize: 50 * 1024 * 1024,
		},
		Chunker: ChunkerConfig{
			MaxTokens:     2000,
			OverlapTokens: 200,
		},
		Embedding: EmbeddingConfig{
			Model:             "gemini-embedding-001",
			Dimension:         768,
			BatchSize:         96,
			MaxInFlight:       4,
			RequestsPerMinute: 120,
			MaxRetries:        3,
			InitialBackoff:    "2s",
			MaxBackoff:        "30s",
			BackoffJitter:     0.2,
			Timeout:           "30s",
		},
		Index: IndexConfig{
			Provider:       "qdrant",
			URL:            "http://localhost:6333",
			Collection:     "responsa",
			Timeout:        "15s",
			MaxRetries:     3,
			InitialBackoff: "1s",
			MaxBackoff:     "15s",
		},
		Retrieval: RetrievalConfig{
			TopK:            5,
			MinScore:        0.0,
			ExpandNeighbors: true,
		},
		Synthesis: SynthesisConfig{
			MaxContextChunks: 10,
			InsufficientText: "The supplied documents do not contain enough information to answer this question.",
		},
		LLM: LLMConfig{
			DefaultProvider: "gemini",
			Temperature:     0.3,
			MaxTokens:       4500,
			Timeout:         "60s",
		},
		Gemini: GeminiConfig{
			Model: "gemini-2.0-flash",
		},
		Claude: ClaudeConfig{
			Model: "claude-sonnet-4-20250514",
		},
		Processing: ProcessingConfig{
			Enabled:  false,
			Schedule: "@every 10m",
			Limit:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
	}
}

// LoadFromFiles loads configuration from TOML files, later files
// overriding earlier ones, then applies environment overrides and
// validates the result. Missing paths are an error; an empty path list
// yields defaults plus environment.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := DefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks structural constraints plus the cross-field rules the
// tag syntax cannot express.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Chunker.OverlapTokens >= c.Chunker.MaxTokens {
		return fmt.Errorf("invalid configuration: chunker.overlap_tokens (%d) must be smaller than chunker.max_tokens (%d)",
			c.Chunker.OverlapTokens, c.Chunker.MaxTokens)
	}
	return nil
}

// applyEnvOverrides applies RESPONSA_* environment variables on top of
// file configuration. Only operationally relevant knobs are exposed;
// everything else goes through the config file.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("RESPONSA_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if path := os.Getenv("RESPONSA_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}

	if level := os.Getenv("RESPONSA_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("RESPONSA_LOG_OUTPUT"); output != "" {
		parts := strings.Split(output, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		config.Logging.Output = parts
	}

	if url := os.Getenv("RESPONSA_INDEX_URL"); url != "" {
		config.Index.URL = url
	}
	if key := os.Getenv("RESPONSA_INDEX_API_KEY"); key != "" {
		config.Index.APIKey = key
	}
	if collection := os.Getenv("RESPONSA_INDEX_COLLECTION"); collection != "" {
		config.Index.Collection = collection
	}

	if dim := os.Getenv("RESPONSA_EMBEDDING_DIMENSION"); dim != "" {
		if v, err := strconv.Atoi(dim); err == nil {
			config.Embedding.Dimension = v
		}
	}

	// API keys usually arrive via environment or .env, not the file
	if key := os.Getenv("RESPONSA_GEMINI_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	} else if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	}
	if key := os.Getenv("RESPONSA_ANTHROPIC_API_KEY"); key != "" {
		config.Claude.APIKey = key
	} else if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		config.Claude.APIKey = key
	}

	if provider := os.Getenv("RESPONSA_LLM_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = provider
	}
}
