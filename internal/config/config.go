package config

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

type Config struct {
	OpenAIKey        string  `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string  `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	OpenAIModel      string  `env:"OPENAI_MODEL" envDefault:"gpt-3.5-turbo"`
	OpenAIEmbedModel string  `env:"OPENAI_EMBED_MODEL" envDefault:"text-embedding-3-small"`
	MaxTokens        int     `env:"LLM_MAX_TOKENS" envDefault:"1000"`
	Temperature      float64 `env:"LLM_TEMPERATURE" envDefault:"0.3"`

	GoogleProjectID      string   `env:"GOOGLE_PROJECT_ID"`
	GoogleTranslateKey   string   `env:"GOOGLE_TRANSLATE_API_KEY"`
	VertexRegion         string   `env:"VERTEX_REGION" envDefault:"us-central1"`
	VertexModel          string   `env:"VERTEX_MODEL" envDefault:"gemini-1.5-pro"`
	TranslationProviders []string `env:"TRANSLATION_PROVIDERS" envDefault:"google,vertex,openai" envSeparator:","`
	TranslationCache     string   `env:"TRANSLATION_CACHE" envDefault:"memory"`

	Debug         bool `env:"APP_DEBUG" envDefault:"false"`
	MaxFileSizeMB int  `env:"MAX_FILE_SIZE_MB" envDefault:"50"`
	Public        bool `env:"APP_PUBLIC" envDefault:"false"`
	Port          int  `env:"APP_PORT" envDefault:"7860"`

	DataDir      string `env:"DATA_DIR" envDefault:"./data"`
	VectorDBPath string `env:"VECTOR_DB_PATH"`

	ChunkSize       int     `env:"CHUNK_SIZE" envDefault:"1000"`
	ChunkOverlap    int     `env:"CHUNK_OVERLAP" envDefault:"200"`
	TopK            int     `env:"TOP_K" envDefault:"4"`
	MinSimilarity   float32 `env:"MIN_SIMILARITY" envDefault:"0.3"`
	DefaultLanguage string  `env:"DEFAULT_LANGUAGE" envDefault:"en"`

	LLMTimeout       time.Duration `env:"LLM_TIMEOUT" envDefault:"60s"`
	TranslateTimeout time.Duration `env:"TRANSLATE_TIMEOUT" envDefault:"20s"`
	EmbedTimeout     time.Duration `env:"EMBED_TIMEOUT" envDefault:"60s"`
	SessionTTL       time.Duration `env:"SESSION_TTL" envDefault:"2h"`
}

func Init(cfg interface{}) error {
	return env.Parse(cfg)
}

// Load parses the environment into a fresh Config and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := Init(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.OpenAIKey) == "" {
		errs = append(errs, errors.New("OPENAI_API_KEY is required"))
	}
	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize))
	}
	if c.ChunkOverlap <= 0 || c.ChunkOverlap >= c.ChunkSize {
		errs = append(errs, fmt.Errorf("CHUNK_OVERLAP must be in [1, CHUNK_SIZE), got %d", c.ChunkOverlap))
	}
	if c.TopK <= 0 {
		errs = append(errs, fmt.Errorf("TOP_K must be positive, got %d", c.TopK))
	}
	if c.MinSimilarity < -1 || c.MinSimilarity > 1 {
		errs = append(errs, fmt.Errorf("MIN_SIMILARITY must be in [-1, 1], got %v", c.MinSimilarity))
	}
	if c.MaxFileSizeMB <= 0 {
		errs = append(errs, fmt.Errorf("MAX_FILE_SIZE_MB must be positive, got %d", c.MaxFileSizeMB))
	}
	if len(c.DefaultLanguage) != 2 {
		errs = append(errs, fmt.Errorf("DEFAULT_LANGUAGE must be a two-letter code, got %q", c.DefaultLanguage))
	}
	switch c.TranslationCache {
	case "memory", "sqlite":
	case "firestore":
		if c.GoogleProjectID == "" {
			errs = append(errs, errors.New("TRANSLATION_CACHE=firestore requires GOOGLE_PROJECT_ID"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown TRANSLATION_CACHE %q", c.TranslationCache))
	}
	for _, p := range c.TranslationProviders {
		switch strings.TrimSpace(p) {
		case "google", "vertex", "openai":
		default:
			errs = append(errs, fmt.Errorf("unknown translation provider %q", p))
		}
	}
	return errors.Join(errs...)
}

// MaxFileSize is the upload limit in bytes.
func (c *Config) MaxFileSize() int64 {
	return int64(c.MaxFileSizeMB) * 1024 * 1024
}

// Addr is the HTTP listen address. Loopback unless APP_PUBLIC is set.
func (c *Config) Addr() string {
	host := "127.0.0.1"
	if c.Public {
		host = "0.0.0.0"
	}
	return net.JoinHostPort(host, strconv.Itoa(c.Port))
}

func (c *Config) CacheFile() string {
	return filepath.Join(c.DataDir, "translations.db")
}
