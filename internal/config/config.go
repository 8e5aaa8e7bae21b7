// Package config provides layered configuration for catalograg.
// Configuration is loaded with a layered precedence: defaults → .env file →
// YAML file → env vars. Environment variables always win.
//
// YAML file search order:
//  1. --config CLI flag (explicit path)
//  2. CATALOGRAG_CONFIG environment variable
//  3. ~/.catalograg/config.yaml
//  4. ./catalograg.yaml
//
// After the layers are applied, [FromEnv] builds the explicit [Settings]
// value that is passed to every component constructor.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration structure.
// Field names use yaml tags that mirror the env var naming (lowercase, underscored).
type Config struct {
	// Database configures the product source database.
	Database DatabaseConfig `yaml:"database"`

	// Index configures the vector index backend.
	Index IndexConfig `yaml:"index"`

	// Embedding configures the embedding model.
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Model configures the text-generation model.
	Model ModelConfig `yaml:"model"`

	// Server configures the HTTP query server.
	Server ServerConfig `yaml:"server"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// Ledger configures the ETL run ledger.
	Ledger LedgerConfig `yaml:"ledger"`

	// Tracing configures Langfuse tracing integration.
	Tracing TracingConfig `yaml:"tracing"`
}

// DatabaseConfig holds MongoDB settings.
type DatabaseConfig struct {
	// URI is the MongoDB connection string. Prefer env var MONGODB_URI.
	URI string `yaml:"uri"`
	// Database is the database name.
	Database string `yaml:"database"`
	// Collection is the products collection name.
	Collection string `yaml:"collection"`
}

// IndexConfig holds vector index settings.
type IndexConfig struct {
	// Backend selects the store: opensearch, qdrant, memory.
	Backend string `yaml:"backend"`
	// Name is the index (or collection) name.
	Name string `yaml:"name"`
	// Dimensions is the vector size the index is created with.
	Dimensions int `yaml:"dimensions"`
	// OpenSearch holds OpenSearch connection settings.
	OpenSearch OpenSearchConfig `yaml:"opensearch"`
	// Qdrant holds Qdrant connection settings.
	Qdrant QdrantConfig `yaml:"qdrant"`
}

// OpenSearchConfig holds OpenSearch connection settings.
type OpenSearchConfig struct {
	// Endpoint is the cluster URL.
	Endpoint string `yaml:"endpoint"`
	// Username is the basic-auth user.
	Username string `yaml:"username"`
	// Password is the basic-auth password. Prefer env var OPENSEARCH_PASSWORD.
	Password string `yaml:"password"`
}

// QdrantConfig holds Qdrant connection settings.
type QdrantConfig struct {
	// Host is the Qdrant server hostname.
	Host string `yaml:"host"`
	// Port is the Qdrant gRPC port.
	Port int `yaml:"port"`
	// APIKey is the Qdrant API key. Prefer env var QDRANT_API_KEY.
	APIKey string `yaml:"api_key"`
	// TLS enables TLS for the Qdrant connection.
	TLS bool `yaml:"tls"`
}

// EmbeddingConfig holds embedding model settings.
type EmbeddingConfig struct {
	// Provider selects the embedding backend: bedrock, openai, ollama.
	Provider string `yaml:"provider"`
	// Model is the embedding model name or Bedrock model ID.
	Model string `yaml:"model"`
	// APIKey is the embedding API key. Prefer env var EMBEDDING_API_KEY.
	APIKey string `yaml:"api_key"`
	// Endpoint overrides the embedding API endpoint.
	Endpoint string `yaml:"endpoint"`
}

// ModelConfig holds text-generation model settings.
type ModelConfig struct {
	// Provider selects the backend: bedrock, openai, azure, ollama, gemini, ark.
	Provider string `yaml:"provider"`
	// ID is the model name, deployment or Bedrock model ID.
	ID string `yaml:"id"`
	// Region is the AWS region used for Bedrock.
	Region string `yaml:"region"`
	// OllamaHost is the Ollama API endpoint.
	OllamaHost string `yaml:"ollama_host"`
	// OpenAIAPIKey is the OpenAI API key. Prefer env var OPENAI_API_KEY.
	OpenAIAPIKey string `yaml:"openai_api_key"`
	// AzureEndpoint is the Azure OpenAI resource endpoint.
	AzureEndpoint string `yaml:"azure_endpoint"`
	// AzureAPIVersion is the Azure OpenAI API version.
	AzureAPIVersion string `yaml:"azure_api_version"`
	// ArkBaseURL overrides the Ark runtime endpoint.
	ArkBaseURL string `yaml:"ark_base_url"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the bind address.
	Host string `yaml:"host"`
	// Port is the TCP port.
	Port int `yaml:"port"`
	// AskTimeout bounds a single /ask request (Go duration, e.g. "30s").
	AskTimeout string `yaml:"ask_timeout"`
	// RateLimit is the sustained per-IP request rate on /ask.
	RateLimit float64 `yaml:"rate_limit"`
	// RateBurst is the per-IP burst size on /ask.
	RateBurst int `yaml:"rate_burst"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is the log output format: json, text.
	Format string `yaml:"format"`
}

// LedgerConfig holds ETL run ledger settings.
type LedgerConfig struct {
	// DBPath is the SQLite database path. Set to "disabled" to disable.
	DBPath string `yaml:"db_path"`
}

// TracingConfig holds Langfuse tracing settings.
type TracingConfig struct {
	// PublicKey is the Langfuse public key. Prefer env var LANGFUSE_PUBLIC_KEY.
	PublicKey string `yaml:"public_key"`
	// SecretKey is the Langfuse secret key. Prefer env var LANGFUSE_SECRET_KEY.
	SecretKey string `yaml:"secret_key"`
	// Host is the Langfuse API host.
	Host string `yaml:"host"`
}

// envMapping maps YAML config fields to their corresponding env var names.
// Only non-empty YAML values are applied; env vars always take precedence.
var envMapping = []struct {
	envKey string
	value  func(*Config) string
}{
	{"MONGODB_URI", func(c *Config) string { return c.Database.URI }},
	{"MONGODB_DATABASE", func(c *Config) string { return c.Database.Database }},
	{"MONGODB_COLLECTION", func(c *Config) string { return c.Database.Collection }},
	{"VECTOR_BACKEND", func(c *Config) string { return c.Index.Backend }},
	{"INDEX_NAME", func(c *Config) string { return c.Index.Name }},
	{"VECTOR_DIMENSIONS", func(c *Config) string { return intStr(c.Index.Dimensions) }},
	{"OPENSEARCH_ENDPOINT", func(c *Config) string { return c.Index.OpenSearch.Endpoint }},
	{"OPENSEARCH_USERNAME", func(c *Config) string { return c.Index.OpenSearch.Username }},
	{"OPENSEARCH_PASSWORD", func(c *Config) string { return c.Index.OpenSearch.Password }},
	{"QDRANT_HOST", func(c *Config) string { return c.Index.Qdrant.Host }},
	{"QDRANT_PORT", func(c *Config) string { return intStr(c.Index.Qdrant.Port) }},
	{"QDRANT_API_KEY", func(c *Config) string { return c.Index.Qdrant.APIKey }},
	{"QDRANT_TLS", func(c *Config) string { return boolStr(c.Index.Qdrant.TLS) }},
	{"EMBEDDING_PROVIDER", func(c *Config) string { return c.Embedding.Provider }},
	{"EMBEDDING_MODEL", func(c *Config) string { return c.Embedding.Model }},
	{"EMBEDDING_API_KEY", func(c *Config) string { return c.Embedding.APIKey }},
	{"EMBEDDING_ENDPOINT", func(c *Config) string { return c.Embedding.Endpoint }},
	{"MODEL_PROVIDER", func(c *Config) string { return c.Model.Provider }},
	{"MODEL_ID", func(c *Config) string { return c.Model.ID }},
	{"AWS_REGION", func(c *Config) string { return c.Model.Region }},
	{"OLLAMA_HOST", func(c *Config) string { return c.Model.OllamaHost }},
	{"OPENAI_API_KEY", func(c *Config) string { return c.Model.OpenAIAPIKey }},
	{"AZURE_OPENAI_ENDPOINT", func(c *Config) string { return c.Model.AzureEndpoint }},
	{"AZURE_OPENAI_API_VERSION", func(c *Config) string { return c.Model.AzureAPIVersion }},
	{"ARK_BASE_URL", func(c *Config) string { return c.Model.ArkBaseURL }},
	{"SERVER_HOST", func(c *Config) string { return c.Server.Host }},
	{"SERVER_PORT", func(c *Config) string { return intStr(c.Server.Port) }},
	{"ASK_TIMEOUT", func(c *Config) string { return c.Server.AskTimeout }},
	{"RATE_LIMIT", func(c *Config) string { return float64Str(c.Server.RateLimit) }},
	{"RATE_BURST", func(c *Config) string { return intStr(c.Server.RateBurst) }},
	{"LOG_LEVEL", func(c *Config) string { return c.Logging.Level }},
	{"LOG_FORMAT", func(c *Config) string { return c.Logging.Format }},
	{"CATALOGRAG_LEDGER_DB", func(c *Config) string { return c.Ledger.DBPath }},
	{"LANGFUSE_PUBLIC_KEY", func(c *Config) string { return c.Tracing.PublicKey }},
	{"LANGFUSE_SECRET_KEY", func(c *Config) string { return c.Tracing.SecretKey }},
	{"LANGFUSE_HOST", func(c *Config) string { return c.Tracing.Host }},
}

// LoadDotEnv loads KEY=VALUE pairs from a .env file into the environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string, log *slog.Logger) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debug("config: no .env file found", slog.String("path", path))
			return nil
		}
		return fmt.Errorf("config: failed to load %s: %w", path, err)
	}
	log.Debug("config: loaded .env file", slog.String("path", path))
	return nil
}

// Load reads a YAML config file and applies non-empty values as environment
// variables. Existing env vars are never overwritten (env always wins).
// Returns the path that was loaded, or empty string if no file was found.
func Load(explicitPath string, log *slog.Logger) (string, error) {
	path := resolveConfigPath(explicitPath)
	if path == "" {
		log.Debug("config: no YAML config file found, using env vars only")
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return "", fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	applied := 0
	for _, m := range envMapping {
		yamlVal := m.value(&cfg)
		if yamlVal == "" {
			continue
		}
		if os.Getenv(m.envKey) != "" {
			continue // env wins
		}
		if err := os.Setenv(m.envKey, yamlVal); err != nil {
			return "", fmt.Errorf("config: set %s: %w", m.envKey, err)
		}
		applied++
	}

	log.Info("config: loaded YAML config",
		slog.String("path", path),
		slog.Int("keys_applied", applied),
	)

	return path, nil
}

// resolveConfigPath returns the first config file path that exists.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}

	if envPath := os.Getenv("CATALOGRAG_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		p := filepath.Join(home, ".catalograg", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if _, err := os.Stat("catalograg.yaml"); err == nil {
		return "catalograg.yaml"
	}

	return ""
}

// intStr converts an int to string, returning "" for zero values.
func intStr(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}

// float64Str converts a float64 to string, returning "" for zero values.
func float64Str(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// boolStr converts a bool to string, returning "" for false.
func boolStr(v bool) string {
	if !v {
		return ""
	}
	return "true"
}
