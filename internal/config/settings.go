package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Index backends.
const (
	BackendOpenSearch = "opensearch"
	BackendQdrant     = "qdrant"
	BackendMemory     = "memory"
)

// Model providers shared by the embedding and generation settings.
const (
	ProviderBedrock = "bedrock"
	ProviderOpenAI  = "openai"
	ProviderAzure   = "azure"
	ProviderOllama  = "ollama"
	ProviderGemini  = "gemini"
	ProviderArk     = "ark"
)

// Defaults applied by [FromEnv] when the corresponding env var is unset.
const (
	DefaultDatabase         = "ecommerce"
	DefaultCollection       = "products"
	DefaultIndexName        = "products"
	DefaultDimensions       = 1536
	DefaultRegion           = "us-east-1"
	DefaultTitanModel       = "amazon.titan-embed-text-v1"
	DefaultClaudeModel      = "anthropic.claude-v2:1"
	DefaultServerHost       = "127.0.0.1"
	DefaultServerPort       = 7000
	DefaultOllamaHost       = "http://localhost:11434"
	DefaultAzureAPIVersion  = "2024-06-01"
	LedgerDisabled          = "disabled"
	defaultOpenAIEmbedModel = "text-embedding-3-small"
	defaultOllamaEmbedModel = "nomic-embed-text"
)

// Settings is the fully resolved runtime configuration. It is built once at
// startup by [FromEnv] and passed by pointer into every constructor.
type Settings struct {
	// Mongo holds the product source database settings.
	Mongo MongoSettings
	// Index holds the vector index settings.
	Index IndexSettings
	// Embedding holds the embedding model settings.
	Embedding ModelSettings
	// Generation holds the text-generation model settings.
	Generation ModelSettings
	// Server holds the HTTP server settings.
	Server ServerSettings
	// LedgerPath is the SQLite ledger path, or [LedgerDisabled].
	LedgerPath string
}

// MongoSettings holds the product source database settings.
type MongoSettings struct {
	// URI is the MongoDB connection string.
	URI string
	// Database is the database name.
	Database string
	// Collection is the products collection name.
	Collection string
}

// IndexSettings holds vector index settings.
type IndexSettings struct {
	// Backend is one of opensearch, qdrant, memory.
	Backend string
	// Name is the index or collection name.
	Name string
	// Dimensions is the embedding vector size.
	Dimensions int
	// OpenSearchEndpoint is the OpenSearch cluster URL.
	OpenSearchEndpoint string
	// OpenSearchUsername is the basic-auth user.
	OpenSearchUsername string
	// OpenSearchPassword is the basic-auth password.
	OpenSearchPassword string
	// QdrantHost is the Qdrant hostname.
	QdrantHost string
	// QdrantPort is the Qdrant gRPC port.
	QdrantPort int
	// QdrantAPIKey is the Qdrant API key.
	QdrantAPIKey string
	// QdrantTLS enables TLS to Qdrant.
	QdrantTLS bool
}

// ModelSettings describes one hosted model endpoint.
type ModelSettings struct {
	// Provider is the backend name (see the Provider constants).
	Provider string
	// Model is the model name, deployment or Bedrock model ID.
	Model string
	// Region is the AWS region (Bedrock only).
	Region string
	// APIKey is the provider credential, when one is needed.
	APIKey string
	// Endpoint overrides the provider base URL.
	Endpoint string
	// APIVersion is the Azure OpenAI API version (Azure only).
	APIVersion string
}

// ServerSettings holds HTTP server settings.
type ServerSettings struct {
	// Host is the bind address.
	Host string
	// Port is the TCP port.
	Port int
	// AskTimeout bounds a single /ask request. Zero disables the bound.
	AskTimeout time.Duration
	// RateLimit is the per-IP sustained request rate on /ask.
	RateLimit float64
	// RateBurst is the per-IP burst size on /ask.
	RateBurst int
}

// Requirement is a bit set naming the components a command needs.
type Requirement uint8

const (
	// NeedSource requires the product database settings.
	NeedSource Requirement = 1 << iota
	// NeedIndex requires the vector index settings.
	NeedIndex
	// NeedEmbedder requires the embedding model settings.
	NeedEmbedder
	// NeedGenerator requires the generation model settings.
	NeedGenerator
)

// FromEnv resolves Settings from environment variables, applying defaults.
// It fails only on values that are present but malformed; use
// [Settings.Validate] to check that required values are present.
func FromEnv() (*Settings, error) {
	var errs []string
	intVar := func(key string, fallback int) int {
		v := os.Getenv(key)
		if v == "" {
			return fallback
		}
		i, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s=%q is not an integer", key, v))
			return fallback
		}
		return i
	}

	region := getEnvOrDefault("AWS_REGION", DefaultRegion)

	s := &Settings{
		Mongo: MongoSettings{
			URI:        os.Getenv("MONGODB_URI"),
			Database:   getEnvOrDefault("MONGODB_DATABASE", DefaultDatabase),
			Collection: getEnvOrDefault("MONGODB_COLLECTION", DefaultCollection),
		},
		Index: IndexSettings{
			Backend:            strings.ToLower(getEnvOrDefault("VECTOR_BACKEND", BackendOpenSearch)),
			Name:               getEnvOrDefault("INDEX_NAME", DefaultIndexName),
			Dimensions:         intVar("VECTOR_DIMENSIONS", DefaultDimensions),
			OpenSearchEndpoint: os.Getenv("OPENSEARCH_ENDPOINT"),
			OpenSearchUsername: os.Getenv("OPENSEARCH_USERNAME"),
			OpenSearchPassword: os.Getenv("OPENSEARCH_PASSWORD"),
			QdrantHost:         os.Getenv("QDRANT_HOST"),
			QdrantPort:         intVar("QDRANT_PORT", 6334),
			QdrantAPIKey:       os.Getenv("QDRANT_API_KEY"),
			QdrantTLS:          os.Getenv("QDRANT_TLS") == "true",
		},
		Embedding:  embeddingFromEnv(region),
		Generation: generationFromEnv(region),
		Server: ServerSettings{
			Host:      getEnvOrDefault("SERVER_HOST", DefaultServerHost),
			Port:      intVar("SERVER_PORT", DefaultServerPort),
			RateBurst: intVar("RATE_BURST", 0),
		},
		LedgerPath: os.Getenv("CATALOGRAG_LEDGER_DB"),
	}

	if v := os.Getenv("ASK_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("ASK_TIMEOUT=%q is not a duration", v))
		}
		s.Server.AskTimeout = d
	}
	if v := os.Getenv("RATE_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("RATE_LIMIT=%q is not a number", v))
		}
		s.Server.RateLimit = f
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("config: invalid settings: %s", strings.Join(errs, "; "))
	}
	return s, nil
}

// embeddingFromEnv resolves the embedding model settings.
// EMBEDDING_* values override the provider's native env vars.
func embeddingFromEnv(region string) ModelSettings {
	m := ModelSettings{
		Provider: strings.ToLower(getEnvOrDefault("EMBEDDING_PROVIDER", ProviderBedrock)),
		Model:    os.Getenv("EMBEDDING_MODEL"),
		APIKey:   os.Getenv("EMBEDDING_API_KEY"),
		Endpoint: os.Getenv("EMBEDDING_ENDPOINT"),
		Region:   region,
	}
	switch m.Provider {
	case ProviderBedrock:
		m.Model = firstNonEmpty(m.Model, DefaultTitanModel)
	case ProviderOpenAI:
		m.Model = firstNonEmpty(m.Model, defaultOpenAIEmbedModel)
		m.APIKey = firstNonEmpty(m.APIKey, os.Getenv("OPENAI_API_KEY"))
	case ProviderOllama:
		m.Model = firstNonEmpty(m.Model, defaultOllamaEmbedModel)
		m.Endpoint = firstNonEmpty(m.Endpoint, os.Getenv("OLLAMA_HOST"), DefaultOllamaHost)
	}
	return m
}

// generationFromEnv resolves the generation model settings. MODEL_ID
// overrides the per-provider model variable.
func generationFromEnv(region string) ModelSettings {
	m := ModelSettings{
		Provider: strings.ToLower(getEnvOrDefault("MODEL_PROVIDER", ProviderBedrock)),
		Model:    os.Getenv("MODEL_ID"),
		Region:   region,
	}
	switch m.Provider {
	case ProviderBedrock:
		m.Model = firstNonEmpty(m.Model, os.Getenv("BEDROCK_MODEL_ID"), DefaultClaudeModel)
	case ProviderOpenAI:
		m.Model = firstNonEmpty(m.Model, os.Getenv("OPENAI_MODEL"), "gpt-4o-mini")
		m.APIKey = os.Getenv("OPENAI_API_KEY")
		m.Endpoint = os.Getenv("OPENAI_BASE_URL")
	case ProviderAzure:
		m.Model = firstNonEmpty(m.Model, os.Getenv("AZURE_OPENAI_DEPLOYMENT"))
		m.APIKey = os.Getenv("AZURE_OPENAI_API_KEY")
		m.Endpoint = os.Getenv("AZURE_OPENAI_ENDPOINT")
		m.APIVersion = getEnvOrDefault("AZURE_OPENAI_API_VERSION", DefaultAzureAPIVersion)
	case ProviderOllama:
		m.Model = firstNonEmpty(m.Model, os.Getenv("OLLAMA_MODEL"), "llama3.1")
		m.Endpoint = getEnvOrDefault("OLLAMA_HOST", DefaultOllamaHost)
	case ProviderGemini:
		m.Model = firstNonEmpty(m.Model, os.Getenv("GEMINI_MODEL"), "gemini-2.0-flash")
		m.APIKey = os.Getenv("GOOGLE_API_KEY")
	case ProviderArk:
		m.Model = firstNonEmpty(m.Model, os.Getenv("ARK_MODEL_ID"))
		m.APIKey = os.Getenv("ARK_API_KEY")
		m.Endpoint = os.Getenv("ARK_BASE_URL")
	}
	return m
}

// Validate checks that every setting needed by the requested components is
// present and well-formed. All problems are reported at once so an operator
// can fix the environment in a single pass.
func (s *Settings) Validate(req Requirement) error {
	var missing []string
	need := func(ok bool, what string) {
		if !ok {
			missing = append(missing, what)
		}
	}

	if req&NeedSource != 0 {
		need(s.Mongo.URI != "", "MONGODB_URI")
		need(s.Mongo.Database != "", "MONGODB_DATABASE")
		need(s.Mongo.Collection != "", "MONGODB_COLLECTION")
	}

	if req&NeedIndex != 0 {
		need(s.Index.Name != "", "INDEX_NAME")
		need(s.Index.Dimensions > 0, "VECTOR_DIMENSIONS (must be > 0)")
		switch s.Index.Backend {
		case BackendOpenSearch:
			need(s.Index.OpenSearchEndpoint != "", "OPENSEARCH_ENDPOINT")
		case BackendQdrant:
			need(s.Index.QdrantHost != "", "QDRANT_HOST")
		case BackendMemory:
		default:
			missing = append(missing, fmt.Sprintf("VECTOR_BACKEND (unknown %q, valid: opensearch, qdrant, memory)", s.Index.Backend))
		}
	}

	if req&NeedEmbedder != 0 {
		switch s.Embedding.Provider {
		case ProviderBedrock:
			need(s.Embedding.Region != "", "AWS_REGION")
		case ProviderOpenAI:
			need(s.Embedding.APIKey != "", "EMBEDDING_API_KEY or OPENAI_API_KEY")
		case ProviderOllama:
		default:
			missing = append(missing, fmt.Sprintf("EMBEDDING_PROVIDER (unknown %q, valid: bedrock, openai, ollama)", s.Embedding.Provider))
		}
	}

	if req&NeedGenerator != 0 {
		g := s.Generation
		switch g.Provider {
		case ProviderBedrock:
			need(g.Region != "", "AWS_REGION")
		case ProviderOpenAI:
			need(g.APIKey != "", "OPENAI_API_KEY")
		case ProviderAzure:
			need(g.APIKey != "", "AZURE_OPENAI_API_KEY")
			need(g.Endpoint != "", "AZURE_OPENAI_ENDPOINT")
			need(g.Model != "", "AZURE_OPENAI_DEPLOYMENT or MODEL_ID")
		case ProviderOllama:
		case ProviderGemini:
			need(g.APIKey != "", "GOOGLE_API_KEY")
		case ProviderArk:
			need(g.APIKey != "", "ARK_API_KEY")
			need(g.Model != "", "ARK_MODEL_ID or MODEL_ID")
		default:
			missing = append(missing, fmt.Sprintf("MODEL_PROVIDER (unknown %q, valid: bedrock, openai, azure, ollama, gemini, ark)", g.Provider))
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("config: missing or invalid settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

// LedgerEnabled reports whether the ETL run ledger should be opened.
func (s *Settings) LedgerEnabled() bool {
	return s.LedgerPath != LedgerDisabled
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// firstNonEmpty returns the first non-empty argument.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
