package types

import "time"

// EmbeddingProvider selects the embedding backend.
type EmbeddingProvider string

const (
	// ProviderOpenAI calls an OpenAI-compatible /embeddings API directly.
	ProviderOpenAI EmbeddingProvider = "openai"

	// ProviderEndpoint calls a deployed embedding proxy ({text} -> {embedding}).
	ProviderEndpoint EmbeddingProvider = "endpoint"
)

// EmbeddingConfig holds settings for the embedding provider.
type EmbeddingConfig struct {
	Provider EmbeddingProvider `mapstructure:"provider" yaml:"provider"`

	// BaseURL is the API root for openai (e.g. "https://api.openai.com/v1")
	// or the full proxy URL for endpoint.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// APIKey authenticates against the openai provider.
	APIKey string `mapstructure:"api_key" yaml:"api_key,omitempty"`

	// Model is the embedding model identifier (default text-embedding-3-small).
	Model string `mapstructure:"model" yaml:"model"`

	// Dimension is the fixed vector length D of the deployment (default 1536).
	Dimension int `mapstructure:"dimension" yaml:"dimension"`

	// Timeout is the HTTP request timeout.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// MaxRetries caps retries on HTTP 429 from the upstream provider.
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`
}

// StoreBackend selects the catalog and vector store implementation.
type StoreBackend string

const (
	BackendPostgres StoreBackend = "postgres"
	BackendSQLite   StoreBackend = "sqlite"
)

// StoreConfig holds settings for the store.
type StoreConfig struct {
	Backend StoreBackend `mapstructure:"backend" yaml:"backend"`

	// DatabaseURL is the Postgres connection string (postgres backend).
	DatabaseURL string `mapstructure:"database_url" yaml:"database_url,omitempty"`

	// SQLitePath is the database file (sqlite backend).
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`

	// MaxConns caps the Postgres pool size.
	MaxConns int32 `mapstructure:"max_conns" yaml:"max_conns"`
}

// SearchConfig holds settings for the search orchestrator.
type SearchConfig struct {
	// DefaultLimit applies when a request has no limit (default 20).
	DefaultLimit int `mapstructure:"default_limit" yaml:"default_limit"`

	// MaxLimit caps any requested limit (default 100).
	MaxLimit int `mapstructure:"max_limit" yaml:"max_limit"`

	// LogTimeout bounds the analytics write after a search.
	LogTimeout time.Duration `mapstructure:"log_timeout" yaml:"log_timeout"`
}

// RecommendConfig holds settings for the recommendation engine.
type RecommendConfig struct {
	// Limit caps the recommendation list (default 10).
	Limit int `mapstructure:"limit" yaml:"limit"`

	// PaperLimit caps the drill-down paper list (default 10).
	PaperLimit int `mapstructure:"paper_limit" yaml:"paper_limit"`
}

// IngestConfig holds settings for CSV import.
type IngestConfig struct {
	// DefaultConfidence is the confidence assigned to imported topic tags.
	DefaultConfidence float64 `mapstructure:"default_confidence" yaml:"default_confidence"`

	// DefaultTopic tags rows that carry no topic column; zero disables it.
	DefaultTopic int `mapstructure:"default_topic" yaml:"default_topic"`

	// EmailDomain builds first.last@domain when a row has no e-mail.
	EmailDomain string `mapstructure:"email_domain" yaml:"email_domain"`

	// DefaultInstitution is used when a row names no institution.
	DefaultInstitution string `mapstructure:"default_institution" yaml:"default_institution"`

	// DefaultCountry and DefaultCategory describe newly created institutions.
	DefaultCountry  string `mapstructure:"default_country" yaml:"default_country"`
	DefaultCategory string `mapstructure:"default_category" yaml:"default_category"`

	// ProgressEvery prints a progress line every N rows.
	ProgressEvery int `mapstructure:"progress_every" yaml:"progress_every"`
}

// ServerConfig holds settings for the HTTP service.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	// SessionCacheSize is how many signed-in identities the server
	// remembers before it reports one as new again.
	SessionCacheSize int `mapstructure:"session_cache_size" yaml:"session_cache_size"`
}

// LogConfig holds settings for the structured logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level" yaml:"level"`

	// Format is json or console.
	Format string `mapstructure:"format" yaml:"format"`
}

// TracingConfig holds settings for OpenTelemetry tracing.
type TracingConfig struct {
	// Enabled turns on the OTLP/HTTP exporter (configured via OTEL_* env vars).
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	Environment string `mapstructure:"environment" yaml:"environment"`
}

// Config groups all configuration sections.
type Config struct {
	Embedding EmbeddingConfig `mapstructure:"embedding" yaml:"embedding"`
	Store     StoreConfig     `mapstructure:"store" yaml:"store"`
	Search    SearchConfig    `mapstructure:"search" yaml:"search"`
	Recommend RecommendConfig `mapstructure:"recommend" yaml:"recommend"`
	Ingest    IngestConfig    `mapstructure:"ingest" yaml:"ingest"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Tracing   TracingConfig   `mapstructure:"tracing" yaml:"tracing"`
}
