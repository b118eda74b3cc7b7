// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config loads research-connector configuration from defaults, an
// optional YAML file, dotenv files, the environment and the .secrets/
// directory, in increasing order of precedence except for secrets, which
// only fill values left empty.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/pdiddy/research-connector/internal/secrets"
	"github.com/pdiddy/research-connector/pkg/types"
)

// EnvPrefix prefixes every environment variable, e.g.
// RESEARCH_CONNECTOR_STORE_BACKEND for store.backend.
const EnvPrefix = "RESEARCH_CONNECTOR"

// Name is the config file base name searched in . and ~/.config/research-connector/.
const Name = "research-connector"

// legacyEnv maps config keys to the unprefixed variables the batch scripts
// and deployment already use. Prefixed variables win.
var legacyEnv = map[string][]string{
	"embedding.api_key":         {"OPENAI_API_KEY"},
	"embedding.model":           {"OPENAI_EMBEDDING_MODEL"},
	"embedding.dimension":       {"EMBEDDING_DIMENSION"},
	"ingest.default_confidence": {"DEFAULT_SDG_CONFIDENCE"},
	"store.database_url":        {"DATABASE_URL"},
}

// SetDefaults registers every key with its default so environment
// variables are seen by Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("embedding.provider", string(types.ProviderOpenAI))
	v.SetDefault("embedding.base_url", "https://api.openai.com/v1")
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.dimension", 1536)
	v.SetDefault("embedding.timeout", 30*time.Second)
	v.SetDefault("embedding.max_retries", 3)

	v.SetDefault("store.backend", string(types.BackendSQLite))
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.sqlite_path", filepath.Join("data", "research-connector.db"))
	v.SetDefault("store.max_conns", 10)

	v.SetDefault("search.default_limit", 20)
	v.SetDefault("search.max_limit", 100)
	v.SetDefault("search.log_timeout", 5*time.Second)

	v.SetDefault("recommend.limit", 10)
	v.SetDefault("recommend.paper_limit", 10)

	v.SetDefault("ingest.default_confidence", 0.8)
	v.SetDefault("ingest.default_topic", 0)
	v.SetDefault("ingest.email_domain", "byu.edu")
	v.SetDefault("ingest.default_institution", "Brigham Young University")
	v.SetDefault("ingest.default_country", "USA")
	v.SetDefault("ingest.default_category", "university")
	v.SetDefault("ingest.progress_every", 50)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.session_cache_size", 10000)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", Name)
	v.SetDefault("tracing.environment", "development")
}

// LoadEnvFiles loads .env.local, overriding the environment, then .env,
// which does not. Missing files are skipped.
func LoadEnvFiles(dir string) error {
	local := filepath.Join(dir, ".env.local")
	if fileExists(local) {
		if err := godotenv.Overload(local); err != nil {
			return fmt.Errorf("loading %s: %w", local, err)
		}
	}
	env := filepath.Join(dir, ".env")
	if fileExists(env) {
		if err := godotenv.Load(env); err != nil {
			return fmt.Errorf("loading %s: %w", env, err)
		}
	}
	return nil
}

// New returns a viper instance with defaults, environment binding and the
// config file read. When configFile is empty the file is optional and
// searched for; otherwise it must exist. The second result is the file
// used, if any.
func New(configFile string) (*viper.Viper, string, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range legacyEnv {
		envs := append([]string{EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, names...)
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, "", fmt.Errorf("binding %s: %w", key, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(Name)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", Name))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, "", fmt.Errorf("reading config: %w", err)
		}
		return v, "", nil
	}
	return v, v.ConfigFileUsed(), nil
}

// Decode unmarshals v and fills empty credentials from sec.
func Decode(v *viper.Viper, sec secrets.Secrets) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	cfg.Embedding.APIKey = sec.Or(cfg.Embedding.APIKey, secrets.OpenAIAPIKey)
	cfg.Store.DatabaseURL = sec.Or(cfg.Store.DatabaseURL, secrets.DatabaseURL)
	return cfg, nil
}

// Validate reports every setting that cannot work. Credentials are checked
// separately by RequireStore and RequireEmbedding, since not every command
// needs them.
func Validate(cfg types.Config) error {
	var errs []error
	if cfg.Embedding.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("embedding.dimension must be positive, got %d", cfg.Embedding.Dimension))
	}
	switch cfg.Embedding.Provider {
	case types.ProviderOpenAI, types.ProviderEndpoint:
	default:
		errs = append(errs, fmt.Errorf("embedding.provider %q: use openai or endpoint", cfg.Embedding.Provider))
	}
	switch cfg.Store.Backend {
	case types.BackendPostgres, types.BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("store.backend %q: use postgres or sqlite", cfg.Store.Backend))
	}
	if cfg.Search.MaxLimit <= 0 || cfg.Search.DefaultLimit <= 0 || cfg.Search.DefaultLimit > cfg.Search.MaxLimit {
		errs = append(errs, fmt.Errorf("search limits: default_limit %d must be within 1..max_limit %d",
			cfg.Search.DefaultLimit, cfg.Search.MaxLimit))
	}
	if c := cfg.Ingest.DefaultConfidence; c < 0 || c > 1 {
		errs = append(errs, fmt.Errorf("ingest.default_confidence %v outside [0,1]", c))
	}
	if t := cfg.Ingest.DefaultTopic; t != 0 && !types.ValidTopicID(t) {
		errs = append(errs, fmt.Errorf("ingest.default_topic %d must be from 1 to %d", t, types.TopicCount))
	}
	return errors.Join(errs...)
}

// RequireStore checks the credentials of the selected store backend.
func RequireStore(cfg types.StoreConfig) error {
	if cfg.Backend == types.BackendPostgres && cfg.DatabaseURL == "" {
		return fmt.Errorf("postgres backend requires store.database_url (or DATABASE_URL, or .secrets/%s)", secrets.DatabaseURL)
	}
	if cfg.Backend == types.BackendSQLite && cfg.SQLitePath == "" {
		return fmt.Errorf("sqlite backend requires store.sqlite_path")
	}
	return nil
}

// RequireEmbedding checks the credentials of the selected provider.
func RequireEmbedding(cfg types.EmbeddingConfig) error {
	switch cfg.Provider {
	case types.ProviderOpenAI:
		if cfg.APIKey == "" {
			return fmt.Errorf("openai provider requires embedding.api_key (or OPENAI_API_KEY, or .secrets/%s)", secrets.OpenAIAPIKey)
		}
	case types.ProviderEndpoint:
		if cfg.BaseURL == "" {
			return fmt.Errorf("endpoint provider requires embedding.base_url")
		}
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
