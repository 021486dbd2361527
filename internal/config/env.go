// Package config provides application configuration.
package config

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvConfig holds all environment-based configuration.
// Field names map directly to environment variables; nested structs use
// an underscore delimiter (e.g. EMBEDDING_ENDPOINT_BASE_URL).
type EnvConfig struct {
	// PostgresHost is the inventory database host.
	// Env: POSTGRES_HOST (default: localhost)
	PostgresHost string `envconfig:"POSTGRES_HOST" default:"localhost"`

	// PostgresPort is the inventory database port.
	// Env: POSTGRES_PORT (default: 5432)
	PostgresPort int `envconfig:"POSTGRES_PORT" default:"5432"`

	// PostgresDB is the inventory database name.
	// Env: POSTGRES_DB (default: asset_inventory)
	PostgresDB string `envconfig:"POSTGRES_DB" default:"asset_inventory"`

	// PostgresUser is the inventory database user.
	// Env: POSTGRES_USER (default: postgres)
	PostgresUser string `envconfig:"POSTGRES_USER" default:"postgres"`

	// PostgresPassword is the inventory database password.
	// Env: POSTGRES_PASSWORD (default: postgres)
	PostgresPassword string `envconfig:"POSTGRES_PASSWORD" default:"postgres"`

	// DBURL is a full database URL. When set it overrides the POSTGRES_*
	// parts. Supports postgres:// and sqlite:/// schemes.
	// Env: DB_URL
	DBURL string `envconfig:"DB_URL"`

	// LogLevel is the log verbosity level.
	// Env: LOG_LEVEL (default: INFO)
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	// LogFormat is the log output format (pretty or json).
	// Env: LOG_FORMAT (default: pretty)
	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// ModelDir is the directory holding the ONNX sentence-transformer model.
	// Env: MODEL_DIR (default: models/all-MiniLM-L6-v2)
	ModelDir string `envconfig:"MODEL_DIR" default:"models/all-MiniLM-L6-v2"`

	// EmbeddingProvider selects local in-process inference or a remote
	// OpenAI-compatible endpoint.
	// Env: EMBEDDING_PROVIDER (default: local)
	EmbeddingProvider string `envconfig:"EMBEDDING_PROVIDER" default:"local"`

	// EmbeddingEndpoint configures the remote embeddings endpoint.
	EmbeddingEndpoint EndpointEnv `envconfig:"EMBEDDING_ENDPOINT"`
}

// EndpointEnv holds environment configuration for an embeddings endpoint.
type EndpointEnv struct {
	// BaseURL is the base URL for the endpoint.
	// Env: EMBEDDING_ENDPOINT_BASE_URL
	BaseURL string `envconfig:"BASE_URL"`

	// Model is the model identifier passed to the endpoint.
	// Env: EMBEDDING_ENDPOINT_MODEL
	Model string `envconfig:"MODEL"`

	// APIKey is the API key for authentication.
	// Env: EMBEDDING_ENDPOINT_API_KEY
	APIKey string `envconfig:"API_KEY"`

	// Timeout is the request timeout in seconds.
	// Env: EMBEDDING_ENDPOINT_TIMEOUT (default: 60)
	Timeout float64 `envconfig:"TIMEOUT" default:"60"`
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// LoadFromEnvWithPrefix loads configuration with a custom prefix.
// For example, prefix "ASSETVEC" would require ASSETVEC_DB_URL instead of DB_URL.
func LoadFromEnvWithPrefix(prefix string) (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// ToAppConfig converts EnvConfig to AppConfig.
func (e EnvConfig) ToAppConfig() AppConfig {
	cfg := NewAppConfig()

	pg := NewPostgres()
	if e.PostgresHost != "" {
		pg = pg.WithHost(e.PostgresHost)
	}
	if e.PostgresPort != 0 {
		pg = pg.WithPort(e.PostgresPort)
	}
	if e.PostgresDB != "" {
		pg = pg.WithDatabase(e.PostgresDB)
	}
	if e.PostgresUser != "" {
		pg = pg.WithUser(e.PostgresUser)
	}
	if e.PostgresPassword != "" {
		pg = pg.WithPassword(e.PostgresPassword)
	}
	cfg = applyOption(cfg, WithPostgres(pg))

	if e.DBURL != "" {
		cfg = applyOption(cfg, WithDBURL(e.DBURL))
	}
	if e.LogLevel != "" {
		cfg = applyOption(cfg, WithLogLevel(e.LogLevel))
	}
	if e.LogFormat != "" {
		cfg = applyOption(cfg, WithLogFormat(parseLogFormat(e.LogFormat)))
	}
	if e.ModelDir != "" {
		cfg = applyOption(cfg, WithModelDir(e.ModelDir))
	}
	cfg = applyOption(cfg, WithProvider(parseProvider(e.EmbeddingProvider)))

	if e.EmbeddingEndpoint.IsConfigured() {
		cfg = applyOption(cfg, WithEndpoint(e.EmbeddingEndpoint.ToEndpoint()))
	}

	return cfg
}

// applyOption applies an option to the config.
func applyOption(cfg AppConfig, opt AppConfigOption) AppConfig {
	opt(&cfg)
	return cfg
}

// IsConfigured returns true if the endpoint has a base URL configured.
func (e EndpointEnv) IsConfigured() bool {
	return e.BaseURL != ""
}

// ToEndpoint converts EndpointEnv to Endpoint.
func (e EndpointEnv) ToEndpoint() Endpoint {
	opts := []EndpointOption{
		WithBaseURL(e.BaseURL),
		WithTimeout(time.Duration(e.Timeout * float64(time.Second))),
	}
	if e.Model != "" {
		opts = append(opts, WithModel(e.Model))
	}
	if e.APIKey != "" {
		opts = append(opts, WithAPIKey(e.APIKey))
	}
	return NewEndpointWithOptions(opts...)
}

// parseLogFormat parses a log format string.
func parseLogFormat(s string) LogFormat {
	switch strings.ToLower(s) {
	case "json":
		return LogFormatJSON
	default:
		return LogFormatPretty
	}
}

// parseProvider parses an embedding provider string.
func parseProvider(s string) EmbeddingProvider {
	switch strings.ToLower(s) {
	case string(ProviderEndpoint):
		return ProviderEndpoint
	default:
		return ProviderLocal
	}
}
