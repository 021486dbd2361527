// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultPostgresHost     = "localhost"
	DefaultPostgresPort     = 5432
	DefaultPostgresDB       = "asset_inventory"
	DefaultPostgresUser     = "postgres"
	DefaultPostgresPassword = "postgres"
	DefaultLogLevel         = "INFO"
	DefaultModelDir         = "models/all-MiniLM-L6-v2"
	DefaultEndpointTimeout  = 60 * time.Second
)

// LogFormat represents the log output format.
type LogFormat string

// LogFormat values.
const (
	LogFormatPretty LogFormat = "pretty"
	LogFormatJSON   LogFormat = "json"
)

// EmbeddingProvider selects how vectors are computed.
type EmbeddingProvider string

// EmbeddingProvider values.
const (
	// ProviderLocal runs the sentence-transformer model in-process.
	ProviderLocal EmbeddingProvider = "local"
	// ProviderEndpoint calls an OpenAI-compatible embeddings endpoint.
	ProviderEndpoint EmbeddingProvider = "endpoint"
)

// Postgres holds the connection parts for the inventory database.
type Postgres struct {
	host     string
	port     int
	database string
	user     string
	password string
}

// NewPostgres creates Postgres connection parts with defaults.
func NewPostgres() Postgres {
	return Postgres{
		host:     DefaultPostgresHost,
		port:     DefaultPostgresPort,
		database: DefaultPostgresDB,
		user:     DefaultPostgresUser,
		password: DefaultPostgresPassword,
	}
}

// Host returns the database host.
func (p Postgres) Host() string { return p.host }

// Port returns the database port.
func (p Postgres) Port() int { return p.port }

// Database returns the database name.
func (p Postgres) Database() string { return p.database }

// User returns the database user.
func (p Postgres) User() string { return p.user }

// Password returns the database password.
func (p Postgres) Password() string { return p.password }

// WithHost returns a copy with the specified host.
func (p Postgres) WithHost(host string) Postgres {
	p.host = host
	return p
}

// WithPort returns a copy with the specified port.
func (p Postgres) WithPort(port int) Postgres {
	p.port = port
	return p
}

// WithDatabase returns a copy with the specified database name.
func (p Postgres) WithDatabase(name string) Postgres {
	p.database = name
	return p
}

// WithUser returns a copy with the specified user.
func (p Postgres) WithUser(user string) Postgres {
	p.user = user
	return p
}

// WithPassword returns a copy with the specified password.
func (p Postgres) WithPassword(password string) Postgres {
	p.password = password
	return p
}

// URL assembles a postgres:// connection URL from the parts.
func (p Postgres) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.user, p.password),
		Host:     fmt.Sprintf("%s:%d", p.host, p.port),
		Path:     "/" + p.database,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// Endpoint configures an OpenAI-compatible embeddings endpoint.
type Endpoint struct {
	baseURL string
	model   string
	apiKey  string
	timeout time.Duration
}

// NewEndpoint creates a new Endpoint with defaults.
func NewEndpoint() Endpoint {
	return Endpoint{
		timeout: DefaultEndpointTimeout,
	}
}

// BaseURL returns the base URL for the endpoint.
func (e Endpoint) BaseURL() string { return e.baseURL }

// Model returns the model identifier.
func (e Endpoint) Model() string { return e.model }

// APIKey returns the API key.
func (e Endpoint) APIKey() string { return e.apiKey }

// Timeout returns the request timeout.
func (e Endpoint) Timeout() time.Duration { return e.timeout }

// IsConfigured returns true if the endpoint has required configuration.
func (e Endpoint) IsConfigured() bool {
	return e.baseURL != ""
}

// EndpointOption is a functional option for Endpoint.
type EndpointOption func(*Endpoint)

// WithBaseURL sets the base URL.
func WithBaseURL(url string) EndpointOption {
	return func(e *Endpoint) { e.baseURL = url }
}

// WithModel sets the model.
func WithModel(model string) EndpointOption {
	return func(e *Endpoint) { e.model = model }
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) EndpointOption {
	return func(e *Endpoint) { e.apiKey = key }
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) EndpointOption {
	return func(e *Endpoint) { e.timeout = d }
}

// NewEndpointWithOptions creates an Endpoint with functional options.
func NewEndpointWithOptions(opts ...EndpointOption) Endpoint {
	e := NewEndpoint()
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// AppConfig holds the main application configuration.
type AppConfig struct {
	postgres  Postgres
	dbURL     string
	logLevel  string
	logFormat LogFormat
	modelDir  string
	provider  EmbeddingProvider
	endpoint  *Endpoint
}

// NewAppConfig creates a new AppConfig with defaults.
func NewAppConfig() AppConfig {
	return AppConfig{
		postgres:  NewPostgres(),
		logLevel:  DefaultLogLevel,
		logFormat: LogFormatPretty,
		modelDir:  DefaultModelDir,
		provider:  ProviderLocal,
	}
}

// Postgres returns the database connection parts.
func (c AppConfig) Postgres() Postgres { return c.postgres }

// DBURL returns the raw database URL override, if any.
func (c AppConfig) DBURL() string { return c.dbURL }

// DatabaseURL returns the effective database URL. An explicit DB_URL
// override wins; otherwise the URL is assembled from the Postgres parts.
func (c AppConfig) DatabaseURL() string {
	if c.dbURL != "" {
		return c.dbURL
	}
	return c.postgres.URL()
}

// LogLevel returns the log level.
func (c AppConfig) LogLevel() string { return c.logLevel }

// LogFormat returns the log format.
func (c AppConfig) LogFormat() LogFormat { return c.logFormat }

// ModelDir returns the local sentence-transformer model directory.
func (c AppConfig) ModelDir() string { return c.modelDir }

// Provider returns the embedding provider selection.
func (c AppConfig) Provider() EmbeddingProvider { return c.provider }

// Endpoint returns the embeddings endpoint config, or nil when unset.
func (c AppConfig) Endpoint() *Endpoint { return c.endpoint }

// AppConfigOption is a functional option for AppConfig.
type AppConfigOption func(*AppConfig)

// WithPostgres sets the database connection parts.
func WithPostgres(p Postgres) AppConfigOption {
	return func(c *AppConfig) { c.postgres = p }
}

// WithDBURL sets the database URL override.
func WithDBURL(url string) AppConfigOption {
	return func(c *AppConfig) { c.dbURL = url }
}

// WithLogLevel sets the log level.
func WithLogLevel(level string) AppConfigOption {
	return func(c *AppConfig) { c.logLevel = level }
}

// WithLogFormat sets the log format.
func WithLogFormat(format LogFormat) AppConfigOption {
	return func(c *AppConfig) { c.logFormat = format }
}

// WithModelDir sets the model directory.
func WithModelDir(dir string) AppConfigOption {
	return func(c *AppConfig) { c.modelDir = dir }
}

// WithProvider sets the embedding provider.
func WithProvider(p EmbeddingProvider) AppConfigOption {
	return func(c *AppConfig) { c.provider = p }
}

// WithEndpoint sets the embeddings endpoint.
func WithEndpoint(e Endpoint) AppConfigOption {
	return func(c *AppConfig) { c.endpoint = &e }
}

// NewAppConfigWithOptions creates an AppConfig with functional options.
func NewAppConfigWithOptions(opts ...AppConfigOption) AppConfig {
	c := NewAppConfig()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Apply returns a new AppConfig with the given options applied.
func (c AppConfig) Apply(opts ...AppConfigOption) AppConfig {
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// LogAttrs returns slog attributes for logging the configuration.
// The database password is never included.
func (c AppConfig) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("db_url", c.maskedDatabaseURL()),
		slog.String("log_level", c.logLevel),
		slog.String("provider", string(c.provider)),
		slog.String("model_dir", c.modelDir),
		slog.String("endpoint_base_url", c.endpointBaseURL()),
		slog.String("endpoint_model", c.endpointModel()),
	}
}

func (c AppConfig) maskedDatabaseURL() string {
	raw := c.DatabaseURL()
	if strings.HasPrefix(raw, "sqlite:") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	u.User = url.User("***")
	return u.String()
}

func (c AppConfig) endpointBaseURL() string {
	if c.endpoint == nil {
		return "(not configured)"
	}
	return c.endpoint.BaseURL()
}

func (c AppConfig) endpointModel() string {
	if c.endpoint == nil {
		return "(not configured)"
	}
	return c.endpoint.Model()
}
