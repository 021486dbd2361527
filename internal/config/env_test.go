package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	// Clear any existing env vars that might interfere
	clearEnvVars(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	// Check defaults
	assert.Equal(t, "localhost", cfg.PostgresHost)
	assert.Equal(t, 5432, cfg.PostgresPort)
	assert.Equal(t, "asset_inventory", cfg.PostgresDB)
	assert.Equal(t, "postgres", cfg.PostgresUser)
	assert.Equal(t, "postgres", cfg.PostgresPassword)
	assert.Equal(t, "", cfg.DBURL)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, "pretty", cfg.LogFormat)
	assert.Equal(t, "models/all-MiniLM-L6-v2", cfg.ModelDir)
	assert.Equal(t, "local", cfg.EmbeddingProvider)
	assert.Equal(t, "", cfg.EmbeddingEndpoint.BaseURL)
	assert.Equal(t, 60.0, cfg.EmbeddingEndpoint.Timeout)
}

func TestEnvDefaults_MatchConfigDefaults(t *testing.T) {
	// Go's struct tag defaults must be literals, so this test ensures they
	// stay in sync with the constants in config.go.
	clearEnvVars(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, DefaultPostgresHost, cfg.PostgresHost, "PostgresHost struct tag default should match DefaultPostgresHost")
	assert.Equal(t, DefaultPostgresPort, cfg.PostgresPort, "PostgresPort struct tag default should match DefaultPostgresPort")
	assert.Equal(t, DefaultPostgresDB, cfg.PostgresDB, "PostgresDB struct tag default should match DefaultPostgresDB")
	assert.Equal(t, DefaultPostgresUser, cfg.PostgresUser, "PostgresUser struct tag default should match DefaultPostgresUser")
	assert.Equal(t, DefaultPostgresPassword, cfg.PostgresPassword, "PostgresPassword struct tag default should match DefaultPostgresPassword")
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel, "LogLevel struct tag default should match DefaultLogLevel")
	assert.Equal(t, DefaultModelDir, cfg.ModelDir, "ModelDir struct tag default should match DefaultModelDir")
	assert.Equal(t, DefaultEndpointTimeout.Seconds(), cfg.EmbeddingEndpoint.Timeout, "Timeout struct tag default should match DefaultEndpointTimeout")
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("POSTGRES_PORT", "5433")
	t.Setenv("POSTGRES_DB", "inventory")
	t.Setenv("POSTGRES_USER", "svc")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("MODEL_DIR", "/opt/models/minilm")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.PostgresHost)
	assert.Equal(t, 5433, cfg.PostgresPort)
	assert.Equal(t, "inventory", cfg.PostgresDB)
	assert.Equal(t, "svc", cfg.PostgresUser)
	assert.Equal(t, "secret", cfg.PostgresPassword)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "/opt/models/minilm", cfg.ModelDir)
}

func TestLoadFromEnv_EmbeddingEndpoint(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("EMBEDDING_PROVIDER", "endpoint")
	t.Setenv("EMBEDDING_ENDPOINT_BASE_URL", "https://api.openai.com/v1")
	t.Setenv("EMBEDDING_ENDPOINT_MODEL", "text-embedding-3-small")
	t.Setenv("EMBEDDING_ENDPOINT_API_KEY", "sk-test-key")
	t.Setenv("EMBEDDING_ENDPOINT_TIMEOUT", "120")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "endpoint", cfg.EmbeddingProvider)
	assert.Equal(t, "https://api.openai.com/v1", cfg.EmbeddingEndpoint.BaseURL)
	assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingEndpoint.Model)
	assert.Equal(t, "sk-test-key", cfg.EmbeddingEndpoint.APIKey)
	assert.Equal(t, 120.0, cfg.EmbeddingEndpoint.Timeout)
}

func TestToAppConfig(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("EMBEDDING_PROVIDER", "endpoint")
	t.Setenv("EMBEDDING_ENDPOINT_BASE_URL", "http://localhost:8000/v1")
	t.Setenv("EMBEDDING_ENDPOINT_TIMEOUT", "30")

	envCfg, err := LoadFromEnv()
	require.NoError(t, err)

	cfg := envCfg.ToAppConfig()

	assert.Equal(t, "db.internal", cfg.Postgres().Host())
	assert.Equal(t, "secret", cfg.Postgres().Password())
	assert.Equal(t, LogFormatJSON, cfg.LogFormat())
	assert.Equal(t, ProviderEndpoint, cfg.Provider())
	require.NotNil(t, cfg.Endpoint())
	assert.Equal(t, "http://localhost:8000/v1", cfg.Endpoint().BaseURL())
	assert.Equal(t, 30*time.Second, cfg.Endpoint().Timeout())
}

func TestToAppConfig_UnknownProviderFallsBackToLocal(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("EMBEDDING_PROVIDER", "huggingface")

	envCfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, ProviderLocal, envCfg.ToAppConfig().Provider())
}

func TestToAppConfig_EndpointUnsetWhenNoBaseURL(t *testing.T) {
	clearEnvVars(t)
	// A model alone does not configure the endpoint; the base URL decides.
	t.Setenv("EMBEDDING_ENDPOINT_MODEL", "text-embedding-3-small")

	envCfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Nil(t, envCfg.ToAppConfig().Endpoint())
}

func TestLoadFromEnvWithPrefix(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("ASSETVEC_POSTGRES_HOST", "prefixed.internal")

	cfg, err := LoadFromEnvWithPrefix("ASSETVEC")
	require.NoError(t, err)

	assert.Equal(t, "prefixed.internal", cfg.PostgresHost)
}

func TestLoadDotEnv_MissingFileIsNotAnError(t *testing.T) {
	err := LoadDotEnv(filepath.Join(t.TempDir(), "does-not-exist.env"))
	assert.NoError(t, err)
}

func TestLoadConfig_FromDotEnvFile(t *testing.T) {
	clearEnvVars(t)

	envFile := filepath.Join(t.TempDir(), ".env")
	content := "POSTGRES_DB=from_dotenv\nLOG_LEVEL=WARN\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o644))

	cfg, err := LoadConfig(envFile)
	require.NoError(t, err)

	assert.Equal(t, "from_dotenv", cfg.Postgres().Database())
	assert.Equal(t, "WARN", cfg.LogLevel())
}

func TestLoadConfig_EnvVarsWinOverDotEnv(t *testing.T) {
	clearEnvVars(t)

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("POSTGRES_DB=from_dotenv\n"), 0o644))

	t.Setenv("POSTGRES_DB", "from_env")

	cfg, err := LoadConfig(envFile)
	require.NoError(t, err)

	assert.Equal(t, "from_env", cfg.Postgres().Database())
}

// clearEnvVars unsets all config-related environment variables
func clearEnvVars(t *testing.T) {
	t.Helper()

	vars := []string{
		"POSTGRES_HOST",
		"POSTGRES_PORT",
		"POSTGRES_DB",
		"POSTGRES_USER",
		"POSTGRES_PASSWORD",
		"DB_URL",
		"LOG_LEVEL",
		"LOG_FORMAT",
		"MODEL_DIR",
		"EMBEDDING_PROVIDER",
		"EMBEDDING_ENDPOINT_BASE_URL",
		"EMBEDDING_ENDPOINT_MODEL",
		"EMBEDDING_ENDPOINT_API_KEY",
		"EMBEDDING_ENDPOINT_TIMEOUT",
	}

	for _, v := range vars {
		_ = os.Unsetenv(v)
	}
}
