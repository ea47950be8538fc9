// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (DATABASE_URL, GEMINI_API_KEY, runtime overrides)
//  2. Config file (~/.ragstore/config.yaml or ./config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - Embedding: model name and vector dimensionality
//   - Chunking: window size and overlap
//   - Retrieval: default top_k
//   - Storage: PostgreSQL connection (see storage.go)
//
// Sensitive values (the database password, the API key) are masked in
// MarshalJSON and String, so a Config can be logged without leaking them.
// Validation lives in validation.go and returns sentinel errors usable
// with errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidEmbedDims indicates the embedding dimensionality is out of range.
	ErrInvalidEmbedDims = errors.New("invalid embedding dimensions")

	// ErrInvalidEmbedRPS indicates the embedding rate limit is negative.
	ErrInvalidEmbedRPS = errors.New("invalid embedding rate limit")

	// ErrInvalidChunking indicates the chunk size/overlap pair is invalid.
	ErrInvalidChunking = errors.New("invalid chunking configuration")

	// ErrInvalidTopK indicates the default result count is out of range.
	ErrInvalidTopK = errors.New("invalid top_k")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresPassword indicates the PostgreSQL password is invalid.
	ErrInvalidPostgresPassword = errors.New("invalid PostgreSQL password")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")
)

const (
	// DefaultEmbedderModel is the default Gemini embedder model.
	// gemini-embedding-001 supports truncation via OutputDimensionality;
	// the pgvector schema stores DefaultEmbedDims-wide vectors.
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultEmbedDims is the vector width of the chunks table.
	DefaultEmbedDims = 1536

	// DefaultChunkSize is the chunk window size in runes.
	DefaultChunkSize = 800

	// DefaultChunkOverlap is the overlap between consecutive windows in runes.
	DefaultChunkOverlap = 200

	// DefaultTopK is the default number of results per query.
	DefaultTopK = 3

	defaultDevPassword = "ragstore_dev_password"
)

// Config stores application configuration.
// SECURITY: Sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (passwords, API keys), update MarshalJSON.
type Config struct {
	// Embedding configuration. EmbedRPS paces outbound provider calls;
	// 0 disables pacing.
	EmbedderModel string  `mapstructure:"embedder_model" json:"embedder_model"`
	EmbedDims     int     `mapstructure:"embed_dims" json:"embed_dims"`
	EmbedRPS      float64 `mapstructure:"embed_rps" json:"embed_rps"`

	// Chunking configuration
	ChunkSize    int `mapstructure:"chunk_size" json:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap" json:"chunk_overlap"`

	// Retrieval configuration
	TopK int `mapstructure:"top_k" json:"top_k"`

	// ConfigVersion labels the config file revision. Logged at startup,
	// never interpreted.
	ConfigVersion string `mapstructure:"config_version" json:"config_version"`

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// GeminiAPIKey comes from the GEMINI_API_KEY environment variable only.
	// An empty value is legal at load time; the embedder rejects calls
	// without a credential.
	GeminiAPIKey string `mapstructure:"gemini_api_key" json:"gemini_api_key"` // SENSITIVE: masked in MarshalJSON
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".ragstore")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is not an error, defaults apply.
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides the individual postgres_* settings.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	if cfg.ConfigVersion != "" {
		slog.Debug("configuration loaded", "config_version", cfg.ConfigVersion)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// Embedding defaults. embed_rps 0 means unpaced.
	viper.SetDefault("embedder_model", DefaultEmbedderModel)
	viper.SetDefault("embed_dims", DefaultEmbedDims)
	viper.SetDefault("embed_rps", 0.0)

	// Chunking defaults
	viper.SetDefault("chunk_size", DefaultChunkSize)
	viper.SetDefault("chunk_overlap", DefaultChunkOverlap)

	// Retrieval defaults
	viper.SetDefault("top_k", DefaultTopK)

	// PostgreSQL defaults for local development
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "ragstore")
	viper.SetDefault("postgres_password", defaultDevPassword)
	viper.SetDefault("postgres_db_name", "ragstore")
	viper.SetDefault("postgres_ssl_mode", "disable")
}

// bindEnvVariables binds environment variables explicitly.
func bindEnvVariables() {
	// Hardcoded keys cannot fail to bind; a panic here is a bug, not a
	// runtime error.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	// The embedding credential. Checked at call time, not at load time.
	mustBind("gemini_api_key", "GEMINI_API_KEY")

	// Runtime overrides for the embedding and retrieval knobs.
	mustBind("embedder_model", "RAGSTORE_EMBEDDER_MODEL")
	mustBind("top_k", "RAGSTORE_TOP_K")

	// NOTE: DATABASE_URL is parsed separately in parseDatabaseURL, not via
	// Viper, because it fans out into five postgres_* fields.
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks (U+2588) cannot collide with substrings of real secrets.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Secrets of 8 characters or fewer are fully masked; longer secrets keep
// their first and last 2 characters for debug utility.
//
// This defends against accidental logging of real secrets, not against
// compromised logs. If logs leak, rotate the secrets.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
//
// Sensitive fields masked:
//   - PostgresPassword
//   - GeminiAPIKey
//
// When adding new sensitive fields, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	a.GeminiAPIKey = maskSecret(a.GeminiAPIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
