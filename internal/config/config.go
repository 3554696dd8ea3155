package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	PostgreSQL PostgreSQLConfig `mapstructure:"pg"`
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"log"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Index      IndexConfig      `mapstructure:"index"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Audit      AuditConfig      `mapstructure:"audit"`
}

// PostgreSQLConfig holds PostgreSQL database configuration
type PostgreSQLConfig struct {
	DSN                string `mapstructure:"dsn"` // full connection string, wins over the parts below
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port"`
	User               string `mapstructure:"user"`
	Password           string `mapstructure:"password"`
	Database           string `mapstructure:"database"`
	SSLMode            string `mapstructure:"sslmode"`
	MaxConnections     int    `mapstructure:"max_connections"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int    `mapstructure:"port"`
	Host           string `mapstructure:"host"`
	GinMode        string `mapstructure:"gin_mode"`
	AllowedOrigins string `mapstructure:"allowed_origins"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// OpenAIConfig holds the OpenAI-compatible API configuration used for
// generation and embeddings.
type OpenAIConfig struct {
	APIKey              string  `mapstructure:"api_key"`
	APIBase             string  `mapstructure:"api_base"`
	ChatModel           string  `mapstructure:"chat_model"`
	ChatTemperature     float64 `mapstructure:"chat_temperature"`
	ChatTopP            float64 `mapstructure:"chat_top_p"`
	ChatMaxTokens       int     `mapstructure:"chat_max_tokens"`
	EmbeddingModel      string  `mapstructure:"embedding_model"`
	EmbeddingDimensions int     `mapstructure:"embedding_dimensions"`
	BatchSize           int     `mapstructure:"batch_size"`
	Timeout             int     `mapstructure:"timeout"` // seconds, transport level
	Enabled             bool    `mapstructure:"-"`
}

// PipelineConfig holds the query pipeline knobs.
type PipelineConfig struct {
	OracleTimeout      time.Duration `mapstructure:"oracle_timeout"`
	StoreTimeout       time.Duration `mapstructure:"store_timeout"`
	ProfileCollection  string        `mapstructure:"profile_collection"`
	FloatCollection    string        `mapstructure:"float_collection"`
	ProfileContextHits int           `mapstructure:"profile_context_hits"`
	FloatContextHits   int           `mapstructure:"float_context_hits"`
}

// IndexConfig selects the similarity index backend.
type IndexConfig struct {
	Backend                string   `mapstructure:"backend"` // memory, pgvector, elasticsearch
	ElasticsearchAddresses []string `mapstructure:"elasticsearch_addresses"`
	ElasticsearchUsername  string   `mapstructure:"elasticsearch_username"`
	ElasticsearchPassword  string   `mapstructure:"elasticsearch_password"`
	// WarmLimit caps the records per collection loaded into the memory
	// backend at startup. Zero leaves it empty.
	WarmLimit              int      `mapstructure:"warm_limit"`
}

// RedisConfig holds the context cache configuration.
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Address  string        `mapstructure:"address"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// AuditConfig selects where query audit records go.
type AuditConfig struct {
	Backend    string `mapstructure:"backend"` // postgres, sqlite, log
	SQLitePath string `mapstructure:"sqlite_path"`
}

// Load reads configuration from .env, an optional config.yaml and the
// environment. Environment keys are the dotted keys upper-cased with "_",
// e.g. OPENAI_API_KEY or PIPELINE_ORACLE_TIMEOUT.
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// DATABASE_URL is the conventional name and wins when set.
	if dsn := v.GetString("database_url"); dsn != "" {
		cfg.PostgreSQL.DSN = dsn
	}
	if addrs := v.GetString("index.elasticsearch_addresses"); addrs != "" && strings.Contains(addrs, ",") {
		cfg.Index.ElasticsearchAddresses = splitList(addrs)
	}
	cfg.OpenAI.Enabled = cfg.OpenAI.APIKey != ""

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database_url", "")
	v.SetDefault("pg.dsn", "")
	v.SetDefault("pg.host", "localhost")
	v.SetDefault("pg.port", 5432)
	v.SetDefault("pg.user", "postgres")
	v.SetDefault("pg.password", "")
	v.SetDefault("pg.database", "floatchat")
	v.SetDefault("pg.sslmode", "disable")
	v.SetDefault("pg.max_connections", 25)
	v.SetDefault("pg.max_idle_connections", 5)

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.gin_mode", "release")
	v.SetDefault("server.allowed_origins", "*")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.api_base", "https://api.openai.com/v1")
	v.SetDefault("openai.chat_model", "gpt-4o-mini")
	v.SetDefault("openai.chat_temperature", 0.1)
	v.SetDefault("openai.chat_top_p", 0.7)
	v.SetDefault("openai.chat_max_tokens", 4000)
	v.SetDefault("openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("openai.embedding_dimensions", 384)
	v.SetDefault("openai.batch_size", 100)
	v.SetDefault("openai.timeout", 60)

	v.SetDefault("pipeline.oracle_timeout", 20*time.Second)
	v.SetDefault("pipeline.store_timeout", 15*time.Second)
	v.SetDefault("pipeline.profile_collection", "argo_profiles")
	v.SetDefault("pipeline.float_collection", "argo_floats")
	v.SetDefault("pipeline.profile_context_hits", 5)
	v.SetDefault("pipeline.float_context_hits", 3)

	v.SetDefault("index.backend", "memory")
	v.SetDefault("index.elasticsearch_addresses", []string{"http://localhost:9200"})
	v.SetDefault("index.elasticsearch_username", "")
	v.SetDefault("index.elasticsearch_password", "")
	v.SetDefault("index.warm_limit", 1000)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.cache_ttl", 10*time.Minute)

	v.SetDefault("audit.backend", "postgres")
	v.SetDefault("audit.sqlite_path", "floatchat_audit.db")
}

func validate(cfg *Config) error {
	switch cfg.Index.Backend {
	case "memory", "pgvector", "elasticsearch":
	default:
		return fmt.Errorf("index.backend must be one of memory, pgvector, elasticsearch (got %q)", cfg.Index.Backend)
	}
	switch cfg.Audit.Backend {
	case "postgres", "sqlite", "log":
	default:
		return fmt.Errorf("audit.backend must be one of postgres, sqlite, log (got %q)", cfg.Audit.Backend)
	}
	if cfg.Pipeline.OracleTimeout <= 0 {
		return fmt.Errorf("pipeline.oracle_timeout must be positive")
	}
	if cfg.Pipeline.ProfileContextHits < 0 || cfg.Pipeline.FloatContextHits < 0 {
		return fmt.Errorf("context hit counts cannot be negative")
	}
	if cfg.Index.WarmLimit < 0 {
		return fmt.Errorf("index.warm_limit cannot be negative")
	}
	return nil
}

// GetPostgreSQLDSN returns PostgreSQL connection string
func (c *Config) GetPostgreSQLDSN() string {
	if c.PostgreSQL.DSN != "" {
		return c.PostgreSQL.DSN
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgreSQL.Host,
		c.PostgreSQL.Port,
		c.PostgreSQL.User,
		c.PostgreSQL.Password,
		c.PostgreSQL.Database,
		c.PostgreSQL.SSLMode,
	)
}

// NeedsPostgres reports whether any configured backend talks to PostgreSQL
// beyond the structured store itself.
func (c *Config) NeedsPostgres() bool {
	return c.Index.Backend == "pgvector" || c.Audit.Backend == "postgres"
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
