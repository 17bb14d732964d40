package config

import (
	"context"
	"time"
)

// Config represents the complete configuration for the run trigger
// pipeline. It provides type-safe access to all configuration values
// with validation.
type Config struct {
	Database    DatabaseConfig    `koanf:"database"     validate:"required"`
	Redis       RedisConfig       `koanf:"redis"         validate:"required"`
	ObjectStore ObjectStoreConfig `koanf:"objectstore"  validate:"required"`
	Entitlement EntitlementConfig `koanf:"entitlement"  validate:"required"`
	Engine      EngineConfig      `koanf:"engine"       validate:"required"`
	Limits      LimitsConfig      `koanf:"limits"       validate:"required"`
	Runtime     RuntimeConfig     `koanf:"runtime"      validate:"required"`
}

// DatabaseConfig contains Postgres connection configuration.
type DatabaseConfig struct {
	ConnString      string          `koanf:"conn_string"       env:"DB_CONN_STRING"`
	Host            string          `koanf:"host"              env:"DB_HOST"`
	Port            string          `koanf:"port"              env:"DB_PORT"`
	User            string          `koanf:"user"              env:"DB_USER"`
	Password        SensitiveString `koanf:"password"          env:"DB_PASSWORD"          sensitive:"true"`
	DBName          string          `koanf:"name"              env:"DB_NAME"`
	SSLMode         string          `koanf:"ssl_mode"          env:"DB_SSL_MODE"`
	MaxOpenConns    int             `koanf:"max_open_conns"    env:"DB_MAX_OPEN_CONNS"    validate:"min=1"`
	ConnMaxLifetime time.Duration   `koanf:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
}

// RedisConfig contains the Redis connection used for advisory locking
// and queue-name caching.
type RedisConfig struct {
	Addr     string          `koanf:"addr"     env:"REDIS_ADDR"`
	Password SensitiveString `koanf:"password" env:"REDIS_PASSWORD" sensitive:"true"`
	DB       int             `koanf:"db"       env:"REDIS_DB"`
}

// ObjectStoreConfig contains the MinIO/S3-compatible object store used
// to offload large payloads.
type ObjectStoreConfig struct {
	Endpoint  string          `koanf:"endpoint"   validate:"required" env:"OBJECTSTORE_ENDPOINT"`
	AccessKey SensitiveString `koanf:"access_key"                     env:"OBJECTSTORE_ACCESS_KEY" sensitive:"true"`
	SecretKey SensitiveString `koanf:"secret_key"                     env:"OBJECTSTORE_SECRET_KEY" sensitive:"true"`
	Bucket    string          `koanf:"bucket"     validate:"required" env:"OBJECTSTORE_BUCKET"`
	UseSSL    bool            `koanf:"use_ssl"                        env:"OBJECTSTORE_USE_SSL"`
}

// EntitlementConfig contains the HTTP client settings for the
// entitlement collaborator.
type EntitlementConfig struct {
	BaseURL string          `koanf:"base_url" validate:"required" env:"ENTITLEMENT_BASE_URL"`
	APIKey  SensitiveString `koanf:"api_key"                      env:"ENTITLEMENT_API_KEY" sensitive:"true"`
	Timeout time.Duration   `koanf:"timeout"                      env:"ENTITLEMENT_TIMEOUT"`
}

// EngineConfig contains settings for the downstream execution engine
// handoff.
type EngineConfig struct {
	MasterQueue string `koanf:"master_queue" validate:"required" env:"ENGINE_MASTER_QUEUE"`
	QueuePrefix string `koanf:"queue_prefix"                      env:"ENGINE_QUEUE_PREFIX"`
}

// LimitsConfig contains the trigger pipeline's own limits (spec.md §6).
type LimitsConfig struct {
	MaxTagsPerRun                int `koanf:"max_tags_per_run"                validate:"min=1" env:"LIMITS_MAX_TAGS_PER_RUN"`
	PayloadOffloadThresholdBytes int `koanf:"payload_offload_threshold_bytes" validate:"min=1" env:"LIMITS_PAYLOAD_OFFLOAD_THRESHOLD_BYTES"`
	MaxTaskTreeDepth             int `koanf:"max_task_tree_depth"             validate:"min=1" env:"LIMITS_MAX_TASK_TREE_DEPTH"`
}

// RuntimeConfig contains process-wide runtime behavior configuration.
type RuntimeConfig struct {
	Environment string `koanf:"environment" validate:"oneof=development staging production preview" env:"RUNTIME_ENVIRONMENT"`
	LogLevel    string `koanf:"log_level"   validate:"oneof=debug info warn error"                   env:"RUNTIME_LOG_LEVEL"`
	LogJSON     bool   `koanf:"log_json"                                                             env:"RUNTIME_LOG_JSON"`
}

// Service defines the configuration management service interface.
// It provides methods for loading, watching, and validating configuration.
type Service interface {
	// Load loads configuration from the specified sources with precedence order.
	Load(ctx context.Context, sources ...Source) (*Config, error)
	// Watch monitors configuration changes and invokes callback on updates.
	Watch(ctx context.Context, callback func(*Config)) error
	// Validate checks if the configuration meets all validation requirements.
	Validate(config *Config) error
	// GetSource returns the source type for a specific configuration key.
	// This tracks which source (env, YAML, default) provided each value,
	// enabling debugging and precedence verification.
	GetSource(key string) SourceType
}

// Source defines the interface for configuration sources.
type Source interface {
	// Load reads configuration from the source.
	Load() (map[string]any, error)
	// Watch monitors the source for changes.
	Watch(ctx context.Context, callback func()) error
	// Type returns the source type identifier.
	Type() SourceType
	// Close releases any resources held by the source.
	Close() error
}

// SourceType identifies the type of configuration source.
type SourceType string

const (
	SourceYAML    SourceType = "yaml"
	SourceEnv     SourceType = "env"
	SourceDefault SourceType = "default"
)

// Metadata contains metadata about configuration sources.
type Metadata struct {
	Sources  map[string]SourceType `json:"sources"`
	LoadedAt time.Time             `json:"loaded_at"`
}

// Load loads configuration using the default service.
// This is a convenience function for simple configuration loading.
func Load() (*Config, error) {
	service := NewService()
	return service.Load(context.Background())
}

// Default returns a Config with default values for local development.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            "5432",
			User:            "postgres",
			DBName:          "runtrigger",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
			DB:   0,
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint: "localhost:9000",
			Bucket:   "runtrigger-payloads",
			UseSSL:   false,
		},
		Entitlement: EntitlementConfig{
			BaseURL: "http://localhost:8080",
			Timeout: 5 * time.Second,
		},
		Engine: EngineConfig{
			MasterQueue: "main",
			QueuePrefix: "task/",
		},
		Limits: LimitsConfig{
			MaxTagsPerRun:                8,
			PayloadOffloadThresholdBytes: 1 << 20, // 1 MiB
			MaxTaskTreeDepth:             32,
		},
		Runtime: RuntimeConfig{
			Environment: "development",
			LogLevel:    "info",
			LogJSON:     false,
		},
	}
}
