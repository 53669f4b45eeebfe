package node

import (
	"fmt"
	"strings"

	opts "github.com/goliatone/go-sysoptions"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment variable read by LoadConfig.
const EnvPrefix = "SYSOPTS"

// Store backends understood by OpenStore.
const (
	BackendMemory    = "memory"
	BackendSQLite    = "sqlite"
	BackendRedis     = "redis"
	BackendCassandra = "cassandra"
)

// Config holds node process settings.
type Config struct {
	StoreBackend string `envconfig:"STORE" default:"sqlite"`

	SQLitePath string `envconfig:"SQLITE_PATH" default:"data/options.db"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisKey      string `envconfig:"REDIS_KEY" default:"sysopts:options"`

	CassandraHosts    []string `envconfig:"CASSANDRA_HOSTS"`
	CassandraKeyspace string   `envconfig:"CASSANDRA_KEYSPACE" default:"sysopts"`
	CassandraTable    string   `envconfig:"CASSANDRA_TABLE" default:"options"`

	BootFiles  []string `envconfig:"BOOT_FILES"`
	BootPrefix string   `envconfig:"BOOT_PREFIX" default:"node.options."`

	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	LogDevelopment bool   `envconfig:"LOG_DEV" default:"false"`

	MetricsEnabled  bool   `envconfig:"METRICS_ENABLED" default:"true"`
	ActivityChannel string `envconfig:"ACTIVITY_CHANNEL" default:"options"`
}

// LoadConfig reads SYSOPTS_* environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("node: load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultConfig mirrors the envconfig defaults.
func DefaultConfig() Config {
	return Config{
		StoreBackend:      BackendSQLite,
		SQLitePath:        "data/options.db",
		RedisAddr:         "localhost:6379",
		RedisKey:          "sysopts:options",
		CassandraKeyspace: "sysopts",
		CassandraTable:    "options",
		BootPrefix:        opts.DefaultBootPrefix,
		LogLevel:          "info",
		MetricsEnabled:    true,
		ActivityChannel:   "options",
	}
}

// Validate checks the backend name and its required settings.
func (c Config) Validate() error {
	switch strings.ToLower(c.StoreBackend) {
	case BackendMemory:
	case BackendSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("node: %s_SQLITE_PATH is required for the sqlite store", EnvPrefix)
		}
	case BackendRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			return fmt.Errorf("node: %s_REDIS_ADDR is required for the redis store", EnvPrefix)
		}
	case BackendCassandra:
		if len(c.CassandraHosts) == 0 {
			return fmt.Errorf("node: %s_CASSANDRA_HOSTS is required for the cassandra store", EnvPrefix)
		}
	default:
		return fmt.Errorf("node: unknown store backend %q", c.StoreBackend)
	}
	return nil
}
