// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Analyser, Storage, Catalog, Postgres, Redis, Kafka, etc.).
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/errors"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Analyser AnalyserConfig `yaml:"analyser"`
	Storage  StorageConfig  `yaml:"storage"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// AnalyserConfig controls n-gram counting.
type AnalyserConfig struct {
	MaxN      int    `yaml:"maxN"`
	Skipgrams int    `yaml:"skipgrams"`
	Lower     bool   `yaml:"lower"`
	Language  string `yaml:"language"`
	Shards    int    `yaml:"shards"`
	// AllowGroups names the character groups kept by default filters. Empty
	// means every group.
	AllowGroups []string `yaml:"allowGroups"`
}

// StorageConfig locates the analysis, report and export files.
type StorageConfig struct {
	DataDir string `yaml:"dataDir"`
}

// CatalogConfig selects the catalog backend.
type CatalogConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver     string        `yaml:"driver"`
	SQLitePath string        `yaml:"sqlitePath"`
	Timeout    time.Duration `yaml:"timeout"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings. Empty Brokers disables
// event publishing.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	AnalysisComplete string `yaml:"analysisComplete"`
}

// RedisConfig holds Redis connection and caching parameters. An empty Addr
// disables the frequency cache.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside the analyser.
func (c *Config) Validate() error {
	if c.Analyser.MaxN < 1 {
		return apperrors.Newf(apperrors.ErrInvalidInput, 0, "analyser.maxN must be at least 1, got %d", c.Analyser.MaxN)
	}
	if c.Analyser.Skipgrams < 0 {
		return apperrors.Newf(apperrors.ErrInvalidInput, 0, "analyser.skipgrams must not be negative, got %d", c.Analyser.Skipgrams)
	}
	if c.Analyser.Shards < 1 {
		return apperrors.Newf(apperrors.ErrInvalidInput, 0, "analyser.shards must be at least 1, got %d", c.Analyser.Shards)
	}
	switch c.Catalog.Driver {
	case "sqlite", "postgres":
	default:
		return apperrors.Newf(apperrors.ErrInvalidInput, 0, "catalog.driver must be sqlite or postgres, got %q", c.Catalog.Driver)
	}
	if c.Storage.DataDir == "" {
		return apperrors.New(apperrors.ErrInvalidInput, 0, "storage.dataDir must not be empty")
	}
	return nil
}

// defaultConfig returns a Config with defaults for local use.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			RequestTimeout:  20 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Analyser: AnalyserConfig{
			MaxN:      3,
			Skipgrams: 3,
			Lower:     true,
			Language:  "und",
			Shards:    runtime.NumCPU(),
		},
		Storage: StorageConfig{
			DataDir: "data",
		},
		Catalog: CatalogConfig{
			Driver:     "sqlite",
			SQLitePath: "catalog.db",
			Timeout:    5 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "corpora",
			User:            "corpora",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			ConsumerGroup: "corpus-analyser",
			Topics: KafkaTopics{
				AnalysisComplete: "analysis.complete",
			},
		},
		Redis: RedisConfig{
			PoolSize: 10,
			CacheTTL: 10 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads CA_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CA_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("CA_ANALYSER_MAX_N"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Analyser.MaxN = n
		}
	}
	if v := os.Getenv("CA_ANALYSER_SKIPGRAMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Analyser.Skipgrams = n
		}
	}
	if v := os.Getenv("CA_ANALYSER_SHARDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Analyser.Shards = n
		}
	}
	if v := os.Getenv("CA_ANALYSER_LANGUAGE"); v != "" {
		cfg.Analyser.Language = v
	}
	if v := os.Getenv("CA_STORAGE_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("CA_CATALOG_DRIVER"); v != "" {
		cfg.Catalog.Driver = v
	}
	if v := os.Getenv("CA_CATALOG_SQLITE_PATH"); v != "" {
		cfg.Catalog.SQLitePath = v
	}
	if v := os.Getenv("CA_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("CA_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("CA_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("CA_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("CA_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("CA_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("CA_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CA_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("CA_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("CA_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CA_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("CA_METRICS_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics.Enabled = enabled
		}
	}
	if v := os.Getenv("CA_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
}
