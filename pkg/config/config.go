// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Scoring, Postgres, SQLite, Kafka, Redis, ObjectStore, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Scoring     ScoringConfig     `yaml:"scoring"`
	Normalize   NormalizeConfig   `yaml:"normalize"`
	Store       StoreConfig       `yaml:"store"`
	Postgres    PostgresConfig    `yaml:"postgres"`
	SQLite      SQLiteConfig      `yaml:"sqlite"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	Redis       RedisConfig       `yaml:"redis"`
	ObjectStore ObjectStoreConfig `yaml:"objectStore"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	MaxSamples      int           `yaml:"maxSamples"`
	// RateLimit is the number of scoring requests a client may make per
	// minute; 0 disables limiting.
	RateLimit int `yaml:"rateLimit"`
}

// ScoringConfig holds the defaults of a scoring run and the batch
// input/output layout.
type ScoringConfig struct {
	Resolution    int    `yaml:"resolution"`
	Normalization string `yaml:"normalization"`
	// MaxFeatures keeps the top-N entries of every list; nil keeps all.
	MaxFeatures *int   `yaml:"maxFeatures"`
	InputDir    string `yaml:"inputDir"`
	OutputDir   string `yaml:"outputDir"`
	Pattern     string `yaml:"pattern"`
	SingleLevel bool   `yaml:"singleLevel"`
	ByInstance  bool   `yaml:"byInstance"`
	Separator   string `yaml:"separator"`
	Workers     int    `yaml:"workers"`
}

// NormalizeConfig controls optional per-token folding before scoring.
type NormalizeConfig struct {
	NFKC         bool   `yaml:"nfkc"`
	Lowercase    bool   `yaml:"lowercase"`
	StemLanguage string `yaml:"stemLanguage"`
}

// StoreConfig selects the relational backend for ranked lists: "postgres",
// "sqlite3" or "" to disable persistence.
type StoreConfig struct {
	Driver string `yaml:"driver"`
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

// SQLiteConfig holds the path of the local SQLite database.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	ScoringRequests string `yaml:"scoringRequests"`
	ListComputed    string `yaml:"listComputed"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// ObjectStoreConfig points the object sink at an S3-compatible bucket.
type ObjectStoreConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"useSSL"`
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

var normalizations = map[string]struct{}{
	"max_global": {},
	"max_word":   {},
	"num_lists":  {},
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

// Validate rejects scoring defaults the engine would refuse at run time.
func (c *Config) Validate() error {
	if c.Scoring.Resolution < 1 {
		return fmt.Errorf("scoring.resolution must be >= 1, got %d", c.Scoring.Resolution)
	}
	if _, ok := normalizations[c.Scoring.Normalization]; !ok {
		return fmt.Errorf("scoring.normalization %q is not one of max_global, max_word, num_lists", c.Scoring.Normalization)
	}
	if c.Scoring.MaxFeatures != nil && *c.Scoring.MaxFeatures < 0 {
		return fmt.Errorf("scoring.maxFeatures must be >= 0, got %d", *c.Scoring.MaxFeatures)
	}
	switch c.Store.Driver {
	case "", "postgres", "sqlite3":
	default:
		return fmt.Errorf("store.driver %q is not one of postgres, sqlite3", c.Store.Driver)
	}
	return nil
}

// defaultConfig returns a Config with defaults for local development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MaxSamples:      100000,
			RateLimit:       120,
		},
		Scoring: ScoringConfig{
			Resolution:    1,
			Normalization: "max_global",
			InputDir:      "input",
			OutputDir:     "output",
			Pattern:       "*.txt",
			Separator:     "\t",
			Workers:       4,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "lexicalavailability",
			User:            "lexicalavailability",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		SQLite: SQLiteConfig{
			Path: "idlv.db",
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "idlv-workers",
			Topics: KafkaTopics{
				ScoringRequests: "idlv.requests",
				ListComputed:    "idlv.computed",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 10 * time.Minute,
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint: "localhost:9000",
			Bucket:   "idlv-lists",
			Prefix:   "lists/",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads IDLV_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("IDLV_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("IDLV_SERVER_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.RateLimit = n
		}
	}
	if v := os.Getenv("IDLV_SCORING_RESOLUTION"); v != "" {
		if res, err := strconv.Atoi(v); err == nil {
			cfg.Scoring.Resolution = res
		}
	}
	if v := os.Getenv("IDLV_SCORING_NORMALIZATION"); v != "" {
		cfg.Scoring.Normalization = v
	}
	if v := os.Getenv("IDLV_SCORING_MAX_FEATURES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Scoring.MaxFeatures = &n
		}
	}
	if v := os.Getenv("IDLV_SCORING_INPUT_DIR"); v != "" {
		cfg.Scoring.InputDir = v
	}
	if v := os.Getenv("IDLV_SCORING_OUTPUT_DIR"); v != "" {
		cfg.Scoring.OutputDir = v
	}
	if v := os.Getenv("IDLV_STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("IDLV_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("IDLV_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("IDLV_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("IDLV_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("IDLV_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("IDLV_SQLITE_PATH"); v != "" {
		cfg.SQLite.Path = v
	}
	if v := os.Getenv("IDLV_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
		cfg.Kafka.Enabled = true
	}
	if v := os.Getenv("IDLV_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("IDLV_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("IDLV_OBJECT_STORE_ENDPOINT"); v != "" {
		cfg.ObjectStore.Endpoint = v
		cfg.ObjectStore.Enabled = true
	}
	if v := os.Getenv("IDLV_OBJECT_STORE_ACCESS_KEY"); v != "" {
		cfg.ObjectStore.AccessKey = v
	}
	if v := os.Getenv("IDLV_OBJECT_STORE_SECRET_KEY"); v != "" {
		cfg.ObjectStore.SecretKey = v
	}
	if v := os.Getenv("IDLV_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("IDLV_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
