package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Black-And-White-Club/consensus-rank/app/shared/observability"
	"gopkg.in/yaml.v3"
)

// Config struct to hold the configuration settings
type Config struct {
	Postgres      PostgresConfig      `yaml:"postgres"`
	NATS          NATSConfig          `yaml:"nats"`
	Redis         RedisConfig         `yaml:"redis"`
	HTTP          HTTPConfig          `yaml:"http"`
	Ranking       RankingConfig       `yaml:"ranking"`
	Archive       ArchiveConfig       `yaml:"archive"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// NATSConfig holds NATS configuration. An empty URL uses the in-process bus.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig holds Redis configuration. An empty URL disables the read cache.
type RedisConfig struct {
	URL      string        `yaml:"url"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// HTTPConfig holds the API server settings.
type HTTPConfig struct {
	Address         string        `yaml:"address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// RankingConfig holds aggregation settings.
type RankingConfig struct {
	StorageTimeout      time.Duration `yaml:"storage_timeout"`
	DefaultType         int           `yaml:"default_type"`
	RetentionDays       int           `yaml:"retention_days"`
	AggregationInterval time.Duration `yaml:"aggregation_interval"`
	TruncateToType      *bool         `yaml:"truncate_to_type"`
	QueueEnabled        *bool         `yaml:"queue_enabled"`
}

// ArchiveConfig holds the S3-compatible bucket for daily snapshots. An empty
// bucket disables archiving.
type ArchiveConfig struct {
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// ObservabilityConfig holds configuration for observability components
type ObservabilityConfig struct {
	ServiceName     string  `yaml:"service_name"`
	Environment     string  `yaml:"environment"`
	LogLevel        string  `yaml:"log_level"`
	MetricsAddress  string  `yaml:"metrics_address"`
	OTLPEndpoint    string  `yaml:"otlp_endpoint"`
	OTLPInsecure    bool    `yaml:"otlp_insecure"`
	TraceSampleRate float64 `yaml:"trace_sample_rate"`
}

// TruncateToTypeEnabled reports whether consensus reads stop at the
// ranking type's size. Defaults to true.
func (c RankingConfig) TruncateToTypeEnabled() bool {
	return c.TruncateToType == nil || *c.TruncateToType
}

// QueueIsEnabled reports whether River workers run. Defaults to true.
func (c RankingConfig) QueueIsEnabled() bool {
	return c.QueueEnabled == nil || *c.QueueEnabled
}

// LoadConfig loads the configuration from a YAML file. A missing file falls
// back to environment variables only.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return loadConfigFromEnv()
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("postgres dsn not set")
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// loadConfigFromEnv loads the configuration from environment variables.
func loadConfigFromEnv() (*Config, error) {
	var cfg Config
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// applyEnv overrides cfg with any environment variable that is set.
func applyEnv(cfg *Config) error {
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Redis.URL, "REDIS_URL")
	setString(&cfg.HTTP.Address, "HTTP_ADDRESS")
	setString(&cfg.Observability.MetricsAddress, "METRICS_ADDRESS")
	setString(&cfg.Observability.Environment, "ENV")
	setString(&cfg.Observability.LogLevel, "LOG_LEVEL")
	setString(&cfg.Observability.OTLPEndpoint, "OTLP_ENDPOINT")
	setString(&cfg.Archive.Bucket, "S3_BUCKET")
	setString(&cfg.Archive.Prefix, "S3_PREFIX")
	setString(&cfg.Archive.Endpoint, "S3_ENDPOINT")
	setString(&cfg.Archive.Region, "S3_REGION")
	setString(&cfg.Archive.AccessKeyID, "S3_ACCESS_KEY_ID")
	setString(&cfg.Archive.SecretAccessKey, "S3_SECRET_ACCESS_KEY")

	if v := os.Getenv("OTLP_INSECURE"); v != "" {
		cfg.Observability.OTLPInsecure = v == "true"
	}
	if v := os.Getenv("TRACE_SAMPLE_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid TRACE_SAMPLE_RATE value: %v", err)
		}
		cfg.Observability.TraceSampleRate = f
	}
	if err := setDuration(&cfg.Ranking.AggregationInterval, "AGGREGATION_INTERVAL"); err != nil {
		return err
	}
	if err := setDuration(&cfg.Ranking.StorageTimeout, "STORAGE_TIMEOUT"); err != nil {
		return err
	}
	if err := setDuration(&cfg.Redis.CacheTTL, "CACHE_TTL"); err != nil {
		return err
	}
	if v := os.Getenv("RETENTION_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RETENTION_DAYS value: %v", err)
		}
		cfg.Ranking.RetentionDays = n
	}
	if v := os.Getenv("TRUNCATE_TO_TYPE"); v != "" {
		b := v == "true"
		cfg.Ranking.TruncateToType = &b
	}
	if v := os.Getenv("QUEUE_ENABLED"); v != "" {
		b := v == "true"
		cfg.Ranking.QueueEnabled = &b
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s value: %v", key, err)
	}
	*dst = d
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Address == "" {
		cfg.HTTP.Address = ":8080"
	}
	if cfg.HTTP.ReadTimeout <= 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout <= 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout <= 0 {
		cfg.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Ranking.StorageTimeout <= 0 {
		cfg.Ranking.StorageTimeout = 5 * time.Second
	}
	if cfg.Ranking.DefaultType == 0 {
		cfg.Ranking.DefaultType = 25
	}
	if cfg.Ranking.RetentionDays <= 0 {
		cfg.Ranking.RetentionDays = 90
	}
	if cfg.Ranking.AggregationInterval <= 0 {
		cfg.Ranking.AggregationInterval = 24 * time.Hour
	}
	if cfg.Redis.CacheTTL <= 0 {
		cfg.Redis.CacheTTL = 10 * time.Minute
	}
	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = "consensus-rank"
	}
	if cfg.Observability.Environment == "" {
		cfg.Observability.Environment = "development"
	}
	if cfg.Observability.LogLevel == "" {
		cfg.Observability.LogLevel = "info"
	}
	if cfg.Observability.TraceSampleRate <= 0 {
		cfg.Observability.TraceSampleRate = 0.1
	}
}

// ToObsConfig maps the app config onto the observability settings.
func ToObsConfig(appCfg *Config, version string) observability.Config {
	return observability.Config{
		ServiceName:  appCfg.Observability.ServiceName,
		Environment:  appCfg.Observability.Environment,
		Version:      version,
		LogLevel:     appCfg.Observability.LogLevel,
		OTLPEndpoint: appCfg.Observability.OTLPEndpoint,
		OTLPInsecure: appCfg.Observability.OTLPInsecure,
		SampleRate:   appCfg.Observability.TraceSampleRate,
	}
}
