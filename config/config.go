package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config for the whole application
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	API     APIConfig     `mapstructure:"api"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	Pricer  PricerConfig  `mapstructure:"pricer"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// General application configuration
type AppConfig struct {
	Name        string        `mapstructure:"name" validate:"required"`
	Environment string        `mapstructure:"environment" validate:"oneof=development test production"`
	LogLevel    string        `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFile     LogFileConfig `mapstructure:"log_file"`
}

// Rotating log file; disabled when Path is empty
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
}

// Configuration for the API server
type APIConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port" validate:"required,min=1,max=65535"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// BookBroadcastInterval is how often book valuations are pushed to websocket clients
	BookBroadcastInterval time.Duration   `mapstructure:"book_broadcast_interval"`
	CORS                  CORSConfig      `mapstructure:"cors"`
	RateLimit             RateLimitConfig `mapstructure:"rate_limit"`
}

// Per-client request rate limit; disabled when RequestsPerSecond is zero
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gte=0"`
	Burst             int     `mapstructure:"burst" validate:"gte=0"`
}

// CORS configuration
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

// Configuration for Kafka
type KafkaConfig struct {
	Brokers        []string             `mapstructure:"brokers" validate:"required,min=1"`
	Consumer       KafkaConsumerConfig  `mapstructure:"consumer"`
	Producer       KafkaProducerConfig  `mapstructure:"producer"`
	Topics         KafkaTopicsConfig    `mapstructure:"topics"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// Kafka consumer configuration
type KafkaConsumerConfig struct {
	GroupID         string        `mapstructure:"group_id" validate:"required"`
	MinBytes        int           `mapstructure:"min_bytes"`
	MaxBytes        int           `mapstructure:"max_bytes"`
	MaxWait         time.Duration `mapstructure:"max_wait"`
	CommitInterval  time.Duration `mapstructure:"commit_interval"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`
	MaxRetryBackoff time.Duration `mapstructure:"max_retry_backoff"`
}

// Kafka producer configuration
type KafkaProducerConfig struct {
	RequiredAcks int           `mapstructure:"required_acks" validate:"oneof=-1 0 1"`
	Compression  string        `mapstructure:"compression" validate:"oneof=none gzip snappy lz4 zstd"`
	BatchSize    int           `mapstructure:"batch_size" validate:"gte=1"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	MaxAttempts  int           `mapstructure:"max_attempts" validate:"gte=1"`
}

// Kafka topics configuration
type KafkaTopicsConfig struct {
	PricingRequests string `mapstructure:"pricing_requests" validate:"required"`
	PricingResults  string `mapstructure:"pricing_results" validate:"required"`
}

// Circuit breaker guarding the result producer
type CircuitBreakerConfig struct {
	MaxRequests         uint32        `mapstructure:"max_requests"`
	Interval            time.Duration `mapstructure:"interval"`
	Timeout             time.Duration `mapstructure:"timeout"`
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures" validate:"gte=1"`
}

// Configuration for the CDS pricer and the book risk calculator
type PricerConfig struct {
	// Formula is ORIGINAL_ISDA, MARKIT_FIX or CORRECT
	Formula   string `mapstructure:"formula" validate:"oneof=ORIGINAL_ISDA MARKIT_FIX CORRECT"`
	PriceType string `mapstructure:"price_type" validate:"oneof=CLEAN DIRTY"`
	Workers   int    `mapstructure:"workers" validate:"gte=1"`
	// CS01Bump is the parallel credit curve shift used for CS01, in rate units
	CS01Bump float64 `mapstructure:"cs01_bump" validate:"gt=0"`
	// MarketFile optionally seeds the service with a JSON market snapshot
	MarketFile string `mapstructure:"market_file"`
}

// Configuration for metrics
type MetricsConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// Configuration for Prometheus metrics
type PrometheusConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port" validate:"min=0,max=65535"`
}

var validate = validator.New()

// Load reads ./config/config.yaml (or CDS_CONFIG_PATH) over the defaults,
// applies CDS_* environment overrides and validates the result. A missing
// config file is not an error.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	path := GetConfigPath()
	v.SetConfigName(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Dir(path))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("CDS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.Pricer.Formula = strings.ToUpper(config.Pricer.Formula)
	config.Pricer.PriceType = strings.ToUpper(config.Pricer.PriceType)

	if err := validate.Struct(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "cds-pricing-engine")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_file.path", "")
	v.SetDefault("app.log_file.max_size_mb", 100)
	v.SetDefault("app.log_file.max_backups", 5)
	v.SetDefault("app.log_file.max_age_days", 28)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.read_timeout", "10s")
	v.SetDefault("api.write_timeout", "30s")
	v.SetDefault("api.shutdown_timeout", "30s")
	v.SetDefault("api.book_broadcast_interval", "5s")
	v.SetDefault("api.cors.allowed_origins", []string{"*"})
	v.SetDefault("api.cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("api.cors.allowed_headers", []string{"Authorization", "Content-Type"})
	v.SetDefault("api.rate_limit.requests_per_second", 0)
	v.SetDefault("api.rate_limit.burst", 20)

	// Kafka defaults
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.consumer.group_id", "cds-pricing-engine")
	v.SetDefault("kafka.consumer.min_bytes", 1)
	v.SetDefault("kafka.consumer.max_bytes", 10e6)
	v.SetDefault("kafka.consumer.max_wait", "500ms")
	v.SetDefault("kafka.consumer.commit_interval", "1s")
	v.SetDefault("kafka.consumer.retry_backoff", "100ms")
	v.SetDefault("kafka.consumer.max_retry_backoff", "5s")
	v.SetDefault("kafka.producer.required_acks", -1)
	v.SetDefault("kafka.producer.compression", "snappy")
	v.SetDefault("kafka.producer.batch_size", 100)
	v.SetDefault("kafka.producer.batch_timeout", "10ms")
	v.SetDefault("kafka.producer.max_attempts", 3)
	v.SetDefault("kafka.topics.pricing_requests", "cds.pricing.requests")
	v.SetDefault("kafka.topics.pricing_results", "cds.pricing.results")
	v.SetDefault("kafka.circuit_breaker.max_requests", 1)
	v.SetDefault("kafka.circuit_breaker.interval", "60s")
	v.SetDefault("kafka.circuit_breaker.timeout", "30s")
	v.SetDefault("kafka.circuit_breaker.consecutive_failures", 5)

	// Pricer defaults
	v.SetDefault("pricer.formula", "ORIGINAL_ISDA")
	v.SetDefault("pricer.price_type", "CLEAN")
	v.SetDefault("pricer.workers", 8)
	v.SetDefault("pricer.cs01_bump", 1e-4)
	v.SetDefault("pricer.market_file", "")

	// Metrics defaults
	v.SetDefault("metrics.prometheus.enabled", true)
	v.SetDefault("metrics.prometheus.port", 9090)
}

// GetConfigPath returns CDS_CONFIG_PATH or the default config location
func GetConfigPath() string {
	configPath := os.Getenv("CDS_CONFIG_PATH")
	if configPath != "" {
		return configPath
	}

	return "./config/config.yaml"
}
