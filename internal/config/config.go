// Package config holds typed configuration for the dropscope service.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds typed configuration for the analysis service.
type Config struct {
	LogLevel    string
	HTTPPort    string
	MetricsAddr string

	// TaskStore selects the task store backend: "memory" or "redis".
	TaskStore string
	RedisAddr string

	// ReportStore selects the report store backend: "memory" or "postgres".
	ReportStore string
	PostgresDSN string

	// KafkaBrokers enables the status event sink when non-empty.
	KafkaBrokers string
	KafkaTopic   string

	OTelEndpoint string

	ArchiveBaseURL    string
	ArchiveUserAgent  string
	ArchiveTimeout    time.Duration
	ArchiveMaxRetries int

	OpenRouterAPIKey  string
	OpenRouterModel   string
	OpenRouterBaseURL string
	OpenRouterTimeout time.Duration

	// RateLimit is submissions allowed per client per RateWindow; 0
	// disables rate limiting.
	RateLimit  int
	RateWindow time.Duration
}

// Load reads all values from the given viper instance.
func Load(v *viper.Viper) Config {
	return Config{
		LogLevel:    v.GetString("log_level"),
		HTTPPort:    v.GetString("http_port"),
		MetricsAddr: v.GetString("metrics_addr"),

		TaskStore: v.GetString("task_store"),
		RedisAddr: v.GetString("redis_addr"),

		ReportStore: v.GetString("report_store"),
		PostgresDSN: v.GetString("postgres_dsn"),

		KafkaBrokers: v.GetString("kafka_brokers"),
		KafkaTopic:   v.GetString("kafka_topic"),

		OTelEndpoint: v.GetString("otel_endpoint"),

		ArchiveBaseURL:    v.GetString("archive_base_url"),
		ArchiveUserAgent:  v.GetString("archive_user_agent"),
		ArchiveTimeout:    v.GetDuration("archive_timeout"),
		ArchiveMaxRetries: v.GetInt("archive_max_retries"),

		OpenRouterAPIKey:  v.GetString("openrouter_api_key"),
		OpenRouterModel:   v.GetString("openrouter_model"),
		OpenRouterBaseURL: v.GetString("openrouter_base_url"),
		OpenRouterTimeout: v.GetDuration("openrouter_timeout"),

		RateLimit:  v.GetInt("rate_limit"),
		RateWindow: v.GetDuration("rate_window"),
	}
}
