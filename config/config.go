// Package config loads the service configuration from environment
// variables. Unlike the multi-service YAML+env hybrid this package used to
// wrap (see DESIGN.md), this pipeline has a single deployment topology, so
// every setting is env-driven and required fields fail the process at
// startup instead of being silently zero-valued.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Postgres holds the publisher store connection settings (§3, §4.2).
type Postgres struct {
	DSN           string `env:"POSTGRES_DSN,required"`
	MaxOpenConns  int    `env:"POSTGRES_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns  int    `env:"POSTGRES_MAX_IDLE_CONNS" envDefault:"10"`
	MigrationsDir string `env:"POSTGRES_MIGRATIONS_DIR" envDefault:"migrations"`
}

// Mongo holds the connection settings shared by the Queue, Audit,
// Metadata and Content stores (§3, §4.3-§4.6).
type Mongo struct {
	URI      string `env:"MONGO_URI,required"`
	Database string `env:"MONGO_DATABASE" envDefault:"blogqa"`
}

// Redis backs the Check-and-Load fast-path cache (§4.8).
type Redis struct {
	Addr     string `env:"REDIS_ADDR,required"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// RabbitMQ backs the Event Notifier (§4.15). It is optional: an empty
// Host disables event publishing without failing startup, since the
// notifier is a non-durable side channel, not part of the core pipeline.
type RabbitMQ struct {
	Host        string `env:"RABBITMQ_HOST" envDefault:""`
	Port        string `env:"RABBITMQ_PORT" envDefault:"5672"`
	Username    string `env:"RABBITMQ_USERNAME" envDefault:"guest"`
	Password    string `env:"RABBITMQ_PASSWORD" envDefault:"guest"`
	VirtualHost string `env:"RABBITMQ_VHOST" envDefault:"/"`
	Exchange    string `env:"RABBITMQ_EXCHANGE" envDefault:"blogqa.events"`
	RoutingKey  string `env:"RABBITMQ_ROUTING_KEY" envDefault:"blog.processed"`
}

// LLMKeys holds the provider credentials (§6 environment variables).
type LLMKeys struct {
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	GeminiAPIKey    string `env:"GEMINI_API_KEY"`
}

// Admission holds the edge auth/admission knobs (§4.7).
type Admission struct {
	AdminKey      string   `env:"ADMIN_KEY,required"`
	CORSOrigins   []string `env:"CORS_ORIGINS" envSeparator:","`
	RateLimitRule string   `env:"RATE_LIMIT_RULE" envDefault:"10-S"`
}

// Worker holds the worker runtime's tunables (§4.10, §6 CLI surface).
// CLI flags override these when the worker binary is started with them.
type Worker struct {
	PollIntervalSeconds int `env:"POLL_INTERVAL_SECONDS" envDefault:"5"`
	ConcurrentJobs      int `env:"CONCURRENT_JOBS" envDefault:"1"`
	MetricsPort         int `env:"METRICS_PORT" envDefault:"9090"`
	CrawlTimeoutSeconds int `env:"CRAWL_TIMEOUT_SECONDS" envDefault:"30"`
}

// Config is the root configuration object for both the blogqa-api and
// blogqa-worker binaries.
type Config struct {
	AppEnv     string `env:"APP_ENV" envDefault:"development"`
	ServerPort int    `env:"SERVER_PORT" envDefault:"8080"`

	Postgres  Postgres
	Mongo     Mongo
	Redis     Redis
	RabbitMQ  RabbitMQ
	LLM       LLMKeys
	Admission Admission
	Worker    Worker
}

// Load reads a local .env file if present (ignored when absent — this is
// a development convenience only, never required in a real deployment)
// and then parses the process environment into a Config, failing loudly
// if any required variable is missing.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: reading .env file: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg.AppEnv = strings.ToLower(cfg.AppEnv)
	return &cfg, nil
}

// IsProduction reports whether the service is running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production" || c.AppEnv == "prod"
}
