package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Collector holds the listener configuration for the OTLP receivers.
type Collector struct {
	GRPCPort int `envconfig:"DEVWATCH_GRPC_PORT" default:"4317"`
	HTTPPort int `envconfig:"DEVWATCH_HTTP_PORT" default:"4318"`
}

// API holds the query API listener configuration.
type API struct {
	Port int `envconfig:"DEVWATCH_API_PORT" default:"8080"`
}

// Database holds libsql/Turso database configuration. URL may be a remote
// libsql:// URL or a local file path; the auth token only applies to remote.
type Database struct {
	URL       string `envconfig:"DEVWATCH_DATABASE_URL"`
	AuthToken string `envconfig:"TURSO_AUTH_TOKEN"`
}

// Providers holds LLM provider polling configuration. A provider is enabled
// when its API key is set.
type Providers struct {
	AnthropicAPIKey  string `envconfig:"ANTHROPIC_API_KEY"`
	AnthropicOrgID   string `envconfig:"ANTHROPIC_ORG_ID"`
	OpenAIAPIKey     string `envconfig:"OPENAI_API_KEY"`
	OpenAIOrgID      string `envconfig:"OPENAI_ORG_ID"`
	CollectInterval  int    `envconfig:"DEVWATCH_COLLECT_INTERVAL_MINUTES" default:"60"`
	LookbackDays     int    `envconfig:"DEVWATCH_LOOKBACK_DAYS" default:"7"`
}

// Config is the full application configuration.
type Config struct {
	Collector Collector
	API       API
	Database  Database
	Providers Providers
	LogLevel  string `envconfig:"DEVWATCH_LOG_LEVEL" default:"info"`
}

// Load reads configuration from the environment, with a .env file applied
// first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
