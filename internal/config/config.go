package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	BackendGraphQL  = "graphql"
	BackendPostgres = "postgres"
)

type Config struct {
	// Telegram
	BotToken           string `env:"BOT_TOKEN"`
	DropPendingUpdates bool   `env:"BOT_DROP_PENDING_UPDATES" envDefault:"false"`

	// Nhost
	NhostSubdomain  string `env:"NHOST_SUBDOMAIN" envDefault:"local"`
	NhostRegion     string `env:"NHOST_REGION" envDefault:"local"`
	NhostAuthURL    string `env:"NHOST_AUTH_URL"`
	NhostGraphQLURL string `env:"NHOST_GRAPHQL_URL"`

	// Data backend: "graphql" talks to Hasura, "postgres" reads and writes
	// the Hasura database directly and generates replies through OpenRouter.
	DataBackend      string        `env:"DATA_BACKEND" envDefault:"graphql"`
	DatabaseURL      string        `env:"DATABASE_URL"`
	DatabaseMaxConns int32         `env:"DATABASE_MAX_CONNS" envDefault:"10"`
	OpenRouterKey    string        `env:"OPENROUTER_API_KEY"`
	OpenRouterModel  string        `env:"OPENROUTER_MODEL" envDefault:"z-ai/glm-4.5-air:free"`
	OpenRouterURL    string        `env:"OPENROUTER_API_URL" envDefault:"https://openrouter.ai/api/v1"`
	HTTPTimeout      time.Duration `env:"HTTP_TIMEOUT" envDefault:"90s"`
	ClientIdleTTL    time.Duration `env:"CLIENT_IDLE_TTL" envDefault:"24h"`
	RateLimitPerMin  int           `env:"RATE_LIMIT_PER_MINUTE" envDefault:"20"`

	// Logging
	LogLevel          string `env:"LOG_LEVEL" envDefault:"info"`
	LogTelegramChatID int64  `env:"LOG_TELEGRAM_CHAT_ID"`
	LogTopicError     int    `env:"LOG_TOPIC_ERROR"`
	LogTopicSignUp    int    `env:"LOG_TOPIC_SIGNUP"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.DataBackend {
	case BackendGraphQL:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required with DATA_BACKEND=%s", BackendPostgres)
		}
		if c.OpenRouterKey == "" {
			return fmt.Errorf("OPENROUTER_API_KEY is required with DATA_BACKEND=%s", BackendPostgres)
		}
	default:
		return fmt.Errorf("unknown DATA_BACKEND %q", c.DataBackend)
	}
	if c.DatabaseMaxConns <= 0 {
		return fmt.Errorf("DATABASE_MAX_CONNS must be > 0")
	}
	if c.RateLimitPerMin <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be > 0")
	}
	return nil
}

// AuthURL returns the Nhost Auth base URL, derived from subdomain and region
// unless set explicitly.
func (c *Config) AuthURL() string {
	if c.NhostAuthURL != "" {
		return strings.TrimRight(c.NhostAuthURL, "/")
	}
	return c.serviceURL("auth", "v1")
}

// GraphQLURL returns the Hasura endpoint exposed by Nhost.
func (c *Config) GraphQLURL() string {
	if c.NhostGraphQLURL != "" {
		return c.NhostGraphQLURL
	}
	return c.serviceURL("graphql", "v1")
}

func (c *Config) serviceURL(service, version string) string {
	if c.NhostSubdomain == "local" {
		return fmt.Sprintf("https://local.%s.local.nhost.run/%s", service, version)
	}
	return fmt.Sprintf("https://%s.%s.%s.nhost.run/%s", c.NhostSubdomain, service, c.NhostRegion, version)
}
