package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	strutil "photobook/pkg/platform/strings"
)

// Server captures process level configuration. Empty DatabaseURL, Redis.URL
// or KafkaBrokers select the in-process implementations.
type Server struct {
	Addr         string `env:"PHOTOBOOK_ADDR"     envDefault:":8080"`
	BaseURL      string `env:"PHOTOBOOK_BASE_URL" envDefault:"http://localhost:8080"`
	DatabaseURL  string `env:"DATABASE_URL"`
	LogLevel     string `env:"LOG_LEVEL"          envDefault:"info"`
	OTelEndpoint string `env:"OTEL_ENDPOINT"`
	AdminToken   string `env:"ADMIN_API_TOKEN"`
	// SeedFile loads creators and users into the in-memory stores at startup.
	// Ignored when DatabaseURL is set.
	SeedFile string `env:"SEED_FILE"`

	Redis RedisConfig
	Kafka KafkaConfig
	Claim ClaimConfig
}

// RedisConfig configures the verification lock backend.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE"      envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT"   envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT"   envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT"  envDefault:"3s"`
}

// KafkaConfig configures the claim notification producer.
type KafkaConfig struct {
	Brokers     []string `env:"KAFKA_BROKERS"      envSeparator:","`
	NotifyTopic string   `env:"KAFKA_NOTIFY_TOPIC" envDefault:"claim-notifications"`
}

// ClaimConfig tunes the verification workflow.
type ClaimConfig struct {
	LinkSecret          string        `env:"CLAIM_LINK_SECRET"`
	CodeTTLDays         int           `env:"CLAIM_CODE_TTL_DAYS"   envDefault:"7"`
	LockTTL             time.Duration `env:"CLAIM_LOCK_TTL"        envDefault:"30s"`
	WebsiteFetchTimeout time.Duration `env:"WEBSITE_FETCH_TIMEOUT" envDefault:"10s"`
	// AllowPrivateWebsites lets verification fetch loopback and private
	// addresses. Development only.
	AllowPrivateWebsites bool `env:"WEBSITE_ALLOW_PRIVATE_NETWORKS" envDefault:"false"`
}

const devLinkSecret = "dev-claim-link-secret-change-in-production"

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.Kafka.Brokers = strutil.DedupeAndTrim(cfg.Kafka.Brokers)
	if cfg.Claim.LinkSecret == "" {
		// Use a default for development - should be overridden in production
		cfg.Claim.LinkSecret = devLinkSecret
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

func (c Server) Validate() error {
	if c.Claim.CodeTTLDays <= 0 {
		return errors.New("CLAIM_CODE_TTL_DAYS must be positive")
	}
	if c.Claim.LockTTL <= 0 {
		return errors.New("CLAIM_LOCK_TTL must be positive")
	}
	if c.Claim.WebsiteFetchTimeout <= 0 {
		return errors.New("WEBSITE_FETCH_TIMEOUT must be positive")
	}
	if c.BaseURL == "" {
		return errors.New("PHOTOBOOK_BASE_URL is required")
	}
	return nil
}

// UsesDevSecret reports whether the link signing key is the development default.
func (c Server) UsesDevSecret() bool {
	return c.Claim.LinkSecret == devLinkSecret
}
