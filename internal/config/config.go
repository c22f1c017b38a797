package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Host        string `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port        int    `envconfig:"SERVER_PORT" default:"9000"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// AuthConfig carries the device authentication protocol settings.
type AuthConfig struct {
	// HMACSecret is the shared secret devices sign handshake requests with.
	HMACSecret string `envconfig:"AUTH_HMAC_SECRET" required:"true"`

	// JWTSecret signs access and refresh tokens.
	JWTSecret string `envconfig:"AUTH_JWT_SECRET" required:"true"`

	// JWTAlgorithm selects the token signing algorithm. Only the HMAC
	// family is supported; the tokenizer rejects anything else.
	JWTAlgorithm string `envconfig:"AUTH_JWT_ALGORITHM" default:"HS256"`

	AccessTTL  time.Duration `envconfig:"AUTH_ACCESS_TTL" default:"15m"`
	RefreshTTL time.Duration `envconfig:"AUTH_REFRESH_TTL" default:"336h"`

	// DriftSeconds is the symmetric freshness window around server time.
	DriftSeconds int `envconfig:"AUTH_DRIFT_SECONDS" default:"300"`

	// NonceTTLSeconds bounds how long a consumed nonce is remembered.
	// Must cover the drift window; defaults to twice its size.
	NonceTTLSeconds int `envconfig:"AUTH_NONCE_TTL_SECONDS" default:"600"`

	// EnforceAccessToken flips the protected-endpoint middleware from the
	// observed soft-fail behavior (log and proceed) to hard rejection.
	EnforceAccessToken bool `envconfig:"AUTH_ENFORCE_ACCESS_TOKEN" default:"false"`
}

type RateLimitConfig struct {
	Enabled bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`

	// AuthPerMinute limits handshake/refresh calls per client IP.
	AuthPerMinute int `envconfig:"RATE_LIMIT_AUTH_PER_MINUTE" default:"5"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
