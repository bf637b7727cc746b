// Package config loads all server configuration from environment variables.
//
// WHY envconfig INSTEAD OF os.Getenv?
// With plain os.Getenv, every variable needs five lines of read / check /
// parse / default / error boilerplate. envconfig reads the struct tags and
// does all of that in one call — the struct IS the documentation of every
// knob the server has.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the full server configuration.
//
// Variables are read without a prefix, so `PORT=9000 JWT_SECRET=... ./server`
// works the way the twelve-factor style expects.
type Config struct {
	Port   int    `envconfig:"PORT" default:"8080"`
	DBPath string `envconfig:"DB_PATH" default:"data/journal.db"`

	// JWTSecret signs every identity token. No default on purpose — the
	// server must not start with a guessable secret.
	JWTSecret string        `envconfig:"JWT_SECRET"`
	TokenTTL  time.Duration `envconfig:"TOKEN_TTL" default:"24h"`

	// AllowedOrigins is a comma-separated list of origins for CORS.
	// "*" (the default) is fine for local development; set the real frontend
	// origin in production.
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"*"`

	// MaxBodyBytes caps request bodies. 10 MiB covers a multipart photo
	// upload with room to spare.
	MaxBodyBytes int64 `envconfig:"MAX_BODY_BYTES" default:"10485760"`

	// MinIO object storage for the multipart upload variant. When Endpoint
	// is empty the server still runs — media can only be added by URL.
	MinioEndpoint  string `envconfig:"MINIO_ENDPOINT" default:""`
	MinioAccessKey string `envconfig:"MINIO_ACCESS_KEY" default:""`
	MinioSecretKey string `envconfig:"MINIO_SECRET_KEY" default:""`
	MinioBucket    string `envconfig:"MINIO_BUCKET" default:"journal-media"`
	MinioSSL       bool   `envconfig:"MINIO_SSL" default:"false"`
	// MinioPublicURL is the base URL clients use to fetch uploaded objects
	// (a CDN or the MinIO server itself). Defaults to http(s)://<endpoint>.
	MinioPublicURL string `envconfig:"MINIO_PUBLIC_URL" default:""`

	// Optional GitHub OAuth sign-in. Routes are only registered when both
	// ClientID and ClientSecret are set.
	GitHubClientID     string `envconfig:"GITHUB_CLIENT_ID" default:""`
	GitHubClientSecret string `envconfig:"GITHUB_CLIENT_SECRET" default:""`
	GitHubCallbackURL  string `envconfig:"GITHUB_CALLBACK_URL" default:""`
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("config: JWT_SECRET is required (try: openssl rand -hex 32)")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errors.New("config: PORT must be between 1 and 65535")
	}
	if c.MaxBodyBytes <= 0 {
		return errors.New("config: MAX_BODY_BYTES must be positive")
	}
	return nil
}

// MinioConfigured reports whether the object store settings are complete
// enough to enable the multipart upload variant.
func (c *Config) MinioConfigured() bool {
	return c.MinioEndpoint != "" && c.MinioAccessKey != "" && c.MinioSecretKey != ""
}

// OAuthConfigured reports whether the GitHub sign-in routes should be mounted.
func (c *Config) OAuthConfigured() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}
