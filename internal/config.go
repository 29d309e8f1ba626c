package internal

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/DukeRupert/authportal/internal/authapi"
	"github.com/DukeRupert/authportal/internal/validate"
)

// Session store backends.
const (
	SessionStoreMemory   = "memory"
	SessionStoreRedis    = "redis"
	SessionStorePostgres = "postgres"
)

// minSessionSecretLen applies to shared stores, where sessions outlive a
// single process.
const minSessionSecretLen = 32

type Config struct {
	Env      string
	Port     int
	LogLevel string

	// Upstream auth API
	AuthAPIURL      string
	AuthAPITimeout  time.Duration // 0 keeps the transport defaults
	AuthSessionMode authapi.SessionMode

	// Password policy
	MinPasswordLength int
	SpecialCharacters string

	// Portal sessions
	SessionStore  string // "memory", "redis" or "postgres"
	SessionTTL    time.Duration
	SessionSecret string
	RedisURL      string
	DatabaseUrl   string

	// Rate limiting of POST routes, per client IP
	RateLimitSubmits int
	RateLimitWindow  time.Duration

	// Metrics endpoint authentication
	// If both are empty, the /metrics endpoint will be unprotected (not recommended)
	MetricsUsername string
	MetricsPassword string
}

// IsDevelopment reports whether the portal runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// PasswordPolicy returns the validator policy.
func (c *Config) PasswordPolicy() validate.Policy {
	return validate.Policy{
		MinPasswordLength: c.MinPasswordLength,
		SpecialCharacters: c.SpecialCharacters,
	}
}

// AuthAPIConfig returns the auth API client configuration. The logger is
// set by the caller.
func (c *Config) AuthAPIConfig() authapi.Config {
	return authapi.Config{
		BaseURL:     c.AuthAPIURL,
		Timeout:     c.AuthAPITimeout,
		SessionMode: c.AuthSessionMode,
	}
}

func NewConfig() (*Config, error) {
	// Load .env file if it exists (ignored in production)
	_ = godotenv.Load()

	src, err := newSource(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return nil, err
	}
	return loadConfig(src)
}

func loadConfig(src *source) (*Config, error) {
	cfg := &Config{
		Env:      src.getEnv("ENV", "development"),
		Port:     src.getEnvInt("PORT", 8080),
		LogLevel: src.getEnv("LOG_LEVEL", "debug"),

		AuthAPIURL:     strings.TrimRight(src.getEnv("AUTH_API_URL", ""), "/"),
		AuthAPITimeout: src.getEnvDuration("AUTH_API_TIMEOUT", 0),

		MinPasswordLength: src.getEnvInt("MIN_PASSWORD_LENGTH", 8),
		SpecialCharacters: src.getEnv("SPECIAL_CHARACTERS", "!@#$%^&*"),

		SessionStore:  strings.ToLower(src.getEnv("SESSION_STORE", SessionStoreMemory)),
		SessionTTL:    src.getEnvDuration("SESSION_TTL", 24*time.Hour),
		SessionSecret: src.getEnv("SESSION_SECRET", ""),
		RedisURL:      src.getEnv("REDIS_URL", ""),
		DatabaseUrl:   src.getEnv("DATABASE_URL", ""),

		RateLimitSubmits: src.getEnvInt("RATE_LIMIT_SUBMITS", 10),
		RateLimitWindow:  src.getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),

		// Metrics authentication
		MetricsUsername: src.getEnv("METRICS_USERNAME", ""),
		MetricsPassword: src.getEnv("METRICS_PASSWORD", ""),
	}

	// Required
	if cfg.AuthAPIURL == "" {
		return nil, fmt.Errorf("AUTH_API_URL is required")
	}

	mode, ok := authapi.ParseSessionMode(src.getEnv("AUTH_SESSION_MODE", string(authapi.SessionModeCookie)))
	if !ok {
		return nil, fmt.Errorf("AUTH_SESSION_MODE must be either 'cookie' or 'bearer'")
	}
	cfg.AuthSessionMode = mode

	if _, err := validate.New(cfg.PasswordPolicy()); err != nil {
		return nil, fmt.Errorf("invalid password policy: %w", err)
	}

	if cfg.AuthAPITimeout < 0 {
		return nil, fmt.Errorf("AUTH_API_TIMEOUT must not be negative")
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be positive")
	}
	if cfg.RateLimitSubmits <= 0 || cfg.RateLimitWindow <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_SUBMITS and RATE_LIMIT_WINDOW must be positive")
	}

	// Validate session store configuration
	switch cfg.SessionStore {
	case SessionStoreMemory:
	case SessionStoreRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL is required when SESSION_STORE is 'redis'")
		}
	case SessionStorePostgres:
		if cfg.DatabaseUrl == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when SESSION_STORE is 'postgres'")
		}
	default:
		return nil, fmt.Errorf("SESSION_STORE must be 'memory', 'redis' or 'postgres', got: %s", cfg.SessionStore)
	}
	if cfg.SessionStore != SessionStoreMemory && len(cfg.SessionSecret) < minSessionSecretLen {
		return nil, fmt.Errorf("SESSION_SECRET of at least %d bytes is required when SESSION_STORE is '%s'", minSessionSecretLen, cfg.SessionStore)
	}

	return cfg, nil
}

// source resolves configuration keys: environment first, then the optional
// YAML file, then the fallback.
type source struct {
	lookup func(string) (string, bool)
	file   map[string]string
}

// newSource reads the YAML overlay at path. An empty path means no file.
// Keys in the file use the environment variable names:
//
//	AUTH_API_URL: https://api.example.com
//	SESSION_STORE: redis
func newSource(path string) (*source, error) {
	src := &source{lookup: os.LookupEnv, file: map[string]string{}}
	if path == "" {
		return src, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var raw map[string]interface{}
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	for k, v := range raw {
		if v == nil {
			continue
		}
		src.file[strings.ToUpper(k)] = fmt.Sprint(v)
	}
	return src, nil
}

func (s *source) value(key string) string {
	if v, ok := s.lookup(key); ok && v != "" {
		return v
	}
	return s.file[key]
}

func (s *source) getEnv(key, fallback string) string {
	if value := s.value(key); value != "" {
		return value
	}
	return fallback
}

func (s *source) getEnvInt(key string, fallback int) int {
	if value := s.value(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func (s *source) getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := s.value(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
