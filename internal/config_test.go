package internal

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/authportal/internal/authapi"
)

// envSource builds a source from a fixed environment and optional file
// values.
func envSource(env map[string]string, file map[string]string) *source {
	if file == nil {
		file = map[string]string{}
	}
	return &source{
		lookup: func(k string) (string, bool) {
			v, ok := env[k]
			return v, ok
		},
		file: file,
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(envSource(map[string]string{"AUTH_API_URL": "http://localhost:8000/"}, nil))
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "http://localhost:8000", cfg.AuthAPIURL)
	assert.Equal(t, authapi.SessionModeCookie, cfg.AuthSessionMode)
	assert.Equal(t, time.Duration(0), cfg.AuthAPITimeout)
	assert.Equal(t, 8, cfg.MinPasswordLength)
	assert.Equal(t, "!@#$%^&*", cfg.SpecialCharacters)
	assert.Equal(t, SessionStoreMemory, cfg.SessionStore)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 10, cfg.RateLimitSubmits)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)

	apiCfg := cfg.AuthAPIConfig()
	assert.Equal(t, cfg.AuthAPIURL, apiCfg.BaseURL)
	assert.Equal(t, cfg.AuthSessionMode, apiCfg.SessionMode)

	policy := cfg.PasswordPolicy()
	assert.Equal(t, 8, policy.MinPasswordLength)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	cfg, err := loadConfig(envSource(map[string]string{
		"ENV":                 "production",
		"PORT":                "9000",
		"AUTH_API_URL":        "https://api.example.com",
		"AUTH_API_TIMEOUT":    "5s",
		"AUTH_SESSION_MODE":   "bearer",
		"MIN_PASSWORD_LENGTH": "12",
		"SPECIAL_CHARACTERS":  "!?",
		"SESSION_STORE":       "Redis",
		"REDIS_URL":           "redis://localhost:6379/0",
		"SESSION_SECRET":      "0123456789abcdef0123456789abcdef",
		"SESSION_TTL":         "2h",
	}, nil))
	require.NoError(t, err)

	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.AuthAPITimeout)
	assert.Equal(t, authapi.SessionModeBearer, cfg.AuthSessionMode)
	assert.Equal(t, 12, cfg.MinPasswordLength)
	assert.Equal(t, "!?", cfg.SpecialCharacters)
	assert.Equal(t, SessionStoreRedis, cfg.SessionStore)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
}

func TestLoadConfig_UnparseableNumbersFallBack(t *testing.T) {
	cfg, err := loadConfig(envSource(map[string]string{
		"AUTH_API_URL": "http://localhost:8000",
		"PORT":         "eighty",
		"SESSION_TTL":  "a day",
	}, nil))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
}

func TestLoadConfig_ValidationErrors(t *testing.T) {
	base := func() map[string]string {
		return map[string]string{"AUTH_API_URL": "http://localhost:8000"}
	}

	tests := []struct {
		name string
		set  map[string]string
		drop string
	}{
		{name: "missing api url", drop: "AUTH_API_URL"},
		{name: "unknown session mode", set: map[string]string{"AUTH_SESSION_MODE": "jwt"}},
		{name: "zero password length", set: map[string]string{"MIN_PASSWORD_LENGTH": "0"}},
		{name: "negative timeout", set: map[string]string{"AUTH_API_TIMEOUT": "-1s"}},
		{name: "zero ttl", set: map[string]string{"SESSION_TTL": "0s"}},
		{name: "zero rate limit", set: map[string]string{"RATE_LIMIT_SUBMITS": "0"}},
		{name: "unknown store", set: map[string]string{"SESSION_STORE": "memcached"}},
		{name: "redis without url", set: map[string]string{"SESSION_STORE": "redis", "SESSION_SECRET": "0123456789abcdef0123456789abcdef"}},
		{name: "postgres without url", set: map[string]string{"SESSION_STORE": "postgres", "SESSION_SECRET": "0123456789abcdef0123456789abcdef"}},
		{name: "redis with short secret", set: map[string]string{"SESSION_STORE": "redis", "REDIS_URL": "redis://localhost:6379", "SESSION_SECRET": "short"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := base()
			for k, v := range tt.set {
				env[k] = v
			}
			delete(env, tt.drop)

			_, err := loadConfig(envSource(env, nil))
			assert.Error(t, err)
		})
	}
}

func TestNewSource_YAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authportal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
auth_api_url: https://file.example.com
SESSION_STORE: postgres
DATABASE_URL: postgres://portal@localhost/portal
SESSION_SECRET: 0123456789abcdef0123456789abcdef
MIN_PASSWORD_LENGTH: 10
PORT: 9090
LOG_LEVEL:
`), 0o600))

	src, err := newSource(path)
	require.NoError(t, err)

	// The environment wins over the file
	src.lookup = func(k string) (string, bool) {
		if k == "PORT" {
			return "7070", true
		}
		return "", false
	}

	cfg, err := loadConfig(src)
	require.NoError(t, err)

	assert.Equal(t, "https://file.example.com", cfg.AuthAPIURL)
	assert.Equal(t, SessionStorePostgres, cfg.SessionStore)
	assert.Equal(t, "postgres://portal@localhost/portal", cfg.DatabaseUrl)
	assert.Equal(t, 10, cfg.MinPasswordLength)
	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestNewSource_Errors(t *testing.T) {
	_, err := newSource(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("key: [unterminated"), 0o600))
	_, err = newSource(path)
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "production", "warn")

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "authportal", rec["service"])

	buf.Reset()
	NewLogger(&buf, "development", "debug").Debug("dev")
	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "service=authportal")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}
