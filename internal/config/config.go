package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// WarnMissingAPIKey is the standing warning shown while no credential is configured.
const WarnMissingAPIKey = "OPENAI_API_KEY is not set: interpretation requests will fail until it is configured"

const warnEphemeralSecret = "SESSION_SECRET is not set: using a random per-process secret, sessions will not survive a restart"

type Config struct {
	HTTPAddr  string `env:"HTTP_ADDR" default:":8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"json"`

	OpenAIAPIKey   string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL  string        `env:"OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	LLMModel       string        `env:"LLM_MODEL" default:"gpt-4o"`
	LLMTemperature float64       `env:"LLM_TEMPERATURE" default:"0.8"`
	LLMMaxTokens   int           `env:"LLM_MAX_TOKENS" default:"500"`
	LLMTimeout     time.Duration `env:"LLM_TIMEOUT" default:"0s"`

	SlowThreshold time.Duration `env:"SLOW_THRESHOLD" default:"10s"`
	SessionSecret string        `env:"SESSION_SECRET"`
	SessionMaxAge time.Duration `env:"SESSION_MAX_AGE" default:"24h"`
	CookieSecure  bool          `env:"COOKIE_SECURE" default:"false"`
	RedisURL      string        `env:"REDIS_URL"`

	SubmitRate  float64 `env:"SUBMIT_RATE" default:"0.5"`
	SubmitBurst int     `env:"SUBMIT_BURST" default:"3"`

	// EphemeralSecret is set when SessionSecret was generated at startup.
	EphemeralSecret bool
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	if cfg.SessionSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
		cfg.SessionSecret = secret
		cfg.EphemeralSecret = true
	}

	return &cfg, nil
}

// Level returns the parsed LOG_LEVEL.
func (c *Config) Level() slog.Level {
	level, _ := parseLogLevel(c.LogLevel)
	return level
}

// ClientWarnings lists the warnings worth showing to end users.
func (c *Config) ClientWarnings() []string {
	if strings.TrimSpace(c.OpenAIAPIKey) == "" {
		return []string{WarnMissingAPIKey}
	}
	return nil
}

// Warnings lists non-fatal configuration problems.
func (c *Config) Warnings() []string {
	var warnings []string
	if strings.TrimSpace(c.OpenAIAPIKey) == "" {
		warnings = append(warnings, WarnMissingAPIKey)
	}
	if c.EphemeralSecret {
		warnings = append(warnings, warnEphemeralSecret)
	}
	return warnings
}

func validate(cfg *Config) error {
	if _, err := parseLogLevel(cfg.LogLevel); err != nil {
		return err
	}
	switch cfg.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q", cfg.LogFormat)
	}

	u, err := url.Parse(cfg.OpenAIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid OPENAI_BASE_URL %q", cfg.OpenAIBaseURL)
	}
	if cfg.LLMModel == "" {
		return errors.New("LLM_MODEL must not be empty")
	}
	if cfg.LLMTemperature < 0 || cfg.LLMTemperature > 2 {
		return fmt.Errorf("LLM_TEMPERATURE must be between 0 and 2, got %v", cfg.LLMTemperature)
	}
	if cfg.LLMMaxTokens <= 0 {
		return fmt.Errorf("LLM_MAX_TOKENS must be positive, got %d", cfg.LLMMaxTokens)
	}
	if cfg.LLMTimeout < 0 {
		return fmt.Errorf("LLM_TIMEOUT must not be negative, got %s", cfg.LLMTimeout)
	}
	if cfg.SlowThreshold <= 0 {
		return fmt.Errorf("SLOW_THRESHOLD must be positive, got %s", cfg.SlowThreshold)
	}
	if cfg.SessionMaxAge <= 0 {
		return fmt.Errorf("SESSION_MAX_AGE must be positive, got %s", cfg.SessionMaxAge)
	}
	if cfg.SubmitRate <= 0 {
		return fmt.Errorf("SUBMIT_RATE must be positive, got %v", cfg.SubmitRate)
	}
	if cfg.SubmitBurst < 1 {
		return fmt.Errorf("SUBMIT_BURST must be at least 1, got %d", cfg.SubmitBurst)
	}
	return nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid LOG_LEVEL %q", s)
	}
}
