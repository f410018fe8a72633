package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken          string          `yaml:"discord_token"`
	ClientID              string          `yaml:"client_id"`
	BackendURL            string          `yaml:"backend_url"`
	BackendTimeoutSeconds int             `yaml:"backend_timeout_seconds"`
	LogLevel              string          `yaml:"log_level"`
	LogChannelID          string          `yaml:"log_channel_id"`
	FrontendURL           string          `yaml:"frontend_url"`
	ModeratorRoleIDs      []string        `yaml:"moderator_role_ids"`
	RandomizeNames        bool            `yaml:"randomize_names"`
	Webhook               WebhookConfig   `yaml:"webhook"`
	Pending               PendingConfig   `yaml:"pending"`
	Flood                 FloodConfig     `yaml:"flood"`
	OAuth                 OAuthConfig     `yaml:"oauth"`
	Dashboard             DashboardConfig `yaml:"dashboard"`
}

// WebhookConfig covers both ends of the dashboard → bot notification channel.
type WebhookConfig struct {
	Addr   string `yaml:"addr"`
	URL    string `yaml:"url"`
	Secret string `yaml:"secret"`
}

type PendingConfig struct {
	DSN                  string `yaml:"dsn"`
	TTLMinutes           int    `yaml:"ttl_minutes"`
	PurgeIntervalSeconds int    `yaml:"purge_interval_seconds"`
}

type FloodConfig struct {
	Messages      int `yaml:"messages"`
	WindowSeconds int `yaml:"window_seconds"`
}

type OAuthConfig struct {
	ClientSecret string `yaml:"client_secret"`
	RedirectURI  string `yaml:"redirect_uri"`
}

type DashboardConfig struct {
	Addr          string `yaml:"addr"`
	JWTSecret     string `yaml:"jwt_secret"`
	SessionSecret string `yaml:"session_secret"`
	CookieSecure  bool   `yaml:"cookie_secure"`
}

func DefaultConfig() Config {
	return Config{
		BackendURL:            "http://localhost:8080",
		BackendTimeoutSeconds: 15,
		LogLevel:              "info",
		Webhook: WebhookConfig{
			Addr: ":3001",
			URL:  "http://localhost:3001/webhook",
		},
		Pending: PendingConfig{TTLMinutes: 15, PurgeIntervalSeconds: 60},
		Flood:   FloodConfig{Messages: 8, WindowSeconds: 10},
		Dashboard: DashboardConfig{
			Addr: ":5173",
		},
	}
}

// Load layers defaults, config.yaml (or CONFIG_PATH), .env and the process
// environment, in that order of increasing precedence.
func Load() (Config, error) {
	cfg := DefaultConfig()

	_ = godotenv.Load()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	cfg.BackendURL = strings.TrimRight(cfg.BackendURL, "/")
	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")
	return cfg, nil
}

func (c Config) ValidateBot() error {
	if c.DiscordToken == "" {
		return errors.New("DISCORD_BOT_TOKEN is required")
	}
	if c.BackendURL == "" {
		return errors.New("BACKEND_URL is required")
	}
	return nil
}

func (c Config) ValidateDashboard() error {
	switch {
	case c.ClientID == "":
		return errors.New("DISCORD_CLIENT_ID is required")
	case c.OAuth.ClientSecret == "":
		return errors.New("DISCORD_CLIENT_SECRET is required")
	case c.OAuth.RedirectURI == "":
		return errors.New("DISCORD_REDIRECT_URI is required")
	case c.Dashboard.JWTSecret == "":
		return errors.New("JWT_SECRET is required")
	case c.Dashboard.SessionSecret == "":
		return errors.New("SESSION_SECRET is required")
	}
	return nil
}

func (c Config) BackendTimeout() time.Duration {
	if c.BackendTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.BackendTimeoutSeconds) * time.Second
}

func (c Config) PendingTTL() time.Duration {
	if c.Pending.TTLMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.Pending.TTLMinutes) * time.Minute
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.DiscordToken = envString("DISCORD_BOT_TOKEN", cfg.DiscordToken)
	cfg.ClientID = envString("DISCORD_CLIENT_ID", cfg.ClientID)
	cfg.BackendURL = envString("BACKEND_URL", cfg.BackendURL)
	cfg.BackendTimeoutSeconds = envInt("BACKEND_TIMEOUT_SECONDS", cfg.BackendTimeoutSeconds)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.LogChannelID = envString("LOG_CHANNEL_ID", cfg.LogChannelID)
	cfg.FrontendURL = envString("FRONTEND_URL", cfg.FrontendURL)
	cfg.ModeratorRoleIDs = envList("MOD_ROLE_IDS", cfg.ModeratorRoleIDs)
	cfg.RandomizeNames = envBool("RANDOMIZE_NAMES", cfg.RandomizeNames)
	if port := os.Getenv("WEBHOOK_PORT"); port != "" {
		cfg.Webhook.Addr = ":" + strings.TrimPrefix(port, ":")
	}
	cfg.Webhook.Addr = envString("WEBHOOK_ADDR", cfg.Webhook.Addr)
	cfg.Webhook.URL = envString("WEBHOOK_URL", cfg.Webhook.URL)
	cfg.Webhook.Secret = envString("WEBHOOK_SECRET", cfg.Webhook.Secret)
	cfg.Pending.DSN = envString("PENDING_DSN", cfg.Pending.DSN)
	cfg.Pending.TTLMinutes = envInt("PENDING_TTL_MINUTES", cfg.Pending.TTLMinutes)
	cfg.Pending.PurgeIntervalSeconds = envInt("PENDING_PURGE_INTERVAL_SECONDS", cfg.Pending.PurgeIntervalSeconds)
	cfg.Flood.Messages = envInt("FLOOD_MESSAGES", cfg.Flood.Messages)
	cfg.Flood.WindowSeconds = envInt("FLOOD_WINDOW_SECONDS", cfg.Flood.WindowSeconds)
	cfg.OAuth.ClientSecret = envString("DISCORD_CLIENT_SECRET", cfg.OAuth.ClientSecret)
	cfg.OAuth.RedirectURI = envString("DISCORD_REDIRECT_URI", cfg.OAuth.RedirectURI)
	cfg.Dashboard.Addr = envString("DASHBOARD_ADDR", cfg.Dashboard.Addr)
	cfg.Dashboard.JWTSecret = envString("JWT_SECRET", cfg.Dashboard.JWTSecret)
	cfg.Dashboard.SessionSecret = envString("SESSION_SECRET", cfg.Dashboard.SessionSecret)
	cfg.Dashboard.CookieSecure = envBool("COOKIE_SECURE", cfg.Dashboard.CookieSecure)
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(strings.ToLower(level)))
	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
