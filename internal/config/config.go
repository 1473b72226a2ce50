package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// OAuth (GitHub)
	GitHubClientID     string
	GitHubClientSecret string
	GitHubRedirectURI  string

	// Session
	// SessionSecretsは新しい順に並ぶ。署名には先頭、検証には全件を使う。
	SessionSecrets    []string
	SessionCookieName string
	SessionMaxAge     int
	SessionDomain     string
	SessionSecure     bool

	// Rate Limit (req/min)
	RateLimitGeneral int
	RateLimitAuth    int

	// Logging
	LogLevel slog.Level

	// Server
	ServerPort string
	BaseURL    string
}

// SevenDaysInSeconds はセッションのデフォルト有効期間（秒）。
const SevenDaysInSeconds = 3600 * 24 * 7

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.RedisURL = os.Getenv("REDIS_URL")
	if cfg.RedisURL == "" {
		missing = append(missing, "REDIS_URL")
	}

	cfg.GitHubClientID = os.Getenv("GITHUB_CLIENT_ID")
	if cfg.GitHubClientID == "" {
		missing = append(missing, "GITHUB_CLIENT_ID")
	}

	cfg.GitHubClientSecret = os.Getenv("GITHUB_CLIENT_SECRET")
	if cfg.GitHubClientSecret == "" {
		missing = append(missing, "GITHUB_CLIENT_SECRET")
	}

	cfg.GitHubRedirectURI = os.Getenv("GITHUB_REDIRECT_URI")
	if cfg.GitHubRedirectURI == "" {
		missing = append(missing, "GITHUB_REDIRECT_URI")
	}

	cfg.SessionSecrets = splitSecrets(os.Getenv("SESSION_SECRET"))
	if len(cfg.SessionSecrets) == 0 {
		missing = append(missing, "SESSION_SECRET")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	if _, err := redis.ParseURL(cfg.RedisURL); err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}

	// Optional fields with defaults
	cfg.SessionCookieName = getEnvString("SESSION_COOKIE_NAME", "__session")
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", SevenDaysInSeconds)
	cfg.SessionDomain = getEnvString("SESSION_DOMAIN", "")
	cfg.SessionSecure = getEnvBool("SESSION_SECURE", false)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitAuth = getEnvInt("RATE_LIMIT_AUTH", 10)
	cfg.LogLevel = getEnvLevel("LOG_LEVEL", slog.LevelInfo)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.BaseURL = getEnvString("BASE_URL", "/")

	return cfg, nil
}

// splitSecrets はカンマ区切りのシークレット一覧を分割する。空要素は捨てる。
func splitSecrets(v string) []string {
	var secrets []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			secrets = append(secrets, s)
		}
	}
	return secrets
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvLevel(key string, defaultVal slog.Level) slog.Level {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return defaultVal
	}
	return level
}
