// Package config は環境変数からのアプリケーション設定読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Identity Provider
	IdPProjectID string // トークン検証に使用するIdPプロジェクトID
	IdPAPIKey    string // クライアント側サインインAPIキー（サーバー単体では未使用）

	// Server
	ServerPort  string
	MetricsPort string
	BaseURL     string

	// Thumbnail fetch
	ThumbnailTimeout time.Duration
	ThumbnailMaxSize int64

	// Rate Limit（req/min/user）
	RateLimitGeneral int
	RateLimitEnroll  int

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す（起動時に致命的エラーとして扱う）。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.IdPProjectID = os.Getenv("IDP_PROJECT_ID")
	if cfg.IdPProjectID == "" {
		missing = append(missing, "IDP_PROJECT_ID")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.IdPAPIKey = getEnvString("IDP_API_KEY", "")
	cfg.ServerPort = getEnvString("SERVER_PORT", "4000")
	cfg.MetricsPort = getEnvString("METRICS_PORT", "9090")
	cfg.BaseURL = getEnvString("BASE_URL", "http://localhost:"+cfg.ServerPort)
	cfg.ThumbnailTimeout = getEnvDuration("THUMBNAIL_TIMEOUT", 10*time.Second)
	cfg.ThumbnailMaxSize = getEnvInt64("THUMBNAIL_MAX_SIZE", 2097152)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitEnroll = getEnvInt("RATE_LIMIT_ENROLL", 10)
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:5173")

	return cfg, nil
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

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
