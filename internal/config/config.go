package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Redis（通報カウンタ・冪等フラグ用のエフェメラルストア）
	RedisURL string

	// JWT
	JWTPrivateKey string // RS512署名用のRSA秘密鍵（PEM）
	TokenLifetime time.Duration

	// Firebase
	FirebaseProjectID      string
	FirebaseServiceAccount string
	FirebaseAuthKey        string

	// Marker policy
	MarkerExpirationDays int           // extendExpirationで加算する日数
	MarkerReportsMax     int           // 強制失効までの通報回数しきい値
	MarkerReportTTL      time.Duration // 通報カウンタ・冪等フラグのTTL

	// Rate Limit
	RateLimitGeneral int
	RateLimitWrite   int

	// App version（クライアントの更新確認用）
	AppVersionAndroid string
	AppVersionIOS     string

	// Seed
	SeedDemoData bool // trueの場合、seedサブコマンドがデモデータも投入する

	// Server
	ServerPort string
	BaseURL    string

	// CORS
	CORSAllowedOrigin string
}

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

	cfg.JWTPrivateKey = os.Getenv("JWT_PRIVATE_KEY")
	if cfg.JWTPrivateKey == "" {
		missing = append(missing, "JWT_PRIVATE_KEY")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Firebase（未設定の場合、通知はログ出力のみのゲートウェイにフォールバックする）
	cfg.FirebaseProjectID = os.Getenv("FIREBASE_PROJECT_ID")
	cfg.FirebaseServiceAccount = os.Getenv("FIREBASE_SERVICE_ACCOUNT")
	// 環境変数ではPEM内の改行が\nエスケープで渡されるため復元する
	cfg.FirebaseAuthKey = strings.ReplaceAll(os.Getenv("FIREBASE_AUTH_KEY"), `\n`, "\n")

	// Optional fields with defaults
	cfg.TokenLifetime = getEnvDuration("TOKEN_LIFETIME", 365*24*time.Hour)
	cfg.MarkerExpirationDays = getEnvInt("MARKER_EXPIRATION_DAYS", 14)
	cfg.MarkerReportsMax = getEnvInt("MARKER_REPORTS_MAX", 4)
	cfg.MarkerReportTTL = getEnvDuration("MARKER_REPORT_TTL", 72*time.Hour)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitWrite = getEnvInt("RATE_LIMIT_WRITE", 30)
	cfg.AppVersionAndroid = getEnvString("APP_VERSION_ANDROID", "")
	cfg.AppVersionIOS = getEnvString("APP_VERSION_IOS", "")
	cfg.SeedDemoData = getEnvBool("SEED_DEMO_DATA", false)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.BaseURL = getEnvString("BASE_URL", "http://localhost:8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

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
