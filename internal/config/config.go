package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                 string
	AppEnv               string
	LogLevel             string
	LogFormat            string
	DatabaseURL          string
	JWTSecret            string
	SessionTTL           time.Duration
	SessionCookieSecure  bool
	AllowOrigins         []string
	LogstashTCPAddr      string
	RedisURL             string
	LoginMaxFailures     int
	LoginLockoutWindow   time.Duration
	LoginLocked          bool
	Maintainer           string
	PasswordMinLength    int
	MinIOEndpoint        string
	MinIOAccessKey       string
	MinIOSecretKey       string
	MinIOUseSSL          bool
	MinIOBucketTransfers string
	SMTPHost             string
	SMTPPort             string
	SMTPUsername         string
	SMTPPassword         string
	SMTPFrom             string
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	return Config{
		Port:                 getenv("PORT", "8080"),
		AppEnv:               getenv("APP_ENV", "development"),
		LogLevel:             getenv("LOG_LEVEL", "info"),
		LogFormat:            getenv("LOG_FORMAT", ""),
		DatabaseURL:          must("DATABASE_URL"),
		JWTSecret:            must("JWT_SECRET"),
		SessionTTL:           getDuration("SESSION_TTL", 24*time.Hour),
		SessionCookieSecure:  getBool("SESSION_COOKIE_SECURE", false),
		AllowOrigins:         splitAndTrim(getenv("ALLOW_ORIGINS", "*")),
		LogstashTCPAddr:      getenv("LOGSTASH_TCP_ADDR", ""),
		RedisURL:             getenv("REDIS_URL", ""),
		LoginMaxFailures:     getInt("LOGIN_MAX_FAILURES", 5),
		LoginLockoutWindow:   getDuration("LOGIN_LOCKOUT_WINDOW", 15*time.Minute),
		LoginLocked:          getBool("LOGIN_LOCKED", false),
		Maintainer:           getenv("MAINTAINER", "the site maintainer"),
		PasswordMinLength:    getInt("PASSWORD_MIN_LENGTH", 8),
		MinIOEndpoint:        getenv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:       getenv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:       getenv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:          getBool("MINIO_USE_SSL", false),
		MinIOBucketTransfers: getenv("MINIO_BUCKET_TRANSFERS", "tjdests-transfers"),
		SMTPHost:             getenv("SMTP_HOST", ""),
		SMTPPort:             getenv("SMTP_PORT", ""),
		SMTPUsername:         getenv("SMTP_USERNAME", ""),
		SMTPPassword:         getenv("SMTP_PASSWORD", ""),
		SMTPFrom:             getenv("SMTP_FROM", ""),
	}
}

func splitAndTrim(input string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getInt(k string, d int) int {
	if v, err := strconv.Atoi(getenv(k, "")); err == nil && v > 0 {
		return v
	}
	return d
}

func getBool(k string, d bool) bool {
	if v, err := strconv.ParseBool(getenv(k, "")); err == nil {
		return v
	}
	return d
}

func getDuration(k string, d time.Duration) time.Duration {
	if v, err := time.ParseDuration(getenv(k, "")); err == nil && v > 0 {
		return v
	}
	return d
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}
