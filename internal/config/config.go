package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr           string
	BackendURL     string
	BackendRetries int
	BackendTimeout time.Duration
	CORSOrigins    []string
	MigrationsDir  string
	DatabaseURL    string
	// Credential store
	RedisURL       string
	CookieMaxAge   time.Duration
	CookieSecure   bool
	ClientIDCookie string
	// Logging
	LogLevel       string
	LogFormat      string
	// Export pipeline
	ExportSettle   time.Duration
	ExportTimeout  time.Duration
	DOCXEngine     string
	ChromePath     string
	// MinIO artifact archive, disabled when MinIOEndpoint is empty
	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool
}

func Load() Config {
	// .env files are optional
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	return Config{
		Addr:           getenv("WEB_ADDR", ":3000"),
		BackendURL:     strings.TrimRight(getenv("BACKEND_URL", "http://localhost:8080"), "/"),
		CORSOrigins:    getenvList("CORS_ORIGINS", []string{"http://localhost:3000"}),
		MigrationsDir:  getenv("MIGRATIONS_DIR", "./db/migrations"),
		DatabaseURL:    getenv("DATABASE_URL", ""),
		RedisURL:       getenv("REDIS_URL", ""),
		CookieMaxAge:   time.Duration(getenvInt("CREDENTIAL_COOKIE_MAX_AGE", 7*24*60*60)) * time.Second,
		CookieSecure:   getenvBool("COOKIE_SECURE", false),
		ClientIDCookie: getenv("CLIENT_ID_COOKIE", "jf_client"),
		BackendRetries: getenvInt("BACKEND_RETRIES", 3),
		BackendTimeout: time.Duration(getenvInt("BACKEND_TIMEOUT_SECONDS", 10)) * time.Second,
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogFormat:      getenv("LOG_FORMAT", "json"),
		ExportSettle:   time.Duration(getenvInt("EXPORT_SETTLE_MS", 300)) * time.Millisecond,
		ExportTimeout:  time.Duration(getenvInt("EXPORT_TIMEOUT_SECONDS", 30)) * time.Second,
		DOCXEngine:     getenv("EXPORT_DOCX_ENGINE", "native"),
		ChromePath:     getenv("CHROME_PATH", ""),
		MinIOEndpoint:  getenv("MINIO_ENDPOINT", ""),
		MinIOAccessKey: getenv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey: getenv("MINIO_SECRET_KEY", ""),
		MinIOBucket:    getenv("MINIO_BUCKET", "jobfolio-exports"),
		MinIOUseSSL:    getenvBool("MINIO_USE_SSL", false),
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
