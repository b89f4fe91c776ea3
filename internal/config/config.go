package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// ErrConfig marks configuration that makes the service unable to accept uploads.
var ErrConfig = errors.New("invalid configuration")

// Storage backends supported by StorageConfig.Backend.
const (
	StorageLocal = "local"
	StorageMinIO = "minio"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// StorageConfig selects where uploaded PDF bytes are written.
// Path is the storage root for the local backend.
type StorageConfig struct {
	Backend string
	Path    string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated once from environment variables at startup and passed
// explicitly to the components that need it.
type AppConfig struct {
	AppHost  string
	Port     string
	LogLevel string
	Timezone string
	// BodyLimitMB caps the size of one upload request, all files included.
	BodyLimitMB int
	Database    DatabaseConfig
	MinIO       MinIOConfig
	Storage     StorageConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:     getEnv("APP_HOST", "localhost:8080"),
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Timezone:    getEnv("APP_TIMEZONE", "UTC"),
		BodyLimitMB: getEnvInt("MAX_UPLOAD_SIZE_MB", 100),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Storage: StorageConfig{
			Backend: getEnv("STORAGE_BACKEND", StorageLocal),
			Path:    getEnv("PDFSTORE_FILEPATH", ""),
		},
	}
}

// Validate reports settings without which uploads cannot be stored.
func (c *AppConfig) Validate() error {
	if c.BodyLimitMB <= 0 {
		return fmt.Errorf("%w: MAX_UPLOAD_SIZE_MB must be positive", ErrConfig)
	}
	switch c.Storage.Backend {
	case StorageLocal:
		if c.Storage.Path == "" {
			return fmt.Errorf("%w: PDFSTORE_FILEPATH is required for the local storage backend", ErrConfig)
		}
	case StorageMinIO:
		if c.MinIO.Endpoint == "" || c.MinIO.Bucket == "" {
			return fmt.Errorf("%w: MINIO_ENDPOINT and MINIO_BUCKET are required for the minio storage backend", ErrConfig)
		}
	default:
		return fmt.Errorf("%w: unknown STORAGE_BACKEND %q", ErrConfig, c.Storage.Backend)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
