package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting the service and the CLI need. It is built once
// in main and handed to each component.
type Config struct {
	// Server
	ServerPort     string
	CORSOrigins    []string
	MaxUploadBytes int64

	// Database
	DBDriver   string // postgres | pgx | sqlite
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	// Session
	JWTSecret    string
	TokenTTL     time.Duration
	CookieName   string
	CookieSecure bool
	Campuses     []string

	// Upload archive
	ArchiveDriver      string // fs | s3 | none
	ArchiveFSRoot      string
	ArchiveS3Bucket    string
	ArchiveS3Region    string
	ArchiveS3Endpoint  string
	ArchiveS3PathStyle bool
	AWSAccessKeyID     string
	AWSSecretAccessKey string

	// Operator is recorded as uploader for imports run from the CLI.
	Operator string
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using process environment")
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		ServerPort:  getEnv("SERVER_PORT", ":8000"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),

		DBDriver:   strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "admissions"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		SQLitePath: getEnv("SQLITE_PATH", "admissions.db"),

		JWTSecret:  os.Getenv("JWT_SECRET"),
		CookieName: getEnv("COOKIE_NAME", "token"),
		Campuses:   splitList(getEnv("CAMPUSES", "Pilani,Goa,Hyderabad")),

		ArchiveDriver:      strings.ToLower(getEnv("ARCHIVE_DRIVER", "fs")),
		ArchiveFSRoot:      getEnv("ARCHIVE_FS_ROOT", "./uploads"),
		ArchiveS3Bucket:    os.Getenv("ARCHIVE_S3_BUCKET"),
		ArchiveS3Region:    getEnv("ARCHIVE_S3_REGION", "us-east-1"),
		ArchiveS3Endpoint:  os.Getenv("ARCHIVE_S3_ENDPOINT"),
		AWSAccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),

		Operator: getEnv("OPERATOR", "cli"),
	}

	ttl, err := getInt("TOKEN_TTL_MINUTES", 60)
	if err != nil {
		return nil, err
	}
	cfg.TokenTTL = time.Duration(ttl) * time.Minute

	maxUpload, err := getInt("MAX_UPLOAD_BYTES", 20*1024*1024)
	if err != nil {
		return nil, err
	}
	cfg.MaxUploadBytes = int64(maxUpload)

	if cfg.CookieSecure, err = getBool("COOKIE_SECURE", false); err != nil {
		return nil, err
	}
	if cfg.ArchiveS3PathStyle, err = getBool("ARCHIVE_S3_PATH_STYLE", false); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that have no usable default.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set in the environment")
	}
	switch c.DBDriver {
	case "postgres", "pgx", "sqlite":
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver)
	}
	switch c.ArchiveDriver {
	case "fs", "none":
	case "s3":
		if c.ArchiveS3Bucket == "" {
			return errors.New("ARCHIVE_S3_BUCKET required for s3 archive driver")
		}
	default:
		return fmt.Errorf("unknown ARCHIVE_DRIVER %q", c.ArchiveDriver)
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL_MINUTES must be positive")
	}
	return nil
}

// DSN returns the data source name for the configured driver.
func (c *Config) DSN() string {
	if c.DBDriver == "sqlite" {
		return c.SQLitePath
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	raw, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(raw) == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	raw, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(raw) == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
