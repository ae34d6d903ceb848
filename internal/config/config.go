package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"milkportal/internal/errors"

	"github.com/hashicorp/go-multierror"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Upload   UploadConfig
	Storage  StorageConfig
	Datasets DatasetConfig
	Auth     AuthConfig
	Log      LogConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver string // postgres or sqlite
	URL    string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port           string
	GinMode        string
	RequestTimeout time.Duration
}

// UploadConfig bounds what the upload gate accepts
type UploadConfig struct {
	MaxSizeMB     int
	PreviewRows   int
	MaxConcurrent int // workbook parses running at once
}

// MaxBytes is the upload limit in bytes
func (u UploadConfig) MaxBytes() int64 {
	return int64(u.MaxSizeMB) << 20
}

// StorageConfig selects and configures blob storage
type StorageConfig struct {
	Driver   string // local or s3
	Path     string
	Endpoint string
	Region   string
	Key      string
	Secret   string
	Bucket   string
	Prefix   string
}

// DatasetConfig locates the reference datasets in blob storage
type DatasetConfig struct {
	ReferenceKey    string
	ActualYieldsKey string
	TestSetSize     int
	TestSetSeed     int64
}

// AuthConfig holds bearer token verification settings. An empty secret runs
// the server in single-user mode.
type AuthConfig struct {
	JWTSecret   string
	Audience    string
	AdminEmails []string
}

// Enabled reports whether bearer tokens are required
func (a AuthConfig) Enabled() bool {
	return a.JWTSecret != ""
}

// IsAdmin reports whether email is configured as an administrator
func (a AuthConfig) IsAdmin(email string) bool {
	for _, admin := range a.AdminEmails {
		if strings.EqualFold(admin, strings.TrimSpace(email)) {
			return true
		}
	}
	return false
}

// LogConfig holds logging settings
type LogConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Database: loadDatabaseConfig(),
		Server:   loadServerConfig(),
		Upload:   loadUploadConfig(),
		Storage:  loadStorageConfig(),
		Datasets: loadDatasetConfig(),
		Auth:     loadAuthConfig(),
		Log:      loadLogConfig(),
	}

	if err := config.Validate(); err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, errors.Wrap(err, "configuration validation failed"))
	}
	return config, nil
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver: strings.ToLower(getEnvOrDefault("DATABASE_DRIVER", "postgres")),
		URL:    os.Getenv("DATABASE_URL"),
	}
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:           getEnvOrDefault("PORT", "8080"),
		GinMode:        getEnvOrDefault("GIN_MODE", "debug"),
		RequestTimeout: getEnvDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
	}
}

func loadUploadConfig() UploadConfig {
	return UploadConfig{
		MaxSizeMB:     getEnvIntOrDefault("MAX_UPLOAD_MB", 10),
		PreviewRows:   getEnvIntOrDefault("PREVIEW_ROWS", 5),
		MaxConcurrent: getEnvIntOrDefault("MAX_CONCURRENT_PARSES", 4),
	}
}

func loadStorageConfig() StorageConfig {
	return StorageConfig{
		Driver:   strings.ToLower(getEnvOrDefault("STORAGE_DRIVER", "local")),
		Path:     getEnvOrDefault("STORAGE_PATH", "./data"),
		Endpoint: os.Getenv("S3_ENDPOINT"),
		Region:   getEnvOrDefault("S3_REGION", "auto"),
		Key:      os.Getenv("S3_KEY"),
		Secret:   os.Getenv("S3_SECRET"),
		Bucket:   os.Getenv("S3_BUCKET"),
		Prefix:   os.Getenv("S3_PREFIX"),
	}
}

func loadDatasetConfig() DatasetConfig {
	return DatasetConfig{
		ReferenceKey:    getEnvOrDefault("REFERENCE_DATASET_KEY", "reference/TestDataSet.csv"),
		ActualYieldsKey: getEnvOrDefault("ACTUAL_YIELDS_KEY", "reference/ActualMilkYields.csv"),
		TestSetSize:     getEnvIntOrDefault("TESTSET_SIZE", 300),
		TestSetSeed:     int64(getEnvIntOrDefault("TESTSET_SEED", 42)),
	}
}

func loadAuthConfig() AuthConfig {
	var admins []string
	for _, email := range strings.Split(os.Getenv("ADMIN_EMAILS"), ",") {
		if email = strings.TrimSpace(email); email != "" {
			admins = append(admins, email)
		}
	}
	return AuthConfig{
		JWTSecret:   os.Getenv("AUTH_JWT_SECRET"),
		Audience:    os.Getenv("AUTH_AUDIENCE"),
		AdminEmails: admins,
	}
}

func loadLogConfig() LogConfig {
	return LogConfig{
		Level:      getEnvOrDefault("LOG_LEVEL", "INFO"),
		File:       os.Getenv("LOG_FILE"),
		MaxSizeMB:  getEnvIntOrDefault("LOG_MAX_SIZE_MB", 100),
		MaxBackups: getEnvIntOrDefault("LOG_MAX_BACKUPS", 5),
		MaxAgeDays: getEnvIntOrDefault("LOG_MAX_AGE_DAYS", 30),
	}
}

// Validate reports every configuration problem at once
func (c *Config) Validate() error {
	var result *multierror.Error

	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		result = multierror.Append(result, errors.ConfigInvalid(fmt.Sprintf("DATABASE_DRIVER must be postgres or sqlite, got %q", c.Database.Driver)))
	}
	if c.Database.URL == "" {
		result = multierror.Append(result, errors.ConfigInvalid("DATABASE_URL is required"))
	}
	if c.Server.RequestTimeout <= 0 {
		result = multierror.Append(result, errors.ConfigInvalid("REQUEST_TIMEOUT must be positive"))
	}
	if c.Upload.MaxSizeMB <= 0 {
		result = multierror.Append(result, errors.ConfigInvalid("MAX_UPLOAD_MB must be positive"))
	}
	if c.Upload.PreviewRows < 0 {
		result = multierror.Append(result, errors.ConfigInvalid("PREVIEW_ROWS cannot be negative"))
	}
	if c.Upload.MaxConcurrent <= 0 {
		result = multierror.Append(result, errors.ConfigInvalid("MAX_CONCURRENT_PARSES must be positive"))
	}
	if c.Datasets.TestSetSize <= 0 {
		result = multierror.Append(result, errors.ConfigInvalid("TESTSET_SIZE must be positive"))
	}

	switch c.Storage.Driver {
	case "local":
		if c.Storage.Path == "" {
			result = multierror.Append(result, errors.ConfigInvalid("STORAGE_PATH is required for local storage"))
		}
	case "s3":
		if c.Storage.Bucket == "" {
			result = multierror.Append(result, errors.ConfigInvalid("S3_BUCKET is required for s3 storage"))
		}
		if c.Storage.Key == "" || c.Storage.Secret == "" {
			result = multierror.Append(result, errors.ConfigInvalid("S3_KEY and S3_SECRET are required for s3 storage"))
		}
	default:
		result = multierror.Append(result, errors.ConfigInvalid(fmt.Sprintf("STORAGE_DRIVER must be local or s3, got %q", c.Storage.Driver)))
	}

	return result.ErrorOrNil()
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
