// Package config provides application configuration management
// with validation and environment parsing
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents the application configuration
type Config struct {
	Environment string
	Port        string
	Host        string
	Upstream    UpstreamConfig
	Catalog     CatalogConfig
	Storage     StorageConfig
	Cache       CacheConfig
	Probe       ProbeConfig
	ViewTTL     time.Duration
	Logging     *LoggingConfig
	Server      *ServerConfig
}

// UpstreamConfig points at the gallery endpoint that owns like flags and images
type UpstreamConfig struct {
	BaseURL string
	Timeout time.Duration
}

// Catalog sources
const (
	CatalogSourceFile   = "file"
	CatalogSourceObject = "object"
)

// ReplaceRule rewrites a substring of the raw gallery index before parsing
type ReplaceRule struct {
	Old string
	New string
}

// CatalogConfig describes where gallery indexes are read from
type CatalogConfig struct {
	Source         string
	Paths          []string
	PerPage        int
	ReplaceRules   []ReplaceRule
	ReloadInterval time.Duration
}

// StorageConfig holds object storage configuration for the object catalog source
type StorageConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
	Region          string
}

// CacheConfig holds Redis/Valkey configuration for the view store
type CacheConfig struct {
	Enabled         bool
	Address         string
	Password        string
	Database        int
	KeyPrefix       string
	DefaultTTL      time.Duration
	MaxRetries      int
	MinRetryBackoff time.Duration
	MaxRetryBackoff time.Duration
	DialTimeout     time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	PoolSize        int
	MinIdleConns    int
	PoolTimeout     time.Duration
}

// ProbeConfig controls how image resources are loaded to reveal items
type ProbeConfig struct {
	Concurrency int
	MaxBytes    int64
	Timeout     time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
	Output string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Load creates a new configuration from environment variables with validation
func Load() (*Config, error) {
	useSSL, _ := strconv.ParseBool(getEnv("STORAGE_USE_SSL", "false"))
	cacheEnabled, _ := strconv.ParseBool(getEnv("CACHE_ENABLED", "false"))
	perPage, _ := strconv.Atoi(getEnv("CATALOG_PER_PAGE", "20"))
	cacheDB, _ := strconv.Atoi(getEnv("CACHE_DB", "0"))
	poolSize, _ := strconv.Atoi(getEnv("CACHE_POOL_SIZE", "10"))
	probeConcurrency, _ := strconv.Atoi(getEnv("PROBE_CONCURRENCY", "8"))

	readTimeout, _ := time.ParseDuration(getEnv("READ_TIMEOUT", "10s"))
	writeTimeout, _ := time.ParseDuration(getEnv("WRITE_TIMEOUT", "10s"))
	idleTimeout, _ := time.ParseDuration(getEnv("SERVER_TIMEOUT", "30s"))
	upstreamTimeout, _ := time.ParseDuration(getEnv("GALLERY_API_TIMEOUT", "30s"))
	reloadInterval, _ := time.ParseDuration(getEnv("CATALOG_RELOAD_INTERVAL", "30s"))
	viewTTL, _ := time.ParseDuration(getEnv("VIEW_TTL", "2h"))
	probeTimeout, _ := time.ParseDuration(getEnv("PROBE_TIMEOUT", "10s"))

	config := &Config{
		Environment: getEnv("GO_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		Host:        getEnv("HOST", "localhost"),
		Upstream: UpstreamConfig{
			BaseURL: strings.TrimRight(getEnv("GALLERY_API_URL", "http://localhost:5000"), "/"),
			Timeout: upstreamTimeout,
		},
		Catalog: CatalogConfig{
			Source:         getEnv("CATALOG_SOURCE", CatalogSourceFile),
			Paths:          parseList(getEnv("CATALOG_PATHS", "")),
			PerPage:        perPage,
			ReplaceRules:   parseReplaceRules(getEnv("CATALOG_REPLACE", "")),
			ReloadInterval: reloadInterval,
		},
		Storage: StorageConfig{
			Endpoint:        getEnv("STORAGE_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
			SecretAccessKey: getEnv("STORAGE_SECRET_KEY", "minioadmin"),
			BucketName:      getEnv("STORAGE_BUCKET", "gallery-index"),
			UseSSL:          useSSL,
			Region:          getEnv("STORAGE_REGION", "us-east-1"),
		},
		Cache: CacheConfig{
			Enabled:         cacheEnabled,
			Address:         getEnv("CACHE_ADDRESS", "localhost:6379"),
			Password:        getEnv("CACHE_PASSWORD", ""),
			Database:        cacheDB,
			KeyPrefix:       getEnv("CACHE_KEY_PREFIX", "face-gallery"),
			DefaultTTL:      viewTTL,
			MaxRetries:      3,
			MinRetryBackoff: 8 * time.Millisecond,
			MaxRetryBackoff: 512 * time.Millisecond,
			DialTimeout:     5 * time.Second,
			ReadTimeout:     3 * time.Second,
			WriteTimeout:    3 * time.Second,
			PoolSize:        poolSize,
			MinIdleConns:    2,
			PoolTimeout:     4 * time.Second,
		},
		Probe: ProbeConfig{
			Concurrency: probeConcurrency,
			MaxBytes:    parseSize(getEnv("PROBE_MAX_BYTES", "10MB")),
			Timeout:     probeTimeout,
		},
		ViewTTL: viewTTL,
		Logging: &LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			Output: getEnv("LOG_OUTPUT", "stdout"),
		},
		Server: &ServerConfig{
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			IdleTimeout:  idleTimeout,
		},
	}

	// Validate configuration before returning
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseSize parses size strings like "10MB", "512KB" into bytes
func parseSize(sizeStr string) int64 {
	sizeStr = strings.ToUpper(strings.TrimSpace(sizeStr))

	if strings.HasSuffix(sizeStr, "MB") {
		numStr := strings.TrimSuffix(sizeStr, "MB")
		if num, err := strconv.ParseInt(numStr, 10, 64); err == nil {
			return num * 1024 * 1024
		}
	}

	if strings.HasSuffix(sizeStr, "KB") {
		numStr := strings.TrimSuffix(sizeStr, "KB")
		if num, err := strconv.ParseInt(numStr, 10, 64); err == nil {
			return num * 1024
		}
	}

	// Default to 10MB if parsing fails
	return 10 * 1024 * 1024
}

// parseList parses comma-separated strings into slices
func parseList(listStr string) []string {
	if listStr == "" {
		return []string{}
	}

	items := strings.Split(listStr, ",")
	result := make([]string, 0, len(items))

	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// parseReplaceRules parses "old=>new;old2=>new2" into ordered rules.
// Entries without "=>" or with an empty side are ignored.
func parseReplaceRules(rulesStr string) []ReplaceRule {
	rules := []ReplaceRule{}
	for _, entry := range strings.Split(rulesStr, ";") {
		oldStr, newStr, ok := strings.Cut(entry, "=>")
		if !ok {
			continue
		}
		oldStr, newStr = strings.TrimSpace(oldStr), strings.TrimSpace(newStr)
		if oldStr == "" || newStr == "" {
			continue
		}
		rules = append(rules, ReplaceRule{Old: oldStr, New: newStr})
	}
	return rules
}
