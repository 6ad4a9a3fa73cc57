package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s (value: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}

	return fmt.Sprintf("configuration validation failed: %s", strings.Join(messages, "; "))
}

// Has checks if ValidationErrors contains any errors
func (ve ValidationErrors) Has() bool {
	return len(ve) > 0
}

// Validate validates the entire configuration
func (c *Config) Validate() error {
	var validationErrors ValidationErrors

	// Validate basic server configuration
	if err := c.validateServer(); err != nil {
		validationErrors = append(validationErrors, err...)
	}

	// Validate upstream gallery API
	if err := c.validateUpstream(); err != nil {
		validationErrors = append(validationErrors, err...)
	}

	// Validate catalog configuration
	if err := c.validateCatalog(); err != nil {
		validationErrors = append(validationErrors, err...)
	}

	// Validate storage configuration
	if err := c.validateStorage(); err != nil {
		validationErrors = append(validationErrors, err...)
	}

	// Validate view store and prober
	if err := c.validateCache(); err != nil {
		validationErrors = append(validationErrors, err...)
	}

	if err := c.validateProbe(); err != nil {
		validationErrors = append(validationErrors, err...)
	}

	// Validate logging configuration (if present)
	if c.Logging != nil {
		if err := c.validateLogging(); err != nil {
			validationErrors = append(validationErrors, err...)
		}
	}

	// Validate server timeouts (if present)
	if c.Server != nil {
		if err := c.validateServerTimeouts(); err != nil {
			validationErrors = append(validationErrors, err...)
		}
	}

	if validationErrors.Has() {
		return validationErrors
	}

	return nil
}

func (c *Config) validateServer() ValidationErrors {
	var errors ValidationErrors

	// Validate port
	if c.Port == "" {
		errors = append(errors, ValidationError{
			Field:   "port",
			Value:   c.Port,
			Message: "port cannot be empty",
		})
	} else {
		if port, err := strconv.Atoi(c.Port); err != nil {
			errors = append(errors, ValidationError{
				Field:   "port",
				Value:   c.Port,
				Message: "port must be a valid integer",
			})
		} else if port < 1 || port > 65535 {
			errors = append(errors, ValidationError{
				Field:   "port",
				Value:   c.Port,
				Message: "port must be between 1 and 65535",
			})
		}
	}

	// Validate environment
	if c.Environment != "" {
		validEnvs := []string{"development", "production", "test", "staging"}
		isValid := false
		for _, validEnv := range validEnvs {
			if c.Environment == validEnv {
				isValid = true
				break
			}
		}

		if !isValid {
			errors = append(errors, ValidationError{
				Field:   "environment",
				Value:   c.Environment,
				Message: "environment must be one of: development, production, test, staging",
			})
		}
	}

	return errors
}

func (c *Config) validateUpstream() ValidationErrors {
	var errors ValidationErrors

	if c.Upstream.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "upstream.base_url",
			Value:   c.Upstream.BaseURL,
			Message: "gallery API URL cannot be empty",
		})
		return errors
	}

	parsedURL, err := url.Parse(c.Upstream.BaseURL)
	if err != nil {
		errors = append(errors, ValidationError{
			Field:   "upstream.base_url",
			Value:   c.Upstream.BaseURL,
			Message: "gallery API URL must be a valid URL",
		})
		return errors
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		errors = append(errors, ValidationError{
			Field:   "upstream.base_url",
			Value:   parsedURL.Scheme,
			Message: "gallery API URL must use http or https scheme",
		})
	}

	if parsedURL.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "upstream.base_url",
			Value:   c.Upstream.BaseURL,
			Message: "gallery API URL must include host",
		})
	}

	if c.Upstream.Timeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "upstream.timeout",
			Value:   c.Upstream.Timeout,
			Message: "gallery API timeout must be greater than 0",
		})
	}

	return errors
}

func (c *Config) validateCatalog() ValidationErrors {
	var errors ValidationErrors

	if c.Catalog.Source != CatalogSourceFile && c.Catalog.Source != CatalogSourceObject {
		errors = append(errors, ValidationError{
			Field:   "catalog.source",
			Value:   c.Catalog.Source,
			Message: "catalog source must be either 'file' or 'object'",
		})
	}

	// At least one index is required outside of tests
	if c.Environment != "test" && len(c.Catalog.Paths) == 0 {
		errors = append(errors, ValidationError{
			Field:   "catalog.paths",
			Value:   c.Catalog.Paths,
			Message: "at least one gallery index path is required for non-test environments",
		})
	}

	if c.Catalog.PerPage <= 0 {
		errors = append(errors, ValidationError{
			Field:   "catalog.per_page",
			Value:   c.Catalog.PerPage,
			Message: "items per page must be a positive integer",
		})
	}

	if c.Catalog.ReloadInterval < 0 {
		errors = append(errors, ValidationError{
			Field:   "catalog.reload_interval",
			Value:   c.Catalog.ReloadInterval,
			Message: "reload interval cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateStorage() ValidationErrors {
	var errors ValidationErrors

	// Object storage is only used by the object catalog source
	if c.Catalog.Source != CatalogSourceObject {
		return errors
	}

	// Validate endpoint
	if c.Storage.Endpoint == "" {
		errors = append(errors, ValidationError{
			Field:   "storage.endpoint",
			Value:   c.Storage.Endpoint,
			Message: "storage endpoint cannot be empty",
		})
	}

	// Validate bucket name
	if c.Storage.BucketName == "" {
		errors = append(errors, ValidationError{
			Field:   "storage.bucket_name",
			Value:   c.Storage.BucketName,
			Message: "storage bucket name cannot be empty",
		})
	} else if !isValidBucketName(c.Storage.BucketName) {
		errors = append(errors, ValidationError{
			Field:   "storage.bucket_name",
			Value:   c.Storage.BucketName,
			Message: "storage bucket name must be 3-63 characters, lowercase alphanumeric and hyphens only",
		})
	}

	// Validate access credentials for production environments
	if c.Environment == "production" {
		if c.Storage.AccessKeyID == "" || c.Storage.AccessKeyID == "minioadmin" {
			errors = append(errors, ValidationError{
				Field:   "storage.access_key_id",
				Value:   c.Storage.AccessKeyID,
				Message: "storage access key ID must be set for production environment",
			})
		}

		if c.Storage.SecretAccessKey == "" || c.Storage.SecretAccessKey == "minioadmin" {
			errors = append(errors, ValidationError{
				Field:   "storage.secret_access_key",
				Value:   "[REDACTED]",
				Message: "storage secret access key must be set for production environment",
			})
		}
	}

	return errors
}

func (c *Config) validateCache() ValidationErrors {
	var errors ValidationErrors

	if c.ViewTTL <= 0 {
		errors = append(errors, ValidationError{
			Field:   "view_ttl",
			Value:   c.ViewTTL,
			Message: "view TTL must be greater than 0",
		})
	}

	if !c.Cache.Enabled {
		return errors
	}

	if c.Cache.Address == "" {
		errors = append(errors, ValidationError{
			Field:   "cache.address",
			Value:   c.Cache.Address,
			Message: "cache address is required when the cache is enabled",
		})
	}

	if c.Cache.Database < 0 || c.Cache.Database > 15 {
		errors = append(errors, ValidationError{
			Field:   "cache.database",
			Value:   c.Cache.Database,
			Message: "cache database must be between 0 and 15",
		})
	}

	return errors
}

func (c *Config) validateProbe() ValidationErrors {
	var errors ValidationErrors

	if c.Probe.Concurrency < 1 || c.Probe.Concurrency > 256 {
		errors = append(errors, ValidationError{
			Field:   "probe.concurrency",
			Value:   c.Probe.Concurrency,
			Message: "probe concurrency must be between 1 and 256",
		})
	}

	if c.Probe.MaxBytes <= 0 {
		errors = append(errors, ValidationError{
			Field:   "probe.max_bytes",
			Value:   c.Probe.MaxBytes,
			Message: "probe max bytes must be greater than 0",
		})
	}

	if c.Probe.Timeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "probe.timeout",
			Value:   c.Probe.Timeout,
			Message: "probe timeout must be greater than 0",
		})
	}

	return errors
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	// Validate log level
	validLevels := []string{"debug", "info", "warn", "error"}
	isValidLevel := false
	for _, level := range validLevels {
		if strings.EqualFold(c.Logging.Level, level) {
			isValidLevel = true
			break
		}
	}

	if !isValidLevel {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: "logging level must be one of: debug, info, warn, error",
		})
	}

	// Validate log format
	validFormats := []string{"json", "text"}
	isValidFormat := false
	for _, format := range validFormats {
		if strings.EqualFold(c.Logging.Format, format) {
			isValidFormat = true
			break
		}
	}

	if !isValidFormat {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Value:   c.Logging.Format,
			Message: "logging format must be either 'json' or 'text'",
		})
	}

	return errors
}

func (c *Config) validateServerTimeouts() ValidationErrors {
	var errors ValidationErrors

	// Validate read timeout
	if c.Server.ReadTimeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "server.read_timeout",
			Value:   c.Server.ReadTimeout,
			Message: "read timeout must be greater than 0",
		})
	} else if c.Server.ReadTimeout > 5*time.Minute {
		errors = append(errors, ValidationError{
			Field:   "server.read_timeout",
			Value:   c.Server.ReadTimeout,
			Message: "read timeout should not exceed 5 minutes",
		})
	}

	// Validate write timeout
	if c.Server.WriteTimeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "server.write_timeout",
			Value:   c.Server.WriteTimeout,
			Message: "write timeout must be greater than 0",
		})
	} else if c.Server.WriteTimeout > 5*time.Minute {
		errors = append(errors, ValidationError{
			Field:   "server.write_timeout",
			Value:   c.Server.WriteTimeout,
			Message: "write timeout should not exceed 5 minutes",
		})
	}

	// Validate idle timeout
	if c.Server.IdleTimeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "server.idle_timeout",
			Value:   c.Server.IdleTimeout,
			Message: "idle timeout must be greater than 0",
		})
	}

	return errors
}

// isValidBucketName validates S3/MinIO bucket naming rules
func isValidBucketName(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}

	// Must start and end with lowercase letter or number
	if !isLowerAlphaNum(name[0]) || !isLowerAlphaNum(name[len(name)-1]) {
		return false
	}

	// Check each character
	for i, r := range name {
		if !isLowerAlphaNum(byte(r)) && r != '-' {
			return false
		}

		// No consecutive hyphens
		if i > 0 && r == '-' && name[i-1] == '-' {
			return false
		}
	}

	// Cannot be formatted as IP address (simplified check)
	parts := strings.Split(name, ".")
	if len(parts) == 4 {
		allNumbers := true
		for _, part := range parts {
			if _, err := strconv.Atoi(part); err != nil {
				allNumbers = false
				break
			}
		}
		if allNumbers {
			return false
		}
	}

	return true
}

func isLowerAlphaNum(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}
