package config

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"jewelry-catalog/internal/domain/ingest"
)

var (
	validEnvironments = []string{"development", "production", "test", "staging"}
	validLogLevels    = []string{"debug", "info", "warn", "error"}
	validLogFormats   = []string{"json", "text"}
)

const (
	maxUploadSizeLimit = int64(100 << 20)
	maxServerTimeout   = 5 * time.Minute
	defaultCredential  = "minioadmin"
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

	messages := make([]string, 0, len(ve))
	for _, err := range ve {
		messages = append(messages, err.Error())
	}

	return fmt.Sprintf("configuration validation failed: %s", strings.Join(messages, "; "))
}

// Has checks if ValidationErrors contains any errors
func (ve ValidationErrors) Has() bool {
	return len(ve) > 0
}

func (ve *ValidationErrors) add(field string, value interface{}, format string, args ...interface{}) {
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf(format, args...),
	})
}

// Validate checks every section and returns all problems at once
func (c *Config) Validate() error {
	var errs ValidationErrors

	errs = append(errs, c.validateServer()...)
	errs = append(errs, c.validateDatabase()...)
	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateCache()...)
	errs = append(errs, c.validateIngest()...)

	if c.Logging != nil {
		errs = append(errs, c.validateLogging()...)
	}
	if c.Server != nil {
		errs = append(errs, c.validateServerTimeouts()...)
	}

	if errs.Has() {
		return errs
	}
	return nil
}

func (c *Config) validateServer() ValidationErrors {
	var errs ValidationErrors

	if c.Port == "" {
		errs.add("port", c.Port, "port cannot be empty")
	} else if port, err := strconv.Atoi(c.Port); err != nil {
		errs.add("port", c.Port, "port must be a valid integer")
	} else if port < 1 || port > 65535 {
		errs.add("port", c.Port, "port must be between 1 and 65535")
	}

	if c.Environment != "" && !slices.Contains(validEnvironments, c.Environment) {
		errs.add("environment", c.Environment, "environment must be one of: %s", strings.Join(validEnvironments, ", "))
	}

	return errs
}

// validateDatabase allows an empty URL only in the test environment.
func (c *Config) validateDatabase() ValidationErrors {
	var errs ValidationErrors

	if c.DatabaseURL == "" {
		if c.Environment != "test" {
			errs.add("database_url", c.DatabaseURL, "database URL is required for non-test environments")
		}
		return errs
	}

	parsed, err := url.Parse(c.DatabaseURL)
	if err != nil {
		errs.add("database_url", c.DatabaseURL, "database URL must be a valid URL")
		return errs
	}

	if parsed.Scheme != "postgres" && parsed.Scheme != "postgresql" {
		errs.add("database_url", parsed.Scheme, "database URL must use postgres or postgresql scheme")
	}
	if parsed.Host == "" {
		errs.add("database_url", c.DatabaseURL, "database URL must include host")
	}
	if strings.Trim(parsed.Path, "/") == "" {
		errs.add("database_url", c.DatabaseURL, "database URL must include database name")
	}

	return errs
}

func (c *Config) validateStorage() ValidationErrors {
	var errs ValidationErrors
	s := c.Storage

	if s.Endpoint == "" {
		errs.add("storage.endpoint", s.Endpoint, "storage endpoint cannot be empty")
	}

	buckets := []struct {
		field string
		name  string
	}{
		{"storage.carousel_bucket", s.CarouselBucket},
		{"storage.product_bucket", s.ProductBucket},
		{"storage.stock_bucket", s.StockBucket},
	}
	for _, b := range buckets {
		switch {
		case b.name == "":
			errs.add(b.field, b.name, "storage bucket name cannot be empty")
		case !isValidBucketName(b.name):
			errs.add(b.field, b.name, "storage bucket name must be 3-63 characters, lowercase alphanumeric and hyphens only")
		}
	}

	if s.PublicBaseURL != "" {
		parsed, err := url.Parse(s.PublicBaseURL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			errs.add("storage.public_base_url", s.PublicBaseURL, "public base URL must be an absolute http(s) URL")
		}
	}

	// Public buckets must not ship with the MinIO default credentials.
	if c.Environment == "production" {
		if s.AccessKeyID == "" || s.AccessKeyID == defaultCredential {
			errs.add("storage.access_key_id", s.AccessKeyID, "storage access key ID must be set for production environment")
		}
		if s.SecretAccessKey == "" || s.SecretAccessKey == defaultCredential {
			errs.add("storage.secret_access_key", "[REDACTED]", "storage secret access key must be set for production environment")
		}
	}

	if s.MaxUploadSize > maxUploadSizeLimit {
		errs.add("storage.max_upload_size", s.MaxUploadSize, "max upload size cannot exceed %d bytes", maxUploadSizeLimit)
	}

	return errs
}

func (c *Config) validateCache() ValidationErrors {
	var errs ValidationErrors

	if !c.Cache.Enabled {
		return errs
	}

	if c.Cache.Address == "" {
		errs.add("cache.address", c.Cache.Address, "redis address is required when the cache is enabled")
	}
	if c.Cache.Database < 0 || c.Cache.Database > 15 {
		errs.add("cache.database", c.Cache.Database, "redis database must be between 0 and 15")
	}
	if c.Cache.DefaultTTL <= 0 {
		errs.add("cache.default_ttl", c.Cache.DefaultTTL, "cache TTL must be greater than 0")
	}

	return errs
}

func (c *Config) validateIngest() ValidationErrors {
	var errs ValidationErrors
	in := c.Ingest

	if in.MaxSizeMB < 0 {
		errs.add("ingest.max_size_mb", in.MaxSizeMB, "size budget cannot be negative")
	}
	if in.MaxIteration < 1 {
		errs.add("ingest.max_iteration", in.MaxIteration, "iteration cap must be at least 1")
	}
	if in.UseWorker && in.Workers < 1 {
		errs.add("ingest.workers", in.Workers, "worker count must be at least 1 when worker offload is enabled")
	}

	dims := []struct {
		field string
		value int
	}{
		{"ingest.crop_width", in.CropWidth},
		{"ingest.crop_height", in.CropHeight},
		{"ingest.bound_width", in.BoundWidth},
		{"ingest.bound_height", in.BoundHeight},
	}
	for _, d := range dims {
		if d.value <= 0 {
			errs.add(d.field, d.value, "target dimension must be greater than 0")
		}
	}

	qualities := []struct {
		field string
		value int
	}{
		{"ingest.crop_quality", in.CropQuality},
		{"ingest.bound_quality", in.BoundQuality},
	}
	for _, q := range qualities {
		if q.value < 1 || q.value > 100 {
			errs.add(q.field, q.value, "JPEG quality must be between 1 and 100")
		}
	}

	overrides := []struct {
		field string
		value string
	}{
		{"ingest.carousel_policy", in.CarouselPolicy},
		{"ingest.product_policy", in.ProductPolicy},
		{"ingest.stock_policy", in.StockPolicy},
	}
	for _, o := range overrides {
		if o.value == "" {
			continue
		}
		if _, err := ingest.ParsePolicy(o.value); err != nil {
			errs.add(o.field, o.value, "policy must look like crop:WxH or bound:WxH")
		}
	}

	if in.SessionTTL <= 0 {
		errs.add("ingest.session_ttl", in.SessionTTL, "upload session TTL must be greater than 0")
	}

	return errs
}

func (c *Config) validateLogging() ValidationErrors {
	var errs ValidationErrors

	if !slices.Contains(validLogLevels, strings.ToLower(c.Logging.Level)) {
		errs.add("logging.level", c.Logging.Level, "logging level must be one of: %s", strings.Join(validLogLevels, ", "))
	}
	if !slices.Contains(validLogFormats, strings.ToLower(c.Logging.Format)) {
		errs.add("logging.format", c.Logging.Format, "logging format must be either 'json' or 'text'")
	}

	return errs
}

func (c *Config) validateServerTimeouts() ValidationErrors {
	var errs ValidationErrors

	timeouts := []struct {
		field  string
		value  time.Duration
		capped bool
	}{
		{"server.read_timeout", c.Server.ReadTimeout, true},
		{"server.write_timeout", c.Server.WriteTimeout, true},
		{"server.idle_timeout", c.Server.IdleTimeout, false},
	}
	for _, t := range timeouts {
		name := strings.ReplaceAll(strings.TrimPrefix(t.field, "server."), "_", " ")
		switch {
		case t.value <= 0:
			errs.add(t.field, t.value, "%s must be greater than 0", name)
		case t.capped && t.value > maxServerTimeout:
			errs.add(t.field, t.value, "%s should not exceed %s", name, maxServerTimeout)
		}
	}

	return errs
}

// isValidBucketName applies the S3 naming rules for the dot-free names used here
func isValidBucketName(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if !isLowerAlphaNum(name[0]) || !isLowerAlphaNum(name[len(name)-1]) {
		return false
	}

	for i := 0; i < len(name); i++ {
		b := name[i]
		if !isLowerAlphaNum(b) && b != '-' {
			return false
		}
		if b == '-' && name[i-1] == '-' {
			return false
		}
	}

	return true
}

func isLowerAlphaNum(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}

// MustValidate validates the configuration and panics on error
func (c *Config) MustValidate() {
	if err := c.Validate(); err != nil {
		panic(fmt.Sprintf("configuration validation failed: %v", err))
	}
}
