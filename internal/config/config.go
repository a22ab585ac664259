package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Sternrassler/moviemeta/pkg/cache"
	"github.com/Sternrassler/moviemeta/pkg/catalog"
	"github.com/Sternrassler/moviemeta/pkg/enrich"
	"github.com/Sternrassler/moviemeta/pkg/logging"
	"github.com/Sternrassler/moviemeta/pkg/ratelimit"
	"github.com/pelletier/go-toml/v2"
	"github.com/redis/go-redis/v9"
)

//go:embed sample_config.toml
var sampleConfig string

// TMDB contains configuration for The Movie Database API.
type TMDB struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	ImageBaseURL   string `toml:"image_base_url"`
	Language       string `toml:"language"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Admission contains the outbound sliding-window limits per TMDB key.
type Admission struct {
	MaxRequests    int `toml:"max_requests"`
	WindowMS       int `toml:"window_ms"`
	SafetyMarginMS int `toml:"safety_margin_ms"`
}

// Cache contains lookup cache sizing and validity.
type Cache struct {
	Capacity          int `toml:"capacity"`
	NoMatchTTLSeconds int `toml:"no_match_ttl_seconds"`
	FailureTTLSeconds int `toml:"failure_ttl_seconds"`
}

// Batch contains enrichment batching settings.
type Batch struct {
	Size int `toml:"size"`
}

// Retry contains 429 handling settings.
type Retry struct {
	MaxThrottleRetries  int `toml:"max_throttle_retries"`
	DefaultRetryAfterMS int `toml:"default_retry_after_ms"`
}

// Redis contains the optional shared admission store.
type Redis struct {
	// URL enables the Redis-backed admission window when set,
	// e.g. redis://localhost:6379/0.
	URL string `toml:"url"`
}

// Server contains HTTP server settings.
type Server struct {
	Addr                   string  `toml:"addr"`
	ReadTimeoutSeconds     int     `toml:"read_timeout_seconds"`
	WriteTimeoutSeconds    int     `toml:"write_timeout_seconds"`
	ShutdownTimeoutSeconds int     `toml:"shutdown_timeout_seconds"`
	InboundRatePerSecond   float64 `toml:"inbound_rate_per_second"`
	InboundBurst           int     `toml:"inbound_burst"`
	MaxBodyBytes           int64   `toml:"max_body_bytes"`
}

// Log contains logging settings.
type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config encapsulates all configuration values for moviemeta.
type Config struct {
	TMDB      TMDB      `toml:"tmdb"`
	Admission Admission `toml:"admission"`
	Cache     Cache     `toml:"cache"`
	Batch     Batch     `toml:"batch"`
	Retry     Retry     `toml:"retry"`
	Redis     Redis     `toml:"redis"`
	Server    Server    `toml:"server"`
	Log       Log       `toml:"log"`
}

// Load reads the configuration. An empty path uses defaults plus
// environment overrides; a non-empty path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// AdmissionConfig returns the limiter settings.
func (c *Config) AdmissionConfig() ratelimit.Config {
	return ratelimit.Config{
		MaxRequests:  c.Admission.MaxRequests,
		Window:       time.Duration(c.Admission.WindowMS) * time.Millisecond,
		SafetyMargin: time.Duration(c.Admission.SafetyMarginMS) * time.Millisecond,
	}
}

// CacheConfig returns the lookup cache settings.
func (c *Config) CacheConfig() cache.Config {
	return cache.Config{
		Capacity:   c.Cache.Capacity,
		NoMatchTTL: secondsOrDisabled(c.Cache.NoMatchTTLSeconds),
		FailureTTL: secondsOrDisabled(c.Cache.FailureTTLSeconds),
	}
}

// CatalogConfig returns the TMDB client settings.
func (c *Config) CatalogConfig() catalog.Config {
	return catalog.Config{
		BaseURL:            c.TMDB.BaseURL,
		ImageBaseURL:       c.TMDB.ImageBaseURL,
		Language:           c.TMDB.Language,
		MaxThrottleRetries: c.Retry.MaxThrottleRetries,
		DefaultRetryAfter:  time.Duration(c.Retry.DefaultRetryAfterMS) * time.Millisecond,
		Timeout:            time.Duration(c.TMDB.TimeoutSeconds) * time.Second,
	}
}

// EnrichConfig returns the orchestrator settings.
func (c *Config) EnrichConfig() enrich.Config {
	return enrich.Config{BatchSize: c.Batch.Size}
}

// LoggingConfig returns the logger settings writing to stderr.
func (c *Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.Log.Level)
	cfg.Format = logging.Format(c.Log.Format)
	return cfg
}

// TitlesWithinWriteTimeout returns how many unique uncached titles a single
// request can resolve before the server write timeout fires, given the
// admission window. Larger imports need a longer write timeout.
func (c *Config) TitlesWithinWriteTimeout() int {
	timeout := time.Duration(c.Server.WriteTimeoutSeconds) * time.Second
	if timeout <= 0 || c.Admission.MaxRequests <= 0 {
		return 0
	}
	cycle := time.Duration(c.Admission.WindowMS+c.Admission.SafetyMarginMS) * time.Millisecond
	if cycle <= 0 {
		return 0
	}
	windows := int(timeout/cycle) + 1
	return windows * c.Admission.MaxRequests
}

// RedisOptions parses the Redis URL. It returns nil options when Redis is
// not configured.
func (c *Config) RedisOptions() (*redis.Options, error) {
	if c.Redis.URL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(c.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return opts, nil
}

// secondsOrDisabled maps a TTL in seconds; negative values disable caching.
func secondsOrDisabled(seconds int) time.Duration {
	if seconds < 0 {
		return -1
	}
	return time.Duration(seconds) * time.Second
}
