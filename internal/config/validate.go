package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/Sternrassler/moviemeta/pkg/logging"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTMDB(); err != nil {
		return err
	}
	if err := c.validateAdmission(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateBatch(); err != nil {
		return err
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	if err := c.validateRedis(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	return c.validateLog()
}

func (c *Config) validateTMDB() error {
	if c.TMDB.BaseURL == "" {
		return errors.New("tmdb.base_url must be set")
	}
	u, err := url.Parse(c.TMDB.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("tmdb.base_url %q is not an absolute URL", c.TMDB.BaseURL)
	}
	if c.TMDB.TimeoutSeconds <= 0 {
		return errors.New("tmdb.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateAdmission() error {
	if c.Admission.MaxRequests <= 0 {
		return errors.New("admission.max_requests must be positive")
	}
	if c.Admission.WindowMS <= 0 {
		return errors.New("admission.window_ms must be positive")
	}
	if c.Admission.SafetyMarginMS < 0 {
		return errors.New("admission.safety_margin_ms must be >= 0")
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.Capacity < 0 {
		return errors.New("cache.capacity must be >= 0 (0 = unbounded)")
	}
	return nil
}

func (c *Config) validateBatch() error {
	if c.Batch.Size <= 0 {
		return errors.New("batch.size must be positive")
	}
	return nil
}

func (c *Config) validateRetry() error {
	if c.Retry.MaxThrottleRetries < 0 {
		return errors.New("retry.max_throttle_retries must be >= 0")
	}
	if c.Retry.DefaultRetryAfterMS < 0 {
		return errors.New("retry.default_retry_after_ms must be >= 0")
	}
	return nil
}

func (c *Config) validateRedis() error {
	if _, err := c.RedisOptions(); err != nil {
		return fmt.Errorf("redis.url: %w", err)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr must be set")
	}
	if c.Server.ReadTimeoutSeconds <= 0 || c.Server.WriteTimeoutSeconds <= 0 {
		return errors.New("server timeouts must be positive")
	}
	if c.Server.ShutdownTimeoutSeconds <= 0 {
		return errors.New("server.shutdown_timeout_seconds must be positive")
	}
	if c.Server.InboundRatePerSecond < 0 {
		return errors.New("server.inbound_rate_per_second must be >= 0 (0 = disabled)")
	}
	if c.Server.InboundRatePerSecond > 0 && c.Server.InboundBurst <= 0 {
		return errors.New("server.inbound_burst must be positive when inbound limiting is enabled")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return errors.New("server.max_body_bytes must be positive")
	}
	return nil
}

func (c *Config) validateLog() error {
	if err := logging.ValidateLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if err := logging.ValidateFormat(c.Log.Format); err != nil {
		return fmt.Errorf("log.format: %w", err)
	}
	return nil
}
