package config

import (
	"os"
	"strings"
)

// normalize applies environment overrides and trims string values.
func (c *Config) normalize() {
	if value, ok := lookupEnv("TMDB_API_KEY"); ok {
		c.TMDB.APIKey = value
	}
	if value, ok := lookupEnv("TMDB_BASE_URL"); ok {
		c.TMDB.BaseURL = value
	}
	if value, ok := lookupEnv("REDIS_URL"); ok {
		c.Redis.URL = value
	}
	if value, ok := lookupEnv("PORT"); ok {
		c.Server.Addr = ":" + value
	}
	if value, ok := lookupEnv("LOG_LEVEL"); ok {
		c.Log.Level = value
	}

	c.TMDB.APIKey = strings.TrimSpace(c.TMDB.APIKey)
	c.TMDB.BaseURL = strings.TrimRight(strings.TrimSpace(c.TMDB.BaseURL), "/")
	c.TMDB.ImageBaseURL = strings.TrimRight(strings.TrimSpace(c.TMDB.ImageBaseURL), "/")
	c.TMDB.Language = strings.TrimSpace(c.TMDB.Language)
	c.Redis.URL = strings.TrimSpace(c.Redis.URL)
	c.Server.Addr = strings.TrimSpace(c.Server.Addr)
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	if c.Log.Format == "" {
		c.Log.Format = "auto"
	}
}

// lookupEnv returns a non-blank environment value.
func lookupEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return "", false
	}
	return strings.TrimSpace(value), true
}
