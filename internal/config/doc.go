// Package config loads moviemeta configuration from an optional TOML file,
// applies environment overrides and validates the result.
//
// Precedence, lowest first: built-in defaults, the TOML file, environment
// variables (TMDB_API_KEY, TMDB_BASE_URL, REDIS_URL, PORT, LOG_LEVEL).
// Durations are plain integers whose unit is part of the key name.
package config
