// Package config loads, normalizes, and validates rollcall configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the ROLLCALL_POSTGRES_DSN
// environment fallback. The Config type centralizes the directories, the
// registration store connection, the default attendance thresholds, and the
// API bind address in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
