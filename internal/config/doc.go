// Package config loads, normalizes, and validates sdmeta configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts),
// reads TOML files, and honours the SDMETA_LOG_LEVEL environment fallback.
// Validation errors name the offending key in section.key form.
package config
