// Package config loads, normalizes, and validates AvatarStudio configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// AVATARSTUDIO_API_TOKEN. The [pipeline] section overrides the built-in render
// defaults with the same field names the job submission API accepts.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
