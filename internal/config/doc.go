// Package config loads, normalizes, and validates clipforge configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CLIPFORGE_NTFY_TOPIC. The Config type centralizes every knob the daemon and
// CLI need, so render settings, scrape sources, and publish targets are
// discovered and range-checked in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
