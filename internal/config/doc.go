// Package config loads, normalizes, and validates crazypanel configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CRAZY_POSTER_API_URL. The Config type centralizes every knob the panel
// server and CLI need, so the backend address, default account, and state
// directory are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized URLs, canonical log formats, and clear validation errors.
package config
