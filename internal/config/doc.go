// Package config loads, normalizes, and validates crossfade configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), and
// reads TOML files. Sources are declared here as CUE export directories and
// filtered by the whitelist and blacklist before the engine sees them.
package config
