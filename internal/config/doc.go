// Package config loads, normalizes, and validates tunguska configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours TUNGUSKA_* environment overrides
// (optionally seeded from a .env file next to the config). The Config type
// centralizes every knob the preparation pipeline needs: where raw data comes
// from, how it is restituted, which timing windows and distance limits apply,
// and where the kiwi and rapid datasets are written.
//
// Optional settings are pointer fields; a nil pointer means "not configured".
// Path settings may contain ${name} placeholders that are filled per event
// with Expand.
package config
