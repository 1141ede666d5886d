// Package config loads, normalizes, and validates gptkit configuration.
//
// It supplies defaults, reads TOML files, expands user paths (including tilde
// shortcuts), and honours OPENAI_* environment variables, which take
// precedence over file values when set. The CLI hands the resulting values to
// the library packages explicitly; nothing here is read from globals at
// request time.
package config
