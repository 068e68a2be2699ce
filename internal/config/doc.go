// Package config loads, normalizes, and validates Atlas configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and overlays environment values from the
// process and an optional .env file (ATLAS_BACKEND_URL, ATLAS_PANEL_TOKEN, and
// the Instagram Graph variables the backend already uses).
//
// Always obtain settings through this package so the panel, drivers, and CLI
// agree on timeouts, poll cadence, and where state lives.
package config
