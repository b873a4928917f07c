// Package config provides configuration loading and validation for the
// wake word capture daemon. It reads a YAML file with per-section
// validation, applies environment-variable overrides (including a .env
// file) on top, and exposes a credential-redacted view for the ops API.
package config
