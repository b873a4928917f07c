// Package server implements the HTTP API for monitoring and management.
// It exposes health, statistics, and configuration endpoints alongside
// Prometheus metrics. The configuration endpoint masks credentials
// before they leave the process.
package server
