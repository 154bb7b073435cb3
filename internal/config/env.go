// Package config provides environment helpers for refurboard commands.
package config

import "os"

// Defaults for the local HTTP surface.
const (
	DefaultListenAddr = ":8377"
)

// ListenAddr returns the HTTP listen address from REFURBOARD_ADDR.
// Falls back to DefaultListenAddr if not set.
func ListenAddr() string {
	if addr := os.Getenv("REFURBOARD_ADDR"); addr != "" {
		return addr
	}
	return DefaultListenAddr
}

// LogLevel returns the log level from REFURBOARD_LOG ("debug", "info",
// "warn", "error"). Falls back to "info".
func LogLevel() string {
	if lvl := os.Getenv("REFURBOARD_LOG"); lvl != "" {
		return lvl
	}
	return "info"
}

// Path returns the config file path override from REFURBOARD_CONFIG,
// or "" to use the per-user default location.
func Path() string {
	return os.Getenv("REFURBOARD_CONFIG")
}
