package env

import (
	"os"
	"strings"
)

// Get returns the trimmed value of key, or fallback when it is unset or blank.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

// First returns the first non-blank value among keys, or fallback.
func First(fallback string, keys ...string) string {
	for _, key := range keys {
		if val := Get(key, ""); val != "" {
			return val
		}
	}
	return fallback
}

// IsConsoleLogFormat reports whether LOG_FORMAT asks for human readable output.
func IsConsoleLogFormat() bool {
	return strings.EqualFold(Get("LOG_FORMAT", "json"), "console")
}
