package utils

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

func GetEnvTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func GetEnvTrimmedOrDefault(key, defaultValue string) string {
	v := strings.TrimSpace(os.Getenv(key))

	if v == "" {
		return defaultValue
	}

	return v
}

// GetEnvDurationOrDefault parses a Go duration; zero is accepted, negative or malformed values are not.
func GetEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	v := GetEnvTrimmed(key)
	if v == "" {
		return defaultValue
	}

	parsed, err := time.ParseDuration(v)
	if err != nil || parsed < 0 {
		return defaultValue
	}

	return parsed
}

// GetEnvBoolOrDefault parses strconv-style booleans.
func GetEnvBoolOrDefault(key string, defaultValue bool) bool {
	v := GetEnvTrimmed(key)
	if v == "" {
		return defaultValue
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}

	return b
}

// GetEnvPositiveIntOrDefault returns the default for unset, malformed, zero or negative values.
func GetEnvPositiveIntOrDefault(key string, defaultValue int) int {
	parsed, err := strconv.Atoi(GetEnvTrimmed(key))
	if err != nil || parsed <= 0 {
		return defaultValue
	}

	return parsed
}

// GetEnvPositiveDurationOrDefault is GetEnvDurationOrDefault without zero.
func GetEnvPositiveDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if d := GetEnvDurationOrDefault(key, defaultValue); d > 0 {
		return d
	}

	return defaultValue
}
