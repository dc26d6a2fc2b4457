package env

import "os"

// Get returns the value of the given environment variable or a fallback.
// It serves the few knobs read before config is loaded, such as the
// logger's LOG_FORMAT.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
