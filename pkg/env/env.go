// Package env holds the bare os.Getenv helpers needed before the typed
// config layer is loaded.
package env

import "os"

// Get returns the environment value for key, or fallback when the
// variable is unset or empty.
func Get(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
