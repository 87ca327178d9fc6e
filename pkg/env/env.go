package env

import "os"

// Get reads an environment variable, falling back when it is unset or
// blank. Blank counts as unset so a stray `KEY=` in a .env file cannot
// shadow the fallback.
func Get(key, fallback string) string {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	return val
}
