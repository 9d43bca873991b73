package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Env looks up environment values. It is injected into activation
// resolution so decisions never read the process environment directly.
type Env func(key string) (string, bool)

// ProcessEnv returns an Env backed by the real process environment.
func ProcessEnv() Env {
	return os.LookupEnv
}

// MapEnv returns an Env backed by a fixed map.
func MapEnv(values map[string]string) Env {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

// loadEnvFiles loads .env and .env.local if present. godotenv.Load never
// overrides variables already present in the process environment.
func loadEnvFiles() error {
	var loaded []string
	for _, p := range []string{".env", ".env.local"} {
		if _, err := os.Stat(p); err == nil {
			loaded = append(loaded, p)
		}
	}
	if len(loaded) == 0 {
		return nil
	}
	return godotenv.Load(loaded...)
}
