package config

import (
	"log/slog"

	"github.com/joho/godotenv"
)

// loadEnvFile loads environment variables from .env/.env.local, stopping at
// the first file that parses. Existing process variables are not overwritten.
// Absence of both files is not an error.
func loadEnvFile() {
	for _, envPath := range []string{".env", ".env.local"} {
		if err := godotenv.Load(envPath); err == nil {
			slog.Debug("Loaded environment variables", "path", envPath)
			return
		}
	}
}
