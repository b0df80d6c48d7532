package config

import (
	"os"

	"github.com/inconshreveable/log15/v3"
	"github.com/joho/godotenv"
)

// LoadEnv reads a local .env file outside hosted environments.
func LoadEnv(log log15.Logger) {
	if os.Getenv("RAILWAY_ENVIRONMENT") != "" {
		return
	}
	if err := godotenv.Load(); err != nil {
		log.Warn(".env file not loaded", "err", err)
	}
}
