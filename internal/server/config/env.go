package config

import (
	"errors"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DotEnvFile is loaded into the process environment before GOPHAUTH_*
// variables are read. Variables already set in the environment win.
const DotEnvFile = ".env"

// parseEnv overlays Config fields tagged with `env` whose variables are set.
// Unset variables leave the current value in place.
func parseEnv(config *Config) {
	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	if err := env.Parse(config); err != nil {
		panic(err)
	}
}
