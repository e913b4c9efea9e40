package config

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces the environment variables read by parseEnv.
const EnvPrefix = "SHL"

// loadDotEnv exports variables from path into the process environment
// without overriding variables that are already set. A missing file is fine.
func loadDotEnv(path string) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}
}

// parseEnv overlays SHL_* variables (for example SHL_BASE_URL or
// SHL_FILE_TOKEN_TTL=30m). Unset variables leave the field untouched;
// malformed values panic like a malformed flag would.
func parseEnv(config *Config) {
	if err := envconfig.Process(EnvPrefix, config); err != nil {
		panic(err)
	}
}
