package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables read by Load.
const (
	envConfig          = "MAPDUMP_CONFIG"
	envSourceDir       = "MAPDUMP_SOURCE_DIR"
	envLogLevel        = "MAPDUMP_LOG_LEVEL"
	envLogFile         = "MAPDUMP_LOG_FILE"
	envAtomic          = "MAPDUMP_ATOMIC"
	envContinueOnError = "MAPDUMP_CONTINUE_ON_ERROR"
	envFrame           = "MAPDUMP_FRAME"
	envCharset         = "MAPDUMP_CHARSET"
)

// LoadDotEnv reads a .env file from the working directory if one exists.
// Variables already set in the environment win.
func LoadDotEnv(files ...string) {
	_ = godotenv.Load(files...)
}

// applyEnv applies MAPDUMP_* overrides to the config.
func applyEnv(cfg *Config) error {
	if v := env(envSourceDir); v != "" {
		cfg.Pipeline.SourceDir = v
	}
	if v := env(envLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := env(envLogFile); v != "" {
		cfg.Logging.LogFile = v
	}
	if v := env(envCharset); v != "" {
		cfg.Snapshot.Charset = v
	}
	if v := env(envFrame); v != "" {
		cfg.Output.Frame = strings.ToLower(v)
	}
	if err := envBool(envAtomic, &cfg.Pipeline.Atomic); err != nil {
		return err
	}
	return envBool(envContinueOnError, &cfg.Pipeline.ContinueOnError)
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envBool(key string, dst *bool) error {
	raw := env(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", key, err)
	}
	*dst = v
	return nil
}
