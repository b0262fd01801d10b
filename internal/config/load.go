package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultEnvFile = ".env"

// Environment variables consulted by [LoadEnv].
const (
	EnvSource  = "IMGPIPE_SRC"
	EnvDest    = "IMGPIPE_DEST"
	EnvWorkers = "IMGPIPE_WORKERS"
	EnvTimeout = "IMGPIPE_TIMEOUT"
	EnvLogFile = "IMGPIPE_LOG"
	EnvDryRun  = "IMGPIPE_DRY_RUN"
	EnvColor   = "IMGPIPE_COLOR"
)

// Load builds the effective configuration from args (without the program
// name). Precedence, lowest first: defaults, YAML file (--config), .env
// and IMGPIPE_* variables, CLI flags.
//
// Flags are parsed twice: once to discover --config/--env-file, and again
// on top of the file and environment layers so explicit flags win.
func Load(args []string) (Config, error) {
	discover := DefaultConfig()
	if err := ParseFlags(&discover, args); err != nil {
		return discover, err
	}
	if discover.ShowHelp || discover.ShowVersion {
		return discover, nil
	}

	cfg := DefaultConfig()
	if discover.ConfigFile != "" {
		if err := LoadFile(&cfg, discover.ConfigFile); err != nil {
			return cfg, err
		}
	}
	if err := LoadEnv(&cfg, discover.EnvFile); err != nil {
		return cfg, err
	}
	if err := ParseFlags(&cfg, args); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadFile overlays the YAML document at path onto cfg. Keys missing from
// the file keep their current values; a present resize list replaces the
// default table entirely.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.SourceRoot = NormalizeDirArg(cfg.SourceRoot)
	cfg.DestRoot = NormalizeDirArg(cfg.DestRoot)
	return nil
}

// LoadEnv loads envFile (or .env when empty and present) into the process
// environment without overriding variables that are already set, then
// applies the IMGPIPE_* variables to cfg.
func LoadEnv(cfg *Config, envFile string) error {
	file := envFile
	if file == "" {
		if _, err := os.Stat(defaultEnvFile); err == nil {
			file = defaultEnvFile
		}
	}
	if file != "" {
		err := godotenv.Load(file)
		// A default .env that vanished between Stat and Load is not an error.
		if err != nil && (envFile != "" || !errors.Is(err, fs.ErrNotExist)) {
			return fmt.Errorf("load env file %s: %w", file, err)
		}
	}

	if v := os.Getenv(EnvSource); v != "" {
		cfg.SourceRoot = NormalizeDirArg(v)
	}
	if v := os.Getenv(EnvDest); v != "" {
		cfg.DestRoot = NormalizeDirArg(v)
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s must be a whole number (got %q)", EnvWorkers, v)
		}
		cfg.Workers = n
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s must be a duration such as 30s (got %q)", EnvTimeout, v)
		}
		cfg.Timeout = d
	}
	if v := os.Getenv(EnvLogFile); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv(EnvDryRun); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s must be a boolean (got %q)", EnvDryRun, v)
		}
		cfg.DryRun = b
	}
	if v := os.Getenv(EnvColor); v != "" {
		cfg.ColorMode = ColorMode(v)
	}
	return nil
}
