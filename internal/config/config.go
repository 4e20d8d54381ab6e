// Package config loads process configuration from environment variables,
// the same shape as the reference server's config loader: defaults first,
// required values fail Load() with a descriptive error.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr    string
	DataDir string

	DefaultTZ               string
	MaxHistoryPairs         int
	ModelID                 string
	ModelBaseURL            string
	ModelAPIKey             string
	FactsDistillEvery       int
	MaxConcurrentModelCalls int

	AuditSQLitePath string
}

func Load() (Config, error) {
	cfg := Config{
		Addr:              env("PROJECTOS_ADDR", ":8080"),
		DataDir:           env("PROJECTOS_DATA_DIR", "data/projects"),
		DefaultTZ:         env("PROJECTOS_DEFAULT_TZ", "America/Chicago"),
		ModelID:           env("PROJECTOS_MODEL_ID", "default-model"),
		ModelBaseURL:      env("PROJECTOS_MODEL_BASE_URL", "https://api.openai.com/v1"),
		ModelAPIKey:       env("PROJECTOS_MODEL_API_KEY", ""),
		AuditSQLitePath:   env("PROJECTOS_AUDIT_SQLITE_PATH", "data/audit_log.sqlite"),
	}

	n, err := envInt("PROJECTOS_MAX_HISTORY_PAIRS", 10)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxHistoryPairs = n

	d, err := envInt("PROJECTOS_FACTS_DISTILL_EVERY", 3)
	if err != nil {
		return Config{}, err
	}
	cfg.FactsDistillEvery = d

	c, err := envInt("PROJECTOS_MAX_CONCURRENT_MODEL_CALLS", 4)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxConcurrentModelCalls = c

	if _, err := time.LoadLocation(cfg.DefaultTZ); err != nil {
		return Config{}, errors.New("invalid PROJECTOS_DEFAULT_TZ: " + cfg.DefaultTZ)
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return Config{}, errors.New("missing PROJECTOS_DATA_DIR")
	}

	return cfg, nil
}

func env(key, def string) string {
	if v := os.Getenv(key); strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New("invalid " + key + ": " + v)
	}
	return n, nil
}
