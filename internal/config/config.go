// Package config layers environment overrides on top of the persisted
// application config.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/piwi3910/bakery/internal/model"
	"github.com/piwi3910/bakery/internal/project"
)

// Environment variables read by ApplyEnv.
const (
	EnvWorkerDir       = "BAKERY_WORKER_DIR"
	EnvTimeLimitMs     = "BAKERY_TIME_LIMIT_MS"
	EnvOutputDir       = "BAKERY_OUTPUT_DIR"
	EnvServerAddr      = "BAKERY_SERVER_ADDR"
	EnvDisabledWorkers = "BAKERY_DISABLED_WORKERS"
	EnvSVGOutput       = "BAKERY_SVG_OUTPUT"
	EnvAllowedOrigins  = "BAKERY_ALLOWED_ORIGINS"
)

// ApplyEnv overrides cfg fields from the environment. Unset or unparsable
// variables leave the field unchanged.
func ApplyEnv(cfg *model.AppConfig) {
	cfg.WorkerDir = getEnv(EnvWorkerDir, cfg.WorkerDir)
	cfg.TimeLimitMs = max(0, getEnvAsInt(EnvTimeLimitMs, cfg.TimeLimitMs))
	cfg.OutputDir = getEnv(EnvOutputDir, cfg.OutputDir)
	cfg.ServerAddr = getEnv(EnvServerAddr, cfg.ServerAddr)
	cfg.DisabledPattern = getEnv(EnvDisabledWorkers, cfg.DisabledPattern)
	cfg.SVGOutput = getEnvBool(EnvSVGOutput, cfg.SVGOutput)
	cfg.AllowedOrigins = getEnvAsList(EnvAllowedOrigins, cfg.AllowedOrigins)
}

// Load reads the config file at path (defaults when missing) and applies
// the environment overrides.
func Load(path string) (model.AppConfig, error) {
	cfg, err := project.LoadAppConfig(path)
	if err != nil {
		return model.AppConfig{}, err
	}
	ApplyEnv(&cfg)
	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

// getEnvAsList splits a comma-separated variable, dropping empty items.
func getEnvAsList(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var list []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	result, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return result
}
