package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rendis/flowscript/internal/scheduler"
)

// Config holds all flowscript configuration.
// Priority: env vars > settings.json > defaults.
type Config struct {
	DBPath      string              `json:"db_path"`
	LogLevel    string              `json:"log_level"`
	LogFormat   string              `json:"log_format"`
	RulesPath   string              `json:"rules_path"`
	MetricsAddr string              `json:"metrics_addr"`
	IndentWidth int                 `json:"indent_width"`
	SaveRuns    bool                `json:"save_runs"`
	Schedules   []scheduler.JobSpec `json:"schedules"`
}

func defaultConfig() Config {
	return Config{
		DBPath:      "file:" + filepath.Join(flowscriptDir(), "flowscript.db"),
		LogLevel:    "info",
		LogFormat:   "text",
		IndentWidth: 4,
	}
}

func flowscriptDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".flowscript"
	}
	return filepath.Join(home, ".flowscript")
}

func settingsPath() string {
	return filepath.Join(flowscriptDir(), "settings.json")
}

// loadConfig layers settings.json and FLOWSCRIPT_* env vars over the
// defaults. A missing settings file is fine; a malformed one is an error.
func loadConfig() (Config, error) {
	cfg := defaultConfig()

	// Layer 2: settings.json (ignore if missing).
	if data, err := os.ReadFile(settingsPath()); err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", settingsPath(), err)
		}
	}

	// Layer 3: env vars override.
	if v := os.Getenv("FLOWSCRIPT_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("FLOWSCRIPT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("FLOWSCRIPT_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("FLOWSCRIPT_RULES_PATH"); v != "" {
		cfg.RulesPath = v
	}
	if v := os.Getenv("FLOWSCRIPT_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("FLOWSCRIPT_INDENT_WIDTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.IndentWidth = n
		}
	}
	if v := os.Getenv("FLOWSCRIPT_SAVE_RUNS"); v != "" {
		cfg.SaveRuns = v == "true" || v == "1"
	}
	// FLOWSCRIPT_SCHEDULES is a comma-separated list of "dir=cron" pairs.
	if v := os.Getenv("FLOWSCRIPT_SCHEDULES"); v != "" {
		specs, err := parseSchedules(v)
		if err != nil {
			return cfg, err
		}
		cfg.Schedules = specs
	}

	return cfg, nil
}

func parseSchedules(v string) ([]scheduler.JobSpec, error) {
	var specs []scheduler.JobSpec
	for _, pair := range strings.Split(v, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		dir, expr, ok := strings.Cut(pair, "=")
		if !ok || dir == "" || expr == "" {
			return nil, fmt.Errorf("FLOWSCRIPT_SCHEDULES: want dir=cron, got %q", pair)
		}
		specs = append(specs, scheduler.JobSpec{Dir: strings.TrimSpace(dir), Cron: strings.TrimSpace(expr)})
	}
	return specs, nil
}
