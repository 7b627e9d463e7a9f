// Package config loads the sync daemon configuration from a YAML file,
// applies SLACKTUI_* environment overrides and resolves defaults.
package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Workspace string `yaml:"workspace"`
	Storage   struct {
		DBPath string `yaml:"db_path"`
	} `yaml:"storage"`
	Auth struct {
		UserToken string `yaml:"user_token"`
		AppToken  string `yaml:"app_token"`
	} `yaml:"auth"`
	Sync struct {
		IntervalSeconds   int `yaml:"interval_seconds"`
		HistoryWindowDays int `yaml:"history_window_days"`
		QueueCapacity     int `yaml:"queue_capacity"`
	} `yaml:"sync"`
	Retention struct {
		Enabled bool   `yaml:"enabled"`
		Cron    string `yaml:"cron"`
		Days    int    `yaml:"days"`
	} `yaml:"retention"`
	Status struct {
		Address string `yaml:"address"`
	} `yaml:"status"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // console|json
	} `yaml:"logging"`
}

// SyncInterval returns the configured pull interval with its default.
func (c *Config) SyncInterval() time.Duration {
	if c.Sync.IntervalSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.Sync.IntervalSeconds) * time.Second
}

// EffectiveDBPath resolves the cache database path, defaulting to a
// per-workspace file under the user config directory.
func (c *Config) EffectiveDBPath() string {
	if c.Storage.DBPath != "" {
		return c.Storage.DBPath
	}
	ws := c.Workspace
	if ws == "" {
		ws = "default"
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ws+".db")
	}
	return filepath.Join(home, ".config", "slacktui", ws+".db")
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseCommandFlags defines and parses command-line flags and returns their
// values along with a map indicating which flags were explicitly set.
func ParseCommandFlags() (cfgPath string, dbPath string, workspace string, setFlags map[string]bool) {
	cfgPtr := flag.String("config", "./slacktui.yaml", "Path to config file")
	dbPtr := flag.String("db", "", "Cache database path (overrides config)")
	wsPtr := flag.String("workspace", "", "Workspace name (overrides config)")
	flag.Parse()
	setFlags = map[string]bool{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	return *cfgPtr, *dbPtr, *wsPtr, setFlags
}

// LoadEnvOverrides applies environment overrides onto the provided cfg and
// reports whether any env vars were used.
func LoadEnvOverrides(cfg *Config) bool {
	envUsed := false
	if v := os.Getenv("SLACKTUI_WORKSPACE"); v != "" {
		envUsed = true
		cfg.Workspace = v
	}
	if v := os.Getenv("SLACKTUI_DB_PATH"); v != "" {
		envUsed = true
		cfg.Storage.DBPath = v
	}
	if v := os.Getenv("SLACKTUI_USER_TOKEN"); v != "" {
		envUsed = true
		cfg.Auth.UserToken = v
	}
	if v := os.Getenv("SLACKTUI_APP_TOKEN"); v != "" {
		envUsed = true
		cfg.Auth.AppToken = v
	}
	if v := os.Getenv("SLACKTUI_SYNC_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envUsed = true
			cfg.Sync.IntervalSeconds = n
		}
	}
	if v := os.Getenv("SLACKTUI_HISTORY_DAYS"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envUsed = true
			cfg.Sync.HistoryWindowDays = n
		}
	}
	if v := os.Getenv("SLACKTUI_QUEUE_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envUsed = true
			cfg.Sync.QueueCapacity = n
		}
	}
	if v := os.Getenv("SLACKTUI_RETENTION_CRON"); v != "" {
		envUsed = true
		cfg.Retention.Enabled = true
		cfg.Retention.Cron = v
	}
	if v := os.Getenv("SLACKTUI_RETENTION_DAYS"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envUsed = true
			cfg.Retention.Days = n
		}
	}
	if v := os.Getenv("SLACKTUI_STATUS_ADDR"); v != "" {
		envUsed = true
		cfg.Status.Address = v
	}
	if v := os.Getenv("SLACKTUI_LOG_LEVEL"); v != "" {
		envUsed = true
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SLACKTUI_LOG_FORMAT"); v != "" {
		envUsed = true
		cfg.Logging.Format = v
	}
	return envUsed
}

// LoadEffective loads config from the given path and applies environment
// overrides. A missing file is not fatal; env vars alone can configure a
// run.
func LoadEffective(path string) (*Config, bool, error) {
	cfg, err := Load(path)
	if err != nil {
		cfg = &Config{}
	}
	envUsed := LoadEnvOverrides(cfg)
	return cfg, envUsed, nil
}

// Validate checks the settings a sync run cannot start without.
func (c *Config) Validate() error {
	if c.Auth.UserToken == "" {
		return fmt.Errorf("missing user token (auth.user_token or SLACKTUI_USER_TOKEN)")
	}
	if c.Auth.AppToken == "" {
		return fmt.Errorf("missing app token (auth.app_token or SLACKTUI_APP_TOKEN)")
	}
	if c.Retention.Enabled && c.Retention.Days <= 0 {
		return fmt.Errorf("retention enabled with non-positive retention.days")
	}
	return nil
}

// ResolveConfigPath decides the config file path using the flag-provided value
// and the environment variable `SLACKTUI_CONFIG` when the flag was not set.
func ResolveConfigPath(flagPath string, flagSet bool) string {
	if flagSet {
		return flagPath
	}
	if p := os.Getenv("SLACKTUI_CONFIG"); p != "" {
		return p
	}
	return flagPath
}
