package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the server settings, resolved with CLI flags > environment
// (HOOKRUNNER_ prefix) > config file > defaults precedence.
type Config struct {
	Host      string
	Port      int
	RulesFile string

	LogFile       string // "stderr", "stdout", or a file path
	LogLevel      string // debug, info, warn, error
	LogFormat     string // text, json
	LogMaxSizeMB  int    // rotation threshold for file destinations
	LogMaxBackups int
	LogMaxAgeDays int
	Quiet         bool

	ShutdownTimeout time.Duration
}

// Load resolves the server configuration. configFile may be empty; flags may
// be nil when no CLI is involved (tests).
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 7777)
	v.SetDefault("rules", "rules.yaml")
	v.SetDefault("log.file", "stderr")
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 0)
	v.SetDefault("quiet", false)
	v.SetDefault("shutdown_timeout", "15s")

	v.SetEnvPrefix("HOOKRUNNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		bindings := map[string]string{
			"host":             "host",
			"port":             "port",
			"rules":            "rules",
			"log.file":         "log-file",
			"log.level":        "log-level",
			"log.format":       "log-format",
			"log.max_size_mb":  "log-max-size-mb",
			"log.max_backups":  "log-max-backups",
			"log.max_age_days": "log-max-age-days",
			"quiet":            "quiet",
			"shutdown_timeout": "shutdown-timeout",
		}
		for key, name := range bindings {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		Host:            v.GetString("host"),
		Port:            v.GetInt("port"),
		RulesFile:       v.GetString("rules"),
		LogFile:         v.GetString("log.file"),
		LogLevel:        v.GetString("log.level"),
		LogFormat:       v.GetString("log.format"),
		LogMaxSizeMB:    v.GetInt("log.max_size_mb"),
		LogMaxBackups:   v.GetInt("log.max_backups"),
		LogMaxAgeDays:   v.GetInt("log.max_age_days"),
		Quiet:           v.GetBool("quiet"),
		ShutdownTimeout: v.GetDuration("shutdown_timeout"),
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d, only 1-65535 is permitted", cfg.Port)
	}
	if cfg.RulesFile == "" {
		return nil, fmt.Errorf("rules file path must not be empty")
	}
	return cfg, nil
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
