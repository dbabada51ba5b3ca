package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// Config keeps runtime settings for the planner.
type Config struct {
	TelegramToken  string
	DatabaseURL    string
	ReportInterval time.Duration
	// ReportTime switches reports to once a day at HH:MM when set.
	ReportTime string
	Location   *time.Location
	Log        LogConfig
}

// LogConfig selects the zap encoder and level.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from an optional YAML file and environment
// variables with sane defaults. Environment variables win over the file.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("database_url", "study_planner.db")
	v.SetDefault("report_interval_hours", 5)
	v.SetDefault("timezone", "Local")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	for key, env := range map[string]string{
		"telegram_token":        "TELEGRAM_TOKEN",
		"database_url":          "DATABASE_URL",
		"report_interval_hours": "REPORT_INTERVAL_HOURS",
		"report_time":           "REPORT_TIME",
		"timezone":              "TIMEZONE",
		"log.level":             "LOG_LEVEL",
		"log.format":            "LOG_FORMAT",
	} {
		_ = v.BindEnv(key, env)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := Config{
		TelegramToken:  strings.TrimSpace(v.GetString("telegram_token")),
		DatabaseURL:    strings.TrimSpace(v.GetString("database_url")),
		ReportInterval: parseInterval(strings.TrimSpace(v.GetString("report_interval_hours"))),
		ReportTime:     strings.TrimSpace(v.GetString("report_time")),
		Log: LogConfig{
			Level:  strings.ToLower(strings.TrimSpace(v.GetString("log.level"))),
			Format: strings.ToLower(strings.TrimSpace(v.GetString("log.format"))),
		},
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "study_planner.db"
	}

	if cfg.ReportInterval == 0 {
		cfg.ReportInterval = 5 * time.Hour
	}

	loc, err := time.LoadLocation(strings.TrimSpace(v.GetString("timezone")))
	if err != nil {
		return cfg, fmt.Errorf("timezone: %w", err)
	}
	cfg.Location = loc

	if _, err := zapcore.ParseLevel(cfg.Log.Level); err != nil {
		return cfg, fmt.Errorf("log level: %w", err)
	}

	return cfg, nil
}

// RequireTelegram reports an error when the bot token is missing.
func (c Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	return nil
}

func parseInterval(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	hours, err := time.ParseDuration(raw + "h")
	if err != nil || hours <= 0 {
		return 0
	}
	return hours
}
