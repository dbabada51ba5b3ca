package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, env := range []string{"TELEGRAM_TOKEN", "DATABASE_URL", "REPORT_INTERVAL_HOURS", "REPORT_TIME", "TIMEZONE", "LOG_LEVEL", "LOG_FORMAT"} {
		t.Setenv(env, "")
	}
	t.Setenv("TIMEZONE", "UTC")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabaseURL != "study_planner.db" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.ReportInterval != 5*time.Hour {
		t.Errorf("ReportInterval = %s", cfg.ReportInterval)
	}
	if cfg.ReportTime != "" {
		t.Errorf("ReportTime = %q", cfg.ReportTime)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "console" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if err := cfg.RequireTelegram(); err == nil {
		t.Error("expected missing token error")
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "planner.yaml")
	content := "telegram_token: from-file\ndatabase_url: file.db\nreport_interval_hours: 3\ntimezone: UTC\nlog:\n  level: debug\n  format: json\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TELEGRAM_TOKEN", "from-env")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REPORT_INTERVAL_HOURS", "")
	t.Setenv("REPORT_TIME", "07:45")
	t.Setenv("TIMEZONE", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TelegramToken != "from-env" {
		t.Errorf("TelegramToken = %q", cfg.TelegramToken)
	}
	if cfg.DatabaseURL != "file.db" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.ReportInterval != 3*time.Hour {
		t.Errorf("ReportInterval = %s", cfg.ReportInterval)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.ReportTime != "07:45" {
		t.Errorf("ReportTime = %q", cfg.ReportTime)
	}
	if cfg.Location != time.UTC {
		t.Errorf("Location = %v", cfg.Location)
	}
}

func TestLoadRejectsBadTimezone(t *testing.T) {
	t.Setenv("TIMEZONE", "Mars/Olympus")
	if _, err := Load(""); err == nil {
		t.Fatal("expected timezone error")
	}
}

func TestParseInterval(t *testing.T) {
	tests := map[string]time.Duration{"": 0, "4": 4 * time.Hour, "-1": 0, "abc": 0}
	for in, want := range tests {
		if got := parseInterval(in); got != want {
			t.Errorf("parseInterval(%q) = %s, want %s", in, got, want)
		}
	}
}
