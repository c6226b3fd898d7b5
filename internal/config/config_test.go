package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ngrabbs/schedule-manager/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "ntfy:\n  topic: my-alerts\n")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Ntfy.Topic != "my-alerts" {
		t.Errorf("topic = %q", cfg.Ntfy.Topic)
	}
	if cfg.Ntfy.Server != "https://ntfy.sh" {
		t.Errorf("server = %q", cfg.Ntfy.Server)
	}
	if cfg.Database.Path != "schedule.db" {
		t.Errorf("database path = %q", cfg.Database.Path)
	}
	if cfg.Schedule.Timezone != "America/Los_Angeles" {
		t.Errorf("timezone = %q", cfg.Schedule.Timezone)
	}
	if got := cfg.Notifications.ReminderMinutesBefore; len(got) != 2 || got[0] != 15 || got[1] != 60 {
		t.Errorf("reminder offsets = %v, want [15 60]", got)
	}
	if cfg.Notifications.DailySummaryTime != "08:00" {
		t.Errorf("daily summary time = %q", cfg.Notifications.DailySummaryTime)
	}
	if !cfg.Commands.Enabled {
		t.Error("commands disabled by default")
	}
	if cfg.Commands.RateLimitInterval() != time.Second {
		t.Errorf("rate limit interval = %v", cfg.Commands.RateLimitInterval())
	}
	if cfg.Agent.Enabled {
		t.Error("agent enabled by default")
	}
	if cfg.Agent.CommandTimeout() != 90*time.Second {
		t.Errorf("agent timeout = %v", cfg.Agent.CommandTimeout())
	}
	if cfg.IPMonitor.Enabled {
		t.Error("ip monitor enabled by default")
	}
	if len(cfg.IPMonitor.Services) != 3 {
		t.Errorf("ip services = %v", cfg.IPMonitor.Services)
	}
	if cfg.Ntfy.Priority["high"] != "urgent" {
		t.Errorf("priority map = %v", cfg.Ntfy.Priority)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
database:
  path: /var/lib/schedman/tasks.db
ntfy:
  server: https://push.example.com
  topic: alerts
  command_topic: commands
  priority:
    high: max
schedule:
  timezone: UTC
notifications:
  reminder_minutes_before: [5, 30, 120]
  daily_summary_time: "07:30"
  upcoming_summary_interval_minutes: 60
commands:
  rate_limit_seconds: 5
agent:
  enabled: true
  binary: helper
  model: fast
api:
  enabled: true
  addr: ":9090"
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Database.Path != "/var/lib/schedman/tasks.db" {
		t.Errorf("database path = %q", cfg.Database.Path)
	}
	if cfg.Ntfy.CommandTopic != "commands" {
		t.Errorf("command topic = %q", cfg.Ntfy.CommandTopic)
	}
	if cfg.Ntfy.Priority["high"] != "max" {
		t.Errorf("priority map = %v", cfg.Ntfy.Priority)
	}
	if got := cfg.Notifications.ReminderMinutesBefore; len(got) != 3 || got[2] != 120 {
		t.Errorf("reminder offsets = %v", got)
	}
	if cfg.Notifications.UpcomingSummaryIntervalMinutes != 60 {
		t.Errorf("upcoming interval = %d", cfg.Notifications.UpcomingSummaryIntervalMinutes)
	}
	if cfg.Commands.RateLimitInterval() != 5*time.Second {
		t.Errorf("rate limit interval = %v", cfg.Commands.RateLimitInterval())
	}
	if !cfg.Agent.Enabled || cfg.Agent.Binary != "helper" || cfg.Agent.Model != "fast" {
		t.Errorf("agent config = %+v", cfg.Agent)
	}
	// BaseURL falls back to localhost plus the listen address.
	if cfg.API.BaseURL != "http://localhost:9090" {
		t.Errorf("api base url = %q", cfg.API.BaseURL)
	}
}

func TestLoadRequiresTopic(t *testing.T) {
	path := writeConfig(t, "database:\n  path: x.db\n")
	if _, err := config.Load(path); err == nil {
		t.Fatal("expected error when ntfy.topic is missing")
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for a missing explicit config file")
	}
}
