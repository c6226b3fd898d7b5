package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config keeps runtime settings for the schedule manager.
type Config struct {
	Database      DatabaseConfig
	Ntfy          NtfyConfig
	Schedule      ScheduleConfig
	Notifications NotificationsConfig
	Commands      CommandsConfig
	Agent         AgentConfig
	IPMonitor     IPMonitorConfig `mapstructure:"ip_monitor"`
	API           APIConfig
	Log           LogConfig
}

type DatabaseConfig struct {
	Path string
}

type NtfyConfig struct {
	Server       string
	Topic        string
	CommandTopic string `mapstructure:"command_topic"`
	// Priority maps task priorities (high/medium/low) to ntfy priorities.
	Priority map[string]string
}

type ScheduleConfig struct {
	Timezone string
}

type NotificationsConfig struct {
	ReminderMinutesBefore          []int  `mapstructure:"reminder_minutes_before"`
	DailySummaryTime               string `mapstructure:"daily_summary_time"`
	UpcomingSummaryIntervalMinutes int    `mapstructure:"upcoming_summary_interval_minutes"`
	// UpcomingSummaryWorkHours is a [start, end] pair of HH:MM strings; the
	// upcoming summary only fires inside this window on weekdays.
	UpcomingSummaryWorkHours []string `mapstructure:"upcoming_summary_work_hours"`
}

type CommandsConfig struct {
	Enabled          bool
	RateLimitSeconds int `mapstructure:"rate_limit_seconds"`
}

type AgentConfig struct {
	Enabled               bool
	Binary                string
	AgentName             string `mapstructure:"agent_name"`
	Model                 string
	CommandTimeoutSeconds int `mapstructure:"command_timeout_seconds"`
}

type IPMonitorConfig struct {
	Enabled              bool
	CheckIntervalMinutes int `mapstructure:"check_interval_minutes"`
	Services             []string
}

type APIConfig struct {
	Enabled bool
	Addr    string
	// BaseURL is what reminder action buttons point at; defaults to
	// http://localhost<Addr>.
	BaseURL string `mapstructure:"base_url"`
}

type LogConfig struct {
	Level string
}

// CommandTimeout returns the agent per-command timeout as a duration.
func (a AgentConfig) CommandTimeout() time.Duration {
	return time.Duration(a.CommandTimeoutSeconds) * time.Second
}

// RateLimitInterval returns the minimum interval between commands per source.
func (c CommandsConfig) RateLimitInterval() time.Duration {
	return time.Duration(c.RateLimitSeconds) * time.Second
}

// Load reads configuration from the given YAML file (optional) and the
// environment, with sane defaults for every key.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("database.path", "schedule.db")
	v.SetDefault("ntfy.server", "https://ntfy.sh")
	v.SetDefault("ntfy.topic", "")
	v.SetDefault("ntfy.command_topic", "")
	v.SetDefault("ntfy.priority", map[string]string{
		"high":   "urgent",
		"medium": "high",
		"low":    "default",
	})
	v.SetDefault("schedule.timezone", "America/Los_Angeles")
	v.SetDefault("notifications.reminder_minutes_before", []int{15, 60})
	v.SetDefault("notifications.daily_summary_time", "08:00")
	v.SetDefault("notifications.upcoming_summary_interval_minutes", 0)
	v.SetDefault("notifications.upcoming_summary_work_hours", []string{"09:00", "17:00"})
	v.SetDefault("commands.enabled", true)
	v.SetDefault("commands.rate_limit_seconds", 1)
	v.SetDefault("agent.enabled", false)
	v.SetDefault("agent.binary", "opencode")
	v.SetDefault("agent.agent_name", "schedule")
	v.SetDefault("agent.model", "")
	v.SetDefault("agent.command_timeout_seconds", 90)
	v.SetDefault("ip_monitor.enabled", false)
	v.SetDefault("ip_monitor.check_interval_minutes", 15)
	v.SetDefault("ip_monitor.services", []string{
		"https://api.ipify.org",
		"https://ifconfig.me/ip",
		"https://icanhazip.com",
	})
	v.SetDefault("api.enabled", false)
	v.SetDefault("api.addr", ":8080")
	v.SetDefault("api.base_url", "")
	v.SetDefault("log.level", "info")

	v.SetEnvPrefix("SCHEDMAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

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

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Ntfy.Topic == "" {
		return cfg, fmt.Errorf("ntfy.topic is required")
	}
	if cfg.API.Enabled && cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost" + cfg.API.Addr
	}

	return cfg, nil
}
