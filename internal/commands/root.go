// Package commands holds the CLI surface of the schedule manager.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ngrabbs/schedule-manager/internal/config"
	"github.com/ngrabbs/schedule-manager/internal/repository"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "schedman",
	Short: "Personal task reminders over an ntfy relay",
	Long: `schedman stores tasks described in natural language, reminds you about
them through an ntfy push topic, and accepts commands back on a second topic.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml")
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(notifyCmd)
}

// app bundles what every subcommand needs.
type app struct {
	cfg config.Config
	db  *gorm.DB
	log *zap.SugaredLogger
}

func setup() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	db, err := repository.NewDB(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}

	return &app{cfg: cfg, db: db, log: logger}, nil
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
	_ = a.log.Sync()
}

func newLogger(level string) (*zap.SugaredLogger, error) {
	cfg := zap.NewProductionConfig()
	if level == "debug" {
		cfg = zap.NewDevelopmentConfig()
	}
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}
