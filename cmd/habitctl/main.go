package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"

	"github.com/comitanigiacomo/habitlite/internal/adapters/repository"
	"github.com/comitanigiacomo/habitlite/internal/adapters/storage"
	"github.com/comitanigiacomo/habitlite/internal/cli"
	"github.com/comitanigiacomo/habitlite/internal/core/domain"
	"github.com/comitanigiacomo/habitlite/internal/core/services"
	"github.com/comitanigiacomo/habitlite/internal/core/workers"
	"github.com/comitanigiacomo/habitlite/internal/logger"
)

type cliConfig struct {
	DBPath   string `env:"HABITLITE_DB"`
	Timezone string `env:"TIMEZONE"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"warn"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var cfg cliConfig
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	if cfg.DBPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("finding home directory: %w", err)
		}
		cfg.DBPath = filepath.Join(home, ".habitlite", "habitlite.db")
	}

	log, err := logger.New(cfg.LogLevel, "console")
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	cal := domain.NewCalendar(time.Local)
	if cfg.Timezone != "" {
		if cal, err = domain.LoadCalendar(cfg.Timezone); err != nil {
			return err
		}
	}

	ctx := context.Background()

	db, err := storage.OpenSQLite(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := storage.Migrate(ctx, db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	habitRepo := repository.NewSQLHabitRepository(db)
	logRepo := repository.NewSQLHabitLogRepository(db)

	streaks := cli.InlineStreaks{
		Recomputer: workers.NewStreakWorker(habitRepo, logRepo, cal, log, 1),
		OnError: func(habitID string, err error) {
			log.Warn("streak recompute failed", zap.String("habit_id", habitID), zap.Error(err))
		},
	}

	app := &cli.App{
		Habits:    services.NewHabitService(habitRepo, logRepo, cal),
		Logs:      services.NewLogService(logRepo, habitRepo, cal, streaks),
		Analytics: services.NewAnalyticsService(habitRepo, logRepo, cal),
		Cal:       cal,
		UserID:    cli.LocalUserID,
		Migrate: func(ctx context.Context) error {
			return storage.Migrate(ctx, db)
		},
	}

	return cli.NewRootCmd(app).ExecuteContext(ctx)
}
