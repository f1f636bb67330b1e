package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/comitanigiacomo/habitlite/internal/adapters/cache"
	adapterHTTP "github.com/comitanigiacomo/habitlite/internal/adapters/handler/http"
	"github.com/comitanigiacomo/habitlite/internal/adapters/repository"
	"github.com/comitanigiacomo/habitlite/internal/adapters/storage"
	"github.com/comitanigiacomo/habitlite/internal/config"
	"github.com/comitanigiacomo/habitlite/internal/core/domain"
	"github.com/comitanigiacomo/habitlite/internal/core/services"
	"github.com/comitanigiacomo/habitlite/internal/core/workers"
)

type application struct {
	router *gin.Engine
	worker *workers.StreakWorker
	db     *sqlx.DB
	redis  *redis.Client
}

func (a *application) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

type repositories struct {
	habits domain.HabitRepository
	logs   domain.HabitLogRepository
	users  domain.UserRepository
}

func openRepositories(ctx context.Context, cfg config.DBConfig, logger *zap.Logger) (*sqlx.DB, repositories, error) {
	var db *sqlx.DB
	var err error

	switch cfg.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory storage, data is lost on exit")
		return nil, repositories{
			habits: repository.NewInMemoryHabitRepository(),
			logs:   repository.NewInMemoryHabitLogRepository(),
			users:  repository.NewInMemoryUserRepository(),
		}, nil

	case config.DriverSQLite:
		db, err = storage.OpenSQLite(ctx, cfg.DSN())

	default:
		db, err = storage.OpenPostgres(ctx, cfg.DSN(), storage.PoolConfig{
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
		})
	}
	if err != nil {
		return nil, repositories{}, err
	}

	if err := storage.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, repositories{}, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("database ready", zap.String("driver", cfg.Driver))

	return db, repositories{
		habits: repository.NewSQLHabitRepository(db),
		logs:   repository.NewSQLHabitLogRepository(db),
		users:  repository.NewSQLUserRepository(db),
	}, nil
}

func newApplication(ctx context.Context, cfg *config.Config, logger *zap.Logger, startTime time.Time) (*application, error) {
	cal, err := domain.LoadCalendar(cfg.Calendar.Timezone)
	if err != nil {
		return nil, err
	}

	db, repos, err := openRepositories(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	app := &application{db: db}

	if cfg.Redis.Enabled {
		rdb, err := cache.NewRedisClient(cache.Options{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Warn("redis unavailable, running without cache and rate limiting", zap.Error(err))
		} else {
			app.redis = rdb
			repos.habits = repository.NewCachedHabitRepository(repos.habits, rdb, cfg.Redis.TTL, logger)
		}
	}

	app.worker = workers.NewStreakWorker(repos.habits, repos.logs, cal, logger.Named("streaks"), cfg.Worker.QueueSize)

	tokenService := services.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL, repos.users)
	authService := services.NewAuthService(repos.users, tokenService)
	habitService := services.NewHabitService(repos.habits, repos.logs, cal)
	logService := services.NewLogService(repos.logs, repos.habits, cal, app.worker)
	analyticsService := services.NewAnalyticsService(repos.habits, repos.logs, cal)

	httpLogger := logger.Named("http")

	app.router = adapterHTTP.NewRouter(adapterHTTP.RouterDependencies{
		AuthHandler:      adapterHTTP.NewAuthHandler(authService, httpLogger),
		HabitHandler:     adapterHTTP.NewHabitHandler(habitService, cal, httpLogger),
		LogHandler:       adapterHTTP.NewLogHandler(logService, cal, httpLogger),
		AnalyticsHandler: adapterHTTP.NewAnalyticsHandler(analyticsService, cal, httpLogger),
		TokenService:     tokenService,
		DB:               db,
		Redis:            app.redis,
		Logger:           httpLogger,
		RateLimit:        cfg.Server.RateLimit,
		RateWindow:       cfg.Server.RateWindow,
		StartTime:        startTime,
	})

	return app, nil
}
