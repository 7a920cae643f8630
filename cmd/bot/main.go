package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	_ "github.com/lib/pq"

	"github.com/vidasana/citabot/internal/booking"
	"github.com/vidasana/citabot/internal/conversation"
	"github.com/vidasana/citabot/internal/database"
	apperrors "github.com/vidasana/citabot/internal/errors"
	"github.com/vidasana/citabot/internal/health"
	"github.com/vidasana/citabot/internal/idempotency"
	"github.com/vidasana/citabot/internal/jobs"
	jobhandlers "github.com/vidasana/citabot/internal/jobs/handlers"
	"github.com/vidasana/citabot/internal/lifecycle"
	"github.com/vidasana/citabot/internal/ratelimit"
	"github.com/vidasana/citabot/internal/repository"
	"github.com/vidasana/citabot/internal/survey"
	"github.com/vidasana/citabot/internal/webhook"
	"github.com/vidasana/citabot/pkg/config"
	"github.com/vidasana/citabot/pkg/graceful"
	"github.com/vidasana/citabot/pkg/logger"
	"github.com/vidasana/citabot/pkg/metrics"
	redispkg "github.com/vidasana/citabot/pkg/redis"
)

const replyCacheTTL = 24 * time.Hour

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, _, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	log := logger.New(*cfg)
	slog.SetDefault(log)

	log.Info("starting citabot",
		slog.String("env", cfg.AppEnv),
		slog.String("http_port", cfg.HTTP.Port),
		slog.String("log_level", cfg.Logger.Level),
	)

	conversation.RegisterTransitionRecorder(metrics.RecordStepTransition)

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	if err := db.PingContext(ctx); err != nil {
		log.Error("failed to ping database", slog.Any("error", err))
		os.Exit(1)
	}

	migrator := database.NewMigrator(db, log)
	if err := migrator.ApplyDir(ctx, cfg.Database.MigrationsDir); err != nil {
		log.Error("failed to apply migrations", slog.Any("error", err))
		os.Exit(1)
	}

	redisClient, err := redispkg.New(ctx, cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", slog.Any("error", err))
		os.Exit(1)
	}

	storage := conversation.NewRedisStorage(redisClient, log, cfg.Session.TTL)
	sessions := conversation.NewManager(storage, log, redisClient)

	appointmentRepo := repository.NewAppointmentRepository(db, log)
	historyRepo := repository.NewHistoryRepository(db, log)
	surveyRepo := repository.NewSurveyRepository(db, log)
	patientRepo := repository.NewPatientRepository(db, log)

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	jobsManager := jobs.NewManager(redisOpt, log)
	surveyScheduler := jobs.NewSurveyScheduler(jobsManager, cfg.Survey.Delay, log)

	bookingService := booking.NewService(appointmentRepo, historyRepo, surveyScheduler, log)
	surveyService := survey.NewService(surveyRepo, historyRepo, log)
	errHandler := apperrors.NewHandler(log, cfg.Sentry.Enabled)

	menu := config.NewServiceMenu(cfg.Clinic)
	watcher, err := config.WatchClinic(config.ConfigPath(cfg.AppEnv), menu, log)
	if err != nil {
		log.Warn("service menu hot reload disabled", slog.Any("error", err))
	}

	engine := conversation.NewEngine(sessions, menu, bookingService, surveyService, patientRepo, errHandler, log)

	worker := jobs.NewWorker(redisOpt, map[string]int{jobs.QueueDefault: 1}, cfg.Jobs.Concurrency, log)
	worker.RegisterHandler(jobs.TaskTypeSurveyPrompt, jobhandlers.NewSurveyPromptHandler(sessions, log))
	go func() {
		if err := worker.Run(); err != nil {
			log.Error("jobs worker stopped", slog.Any("error", err))
			stop()
		}
	}()

	cleaner := conversation.NewCleaner(redisClient, storage, log, cfg.Session.TTL, cfg.Session.CleanupInterval)
	go cleaner.Run(ctx)

	collector := metrics.NewSessionCollector(sessions.CountByStep, conversation.StepLabels())
	go collector.Run(ctx)

	checker := health.NewChecker(log)
	checker.AddCheck("postgres", health.NewDBChecker(db))
	checker.AddCheck("redis", health.NewRedisChecker(redisClient))

	replyCache := idempotency.NewRedisCache(redisClient, replyCacheTTL, log)
	limiter := ratelimit.NewRedisLimiter(redisClient, log)

	webhookHandler := webhook.NewHandler(
		engine,
		replyCache,
		limiter,
		cfg.Limits.MessagesPerWindow,
		cfg.Limits.Window,
		log,
	)
	router := webhook.NewRouter(webhookHandler, checker)

	server := graceful.NewServer(log, &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}, cfg.HTTP.ShutdownTimeout)

	shutdown := lifecycle.NewShutdown(log)
	shutdown.Register("jobs worker", func(context.Context) error {
		worker.Shutdown()
		return nil
	})
	shutdown.Register("jobs manager", func(context.Context) error {
		return jobsManager.Close()
	})
	shutdown.Register("database", func(context.Context) error {
		return db.Close()
	})
	shutdown.Register("redis", func(context.Context) error {
		return redisClient.Close()
	})
	if watcher != nil {
		shutdown.Register("config watcher", func(context.Context) error {
			return watcher.Close()
		})
	}
	if cfg.Sentry.Enabled {
		shutdown.Register("sentry", func(context.Context) error {
			sentry.Flush(2 * time.Second)
			return nil
		})
	}

	if err := server.ListenAndServe(ctx); err != nil {
		log.Error("http server failed", slog.Any("error", err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := shutdown.Execute(shutdownCtx); err != nil {
		log.Error("shutdown finished with errors", slog.Any("error", err))
	}

	log.Info("citabot stopped")
}
