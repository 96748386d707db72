package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mk1MoreBugs/hack270625-sub000/config"
	"github.com/mk1MoreBugs/hack270625-sub000/internal/analytics"
	"github.com/mk1MoreBugs/hack270625-sub000/internal/api"
	"github.com/mk1MoreBugs/hack270625-sub000/internal/database"
	"github.com/mk1MoreBugs/hack270625-sub000/internal/pricing"
	"github.com/mk1MoreBugs/hack270625-sub000/internal/queue"
	"github.com/mk1MoreBugs/hack270625-sub000/internal/scheduler"
	"github.com/mk1MoreBugs/hack270625-sub000/internal/telegram"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.WithError(err).Fatal("Failed to create database directory")
		}
	}
	logger.Infof("Using database at: %s", cfg.DatabasePath)

	db, err := database.NewDatabase(cfg.DatabasePath, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	logger.Info("Running database migrations...")
	if err := db.RunMigrations(); err != nil {
		logger.WithError(err).Fatal("Failed to run database migrations")
	}

	engine := pricing.NewEngine(db, cfg, logger)
	aggregator := analytics.NewAggregator(db, cfg.Analytics.WindowHours, logger)
	repriceQueue := queue.NewRepriceQueue(cfg.Pricing.QueueSize, logger)

	sched := scheduler.NewScheduler(
		engine,
		aggregator,
		repriceQueue,
		time.Duration(cfg.Pricing.RunInterval)*time.Second,
		time.Duration(cfg.Analytics.RefreshInterval)*time.Second,
		logger,
	)

	notifier := telegram.NewService(cfg.Telegram.BotToken, cfg.Telegram.ChatID, logger)
	if notifier.Enabled() {
		sched.SetNotifier(notifier)
		logger.Info("Telegram run summaries enabled")
	}

	sched.Start()
	defer sched.Stop()

	handler := api.NewHandler(db, engine, sched, logger)
	router := gin.Default()
	api.SetupRoutes(router, handler)

	go func() {
		logger.Infof("Starting admin API on port %s", cfg.Port)
		if err := router.Run(":" + cfg.Port); err != nil {
			logger.WithError(err).Fatal("Admin API failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down...")
}
