package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"device-monitor-backend/config"
	"device-monitor-backend/internal/api"
	"device-monitor-backend/internal/db"
	"device-monitor-backend/internal/hikconnect"
	"device-monitor-backend/internal/model"
	"device-monitor-backend/internal/notification"
	"device-monitor-backend/internal/recon"
	"device-monitor-backend/internal/scheduler"
	"device-monitor-backend/internal/store"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log := logrus.NewEntry(logger)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.WithError(err).Fatalf("failed to load configuration from %s", configPath)
	}
	log.Infof("configuration loaded from %s", configPath)

	// Backend selection: a configured DSN means the relational store;
	// without one all data lives in memory and is lost on restart.
	var appStore store.Store
	if cfg.Database.DSN != "" {
		gormDB, err := db.Init(&cfg.Database)
		if err != nil {
			log.WithError(err).Fatal("failed to initialize database")
		}
		appStore = store.NewGormStore(gormDB)
		log.Info("using relational store")
	} else {
		appStore = store.NewMemStore()
		log.Warn("no database DSN configured, using in-memory store (data is not persisted)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	alertPool := notification.NewWorkerPool(
		cfg.Notifier.WorkerPoolSize,
		notification.NewSMTPSender(cfg.Notifier),
		log.WithField("component", "notifier"),
	)
	alertPool.Start(ctx)

	gatewayFactory := func(cred *model.Credential) (recon.Gateway, error) {
		return hikconnect.NewClient(cred, cfg.Vendor, log.WithField("component", "hikconnect"))
	}
	reconSvc := recon.NewService(appStore, gatewayFactory, alertPool, log.WithField("component", "recon"))

	if cfg.Scheduler.Enabled {
		sched := scheduler.New(reconSvc, cfg.Scheduler.Interval, log.WithField("component", "scheduler"))
		go sched.Run(ctx)
	} else {
		log.Info("scheduler is disabled")
	}

	router := api.NewRouter(appStore, reconSvc, &cfg.Server, log.WithField("component", "api"))
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Infof("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("HTTP server ListenAndServe")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("shutdown signal received, stopping services")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Fatal("HTTP server shutdown")
	}

	log.Info("server gracefully stopped")
}
