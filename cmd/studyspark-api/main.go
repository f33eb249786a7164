package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/studyspark-go/internal/api"
	"github.com/studyspark-go/internal/config"
	"github.com/studyspark-go/internal/middleware"
	"github.com/studyspark-go/internal/services/backend"
	"github.com/studyspark-go/internal/services/storage"
	"github.com/studyspark-go/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	envFile := flag.String("env", ".env", "Path to .env file")
	flag.Parse()

	// A missing .env file is fine
	if err := godotenv.Load(*envFile); err != nil {
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.ValidateServer(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.Info("Starting Study Spark API...")

	storageManager, err := storage.NewManager(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize storage")
	}
	defer storageManager.Close()

	metrics := middleware.NewMetrics()

	local, err := backend.NewLocalFromConfig(cfg, storageManager, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize collaborators")
	}
	local.WithMetrics(metrics)

	limiter := middleware.NewRateLimiter(cfg, log)

	proxies, err := middleware.ParseTrustedProxies(cfg.RateLimit.TrustedProxies)
	if err != nil {
		log.WithError(err).Fatal("Invalid rate limit configuration")
	}

	opts := api.Options{MaxFileSize: cfg.Uploads.MaxFileSize, TrustedProxies: proxies}
	if cfg.Monitoring.Metrics.Enabled {
		opts.MetricsPath = cfg.Monitoring.Metrics.Path
	}
	server := api.NewServer(local, storageManager, limiter, metrics, log, opts)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"port":    cfg.Server.Port,
			"storage": cfg.Storage.Type,
		}).Info("API listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("API server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}

	log.Info("API stopped")
}
