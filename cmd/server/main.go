package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/smartpath-ai-go/internal/auth"
	"github.com/smartpath-ai-go/internal/config"
	"github.com/smartpath-ai-go/internal/handlers"
	"github.com/smartpath-ai-go/internal/i18n"
	"github.com/smartpath-ai-go/internal/middleware"
	"github.com/smartpath-ai-go/internal/services/ai"
	"github.com/smartpath-ai-go/internal/services/cache"
	"github.com/smartpath-ai-go/internal/services/notes"
	"github.com/smartpath-ai-go/internal/services/progress"
	"github.com/smartpath-ai-go/internal/services/storage"
	"github.com/smartpath-ai-go/internal/services/tests"
	"github.com/smartpath-ai-go/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	envFile := flag.String("env", ".env", "Path to .env file")
	flag.Parse()

	// Load .env file if exists
	if err := godotenv.Load(*envFile); err != nil {
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.Info("Starting SmartPath server...")

	storageManager, err := storage.NewManager(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize storage")
	}

	localizer, err := i18n.NewLocalizer(&cfg.I18n)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize i18n")
	}

	metrics := middleware.NewMetrics()

	if cfg.Monitoring.Metrics.Enabled {
		go func() {
			log.WithFields(logrus.Fields{
				"port": cfg.Monitoring.Metrics.Port,
				"path": cfg.Monitoring.Metrics.Path,
			}).Info("Starting metrics server")

			if err := middleware.StartMetricsServer(cfg.Monitoring.Metrics.Port, cfg.Monitoring.Metrics.Path); err != nil {
				log.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	cacheService := cache.NewCache(cfg, log)
	rateLimiter := middleware.NewRateLimiter(cfg, storageManager, log)
	guard := auth.NewGuard(cfg, storageManager, metrics, log)

	client := ai.NewGeminiClient(&cfg.Gemini, log)
	prompts := ai.NewPromptBuilder(cfg.Subjects)
	orchestrator := ai.NewOrchestrator(client, prompts, rateLimiter, cacheService, metrics, log)
	defer orchestrator.Close()

	subjectIDs := make([]string, 0, len(cfg.Subjects))
	for id := range cfg.Subjects {
		subjectIDs = append(subjectIDs, id)
	}

	progressService := progress.NewService(storageManager, subjectIDs, log)
	notesService := notes.NewService(orchestrator, storageManager, log)
	testsService := tests.NewService(orchestrator, rateLimiter, storageManager, progressService, metrics, log)

	handler := handlers.NewHandler(
		cfg,
		guard,
		orchestrator,
		notesService,
		testsService,
		progressService,
		cacheService,
		storageManager,
		localizer,
		log,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.WithField("port", cfg.Server.Port).Info("Listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown failed")
	}

	log.Info("Server stopped")
}
