package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blindcellar/tasting-system/config"
	"github.com/blindcellar/tasting-system/db"
	"github.com/blindcellar/tasting-system/handlers"
	"github.com/blindcellar/tasting-system/realtime"
	"github.com/blindcellar/tasting-system/repositories"
	api "github.com/blindcellar/tasting-system/routes"
	"github.com/blindcellar/tasting-system/services"
	"github.com/blindcellar/tasting-system/storage"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	cloudflareUploader, err := storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		BucketName:      cfg.R2BucketName,
		PublicBaseURL:   cfg.R2PublicBaseURL,
	})
	if err != nil {
		logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Cloudflare R2 uploader initialized")

	wsHub := realtime.NewHub()
	go wsHub.Run()
	logger.Info("WebSocket Hub started")

	eventRepo := repositories.NewPostgresEventRepository(dbConn)
	participantRepo := repositories.NewPostgresParticipantRepository(dbConn)
	categoryRepo := repositories.NewPostgresCategoryRepository(dbConn)
	answerRepo := repositories.NewPostgresAnswerRepository(dbConn)
	guessRepo := repositories.NewPostgresGuessRepository(dbConn)
	scoreRepo := repositories.NewPostgresScoreRepository(dbConn)

	transactor := services.NewSQLTransactor(dbConn)
	logger.Info("repositories initialized")

	scoringService := services.NewScoringService(
		eventRepo,
		participantRepo,
		categoryRepo,
		answerRepo,
		guessRepo,
		scoreRepo,
	)
	orderingService := services.NewOrderingService(
		transactor,
		eventRepo,
		participantRepo,
		wsHub,
		logger,
	)
	eventService := services.NewEventService(
		transactor,
		eventRepo,
		participantRepo,
		categoryRepo,
		orderingService,
		cloudflareUploader,
		wsHub,
		logger,
	)
	collectorService := services.NewCollectorService(
		transactor,
		participantRepo,
		categoryRepo,
		answerRepo,
		guessRepo,
		scoreRepo,
		scoringService,
		wsHub,
		logger,
	)
	logger.Info("services initialized")

	eventHandler := handlers.NewEventHandler(eventService)
	participantHandler := handlers.NewParticipantHandler(orderingService)
	tastingHandler := handlers.NewTastingHandler(collectorService, scoringService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, eventService)
	logger.Info("HTTP handlers initialized")

	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		eventHandler,
		participantHandler,
		tastingHandler,
		webSocketHandler,
	)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		} else {
			logger.Info("server stopped gracefully")
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		} else {
			logger.Info("server shutdown complete")
		}
	}
	logger.Info("application exited")
}
