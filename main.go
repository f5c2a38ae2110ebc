package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	database "github.com/FACorreiaa/go-couple-connect/app/db"
	appLogger "github.com/FACorreiaa/go-couple-connect/app/logger"
	"github.com/FACorreiaa/go-couple-connect/app/observability/metrics"
	"github.com/FACorreiaa/go-couple-connect/app/observability/tracer"
	"github.com/FACorreiaa/go-couple-connect/config"
	"github.com/FACorreiaa/go-couple-connect/internal/api/admin"
	"github.com/FACorreiaa/go-couple-connect/internal/api/auth"
	"github.com/FACorreiaa/go-couple-connect/internal/api/feed"
	"github.com/FACorreiaa/go-couple-connect/internal/api/member"
	"github.com/FACorreiaa/go-couple-connect/internal/api/notify"
	"github.com/FACorreiaa/go-couple-connect/internal/api/profile"
	"github.com/FACorreiaa/go-couple-connect/internal/app/storage"
	"github.com/FACorreiaa/go-couple-connect/internal/authstate"
	"github.com/FACorreiaa/go-couple-connect/internal/router"
	"github.com/FACorreiaa/go-couple-connect/internal/types"
)

const serviceName = "couple-connect"

func main() {
	// Use standard log until slog is configured, in case godotenv fails
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("FATAL: Error initializing config: %v", err)
	}

	logger := setupLogger(cfg.Mode)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- Database ---
	dbConfig, err := database.NewDatabaseConfig(&cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		os.Exit(1)
	}
	if err := database.RunMigrations(dbConfig.ConnectionURL, logger); err != nil {
		logger.Error("Failed to run database migrations", slog.Any("error", err))
		os.Exit(1)
	}
	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()
	if !database.WaitForDB(ctx, pool, logger) {
		logger.Error("Database not ready after waiting, exiting.")
		os.Exit(1)
	}

	// --- Observability ---
	tracer.InitTracingAndMetrics(serviceName, cfg.Server.MetricsPort, logger)
	metrics.InitAppMetrics()

	// --- Object storage ---
	photoStore, err := storage.NewS3PhotoStore(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Error("Failed to initialize photo storage", slog.Any("error", err))
		os.Exit(1)
	}

	// --- Dependency wiring ---
	sessionBus := authstate.NewBus()

	authRepo := auth.NewPostgresAuthRepo(pool, logger)
	authService := auth.NewAuthService(authRepo, &cfg, logger, sessionBus)
	authHandler := auth.NewAuthHandler(authService, logger)

	sessionStore := authstate.NewStore(sessionBus, nil, authService, logger)
	if err := sessionStore.Initialize(ctx); err != nil {
		logger.Warn("Auth state store initialization failed", slog.Any("error", err))
	}
	defer sessionStore.Close()
	unsubscribe := sessionStore.OnChange(func(user *types.AuthUser) {
		if user != nil {
			logger.Debug("Session state changed", slog.String("userID", user.ID))
		} else {
			logger.Debug("Session state cleared")
		}
	})
	defer unsubscribe()

	profileRepo := profile.NewPostgresProfileRepo(pool, logger)
	profileService := profile.NewProfileService(profileRepo, photoStore, logger)
	profileHandler := profile.NewProfileHandler(profileService, logger)

	adminRepo := admin.NewPostgresAdminRepo(pool, logger)
	adminService := admin.NewAdminService(adminRepo, profileService, logger)
	adminHandler := admin.NewAdminHandler(adminService, logger)

	memberRepo := member.NewPostgresMemberRepo(pool, logger)
	memberService := member.NewMemberService(memberRepo, profileService, logger)
	memberHandler := member.NewMemberHandler(memberService, logger)

	notifyRepo := notify.NewPostgresNotifyRepo(pool, logger)
	emailSender := notify.NewResendSender(cfg.Notifications)
	notifyService := notify.NewNotifyService(notifyRepo, emailSender, cfg.Notifications, logger)
	notifyHandler := notify.NewNotifyHandler(notifyService, cfg.Notifications.CronSecret, logger)
	notifyWorker := notify.NewWorker(notifyService, cfg.Notifications.Interval, logger)
	go notifyWorker.Run(ctx)

	changeHub := feed.NewHub()
	feedListener := feed.NewListener(pool, changeHub, logger)
	go feedListener.Run(ctx)
	feedHandler := feed.NewFeedHandler(changeHub, logger)

	// --- Router ---
	apiRouter := router.SetupRouter(&router.Config{
		Logger:         logger,
		JWT:            cfg.JWT,
		RoleChecker:    authService,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Handlers: router.Handlers{
			Auth:    authHandler,
			Profile: profileHandler,
			Admin:   adminHandler,
			Member:  memberHandler,
			Notify:  notifyHandler,
			Feed:    feedHandler,
		},
	})

	mux := chi.NewMux()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(appLogger.StructuredLogger(logger))
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.StripSlashes)
	mux.Use(middleware.Timeout(60 * time.Second))
	mux.Use(middleware.Compress(5, "application/json"))
	mux.Mount("/", apiRouter)

	// --- HTTP Server ---
	serverAddress := fmt.Sprintf(":%s", cfg.Server.HTTPPort)
	server := &http.Server{
		Addr:              serverAddress,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      0, // SSE connections stay open
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("Server listening", slog.String("address", serverAddress), slog.String("mode", cfg.Mode))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", slog.Any("error", err))
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", slog.Any("error", err))
		return
	}
	logger.Info("Server stopped cleanly")
}

// setupLogger picks tint for development and JSON for everything else.
func setupLogger(mode string) *slog.Logger {
	if mode == "development" {
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
