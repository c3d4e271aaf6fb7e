// @title           Freelance Marketplace API
// @version         1.0.0
// @description     Backend API for a freelance marketplace. Clients post projects, freelancers browse the feed and apply with attachments, and both sides receive notifications as applications move through review.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

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

	"freelance-marketplace-backend/internal/config"
	"freelance-marketplace-backend/internal/database"
	"freelance-marketplace-backend/internal/handlers"
	"freelance-marketplace-backend/internal/jobs"
	"freelance-marketplace-backend/internal/logging"
	"freelance-marketplace-backend/internal/middleware"
	"freelance-marketplace-backend/internal/realtime"
	"freelance-marketplace-backend/internal/services"
	"freelance-marketplace-backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logging.Init(cfg.Environment, cfg.LogLevel)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	db, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.NewMigrator(db.DB()).Run(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	log.Info().Msg("migrations completed successfully")

	backend, err := newStorageBackend(cfg)
	if err != nil {
		return err
	}
	files := storage.New(backend)

	var publisher realtime.Publisher = realtime.Noop{}
	if cfg.RedisURL != "" {
		rdb, err := realtime.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			// Notifications still land in the database; only live push is lost.
			log.Warn().Err(err).Msg("redis unavailable, realtime push disabled")
		} else {
			defer rdb.Close()
			publisher = rdb
		}
	}

	projectService := services.NewProjectService(db, files)
	applicationService := services.NewApplicationService(db, files)
	notificationService := services.NewNotificationService(db)
	activityService := services.NewActivityService(db)
	dispatcher := services.NewDispatcher(db, publisher, services.DispatcherConfig{
		BatchSize:   cfg.OutboxBatchSize,
		MaxAttempts: cfg.OutboxMaxAttempts,
	})

	scheduler, err := jobs.NewScheduler()
	if err != nil {
		return err
	}
	if err := scheduler.RegisterOutbox(dispatcher, cfg.OutboxInterval); err != nil {
		return err
	}
	scheduler.Start()

	router := handlers.NewRouter(cfg, handlers.Handlers{
		Health:        handlers.NewHealthHandler(db),
		Projects:      handlers.NewProjectsHandler(projectService),
		Applications:  handlers.NewApplicationsHandler(applicationService),
		Notifications: handlers.NewNotificationsHandler(notificationService, activityService),
		Memberships:   handlers.NewMembershipsHandler(applicationService),
	}, middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst))

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           corsHandler(router),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("storage", cfg.StorageBackend).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		_ = scheduler.Shutdown()
		return fmt.Errorf("failed to start server: %w", err)
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := scheduler.Shutdown(); err != nil {
		log.Error().Err(err).Msg("scheduler shutdown")
	}
	return nil
}

func newStorageBackend(cfg *config.Config) (storage.Backend, error) {
	switch cfg.StorageBackend {
	case config.StorageSupabase:
		return storage.NewSupabase(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseStorageBucket), nil
	default:
		local, err := storage.NewLocal(cfg.UploadDir)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare upload directory: %w", err)
		}
		return local, nil
	}
}
