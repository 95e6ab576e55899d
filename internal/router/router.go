package router

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/anonto42/nano-midea/functions/internal/expiry"
	"github.com/anonto42/nano-midea/functions/internal/handlers"
	"github.com/anonto42/nano-midea/functions/internal/media"
	"github.com/anonto42/nano-midea/functions/internal/middleware"
	"github.com/anonto42/nano-midea/functions/internal/models"
	"github.com/anonto42/nano-midea/functions/internal/notification"
	"github.com/anonto42/nano-midea/functions/internal/repositories"
	"github.com/anonto42/nano-midea/functions/internal/triggers"
	"github.com/anonto42/nano-midea/functions/pkg/config"
	"github.com/anonto42/nano-midea/functions/pkg/firebase"
)

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo, logger *slog.Logger) {
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
	e.Use(eMiddleware.RequestLoggerWithConfig(eMiddleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v eMiddleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Error != nil || v.Status >= 500 {
				level = slog.LevelError
			}
			logger.LogAttrs(context.Background(), level, "request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			)
			return nil
		},
	}))
	log.Println("Global middleware configured.")
}

// SetupRoutes builds the services, binds them to the trigger table and
// registers the trigger, callable and health routes. The returned registry
// drives the scheduler.
func SetupRoutes(e *echo.Echo, cfg *config.Config, db *config.DB, fb *firebase.App, logger *slog.Logger) (*triggers.Registry, error) {
	// --- Initialize Repositories ---
	userRepo := repositories.NewFirestoreUserRepository(fb.Firestore)
	chatRepo := repositories.NewFirestoreChatRepository(fb.Firestore)
	storyRepo := repositories.NewStoryRepository(fb.Firestore)
	postRepo := repositories.NewFirestorePostRepository(fb.Firestore)
	followRepo := repositories.NewFirestoreFollowRepository(fb.Firestore)
	notificationRepo := repositories.NewFirestoreNotificationRepository(fb.Firestore)

	bucketName := cfg.StorageBucket
	if bucketName == "" {
		bucketName = fb.StorageBucketID
	}
	mediaStorage := repositories.NewGCSMediaStorage(fb.Bucket, bucketName)

	var recorder notification.DeliveryRecorder
	if db.Postgres != nil {
		if err := db.Postgres.AutoMigrate(&models.DeliveryReceipt{}); err != nil {
			return nil, fmt.Errorf("auto migrate delivery receipts: %w", err)
		}
		log.Println("PostgreSQL auto-migrations completed for delivery receipts.")
		recorder = repositories.NewPostgresDeliveryRepository(db.Postgres)
	}

	var assetRepo repositories.MediaAssetRepository
	if db.Mongo != nil {
		assetRepo = repositories.NewMongoMediaAssetRepository(db.Mongo.Database(cfg.MongoDatabase))
	}

	codec, err := newCodec(cfg)
	if err != nil {
		return nil, err
	}

	if !notification.SupportedLocale(cfg.NotificationLocale) {
		log.Printf("NOTIFICATION_LOCALE %q is not one of %v, using en.", cfg.NotificationLocale, notification.Locales())
	}

	// --- Services ---
	tokens := notification.NewTokenDirectory(userRepo, cfg.TokenMaxAgeDays, logger)
	eventRouter := notification.NewEventRouter(userRepo, chatRepo, storyRepo, postRepo, followRepo, logger)
	dispatcher := notification.NewDispatcher(
		tokens,
		notification.NewRenderer(cfg.NotificationLocale),
		notification.NewFCMTransport(fb.Messaging),
		recorder,
		cfg.FanoutConcurrency,
		logger,
	)
	pipeline := media.NewPipeline(mediaStorage, codec, userRepo, storyRepo, chatRepo, assetRepo, logger)
	reaper := expiry.NewReaper(storyRepo, mediaStorage, cfg.StoryTTL, logger)
	accounts := handlers.NewAccountInitializer(userRepo, notificationRepo, logger)

	functions := handlers.NewFunctions(eventRouter, dispatcher, tokens, pipeline, reaper, accounts, cfg.TokenMaxAgeDays, logger)
	registry, err := triggers.LoadDefault(functions.Handlers(), logger)
	if err != nil {
		return nil, fmt.Errorf("load trigger table: %w", err)
	}
	log.Printf("Trigger table loaded with %d triggers.", len(registry.Descriptors()))

	health := handlers.NewHealthHandler(registry, recorder != nil, assetRepo != nil)
	e.GET("/health", health.HealthCheck)

	// Trigger ingress
	triggerHandler := handlers.NewTriggerHandler(registry, cfg.TriggerTimeout)
	triggerHandler.RegisterTriggerRoutes(e.Group("/triggers"))
	log.Println("Trigger routes configured.")

	// Callable functions
	callable := e.Group("/callable")
	callable.Use(middleware.FirebaseAuthMiddleware(fb.AuthClient, cfg.CallableRequireAuth))
	handlers.NewCallableHandler(userRepo, logger).RegisterCallableRoutes(callable)
	log.Println("Callable routes configured.")

	log.Println("All routes configured.")
	return registry, nil
}

func newCodec(cfg *config.Config) (media.Codec, error) {
	switch strings.ToLower(cfg.ImageCodec) {
	case "imagemagick", "":
		return media.NewExecCodec(cfg.ImageMagickBin), nil
	case "native":
		return media.NewNativeCodec(), nil
	}
	return nil, fmt.Errorf("unknown IMAGE_CODEC %q", cfg.ImageCodec)
}
