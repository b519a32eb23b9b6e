package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"go.uber.org/zap"

	"github.com/Nexus6Mx/see/internal/bridge"
	"github.com/Nexus6Mx/see/internal/config"
	"github.com/Nexus6Mx/see/internal/dispatch"
	"github.com/Nexus6Mx/see/internal/domain"
	"github.com/Nexus6Mx/see/internal/gallery"
	"github.com/Nexus6Mx/see/internal/handler"
	"github.com/Nexus6Mx/see/internal/infra/postgresql"
	"github.com/Nexus6Mx/see/internal/infra/postgresql/migrations"
	infraredis "github.com/Nexus6Mx/see/internal/infra/redis"
	"github.com/Nexus6Mx/see/internal/observability"
	"github.com/Nexus6Mx/see/internal/repository"
	"github.com/Nexus6Mx/see/internal/sender"
	"github.com/Nexus6Mx/see/internal/service"
	"github.com/Nexus6Mx/see/internal/transport"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel, "api")
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	queueRepo := repository.NewGormQueueRepo(db)
	galleryRepo := repository.NewGormGalleryTokenRepo(db)

	bridgeClient, err := bridge.NewClient(bridge.Config{
		APIURL:        cfg.BridgeAPIURL,
		APIKey:        cfg.BridgeAPIKey,
		Timeout:       time.Duration(cfg.BridgeTimeoutSec) * time.Second,
		RetryAttempts: cfg.BridgeRetryAttempts,
		RetryDelay:    time.Duration(cfg.BridgeRetryDelaySec) * time.Second,
		TestData:      cfg.BridgeTestData,
		TestOrder:     cfg.BridgeTestOrder,
	}, logger)
	if err != nil {
		logger.Fatal("bridge client initialization failed", zap.Error(err))
	}

	clientCache, err := bridge.NewCache(rdb, cfg.BridgeCacheTTL())
	if err != nil {
		logger.Fatal("client cache initialization failed", zap.Error(err))
	}

	clients, err := bridge.NewLookup(bridgeClient, clientCache, logger)
	if err != nil {
		logger.Fatal("client lookup initialization failed", zap.Error(err))
	}

	galleryIssuer, err := gallery.NewIssuer(galleryRepo, cfg.BaseURL, cfg.GalleryTokenDays, logger)
	if err != nil {
		logger.Fatal("gallery issuer initialization failed", zap.Error(err))
	}

	dispatcher, err := buildDispatcher(cfg)
	if err != nil {
		logger.Fatal("dispatcher initialization failed", zap.Error(err))
	}

	notificationService, err := service.NewNotificationService(queueRepo, clients, galleryIssuer, dispatcher, service.NotificationServiceOptions{
		SendTimeout:          cfg.SendTimeout(),
		MaxAttempts:          cfg.MaxAttempts,
		StatsWindow:          cfg.StatsWindow(),
		FailedAlertThreshold: int64(cfg.FailedAlertThreshold),
	}, logger)
	if err != nil {
		logger.Fatal("notification service initialization failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	notificationService.SetMetrics(metrics)

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(handler.CorrelationIDMiddleware())
	app.Use(metrics.HTTPMiddleware())
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	if err := handler.RegisterNotificationRoutes(app, notificationService); err != nil {
		logger.Fatal("route registration failed", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	}()

	logger.Info("api started", zap.Int("port", cfg.APIPort))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.Fatal("server stopped unexpectedly", zap.Error(err))
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func buildDispatcher(cfg *config.Config) (*dispatch.Dispatcher, error) {
	telegram, err := sender.NewTelegramSender(cfg.TelegramAPIURL, cfg.TelegramBotToken)
	if err != nil {
		return nil, err
	}

	whatsapp, err := sender.NewWhatsAppSender(sender.WhatsAppConfig{
		Enabled:  cfg.WhatsAppEnabled,
		APIURL:   cfg.WhatsAppAPIURL,
		APIKey:   cfg.WhatsAppAPIKey,
		Instance: cfg.WhatsAppInstance,
	})
	if err != nil {
		return nil, err
	}

	email, err := sender.NewEmailSender(sender.EmailConfig{
		Enabled:     cfg.EmailEnabled,
		Host:        cfg.SMTPHost,
		Port:        cfg.SMTPPort,
		Username:    cfg.SMTPUser,
		Password:    cfg.SMTPPassword,
		FromAddress: cfg.EmailFrom,
		FromName:    cfg.EmailName,
	})
	if err != nil {
		return nil, err
	}

	return dispatch.NewDispatcher(map[domain.Channel]sender.Sender{
		domain.ChannelTelegram: telegram,
		domain.ChannelWhatsApp: whatsapp,
		domain.ChannelEmail:    email,
	})
}
