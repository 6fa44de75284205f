package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-service/config"
	"storefront-service/internal/api"
	"storefront-service/internal/broker"
	"storefront-service/internal/notify"
	"storefront-service/internal/redisclient"
	"storefront-service/internal/service"
	"storefront-service/internal/session"
	"storefront-service/internal/store"
	"storefront-service/internal/util"
	"storefront-service/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Server.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting storefront service")

	tp, err := util.InitTracer("storefront-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	if tp != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				logger.Warn("Error shutting down tracer", zap.Error(err))
			}
		}()
	}

	ctx := context.Background()
	var checks []func(context.Context) error

	var repo store.Repository
	switch cfg.Database.Driver {
	case "memory":
		logger.Warn("Using in-memory store; data is lost on restart")
		repo = store.NewMemory()
	default:
		db, err := store.NewStore(cfg.Database.URL)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		logger.Info("Database connected")

		if cfg.Database.AutoMigrate {
			if err := db.Migrate(); err != nil {
				logger.Fatal("Failed to apply migrations", zap.Error(err))
			}
		}
		repo = db
		checks = append(checks, db.Ping)
	}

	favoritesBackend, tokensBackend := session.Backend(session.NewFileBackend(cfg.Session.FavoritesFile)),
		session.Backend(session.NewFileBackend(cfg.Session.ResetTokensFile))
	if cfg.Session.Backend == "redis" {
		redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		logger.Info("Redis connected")

		favoritesBackend = redisClient.Document(cfg.Redis.KeyPrefix + "favorites")
		tokensBackend = redisClient.Document(cfg.Redis.KeyPrefix + "reset_tokens")
		checks = append(checks, redisClient.Ping)
	}

	favorites := session.NewFavoriteStore(favoritesBackend)
	if err := favorites.Load(ctx); err != nil {
		logger.Warn("Favorites not loaded, starting empty", zap.Error(err))
	}
	tokens := session.NewResetTokenStore(tokensBackend, cfg.Session.ResetTTL)
	if err := tokens.Load(ctx); err != nil {
		logger.Warn("Reset tokens not loaded, starting empty", zap.Error(err))
	}
	if evicted, err := tokens.Sweep(ctx); err != nil {
		logger.Warn("Failed to persist reset token sweep", zap.Error(err))
	} else if evicted > 0 {
		logger.Info("Expired reset tokens evicted", zap.Int("count", evicted))
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var notifier notify.Notifier = notify.Noop{}
	var notificationWorker *worker.NotificationWorker
	switch cfg.Notify.Mode {
	case "webhook":
		notifier = notify.NewWebhookNotifier(cfg.Notify.WebhookURL, cfg.Notify.Timeout)
		logger.Info("Notifications go to webhook", zap.String("url", cfg.Notify.WebhookURL))
	case "kafka":
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicNotifications, cfg.Kafka.WriteTimeout)
		defer producer.Close()
		notifier = broker.NewEventPublisher(producer)
		logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.TopicNotifications))

		if cfg.Notify.WebhookURL != "" {
			consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicNotifications, cfg.Kafka.ConsumerGroup)
			relay := notify.NewWebhookNotifier(cfg.Notify.WebhookURL, cfg.Notify.Timeout)
			notificationWorker = worker.NewNotificationWorker(consumer, relay, cfg.Notify.Timeout)
			go func() {
				if err := notificationWorker.Start(workerCtx); err != nil {
					logger.Error("Notification worker error", zap.Error(err))
				}
			}()
		} else {
			logger.Warn("Kafka notifications enabled without a webhook; nothing consumes the topic here")
		}
	default:
		logger.Info("Notifications disabled")
	}
	dispatcher := notify.NewDispatcher(notifier, cfg.Notify.Timeout)

	catalogService := service.NewCatalogService(repo, cfg.Catalog.FallbackCategory, cfg.Assets.Placeholder)
	orderService := service.NewOrderService(repo, catalogService, dispatcher)
	accountService := service.NewAccountService(repo, tokens, dispatcher,
		service.AdminCredentials{Email: cfg.Admin.Email, Password: cfg.Admin.Password},
		cfg.Notify.FrontendURL)
	sessionService := service.NewSessionService(session.NewCartStore(), favorites, cfg.Assets.Placeholder)
	assetUploader := service.NewAssetUploader(service.AssetConfig{
		CloudName:    cfg.Assets.CloudName,
		APIKey:       cfg.Assets.APIKey,
		APISecret:    cfg.Assets.APISecret,
		UploadPreset: cfg.Assets.UploadPreset,
		Folder:       cfg.Assets.Folder,
		BaseURL:      cfg.Assets.BaseURL,
		Placeholder:  cfg.Assets.Placeholder,
		Timeout:      cfg.Assets.Timeout,
	})

	if cfg.Admin.Token == "" {
		logger.Warn("ADMIN_TOKEN is not set; admin endpoints are disabled")
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(api.Services{
		Catalog:  catalogService,
		Orders:   orderService,
		Accounts: accountService,
		Sessions: sessionService,
		Assets:   assetUploader,
	}, api.Options{
		AdminToken:     cfg.Admin.Token,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Ready: func(ctx context.Context) error {
			for _, check := range checks {
				if err := check(ctx); err != nil {
					return err
				}
			}
			return nil
		},
	})
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Server forced to shutdown", zap.Error(err))
	}

	dispatcher.Wait()
	workerCancel()
	if notificationWorker != nil {
		if err := notificationWorker.Stop(); err != nil {
			logger.Warn("Error stopping notification worker", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}
