package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Freeeeeet/coach_backend/internal/app"
	"github.com/Freeeeeet/coach_backend/internal/config"
	"github.com/Freeeeeet/coach_backend/internal/controller"
	"github.com/Freeeeeet/coach_backend/internal/controller/api"
	"github.com/Freeeeeet/coach_backend/internal/events"
	"github.com/Freeeeeet/coach_backend/internal/notifier"
	"github.com/Freeeeeet/coach_backend/internal/repository"
	"github.com/Freeeeeet/coach_backend/internal/service"
	"github.com/Freeeeeet/coach_backend/internal/storage"
	"github.com/Freeeeeet/coach_backend/internal/upload"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

// serviceNotifier уведомления, которые можно дождаться при остановке
type serviceNotifier interface {
	service.Notifier
	Wait()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	logger.Sugar().Infow("Starting coach backend",
		"environment", cfg.Environment,
		"http_addr", cfg.HTTPAddr,
		"upload_store", cfg.UploadStore)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Server stopped with error", zap.Error(err))
	}
	logger.Info("👋 Server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("create pool: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	logger.Info("✅ Connected to database")

	migrator, err := app.NewMigrator(pool, cfg.MigrationsPath, logger)
	if err != nil {
		return err
	}
	if err := migrator.Run(ctx); err != nil {
		return err
	}
	if err := migrator.Close(); err != nil {
		logger.Warn("Failed to close migrator", zap.Error(err))
	}

	// Репозитории
	bookingRepo := repository.NewBookingRepository(pool)
	scheduleRepo := repository.NewScheduleRepository(pool, logger)
	purchaseRepo := repository.NewPurchaseRepository(pool)
	accessRepo := repository.NewAccessRepository(pool)
	courseRepo := repository.NewCourseRepository(pool)
	videoRepo := repository.NewVideoRepository(pool)

	chunkStore, closeStore, err := newChunkStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	blobStorage, err := storage.NewMinioStorage(storage.Config{
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
		UseSSL:    cfg.S3UseSSL,
		PublicURL: cfg.S3PublicURL,
	}, logger)
	if err != nil {
		return err
	}
	if err := blobStorage.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}

	var publisher service.EventPublisher = events.NewNopPublisher(logger)
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			return err
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
	}

	// Сервисы
	var notify serviceNotifier = notifier.NopNotifier{}
	var tgBot *bot.Bot
	if cfg.TelegramToken != "" {
		tgBot, err = bot.New(cfg.TelegramToken)
		if err != nil {
			return fmt.Errorf("create telegram bot: %w", err)
		}
		notify = notifier.NewTelegramNotifier(tgBot, cfg.TelegramAdminChatID, logger)
	}
	defer notify.Wait()

	slotService := service.NewSlotService(scheduleRepo, bookingRepo, cfg.Location(), logger)
	bookingService := service.NewBookingService(bookingRepo, slotService, notify, logger)
	paymentService := service.NewPaymentService(
		cfg.CloudPaymentsAPISecret,
		purchaseRepo,
		courseRepo,
		bookingRepo,
		accessRepo,
		notify,
		publisher,
		logger,
	)
	uploadService := service.NewUploadService(chunkStore, blobStorage, videoRepo, logger)

	if tgBot != nil {
		botController := controller.NewBotController(tgBot, bookingRepo, slotService, cfg.TelegramAdminChatID, cfg.Location(), logger)
		if err := botController.RegisterHandlers(ctx); err != nil {
			logger.Warn("Admin bot commands are not set", zap.Error(err))
		}
		go botController.Start(ctx)
	}

	scheduler := app.NewScheduler(uploadService, cfg.UploadSweepInterval, logger)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	handler := api.NewHandler(slotService, bookingService, paymentService, uploadService, pool, logger)
	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: api.NewRouter(handler, api.RouterConfig{
			AllowedOrigins:     cfg.AllowedOrigins(),
			RateLimitPerMinute: cfg.RateLimitPerMinute,
			AdminAPIKey:        cfg.AdminAPIKey,
		}, logger),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("🚀 HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// newChunkStore выбирает буфер загрузок по UPLOAD_STORE
func newChunkStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (upload.ChunkStore, func(), error) {
	if cfg.UploadStore != config.UploadStoreRedis {
		store := upload.NewMemoryStore(logger,
			upload.WithMaxMemory(cfg.UploadMaxMemoryBytes()),
			upload.WithTTL(cfg.UploadTTL),
		)
		return store, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	logger.Info("✅ Connected to redis", zap.String("addr", cfg.RedisAddr))

	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close redis client", zap.Error(err))
		}
	}
	return upload.NewRedisStore(client, cfg.UploadTTL, logger), closeFn, nil
}
