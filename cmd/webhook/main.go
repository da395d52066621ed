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

	"github.com/gin-gonic/gin"

	contactapp "github.com/fundraisehq/donorcrm/internal/contact/application"
	contactdomain "github.com/fundraisehq/donorcrm/internal/contact/domain"
	contacthttp "github.com/fundraisehq/donorcrm/internal/contact/interfaces/http"
	contactpg "github.com/fundraisehq/donorcrm/internal/contact/infrastructure/persistence/postgres"
	dedupapp "github.com/fundraisehq/donorcrm/internal/dedup/application"
	donationapp "github.com/fundraisehq/donorcrm/internal/donation/application"
	donationdomain "github.com/fundraisehq/donorcrm/internal/donation/domain"
	"github.com/fundraisehq/donorcrm/internal/donation/infrastructure/messaging"
	donationpg "github.com/fundraisehq/donorcrm/internal/donation/infrastructure/persistence/postgres"
	donationredis "github.com/fundraisehq/donorcrm/internal/donation/infrastructure/persistence/redis"
	webhookhttp "github.com/fundraisehq/donorcrm/internal/donation/interfaces/http"
	"github.com/fundraisehq/donorcrm/pkg/cache"
	"github.com/fundraisehq/donorcrm/pkg/config"
	"github.com/fundraisehq/donorcrm/pkg/db"
	"github.com/fundraisehq/donorcrm/pkg/logger"
	"github.com/fundraisehq/donorcrm/pkg/metrics"
	"github.com/fundraisehq/donorcrm/pkg/middleware"
	"github.com/fundraisehq/donorcrm/pkg/mq"
	"github.com/fundraisehq/donorcrm/pkg/ratelimit"
)

func main() {
	configPath := flag.String("config", "configs/webhook.toml", "path to config file")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}); err != nil {
		fmt.Printf("failed to init logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// 3. 初始化指标
	m := metrics.New("webhook")
	if cfg.Metrics.Enabled {
		if err := m.Register(); err != nil {
			logger.Fatal(ctx, "failed to register metrics", "error", err)
		}
		_ = metrics.StartHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path)
	}

	// 4. 初始化数据库
	database, err := db.Init(db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to connect to database", "error", err)
	}
	defer database.Close()

	// 5. 自动迁移
	if err := database.AutoMigrate(
		&contactdomain.Contact{},
		&contactdomain.Email{},
		&contactdomain.Phone{},
		&contactdomain.Location{},
		&contactdomain.EmployerData{},
		&contactdomain.TenantContact{},
		&donationdomain.Donation{},
		&donationdomain.DonationCustomField{},
		&donationdomain.DonationMerchandise{},
		&donationdomain.WebhookCredential{},
	); err != nil {
		logger.Fatal(ctx, "failed to migrate database", "error", err)
	}

	// 6. 初始化 Redis
	redisCache, err := cache.New(cache.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		MaxPoolSize:  cfg.Redis.MaxPoolSize,
		ConnTimeout:  cfg.Redis.ConnTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to connect to redis", "error", err)
	}
	defer redisCache.Close()

	// 7. 初始化 Kafka 生产者
	producer, err := mq.NewProducer(mq.KafkaConfig{
		Brokers:      cfg.Kafka.Brokers,
		MaxRetries:   cfg.Kafka.MaxRetries,
		RetryBackoff: cfg.Kafka.RetryBackoff,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to create kafka producer", "error", err)
	}
	defer producer.Close()
	publisher := messaging.NewKafkaEventPublisher(producer, cfg.Kafka.DonationTopic)

	// 8. 依赖注入
	contactRepo := contactpg.NewContactRepository(database.DB)
	donationRepo := donationpg.NewDonationRepository(database.DB)
	credentialRepo := donationpg.NewCredentialRepository(database.DB)
	credentialCache := donationredis.NewCredentialCache(
		redisCache.GetClient(),
		time.Duration(cfg.Webhook.CredentialCacheTTL)*time.Second,
	)

	matcher := dedupapp.NewInlineMatchService(contactRepo, cfg.Dedup.InlineThreshold, cfg.Dedup.ScanPageSize)
	contactCommands := contactapp.NewContactCommandService(contactRepo, matcher, publisher, m)

	credentials := donationapp.NewCredentialService(credentialRepo, credentialCache, cfg.Webhook.AllowUnauthenticated, cfg.Environment)
	ingest := donationapp.NewIngestService(donationapp.NewNormalizer(), contactCommands, donationRepo, publisher, m)
	handler := webhookhttp.NewWebhookHandler(credentials, ingest, cfg.Webhook.TenantHeader, m)
	contactHandler := contacthttp.NewHandler(contactapp.NewContactQueryService(contactRepo))

	// 9. HTTP 服务
	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(
		middleware.GinRecoveryMiddleware(),
		middleware.GinLoggingMiddleware(),
		middleware.GinCORSMiddleware(),
	)
	if cfg.Webhook.RateLimit > 0 {
		limiter := ratelimit.NewRedisRateLimiter(redisCache.GetClient())
		engine.Use(middleware.RateLimitMiddleware(limiter, cfg.Webhook.TenantHeader, cfg.Webhook.RateLimit))
	}
	engine.HandleMethodNotAllowed = true
	engine.NoMethod(handler.MethodNotAllowed)
	engine.NoRoute(handler.NotFound)

	handler.RegisterRoutes(engine)
	contactHandler.RegisterRoutes(engine.Group("/v1"))

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info(ctx, "webhook service listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(ctx, "http server failed", "error", err)
		}
	}()

	// 10. 优雅关停
	stopCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-stopCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "http server shutdown failed", "error", err)
	}
	logger.Info(context.Background(), "webhook service stopped")
}
