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
	dedupdomain "github.com/fundraisehq/donorcrm/internal/dedup/domain"
	deduphttp "github.com/fundraisehq/donorcrm/internal/dedup/interfaces/http"
	deduppg "github.com/fundraisehq/donorcrm/internal/dedup/infrastructure/persistence/postgres"
	donationpg "github.com/fundraisehq/donorcrm/internal/donation/infrastructure/persistence/postgres"
	notificationapp "github.com/fundraisehq/donorcrm/internal/notification/application"
	notificationdomain "github.com/fundraisehq/donorcrm/internal/notification/domain"
	"github.com/fundraisehq/donorcrm/internal/notification/infrastructure/sender/mock"
	notificationpg "github.com/fundraisehq/donorcrm/internal/notification/infrastructure/persistence/postgres"
	"github.com/fundraisehq/donorcrm/internal/notification/interfaces/consumer"
	"github.com/fundraisehq/donorcrm/pkg/config"
	"github.com/fundraisehq/donorcrm/pkg/db"
	"github.com/fundraisehq/donorcrm/pkg/logger"
	"github.com/fundraisehq/donorcrm/pkg/metrics"
	"github.com/fundraisehq/donorcrm/pkg/middleware"
	"github.com/fundraisehq/donorcrm/pkg/mq"
)

func main() {
	configPath := flag.String("config", "configs/dedup.toml", "path to config file")
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
	m := metrics.New("dedup")
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
		&dedupdomain.DuplicateMatch{},
		&dedupdomain.MergeHistory{},
		&notificationdomain.Notification{},
	); err != nil {
		logger.Fatal(ctx, "failed to migrate database", "error", err)
	}

	// 6. 依赖注入
	contactRepo := contactpg.NewContactRepository(database.DB)
	donationRepo := donationpg.NewDonationRepository(database.DB)
	matchRepo := deduppg.NewDuplicateMatchRepository(database.DB)
	historyRepo := deduppg.NewMergeHistoryRepository(database.DB)

	scan := dedupapp.NewScanService(contactRepo, matchRepo, cfg.Dedup.ScanThreshold, cfg.Dedup.ScanPageSize, m)
	resolution := dedupapp.NewResolutionService(matchRepo, historyRepo, contactRepo, donationRepo, m)
	handler := deduphttp.NewHandler(scan, resolution, matchRepo)
	contactHandler := contacthttp.NewHandler(contactapp.NewContactQueryService(contactRepo))

	// 7. 通知消费者：接入服务发布的捐赠事件在这里落为提醒
	notifications := notificationapp.NewNotificationService(
		notificationpg.NewNotificationRepository(database.DB),
		mock.NewMockSender(),
	)

	stopCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(cfg.Kafka.Brokers) > 0 {
		kafkaConsumer, err := mq.NewConsumer(mq.KafkaConfig{
			Brokers:        cfg.Kafka.Brokers,
			GroupID:        cfg.Kafka.GroupID,
			SessionTimeout: cfg.Kafka.SessionTimeout,
		}, cfg.Kafka.DonationTopic)
		if err != nil {
			logger.Fatal(ctx, "failed to create kafka consumer", "error", err)
		}
		defer kafkaConsumer.Close()

		producer, err := mq.NewProducer(mq.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			MaxRetries:   cfg.Kafka.MaxRetries,
			RetryBackoff: cfg.Kafka.RetryBackoff,
		})
		if err != nil {
			logger.Fatal(ctx, "failed to create kafka producer", "error", err)
		}
		defer producer.Close()
		dlq := mq.NewDeadLetterQueue(producer, cfg.Kafka.DeadLetterTopic)

		donationConsumer := consumer.NewDonationConsumer(kafkaConsumer, notifications, dlq)
		go func() {
			if err := donationConsumer.Run(stopCtx); err != nil {
				logger.Error(ctx, "donation consumer exited", "error", err)
			}
		}()
	}

	// 8. HTTP 服务
	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(
		middleware.GinRecoveryMiddleware(),
		middleware.GinLoggingMiddleware(),
		middleware.GinCORSMiddleware(),
	)

	v1 := engine.Group("/v1")
	handler.RegisterRoutes(v1)
	contactHandler.RegisterRoutes(v1)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info(ctx, "dedup service listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(ctx, "http server failed", "error", err)
		}
	}()

	// 9. 优雅关停
	<-stopCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "http server shutdown failed", "error", err)
	}
	logger.Info(context.Background(), "dedup service stopped")
}
