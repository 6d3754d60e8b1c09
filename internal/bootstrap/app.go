package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"docinsight/internal/ai"
	"docinsight/internal/cache"
	"docinsight/internal/config"
	"docinsight/internal/extract"
	"docinsight/internal/model"
	mysqlClient "docinsight/internal/platform/mysql"
	rabbitmqClient "docinsight/internal/platform/rabbitmq"
	redisClient "docinsight/internal/platform/redis"
	"docinsight/internal/repository"
	"docinsight/internal/session"
	"docinsight/internal/worker"
)

type App struct {
	Config *config.Config
	MySQL  *gorm.DB
	Redis  *redis.Client
	MQConn *amqp.Connection

	Sessions    *session.Store
	FileBackend *cache.FileBackend
	Failover    *cache.FailoverBackend
	Cache       *cache.ContentCache
	Pipeline    *extract.Pipeline
	LLM         *ai.OpenAICompatibleClient
	Publisher   *rabbitmqClient.AskRecordPublisher
	AskRepo     *repository.AskRecordRepository
	AskWorker   *worker.AskPersistWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(&model.AskRecord{}); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	fileBackend, err := cache.NewFileBackend(cfg.Cache.Dir)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:      cfg,
		MySQL:       mysqlDB,
		FileBackend: fileBackend,
		StartedAt:   time.Now(),
	}

	// The redis tier is optional. When selected it fronts the file tier
	// through the failover backend, so a down redis degrades instead of
	// blocking startup.
	var backend cache.Backend = fileBackend
	if cfg.Cache.Backend == "redis" {
		app.Redis = redisClient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		app.Failover = cache.NewFailoverBackend(
			cache.NewRedisBackend(app.Redis),
			fileBackend,
			time.Duration(cfg.Cache.ProbeIntervalSeconds)*time.Second,
		)
		backend = app.Failover
	}
	app.Cache = cache.NewContentCache(backend, cfg.Cache.L1Capacity, time.Duration(cfg.Cache.TTLHours)*time.Hour)

	app.Sessions = session.NewStore(
		time.Duration(cfg.Session.ExpireHours)*time.Hour,
		session.Limits{
			MaxFilesPerUpload: cfg.Session.MaxFilesPerUpload,
			MaxFileSizeBytes:  int64(cfg.Session.MaxFileSizeMB) * 1024 * 1024,
			MaxDocsPerSession: cfg.Session.MaxDocsPerSession,
		},
	)

	ocr := extract.NewRecognizer(cfg.Extract.OCRModelPath, cfg.Extract.OCRCharsetPath, cfg.Extract.ONNXSharedLibPath)
	app.Pipeline = extract.NewPipeline(ocr, extract.Options{
		Workers:      cfg.Extract.Workers,
		Timeout:      time.Duration(cfg.Extract.TimeoutSeconds) * time.Second,
		MinTextChars: cfg.Extract.MinTextChars,
	})

	app.LLM = ai.NewOpenAICompatibleClient(time.Duration(cfg.LLM.TimeoutSeconds) * time.Second)

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}
	app.MQConn = mqConn
	app.Publisher = rabbitmqClient.NewAskRecordPublisher(mqConn, cfg.RabbitMQ.AskPersistQueue)
	app.AskRepo = repository.NewAskRecordRepository(mysqlDB)
	app.AskWorker = worker.NewAskPersistWorker(mqConn, app.AskRepo, cfg.RabbitMQ.AskPersistQueue)
	if err := app.AskWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start ask worker failed: %w", err)
	}

	return app, nil
}

func (a *App) LLMChatConfig() ai.ChatConfig {
	return ai.ChatConfig{
		BaseURL:      a.Config.LLM.BaseURL,
		APIKey:       a.Config.LLM.APIKey,
		Model:        a.Config.LLM.Model,
		MaxTokens:    a.Config.LLM.MaxTokens,
		MaxRetries:   a.Config.LLM.MaxRetries,
		RetryBackoff: time.Duration(a.Config.LLM.RetryBackoffMS) * time.Millisecond,
	}
}

func (a *App) Close() error {
	var closeErr error
	if a.Pipeline != nil {
		a.Pipeline.Close()
	}
	if a.Failover != nil {
		a.Failover.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.AskWorker != nil {
		a.AskWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
