package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/maneesh/chatrecords/internal/config"
	"github.com/maneesh/chatrecords/internal/events"
	"github.com/maneesh/chatrecords/internal/files"
	"github.com/maneesh/chatrecords/internal/handlers"
	"github.com/maneesh/chatrecords/internal/logging"
	"github.com/maneesh/chatrecords/internal/server"
	"github.com/maneesh/chatrecords/internal/storage"
	"github.com/maneesh/chatrecords/internal/tracing"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load(config.FileService)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load config")
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("File service stopped with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *logrus.Logger) error {
	logger.WithFields(logrus.Fields{
		"service": cfg.ServiceName,
		"port":    cfg.ServicePort,
		"backend": cfg.StoreBackend,
	}).Info("Starting file service...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracing.Init(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(ctx); err != nil {
			logger.WithError(err).Warn("Error shutting down tracer")
		}
	}()

	var (
		repo storage.FileRepository
		db   storage.Pinger
	)
	switch cfg.StoreBackend {
	case config.BackendMemory:
		mem := storage.NewMemoryFileRepository()
		repo, db = mem, mem
		logger.Warn("Using in-memory file store; records are lost on restart")
	default:
		logger.Info("Connecting to MongoDB...")
		store, err := storage.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoTimeout)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(context.Background()); err != nil {
				logger.WithError(err).Warn("Error disconnecting MongoDB")
			}
		}()
		if err := store.EnsureFileIndexes(ctx); err != nil {
			return err
		}
		repo, db = store.Files(), store
		logger.WithField("database", cfg.MongoDatabase).Info("MongoDB connected")
	}

	var cache storage.RecordCache = storage.NopCache{}
	if cfg.RedisURL != "" {
		logger.Info("Connecting to Redis...")
		redisCache, err := storage.NewRedisCache(ctx, cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			return err
		}
		defer redisCache.Close()
		cache = redisCache
		logger.Info("Redis record cache enabled")
	}

	var urls storage.DownloadURLBuilder = storage.BucketURLBuilder{Bucket: cfg.S3Bucket}
	if cfg.MinIOEndpoint != "" {
		logger.Info("Connecting to MinIO...")
		presigner, err := storage.NewMinioPresigner(ctx, storage.MinioOptions{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.S3Bucket,
			Region:    cfg.MinIORegion,
			UseSSL:    cfg.MinIOUseSSL,
			Expiry:    cfg.DownloadURLTTL,
		}, logger)
		if err != nil {
			return err
		}
		urls = presigner
		logger.Info("Download URLs are presigned through MinIO")
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.NATSURL != "" {
		natsPublisher, err := events.ConnectNATS(cfg.NATSURL, cfg.ServiceName, logger)
		if err != nil {
			return err
		}
		defer natsPublisher.Close()
		publisher = natsPublisher
	}

	svc := files.NewService(repo, cache, urls, publisher, logger)

	router, api := server.NewRouter(cfg.ServiceName, logger, db)
	handlers.NewFileHandler(svc).Register(api)

	return server.Run(ctx, server.NewHTTPServer(cfg.GetAddr(), router), logger)
}
