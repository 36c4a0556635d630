package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/maneesh/chatrecords/internal/config"
	"github.com/maneesh/chatrecords/internal/events"
	"github.com/maneesh/chatrecords/internal/handlers"
	"github.com/maneesh/chatrecords/internal/logging"
	"github.com/maneesh/chatrecords/internal/messages"
	"github.com/maneesh/chatrecords/internal/server"
	"github.com/maneesh/chatrecords/internal/storage"
	"github.com/maneesh/chatrecords/internal/tracing"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load(config.MessageService)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load config")
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("Message service stopped with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *logrus.Logger) error {
	logger.WithFields(logrus.Fields{
		"service": cfg.ServiceName,
		"port":    cfg.ServicePort,
		"backend": cfg.StoreBackend,
	}).Info("Starting message service...")

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
		repo storage.MessageRepository
		db   storage.Pinger
	)
	switch cfg.StoreBackend {
	case config.BackendMemory:
		mem := storage.NewMemoryMessageRepository()
		repo, db = mem, mem
		logger.Warn("Using in-memory message store; records are lost on restart")
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
		if err := store.EnsureMessageIndexes(ctx); err != nil {
			return err
		}
		repo, db = store.Messages(), store
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

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.NATSURL != "" {
		natsPublisher, err := events.ConnectNATS(cfg.NATSURL, cfg.ServiceName, logger)
		if err != nil {
			return err
		}
		defer natsPublisher.Close()
		publisher = natsPublisher
	}

	svc := messages.NewService(repo, cache, publisher, logger)

	router, api := server.NewRouter(cfg.ServiceName, logger, db)
	handlers.NewMessageHandler(svc).Register(api)

	return server.Run(ctx, server.NewHTTPServer(cfg.GetAddr(), router), logger)
}
