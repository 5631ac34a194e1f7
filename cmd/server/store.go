package main

import (
	"fmt"
	"log/slog"

	"github.com/AnshRaj112/mooddrop-backend/internal/config"
	"github.com/AnshRaj112/mooddrop-backend/internal/database"
	"github.com/AnshRaj112/mooddrop-backend/internal/kvstore"
	"github.com/redis/go-redis/v9"
)

// backend is the store selected by STORE_DRIVER plus its teardown.
type backend struct {
	store kvstore.Store
	redis *redis.Client // set when Redis is connected, for the relay and rate limit
	close func()
}

func openStore(cfg *config.Config, logger *slog.Logger) (*backend, error) {
	switch cfg.StoreDriver {
	case config.DriverRedis:
		logger.Info("Connecting to Redis...")
		if err := database.ConnectRedis(cfg.RedisURI); err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return &backend{
			store: kvstore.NewRedisStore(database.RedisClient),
			redis: database.RedisClient,
			close: func() { database.DisconnectRedis() },
		}, nil

	case config.DriverMongo:
		if err := database.Connect(cfg.MongoURI); err != nil {
			return nil, fmt.Errorf("connect mongodb: %w", err)
		}
		return &backend{store: kvstore.NewMongoStore(database.DB), close: func() { database.Disconnect() }}, nil

	case config.DriverPostgres:
		logger.Info("Connecting to PostgreSQL...")
		if err := database.ConnectPostgres(cfg.PostgresURI); err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return &backend{store: kvstore.NewPostgresStore(database.PostgresDB), close: func() { database.DisconnectPostgres() }}, nil

	case config.DriverFile:
		fs, err := kvstore.NewFileStore(cfg.StoreFile)
		if err != nil {
			return nil, fmt.Errorf("open store file: %w", err)
		}
		logger.Info("✅ Using file store", "path", cfg.StoreFile)
		return &backend{store: fs, close: func() {}}, nil

	case config.DriverMemory:
		logger.Warn("⚠️  Using in-memory store: everything is lost on restart")
		return &backend{store: kvstore.NewMemoryStore(), close: func() {}}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
