package database

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"gigcal/config"
	availabilityRepo "gigcal/database/repository/availability"
	"gigcal/utils"
)

// Backend is an opened availability store plus the health checks that watch
// its connections.
type Backend struct {
	Store   availabilityRepo.AvailabilityStore
	Checks  map[string]utils.Pinger
	closers []func()
}

// Close releases every connection the backend opened, in reverse order.
func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// OpenBackend builds the store selected by STORE_BACKEND. When the expiry
// queue is enabled it also verifies the queue's Redis database.
func OpenBackend(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Backend, error) {
	b := &Backend{Checks: map[string]utils.Pinger{}}

	if cfg.ExpiryQueueEnabled {
		client, err := utils.NewRedisClient(ctx, cfg, cfg.RedisQueueDB)
		if err != nil {
			return nil, fmt.Errorf("expiry queue: %w", err)
		}
		b.Checks["redis_queue"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		b.closers = append(b.closers, func() { client.Close() })
	}

	switch cfg.StoreBackend {
	case "redis":
		client, err := utils.NewRedisClient(ctx, cfg, cfg.RedisStoreDB)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.Store = availabilityRepo.NewRedisAvailabilityRepo(client)
		b.Checks["redis"] = b.Store.Ping
		b.closers = append(b.closers, func() { client.Close() })

	case "memory":
		logger.Warn("using in-memory availability store; state is lost on restart")
		b.Store = availabilityRepo.NewMemoryAvailabilityRepo()

	default:
		client, err := Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			b.Close()
			return nil, err
		}
		logger.Info("connected to MongoDB", zap.String("database", cfg.DatabaseName))
		b.Store = availabilityRepo.NewMongoAvailabilityRepo(client.Database(cfg.DatabaseName), cfg.AvailabilityCollection)
		b.Checks["mongo"] = b.Store.Ping
		b.closers = append(b.closers, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(ctx); err != nil {
				logger.Warn("mongo disconnect failed", zap.Error(err))
			}
		})
	}
	return b, nil
}
