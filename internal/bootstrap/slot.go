package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/assignpro/assignpro-web/config"
	redisadapter "github.com/assignpro/assignpro-web/internal/adapters/redis"
	"github.com/assignpro/assignpro-web/internal/data"
	"github.com/assignpro/assignpro-web/internal/ports"
)

// Slot is the opened session slot and the function that releases its connection.
type Slot struct {
	Store   ports.SlotStore
	Backend config.SlotBackend
	Close   func() error
}

func noClose() error { return nil }

// OpenSlot connects the configured slot backend. Postgres runs migrations first when enabled.
func OpenSlot(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (Slot, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dbCfg := DatabaseConfig{DBConfig: cfg.Postgres, RedisConfig: cfg.Redis, Logger: logger}

	var slot Slot
	switch cfg.Slot.Backend {
	case config.SlotBackendMemory, "":
		slot = Slot{Store: data.NewMemorySlot(), Backend: config.SlotBackendMemory, Close: noClose}

	case config.SlotBackendRedis:
		client, err := ConnectRedis(ctx, dbCfg)
		if err != nil {
			return Slot{}, fmt.Errorf("connect redis: %w", err)
		}
		store := redisadapter.NewSlotStore(client, redisadapter.SlotStoreOptions{
			Prefix: cfg.Slot.RedisPrefix,
			Key:    cfg.Slot.Key,
		})
		slot = Slot{Store: store, Backend: config.SlotBackendRedis, Close: client.Close}

	case config.SlotBackendPostgres:
		db, err := ConnectDB(ctx, dbCfg)
		if err != nil {
			return Slot{}, fmt.Errorf("connect db: %w", err)
		}
		if cfg.Postgres.RunMigrationsOnStart {
			if err = RunMigrations(ctx, db, logger); err != nil {
				_ = db.Close()
				return Slot{}, err
			}
		} else {
			logger.InfoContext(ctx, "skipping database migrations on startup", "reason", "disabled via config")
		}
		slot = Slot{Store: data.NewSlotRepo(db, cfg.Slot.Key), Backend: config.SlotBackendPostgres, Close: db.Close}

	default:
		return Slot{}, fmt.Errorf("unsupported slot backend %q", cfg.Slot.Backend)
	}

	logger.InfoContext(ctx, "session slot opened", "backend", slot.Backend, "key", cfg.Slot.Key)
	return slot, nil
}
