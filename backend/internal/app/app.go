package app

import (
	"context"
	"fmt"

	"game-showcase/backend/internal/config"
	"game-showcase/backend/internal/infra/blobstore"
	"game-showcase/backend/internal/infra/client"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Resources 持有按 STORAGE_BACKEND 打开的连接与对应的 blob 存储。
type Resources struct {
	Config config.RuntimeConfig
	Blobs  blobstore.Store
	DB     *gorm.DB
	Redis  *redis.Client
}

// InitResources 根据配置打开存储后端。
func InitResources(ctx context.Context, cfg config.RuntimeConfig, logger *zap.SugaredLogger) (*Resources, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	res := &Resources{Config: cfg}

	switch cfg.Storage.Backend {
	case config.BackendMemory:
		res.Blobs = blobstore.NewMemoryStore()
		logger.Warnw("using in-memory storage; catalog changes won't survive restarts")

	case config.BackendSQLite:
		db, err := client.OpenSQLite(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		res.DB = db
		store, err := blobstore.NewGormStore(db)
		if err != nil {
			_ = res.Close()
			return nil, fmt.Errorf("prepare sqlite blob store: %w", err)
		}
		res.Blobs = store
		logger.Infow("using sqlite storage", "path", cfg.Storage.SQLitePath)

	case config.BackendMySQL:
		db, err := client.OpenMySQL(cfg.Storage.MySQLDSN)
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		res.DB = db
		store, err := blobstore.NewGormStore(db)
		if err != nil {
			_ = res.Close()
			return nil, fmt.Errorf("prepare mysql blob store: %w", err)
		}
		res.Blobs = store
		logger.Infow("using mysql storage", "dsn", client.DescribeMySQL(cfg.Storage.MySQLDSN))

	case config.BackendRedis:
		redisCfg := cfg.Storage.Redis
		rdb, err := client.NewRedisClient(ctx, redisCfg)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		res.Redis = rdb
		res.Blobs = blobstore.NewRedisStore(rdb, redisCfg.Prefix)
		logger.Infow("using redis storage", "addr", redisCfg.Addr, "db", redisCfg.DB, "prefix", redisCfg.Prefix)

	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
	}

	return res, nil
}

// Close 释放数据库与 Redis 连接。
func (r *Resources) Close() error {
	if r == nil {
		return nil
	}
	var firstErr error
	if r.DB != nil {
		if sqlDB, err := r.DB.DB(); err == nil {
			if cerr := sqlDB.Close(); cerr != nil && firstErr == nil {
				firstErr = cerr
			}
		}
	}
	if r.Redis != nil {
		if err := r.Redis.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
