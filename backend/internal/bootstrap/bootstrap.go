package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"game-showcase/backend/internal/app"
	"game-showcase/backend/internal/bootstrapdata"
	"game-showcase/backend/internal/config"
	"game-showcase/backend/internal/handler"
	"game-showcase/backend/internal/infra/blobstore"
	"game-showcase/backend/internal/infra/metrics"
	"game-showcase/backend/internal/infra/ratelimit"
	"game-showcase/backend/internal/middleware"
	"game-showcase/backend/internal/server"
	catalogsvc "game-showcase/backend/internal/service/catalog"
	settingssvc "game-showcase/backend/internal/service/settings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Application struct {
	Resources *app.Resources
	Catalog   *catalogsvc.Store
	Settings  *settingssvc.Service
	Router    http.Handler
	// Degraded 表示配置的存储无法初始化，目录退回到进程内存储。
	Degraded bool
}

// NewCatalogStore 按运行期配置构造目录存储，服务与命令行工具共用同一份默认数据来源。
func NewCatalogStore(cfg config.RuntimeConfig, blobs blobstore.Store, logger *zap.SugaredLogger, opts ...catalogsvc.Option) *catalogsvc.Store {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	base := []catalogsvc.Option{
		catalogsvc.WithLogger(logger),
		catalogsvc.WithSeed(bootstrapdata.SeedFunc(cfg.Catalog.SeedDir, logger)),
		catalogsvc.WithReconcileOnImport(cfg.Catalog.ReconcileOnImport),
	}
	return catalogsvc.NewStore(blobs, append(base, opts...)...)
}

// BuildApplication 装配目录服务、设置服务与 HTTP 路由。
func BuildApplication(ctx context.Context, logger *zap.SugaredLogger, resources *app.Resources) (*Application, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if resources == nil || resources.Blobs == nil {
		return nil, fmt.Errorf("storage resources not initialised")
	}
	metrics.MustRegister()

	cfg := resources.Config
	blobs := resources.Blobs
	store := NewCatalogStore(cfg, blobs, logger.Named("catalog"))
	degraded := false
	if err := store.Initialize(ctx); err != nil {
		logger.Warnw("catalog storage unavailable, falling back to in-memory data", "backend", cfg.Storage.Backend, "error", err)
		blobs = blobstore.NewMemoryStore()
		store = NewCatalogStore(cfg, blobs, logger.Named("catalog"))
		if err := store.Initialize(ctx); err != nil {
			return nil, fmt.Errorf("initialise in-memory catalog: %w", err)
		}
		degraded = true
	}

	settingsService := settingssvc.NewService(blobs, store, logger.Named("settings"))

	var limiter ratelimit.Limiter = ratelimit.NewMemoryLimiter()
	if resources.Redis != nil {
		limiter = ratelimit.NewRedisLimiter(resources.Redis, cfg.Storage.Redis.Prefix+":ratelimit")
	}
	dataLimit := middleware.NewRateLimitMiddleware(limiter, middleware.RateLimitConfig{
		Limit:  cfg.RateLimit.Limit,
		Window: cfg.RateLimit.Window,
	}, logger)

	router := server.NewRouter(server.RouterOptions{
		CatalogHandler:  handler.NewCatalogHandler(store, logger.Named("http")),
		SettingsHandler: handler.NewSettingsHandler(settingsService, logger.Named("http")),
		StaticDir:       cfg.StaticDir,
		DataMiddleware:  []gin.HandlerFunc{dataLimit.Handle()},
		Degraded:        degraded,
	})

	return &Application{
		Resources: resources,
		Catalog:   store,
		Settings:  settingsService,
		Router:    router,
		Degraded:  degraded,
	}, nil
}
