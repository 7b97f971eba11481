package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"game-showcase/backend/internal/app"
	"game-showcase/backend/internal/bootstrap"
	"game-showcase/backend/internal/bootstrapdata"
	"game-showcase/backend/internal/config"
	"game-showcase/backend/internal/infra/logger"
)

var outputDir = flag.String("output-dir", "", "指定导出 JSON 存放目录，默认 data/exports")

func main() {
	flag.Parse()

	zapLogger, err := logger.Init()
	if err != nil {
		panic(fmt.Sprintf("init logger failed: %v", err))
	}
	defer logger.Sync()
	sugar := zapLogger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadRuntimeConfig()
	if err != nil {
		sugar.Fatalw("load runtime config failed", "error", err)
	}
	resources, err := app.InitResources(ctx, cfg, sugar)
	if err != nil {
		sugar.Fatalw("init resources failed", "error", err)
	}
	defer func() {
		if cerr := resources.Close(); cerr != nil {
			sugar.Warnw("close resources failed", "error", cerr)
		}
	}()

	store := bootstrap.NewCatalogStore(cfg, resources.Blobs, sugar.Named("catalog"))
	if err := store.Initialize(ctx); err != nil {
		sugar.Fatalw("load catalog failed", "error", err)
	}

	path, err := bootstrapdata.WriteSnapshot(store.ExportSnapshot(), bootstrapdata.ExportOptions{
		OutputDir: *outputDir,
		Logger:    logger.Component("export-catalog"),
	})
	if err != nil {
		sugar.Fatalw("export snapshot failed", "error", err)
	}
	sugar.Infow("export snapshot completed", "path", path)
}
