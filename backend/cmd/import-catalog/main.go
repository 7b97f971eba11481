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
	catalogsvc "game-showcase/backend/internal/service/catalog"
)

var (
	snapshotFile = flag.String("file", "", "待导入的快照 JSON 文件")
	reconcile    = flag.Bool("reconcile", false, "导入后按游戏列表重算分类计数")
)

// main 将导出的快照写回当前 STORAGE_BACKEND 指向的存储。
func main() {
	flag.Parse()

	zapLogger, err := logger.Init()
	if err != nil {
		panic(fmt.Sprintf("init logger failed: %v", err))
	}
	defer logger.Sync()
	sugar := zapLogger.Sugar()

	raw, err := bootstrapdata.ReadSnapshotFile(*snapshotFile)
	if err != nil {
		sugar.Fatalw("read snapshot failed", "error", err)
	}

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

	store := bootstrap.NewCatalogStore(cfg, resources.Blobs, logger.Component("import-catalog"),
		catalogsvc.WithReconcileOnImport(*reconcile || cfg.Catalog.ReconcileOnImport),
	)
	if err := store.Initialize(ctx); err != nil {
		sugar.Fatalw("load catalog failed", "error", err)
	}

	result, err := store.ImportSnapshot(ctx, raw)
	if err != nil {
		sugar.Fatalw("import snapshot failed", "file", *snapshotFile, "error", err)
	}
	sugar.Infow("import snapshot completed",
		"file", *snapshotFile,
		"imported", result.Imported,
		"games", result.Games,
		"genres", result.Genres,
		"activities", result.Activities,
		"reconciled", result.Reconciled,
	)
}
