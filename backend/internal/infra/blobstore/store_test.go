package blobstore_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"game-showcase/backend/internal/infra/blobstore"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSQLiteStore(t *testing.T) blobstore.Store {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	store, err := blobstore.NewGormStore(db)
	if err != nil {
		t.Fatalf("new gorm store: %v", err)
	}
	return store
}

func newRedisStore(t *testing.T) (blobstore.Store, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(server.Close)

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })
	return blobstore.NewRedisStore(client, "test:"), server
}

func TestStoreContract(t *testing.T) {
	backends := map[string]func(t *testing.T) blobstore.Store{
		"memory": func(t *testing.T) blobstore.Store { return blobstore.NewMemoryStore() },
		"sqlite": newSQLiteStore,
		"redis": func(t *testing.T) blobstore.Store {
			store, _ := newRedisStore(t)
			return store
		},
	}

	for name, build := range backends {
		t.Run(name, func(t *testing.T) {
			store := build(t)
			ctx := context.Background()

			if _, err := store.Load(ctx, "games"); !errors.Is(err, blobstore.ErrNotFound) {
				t.Fatalf("expected ErrNotFound for missing key, got %v", err)
			}

			if err := store.Save(ctx, "games", []byte(`[{"id":"a"}]`)); err != nil {
				t.Fatalf("save: %v", err)
			}
			if err := store.Save(ctx, "games", []byte(`[{"id":"b"}]`)); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			got, err := store.Load(ctx, "games")
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if string(got) != `[{"id":"b"}]` {
				t.Fatalf("unexpected value %s", got)
			}

			if err := store.Delete(ctx, "games"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if _, err := store.Load(ctx, "games"); !errors.Is(err, blobstore.ErrNotFound) {
				t.Fatalf("expected ErrNotFound after delete, got %v", err)
			}
			if err := store.Delete(ctx, "missing"); err != nil {
				t.Fatalf("delete missing key: %v", err)
			}
		})
	}
}

func TestRedisStoreUsesPrefix(t *testing.T) {
	store, server := newRedisStore(t)

	if err := store.Save(context.Background(), "genres", []byte("[]")); err != nil {
		t.Fatalf("save: %v", err)
	}
	value, err := server.Get("test:genres")
	if err != nil {
		t.Fatalf("expected prefixed key, got %v", err)
	}
	if value != "[]" {
		t.Fatalf("unexpected value %q", value)
	}
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	store := blobstore.NewMemoryStore()
	ctx := context.Background()

	payload := []byte("abc")
	if err := store.Save(ctx, "k", payload); err != nil {
		t.Fatalf("save: %v", err)
	}
	payload[0] = 'x'

	got, err := store.Load(ctx, "k")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(got) != "abc" {
		t.Fatalf("stored value changed through caller slice: %s", got)
	}
}
