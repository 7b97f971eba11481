package client

import (
	"context"
	"path/filepath"
	"testing"

	"game-showcase/backend/internal/config"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestNewRedisClient(t *testing.T) {
	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer server.Close()

	rdb, err := NewRedisClient(context.Background(), config.RedisConfig{Addr: server.Addr(), DB: 0})
	if err != nil {
		t.Fatalf("NewRedisClient returned error: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })

	if err := rdb.Set(context.Background(), "showcase:games", "[]", 0).Err(); err != nil {
		t.Fatalf("redis set: %v", err)
	}
	if !server.Exists("showcase:games") {
		t.Fatalf("expected key written through client")
	}
}

func TestNewRedisClientRequiresReachableServer(t *testing.T) {
	if _, err := NewRedisClient(context.Background(), config.RedisConfig{}); err == nil {
		t.Fatalf("expected error without address")
	}

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	addr := server.Addr()
	server.Close()

	if _, err := NewRedisClient(context.Background(), config.RedisConfig{Addr: addr}); err == nil {
		t.Fatalf("expected ping error for closed server")
	}
}

func TestOpenSQLiteCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "showcase.db")

	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		t.Fatalf("ping sqlite: %v", err)
	}
}

func TestDescribeMySQLHidesPassword(t *testing.T) {
	got := DescribeMySQL("showcase:secret@tcp(db:3306)/catalog?parseTime=true")
	if got != "showcase@db:3306/catalog" {
		t.Fatalf("unexpected description %q", got)
	}
	if DescribeMySQL("::not a dsn") != "invalid-dsn" {
		t.Fatalf("expected invalid dsn marker")
	}
}
