package logger

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOptionsFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"LOG_LEVEL", "LOG_ENCODING", "LOG_FILE", "LOG_MAX_SIZE", "LOG_MAX_BACKUPS", "LOG_MAX_AGE", "LOG_COMPRESS"} {
		t.Setenv(key, "")
	}

	opts := loadOptionsFromEnv()
	if opts.Level != "info" || opts.Encoding != "json" {
		t.Fatalf("unexpected defaults: %+v", opts)
	}
	if opts.FilePath != filepath.Join("logs", "showcase.log") {
		t.Fatalf("unexpected default file path %s", opts.FilePath)
	}
	if opts.MaxSize != 20 || opts.MaxBackups != 5 || opts.MaxAge != 15 || !opts.Compress {
		t.Fatalf("unexpected rolling defaults: %+v", opts)
	}
}

func TestLoadOptionsFromEnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FILE", "off")
	t.Setenv("LOG_MAX_SIZE", "50")
	t.Setenv("LOG_MAX_AGE", "-3")
	t.Setenv("LOG_COMPRESS", "false")

	opts := loadOptionsFromEnv()
	if opts.Level != "debug" {
		t.Fatalf("expected debug level, got %s", opts.Level)
	}
	if opts.FilePath != "" {
		t.Fatalf("expected file output disabled, got %s", opts.FilePath)
	}
	if opts.MaxSize != 50 {
		t.Fatalf("expected max size 50, got %d", opts.MaxSize)
	}
	if opts.MaxAge != 15 {
		t.Fatalf("expected invalid max age to fall back, got %d", opts.MaxAge)
	}
	if opts.Compress {
		t.Fatalf("expected compression disabled")
	}
}

func TestBuildWritesRollingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "test.log")
	logger, err := Build(Options{Level: "info", Encoding: "json", FilePath: path, MaxSize: 1})
	if err != nil {
		t.Fatalf("build logger: %v", err)
	}
	logger.Info("catalog ready")
	_ = logger.Sync()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected log file: %v", err)
	}
	if info.Size() == 0 {
		t.Fatalf("expected log file to have content")
	}
}

func TestBuildRejectsUnknownLevel(t *testing.T) {
	if _, err := Build(Options{Level: "loud"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
