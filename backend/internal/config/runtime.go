package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// BackendMemory 使用进程内存储，重启后数据丢失。
	BackendMemory = "memory"
	// BackendSQLite 使用本地 SQLite 文件，对应离线/本地模式。
	BackendSQLite = "sqlite"
	// BackendMySQL 使用 MySQL 表保存数据。
	BackendMySQL = "mysql"
	// BackendRedis 使用 Redis 字符串保存数据。
	BackendRedis = "redis"

	defaultServerPort   = "8080"
	defaultSQLiteRel    = "data/showcase.db"
	defaultStaticDir    = "./public"
	defaultRedisPrefix  = "showcase"
	defaultRedisPort    = "6379"
	defaultStorageValue = BackendSQLite
	defaultDataLimit    = 30
	defaultDataWindow   = time.Minute
)

// RuntimeConfig 汇总服务与命令行工具共用的运行期配置。
type RuntimeConfig struct {
	ServerPort string
	StaticDir  string
	Storage    StorageConfig
	Catalog    CatalogConfig
	RateLimit  RateLimitConfig
}

// StorageConfig 描述目录数据落在哪个键值存储上。
type StorageConfig struct {
	Backend    string
	SQLitePath string
	MySQLDSN   string
	Redis      RedisConfig
}

// RedisConfig 只在 STORAGE_BACKEND=redis 时校验；Prefix 同时用于数据 key 与限流计数器。
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// CatalogConfig 控制目录服务的可选行为。
type CatalogConfig struct {
	SeedDir           string
	ReconcileOnImport bool
}

// RateLimitConfig 限制导入、导出、重置等批量数据接口的调用频率，Limit 为 0 时关闭。
type RateLimitConfig struct {
	Limit  int
	Window time.Duration
}

// LoadRuntimeConfig 读取 .env 文件与环境变量，推导运行期配置。
func LoadRuntimeConfig() (RuntimeConfig, error) {
	LoadEnvFiles()

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("STORAGE_BACKEND")))
	if backend == "" {
		backend = defaultStorageValue
	}
	switch backend {
	case BackendMemory, BackendSQLite, BackendMySQL, BackendRedis:
	default:
		return RuntimeConfig{}, fmt.Errorf("unsupported STORAGE_BACKEND %q", backend)
	}

	storage := StorageConfig{
		Backend:    backend,
		SQLitePath: normalisePath(defaultSQLiteRel),
		MySQLDSN:   strings.TrimSpace(os.Getenv("MYSQL_DSN")),
		Redis: RedisConfig{
			Password: os.Getenv("REDIS_PASSWORD"),
			Prefix:   defaultRedisPrefix,
		},
	}
	if raw := strings.TrimSpace(os.Getenv("SQLITE_PATH")); raw != "" {
		storage.SQLitePath = normalisePath(raw)
	}
	if raw := strings.TrimSpace(os.Getenv("REDIS_KEY_PREFIX")); raw != "" {
		storage.Redis.Prefix = raw
	}
	if backend == BackendMySQL && storage.MySQLDSN == "" {
		return RuntimeConfig{}, fmt.Errorf("MYSQL_DSN not set")
	}
	if backend == BackendRedis {
		addr, err := redisAddr(os.Getenv("REDIS_ENDPOINT"))
		if err != nil {
			return RuntimeConfig{}, err
		}
		storage.Redis.Addr = addr
		if raw := strings.TrimSpace(os.Getenv("REDIS_DB")); raw != "" {
			db, err := strconv.Atoi(raw)
			if err != nil || db < 0 {
				return RuntimeConfig{}, fmt.Errorf("invalid REDIS_DB %q", raw)
			}
			storage.Redis.DB = db
		}
	}

	catalog := CatalogConfig{
		SeedDir: strings.TrimSpace(os.Getenv("CATALOG_SEED_DIR")),
	}
	if raw := strings.TrimSpace(os.Getenv("CATALOG_RECONCILE_ON_IMPORT")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return RuntimeConfig{}, fmt.Errorf("invalid CATALOG_RECONCILE_ON_IMPORT: %w", err)
		}
		catalog.ReconcileOnImport = parsed
	}

	rateLimit := RateLimitConfig{Limit: defaultDataLimit, Window: defaultDataWindow}
	if raw := strings.TrimSpace(os.Getenv("DATA_RATE_LIMIT")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return RuntimeConfig{}, fmt.Errorf("invalid DATA_RATE_LIMIT %q", raw)
		}
		rateLimit.Limit = parsed
	}
	if raw := strings.TrimSpace(os.Getenv("DATA_RATE_WINDOW")); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			return RuntimeConfig{}, fmt.Errorf("invalid DATA_RATE_WINDOW %q", raw)
		}
		rateLimit.Window = parsed
	}

	port := strings.TrimSpace(os.Getenv("SERVER_PORT"))
	if port == "" {
		port = defaultServerPort
	}
	staticDir := strings.TrimSpace(os.Getenv("STATIC_DIR"))
	if staticDir == "" {
		staticDir = defaultStaticDir
	}

	return RuntimeConfig{
		ServerPort: port,
		StaticDir:  staticDir,
		Storage:    storage,
		Catalog:    catalog,
		RateLimit:  rateLimit,
	}, nil
}

// redisAddr 校验 REDIS_ENDPOINT，缺省端口为 6379，返回 host:port。
func redisAddr(endpoint string) (string, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return "", fmt.Errorf("REDIS_ENDPOINT not set")
	}
	if !strings.Contains(endpoint, ":") {
		return net.JoinHostPort(endpoint, defaultRedisPort), nil
	}
	host, port, err := net.SplitHostPort(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid REDIS_ENDPOINT %q: %w", endpoint, err)
	}
	if host == "" {
		return "", fmt.Errorf("invalid REDIS_ENDPOINT %q: host is empty", endpoint)
	}
	if _, err := strconv.Atoi(port); err != nil {
		return "", fmt.Errorf("invalid REDIS_ENDPOINT %q: port must be numeric", endpoint)
	}
	return net.JoinHostPort(host, port), nil
}

// normalisePath 将路径展开为绝对路径，兼容 ~ 前缀与相对路径。
func normalisePath(raw string) string {
	if raw == "" {
		return raw
	}
	if strings.HasPrefix(raw, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			raw = filepath.Join(home, strings.TrimPrefix(raw, "~"))
		}
	}
	if filepath.IsAbs(raw) {
		return raw
	}
	if abs, err := filepath.Abs(raw); err == nil {
		return abs
	}
	return raw
}
