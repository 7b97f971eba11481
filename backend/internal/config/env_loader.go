package config

import (
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
)

const envSkipEnvLoad = "CONFIG_SKIP_ENV_LOAD"

// envFiles 按优先级排列，靠前的文件覆盖靠后的同名变量。
var envFiles = []string{".env.local", ".env"}

var (
	envOnce     sync.Once
	envOnceLock sync.Mutex
	skipEnvLoad bool
)

// LoadEnvFiles ensures .env.local and .env are loaded exactly once.
// Files are searched from the working directory upwards so the tools work from any sub directory.
func LoadEnvFiles() {
	envOnceLock.Lock()
	skip := skipEnvLoad
	envOnceLock.Unlock()
	if skip || os.Getenv(envSkipEnvLoad) == "1" {
		return
	}

	envOnce.Do(func() {
		// godotenv.Load never overrides variables that are already set, so load the
		// higher priority file first.
		for _, name := range envFiles {
			path, ok := findEnvFile(name)
			if !ok {
				continue
			}
			if err := godotenv.Load(path); err == nil {
				log.Printf("[config] loaded environment file: %s", path)
			}
		}
	})
}

// SetEnvFileLoadingForTest toggles automatic env file loading. Intended for tests only.
func SetEnvFileLoadingForTest(enabled bool) {
	envOnceLock.Lock()
	defer envOnceLock.Unlock()

	skipEnvLoad = !enabled
	envOnce = sync.Once{}
}

func findEnvFile(name string) (string, bool) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", false
	}

	dir := cwd
	for {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}
