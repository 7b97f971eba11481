package bootstrapdata

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	catalog "game-showcase/backend/internal/domain/catalog"

	"go.uber.org/zap"
)

const (
	defaultExportDir  = "data/exports"
	gamesFilename     = "games.json"
	genresFilename    = "genres.json"
	exportFilePrefix  = "game-showcase-data-"
	exportFileSuffix  = ".json"
	embeddedSeedDir   = "seed"
	defaultGenreIcon  = "fas fa-gamepad"
	defaultGameStatus = catalog.StatusPublished
)

//go:embed seed/*.json
var embeddedSeed embed.FS

// Options 描述加载预置数据所需的可选参数。
type Options struct {
	// DataDir 为空时只使用内置数据；目录中缺失的文件同样回退到内置数据。
	DataDir string
	Logger  *zap.SugaredLogger
}

// SeedFunc 返回按 dir 加载默认数据的函数，供目录存储初始化与重置时调用。
func SeedFunc(dir string, logger *zap.SugaredLogger) func() (catalog.Dataset, error) {
	dir = strings.TrimSpace(dir)
	return func() (catalog.Dataset, error) {
		return LoadDataset(Options{DataDir: dir, Logger: logger})
	}
}

// Default 返回内置的默认目录数据。内置文件随二进制发布，解析失败属于编译期错误。
func Default() catalog.Dataset {
	dataset, err := LoadDataset(Options{})
	if err != nil {
		panic(fmt.Sprintf("embedded catalog seed is invalid: %v", err))
	}
	return dataset
}

// LoadDataset 读取默认游戏与分类。目录中的文件优先于内置文件。
func LoadDataset(opts Options) (catalog.Dataset, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	var games []catalog.Game
	if err := readSeed(opts.DataDir, gamesFilename, &games, logger); err != nil {
		return catalog.Dataset{}, err
	}
	var genres []catalog.Genre
	if err := readSeed(opts.DataDir, genresFilename, &genres, logger); err != nil {
		return catalog.Dataset{}, err
	}

	for idx := range games {
		if strings.TrimSpace(games[idx].Status) == "" {
			games[idx].Status = defaultGameStatus
		}
		if strings.TrimSpace(games[idx].Price) == "" {
			games[idx].Price = catalog.PriceFree
		}
	}
	for idx := range genres {
		if strings.TrimSpace(genres[idx].Icon) == "" {
			genres[idx].Icon = defaultGenreIcon
		}
	}

	return catalog.Dataset{Games: games, Genres: genres}, nil
}

// readSeed 优先读取外部目录下的文件，不存在时回退到内置文件。
func readSeed(dir, name string, target any, logger *zap.SugaredLogger) error {
	var (
		raw []byte
		err error
	)
	if dir != "" {
		path := filepath.Join(dir, name)
		raw, err = os.ReadFile(path)
		switch {
		case err == nil:
			logger.Infow("loaded catalog seed", "path", path)
		case errors.Is(err, os.ErrNotExist):
			logger.Infow("catalog seed not found, fallback to embedded", "path", path)
			raw = nil
		default:
			return fmt.Errorf("read catalog seed %s: %w", name, err)
		}
	}
	if raw == nil {
		raw, err = fs.ReadFile(embeddedSeed, embeddedSeedDir+"/"+name)
		if err != nil {
			return fmt.Errorf("read embedded catalog seed %s: %w", name, err)
		}
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("parse catalog seed %s: %w", name, err)
	}
	return nil
}

// ExportOptions 控制快照文件的写入位置。
type ExportOptions struct {
	OutputDir string
	Logger    *zap.SugaredLogger
}

// ResolveExportDir 返回导出目录，未指定时使用 data/exports。
func ResolveExportDir(dir string) string {
	if trimmed := strings.TrimSpace(dir); trimmed != "" {
		return trimmed
	}
	return defaultExportDir
}

// SnapshotFileName 按导出日期生成文件名，例如 game-showcase-data-2025-10-12.json。
func SnapshotFileName(exportedAt time.Time) string {
	return exportFilePrefix + exportedAt.UTC().Format(time.DateOnly) + exportFileSuffix
}

// WriteSnapshot 将快照写入 OutputDir 并返回文件路径。
func WriteSnapshot(snapshot catalog.Snapshot, opts ExportOptions) (string, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	dir := ResolveExportDir(opts.OutputDir)
	path := filepath.Join(dir, SnapshotFileName(snapshot.ExportedAt))
	if err := writeJSON(path, snapshot); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	logger.Infow("exported catalog snapshot",
		"path", path,
		"games", len(snapshot.Games),
		"genres", len(snapshot.Genres),
		"activities", len(snapshot.Activities),
	)
	return path, nil
}

// ReadSnapshotFile 读取导入文件的原始内容，解析交给目录服务完成。
func ReadSnapshotFile(path string) ([]byte, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, errors.New("snapshot path is empty")
	}
	raw, err := os.ReadFile(trimmed)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return raw, nil
}

func writeJSON(path string, payload interface{}) error {
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return err
	}
	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	encoded = append(encoded, '\n')
	return os.WriteFile(path, encoded, 0o644)
}

// ensureDir 保证目录存在，用于写入导出文件。
func ensureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
