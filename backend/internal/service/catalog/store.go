package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"game-showcase/backend/internal/bootstrapdata"
	domain "game-showcase/backend/internal/domain/catalog"
	"game-showcase/backend/internal/infra/blobstore"
	"game-showcase/backend/internal/infra/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store 持有游戏、分类与活动日志，负责维护它们之间的不变量并写回 blob 存储。
type Store struct {
	mu    sync.Mutex
	blobs blobstore.Store
	state state

	logger            *zap.SugaredLogger
	now               func() time.Time
	newID             func() string
	seed              func() (domain.Dataset, error)
	reconcileOnImport bool
}

// Option 用于定制 Store。
type Option func(*Store)

// WithLogger 注入日志记录器。
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock 替换时间来源，测试中用来固定活动时间戳。
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator 替换活动日志 id 的生成方式。
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// WithSeed 指定初始化与重置时使用的默认数据集。
func WithSeed(seed func() (domain.Dataset, error)) Option {
	return func(s *Store) {
		if seed != nil {
			s.seed = seed
		}
	}
}

// WithReconcileOnImport 开启后导入快照会重新计算分类下的游戏数量，而不是信任文件中的 gameCount。
func WithReconcileOnImport(enabled bool) Option {
	return func(s *Store) {
		s.reconcileOnImport = enabled
	}
}

// NewStore 构造目录存储，调用方需要随后执行 Initialize。
func NewStore(blobs blobstore.Store, opts ...Option) *Store {
	s := &Store{
		blobs:  blobs,
		logger: zap.NewNop().Sugar(),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  func() string { return uuid.NewString() },
		seed: func() (domain.Dataset, error) {
			return bootstrapdata.Default(), nil
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type state struct {
	games      []domain.Game
	genres     []domain.Genre
	activities []domain.ActivityEntry
}

func (st state) clone() state {
	return state{
		games:      domain.CloneGames(st.games),
		genres:     domain.CloneGenres(st.genres),
		activities: domain.CloneActivities(st.activities),
	}
}

func (st state) gameIndex(id string) int {
	for i := range st.games {
		if st.games[i].ID == id {
			return i
		}
	}
	return -1
}

func (st state) genreIndex(id string) int {
	for i := range st.genres {
		if st.genres[i].ID == id {
			return i
		}
	}
	return -1
}

func (st state) genreName(id string) string {
	if idx := st.genreIndex(id); idx >= 0 {
		return st.genres[idx].Name
	}
	return "Unknown Genre"
}

func (st state) encode(key string) ([]byte, error) {
	switch key {
	case domain.KeyGames:
		return json.Marshal(nonNilGames(st.games))
	case domain.KeyGenres:
		return json.Marshal(nonNilGenres(st.genres))
	case domain.KeyActivities:
		return json.Marshal(nonNilActivities(st.activities))
	default:
		return nil, fmt.Errorf("unknown catalog key %q", key)
	}
}

// deriveCounts 按游戏列表重算每个分类的 gameCount，返回是否有变化。
func deriveCounts(st *state) bool {
	counts := make(map[string]int, len(st.genres))
	for _, game := range st.games {
		counts[game.GenreID]++
	}
	changed := false
	for i := range st.genres {
		want := counts[st.genres[i].ID]
		if st.genres[i].GameCount != want {
			st.genres[i].GameCount = want
			changed = true
		}
	}
	return changed
}

// Initialize 从 blob 存储加载三个集合；缺失的集合使用默认数据填充并立即写回。
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		next    state
		seeded  []string
		dataset *domain.Dataset
	)
	loadSeed := func() (domain.Dataset, error) {
		if dataset != nil {
			return *dataset, nil
		}
		ds, err := s.seed()
		if err != nil {
			return domain.Dataset{}, fmt.Errorf("load seed dataset: %w", err)
		}
		dataset = &ds
		return ds, nil
	}

	found, err := s.loadKey(ctx, domain.KeyGames, &next.games)
	if err != nil {
		return err
	}
	if !found {
		ds, err := loadSeed()
		if err != nil {
			return err
		}
		next.games = domain.CloneGames(ds.Games)
		seeded = append(seeded, domain.KeyGames)
	}

	found, err = s.loadKey(ctx, domain.KeyGenres, &next.genres)
	if err != nil {
		return err
	}
	if !found {
		ds, err := loadSeed()
		if err != nil {
			return err
		}
		next.genres = domain.CloneGenres(ds.Genres)
		deriveCounts(&next)
		seeded = append(seeded, domain.KeyGenres)
	}

	found, err = s.loadKey(ctx, domain.KeyActivities, &next.activities)
	if err != nil {
		return err
	}
	if !found {
		next.activities = []domain.ActivityEntry{}
		seeded = append(seeded, domain.KeyActivities)
	}

	for _, key := range seeded {
		payload, err := next.encode(key)
		if err != nil {
			return fmt.Errorf("%w: encode %s: %v", ErrPersistence, key, err)
		}
		if err := s.blobs.Save(ctx, key, payload); err != nil {
			metrics.RecordPersistenceFailure(key)
			return fmt.Errorf("%w: seed %s: %v", ErrPersistence, key, err)
		}
	}

	derived := next.clone()
	if deriveCounts(&derived) {
		s.logger.Warnw("genre counts out of sync with games", "genres", len(next.genres), "games", len(next.games))
	}

	s.state = next
	s.reportSize()
	s.logger.Infow("catalog initialized",
		"games", len(next.games),
		"genres", len(next.genres),
		"activities", len(next.activities),
		"seeded", seeded,
	)
	return nil
}

// loadKey 读取并解码一个 key。key 不存在或内容为 JSON null 时返回 found=false。
func (s *Store) loadKey(ctx context.Context, key string, target any) (bool, error) {
	raw, err := s.blobs.Load(ctx, key)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("%w: load %s: %v", ErrPersistence, key, err)
	}
	if isJSONNull(raw) {
		return false, nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return false, fmt.Errorf("%w: decode %s: %v", ErrFormat, key, err)
	}
	return true, nil
}

// commit 重算分类计数后写入受影响的 key，成功后替换内存状态。
func (s *Store) commit(ctx context.Context, next state, keys ...string) error {
	if deriveCounts(&next) && !containsKey(keys, domain.KeyGenres) {
		keys = append(keys, domain.KeyGenres)
	}
	return s.apply(ctx, next, keys...)
}

// apply 依次写入 keys；任一写入失败时尽力恢复已写入的 key，内存状态不变。
func (s *Store) apply(ctx context.Context, next state, keys ...string) error {
	payloads := make(map[string][]byte, len(keys))
	for _, key := range keys {
		payload, err := next.encode(key)
		if err != nil {
			return fmt.Errorf("%w: encode %s: %v", ErrPersistence, key, err)
		}
		payloads[key] = payload
	}

	written := make([]string, 0, len(keys))
	for _, key := range keys {
		if err := s.blobs.Save(ctx, key, payloads[key]); err != nil {
			metrics.RecordPersistenceFailure(key)
			s.logger.Errorw("save catalog key failed", "key", key, "error", err)
			s.restore(ctx, written)
			return fmt.Errorf("%w: save %s: %v", ErrPersistence, key, err)
		}
		written = append(written, key)
	}

	s.state = next
	s.reportSize()
	return nil
}

func (s *Store) restore(ctx context.Context, keys []string) {
	for _, key := range keys {
		payload, err := s.state.encode(key)
		if err == nil {
			err = s.blobs.Save(ctx, key, payload)
		}
		if err != nil {
			s.logger.Warnw("restore catalog key failed", "key", key, "error", err)
		}
	}
}

// prependActivity 在日志头部追加一条记录并截断到 MaxActivities。
func (s *Store) prependActivity(next *state, title, description, icon string) domain.ActivityEntry {
	if icon == "" {
		icon = defaultActivityIcon
	}
	entry := domain.ActivityEntry{
		ID:          s.newID(),
		Title:       title,
		Description: description,
		Icon:        icon,
		Timestamp:   s.now(),
	}
	activities := make([]domain.ActivityEntry, 0, len(next.activities)+1)
	activities = append(activities, entry)
	activities = append(activities, next.activities...)
	if len(activities) > domain.MaxActivities {
		activities = activities[:domain.MaxActivities]
	}
	next.activities = activities
	return entry
}

func (s *Store) reportSize() {
	metrics.SetCatalogSize(len(s.state.games), len(s.state.genres), len(s.state.activities))
}

// observe 将错误归类后写入 mutation 指标。
func (s *Store) observe(operation string, err error) {
	metrics.RecordMutation(operation, resultLabel(err))
	if err != nil && !errors.Is(err, ErrPersistence) {
		s.logger.Debugw("catalog mutation rejected", "operation", operation, "error", err)
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrFormat):
		return "format"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	default:
		return "error"
	}
}

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

func isJSONNull(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || string(trimmed) == "null"
}

func nonNilGames(games []domain.Game) []domain.Game {
	if games == nil {
		return []domain.Game{}
	}
	return games
}

func nonNilGenres(genres []domain.Genre) []domain.Genre {
	if genres == nil {
		return []domain.Genre{}
	}
	return genres
}

func nonNilActivities(entries []domain.ActivityEntry) []domain.ActivityEntry {
	if entries == nil {
		return []domain.ActivityEntry{}
	}
	return entries
}
