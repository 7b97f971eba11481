package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	domain "game-showcase/backend/internal/domain/catalog"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed snapshot.schema.json
var snapshotSchemaJSON []byte

var snapshotSchema = mustCompileSchema(snapshotSchemaJSON)

func mustCompileSchema(raw []byte) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		panic(fmt.Sprintf("compile snapshot schema: %v", err))
	}
	return schema
}

// ImportResult 汇总一次导入替换了哪些集合。
type ImportResult struct {
	Imported   []string `json:"imported"`
	Games      int      `json:"games"`
	Genres     int      `json:"genres"`
	Activities int      `json:"activities"`
	Reconciled bool     `json:"reconciled"`
}

// snapshotPayload 用指针区分缺失（或 null）与空数组。
type snapshotPayload struct {
	Games      *[]domain.Game          `json:"games"`
	Genres     *[]domain.Genre         `json:"genres"`
	Activities *[]domain.ActivityEntry `json:"activities"`
}

// ExportSnapshot 返回当前目录的完整副本。
func (s *Store) ExportSnapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return domain.Snapshot{
		Games:      nonNilGames(domain.CloneGames(s.state.games)),
		Genres:     nonNilGenres(domain.CloneGenres(s.state.genres)),
		Activities: nonNilActivities(domain.CloneActivities(s.state.activities)),
		ExportedAt: s.now(),
	}
}

// ImportSnapshot 用快照中出现的集合整体替换当前数据，缺失的集合保持不变。
// 默认信任文件中的 gameCount；WithReconcileOnImport 开启时重新计算。导入本身不记录活动。
func (s *Store) ImportSnapshot(ctx context.Context, raw []byte) (result ImportResult, err error) {
	defer func() { s.observe("import_snapshot", err) }()

	payload, err := decodeSnapshot(raw)
	if err != nil {
		return ImportResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.clone()
	var keys []string

	if payload.Games != nil {
		games := *payload.Games
		for i := range games {
			normalizeGame(&games[i])
		}
		next.games = games
		keys = append(keys, domain.KeyGames)
	}
	if payload.Genres != nil {
		genres := *payload.Genres
		for i := range genres {
			if genres[i].Icon == "" {
				genres[i].Icon = defaultGenreIcon
			}
		}
		next.genres = genres
		keys = append(keys, domain.KeyGenres)
	}
	if payload.Activities != nil {
		next.activities = normalizeActivities(*payload.Activities)
		keys = append(keys, domain.KeyActivities)
	}

	result = ImportResult{
		Imported:   keys,
		Games:      len(next.games),
		Genres:     len(next.genres),
		Activities: len(next.activities),
	}
	if len(keys) == 0 {
		result.Imported = []string{}
		return result, nil
	}

	if s.reconcileOnImport {
		if deriveCounts(&next) && !containsKey(keys, domain.KeyGenres) {
			keys = append(keys, domain.KeyGenres)
		}
		result.Reconciled = true
	} else {
		derived := next.clone()
		if deriveCounts(&derived) {
			s.logger.Warnw("imported genre counts disagree with games", "imported", keys)
		}
	}

	if err := s.apply(ctx, next, keys...); err != nil {
		return ImportResult{}, err
	}
	s.logger.Infow("snapshot imported", "imported", result.Imported, "reconciled", result.Reconciled)
	return result, nil
}

// decodeSnapshot 先用 JSON Schema 校验结构，再解码并检查 id 唯一。
func decodeSnapshot(raw []byte) (snapshotPayload, error) {
	if isJSONNull(raw) {
		return snapshotPayload{}, fmt.Errorf("%w: snapshot is empty", ErrFormat)
	}
	res, err := snapshotSchema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return snapshotPayload{}, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if !res.Valid() {
		var msgs []string
		for i, e := range res.Errors() {
			if i >= 5 {
				break
			}
			msgs = append(msgs, e.String())
		}
		return snapshotPayload{}, fmt.Errorf("%w: %s", ErrFormat, strings.Join(msgs, "; "))
	}

	var payload snapshotPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return snapshotPayload{}, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if payload.Games != nil {
		seen := make(map[string]struct{}, len(*payload.Games))
		for _, game := range *payload.Games {
			if _, dup := seen[game.ID]; dup {
				return snapshotPayload{}, fmt.Errorf("%w: duplicate game id %q", ErrFormat, game.ID)
			}
			seen[game.ID] = struct{}{}
		}
	}
	if payload.Genres != nil {
		seen := make(map[string]struct{}, len(*payload.Genres))
		for _, genre := range *payload.Genres {
			if _, dup := seen[genre.ID]; dup {
				return snapshotPayload{}, fmt.Errorf("%w: duplicate genre id %q", ErrFormat, genre.ID)
			}
			seen[genre.ID] = struct{}{}
		}
	}
	return payload, nil
}

// normalizeActivities 按时间倒序排列并截断到 MaxActivities。
func normalizeActivities(entries []domain.ActivityEntry) []domain.ActivityEntry {
	out := make([]domain.ActivityEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.Icon == "" {
			entry.Icon = defaultActivityIcon
		}
		out = append(out, entry)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if len(out) > domain.MaxActivities {
		out = out[:domain.MaxActivities]
	}
	return out
}

// ResetToDefaults 恢复默认游戏与分类并清空活动日志。
func (s *Store) ResetToDefaults(ctx context.Context) (err error) {
	defer func() { s.observe("reset_defaults", err) }()

	dataset, err := s.seed()
	if err != nil {
		return fmt.Errorf("load seed dataset: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := state{
		games:      domain.CloneGames(dataset.Games),
		genres:     domain.CloneGenres(dataset.Genres),
		activities: []domain.ActivityEntry{},
	}
	if err := s.commit(ctx, next, domain.KeyGames, domain.KeyGenres, domain.KeyActivities); err != nil {
		return err
	}
	s.logger.Infow("catalog reset to defaults", "games", len(next.games), "genres", len(next.genres))
	return nil
}
