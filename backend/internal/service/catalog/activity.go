package catalog

import (
	"context"
	"strings"

	domain "game-showcase/backend/internal/domain/catalog"
)

// RecordActivity 在日志头部追加一条记录，保留最近 50 条并写回 activities。
func (s *Store) RecordActivity(ctx context.Context, title, description, icon string) (entry domain.ActivityEntry, err error) {
	defer func() { s.observe("record_activity", err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.clone()
	entry = s.prependActivity(&next, strings.TrimSpace(title), strings.TrimSpace(description), strings.TrimSpace(icon))
	if err := s.apply(ctx, next, domain.KeyActivities); err != nil {
		return domain.ActivityEntry{}, err
	}
	return entry, nil
}

// Activities 返回最近的 limit 条活动，limit <= 0 时返回全部。
func (s *Store) Activities(limit int) []domain.ActivityEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.state.activities
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return nonNilActivities(domain.CloneActivities(entries))
}
