package catalog

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	domain "game-showcase/backend/internal/domain/catalog"
)

// GameFilter 描述游戏列表的筛选条件，空值表示不过滤。
type GameFilter struct {
	GenreID string
	Status  string
	Query   string
}

// AllGenres 作为 GenreID 时与空字符串等价。
const AllGenres = "all"

var downloadsPattern = regexp.MustCompile(`^(\d+)K\+$`)

// Games 按目录顺序返回满足条件的游戏。
func (s *Store) Games(filter GameFilter) []domain.Game {
	s.mu.Lock()
	defer s.mu.Unlock()

	genreID := strings.TrimSpace(filter.GenreID)
	if genreID == AllGenres {
		genreID = ""
	}
	status := strings.ToLower(strings.TrimSpace(filter.Status))
	query := strings.ToLower(strings.TrimSpace(filter.Query))

	result := make([]domain.Game, 0, len(s.state.games))
	for _, game := range s.state.games {
		if genreID != "" && game.GenreID != genreID {
			continue
		}
		if status != "" && game.Status != status {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(game.Title), query) &&
			!strings.Contains(strings.ToLower(game.Description), query) {
			continue
		}
		result = append(result, game)
	}
	return result
}

// Game 按 id 查询游戏。
func (s *Store) Game(id string) (domain.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.state.gameIndex(id)
	if idx < 0 {
		return domain.Game{}, fmt.Errorf("%w: game %q", ErrNotFound, id)
	}
	return s.state.games[idx], nil
}

// Genres 返回全部分类。
func (s *Store) Genres() []domain.Genre {
	s.mu.Lock()
	defer s.mu.Unlock()
	return nonNilGenres(domain.CloneGenres(s.state.genres))
}

// Genre 按 id 查询分类。
func (s *Store) Genre(id string) (domain.Genre, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.state.genreIndex(id)
	if idx < 0 {
		return domain.Genre{}, fmt.Errorf("%w: genre %q", ErrNotFound, id)
	}
	return s.state.genres[idx], nil
}

// ComputeStats 汇总仪表盘统计。下载量只统计形如 "50K+" 的标签；没有游戏时平均分为 NaN。
func (s *Store) ComputeStats() domain.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := domain.Stats{
		TotalGames:  len(s.state.games),
		TotalGenres: len(s.state.genres),
		AvgRating:   math.NaN(),
	}
	var ratingSum float64
	for _, game := range s.state.games {
		stats.TotalDownloadsK += downloadsInThousands(game.Downloads)
		ratingSum += game.Rating
	}
	if len(s.state.games) > 0 {
		stats.AvgRating = ratingSum / float64(len(s.state.games))
	}
	return stats
}

func downloadsInThousands(label string) int {
	match := downloadsPattern.FindStringSubmatch(label)
	if match == nil {
		return 0
	}
	value, err := strconv.Atoi(match[1])
	if err != nil {
		return 0
	}
	return value
}

// ReconcileCounts 按当前游戏重新计算所有分类的 gameCount，有变化时写回 genres。
func (s *Store) ReconcileCounts(ctx context.Context) (changed bool, err error) {
	defer func() { s.observe("reconcile_counts", err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.clone()
	if !deriveCounts(&next) {
		return false, nil
	}
	if err := s.apply(ctx, next, domain.KeyGenres); err != nil {
		return false, err
	}
	s.logger.Infow("genre counts reconciled", "genres", len(next.genres))
	return true, nil
}
