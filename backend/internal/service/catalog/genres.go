package catalog

import (
	"context"
	"fmt"
	"strings"

	domain "game-showcase/backend/internal/domain/catalog"
)

// GenreInput 描述新增分类时的字段，id 由名称生成，gameCount 从 0 开始。
type GenreInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// AddGenre 新增分类并记录 "Genre Added"。
func (s *Store) AddGenre(ctx context.Context, input GenreInput) (genre domain.Genre, err error) {
	defer func() { s.observe("add_genre", err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	genre = domain.Genre{
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		Icon:        strings.TrimSpace(input.Icon),
	}
	if genre.Icon == "" {
		genre.Icon = defaultGenreIcon
	}
	if err := validate.Struct(genre); err != nil {
		return domain.Genre{}, translateValidation(err)
	}

	genre.ID = Slugify(genre.Name)
	if genre.ID == "" {
		return domain.Genre{}, fieldError("name", "must contain at least one letter or digit")
	}

	next := s.state.clone()
	if next.genreIndex(genre.ID) >= 0 {
		return domain.Genre{}, fieldError("name", fmt.Sprintf("genre id %q already exists", genre.ID))
	}

	next.genres = append(next.genres, genre)
	s.prependActivity(&next, "Genre Added", fmt.Sprintf("%s genre has been created", genre.Name), iconAdded)

	if err := s.commit(ctx, next, domain.KeyGenres, domain.KeyActivities); err != nil {
		return domain.Genre{}, err
	}
	genre = next.genres[next.genreIndex(genre.ID)]
	s.logger.Infow("genre added", "id", genre.ID)
	return genre, nil
}

// RenameGenre 修改分类名称，id 保持不变；名称未变化时不写存储也不记录日志。
func (s *Store) RenameGenre(ctx context.Context, id, newName string) (genre domain.Genre, err error) {
	defer func() { s.observe("rename_genre", err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.clone()
	idx := next.genreIndex(id)
	if idx < 0 {
		return domain.Genre{}, fmt.Errorf("%w: genre %q", ErrNotFound, id)
	}

	name := strings.TrimSpace(newName)
	if name == "" {
		return domain.Genre{}, fieldError("name", "is required")
	}
	if name == next.genres[idx].Name {
		return next.genres[idx], nil
	}

	next.genres[idx].Name = name
	s.prependActivity(&next, "Genre Updated", fmt.Sprintf("%s has been updated", name), iconUpdated)

	if err := s.commit(ctx, next, domain.KeyGenres, domain.KeyActivities); err != nil {
		return domain.Genre{}, err
	}
	s.logger.Infow("genre renamed", "id", id, "name", name)
	return next.genres[idx], nil
}

// DeleteGenre 删除分类；仍有游戏引用时返回 ErrConflict。
func (s *Store) DeleteGenre(ctx context.Context, id string) (err error) {
	defer func() { s.observe("delete_genre", err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.clone()
	idx := next.genreIndex(id)
	if idx < 0 {
		return fmt.Errorf("%w: genre %q", ErrNotFound, id)
	}

	genre := next.genres[idx]
	if genre.GameCount > 0 {
		return fmt.Errorf("%w: genre %q still has %d games", ErrConflict, id, genre.GameCount)
	}
	for _, game := range next.games {
		if game.GenreID == id {
			return fmt.Errorf("%w: genre %q is still referenced by game %q", ErrConflict, id, game.ID)
		}
	}

	next.genres = append(next.genres[:idx], next.genres[idx+1:]...)
	s.prependActivity(&next, "Genre Deleted", fmt.Sprintf("%s has been deleted", genre.Name), iconDeleted)

	if err := s.commit(ctx, next, domain.KeyGenres, domain.KeyActivities); err != nil {
		return err
	}
	s.logger.Infow("genre deleted", "id", id)
	return nil
}
