package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	domain "game-showcase/backend/internal/domain/catalog"

	"github.com/go-playground/validator/v10"
)

const (
	placeholderImagePrefix = "https://via.placeholder.com/300x200/667eea/white?text="

	defaultActivityIcon = "fas fa-info-circle"
	defaultGenreIcon    = "fas fa-gamepad"

	iconAdded   = "fas fa-plus-circle"
	iconUpdated = "fas fa-edit"
	iconDeleted = "fas fa-trash"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// GameInput 描述新增游戏时的字段，id 由标题生成。
type GameInput struct {
	Title       string  `json:"title"`
	GenreID     string  `json:"genreId"`
	Description string  `json:"description"`
	Rating      float64 `json:"rating"`
	Downloads   string  `json:"downloads"`
	Image       string  `json:"image"`
	Price       string  `json:"price"`
	PriceAmount string  `json:"priceAmount"`
	Status      string  `json:"status"`
}

// GamePatch 描述更新游戏时的可选字段，nil 表示保持原值。
type GamePatch struct {
	Title       *string  `json:"title,omitempty"`
	GenreID     *string  `json:"genreId,omitempty"`
	Description *string  `json:"description,omitempty"`
	Rating      *float64 `json:"rating,omitempty"`
	Downloads   *string  `json:"downloads,omitempty"`
	Image       *string  `json:"image,omitempty"`
	Price       *string  `json:"price,omitempty"`
	PriceAmount *string  `json:"priceAmount,omitempty"`
	Status      *string  `json:"status,omitempty"`
}

// PlaceholderImage 返回以标题为文字的占位图地址。
func PlaceholderImage(title string) string {
	return placeholderImagePrefix + url.PathEscape(title)
}

// AddGame 校验输入、生成 id 并追加游戏，同时记录 "Game Added"。
func (s *Store) AddGame(ctx context.Context, input GameInput) (game domain.Game, err error) {
	defer func() { s.observe("add_game", err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	game = domain.Game{
		Title:       strings.TrimSpace(input.Title),
		GenreID:     strings.TrimSpace(input.GenreID),
		Description: strings.TrimSpace(input.Description),
		Rating:      input.Rating,
		Downloads:   strings.TrimSpace(input.Downloads),
		Image:       strings.TrimSpace(input.Image),
		Price:       strings.TrimSpace(input.Price),
		PriceAmount: strings.TrimSpace(input.PriceAmount),
		Status:      strings.TrimSpace(input.Status),
	}
	normalizeGame(&game)

	next := s.state.clone()
	if err := validateGame(game, next); err != nil {
		return domain.Game{}, err
	}

	game.ID = Slugify(game.Title)
	if game.ID == "" {
		return domain.Game{}, fieldError("title", "must contain at least one letter or digit")
	}
	if next.gameIndex(game.ID) >= 0 {
		return domain.Game{}, fieldError("title", fmt.Sprintf("game id %q already exists", game.ID))
	}
	if game.Image == "" {
		game.Image = PlaceholderImage(game.Title)
	}

	next.games = append(next.games, game)
	s.prependActivity(&next, "Game Added",
		fmt.Sprintf("%s has been added to %s", game.Title, next.genreName(game.GenreID)), iconAdded)

	if err := s.commit(ctx, next, domain.KeyGames, domain.KeyGenres, domain.KeyActivities); err != nil {
		return domain.Game{}, err
	}
	s.logger.Infow("game added", "id", game.ID, "genre", game.GenreID)
	return game, nil
}

// UpdateGame 合并补丁并重新校验；id 不可变，空图片保留原值。
func (s *Store) UpdateGame(ctx context.Context, id string, patch GamePatch) (game domain.Game, err error) {
	defer func() { s.observe("update_game", err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.clone()
	idx := next.gameIndex(id)
	if idx < 0 {
		return domain.Game{}, fmt.Errorf("%w: game %q", ErrNotFound, id)
	}

	game = next.games[idx]
	previousGenre := game.GenreID
	applyGamePatch(&game, patch)
	normalizeGame(&game)

	if err := validateGame(game, next); err != nil {
		return domain.Game{}, err
	}

	next.games[idx] = game
	s.prependActivity(&next, "Game Updated", fmt.Sprintf("%s has been updated", game.Title), iconUpdated)

	if err := s.commit(ctx, next, domain.KeyGames, domain.KeyGenres, domain.KeyActivities); err != nil {
		return domain.Game{}, err
	}
	s.logger.Infow("game updated", "id", game.ID, "genre", game.GenreID, "previous_genre", previousGenre)
	return game, nil
}

// DeleteGame 删除游戏并记录 "Game Deleted"。
func (s *Store) DeleteGame(ctx context.Context, id string) (err error) {
	defer func() { s.observe("delete_game", err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.clone()
	idx := next.gameIndex(id)
	if idx < 0 {
		return fmt.Errorf("%w: game %q", ErrNotFound, id)
	}

	removed := next.games[idx]
	next.games = append(next.games[:idx], next.games[idx+1:]...)
	s.prependActivity(&next, "Game Deleted", fmt.Sprintf("%s has been deleted", removed.Title), iconDeleted)

	if err := s.commit(ctx, next, domain.KeyGames, domain.KeyGenres, domain.KeyActivities); err != nil {
		return err
	}
	s.logger.Infow("game deleted", "id", id)
	return nil
}

func applyGamePatch(game *domain.Game, patch GamePatch) {
	if patch.Title != nil {
		game.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.GenreID != nil {
		game.GenreID = strings.TrimSpace(*patch.GenreID)
	}
	if patch.Description != nil {
		game.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Rating != nil {
		game.Rating = *patch.Rating
	}
	if patch.Downloads != nil {
		game.Downloads = strings.TrimSpace(*patch.Downloads)
	}
	if patch.Image != nil {
		if image := strings.TrimSpace(*patch.Image); image != "" {
			game.Image = image
		}
	}
	if patch.Price != nil {
		game.Price = strings.TrimSpace(*patch.Price)
	}
	if patch.PriceAmount != nil {
		game.PriceAmount = strings.TrimSpace(*patch.PriceAmount)
	}
	if patch.Status != nil {
		game.Status = strings.TrimSpace(*patch.Status)
	}
}

func normalizeGame(game *domain.Game) {
	game.Price = strings.ToLower(game.Price)
	game.Status = strings.ToLower(game.Status)
	if game.Price == "" {
		game.Price = domain.PriceFree
	}
	if game.Status == "" {
		game.Status = domain.StatusPublished
	}
	if game.Price == domain.PriceFree {
		game.PriceAmount = ""
	}
}

// validateGame 先做结构校验，再检查分类引用。
func validateGame(game domain.Game, st state) error {
	if err := validate.Struct(game); err != nil {
		return translateValidation(err)
	}
	if st.genreIndex(game.GenreID) < 0 {
		return fieldError("genreId", fmt.Sprintf("genre %q does not exist", game.GenreID))
	}
	return nil
}

func translateValidation(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	out := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields[fe.Field()] = describeTag(fe)
	}
	return out
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_if":
		return "is required for paid games"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s", fe.Tag())
	}
}
