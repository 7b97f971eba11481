package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"game-showcase/backend/internal/app"
	"game-showcase/backend/internal/config"
	domain "game-showcase/backend/internal/domain/catalog"
	"game-showcase/backend/internal/infra/blobstore"
	catalogsvc "game-showcase/backend/internal/service/catalog"
)

type brokenStore struct{}

func (brokenStore) Load(context.Context, string) ([]byte, error) {
	return nil, errors.New("disk unavailable")
}

func (brokenStore) Save(context.Context, string, []byte) error {
	return errors.New("disk unavailable")
}

func (brokenStore) Delete(context.Context, string) error {
	return errors.New("disk unavailable")
}

func TestBuildApplicationServesCatalog(t *testing.T) {
	resources := &app.Resources{
		Config: config.RuntimeConfig{Storage: config.StorageConfig{Backend: config.BackendMemory}},
		Blobs:  blobstore.NewMemoryStore(),
	}
	application, err := BuildApplication(context.Background(), nil, resources)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if application.Degraded {
		t.Fatalf("expected healthy application")
	}
	if got := len(application.Catalog.Games(catalogsvc.GameFilter{})); got != 5 {
		t.Fatalf("expected seeded games, got %d", got)
	}

	rec := httptest.NewRecorder()
	application.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/genres", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "tower-defense") {
		t.Fatalf("unexpected genres response %d %s", rec.Code, rec.Body.String())
	}
}

func TestBuildApplicationFallsBackToMemory(t *testing.T) {
	resources := &app.Resources{
		Config: config.RuntimeConfig{Storage: config.StorageConfig{Backend: config.BackendSQLite}},
		Blobs:  brokenStore{},
	}
	application, err := BuildApplication(context.Background(), nil, resources)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !application.Degraded {
		t.Fatalf("expected degraded mode")
	}

	rec := httptest.NewRecorder()
	application.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if !strings.Contains(rec.Body.String(), "degraded") {
		t.Fatalf("expected degraded health, got %s", rec.Body.String())
	}

	if _, err := application.Catalog.AddGenre(context.Background(), catalogsvc.GenreInput{Name: "Racing"}); err != nil {
		t.Fatalf("fallback store must accept writes: %v", err)
	}
}

func TestBuildApplicationRequiresResources(t *testing.T) {
	if _, err := BuildApplication(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected error without resources")
	}
}

func TestBuildApplicationThrottlesBulkData(t *testing.T) {
	resources := &app.Resources{
		Config: config.RuntimeConfig{
			Storage:   config.StorageConfig{Backend: config.BackendMemory},
			RateLimit: config.RateLimitConfig{Limit: 1, Window: time.Minute},
		},
		Blobs: blobstore.NewMemoryStore(),
	}
	application, err := BuildApplication(context.Background(), nil, resources)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		application.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/data/export", nil))
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence %v", codes)
	}
}

func writeSeedDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	games := `[{"id":"lone-game","title":"Lone Game","genreId":"spot-difference","rating":4,"downloads":"1K+","price":"free","status":"published"}]`
	if err := os.WriteFile(filepath.Join(dir, "games.json"), []byte(games), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	return dir
}

func TestNewCatalogStoreUsesConfiguredSeed(t *testing.T) {
	ctx := context.Background()
	cfg := config.RuntimeConfig{Catalog: config.CatalogConfig{SeedDir: writeSeedDir(t)}}
	blobs := blobstore.NewMemoryStore()

	store := NewCatalogStore(cfg, blobs, nil)
	if err := store.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if got := len(store.Games(catalogsvc.GameFilter{})); got != 1 {
		t.Fatalf("expected configured seed with 1 game, got %d", got)
	}
	raw, err := blobs.Load(ctx, domain.KeyGames)
	if err != nil {
		t.Fatalf("load games: %v", err)
	}
	var persisted []domain.Game
	if err := json.Unmarshal(raw, &persisted); err != nil || len(persisted) != 1 {
		t.Fatalf("expected 1 persisted game, got %s (%v)", raw, err)
	}
	genre, err := store.Genre("spot-difference")
	if err != nil || genre.GameCount != 1 {
		t.Fatalf("expected derived count 1, got %+v (%v)", genre, err)
	}

	if _, err := store.AddGenre(ctx, catalogsvc.GenreInput{Name: "Racing"}); err != nil {
		t.Fatalf("add genre: %v", err)
	}
	if err := store.ResetToDefaults(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if got := len(store.Games(catalogsvc.GameFilter{})); got != 1 {
		t.Fatalf("reset must use configured seed, got %d games", got)
	}
}

func TestNewCatalogStoreOptionsOverrideConfig(t *testing.T) {
	ctx := context.Background()
	store := NewCatalogStore(config.RuntimeConfig{}, blobstore.NewMemoryStore(), nil, catalogsvc.WithReconcileOnImport(true))
	if err := store.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	raw := []byte(`{"games":[{"id":"g","title":"G","genreId":"arcade"}],"genres":[{"id":"arcade","name":"Arcade","gameCount":9}]}`)
	result, err := store.ImportSnapshot(ctx, raw)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !result.Reconciled {
		t.Fatalf("expected explicit option to enable reconcile")
	}
	if genre, _ := store.Genre("arcade"); genre.GameCount != 1 {
		t.Fatalf("expected reconciled count 1, got %d", genre.GameCount)
	}
}
