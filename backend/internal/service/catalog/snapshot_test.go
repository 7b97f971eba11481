package catalog_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	domain "game-showcase/backend/internal/domain/catalog"
	catalog "game-showcase/backend/internal/service/catalog"

	"github.com/google/go-cmp/cmp"
)

func mutateSample(t *testing.T, store *catalog.Store) {
	t.Helper()
	ctx := context.Background()
	if _, err := store.AddGenre(ctx, catalog.GenreInput{Name: "Puzzle", Icon: "fas fa-puzzle-piece"}); err != nil {
		t.Fatalf("add genre: %v", err)
	}
	if _, err := store.AddGame(ctx, catalog.GameInput{Title: "Block Drop", GenreID: "puzzle", Rating: 3.5, Downloads: "5K+", Price: "paid", PriceAmount: "$0.99"}); err != nil {
		t.Fatalf("add game: %v", err)
	}
	if err := store.DeleteGame(ctx, "fantasy-worlds"); err != nil {
		t.Fatalf("delete game: %v", err)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	source, _ := newTestStore(t)
	mutateSample(t, source)

	snapshot := source.ExportSnapshot()
	raw, err := json.Marshal(snapshot)
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	if !strings.Contains(string(raw), `"exportDate"`) {
		t.Fatalf("expected exportDate key in %s", raw)
	}

	target, _ := newTestStore(t)
	result, err := target.ImportSnapshot(ctx, raw)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if diff := cmp.Diff([]string{domain.KeyGames, domain.KeyGenres, domain.KeyActivities}, result.Imported); diff != "" {
		t.Fatalf("unexpected imported keys (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff(snapshot.Games, target.Games(catalog.GameFilter{})); diff != "" {
		t.Fatalf("games differ after round trip (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(snapshot.Genres, target.Genres()); diff != "" {
		t.Fatalf("genres differ after round trip (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(snapshot.Activities, target.Activities(0)); diff != "" {
		t.Fatalf("activities differ after round trip (-want +got):\n%s", diff)
	}

	again := target.ExportSnapshot()
	if diff := cmp.Diff(snapshot.Games, again.Games); diff != "" {
		t.Fatalf("re-export differs (-want +got):\n%s", diff)
	}
}

func TestImportSelfIsNoChange(t *testing.T) {
	ctx := context.Background()
	store, blobs := newTestStore(t)
	mutateSample(t, store)

	before := store.ExportSnapshot()
	rawGenresBefore, err := blobs.Load(ctx, domain.KeyGenres)
	if err != nil {
		t.Fatalf("load genres: %v", err)
	}

	raw, _ := json.Marshal(before)
	if _, err := store.ImportSnapshot(ctx, raw); err != nil {
		t.Fatalf("import: %v", err)
	}

	after := store.ExportSnapshot()
	if diff := cmp.Diff(before.Activities, after.Activities); diff != "" {
		t.Fatalf("import must not log activity (-want +got):\n%s", diff)
	}
	rawGenresAfter, _ := blobs.Load(ctx, domain.KeyGenres)
	if string(rawGenresBefore) != string(rawGenresAfter) {
		t.Fatalf("persisted genres changed:\n%s\n%s", rawGenresBefore, rawGenresAfter)
	}
}

func TestImportPartialSnapshot(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	raw := []byte(`{"genres":[{"id":"spot-difference","name":"Spot It","description":"","icon":"fas fa-eye","gameCount":3},{"id":"tower-defense","name":"Towers","description":"","icon":"","gameCount":2}],"activities":null}`)
	result, err := store.ImportSnapshot(ctx, raw)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if diff := cmp.Diff([]string{domain.KeyGenres}, result.Imported); diff != "" {
		t.Fatalf("unexpected imported keys (-want +got):\n%s", diff)
	}
	if len(store.Games(catalog.GameFilter{})) != 5 {
		t.Fatalf("games must be untouched by partial import")
	}
	genre, err := store.Genre("tower-defense")
	if err != nil {
		t.Fatalf("lookup genre: %v", err)
	}
	if genre.Name != "Towers" || genre.Icon != "fas fa-gamepad" {
		t.Fatalf("unexpected imported genre %+v", genre)
	}

	empty, err := store.ImportSnapshot(ctx, []byte(`{"exportDate":"2025-01-01T00:00:00Z"}`))
	if err != nil {
		t.Fatalf("import of empty snapshot: %v", err)
	}
	if len(empty.Imported) != 0 {
		t.Fatalf("expected nothing imported, got %v", empty.Imported)
	}
}

const staleCountsSnapshot = `{
  "games": [
    {"id": "solo", "title": "Solo", "genreId": "arcade", "rating": 4, "downloads": "1K+", "price": "free", "status": "published"}
  ],
  "genres": [
    {"id": "arcade", "name": "Arcade", "icon": "fas fa-gamepad", "gameCount": 7}
  ]
}`

func TestImportTrustsCountsByDefault(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	result, err := store.ImportSnapshot(ctx, []byte(staleCountsSnapshot))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.Reconciled {
		t.Fatalf("expected counts to be trusted")
	}
	if got := genreCount(t, store, "arcade"); got != 7 {
		t.Fatalf("expected imported count 7 kept, got %d", got)
	}

	changed, err := store.ReconcileCounts(ctx)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !changed || genreCount(t, store, "arcade") != 1 {
		t.Fatalf("expected reconcile to fix count, changed=%v", changed)
	}
	changed, err = store.ReconcileCounts(ctx)
	if err != nil || changed {
		t.Fatalf("expected second reconcile to be a no-op, changed=%v err=%v", changed, err)
	}
}

func TestImportReconcilesWhenEnabled(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, catalog.WithReconcileOnImport(true))

	result, err := store.ImportSnapshot(ctx, []byte(staleCountsSnapshot))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !result.Reconciled {
		t.Fatalf("expected reconciled import")
	}
	if got := genreCount(t, store, "arcade"); got != 1 {
		t.Fatalf("expected derived count 1, got %d", got)
	}
	assertCountsConsistent(t, store)
}

func TestImportRejectsMalformedInput(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	cases := map[string]string{
		"not json":         `{"games": [`,
		"empty":            ``,
		"array root":       `[]`,
		"games not array":  `{"games": "lots"}`,
		"game missing id":  `{"games": [{"title": "No Id"}]}`,
		"negative count":   `{"genres": [{"id": "x", "name": "X", "gameCount": -1}]}`,
		"duplicate game":   `{"games": [{"id": "a", "title": "A"}, {"id": "a", "title": "A again"}]}`,
		"duplicate genre":  `{"genres": [{"id": "g", "name": "G"}, {"id": "g", "name": "G2"}]}`,
		"bad timestamp":    `{"activities": [{"title": "x", "timestamp": "yesterday"}]}`,
		"rating as string": `{"games": [{"id": "a", "title": "A", "rating": "5"}]}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := store.ImportSnapshot(ctx, []byte(raw)); !errors.Is(err, catalog.ErrFormat) {
				t.Fatalf("expected ErrFormat, got %v", err)
			}
		})
	}

	if len(store.Games(catalog.GameFilter{})) != 5 {
		t.Fatalf("failed imports must leave the catalog untouched")
	}
}

func TestImportAcceptsLegacyKeys(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	raw := []byte(`{
  "games": [{"id": "retro", "title": "Retro", "genre": "spot-difference", "rating": 4.1, "downloads": "3K+", "price": "free", "status": "published"}],
  "activities": [
    {"title": "Older", "description": "", "icon": "fas fa-edit", "date": "2024-01-01T10:00:00.000Z"},
    {"title": "Newer", "description": "", "icon": "", "date": "2024-06-01T10:00:00.000Z"}
  ]
}`)
	if _, err := store.ImportSnapshot(ctx, raw); err != nil {
		t.Fatalf("import legacy: %v", err)
	}

	game, err := store.Game("retro")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if game.GenreID != "spot-difference" {
		t.Fatalf("expected legacy genre to map to genreId, got %q", game.GenreID)
	}

	entries := store.Activities(0)
	if len(entries) != 2 || entries[0].Title != "Newer" {
		t.Fatalf("expected activities sorted newest first, got %+v", entries)
	}
	if !entries[0].Timestamp.Equal(time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected legacy timestamp %v", entries[0].Timestamp)
	}
	if entries[0].Icon != "fas fa-info-circle" {
		t.Fatalf("expected default icon, got %q", entries[0].Icon)
	}
}

func TestImportTruncatesActivities(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := make([]domain.ActivityEntry, 0, 70)
	for i := 0; i < 70; i++ {
		entries = append(entries, domain.ActivityEntry{Title: "e", Icon: "fas fa-cog", Timestamp: base.Add(time.Duration(i) * time.Minute)})
	}
	raw, _ := json.Marshal(map[string]any{"activities": entries})

	if _, err := store.ImportSnapshot(ctx, raw); err != nil {
		t.Fatalf("import: %v", err)
	}
	got := store.Activities(0)
	if len(got) != domain.MaxActivities {
		t.Fatalf("expected %d activities, got %d", domain.MaxActivities, len(got))
	}
	if !got[0].Timestamp.Equal(base.Add(69 * time.Minute)) {
		t.Fatalf("expected newest entry first, got %v", got[0].Timestamp)
	}
}

func TestDeleteGenreGuardsStaleZeroCount(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	raw := []byte(`{"games":[{"id":"g","title":"G","genreId":"arcade"}],"genres":[{"id":"arcade","name":"Arcade","gameCount":0}]}`)
	if _, err := store.ImportSnapshot(ctx, raw); err != nil {
		t.Fatalf("import: %v", err)
	}
	if got := genreCount(t, store, "arcade"); got != 0 {
		t.Fatalf("expected trusted count 0, got %d", got)
	}

	if err := store.DeleteGenre(ctx, "arcade"); !errors.Is(err, catalog.ErrConflict) {
		t.Fatalf("expected ErrConflict for referenced genre, got %v", err)
	}
	if _, err := store.Genre("arcade"); err != nil {
		t.Fatalf("genre must be kept: %v", err)
	}
	if _, err := store.Game("g"); err != nil {
		t.Fatalf("game must be kept: %v", err)
	}
}
