package project

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/driftwood-studio/loom/internal/story"
)

func openTestDB(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(context.Background(), SQLiteConfig{
		Path: filepath.Join(t.TempDir(), "loom.db"),
	})
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	store := openTestDB(t)
	ctx := context.Background()

	p := &story.Project{
		ID:    "novel-1",
		Title: "The Meridian",
		Characters: []story.Character{
			{ID: "mara", Name: "Mara Voss", Aliases: []string{"the navigator"}},
		},
		ChapterSummaries: []story.ChapterSummary{
			{ID: "s1", ChapterID: "ch-1", ChapterNumber: 1, Summary: "The departure."},
		},
	}
	if err := store.SaveProject(ctx, p); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.GetProject(ctx, "novel-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.Title != "The Meridian" {
		t.Errorf("title lost: %q", loaded.Title)
	}
	if len(loaded.Characters) != 1 || loaded.Characters[0].Aliases[0] != "the navigator" {
		t.Errorf("characters lost: %+v", loaded.Characters)
	}
	if len(loaded.ChapterSummaries) != 1 || loaded.ChapterSummaries[0].Summary != "The departure." {
		t.Errorf("summaries lost: %+v", loaded.ChapterSummaries)
	}
}

func TestSQLiteStore_SaveIsUpsert(t *testing.T) {
	store := openTestDB(t)
	ctx := context.Background()

	p := &story.Project{ID: "novel-1", Title: "First Title"}
	if err := store.SaveProject(ctx, p); err != nil {
		t.Fatalf("save: %v", err)
	}

	p.Title = "Second Title"
	if err := store.SaveProject(ctx, p); err != nil {
		t.Fatalf("resave: %v", err)
	}

	loaded, _ := store.GetProject(ctx, "novel-1")
	if loaded.Title != "Second Title" {
		t.Errorf("save did not replace: %q", loaded.Title)
	}

	all, err := store.ListProjects(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("upsert created duplicate rows: %d", len(all))
	}
}

func TestSQLiteStore_UpdatePatch(t *testing.T) {
	store := openTestDB(t)
	ctx := context.Background()

	if err := store.SaveProject(ctx, &story.Project{ID: "novel-1"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	snapshots := []story.CharacterKnowledgeState{
		{ID: "k1", CharacterID: "mara", AsOfChapterNumber: 2},
	}
	updated, err := store.UpdateProject(ctx, "novel-1", Patch{CharacterKnowledge: &snapshots})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(updated.CharacterKnowledge) != 1 {
		t.Fatalf("patch not applied: %+v", updated.CharacterKnowledge)
	}

	reloaded, _ := store.GetProject(ctx, "novel-1")
	if len(reloaded.CharacterKnowledge) != 1 || reloaded.CharacterKnowledge[0].ID != "k1" {
		t.Error("patch not persisted")
	}
}

func TestSQLiteStore_MissingProject(t *testing.T) {
	store := openTestDB(t)

	if _, err := store.GetProject(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.UpdateProject(context.Background(), "nope", Patch{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}
}
