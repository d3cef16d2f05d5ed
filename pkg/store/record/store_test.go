package record

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	kv, err := NewFileKV(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileKV: %v", err)
	}
	s := New(kv, "storyboard")
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	return s
}

func TestLoadSave_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	created := time.Date(2025, 12, 24, 10, 0, 0, 0, time.UTC)
	want := []domain.Character{
		{
			ID:       "c1",
			ScriptID: "s1",
			Name:     "Anna",
			Appearance: domain.Appearance{
				Age:      "30s",
				Hair:     "short red hair",
				Features: []string{"freckles", "round glasses"},
			},
			ReferenceImages: []domain.ImageRef{"c1_0_1", "data:image/png;base64,AAAA"},
			SelectedImage:   "c1_0_1",
			CreatedAt:       created,
			UpdatedAt:       created,
		},
		{ID: "c2", ScriptID: "s1", Name: "Ben", ReferenceImages: []domain.ImageRef{}, CreatedAt: created, UpdatedAt: created},
	}

	if err := Save(s, Characters, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load[domain.Character](s, Characters)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch\n got: %+v\nwant: %+v", got, want)
	}
}

func TestLoad_EmptyCollection(t *testing.T) {
	s := newTestStore(t)
	got, err := Load[domain.Scene](s, Scenes)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty collection, got %v", got)
	}
}

func TestUpdate(t *testing.T) {
	s := newTestStore(t)
	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := s.AddScript(domain.Script{ID: "s1", Title: "draft", Status: domain.ScriptStatusDraft, CreatedAt: old, UpdatedAt: old}); err != nil {
		t.Fatalf("AddScript: %v", err)
	}

	t.Run("patch is merged and updatedAt refreshed", func(t *testing.T) {
		updated, err := s.UpdateScript("s1", func(sc *domain.Script) { sc.Status = domain.ScriptStatusReady })
		if err != nil {
			t.Fatalf("UpdateScript: %v", err)
		}
		if updated.Status != domain.ScriptStatusReady || updated.Title != "draft" {
			t.Errorf("unexpected record: %+v", updated)
		}
		if !updated.UpdatedAt.Equal(s.Now()) || !updated.CreatedAt.Equal(old) {
			t.Errorf("timestamps: created=%s updated=%s", updated.CreatedAt, updated.UpdatedAt)
		}
		stored, _ := s.GetScript("s1")
		if stored.Status != domain.ScriptStatusReady {
			t.Errorf("patch not persisted: %+v", stored)
		}
	})

	t.Run("missing id is a no-op", func(t *testing.T) {
		called := false
		updated, err := s.UpdateScript("nope", func(*domain.Script) { called = true })
		if err != nil || updated != nil || called {
			t.Errorf("expected silent no-op, got %v %v called=%v", updated, err, called)
		}
	})
}

func TestGet_NotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetScene("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteScript_Cascades(t *testing.T) {
	s := newTestStore(t)
	for _, id := range []string{"s1", "s2"} {
		if err := s.AddScript(domain.Script{ID: id}); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.AddCharacters(
		domain.Character{ID: "c1", ScriptID: "s1"},
		domain.Character{ID: "c2", ScriptID: "s2"},
		domain.Character{ID: "c3", ScriptID: "s1"},
	); err != nil {
		t.Fatal(err)
	}
	if err := s.AddScenes(
		domain.Scene{ID: "sc1", ScriptID: "s1"},
		domain.Scene{ID: "sc2", ScriptID: "s2"},
	); err != nil {
		t.Fatal(err)
	}

	removed, err := s.DeleteScript("s1")
	if err != nil {
		t.Fatalf("DeleteScript: %v", err)
	}
	if len(removed.Characters) != 2 || len(removed.Scenes) != 1 {
		t.Errorf("removed = %+v", removed)
	}

	if _, err := s.GetScript("s1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("script s1 should be gone: %v", err)
	}
	chars, _ := Load[domain.Character](s, Characters)
	if len(chars) != 1 || chars[0].ID != "c2" {
		t.Errorf("remaining characters = %+v", chars)
	}
	scenes, _ := Load[domain.Scene](s, Scenes)
	if len(scenes) != 1 || scenes[0].ID != "sc2" {
		t.Errorf("remaining scenes = %+v", scenes)
	}
	if _, err := s.GetScript("s2"); err != nil {
		t.Errorf("script s2 should survive: %v", err)
	}
}

func TestDeleteCharacter_UnlinksScenes(t *testing.T) {
	s := newTestStore(t)
	_ = s.AddCharacters(domain.Character{ID: "c1", ScriptID: "s1"}, domain.Character{ID: "c2", ScriptID: "s1"})
	_ = s.AddScenes(domain.Scene{ID: "sc1", ScriptID: "s1", CharacterIDs: []string{"c1", "c2"}})

	if _, err := s.DeleteCharacter("c1"); err != nil {
		t.Fatalf("DeleteCharacter: %v", err)
	}
	scene, _ := s.GetScene("sc1")
	if !reflect.DeepEqual(scene.CharacterIDs, []string{"c2"}) {
		t.Errorf("characterIds = %v, want [c2]", scene.CharacterIDs)
	}
}

func TestListScenes_SortedBySceneNumber(t *testing.T) {
	s := newTestStore(t)
	_ = s.AddScenes(
		domain.Scene{ID: "b", ScriptID: "s1", SceneNumber: 2},
		domain.Scene{ID: "x", ScriptID: "other", SceneNumber: 1},
		domain.Scene{ID: "a", ScriptID: "s1", SceneNumber: 1},
	)
	scenes, err := s.ListScenes("s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(scenes) != 2 || scenes[0].ID != "a" || scenes[1].ID != "b" {
		t.Errorf("scenes = %+v", scenes)
	}
}

func TestAPIKey(t *testing.T) {
	s := newTestStore(t)
	if key, err := s.APIKey(); err != nil || key != "" {
		t.Fatalf("expected empty key, got %q %v", key, err)
	}
	if err := s.SetAPIKey("secret"); err != nil {
		t.Fatal(err)
	}
	if key, _ := s.APIKey(); key != "secret" {
		t.Errorf("key = %q", key)
	}
	if err := s.SetAPIKey(""); err != nil {
		t.Fatal(err)
	}
	if key, _ := s.APIKey(); key != "" {
		t.Errorf("key should be cleared, got %q", key)
	}
}
