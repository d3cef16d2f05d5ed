package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestScene_AppendGeneratedImages(t *testing.T) {
	s := Scene{GeneratedImages: []ImageRef{"old"}, SelectedImage: "old"}
	s.AppendGeneratedImages("n1", "n3")

	if got := fmt.Sprint(s.GeneratedImages); got != "[old n1 n3]" {
		t.Errorf("期待値 [old n1 n3], 実際の値 %s", got)
	}
	if s.SelectedImage != "n1" {
		t.Errorf("新しい先頭が選択されるはずが %s", s.SelectedImage)
	}

	s.AppendGeneratedImages()
	if s.SelectedImage != "n1" {
		t.Errorf("空の追加で選択が変わってしまいました: %s", s.SelectedImage)
	}
}

func TestScene_SelectAndRemove(t *testing.T) {
	s := Scene{ID: "s1", GeneratedImages: []ImageRef{"a", "b"}}

	if err := s.SelectImage("c"); !errors.Is(err, ErrNotSelectable) {
		t.Errorf("ErrNotSelectable を期待しましたが %v", err)
	}
	if err := s.SelectImage("b"); err != nil {
		t.Fatalf("選択に失敗しました: %v", err)
	}
	s.RemoveGeneratedImage("b")
	if s.SelectedImage != "a" {
		t.Errorf("期待値 a, 実際の値 %s", s.SelectedImage)
	}
}

func TestScene_NeedsGeneration(t *testing.T) {
	tests := map[SceneStatus]bool{
		SceneStatusPending:    true,
		SceneStatusFailed:     true,
		SceneStatusGenerating: false,
		SceneStatusCompleted:  false,
	}
	for status, want := range tests {
		s := Scene{Status: status}
		if got := s.NeedsGeneration(); got != want {
			t.Errorf("%s: 期待値 %v, 実際の値 %v", status, want, got)
		}
	}
}

func TestSortScenes(t *testing.T) {
	scenes := []Scene{{ID: "c", SceneNumber: 3}, {ID: "a", SceneNumber: 1}, {ID: "b1", SceneNumber: 2}, {ID: "b2", SceneNumber: 2}}
	SortScenes(scenes)

	var ids []string
	for _, s := range scenes {
		ids = append(ids, s.ID)
	}
	if got := fmt.Sprint(ids); got != "[a b1 b2 c]" {
		t.Errorf("期待値 [a b1 b2 c], 実際の値 %s", got)
	}
}
