package publisher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shouni/go-storyboard-kit/pkg/adapters"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/store/blob"
	"github.com/shouni/go-storyboard-kit/pkg/workflow"
)

type mapSource map[domain.ImageRef]adapters.Image

func (m mapSource) ResolveImage(_ context.Context, kind blob.Kind, ref domain.ImageRef) (adapters.Image, error) {
	img, ok := m[ref]
	if !ok {
		return adapters.Image{}, fmt.Errorf("%s %s: %w", kind, ref, domain.ErrImageNotFound)
	}
	return img, nil
}

func testDetail() *workflow.Detail {
	return &workflow.Detail{
		Script: domain.Script{ID: "s1", Title: "Cafe", Genre: "slice of life"},
		Characters: []domain.Character{
			{ID: "c1", Name: "Anna", Appearance: domain.Appearance{Hair: "red hair"}, ReferenceImages: []domain.ImageRef{"char-img"}},
			{ID: "c2", Name: "Bob"},
		},
		Scenes: []domain.Scene{
			{ID: "sc1", SceneNumber: 1, Title: "Morning", Location: "cafe", OriginalText: "Anna sips.\nBob waves.",
				CharacterIDs: []string{"c1", "c2"}, GeneratedImages: []domain.ImageRef{"a", "b"}, SelectedImage: "b", Status: domain.SceneStatusCompleted},
			{ID: "sc2", SceneNumber: 2, GeneratedImages: []domain.ImageRef{"gone"}, Status: domain.SceneStatusCompleted},
			{ID: "sc3", SceneNumber: 3, Status: domain.SceneStatusPending},
		},
	}
}

func TestPublish(t *testing.T) {
	dir := t.TempDir()
	source := mapSource{
		"char-img": {Data: []byte("anna"), MimeType: "image/png"},
		"a":        {Data: []byte("first"), MimeType: "image/png"},
		"b":        {Data: []byte("chosen"), MimeType: "image/jpeg"},
	}
	p := NewStoryboardPublisher(source, LocalWriter{}, dir)

	res, err := p.Publish(context.Background(), testDetail())
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if len(res.ImagePaths) != 2 {
		t.Fatalf("ImagePaths = %v, want character and scene 1", res.ImagePaths)
	}
	if len(res.Missing) != 1 || res.Missing[0] != "gone" {
		t.Errorf("Missing = %v", res.Missing)
	}

	// シーン1は選択中の画像が書き出される
	data, err := os.ReadFile(res.ImagePaths[1])
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "chosen" || filepath.Ext(res.ImagePaths[1]) != ".jpg" {
		t.Errorf("scene image = %q at %s", data, res.ImagePaths[1])
	}

	md, err := os.ReadFile(res.MarkdownPath)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(res.MarkdownPath) != "storyboard.md" {
		t.Errorf("MarkdownPath = %s", res.MarkdownPath)
	}
	content := string(md)
	for _, want := range []string{
		"# Cafe\n",
		"- genre: slice of life\n",
		"### Anna\n![Anna](images/",
		"- appearance: red hair, wearing casual\n",
		"### Bob\n![Bob](placeholder.png)\n",
		"## Scene 1: Morning\n",
		"- characters: Anna, Bob\n",
		"> Anna sips.\n> Bob waves.\n",
		"## Scene 2\n![Scene 2](placeholder.png)\n",
		"## Scene 3\n![Scene 3](placeholder.png)\n- status: pending\n",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("markdown missing %q\n%s", want, content)
		}
	}
}

func TestPublish_ResolveError(t *testing.T) {
	p := NewStoryboardPublisher(failingSource{}, LocalWriter{}, t.TempDir())
	if _, err := p.Publish(context.Background(), testDetail()); err == nil {
		t.Fatal("expected error")
	}
}

type failingSource struct{}

func (failingSource) ResolveImage(context.Context, blob.Kind, domain.ImageRef) (adapters.Image, error) {
	return adapters.Image{}, fmt.Errorf("disk on fire")
}
