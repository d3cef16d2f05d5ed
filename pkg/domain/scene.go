package domain

import (
	"fmt"
	"sort"
	"time"
)

// SceneStatus は画像生成の進行状態です。
// pending → generating → {completed, failed} と進み、completed と failed は再生成で generating に戻れます。
type SceneStatus string

const (
	SceneStatusPending    SceneStatus = "pending"
	SceneStatusGenerating SceneStatus = "generating"
	SceneStatusCompleted  SceneStatus = "completed"
	SceneStatusFailed     SceneStatus = "failed"
)

// Scene は挿絵の対象となる台本の1単位です。
type Scene struct {
	ID                string      `json:"id"`
	ScriptID          string      `json:"scriptId"`
	SceneNumber       int         `json:"sceneNumber"`
	Title             string      `json:"title,omitempty"`
	Location          string      `json:"location,omitempty"`
	TimeOfDay         string      `json:"timeOfDay,omitempty"`
	OriginalText      string      `json:"originalText"`
	VisualDescription string      `json:"visualDescription,omitempty"`
	GeneratedPrompt   string      `json:"generatedPrompt,omitempty"`
	UserEditedPrompt  string      `json:"userEditedPrompt,omitempty"`
	CharacterIDs      []string    `json:"characterIds"`
	GeneratedImages   []ImageRef  `json:"generatedImages"`
	SelectedImage     ImageRef    `json:"selectedImage,omitempty"`
	Status            SceneStatus `json:"status"`
	CreatedAt         time.Time   `json:"createdAt"`
	UpdatedAt         time.Time   `json:"updatedAt"`
}

func (s *Scene) GetID() string       { return s.ID }
func (s *Scene) Touch(now time.Time) { s.UpdatedAt = now }

// NeedsGeneration は一括生成の対象（未生成または失敗）かどうかを返します。
func (s *Scene) NeedsGeneration() bool {
	return s.Status == SceneStatusPending || s.Status == SceneStatusFailed
}

// AppendGeneratedImages は新しい画像を末尾に追加し、その先頭を選択します。
// 直近の生成結果を優先する既定動作で、以前の選択は上書きされます。
func (s *Scene) AppendGeneratedImages(refs ...ImageRef) {
	if len(refs) == 0 {
		return
	}
	s.GeneratedImages = append(s.GeneratedImages, refs...)
	s.SelectedImage = refs[0]
}

// SelectImage は生成済み画像の中から1枚を選択します。
func (s *Scene) SelectImage(ref ImageRef) error {
	if indexOf(s.GeneratedImages, ref) < 0 {
		return fmt.Errorf("scene %s: %w", s.ID, ErrNotSelectable)
	}
	s.SelectedImage = ref
	return nil
}

// RemoveGeneratedImage は生成済み画像を1枚取り除き、選択中だった場合は先頭に戻します。
func (s *Scene) RemoveGeneratedImage(ref ImageRef) bool {
	refs, ok := removeRef(s.GeneratedImages, ref)
	if !ok {
		return false
	}
	s.GeneratedImages = refs
	if s.SelectedImage == ref {
		s.SelectedImage = ""
		if len(refs) > 0 {
			s.SelectedImage = refs[0]
		}
	}
	return true
}

// HasCharacter はシーンがキャラクターを参照しているかを返します。
func (s *Scene) HasCharacter(id string) bool {
	for _, cid := range s.CharacterIDs {
		if cid == id {
			return true
		}
	}
	return false
}

// SortScenes は SceneNumber の昇順で安定ソートします。同番号の順序は保存順のままです。
func SortScenes(scenes []Scene) {
	sort.SliceStable(scenes, func(i, j int) bool {
		return scenes[i].SceneNumber < scenes[j].SceneNumber
	})
}
