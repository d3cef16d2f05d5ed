package workflow

import (
	"context"
	"fmt"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/store/blob"
	"github.com/shouni/go-storyboard-kit/pkg/store/record"
)

// SetScenePrompt はユーザー編集のプロンプトを設定します。空文字で解除すると生成プロンプトに戻ります。
func (m *Manager) SetScenePrompt(sceneID, prompt string) (*domain.Scene, error) {
	updated, err := m.records.UpdateScene(sceneID, func(s *domain.Scene) {
		s.UserEditedPrompt = prompt
	})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, fmt.Errorf("scene %s: %w", sceneID, record.ErrNotFound)
	}
	return updated, nil
}

// SelectSceneImage は生成済み画像から1枚を選択します。
func (m *Manager) SelectSceneImage(sceneID string, ref domain.ImageRef) (*domain.Scene, error) {
	s, err := m.records.GetScene(sceneID)
	if err != nil {
		return nil, err
	}
	if err := s.SelectImage(ref); err != nil {
		return nil, err
	}
	return m.records.UpdateScene(sceneID, func(s *domain.Scene) {
		s.SelectedImage = ref
	})
}

// SceneImageAt は生成済み画像の index 番目の ImageRef を返します。
// インライン画像はパスに載せられないため、HTTP では位置で画像を指すのだ。
func (m *Manager) SceneImageAt(sceneID string, index int) (domain.ImageRef, error) {
	s, err := m.records.GetScene(sceneID)
	if err != nil {
		return "", err
	}
	if index < 0 || index >= len(s.GeneratedImages) {
		return "", fmt.Errorf("scene %s: image %d: %w", sceneID, index, domain.ErrImageNotFound)
	}
	return s.GeneratedImages[index], nil
}

// RemoveSceneImage は生成済み画像を1枚取り除き、Blob Store からも削除します。
func (m *Manager) RemoveSceneImage(ctx context.Context, sceneID string, ref domain.ImageRef) (*domain.Scene, error) {
	var removed bool
	updated, err := m.records.UpdateScene(sceneID, func(s *domain.Scene) {
		removed = s.RemoveGeneratedImage(ref)
	})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, fmt.Errorf("scene %s: %w", sceneID, record.ErrNotFound)
	}
	if !removed {
		return nil, fmt.Errorf("scene %s: %s: %w", sceneID, ref, domain.ErrImageNotFound)
	}

	if !ref.IsInline() {
		if err := m.blobs.DeleteImage(ctx, blob.SceneImages, string(ref)); err != nil {
			return updated, err
		}
		m.generator.Resolver().Forget(blob.SceneImages, ref)
	}
	return updated, nil
}
