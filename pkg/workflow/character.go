package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/go-storyboard-kit/pkg/adapters"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/store/blob"
	"github.com/shouni/go-storyboard-kit/pkg/store/record"
)

// UploadCharacterImages は手動アップロードした画像をインラインの参照画像として追加します。
// 上限8枚に収まる分だけを受け付け、超えた分はエラーにせず捨てます。
func (m *Manager) UploadCharacterImages(charID string, images []adapters.Image) (*UploadResult, error) {
	if _, err := m.records.GetCharacter(charID); err != nil {
		return nil, err
	}

	refs := make([]domain.ImageRef, 0, len(images))
	for _, img := range images {
		refs = append(refs, domain.ImageRef(img.DataURL()))
	}

	var accepted []domain.ImageRef
	updated, err := m.records.UpdateCharacter(charID, func(c *domain.Character) {
		accepted = c.AddReferenceImages(refs...)
		c.SelectDefault()
	})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, fmt.Errorf("character %s: %w", charID, record.ErrNotFound)
	}

	if len(accepted) < len(refs) {
		slog.Warn("参照画像の上限を超えた分は追加しませんでした",
			"character", charID, "uploaded", len(refs), "accepted", len(accepted))
	}
	return &UploadResult{
		Accepted:  len(accepted),
		Rejected:  len(refs) - len(accepted),
		Character: *updated,
	}, nil
}

// SelectCharacterImage はキャラクターの参照画像から1枚を選択します。
func (m *Manager) SelectCharacterImage(charID string, ref domain.ImageRef) (*domain.Character, error) {
	c, err := m.records.GetCharacter(charID)
	if err != nil {
		return nil, err
	}
	if err := c.SelectImage(ref); err != nil {
		return nil, err
	}
	return m.records.UpdateCharacter(charID, func(c *domain.Character) {
		c.SelectedImage = ref
	})
}

// CharacterImageAt は参照画像の index 番目の ImageRef を返します。
func (m *Manager) CharacterImageAt(charID string, index int) (domain.ImageRef, error) {
	c, err := m.records.GetCharacter(charID)
	if err != nil {
		return "", err
	}
	if index < 0 || index >= len(c.ReferenceImages) {
		return "", fmt.Errorf("character %s: image %d: %w", charID, index, domain.ErrImageNotFound)
	}
	return c.ReferenceImages[index], nil
}

// RemoveCharacterImage は参照画像を1枚取り除きます。Blob Store の画像であれば実体も削除します。
func (m *Manager) RemoveCharacterImage(ctx context.Context, charID string, ref domain.ImageRef) (*domain.Character, error) {
	var removed bool
	updated, err := m.records.UpdateCharacter(charID, func(c *domain.Character) {
		removed = c.RemoveReferenceImage(ref)
	})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, fmt.Errorf("character %s: %w", charID, record.ErrNotFound)
	}
	if !removed {
		return nil, fmt.Errorf("character %s: %s: %w", charID, ref, domain.ErrImageNotFound)
	}

	if !ref.IsInline() {
		if err := m.blobs.DeleteImage(ctx, blob.CharacterImages, string(ref)); err != nil {
			return updated, err
		}
		m.generator.Resolver().Forget(blob.CharacterImages, ref)
	}
	return updated, nil
}
