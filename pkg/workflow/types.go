package workflow

import (
	"context"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/store/blob"
)

// BlobStore は Manager が使う Blob Store の操作です。
type BlobStore interface {
	SaveImage(ctx context.Context, kind blob.Kind, ownerID string, index int, payload string) (string, error)
	GetImage(ctx context.Context, kind blob.Kind, id string) (string, error)
	DeleteImage(ctx context.Context, kind blob.Kind, id string) error
	DeleteImagesByOwner(ctx context.Context, kind blob.Kind, ownerID string) (int, error)
}

// Detail は台本と、それに属するキャラクター・シーンをまとめたものです。
type Detail struct {
	Script     domain.Script      `json:"script"`
	Characters []domain.Character `json:"characters"`
	Scenes     []domain.Scene     `json:"scenes"`
}

// UploadResult は参照画像アップロードの結果です。上限を超えた分は Rejected に数えます。
type UploadResult struct {
	Accepted  int              `json:"accepted"`
	Rejected  int              `json:"rejected"`
	Character domain.Character `json:"character"`
}
