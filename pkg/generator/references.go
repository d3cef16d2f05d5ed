package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/adapters"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/store/blob"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
)

const (
	referenceCacheTTL     = 30 * time.Minute
	referenceCacheCleanup = 1 * time.Hour
)

// CollectReferenceRefs はキャラクター順に「選択中の画像 → 残りの画像」を並べ、
// 重複を除いて先頭 adapters.MaxReferenceImages 件に切り詰めます。
func CollectReferenceRefs(chars []domain.Character) []domain.ImageRef {
	out := make([]domain.ImageRef, 0, adapters.MaxReferenceImages)
	seen := make(map[domain.ImageRef]struct{})
	for _, c := range chars {
		for _, ref := range c.OrderedReferences() {
			if len(out) == adapters.MaxReferenceImages {
				return out
			}
			if _, dup := seen[ref]; dup {
				continue
			}
			seen[ref] = struct{}{}
			out = append(out, ref)
		}
	}
	return out
}

// ReferenceResolver は ImageRef を画像バイト列に解決します。
// Blob Store の画像IDはキャッシュし、インラインのペイロードはストアを引かずにデコードします。
type ReferenceResolver struct {
	blobs BlobStore
	cache *cache.Cache
}

// NewReferenceResolver は ReferenceResolver を初期化します。
func NewReferenceResolver(blobs BlobStore) *ReferenceResolver {
	return &ReferenceResolver{
		blobs: blobs,
		cache: cache.New(referenceCacheTTL, referenceCacheCleanup),
	}
}

func cacheKey(kind blob.Kind, ref domain.ImageRef) string {
	return string(kind) + "/" + string(ref)
}

// Resolve は1件の ImageRef を解決します。
func (r *ReferenceResolver) Resolve(ctx context.Context, kind blob.Kind, ref domain.ImageRef) (adapters.Image, error) {
	if ref.IsInline() {
		mimeType, data, err := domain.DecodeDataURL(string(ref))
		if err != nil {
			return adapters.Image{}, err
		}
		return adapters.Image{Data: data, MimeType: mimeType}, nil
	}

	key := cacheKey(kind, ref)
	if v, ok := r.cache.Get(key); ok {
		if img, ok := v.(adapters.Image); ok {
			return img, nil
		}
	}

	payload, err := r.blobs.GetImage(ctx, kind, string(ref))
	if err != nil {
		return adapters.Image{}, err
	}
	mimeType, data, err := domain.DecodeDataURL(payload)
	if err != nil {
		return adapters.Image{}, fmt.Errorf("image %s: %w", ref, err)
	}
	img := adapters.Image{Data: data, MimeType: mimeType}
	r.cache.SetDefault(key, img)
	return img, nil
}

// Forget は削除された画像をキャッシュから外します。
func (r *ReferenceResolver) Forget(kind blob.Kind, ref domain.ImageRef) {
	r.cache.Delete(cacheKey(kind, ref))
}

// ResolveAll は refs を並列に解決し、元の順序のまま返します。
// 見つからない画像や壊れたペイロードは警告を出して読み飛ばします。
func (r *ReferenceResolver) ResolveAll(ctx context.Context, kind blob.Kind, refs []domain.ImageRef) ([]adapters.Image, error) {
	resolved := make([]*adapters.Image, len(refs))
	eg, egCtx := errgroup.WithContext(ctx)

	for i, ref := range refs {
		eg.Go(func() error {
			img, err := r.Resolve(egCtx, kind, ref)
			if err != nil {
				if errors.Is(err, domain.ErrImageNotFound) || errors.Is(err, domain.ErrInvalidPayload) {
					slog.WarnContext(egCtx, "参照画像を解決できないためスキップします", "ref", ref, "error", err)
					return nil
				}
				return fmt.Errorf("failed to resolve reference %s: %w", ref, err)
			}
			resolved[i] = &img
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	out := make([]adapters.Image, 0, len(refs))
	for _, img := range resolved {
		if img != nil {
			out = append(out, *img)
		}
	}
	return out, nil
}
