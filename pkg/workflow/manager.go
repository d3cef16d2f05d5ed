package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/go-storyboard-kit/pkg/adapters"
	"github.com/shouni/go-storyboard-kit/pkg/config"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/generator"
	"github.com/shouni/go-storyboard-kit/pkg/store/blob"
	"github.com/shouni/go-storyboard-kit/pkg/store/record"

	"golang.org/x/sync/errgroup"
)

// ManagerArgs は Manager の構築に必要な依存関係です。
type ManagerArgs struct {
	Config  config.Config
	Records *record.Store
	Blobs   BlobStore
	Factory adapters.Factory
	// Generator を省略すると Records と Blobs から構築します。
	Generator *generator.Generator
}

// Manager は台本の登録から解析、参照画像の管理、画像生成までの各操作をまとめます。
type Manager struct {
	cfg       config.Config
	records   *record.Store
	blobs     BlobStore
	factory   adapters.Factory
	generator *generator.Generator
}

// New は設定と2つのストアを基に新しい Manager を初期化します。
func New(args ManagerArgs) (*Manager, error) {
	if args.Records == nil {
		return nil, fmt.Errorf("Record Store は必須です")
	}
	if args.Blobs == nil {
		return nil, fmt.Errorf("Blob Store は必須です")
	}
	if args.Factory == nil {
		return nil, fmt.Errorf("adapters.Factory は必須です")
	}

	gen := args.Generator
	if gen == nil {
		var err error
		gen, err = generator.New(generator.Args{
			Records: args.Records,
			Blobs:   args.Blobs,
			Factory: args.Factory,
			Config:  args.Config,
		})
		if err != nil {
			return nil, fmt.Errorf("画像生成エンジンの初期化に失敗しました: %w", err)
		}
	}

	return &Manager{
		cfg:       args.Config,
		records:   args.Records,
		blobs:     args.Blobs,
		factory:   args.Factory,
		generator: gen,
	}, nil
}

// Generator は画像生成バッチを実行する Generator を返します。
func (m *Manager) Generator() *generator.Generator {
	return m.generator
}

// apiKey は呼び出し時点の API キーを返します。
func (m *Manager) apiKey() (string, error) {
	stored, err := m.records.APIKey()
	if err != nil {
		return "", fmt.Errorf("API キーの読み込みに失敗しました: %w", err)
	}
	return m.cfg.ResolveAPIKey(stored), nil
}

// SetAPIKey は API キーを Record Store に保存します。空文字で削除します。
func (m *Manager) SetAPIKey(key string) error {
	return m.records.SetAPIKey(key)
}

// ResolveImage は表示や転送のために ImageRef を画像に解決します。
func (m *Manager) ResolveImage(ctx context.Context, kind blob.Kind, ref domain.ImageRef) (adapters.Image, error) {
	return m.generator.Resolver().Resolve(ctx, kind, ref)
}

// reclaim は削除された子レコードが所有していた画像を Blob Store から削除します。
// ReclaimOrphan の場合は何もしません。
func (m *Manager) reclaim(ctx context.Context, removed *record.Removed) error {
	if removed == nil || m.cfg.ReclaimPolicy != config.ReclaimEager {
		return nil
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for _, c := range removed.Characters {
		eg.Go(func() error {
			n, err := m.blobs.DeleteImagesByOwner(egCtx, blob.CharacterImages, c.ID)
			if err != nil {
				return fmt.Errorf("character %s: %w", c.ID, err)
			}
			slog.Debug("キャラクター画像を回収しました", "character", c.ID, "count", n)
			return nil
		})
	}
	for _, sc := range removed.Scenes {
		eg.Go(func() error {
			n, err := m.blobs.DeleteImagesByOwner(egCtx, blob.SceneImages, sc.ID)
			if err != nil {
				return fmt.Errorf("scene %s: %w", sc.ID, err)
			}
			slog.Debug("シーン画像を回収しました", "scene", sc.ID, "count", n)
			return nil
		})
	}
	return eg.Wait()
}
