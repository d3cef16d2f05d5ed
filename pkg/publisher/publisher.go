package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"

	"github.com/shouni/go-storyboard-kit/pkg/adapters"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/store/blob"
	"github.com/shouni/go-storyboard-kit/pkg/workflow"

	"github.com/shouni/go-utils/urlpath"
)

const (
	defaultStoryboardName = "storyboard.md"
	defaultImageDirName   = "images"
	sceneFileName         = "scene.png"
	characterFileName     = "character.png"
)

// ImageSource は ImageRef を画像に解決します。workflow.Manager が満たします。
type ImageSource interface {
	ResolveImage(ctx context.Context, kind blob.Kind, ref domain.ImageRef) (adapters.Image, error)
}

// PublishResult はパブリッシュ処理の結果として生成されたファイルの情報を保持します。
type PublishResult struct {
	MarkdownPath string            // 生成された storyboard.md のパス
	ImagePaths   []string          // 保存された全画像のパスリスト
	Missing      []domain.ImageRef // 解決できずプレースホルダーにした画像
}

// StoryboardPublisher は台本の選択画像と Markdown を書き出します。
type StoryboardPublisher struct {
	source ImageSource
	assets *AssetManager
}

func NewStoryboardPublisher(source ImageSource, writer OutputWriter, outputDir string) *StoryboardPublisher {
	return &StoryboardPublisher{
		source: source,
		assets: NewAssetManager(writer, outputDir),
	}
}

// Publish は画像の保存と Markdown の構築をまとめて実行するのだ！
// 画像が見つからない場合はプレースホルダーにして続行します。
func (p *StoryboardPublisher) Publish(ctx context.Context, detail *workflow.Detail) (PublishResult, error) {
	result := PublishResult{}
	board := storyboard{detail: detail, images: make(map[domain.ImageRef]string)}

	for i, c := range detail.Characters {
		if err := p.export(ctx, &board, &result, blob.CharacterImages, c.DisplayImage(), characterFileName, i+1); err != nil {
			return result, err
		}
	}
	for i, sc := range detail.Scenes {
		if err := p.export(ctx, &board, &result, blob.SceneImages, sceneImage(sc), sceneFileName, i+1); err != nil {
			return result, err
		}
	}

	content := buildMarkdown(board)
	mdPath, err := p.assets.Save(ctx, defaultStoryboardName, []byte(content))
	if err != nil {
		return result, fmt.Errorf("markdownファイルの書き込みに失敗しました: %w", err)
	}
	result.MarkdownPath = mdPath

	slog.Info("ストーリーボードを書き出しました", "script", detail.Script.ID, "markdown", mdPath, "images", len(result.ImagePaths))
	return result, nil
}

// export は1枚の画像を解決して images/ 配下に保存し、Markdown 用の相対パスを記録します。
func (p *StoryboardPublisher) export(ctx context.Context, board *storyboard, result *PublishResult, kind blob.Kind, ref domain.ImageRef, baseName string, index int) error {
	if ref == "" {
		return nil
	}
	img, err := p.source.ResolveImage(ctx, kind, ref)
	if errors.Is(err, domain.ErrImageNotFound) || errors.Is(err, domain.ErrInvalidPayload) {
		slog.Warn("画像を解決できないためプレースホルダーにします", "kind", kind, "error", err)
		result.Missing = append(result.Missing, ref)
		return nil
	}
	if err != nil {
		return fmt.Errorf("画像の解決に失敗しました: %w", err)
	}

	name, err := urlpath.GenerateIndexedPath(baseName, index)
	if err != nil {
		return fmt.Errorf("出力パスの解決に失敗しました: %w", err)
	}
	rel := path.Join(defaultImageDirName, withExtension(name, img.MimeType))
	saved, err := p.assets.Save(ctx, rel, img.Data)
	if err != nil {
		return fmt.Errorf("画像の書き込みに失敗しました: %w", err)
	}
	result.ImagePaths = append(result.ImagePaths, saved)
	board.images[ref] = rel
	return nil
}

// sceneImage は採用画像、なければ最初の生成画像を返します。
func sceneImage(sc domain.Scene) domain.ImageRef {
	if sc.SelectedImage != "" {
		return sc.SelectedImage
	}
	if len(sc.GeneratedImages) > 0 {
		return sc.GeneratedImages[0]
	}
	return ""
}

func withExtension(name, mimeType string) string {
	ext := path.Ext(name)
	base := name[:len(name)-len(ext)]
	switch mimeType {
	case "image/jpeg":
		return base + ".jpg"
	case "image/webp":
		return base + ".webp"
	default:
		return base + ext
	}
}
