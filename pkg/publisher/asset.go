package publisher

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
)

// OutputWriter はデータを外部ストレージに保存するためのインターフェースです。
type OutputWriter interface {
	Write(ctx context.Context, path string, data []byte) error
}

// LocalWriter はローカルファイルシステムに書き込む OutputWriter です。
type LocalWriter struct{}

func (LocalWriter) Write(ctx context.Context, p string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}

// AssetManager は生成物の保存パスと永続化を管理します。
type AssetManager struct {
	writer  OutputWriter
	baseDir string // 保存先のベースディレクトリ (例: "output/storyboard-001")
}

func NewAssetManager(writer OutputWriter, baseDir string) *AssetManager {
	return &AssetManager{
		writer:  writer,
		baseDir: baseDir,
	}
}

// Save はデータを baseDir からの相対パス rel に保存し、そのフルパスを返します。
func (am *AssetManager) Save(ctx context.Context, rel string, data []byte) (string, error) {
	fullPath := filepath.Join(am.baseDir, filepath.FromSlash(rel))
	if err := am.writer.Write(ctx, fullPath, data); err != nil {
		return "", fmt.Errorf("asset_manager: %s の保存に失敗しました: %w", path.Base(rel), err)
	}
	return fullPath, nil
}
