package builder

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shouni/go-storyboard-kit/pkg/config"
	"github.com/shouni/go-storyboard-kit/pkg/gemini"
	"github.com/shouni/go-storyboard-kit/pkg/store/blob"
	"github.com/shouni/go-storyboard-kit/pkg/store/record"
	"github.com/shouni/go-storyboard-kit/pkg/workflow"
)

const (
	recordsDirName = "records"
	blobFileName   = "images.db"
)

// AppContext は、アプリケーション実行に必要な共通コンテキストを保持する
// これを各コマンドに渡すことで、依存関係の注入を簡素化します。
type AppContext struct {
	Config  config.Config         // Config は、環境変数と設定ファイルから読み込まれた設定です。
	Records *record.Store         // Records は、台本・キャラクター・シーンを保持する Record Store です。
	Blobs   *blob.Store           // Blobs は、画像ペイロードを保持する Blob Store です。
	Factory *gemini.ClientFactory // Factory は、APIキーごとに Gemini クライアントを払い出します。
	Manager *workflow.Manager     // Manager は、各操作をまとめたワークフローです。
}

// NewAppContext はデータディレクトリ配下に2つのストアを開き、AppContext を構築します。
func NewAppContext(cfg config.Config) (*AppContext, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("データディレクトリの作成に失敗しました: %w", err)
	}

	kv, err := record.NewFileKV(filepath.Join(cfg.DataDir, recordsDirName))
	if err != nil {
		return nil, fmt.Errorf("Record Store の初期化に失敗しました: %w", err)
	}
	records := record.New(kv, cfg.Namespace)

	blobs, err := blob.Open(filepath.Join(cfg.DataDir, blobFileName), cfg.BlobSchemaVersion)
	if err != nil {
		return nil, fmt.Errorf("Blob Store の初期化に失敗しました: %w", err)
	}

	factory, err := gemini.NewClientFactory(cfg.GeminiModel, cfg.ImageModel)
	if err != nil {
		_ = blobs.Close()
		return nil, err
	}

	manager, err := workflow.New(workflow.ManagerArgs{
		Config:  cfg,
		Records: records,
		Blobs:   blobs,
		Factory: factory,
	})
	if err != nil {
		_ = blobs.Close()
		return nil, err
	}

	slog.Debug("AppContext を初期化しました", "dataDir", cfg.DataDir, "namespace", cfg.Namespace)
	return &AppContext{
		Config:  cfg,
		Records: records,
		Blobs:   blobs,
		Factory: factory,
		Manager: manager,
	}, nil
}

// Close は開いているストアを閉じます。
func (a *AppContext) Close() error {
	return a.Blobs.Close()
}
