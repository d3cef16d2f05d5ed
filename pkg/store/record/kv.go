package record

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// KV は同期的なキー・バリュー永続化層の契約です。値は文字列として保存されます。
type KV interface {
	// Get はキーの値を返します。存在しない場合は ok=false です。
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(key string) error
}

// FileKV はキーごとに1ファイルを BaseDir 以下に書き出す KV 実装です。
// 書き込みは一時ファイル経由の rename で行い、途中で落ちても半端な内容を残しません。
type FileKV struct {
	BaseDir string

	mu sync.RWMutex
}

// NewFileKV は保存先ディレクトリを作成して FileKV を返します。
func NewFileKV(baseDir string) (*FileKV, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("record: create dir %s: %w", baseDir, err)
	}
	return &FileKV{BaseDir: baseDir}, nil
}

var keySanitizer = strings.NewReplacer(
	"/", "_",
	`\`, "_",
	":", "_",
	"*", "_",
	"?", "_",
	`"`, "_",
	"<", "_",
	">", "_",
	"|", "_",
)

func (kv *FileKV) path(key string) string {
	return filepath.Join(kv.BaseDir, keySanitizer.Replace(key)+".json")
}

func (kv *FileKV) Get(key string) (string, bool, error) {
	kv.mu.RLock()
	defer kv.mu.RUnlock()

	data, err := os.ReadFile(kv.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("record: read %s: %w", key, err)
	}
	return string(data), true, nil
}

func (kv *FileKV) Set(key, value string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	fullPath := kv.path(key)
	tempPath := fullPath + ".tmp"
	if err := os.WriteFile(tempPath, []byte(value), 0o600); err != nil {
		return fmt.Errorf("record: write %s: %w", key, err)
	}
	if err := os.Rename(tempPath, fullPath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("record: commit %s: %w", key, err)
	}
	return nil
}

func (kv *FileKV) Remove(key string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	if err := os.Remove(kv.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("record: remove %s: %w", key, err)
	}
	return nil
}
