package generator

import (
	"context"
	"errors"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/store/blob"
)

// ErrAllAttemptsFailed はバッチ内の試行がすべて失敗したことを示します。
var ErrAllAttemptsFailed = errors.New("all attempts in this batch failed")

// allAttemptsFailed は ErrAllAttemptsFailed に各試行のエラーをつなげます。
// モデルの拒否理由などがそのまま呼び出し元まで届くのだ。
func allAttemptsFailed(attempts []error) error {
	return errors.Join(append([]error{ErrAllAttemptsFailed}, attempts...)...)
}

// RecordStore は生成処理が使う Record Store の操作です。
type RecordStore interface {
	APIKey() (string, error)
	GetScene(id string) (*domain.Scene, error)
	UpdateScene(id string, patch func(*domain.Scene)) (*domain.Scene, error)
	ListScenes(scriptID string) ([]domain.Scene, error)
	GetCharacter(id string) (*domain.Character, error)
	UpdateCharacter(id string, patch func(*domain.Character)) (*domain.Character, error)
	ListCharacters(scriptID string) ([]domain.Character, error)
}

// BlobStore は生成処理が使う Blob Store の操作です。
type BlobStore interface {
	SaveImage(ctx context.Context, kind blob.Kind, ownerID string, index int, payload string) (string, error)
	GetImage(ctx context.Context, kind blob.Kind, id string) (string, error)
	DeleteImagesByOwner(ctx context.Context, kind blob.Kind, ownerID string) (int, error)
}

// BatchResult は1対象に対する1回のバッチの結果です。
type BatchResult struct {
	TargetID string
	Attempts int
	// Images は成功した試行の画像IDで、試行順に並びます。
	Images []domain.ImageRef
	// Errors は失敗した試行のエラーです。バッチ自体は止めずに記録だけします。
	Errors []error
}

// Outcome は一括生成における1対象分の結果です。
type Outcome struct {
	TargetID string
	Result   *BatchResult
	Err      error
}

// Report は一括生成全体の結果です。
type Report struct {
	Outcomes []Outcome
	// Skipped は最新の状態を確認した結果、対象外だったIDです。
	Skipped []string
}

// Succeeded は1枚以上生成できた対象の数を返します。
func (r *Report) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err == nil {
			n++
		}
	}
	return n
}

// Failed はエラーになった対象の数を返します。
func (r *Report) Failed() int {
	return len(r.Outcomes) - r.Succeeded()
}
