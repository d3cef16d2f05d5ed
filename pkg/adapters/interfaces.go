package adapters

import (
	"context"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// MaxReferenceImages は1回の画像生成に渡せる参照画像の上限なのだ。
const MaxReferenceImages = domain.MaxReferenceImages

// Image はエンコード前の画像バイト列と MIME タイプなのだ。
type Image struct {
	Data     []byte
	MimeType string
}

// DataURL は画像を Blob Store に保存できる data URL 形式にするのだ。
func (i Image) DataURL() string {
	return domain.EncodeDataURL(i.MimeType, i.Data)
}

// Analyzer は台本テキストを構造化された解析結果に変換するのだ
type Analyzer interface {
	Analyze(ctx context.Context, text string) (*domain.AnalysisResult, error)
}

// ImageGenerator はプロンプトと参照画像（先頭8枚まで）から1枚の画像を生成するのだ
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string, refs []Image) (*Image, error)
}

// Factory は認証情報ごとにアダプターを払い出すのだ。
// 認証情報が空の場合は、ネットワークに触れる前にエラーを返さなければならないのだ。
type Factory interface {
	Analyzer(ctx context.Context, apiKey string) (Analyzer, error)
	ImageGenerator(ctx context.Context, apiKey string) (ImageGenerator, error)
}
