package gemini

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredential は API キーが未設定であることを示します。ネットワークに触れる前に返されます。
	ErrMissingCredential = errors.New("gemini: API key is not configured")
	// ErrNoImageData は応答に画像データが含まれていなかったことを示します。
	ErrNoImageData = errors.New("gemini: response contains no image data")
)

// RefusalError はモデルが画像の代わりに返したテキスト（拒否理由など）をそのまま運びます。
type RefusalError struct {
	Message string
}

func (e *RefusalError) Error() string {
	return fmt.Sprintf("gemini: model returned no image: %s", e.Message)
}

// Unwrap により errors.Is(err, ErrNoImageData) でも判定できるのだ。
func (e *RefusalError) Unwrap() error { return ErrNoImageData }

// ParseError は解析応答から有効な JSON を取り出せなかったことを示します。
type ParseError struct {
	Excerpt string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("AIからの応答に含まれるJSONの解析に失敗しました (応答抜粋: %q): %v", e.Excerpt, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
