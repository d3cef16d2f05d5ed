package domain

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// DefaultMimeType は MIME タイプが不明な画像に使うフォールバックです。
const DefaultMimeType = "image/png"

const dataURLPrefix = "data:"

var (
	// ErrImageNotFound は参照された画像が Blob Store にもインラインにも存在しないことを示します。
	ErrImageNotFound = errors.New("image not found")
	// ErrNotSelectable は選択しようとした画像が候補リストに含まれていないことを示します。
	ErrNotSelectable = errors.New("image is not an element of the candidate list")
	// ErrInvalidPayload は画像ペイロードを data URL / base64 として解釈できないことを示します。
	ErrInvalidPayload = errors.New("invalid image payload")
)

// ImageRef は画像へのハンドルです。
// Blob Store の画像IDか、"data:" で始まる自己完結のインラインペイロード（旧形式・手動アップロード）のどちらかです。
type ImageRef string

// IsInline はストアを引かずにそのまま使えるインラインペイロードかどうかを返します。
func (r ImageRef) IsInline() bool {
	return strings.HasPrefix(string(r), dataURLPrefix)
}

// String は fmt 用の表現です。インラインの場合はペイロード全体を出さないようにします。
func (r ImageRef) String() string {
	if r.IsInline() {
		return fmt.Sprintf("inline(%d bytes)", len(r))
	}
	return string(r)
}

// EncodeDataURL は画像バイト列を data URL 形式のペイロードに変換します。
func EncodeDataURL(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = DefaultMimeType
	}
	return dataURLPrefix + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL は data URL から MIME タイプとバイト列を取り出します。
// プレフィックスのない素の base64 も受け付け、その場合は PNG とみなします。
func DecodeDataURL(payload string) (string, []byte, error) {
	mimeType := DefaultMimeType
	encoded := payload
	if strings.HasPrefix(payload, dataURLPrefix) {
		header, body, ok := strings.Cut(strings.TrimPrefix(payload, dataURLPrefix), ",")
		if !ok {
			return "", nil, fmt.Errorf("%w: data URL にカンマ区切りがありません", ErrInvalidPayload)
		}
		if !strings.HasSuffix(header, ";base64") {
			return "", nil, fmt.Errorf("%w: base64 以外の data URL には対応していません: %q", ErrInvalidPayload, header)
		}
		if m := strings.TrimSuffix(header, ";base64"); m != "" {
			mimeType = m
		}
		encoded = body
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", nil, fmt.Errorf("%w: 画像ペイロードのデコードに失敗しました: %v", ErrInvalidPayload, err)
	}
	return mimeType, data, nil
}

// indexOf は refs 内の ref の位置を返します。見つからなければ -1 です。
func indexOf(refs []ImageRef, ref ImageRef) int {
	for i, r := range refs {
		if r == ref {
			return i
		}
	}
	return -1
}

// removeRef は最初に一致した ref を取り除いた新しいスライスを返します。
func removeRef(refs []ImageRef, ref ImageRef) ([]ImageRef, bool) {
	i := indexOf(refs, ref)
	if i < 0 {
		return refs, false
	}
	out := make([]ImageRef, 0, len(refs)-1)
	out = append(out, refs[:i]...)
	out = append(out, refs[i+1:]...)
	return out, true
}
