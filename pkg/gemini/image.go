package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/adapters"
	"github.com/shouni/go-storyboard-kit/pkg/domain"

	geminiclient "github.com/shouni/go-gemini-client/gemini"
	"google.golang.org/genai"
)

// ImageGenerator は Gemini の画像モデルで1枚の画像を生成します。
type ImageGenerator struct {
	gen   contentGenerator
	model string
}

// GenerateImage はプロンプトと参照画像から画像を1枚生成します。参照画像は先頭8枚までしか送りません。
func (g *ImageGenerator) GenerateImage(ctx context.Context, prompt string, refs []adapters.Image) (*adapters.Image, error) {
	if len(refs) > adapters.MaxReferenceImages {
		refs = refs[:adapters.MaxReferenceImages]
	}

	parts := make([]*genai.Part, 0, len(refs)+1)
	for _, ref := range refs {
		mimeType := ref.MimeType
		if mimeType == "" {
			mimeType = domain.DefaultMimeType
		}
		parts = append(parts, genai.NewPartFromBytes(ref.Data, mimeType))
	}
	parts = append(parts, genai.NewPartFromText(prompt))

	resp, err := g.gen.GenerateWithParts(ctx, g.model, parts, geminiclient.GenerateOptions{
		PersonGeneration: geminiclient.PersonGenerationAllowAll,
	})
	if err != nil {
		// 安全フィルターなどによるブロックはモデルの拒否として扱うのだ
		var apiErr *geminiclient.APIResponseError
		if errors.As(err, &apiErr) {
			return nil, &RefusalError{Message: apiErr.Error()}
		}
		return nil, fmt.Errorf("画像生成の呼び出しに失敗: %w", err)
	}
	if resp == nil {
		return nil, ErrNoImageData
	}
	if resp.RawResponse == nil {
		if len(resp.Images) > 0 && len(resp.Images[0]) > 0 {
			return &adapters.Image{Data: resp.Images[0], MimeType: domain.DefaultMimeType}, nil
		}
		if text := strings.TrimSpace(resp.Text); text != "" {
			return nil, &RefusalError{Message: text}
		}
		return nil, ErrNoImageData
	}

	return extractImage(resp.RawResponse)
}

// extractImage は応答から最初の画像を取り出します。
// 画像がなくテキストだけが返ってきた場合は、そのテキストを RefusalError として返します。
func extractImage(resp *genai.GenerateContentResponse) (*adapters.Image, error) {
	if resp == nil {
		return nil, ErrNoImageData
	}
	if pf := resp.PromptFeedback; pf != nil && pf.BlockReason != "" {
		msg := pf.BlockReasonMessage
		if msg == "" {
			msg = string(pf.BlockReason)
		}
		return nil, &RefusalError{Message: msg}
	}

	var texts []string
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil {
				continue
			}
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				mimeType := part.InlineData.MIMEType
				if mimeType == "" {
					mimeType = domain.DefaultMimeType
				}
				return &adapters.Image{Data: part.InlineData.Data, MimeType: mimeType}, nil
			}
			if part.Text != "" && !part.Thought {
				texts = append(texts, part.Text)
			}
		}
	}

	if len(texts) > 0 {
		return nil, &RefusalError{Message: strings.Join(texts, "\n")}
	}
	return nil, ErrNoImageData
}
