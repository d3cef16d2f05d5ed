package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/prompts"

	geminiclient "github.com/shouni/go-gemini-client/gemini"
	"google.golang.org/genai"
)

var jsonBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

const analysisSystemPrompt = "You are a script analyst. Reply with exactly one JSON object and nothing else."

// Analyzer は Gemini で台本を解析します。
type Analyzer struct {
	gen    contentGenerator
	model  string
	prompt *prompts.AnalysisPromptBuilder
}

// Analyze は台本テキストを登場人物とシーンに分解します。
func (a *Analyzer) Analyze(ctx context.Context, text string) (*domain.AnalysisResult, error) {
	finalPrompt, err := a.prompt.Build(text)
	if err != nil {
		return nil, fmt.Errorf("プロンプト生成に失敗: %w", err)
	}

	slog.InfoContext(ctx, "Analyzer: Calling Gemini API", "model", a.model)
	parts := []*genai.Part{genai.NewPartFromText(finalPrompt)}
	resp, err := a.gen.GenerateWithParts(ctx, a.model, parts, geminiclient.GenerateOptions{
		SystemPrompt: analysisSystemPrompt,
	})
	if err != nil {
		return nil, fmt.Errorf("台本解析の呼び出しに失敗: %w", err)
	}
	if resp == nil {
		return nil, &ParseError{Err: fmt.Errorf("empty response")}
	}

	return ParseAnalysis(resp.Text)
}

// ParseAnalysis は応答から JSON オブジェクトを取り出して解析します。
// コードブロックがあればそれを優先し、なければ最初の "{" から最後の "}" までを使います。
func ParseAnalysis(raw string) (*domain.AnalysisResult, error) {
	raw = strings.TrimSpace(raw)
	var rawJSON string

	// コードブロックが複数あれば、JSON として読めた最初のものを使うのだ
	for _, m := range jsonBlockRegex.FindAllStringSubmatch(raw, -1) {
		var result domain.AnalysisResult
		if err := json.Unmarshal([]byte(m[1]), &result); err == nil {
			return &result, nil
		}
	}

	first := strings.Index(raw, "{")
	last := strings.LastIndex(raw, "}")
	if first != -1 && last != -1 && last > first {
		rawJSON = raw[first : last+1]
	} else {
		rawJSON = raw
	}

	var result domain.AnalysisResult
	if err := json.Unmarshal([]byte(rawJSON), &result); err != nil {
		return nil, &ParseError{Excerpt: truncateString(raw, 200), Err: err}
	}
	return &result, nil
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
