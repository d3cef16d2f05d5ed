package prompts

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"
)

// TemplateData は解析プロンプトのテンプレートに渡すデータ構造です。
type TemplateData struct {
	InputText string
}

//go:embed analysis.md
var AnalysisPrompt string

// AnalysisPromptBuilder は台本解析用のプロンプトを構築します。
type AnalysisPromptBuilder struct {
	tmpl *template.Template
}

// NewAnalysisPromptBuilder は埋め込みテンプレートを解析して AnalysisPromptBuilder を初期化します。
func NewAnalysisPromptBuilder() (*AnalysisPromptBuilder, error) {
	if AnalysisPrompt == "" {
		return nil, fmt.Errorf("プロンプトテンプレート 'analysis' (go:embed) の読み込みに失敗しました: 内容が空です")
	}
	tmpl, err := template.New("analysis").Parse(AnalysisPrompt)
	if err != nil {
		return nil, fmt.Errorf("プロンプト 'analysis' の解析に失敗: %w", err)
	}
	return &AnalysisPromptBuilder{tmpl: tmpl}, nil
}

// Build は台本本文を埋め込んだ解析プロンプトを返します。
func (b *AnalysisPromptBuilder) Build(text string) (string, error) {
	var sb strings.Builder
	if err := b.tmpl.Execute(&sb, TemplateData{InputText: text}); err != nil {
		return "", fmt.Errorf("プロンプトテンプレートの実行に失敗しました: %w", err)
	}
	return sb.String(), nil
}
