package domain

import "time"

// ScriptStatus は台本の解析ライフサイクル上の状態です。
type ScriptStatus string

const (
	ScriptStatusDraft      ScriptStatus = "draft"
	ScriptStatusAnalyzing  ScriptStatus = "analyzing"
	ScriptStatusReady      ScriptStatus = "ready"
	ScriptStatusGenerating ScriptStatus = "generating"
	ScriptStatusCompleted  ScriptStatus = "completed"
)

// Script はユーザーが貼り付けた台本本文と、解析で得られたメタデータを保持します。
// Character と Scene は ScriptID で逆参照するだけで、Script 側からは保持しません。
type Script struct {
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	RawContent string       `json:"rawContent"`
	Genre      string       `json:"genre,omitempty"`
	StyleGuide string       `json:"styleGuide,omitempty"`
	Status     ScriptStatus `json:"status"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

func (s *Script) GetID() string       { return s.ID }
func (s *Script) Touch(now time.Time) { s.UpdatedAt = now }
