package domain

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrUnknownCharacter は解析結果のシーンが、作成されたどのキャラクターとも一致しない名前を参照していることを示します。
var ErrUnknownCharacter = errors.New("scene references an unknown character")

// LinkPolicy はシーンのキャラクター名が一致しなかった場合の扱いです。
type LinkPolicy string

const (
	// LinkPolicyDrop は一致しない名前を黙って捨てます（既定）。
	LinkPolicyDrop LinkPolicy = "drop"
	// LinkPolicyStrict は一致しない名前があれば解析全体を失敗させます。
	LinkPolicyStrict LinkPolicy = "strict"
)

// AnalysisResult は台本解析AIの構造化出力です。永続化はされず、Character と Scene の初期化にのみ使います。
type AnalysisResult struct {
	Genre      string              `json:"genre,omitempty"`
	StyleGuide string              `json:"styleGuide,omitempty"`
	Characters []AnalyzedCharacter `json:"characters"`
	Scenes     []AnalyzedScene     `json:"scenes"`
}

// AnalyzedCharacter は解析結果に含まれるキャラクターです。
type AnalyzedCharacter struct {
	Name          string     `json:"name"`
	Appearance    Appearance `json:"appearance"`
	DefaultOutfit string     `json:"defaultOutfit,omitempty"`
}

// AnalyzedScene は解析結果に含まれるシーンです。登場人物は名前で参照されます。
type AnalyzedScene struct {
	SceneNumber       int      `json:"sceneNumber"`
	Title             string   `json:"title,omitempty"`
	Location          string   `json:"location,omitempty"`
	TimeOfDay         string   `json:"timeOfDay,omitempty"`
	OriginalText      string   `json:"originalText"`
	VisualDescription string   `json:"visualDescription,omitempty"`
	CharacterNames    []string `json:"characterNames"`
}

// NameIndex は名前からキャラクターIDへの検索マップを作ります。
// 大文字小文字は区別し、同名がいる場合は最初のキャラクターが勝ちます。
func NameIndex(chars []Character) map[string]string {
	index := make(map[string]string, len(chars))
	for _, c := range chars {
		if _, exists := index[c.Name]; !exists {
			index[c.Name] = c.ID
		}
	}
	return index
}

// ResolveCharacterIDs はシーンのキャラクター名をIDに変換します。あいまい一致は行いません。
func ResolveCharacterIDs(names []string, index map[string]string, policy LinkPolicy) ([]string, error) {
	ids := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		id, ok := index[name]
		if !ok {
			if policy == LinkPolicyStrict {
				return nil, fmt.Errorf("%w: %q", ErrUnknownCharacter, name)
			}
			slog.Debug("一致するキャラクターがないため名前を捨てます", "name", name)
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}
