package prompts

import (
	"fmt"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

const (
	// DefaultOutfit は衣装が未設定のキャラクターに使う値です。
	DefaultOutfit = "casual"

	// ConsistencyDirectives はシーン画像の末尾に付ける固定の指示です。
	ConsistencyDirectives = `### CONSISTENCY & QUALITY ###
- Keep every character's face, hairstyle and body type identical to the provided reference images.
- Recurring characters keep the same outfit unless the scene says otherwise.
- Single coherent illustration, detailed background, balanced composition.
- No text, captions, speech bubbles, signatures or watermarks.`

	// PortraitDirectives はキャラクター参照画像用の固定テンプレートです。
	PortraitDirectives = `### PORTRAIT FORMAT ###
- Single character only, upper body portrait facing the viewer.
- Neutral plain background, even soft lighting.
- Clear, detailed facial features for use as a consistency reference.
- No text, captions or watermarks.`
)

// BuildScenePrompt はシーンと登場キャラクターから画像生成用のプロンプトを組み立てます。
// UserEditedPrompt が設定されていれば、他の項目に関係なくそれをそのまま返します。
// 同じ入力からは常に同じ文字列が得られます。
func BuildScenePrompt(scene domain.Scene, chars []domain.Character, style Style) string {
	if scene.UserEditedPrompt != "" {
		return scene.UserEditedPrompt
	}

	location := orDefault(scene.Location, "unspecified")
	timeOfDay := orDefault(scene.TimeOfDay, "day")

	var sb strings.Builder
	sb.WriteString(style.Modifier())
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("Scene: %s, %s\n", location, timeOfDay))

	if len(chars) > 0 {
		sb.WriteString("\nCharacters:\n")
		for _, c := range chars {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", c.Name, AppearanceLine(c)))
		}
	}

	sb.WriteString("\nDescription: ")
	sb.WriteString(orDefault(scene.VisualDescription, "No description"))
	sb.WriteString("\n\n")
	sb.WriteString(ConsistencyDirectives)

	return sb.String()
}

// BuildCharacterPrompt はシーン文脈を持たないキャラクターの肖像プロンプトを組み立てます。
// BasePrompt が設定されていればそれをそのまま返します。
func BuildCharacterPrompt(char domain.Character, style Style) string {
	if char.BasePrompt != "" {
		return char.BasePrompt
	}

	var sb strings.Builder
	sb.WriteString(style.Modifier())
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("Character portrait of %s.\n", char.Name))
	sb.WriteString(fmt.Sprintf("Appearance: %s\n\n", AppearanceLine(char)))
	sb.WriteString(PortraitDirectives)

	return sb.String()
}

// AppearanceLine は外見の空でない項目を固定順にカンマで繋ぎ、最後に衣装を付けます。
// 順序: age, gender, height, hair, face, skinTone, features...
func AppearanceLine(c domain.Character) string {
	a := c.Appearance
	fields := []string{a.Age, a.Gender, a.Height, a.Hair, a.Face, a.SkinTone}
	fields = append(fields, a.Features...)

	parts := make([]string, 0, len(fields)+1)
	for _, f := range fields {
		if s := strings.TrimSpace(f); s != "" {
			parts = append(parts, s)
		}
	}
	parts = append(parts, "wearing "+orDefault(c.DefaultOutfit, DefaultOutfit))
	return strings.Join(parts, ", ")
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
