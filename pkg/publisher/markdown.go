package publisher

import (
	"fmt"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/prompts"
	"github.com/shouni/go-storyboard-kit/pkg/workflow"
)

const placeholder = "placeholder.png"

type storyboard struct {
	detail *workflow.Detail
	images map[domain.ImageRef]string
}

func (b storyboard) imagePath(ref domain.ImageRef) string {
	if p, ok := b.images[ref]; ok {
		return p
	}
	return placeholder
}

// buildMarkdown は台本、キャラクター、シーンを1枚の Markdown にまとめます。
func buildMarkdown(b storyboard) string {
	d := b.detail
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s\n\n", d.Script.Title))
	if d.Script.Genre != "" {
		sb.WriteString(fmt.Sprintf("- genre: %s\n", d.Script.Genre))
	}
	if d.Script.StyleGuide != "" {
		sb.WriteString(fmt.Sprintf("- style: %s\n", d.Script.StyleGuide))
	}
	sb.WriteString("\n")

	names := make(map[string]string, len(d.Characters))
	if len(d.Characters) > 0 {
		sb.WriteString("## Characters\n\n")
	}
	for _, c := range d.Characters {
		names[c.ID] = c.Name
		sb.WriteString(fmt.Sprintf("### %s\n", c.Name))
		sb.WriteString(fmt.Sprintf("![%s](%s)\n", c.Name, b.imagePath(c.DisplayImage())))
		sb.WriteString(fmt.Sprintf("- appearance: %s\n\n", prompts.AppearanceLine(c)))
	}

	for _, sc := range d.Scenes {
		heading := fmt.Sprintf("Scene %d", sc.SceneNumber)
		if sc.Title != "" {
			heading += ": " + sc.Title
		}
		sb.WriteString(fmt.Sprintf("## %s\n", heading))
		sb.WriteString(fmt.Sprintf("![Scene %d](%s)\n", sc.SceneNumber, b.imagePath(sceneImage(sc))))
		if sc.Location != "" {
			sb.WriteString(fmt.Sprintf("- location: %s\n", sc.Location))
		}
		if sc.TimeOfDay != "" {
			sb.WriteString(fmt.Sprintf("- time: %s\n", sc.TimeOfDay))
		}
		if cast := castNames(sc, names); len(cast) > 0 {
			sb.WriteString(fmt.Sprintf("- characters: %s\n", strings.Join(cast, ", ")))
		}
		sb.WriteString(fmt.Sprintf("- status: %s\n", sc.Status))

		if text := strings.TrimSpace(sc.OriginalText); text != "" {
			sb.WriteString("\n")
			for _, line := range strings.Split(text, "\n") {
				sb.WriteString("> " + line + "\n")
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func castNames(sc domain.Scene, names map[string]string) []string {
	out := make([]string, 0, len(sc.CharacterIDs))
	for _, id := range sc.CharacterIDs {
		if n, ok := names[id]; ok {
			out = append(out, n)
		}
	}
	return out
}
