package prompts

import (
	"strings"
	"testing"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

func TestBuildScenePrompt(t *testing.T) {
	anna := domain.Character{
		Name: "Anna",
		Appearance: domain.Appearance{
			Age:      "30s",
			Gender:   "female",
			Hair:     "short red hair",
			SkinTone: "fair",
			Features: []string{"freckles", "round glasses"},
		},
	}
	scene := domain.Scene{
		Location:          "cafe",
		VisualDescription: "Anna drinks coffee by the window.",
	}

	t.Run("ユーザー編集プロンプトがそのまま返る", func(t *testing.T) {
		s := scene
		s.UserEditedPrompt = "my own prompt"
		for _, style := range []Style{StyleAnime, StyleSketch} {
			if got := BuildScenePrompt(s, []domain.Character{anna}, style); got != "my own prompt" {
				t.Errorf("got %q", got)
			}
		}
	})

	t.Run("構成要素と順序", func(t *testing.T) {
		got := BuildScenePrompt(scene, []domain.Character{anna}, StyleWatercolor)

		if !strings.HasPrefix(got, StyleWatercolor.Modifier()) {
			t.Errorf("prompt does not start with style modifier:\n%s", got)
		}
		wantLine := "- Anna: 30s, female, short red hair, fair, freckles, round glasses, wearing casual"
		if !strings.Contains(got, wantLine) {
			t.Errorf("character line missing %q:\n%s", wantLine, got)
		}
		if !strings.Contains(got, "Scene: cafe, day") {
			t.Errorf("scene line fallback missing:\n%s", got)
		}
		if !strings.HasSuffix(got, ConsistencyDirectives) {
			t.Errorf("closing block missing:\n%s", got)
		}
		iScene := strings.Index(got, "Scene:")
		iChar := strings.Index(got, "Characters:")
		iDesc := strings.Index(got, "Description:")
		if !(iScene < iChar && iChar < iDesc) {
			t.Errorf("section order wrong: scene=%d chars=%d desc=%d", iScene, iChar, iDesc)
		}
	})

	t.Run("フォールバック", func(t *testing.T) {
		got := BuildScenePrompt(domain.Scene{}, nil, StyleAnime)
		if !strings.Contains(got, "Scene: unspecified, day") {
			t.Errorf("missing location/time fallback:\n%s", got)
		}
		if !strings.Contains(got, "Description: No description") {
			t.Errorf("missing description fallback:\n%s", got)
		}
		if strings.Contains(got, "Characters:") {
			t.Errorf("empty character section rendered:\n%s", got)
		}
	})

	t.Run("純粋関数", func(t *testing.T) {
		a := BuildScenePrompt(scene, []domain.Character{anna}, StyleComic)
		b := BuildScenePrompt(scene, []domain.Character{anna}, StyleComic)
		if a != b {
			t.Error("same input produced different prompts")
		}
	})

	t.Run("衣装指定", func(t *testing.T) {
		c := anna
		c.DefaultOutfit = "trench coat"
		got := BuildScenePrompt(scene, []domain.Character{c}, StyleAnime)
		if !strings.Contains(got, "round glasses, wearing trench coat") {
			t.Errorf("outfit not rendered:\n%s", got)
		}
	})
}

func TestBuildCharacterPrompt(t *testing.T) {
	c := domain.Character{Name: "Bob", Appearance: domain.Appearance{Gender: "male", Height: "tall"}}

	got := BuildCharacterPrompt(c, StyleRealistic)
	for _, want := range []string{StyleRealistic.Modifier(), "Character portrait of Bob.", "Appearance: male, tall, wearing casual", "Neutral plain background"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q:\n%s", want, got)
		}
	}

	c.BasePrompt = "custom portrait"
	if got := BuildCharacterPrompt(c, StyleRealistic); got != "custom portrait" {
		t.Errorf("BasePrompt not honored: %q", got)
	}
}

func TestParseStyle(t *testing.T) {
	tests := []struct {
		in      string
		want    Style
		wantErr bool
	}{
		{"", DefaultStyle, false},
		{"Cinematic", StyleCinematic, false},
		{" sketch ", StyleSketch, false},
		{"oil", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStyle(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseStyle(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseStyle(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}

	if Style("unknown").Modifier() != DefaultStyle.Modifier() {
		t.Error("unknown style should fall back to default modifier")
	}
}

func TestAnalysisPromptBuilder(t *testing.T) {
	b, err := NewAnalysisPromptBuilder()
	if err != nil {
		t.Fatalf("NewAnalysisPromptBuilder() error = %v", err)
	}
	got, err := b.Build("INT. CAFE - DAY\nAnna drinks coffee.")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !strings.Contains(got, "Anna drinks coffee.") {
		t.Errorf("script text not embedded:\n%s", got)
	}
	if !strings.Contains(got, `"characterNames"`) {
		t.Errorf("schema not present:\n%s", got)
	}
}
