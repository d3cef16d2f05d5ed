package prompts

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Style は画像全体の画風です。
type Style string

const (
	StyleAnime      Style = "anime"
	StyleRealistic  Style = "realistic"
	StyleWatercolor Style = "watercolor"
	StyleComic      Style = "comic"
	StyleCinematic  Style = "cinematic"
	StyleSketch     Style = "sketch"
)

// DefaultStyle は未指定・不明な画風のフォールバックです。
const DefaultStyle = StyleAnime

// styleModifiers は画風ごとに1つ固定の修飾フレーズなのだ。
var styleModifiers = map[Style]string{
	StyleAnime:      "Anime style illustration, clean cel shading, vibrant colors, expressive eyes.",
	StyleRealistic:  "Photorealistic image, natural lighting, realistic skin and fabric textures, high detail.",
	StyleWatercolor: "Watercolor painting, soft washes of color, visible paper texture, gentle edges.",
	StyleComic:      "Western comic book art, bold ink outlines, halftone shading, dynamic colors.",
	StyleCinematic:  "Cinematic film still, dramatic lighting, shallow depth of field, widescreen composition.",
	StyleSketch:     "Pencil sketch, loose graphite lines, cross-hatching, monochrome.",
}

// Modifier は画風の修飾フレーズを返します。不明な画風は DefaultStyle として扱います。
func (s Style) Modifier() string {
	if m, ok := styleModifiers[s]; ok {
		return m
	}
	return styleModifiers[DefaultStyle]
}

// ParseStyle は文字列を Style に変換します。空文字は DefaultStyle です。
func ParseStyle(v string) (Style, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return DefaultStyle, nil
	}
	s := Style(v)
	if _, ok := styleModifiers[s]; !ok {
		supported := make([]string, 0, len(styleModifiers))
		for _, k := range slices.Sorted(maps.Keys(styleModifiers)) {
			supported = append(supported, string(k))
		}
		return "", fmt.Errorf("サポートされていない画風: '%s'。サポートされている画風は [%s] です",
			v, strings.Join(supported, ", "))
	}
	return s, nil
}
