package domain

import (
	"fmt"
	"time"
)

// MaxReferenceImages は1キャラクターが保持できる参照画像の上限です。
// 画像生成アダプターに渡せる参照画像の上限とも一致します。
const MaxReferenceImages = 8

// Appearance はプロンプトに注入する外見上の特徴です。空の項目はプロンプトから省かれます。
type Appearance struct {
	Age      string   `json:"age,omitempty"`
	Gender   string   `json:"gender,omitempty"`
	Height   string   `json:"height,omitempty"`
	Hair     string   `json:"hair,omitempty"`
	Face     string   `json:"face,omitempty"`
	SkinTone string   `json:"skinTone,omitempty"`
	Features []string `json:"features,omitempty"`
}

// Character は台本から抽出された、またはユーザーが定義した登場人物です。
type Character struct {
	ID              string     `json:"id"`
	ScriptID        string     `json:"scriptId"`
	Name            string     `json:"name"`
	Appearance      Appearance `json:"appearance"`
	DefaultOutfit   string     `json:"defaultOutfit,omitempty"`
	ReferenceImages []ImageRef `json:"referenceImages"`
	SelectedImage   ImageRef   `json:"selectedImage,omitempty"`
	BasePrompt      string     `json:"basePrompt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func (c *Character) GetID() string       { return c.ID }
func (c *Character) Touch(now time.Time) { c.UpdatedAt = now }

// String はキャラクターの情報を文字列で返すのだ。
func (c Character) String() string {
	return fmt.Sprintf("%s (%s)", c.Name, c.ID)
}

// RemainingSlots はあと何枚参照画像を追加できるかを返します。
func (c *Character) RemainingSlots() int {
	if n := MaxReferenceImages - len(c.ReferenceImages); n > 0 {
		return n
	}
	return 0
}

// AddReferenceImages は上限に収まる分だけ参照画像を末尾に追加し、受け入れた分を返します。
// 上限を超えた分はエラーにせず切り捨てます。
func (c *Character) AddReferenceImages(refs ...ImageRef) []ImageRef {
	room := c.RemainingSlots()
	if room == 0 {
		return nil
	}
	if len(refs) > room {
		refs = refs[:room]
	}
	c.ReferenceImages = append(c.ReferenceImages, refs...)
	return refs
}

// SelectDefault は未選択の場合に限り、先頭の参照画像を選択します。
func (c *Character) SelectDefault() {
	if c.SelectedImage == "" && len(c.ReferenceImages) > 0 {
		c.SelectedImage = c.ReferenceImages[0]
	}
}

// SelectImage は参照画像の中から1枚を選択します。
func (c *Character) SelectImage(ref ImageRef) error {
	if indexOf(c.ReferenceImages, ref) < 0 {
		return fmt.Errorf("character %s: %w", c.ID, ErrNotSelectable)
	}
	c.SelectedImage = ref
	return nil
}

// RemoveReferenceImage は参照画像を1枚取り除きます。
// 選択中の画像を消した場合は、残った先頭の画像（なければ未選択）に戻します。
func (c *Character) RemoveReferenceImage(ref ImageRef) bool {
	refs, ok := removeRef(c.ReferenceImages, ref)
	if !ok {
		return false
	}
	c.ReferenceImages = refs
	if c.SelectedImage == ref {
		c.SelectedImage = ""
		c.SelectDefault()
	}
	return true
}

// DisplayImage は表示用の画像を返します。選択がなければ先頭の参照画像です。
func (c *Character) DisplayImage() ImageRef {
	if c.SelectedImage != "" {
		return c.SelectedImage
	}
	if len(c.ReferenceImages) > 0 {
		return c.ReferenceImages[0]
	}
	return ""
}

// OrderedReferences は選択中の画像を先頭に、残りを挿入順に並べた重複なしのリストを返します。
func (c *Character) OrderedReferences() []ImageRef {
	out := make([]ImageRef, 0, len(c.ReferenceImages)+1)
	if c.SelectedImage != "" {
		out = append(out, c.SelectedImage)
	}
	for _, ref := range c.ReferenceImages {
		if ref != c.SelectedImage {
			out = append(out, ref)
		}
	}
	return out
}
