package domain

import (
	"errors"
	"fmt"
	"testing"
)

func refs(prefix string, n int) []ImageRef {
	out := make([]ImageRef, n)
	for i := range out {
		out[i] = ImageRef(fmt.Sprintf("%s_%d", prefix, i))
	}
	return out
}

func TestCharacter_AddReferenceImages(t *testing.T) {
	t.Run("7枚ある状態で3枚追加すると1枚だけ受け入れられること", func(t *testing.T) {
		c := Character{ID: "anna", ReferenceImages: refs("old", 7)}

		accepted := c.AddReferenceImages(refs("new", 3)...)

		if len(accepted) != 1 || accepted[0] != "new_0" {
			t.Errorf("期待値 [new_0], 実際の値 %v", accepted)
		}
		if len(c.ReferenceImages) != MaxReferenceImages {
			t.Errorf("期待値 %d, 実際の値 %d", MaxReferenceImages, len(c.ReferenceImages))
		}
	})

	t.Run("上限に達していればエラーにせず何も追加しないこと", func(t *testing.T) {
		c := Character{ID: "anna", ReferenceImages: refs("old", 8)}
		if accepted := c.AddReferenceImages("x"); accepted != nil {
			t.Errorf("受け入れられないはずが %v", accepted)
		}
		if len(c.ReferenceImages) != 8 {
			t.Errorf("期待値 8, 実際の値 %d", len(c.ReferenceImages))
		}
	})

	t.Run("挿入順が保たれること", func(t *testing.T) {
		c := Character{}
		c.AddReferenceImages("a", "b")
		c.AddReferenceImages("c")
		got := fmt.Sprint(c.ReferenceImages)
		if got != "[a b c]" {
			t.Errorf("期待値 [a b c], 実際の値 %s", got)
		}
	})
}

func TestCharacter_Selection(t *testing.T) {
	t.Run("選択中の画像を消すと新しい先頭が選択されること", func(t *testing.T) {
		c := Character{ReferenceImages: []ImageRef{"a", "b", "c"}, SelectedImage: "a"}
		if !c.RemoveReferenceImage("a") {
			t.Fatal("削除に失敗しました")
		}
		if c.SelectedImage != "b" {
			t.Errorf("期待値 b, 実際の値 %s", c.SelectedImage)
		}
	})

	t.Run("最後の1枚を消すと未選択になること", func(t *testing.T) {
		c := Character{ReferenceImages: []ImageRef{"a"}, SelectedImage: "a"}
		c.RemoveReferenceImage("a")
		if c.SelectedImage != "" || len(c.ReferenceImages) != 0 {
			t.Errorf("未選択のはずが selected=%q refs=%v", c.SelectedImage, c.ReferenceImages)
		}
	})

	t.Run("選択していない画像を消しても選択は変わらないこと", func(t *testing.T) {
		c := Character{ReferenceImages: []ImageRef{"a", "b"}, SelectedImage: "b"}
		c.RemoveReferenceImage("a")
		if c.SelectedImage != "b" {
			t.Errorf("期待値 b, 実際の値 %s", c.SelectedImage)
		}
	})

	t.Run("候補にない画像は選択できないこと", func(t *testing.T) {
		c := Character{ID: "anna", ReferenceImages: []ImageRef{"a"}}
		err := c.SelectImage("zzz")
		if !errors.Is(err, ErrNotSelectable) {
			t.Errorf("ErrNotSelectable を期待しましたが %v", err)
		}
	})

	t.Run("SelectDefault は既存の選択を上書きしないこと", func(t *testing.T) {
		c := Character{ReferenceImages: []ImageRef{"a", "b"}, SelectedImage: "b"}
		c.SelectDefault()
		if c.SelectedImage != "b" {
			t.Errorf("期待値 b, 実際の値 %s", c.SelectedImage)
		}
	})
}

func TestCharacter_OrderedReferences(t *testing.T) {
	c := Character{ReferenceImages: []ImageRef{"a", "b", "c"}, SelectedImage: "b"}
	got := fmt.Sprint(c.OrderedReferences())
	if got != "[b a c]" {
		t.Errorf("期待値 [b a c], 実際の値 %s", got)
	}
}

func TestCharacter_String(t *testing.T) {
	c := Character{ID: "test-id", Name: "テスト名"}
	expected := "テスト名 (test-id)"
	if c.String() != expected {
		t.Errorf("期待値 '%s', 実際の値 '%s'", expected, c.String())
	}
}
