package blob

import "time"

// Kind は画像を格納するオブジェクトコレクションです。
// シーン画像とキャラクター画像は ID の衝突を避け、一括検索の範囲を絞るために別テーブルに分けます。
type Kind string

const (
	SceneImages     Kind = "images"
	CharacterImages Kind = "character-images"
)

// Image は所有者に紐づいた画像ペイロードです。Data は data URL 形式の文字列です。
type Image struct {
	ID        string
	OwnerID   string
	Index     int
	Data      string
	CreatedAt time.Time
}

// SceneImage は images テーブルの行です。
type SceneImage struct {
	ID         string    `gorm:"column:id;primaryKey;size:191"`
	SceneID    string    `gorm:"column:sceneId;size:191;not null"`
	ImageIndex int       `gorm:"column:imageIndex"`
	Data       string    `gorm:"column:data;type:text;not null"`
	CreatedAt  time.Time `gorm:"column:createdAt"`
}

func (SceneImage) TableName() string { return string(SceneImages) }

func (r SceneImage) image() Image {
	return Image{ID: r.ID, OwnerID: r.SceneID, Index: r.ImageIndex, Data: r.Data, CreatedAt: r.CreatedAt}
}

// CharacterImage は character-images テーブルの行です。
type CharacterImage struct {
	ID          string    `gorm:"column:id;primaryKey;size:191"`
	CharacterID string    `gorm:"column:characterId;size:191;not null"`
	ImageIndex  int       `gorm:"column:imageIndex"`
	Data        string    `gorm:"column:data;type:text;not null"`
	CreatedAt   time.Time `gorm:"column:createdAt"`
}

func (CharacterImage) TableName() string { return string(CharacterImages) }

func (r CharacterImage) image() Image {
	return Image{ID: r.ID, OwnerID: r.CharacterID, Index: r.ImageIndex, Data: r.Data, CreatedAt: r.CreatedAt}
}

// schemaMeta はストアのスキーマバージョンを1行だけ保持します。
type schemaMeta struct {
	ID      int `gorm:"column:id;primaryKey"`
	Version int `gorm:"column:version;not null"`
}

func (schemaMeta) TableName() string { return "blob_schema" }
