package blob

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/domain"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrVersionDowngrade は保存済みより低いスキーマバージョンで開こうとしたことを示します。
var ErrVersionDowngrade = errors.New("blob: requested schema version is lower than stored version")

// Store は画像ペイロードを保持するトランザクショナルなストアです。
// 構造化レコードとは別の層に置くことで、大きなバイナリでレコード側を肥大化させません。
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// row は Kind ごとのテーブル行の型です。
type row interface {
	SceneImage | CharacterImage
	image() Image
}

// collection は1つのオブジェクトコレクションに対する操作です。
type collection interface {
	create(tx *gorm.DB, img Image) error
	take(tx *gorm.DB, id string) (Image, error)
	byOwner(tx *gorm.DB, ownerID string) ([]Image, error)
	delete(tx *gorm.DB, id string) error
}

type table[R row] struct {
	ownerColumn string
	build       func(Image) R
}

func (t table[R]) create(tx *gorm.DB, img Image) error {
	r := t.build(img)
	return tx.Create(&r).Error
}

func (t table[R]) take(tx *gorm.DB, id string) (Image, error) {
	var r R
	if err := tx.Where("id = ?", id).Take(&r).Error; err != nil {
		return Image{}, err
	}
	return r.image(), nil
}

// byOwner はコレクションを所有者で絞り込みます。所有者列に索引は張っていません（単一ユーザー規模前提）。
func (t table[R]) byOwner(tx *gorm.DB, ownerID string) ([]Image, error) {
	var rows []R
	if err := tx.Where(t.ownerColumn+" = ?", ownerID).Order("createdAt, imageIndex").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Image, len(rows))
	for i, r := range rows {
		out[i] = r.image()
	}
	return out, nil
}

func (t table[R]) delete(tx *gorm.DB, id string) error {
	return tx.Where("id = ?", id).Delete(new(R)).Error
}

var collections = map[Kind]collection{
	SceneImages: table[SceneImage]{
		ownerColumn: "sceneId",
		build: func(img Image) SceneImage {
			return SceneImage{ID: img.ID, SceneID: img.OwnerID, ImageIndex: img.Index, Data: img.Data, CreatedAt: img.CreatedAt}
		},
	},
	CharacterImages: table[CharacterImage]{
		ownerColumn: "characterId",
		build: func(img Image) CharacterImage {
			return CharacterImage{ID: img.ID, CharacterID: img.OwnerID, ImageIndex: img.Index, Data: img.Data, CreatedAt: img.CreatedAt}
		},
	},
}

func collectionFor(kind Kind) (collection, error) {
	c, ok := collections[kind]
	if !ok {
		return nil, fmt.Errorf("blob: unknown collection %q", kind)
	}
	return c, nil
}

// Open は sqlite ファイルを開き、必要ならスキーマのアップグレードを一度だけ実行します。
// 何度開いても結果は同じで、既存データの移行は行いません。
func Open(path string, version int) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("blob: open %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("blob: open %s: %w", path, err)
	}
	// sqlite への書き込みは1本の接続に直列化する
	sqlDB.SetMaxOpenConns(1)

	s := &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := s.upgrade(version); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// upgrade は保存済みバージョンより新しい version が宣言された時だけ、不足しているテーブルを作成します。
func (s *Store) upgrade(version int) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		m := tx.Migrator()
		if !m.HasTable(&schemaMeta{}) {
			if err := m.CreateTable(&schemaMeta{}); err != nil {
				return fmt.Errorf("blob: create schema table: %w", err)
			}
		}

		var meta schemaMeta
		err := tx.Where("id = ?", 1).Take(&meta).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("blob: read schema version: %w", err)
		}

		switch {
		case version < meta.Version:
			return fmt.Errorf("%w (stored=%d, requested=%d)", ErrVersionDowngrade, meta.Version, version)
		case version == meta.Version:
			return nil
		}

		for _, model := range []any{&SceneImage{}, &CharacterImage{}} {
			if m.HasTable(model) {
				continue
			}
			if err := m.CreateTable(model); err != nil {
				return fmt.Errorf("blob: create table: %w", err)
			}
		}

		slog.Info("Blob store schema upgraded", "from", meta.Version, "to", version)
		return tx.Save(&schemaMeta{ID: 1, Version: version}).Error
	})
}

// Close は下位の接続を閉じます。
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// NewImageID は 所有者 + 連番 + タイムスタンプ からなる複合IDを作ります。
func NewImageID(ownerID string, index int, at time.Time) string {
	return fmt.Sprintf("%s_%d_%d", ownerID, index, at.UnixMilli())
}

// SaveImage は画像ペイロードを保存し、生成したIDを返します。
func (s *Store) SaveImage(ctx context.Context, kind Kind, ownerID string, index int, payload string) (string, error) {
	c, err := collectionFor(kind)
	if err != nil {
		return "", err
	}
	now := s.now()
	img := Image{
		ID:        NewImageID(ownerID, index, now),
		OwnerID:   ownerID,
		Index:     index,
		Data:      payload,
		CreatedAt: now,
	}
	if err := c.create(s.db.WithContext(ctx), img); err != nil {
		return "", fmt.Errorf("blob: save %s image for %s: %w", kind, ownerID, err)
	}
	return img.ID, nil
}

// GetImage は画像ペイロードを返します。存在しない場合は domain.ErrImageNotFound です。
func (s *Store) GetImage(ctx context.Context, kind Kind, id string) (string, error) {
	c, err := collectionFor(kind)
	if err != nil {
		return "", err
	}
	img, err := c.take(s.db.WithContext(ctx), id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("blob: %s %s: %w", kind, id, domain.ErrImageNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("blob: get %s %s: %w", kind, id, err)
	}
	return img.Data, nil
}

// GetImagesByOwner は所有者の画像をすべて返します。
func (s *Store) GetImagesByOwner(ctx context.Context, kind Kind, ownerID string) ([]Image, error) {
	c, err := collectionFor(kind)
	if err != nil {
		return nil, err
	}
	images, err := c.byOwner(s.db.WithContext(ctx), ownerID)
	if err != nil {
		return nil, fmt.Errorf("blob: list %s for %s: %w", kind, ownerID, err)
	}
	return images, nil
}

// DeleteImage は画像を1件削除します。存在しなくてもエラーにはしません。
func (s *Store) DeleteImage(ctx context.Context, kind Kind, id string) error {
	c, err := collectionFor(kind)
	if err != nil {
		return err
	}
	if err := c.delete(s.db.WithContext(ctx), id); err != nil {
		return fmt.Errorf("blob: delete %s %s: %w", kind, id, err)
	}
	return nil
}

// DeleteImagesByOwner は所有者の画像を列挙してから1件ずつ削除し、削除件数を返します。
// アトミックではないため、途中で失敗すると一部だけ削除された状態が残ります。
func (s *Store) DeleteImagesByOwner(ctx context.Context, kind Kind, ownerID string) (int, error) {
	images, err := s.GetImagesByOwner(ctx, kind, ownerID)
	if err != nil {
		return 0, err
	}
	for i, img := range images {
		if err := s.DeleteImage(ctx, kind, img.ID); err != nil {
			return i, err
		}
	}
	return len(images), nil
}
