package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// Collection は Record Store のトップレベルのコレクション名です。
type Collection string

const (
	Scripts    Collection = "scripts"
	Characters Collection = "characters"
	Scenes     Collection = "scenes"
)

const apiKeyEntry = "apiKey"

// ErrNotFound は指定IDのレコードが存在しないことを示します。
var ErrNotFound = errors.New("record not found")

// Store はコレクション全体を読み書きする同期ストアです。
// 個別操作はすべてコレクション単位の read-modify-write で、楽観ロックは持たず後勝ちです。
// 同一プロセス内の書き込みだけは mu で直列化します。別プロセスからの同時書き込みは保護しません。
type Store struct {
	kv        KV
	namespace string
	now       func() time.Time

	mu sync.Mutex
}

// New は namespace をキーの接頭辞として使う Store を返します。
func New(kv KV, namespace string) *Store {
	return &Store{
		kv:        kv,
		namespace: namespace,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Now は Store が updatedAt に使う現在時刻を返します。
func (s *Store) Now() time.Time {
	return s.now()
}

func (s *Store) key(name string) string {
	return s.namespace + ":" + name
}

// Load はコレクション全体を読み込みます。未保存のコレクションは nil を返します。
func Load[T any](s *Store, c Collection) ([]T, error) {
	raw, ok, err := s.kv.Get(s.key(string(c)))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var items []T
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("record: decode %s: %w", c, err)
	}
	return items, nil
}

// Save はコレクション全体をテキストとして書き込みます。
func Save[T any](s *Store, c Collection, items []T) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("record: encode %s: %w", c, err)
	}
	return s.kv.Set(s.key(string(c)), string(data))
}

// entity は ID で引けて updatedAt を更新できるレコードです。
type entity[T any] interface {
	*T
	GetID() string
	Touch(now time.Time)
}

func indexByID[T any, P entity[T]](items []T, id string) int {
	for i := range items {
		if P(&items[i]).GetID() == id {
			return i
		}
	}
	return -1
}

func get[T any, P entity[T]](s *Store, c Collection, id string) (*T, error) {
	items, err := Load[T](s, c)
	if err != nil {
		return nil, err
	}
	i := indexByID[T, P](items, id)
	if i < 0 {
		return nil, fmt.Errorf("%s %s: %w", c, id, ErrNotFound)
	}
	return &items[i], nil
}

func add[T any](s *Store, c Collection, records ...T) error {
	items, err := Load[T](s, c)
	if err != nil {
		return err
	}
	return Save(s, c, append(items, records...))
}

// update はパッチを適用して updatedAt を更新します。ID がなければ何もせず nil を返します。
func update[T any, P entity[T]](s *Store, c Collection, id string, patch func(P)) (*T, error) {
	items, err := Load[T](s, c)
	if err != nil {
		return nil, err
	}
	i := indexByID[T, P](items, id)
	if i < 0 {
		return nil, nil
	}
	p := P(&items[i])
	patch(p)
	p.Touch(s.now())
	if err := Save(s, c, items); err != nil {
		return nil, err
	}
	updated := items[i]
	return &updated, nil
}

// removeWhere は drop が true を返したレコードを取り除き、取り除いたものを返します。
func removeWhere[T any](s *Store, c Collection, drop func(*T) bool) ([]T, error) {
	items, err := Load[T](s, c)
	if err != nil {
		return nil, err
	}
	kept := make([]T, 0, len(items))
	var removed []T
	for i := range items {
		if drop(&items[i]) {
			removed = append(removed, items[i])
			continue
		}
		kept = append(kept, items[i])
	}
	if len(removed) == 0 {
		return nil, nil
	}
	return removed, Save(s, c, kept)
}

// --- Script ---

func (s *Store) ListScripts() ([]domain.Script, error) {
	return Load[domain.Script](s, Scripts)
}

func (s *Store) GetScript(id string) (*domain.Script, error) {
	return get[domain.Script](s, Scripts, id)
}

func (s *Store) AddScript(script domain.Script) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return add(s, Scripts, script)
}

// UpdateScript はパッチを適用した Script を返します。存在しなければ (nil, nil) です。
func (s *Store) UpdateScript(id string, patch func(*domain.Script)) (*domain.Script, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return update[domain.Script](s, Scripts, id, patch)
}

// Removed はカスケード削除で消えた子レコードです。画像の回収判断に使います。
type Removed struct {
	Characters []domain.Character
	Scenes     []domain.Scene
}

// DeleteScript は Script と、同じ scriptId を持つ Character・Scene をすべて削除します。
// Blob Store の画像には触れません。
func (s *Store) DeleteScript(id string) (*Removed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := removeWhere(s, Scripts, func(sc *domain.Script) bool { return sc.ID == id }); err != nil {
		return nil, err
	}
	return s.deleteChildren(id)
}

// DeleteChildren は Script 自体を残したまま配下の Character・Scene を削除します。
func (s *Store) DeleteChildren(scriptID string) (*Removed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteChildren(scriptID)
}

func (s *Store) deleteChildren(scriptID string) (*Removed, error) {
	chars, err := removeWhere(s, Characters, func(c *domain.Character) bool { return c.ScriptID == scriptID })
	if err != nil {
		return nil, err
	}
	scenes, err := removeWhere(s, Scenes, func(sc *domain.Scene) bool { return sc.ScriptID == scriptID })
	if err != nil {
		return nil, err
	}
	return &Removed{Characters: chars, Scenes: scenes}, nil
}

// --- Character ---

// ListCharacters は scriptId が一致するキャラクターを保存順で返します。
func (s *Store) ListCharacters(scriptID string) ([]domain.Character, error) {
	all, err := Load[domain.Character](s, Characters)
	if err != nil {
		return nil, err
	}
	var out []domain.Character
	for _, c := range all {
		if c.ScriptID == scriptID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) GetCharacter(id string) (*domain.Character, error) {
	return get[domain.Character](s, Characters, id)
}

func (s *Store) AddCharacters(chars ...domain.Character) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return add(s, Characters, chars...)
}

func (s *Store) UpdateCharacter(id string, patch func(*domain.Character)) (*domain.Character, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return update[domain.Character](s, Characters, id, patch)
}

// DeleteCharacter はキャラクターを削除し、同じ台本のシーンからの参照も外します。
func (s *Store) DeleteCharacter(id string) (*domain.Character, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed, err := removeWhere(s, Characters, func(c *domain.Character) bool { return c.ID == id })
	if err != nil || len(removed) == 0 {
		return nil, err
	}
	scenes, err := Load[domain.Scene](s, Scenes)
	if err != nil {
		return nil, err
	}
	changed := false
	for i := range scenes {
		if scenes[i].HasCharacter(id) {
			kept := scenes[i].CharacterIDs[:0:0]
			for _, cid := range scenes[i].CharacterIDs {
				if cid != id {
					kept = append(kept, cid)
				}
			}
			scenes[i].CharacterIDs = kept
			scenes[i].Touch(s.now())
			changed = true
		}
	}
	if changed {
		if err := Save(s, Scenes, scenes); err != nil {
			return nil, err
		}
	}
	return &removed[0], nil
}

// --- Scene ---

// ListScenes は scriptId が一致するシーンを sceneNumber の昇順で返します。
func (s *Store) ListScenes(scriptID string) ([]domain.Scene, error) {
	all, err := Load[domain.Scene](s, Scenes)
	if err != nil {
		return nil, err
	}
	var out []domain.Scene
	for _, sc := range all {
		if sc.ScriptID == scriptID {
			out = append(out, sc)
		}
	}
	domain.SortScenes(out)
	return out, nil
}

func (s *Store) GetScene(id string) (*domain.Scene, error) {
	return get[domain.Scene](s, Scenes, id)
}

func (s *Store) AddScenes(scenes ...domain.Scene) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return add(s, Scenes, scenes...)
}

func (s *Store) UpdateScene(id string, patch func(*domain.Scene)) (*domain.Scene, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return update[domain.Scene](s, Scenes, id, patch)
}

func (s *Store) DeleteScene(id string) (*domain.Scene, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed, err := removeWhere(s, Scenes, func(sc *domain.Scene) bool { return sc.ID == id })
	if err != nil || len(removed) == 0 {
		return nil, err
	}
	return &removed[0], nil
}

// --- Credential ---

// APIKey は保存済みの API キーを返します。未保存なら空文字です。
func (s *Store) APIKey() (string, error) {
	v, _, err := s.kv.Get(s.key(apiKeyEntry))
	return v, err
}

// SetAPIKey は API キーを保存します。空文字を渡すと削除します。
func (s *Store) SetAPIKey(key string) error {
	if key == "" {
		return s.kv.Remove(s.key(apiKeyEntry))
	}
	return s.kv.Set(s.key(apiKeyEntry), key)
}
