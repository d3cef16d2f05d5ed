package config

import (
	"fmt"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// デフォルト値の定義
const (
	DefaultGeminiModel        = "gemini-3-flash-preview"
	DefaultImageModel         = "gemini-3-pro-image-preview"
	DefaultSceneBatchSize     = 3
	DefaultCharacterBatchSize = 3
	DefaultImageInterval      = 1500 * time.Millisecond
	DefaultSceneInterval      = 2 * time.Second
	DefaultStyle              = "anime"
	DefaultDataDir            = "data"
	DefaultNamespace          = "storyboard"
	DefaultBlobSchemaVersion  = 1
	DefaultAddr               = "127.0.0.1:8080"
	DefaultRequestTimeout     = 2 * time.Minute
)

// ReclaimPolicy は台本削除時に子レコードが所有していた画像の扱いです。
type ReclaimPolicy string

const (
	// ReclaimOrphan は Blob Store の画像を残したままにします（既定、容量が無駄になるだけで破損はしない）。
	ReclaimOrphan ReclaimPolicy = "orphan"
	// ReclaimEager は削除したキャラクター・シーンの画像を Blob Store からも削除します。
	ReclaimEager ReclaimPolicy = "reclaim"
)

// Config は storyboard kit の各コンポーネントを動作させるための基本設定です。
type Config struct {
	// --- AI Model Settings ---
	GeminiAPIKey string `yaml:"gemini_api_key"`
	GeminiModel  string `yaml:"gemini_model"`
	ImageModel   string `yaml:"image_model"`

	// --- Generation Settings ---
	Style              string        `yaml:"style"`
	SceneBatchSize     int           `yaml:"scene_batch_size"`
	CharacterBatchSize int           `yaml:"character_batch_size"`
	ImageInterval      time.Duration `yaml:"image_interval"`
	SceneInterval      time.Duration `yaml:"scene_interval"`

	// --- Storage Settings ---
	DataDir           string `yaml:"data_dir"`
	Namespace         string `yaml:"namespace"`
	BlobSchemaVersion int    `yaml:"blob_schema_version"`

	// --- Policies ---
	LinkPolicy    domain.LinkPolicy `yaml:"link_policy"`
	ReclaimPolicy ReclaimPolicy     `yaml:"reclaim_policy"`

	// --- Server & Timeout ---
	Addr           string        `yaml:"addr"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// NewConfig はデフォルト値で初期化された Config に API キーをセットして返します。
func NewConfig(apiKey string) Config {
	cfg := DefaultConfig()
	cfg.GeminiAPIKey = apiKey
	return cfg
}

// DefaultConfig は推奨されるデフォルト設定を返すヘルパー関数です。
func DefaultConfig() Config {
	return Config{
		GeminiModel:        DefaultGeminiModel,
		ImageModel:         DefaultImageModel,
		Style:              DefaultStyle,
		SceneBatchSize:     DefaultSceneBatchSize,
		CharacterBatchSize: DefaultCharacterBatchSize,
		ImageInterval:      DefaultImageInterval,
		SceneInterval:      DefaultSceneInterval,
		DataDir:            DefaultDataDir,
		Namespace:          DefaultNamespace,
		BlobSchemaVersion:  DefaultBlobSchemaVersion,
		LinkPolicy:         domain.LinkPolicyDrop,
		ReclaimPolicy:      ReclaimOrphan,
		Addr:               DefaultAddr,
		RequestTimeout:     DefaultRequestTimeout,
	}
}

// Validate は設定値の整合性を確認します。API キーは呼び出し時に解決するためここでは見ません。
func (c Config) Validate() error {
	if c.SceneBatchSize < 1 || c.CharacterBatchSize < 1 {
		return fmt.Errorf("config: batch sizes must be positive (scene=%d, character=%d)", c.SceneBatchSize, c.CharacterBatchSize)
	}
	if c.ImageInterval < 0 || c.SceneInterval < 0 {
		return fmt.Errorf("config: intervals must not be negative")
	}
	switch c.LinkPolicy {
	case domain.LinkPolicyDrop, domain.LinkPolicyStrict:
	default:
		return fmt.Errorf("config: unknown link policy %q", c.LinkPolicy)
	}
	switch c.ReclaimPolicy {
	case ReclaimOrphan, ReclaimEager:
	default:
		return fmt.Errorf("config: unknown reclaim policy %q", c.ReclaimPolicy)
	}
	if c.Namespace == "" {
		return fmt.Errorf("config: namespace is required")
	}
	if c.BlobSchemaVersion < 1 {
		return fmt.Errorf("config: blob schema version must be >= 1")
	}
	return nil
}

// ResolveAPIKey は呼び出し時点の API キーを決めます。保存済みのキーを優先し、なければ設定値を使います。
func (c Config) ResolveAPIKey(stored string) string {
	if stored != "" {
		return stored
	}
	return c.GeminiAPIKey
}
