package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/config"
	"github.com/shouni/go-storyboard-kit/pkg/domain"

	"github.com/joho/godotenv"
	"github.com/shouni/go-utils/envutil"
	"gopkg.in/yaml.v3"
)

// LoadConfig はデフォルト値 → YAML ファイル（指定時のみ）→ .env / 環境変数 の順に設定を重ねて返すのだ！
func LoadConfig(path string) (*config.Config, error) {
	// .env は任意なので、見つからなくても気にしないのだ
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Debug(".env の読み込みをスキップしたのだ", "error", err)
	}

	cfg := config.DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv は環境変数で上書きするのだ。未設定の項目は現在の値を既定値として残すよ。
func applyEnv(cfg *config.Config) {
	cfg.GeminiAPIKey = envutil.GetEnv("GEMINI_API_KEY", cfg.GeminiAPIKey)
	cfg.GeminiModel = envutil.GetEnv("GEMINI_MODEL", cfg.GeminiModel)
	cfg.ImageModel = envutil.GetEnv("IMAGE_GEMINI_MODEL", cfg.ImageModel)
	cfg.Style = envutil.GetEnv("STORYBOARD_STYLE", cfg.Style)
	cfg.DataDir = envutil.GetEnv("STORYBOARD_DATA_DIR", cfg.DataDir)
	cfg.Addr = envutil.GetEnv("STORYBOARD_ADDR", cfg.Addr)
	cfg.LinkPolicy = domain.LinkPolicy(envutil.GetEnv("STORYBOARD_LINK_POLICY", string(cfg.LinkPolicy)))
	cfg.ReclaimPolicy = config.ReclaimPolicy(envutil.GetEnv("STORYBOARD_RECLAIM_POLICY", string(cfg.ReclaimPolicy)))
	cfg.ImageInterval = durationEnv("STORYBOARD_IMAGE_INTERVAL", cfg.ImageInterval)
	cfg.SceneInterval = durationEnv("STORYBOARD_SCENE_INTERVAL", cfg.SceneInterval)
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	raw := envutil.GetEnv(key, "")
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("不正な期間指定のため既定値を使うのだ", "key", key, "value", raw, "error", err)
		return fallback
	}
	return d
}

// LogLevel は LOG_LEVEL 環境変数から slog のレベルを決めるのだ。
func LogLevel() slog.Level {
	switch strings.ToLower(envutil.GetEnv("LOG_LEVEL", "info")) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
