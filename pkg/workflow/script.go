package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/store/record"

	"github.com/google/uuid"
)

// CreateScript は下書き状態の台本を登録します。
func (m *Manager) CreateScript(title, rawContent string) (*domain.Script, error) {
	if strings.TrimSpace(rawContent) == "" {
		return nil, fmt.Errorf("台本の本文が空です")
	}
	if strings.TrimSpace(title) == "" {
		title = "Untitled"
	}
	now := m.records.Now()
	script := domain.Script{
		ID:         uuid.NewString(),
		Title:      title,
		RawContent: rawContent,
		Status:     domain.ScriptStatusDraft,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := m.records.AddScript(script); err != nil {
		return nil, fmt.Errorf("台本の保存に失敗しました: %w", err)
	}
	slog.Info("台本を登録しました", "script", script.ID, "title", script.Title)
	return &script, nil
}

// Scripts は登録済みの台本をすべて返します。
func (m *Manager) Scripts() ([]domain.Script, error) {
	return m.records.ListScripts()
}

// ScriptDetail は台本と、その配下のキャラクター・シーンを返します。シーンは sceneNumber 順です。
func (m *Manager) ScriptDetail(id string) (*Detail, error) {
	script, err := m.records.GetScript(id)
	if err != nil {
		return nil, err
	}
	chars, err := m.records.ListCharacters(id)
	if err != nil {
		return nil, err
	}
	scenes, err := m.records.ListScenes(id)
	if err != nil {
		return nil, err
	}
	return &Detail{Script: *script, Characters: chars, Scenes: scenes}, nil
}

// DeleteScript は台本と配下のキャラクター・シーンを削除します。
// 画像は ReclaimPolicy が reclaim の場合だけ Blob Store からも削除します。
func (m *Manager) DeleteScript(ctx context.Context, id string) (*record.Removed, error) {
	if _, err := m.records.GetScript(id); err != nil {
		return nil, err
	}
	removed, err := m.records.DeleteScript(id)
	if err != nil {
		return nil, fmt.Errorf("台本の削除に失敗しました: %w", err)
	}
	if err := m.reclaim(ctx, removed); err != nil {
		return removed, fmt.Errorf("画像の回収に失敗しました: %w", err)
	}
	slog.Info("台本を削除しました", "script", id,
		"characters", len(removed.Characters), "scenes", len(removed.Scenes), "reclaim", m.cfg.ReclaimPolicy)
	return removed, nil
}

// AnalyzeScript は台本をAIで解析し、キャラクターとシーンを作成します。
// 解析や紐付けに失敗した場合は、台本の状態を解析前の値に戻してエラーを返します。
// 再解析では以前のキャラクターとシーンを置き換えます。
func (m *Manager) AnalyzeScript(ctx context.Context, id string) (*Detail, error) {
	script, err := m.records.GetScript(id)
	if err != nil {
		return nil, err
	}
	key, err := m.apiKey()
	if err != nil {
		return nil, err
	}
	analyzer, err := m.factory.Analyzer(ctx, key)
	if err != nil {
		return nil, err
	}

	logger := slog.With("script", script.ID)
	previous := script.Status
	if _, err := m.records.UpdateScript(id, func(s *domain.Script) {
		s.Status = domain.ScriptStatusAnalyzing
	}); err != nil {
		return nil, err
	}

	rollback := func(cause error) error {
		if _, err := m.records.UpdateScript(id, func(s *domain.Script) {
			s.Status = previous
		}); err != nil {
			logger.ErrorContext(ctx, "台本状態のロールバックに失敗しました", "error", err)
		}
		return cause
	}

	logger.InfoContext(ctx, "台本の解析を開始します")
	result, err := analyzer.Analyze(ctx, script.RawContent)
	if err != nil {
		return nil, rollback(fmt.Errorf("台本の解析に失敗しました: %w", err))
	}

	chars, scenes, err := m.buildRecords(script.ID, result)
	if err != nil {
		return nil, rollback(err)
	}

	removed, err := m.records.DeleteChildren(script.ID)
	if err != nil {
		return nil, rollback(err)
	}
	if err := m.reclaim(ctx, removed); err != nil {
		logger.WarnContext(ctx, "以前の画像の回収に失敗しました", "error", err)
	}
	if err := m.records.AddCharacters(chars...); err != nil {
		return nil, rollback(err)
	}
	if err := m.records.AddScenes(scenes...); err != nil {
		return nil, rollback(err)
	}

	if _, err := m.records.UpdateScript(id, func(s *domain.Script) {
		s.Status = domain.ScriptStatusReady
		s.Genre = result.Genre
		s.StyleGuide = result.StyleGuide
	}); err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "台本の解析が完了しました", "characters", len(chars), "scenes", len(scenes))
	return m.ScriptDetail(id)
}

// buildRecords は解析結果から新しいキャラクターとシーンを作ります。
// シーンの登場人物は、ここで作ったキャラクターの名前と完全一致で紐付けます。
func (m *Manager) buildRecords(scriptID string, result *domain.AnalysisResult) ([]domain.Character, []domain.Scene, error) {
	now := m.records.Now()

	chars := make([]domain.Character, 0, len(result.Characters))
	seen := make(map[string]struct{}, len(result.Characters))
	for _, ac := range result.Characters {
		if _, dup := seen[ac.Name]; dup {
			slog.Warn("同名のキャラクターは最初の1人だけを作成します", "name", ac.Name)
			continue
		}
		seen[ac.Name] = struct{}{}
		chars = append(chars, domain.Character{
			ID:              uuid.NewString(),
			ScriptID:        scriptID,
			Name:            ac.Name,
			Appearance:      ac.Appearance,
			DefaultOutfit:   ac.DefaultOutfit,
			ReferenceImages: []domain.ImageRef{},
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}

	index := domain.NameIndex(chars)
	scenes := make([]domain.Scene, 0, len(result.Scenes))
	for i, as := range result.Scenes {
		ids, err := domain.ResolveCharacterIDs(as.CharacterNames, index, m.cfg.LinkPolicy)
		if err != nil {
			return nil, nil, fmt.Errorf("scene %d: %w", i+1, err)
		}
		number := as.SceneNumber
		if number == 0 {
			number = i + 1
		}
		scenes = append(scenes, domain.Scene{
			ID:                uuid.NewString(),
			ScriptID:          scriptID,
			SceneNumber:       number,
			Title:             as.Title,
			Location:          as.Location,
			TimeOfDay:         as.TimeOfDay,
			OriginalText:      as.OriginalText,
			VisualDescription: as.VisualDescription,
			CharacterIDs:      ids,
			GeneratedImages:   []domain.ImageRef{},
			Status:            domain.SceneStatusPending,
			CreatedAt:         now,
			UpdatedAt:         now,
		})
	}
	return chars, scenes, nil
}
