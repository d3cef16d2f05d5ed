package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/prompts"
	"github.com/shouni/go-storyboard-kit/pkg/store/blob"
	"github.com/shouni/go-storyboard-kit/pkg/store/record"
)

// GenerateCharacter はキャラクターの肖像画像を生成して参照画像に追加します。
// 試行回数は空き枠までに抑え、未選択なら先頭の参照画像を自動選択します。
func (g *Generator) GenerateCharacter(ctx context.Context, charID string) (*BatchResult, error) {
	char, err := g.records.GetCharacter(charID)
	if err != nil {
		return nil, err
	}

	logger := slog.With("character", char.ID, "name", char.Name)
	attempts := min(g.cfg.CharacterBatchSize, char.RemainingSlots())
	if attempts == 0 {
		logger.InfoContext(ctx, "参照画像が上限に達しているため生成しません")
		return &BatchResult{TargetID: char.ID}, nil
	}

	gen, err := g.imageGenerator(ctx)
	if err != nil {
		return nil, err
	}

	g.progress.set(char.ID, StateGenerating)

	// 既存の参照画像を渡して見た目を揃える
	refs, err := g.CollectReferences(ctx, []domain.Character{*char})
	if err != nil {
		g.progress.set(char.ID, StateFailed)
		return nil, err
	}
	prompt := prompts.BuildCharacterPrompt(*char, g.style)

	logger.InfoContext(ctx, "キャラクター画像の生成を開始します", "attempts", attempts, "references", len(refs))
	res := g.runBatch(ctx, logger, gen, prompt, refs, attempts, blob.CharacterImages, char.ID, len(char.ReferenceImages))

	if len(res.Images) == 0 {
		g.progress.set(char.ID, StateFailed)
		return res, fmt.Errorf("character %s: %w", char.ID, allAttemptsFailed(res.Errors))
	}

	var accepted []domain.ImageRef
	updated, err := g.records.UpdateCharacter(char.ID, func(c *domain.Character) {
		accepted = c.AddReferenceImages(res.Images...)
		c.SelectDefault()
	})
	if err != nil {
		g.progress.set(char.ID, StateFailed)
		return res, fmt.Errorf("生成結果の保存に失敗しました: %w", err)
	}
	if updated == nil {
		g.progress.set(char.ID, StateFailed)
		if _, err := g.blobs.DeleteImagesByOwner(ctx, blob.CharacterImages, char.ID); err != nil {
			logger.WarnContext(ctx, "孤立した画像の削除に失敗しました", "error", err)
		}
		return res, fmt.Errorf("character %s: %w", char.ID, record.ErrNotFound)
	}
	if len(accepted) < len(res.Images) {
		logger.WarnContext(ctx, "上限を超えた生成画像は参照画像に追加されませんでした",
			"generated", len(res.Images), "accepted", len(accepted))
	}

	g.progress.set(char.ID, StateCompleted)
	logger.InfoContext(ctx, "キャラクター画像の生成が完了しました", "images", len(accepted), "failed", len(res.Errors))
	return res, nil
}

// GenerateAllCharacters は参照画像が上限に満たないキャラクターを順に生成します。
func (g *Generator) GenerateAllCharacters(ctx context.Context, scriptID string) (*Report, error) {
	chars, err := g.records.ListCharacters(scriptID)
	if err != nil {
		return nil, err
	}
	if _, err := g.imageGenerator(ctx); err != nil {
		return nil, err
	}

	report := &Report{}
	for _, snapshot := range chars {
		fresh, err := g.records.GetCharacter(snapshot.ID)
		if errors.Is(err, record.ErrNotFound) {
			report.Skipped = append(report.Skipped, snapshot.ID)
			continue
		}
		if err != nil {
			return report, err
		}
		if fresh.RemainingSlots() == 0 {
			report.Skipped = append(report.Skipped, fresh.ID)
			continue
		}

		if err := g.targetLimiter.Wait(ctx); err != nil {
			return report, err
		}

		res, err := g.GenerateCharacter(ctx, fresh.ID)
		if err != nil {
			slog.ErrorContext(ctx, "キャラクターの生成に失敗しました", "character", fresh.ID, "error", err)
		}
		report.Outcomes = append(report.Outcomes, Outcome{TargetID: fresh.ID, Result: res, Err: err})
	}

	slog.InfoContext(ctx, "キャラクターの一括生成が完了しました",
		"script", scriptID, "succeeded", report.Succeeded(), "failed", report.Failed(), "skipped", len(report.Skipped))
	return report, nil
}
