package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/adapters"
	"github.com/shouni/go-storyboard-kit/pkg/config"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/prompts"
	"github.com/shouni/go-storyboard-kit/pkg/store/blob"
	"github.com/shouni/go-storyboard-kit/pkg/store/record"

	"golang.org/x/time/rate"
)

// Args は Generator の構築に必要な依存関係です。
type Args struct {
	Records  RecordStore
	Blobs    BlobStore
	Factory  adapters.Factory
	Config   config.Config
	Progress *Progress
	Resolver *ReferenceResolver
}

// Generator はシーンとキャラクターの画像生成バッチを駆動します。
// 1つのバッチ内の呼び出しは常に直列で、前の呼び出しを待ってから次を発行します。
type Generator struct {
	records  RecordStore
	blobs    BlobStore
	factory  adapters.Factory
	cfg      config.Config
	style    prompts.Style
	progress *Progress
	resolver *ReferenceResolver

	// imageLimiter はバッチ内の呼び出し間隔、targetLimiter は一括生成時の対象間の間隔です。
	imageLimiter  *rate.Limiter
	targetLimiter *rate.Limiter
}

// New は Generator を初期化します。
func New(args Args) (*Generator, error) {
	if args.Records == nil {
		return nil, fmt.Errorf("RecordStore は必須です")
	}
	if args.Blobs == nil {
		return nil, fmt.Errorf("BlobStore は必須です")
	}
	if args.Factory == nil {
		return nil, fmt.Errorf("adapters.Factory は必須です")
	}
	style, err := prompts.ParseStyle(args.Config.Style)
	if err != nil {
		return nil, err
	}

	progress := args.Progress
	if progress == nil {
		progress = NewProgress()
	}
	resolver := args.Resolver
	if resolver == nil {
		resolver = NewReferenceResolver(args.Blobs)
	}

	return &Generator{
		records:       args.Records,
		blobs:         args.Blobs,
		factory:       args.Factory,
		cfg:           args.Config,
		style:         style,
		progress:      progress,
		resolver:      resolver,
		imageLimiter:  newLimiter(args.Config.ImageInterval),
		targetLimiter: newLimiter(args.Config.SceneInterval),
	}, nil
}

// newLimiter はバースト1のトークンバケットを返します。間隔が0以下なら待ちません。
func newLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// Progress は対象ごとの進行状態を返します。
func (g *Generator) Progress() *Progress {
	return g.progress
}

// Resolver は参照画像の解決に使う ReferenceResolver を返します。
func (g *Generator) Resolver() *ReferenceResolver {
	return g.resolver
}

// imageGenerator は呼び出し時点の API キーでアダプターを取得します。
// キーがなければネットワークに触れる前に失敗します。
func (g *Generator) imageGenerator(ctx context.Context) (adapters.ImageGenerator, error) {
	stored, err := g.records.APIKey()
	if err != nil {
		return nil, fmt.Errorf("API キーの読み込みに失敗しました: %w", err)
	}
	return g.factory.ImageGenerator(ctx, g.cfg.ResolveAPIKey(stored))
}

// CollectReferences はキャラクターの参照画像を集めて解決します。上限は8枚です。
func (g *Generator) CollectReferences(ctx context.Context, chars []domain.Character) ([]adapters.Image, error) {
	return g.resolver.ResolveAll(ctx, blob.CharacterImages, CollectReferenceRefs(chars))
}

// sceneCharacters はシーンが参照するキャラクターを CharacterIDs の順に読み込みます。
func (g *Generator) sceneCharacters(scene *domain.Scene) ([]domain.Character, error) {
	chars := make([]domain.Character, 0, len(scene.CharacterIDs))
	for _, id := range scene.CharacterIDs {
		c, err := g.records.GetCharacter(id)
		if errors.Is(err, record.ErrNotFound) {
			slog.Warn("シーンが参照するキャラクターが見つかりません", "scene", scene.ID, "character", id)
			continue
		}
		if err != nil {
			return nil, err
		}
		chars = append(chars, *c)
	}
	return chars, nil
}

// runBatch は n 回の生成を直列に実行し、成功した画像を Blob Store に保存します。
// 個々の試行の失敗はログに残して次の試行に進みます。
func (g *Generator) runBatch(ctx context.Context, logger *slog.Logger, gen adapters.ImageGenerator, prompt string, refs []adapters.Image, n int, kind blob.Kind, ownerID string, offset int) *BatchResult {
	res := &BatchResult{TargetID: ownerID, Attempts: n}

	for i := 0; i < n; i++ {
		if err := g.imageLimiter.Wait(ctx); err != nil {
			logger.WarnContext(ctx, "バッチを中断しました", "attempt", i+1, "error", err)
			res.Errors = append(res.Errors, err)
			break
		}

		img, err := gen.GenerateImage(ctx, prompt, refs)
		if err != nil {
			logger.ErrorContext(ctx, "画像生成に失敗しました", "attempt", i+1, "error", err)
			res.Errors = append(res.Errors, fmt.Errorf("attempt %d: %w", i+1, err))
			continue
		}

		id, err := g.blobs.SaveImage(ctx, kind, ownerID, offset+i, img.DataURL())
		if err != nil {
			logger.ErrorContext(ctx, "画像の保存に失敗しました", "attempt", i+1, "error", err)
			res.Errors = append(res.Errors, fmt.Errorf("attempt %d: %w", i+1, err))
			continue
		}

		logger.InfoContext(ctx, "画像を生成しました", "attempt", i+1, "image", id)
		res.Images = append(res.Images, domain.ImageRef(id))
	}

	return res
}

// GenerateScene はシーン1件に対してバッチ生成を実行します。
// 1枚でも成功すれば completed、全滅なら failed にして ErrAllAttemptsFailed を返します。
func (g *Generator) GenerateScene(ctx context.Context, sceneID string) (*BatchResult, error) {
	scene, err := g.records.GetScene(sceneID)
	if err != nil {
		return nil, err
	}
	gen, err := g.imageGenerator(ctx)
	if err != nil {
		return nil, err
	}

	logger := slog.With("scene", scene.ID, "sceneNumber", scene.SceneNumber)
	g.progress.set(scene.ID, StateGenerating)
	if _, err := g.records.UpdateScene(scene.ID, func(s *domain.Scene) {
		s.Status = domain.SceneStatusGenerating
	}); err != nil {
		g.progress.set(scene.ID, StateFailed)
		return nil, fmt.Errorf("シーン状態の更新に失敗しました: %w", err)
	}

	fail := func(prompt string, cause error) error {
		g.progress.set(scene.ID, StateFailed)
		if _, err := g.records.UpdateScene(scene.ID, func(s *domain.Scene) {
			s.Status = domain.SceneStatusFailed
			if prompt != "" {
				s.GeneratedPrompt = prompt
			}
		}); err != nil {
			logger.ErrorContext(ctx, "シーン状態の更新に失敗しました", "error", err)
		}
		return fmt.Errorf("scene %s: %w", scene.ID, cause)
	}

	chars, err := g.sceneCharacters(scene)
	if err != nil {
		return nil, fail("", err)
	}
	refs, err := g.CollectReferences(ctx, chars)
	if err != nil {
		return nil, fail("", err)
	}
	prompt := prompts.BuildScenePrompt(*scene, chars, g.style)

	logger.InfoContext(ctx, "シーン画像の生成を開始します", "attempts", g.cfg.SceneBatchSize, "references", len(refs))
	res := g.runBatch(ctx, logger, gen, prompt, refs, g.cfg.SceneBatchSize, blob.SceneImages, scene.ID, len(scene.GeneratedImages))

	if len(res.Images) == 0 {
		return res, fail(prompt, allAttemptsFailed(res.Errors))
	}

	updated, err := g.records.UpdateScene(scene.ID, func(s *domain.Scene) {
		s.GeneratedPrompt = prompt
		s.AppendGeneratedImages(res.Images...)
		s.Status = domain.SceneStatusCompleted
	})
	if err != nil {
		g.progress.set(scene.ID, StateFailed)
		return res, fmt.Errorf("生成結果の保存に失敗しました: %w", err)
	}
	if updated == nil {
		// 生成中にシーンが削除されたのだ。保存済みの画像も片付ける
		g.progress.set(scene.ID, StateFailed)
		if _, err := g.blobs.DeleteImagesByOwner(ctx, blob.SceneImages, scene.ID); err != nil {
			logger.WarnContext(ctx, "孤立した画像の削除に失敗しました", "error", err)
		}
		return res, fmt.Errorf("scene %s: %w", scene.ID, record.ErrNotFound)
	}

	g.progress.set(scene.ID, StateCompleted)
	logger.InfoContext(ctx, "シーン画像の生成が完了しました", "images", len(res.Images), "failed", len(res.Errors))
	return res, nil
}

// GenerateAllScenes は pending または failed のシーンを順に生成します。
// 各シーンは直前に最新の状態を読み直し、1件の失敗で全体を止めることはしません。
func (g *Generator) GenerateAllScenes(ctx context.Context, scriptID string) (*Report, error) {
	scenes, err := g.records.ListScenes(scriptID)
	if err != nil {
		return nil, err
	}
	if _, err := g.imageGenerator(ctx); err != nil {
		return nil, err
	}

	report := &Report{}
	for _, snapshot := range scenes {
		fresh, err := g.records.GetScene(snapshot.ID)
		if errors.Is(err, record.ErrNotFound) {
			report.Skipped = append(report.Skipped, snapshot.ID)
			continue
		}
		if err != nil {
			return report, err
		}
		if !fresh.NeedsGeneration() {
			report.Skipped = append(report.Skipped, fresh.ID)
			continue
		}

		if err := g.targetLimiter.Wait(ctx); err != nil {
			return report, err
		}

		res, err := g.GenerateScene(ctx, fresh.ID)
		if err != nil {
			slog.ErrorContext(ctx, "シーンの生成に失敗しました", "scene", fresh.ID, "error", err)
		}
		report.Outcomes = append(report.Outcomes, Outcome{TargetID: fresh.ID, Result: res, Err: err})
	}

	slog.InfoContext(ctx, "シーンの一括生成が完了しました",
		"script", scriptID, "succeeded", report.Succeeded(), "failed", report.Failed(), "skipped", len(report.Skipped))
	return report, nil
}
