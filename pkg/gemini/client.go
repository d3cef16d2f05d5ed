package gemini

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/adapters"
	"github.com/shouni/go-storyboard-kit/pkg/prompts"

	"github.com/patrickmn/go-cache"
	geminiclient "github.com/shouni/go-gemini-client/gemini"
	"golang.org/x/sync/singleflight"
	"google.golang.org/genai"
)

const (
	clientCacheTTL = 1 * time.Hour

	// バッチ側でペースを管理するので、クライアントのリトライは短く1回だけにするのだ
	defaultMaxRetries   = 1
	defaultInitialDelay = 2 * time.Second
	defaultMaxDelay     = 10 * time.Second
)

// contentGenerator は go-gemini-client の Client のうち、このパッケージが使う部分だけを切り出したものです。
type contentGenerator interface {
	GenerateWithParts(ctx context.Context, modelName string, parts []*genai.Part, opts geminiclient.GenerateOptions) (*geminiclient.Response, error)
}

// newGeminiClient は API キーから Gemini クライアントを作ります。
func newGeminiClient(ctx context.Context, apiKey string) (contentGenerator, error) {
	client, err := geminiclient.NewClient(ctx, geminiclient.Config{
		APIKey:       apiKey,
		MaxRetries:   defaultMaxRetries,
		InitialDelay: defaultInitialDelay,
		MaxDelay:     defaultMaxDelay,
	})
	if err != nil {
		return nil, fmt.Errorf("AIクライアントの初期化に失敗しました: %w", err)
	}
	return client, nil
}

// ClientFactory は API キーごとに Gemini クライアントを生成し、キャッシュします。
// キーが変われば別のクライアントになり、同じキーでの同時初期化は1回にまとめられます。
type ClientFactory struct {
	textModel  string
	imageModel string
	prompt     *prompts.AnalysisPromptBuilder
	newClient  func(ctx context.Context, apiKey string) (contentGenerator, error)
	clients    *cache.Cache
	group      singleflight.Group
}

// NewClientFactory は ClientFactory を初期化します。
func NewClientFactory(textModel, imageModel string) (*ClientFactory, error) {
	pb, err := prompts.NewAnalysisPromptBuilder()
	if err != nil {
		return nil, fmt.Errorf("AnalysisPromptBuilder の新規作成に失敗しました: %w", err)
	}
	return &ClientFactory{
		textModel:  textModel,
		imageModel: imageModel,
		prompt:     pb,
		newClient:  newGeminiClient,
		clients:    cache.New(clientCacheTTL, 2*clientCacheTTL),
	}, nil
}

// credentialKey はキャッシュキーとして生のキーを保持しないためのハッシュです。
func credentialKey(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:])
}

func (f *ClientFactory) client(ctx context.Context, apiKey string) (contentGenerator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrMissingCredential
	}

	key := credentialKey(apiKey)
	if c, ok := f.clients.Get(key); ok {
		return c.(contentGenerator), nil
	}

	val, err, _ := f.group.Do(key, func() (interface{}, error) {
		if c, ok := f.clients.Get(key); ok {
			return c, nil
		}
		// 待っている他の呼び出し元を巻き込まないよう、最初の呼び出し元のキャンセルは伝えないのだ
		c, err := f.newClient(context.WithoutCancel(ctx), apiKey)
		if err != nil {
			return nil, err
		}
		slog.Debug("Gemini client initialized")
		f.clients.SetDefault(key, c)
		return c, nil
	})
	if err != nil {
		return nil, err
	}

	c, ok := val.(contentGenerator)
	if !ok {
		return nil, fmt.Errorf("unexpected return type from singleflight: %T", val)
	}
	return c, nil
}

// Invalidate はキーに対応するキャッシュ済みクライアントを破棄します。
func (f *ClientFactory) Invalidate(apiKey string) {
	f.clients.Delete(credentialKey(strings.TrimSpace(apiKey)))
}

// Analyzer は台本解析アダプターを返します。
func (f *ClientFactory) Analyzer(ctx context.Context, apiKey string) (adapters.Analyzer, error) {
	c, err := f.client(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	return &Analyzer{gen: c, model: f.textModel, prompt: f.prompt}, nil
}

// ImageGenerator は画像生成アダプターを返します。
func (f *ClientFactory) ImageGenerator(ctx context.Context, apiKey string) (adapters.ImageGenerator, error) {
	c, err := f.client(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	return &ImageGenerator{gen: c, model: f.imageModel}, nil
}
