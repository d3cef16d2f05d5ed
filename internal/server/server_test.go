package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shouni/go-storyboard-kit/pkg/adapters"
	"github.com/shouni/go-storyboard-kit/pkg/config"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/gemini"
	"github.com/shouni/go-storyboard-kit/pkg/generator"
	"github.com/shouni/go-storyboard-kit/pkg/store/blob"
	"github.com/shouni/go-storyboard-kit/pkg/store/record"
	"github.com/shouni/go-storyboard-kit/pkg/workflow"

	"github.com/gin-gonic/gin"
)

type stubAnalyzer struct{}

func (stubAnalyzer) Analyze(context.Context, string) (*domain.AnalysisResult, error) {
	return &domain.AnalysisResult{
		Characters: []domain.AnalyzedCharacter{{Name: "Anna"}},
		Scenes:     []domain.AnalyzedScene{{SceneNumber: 1, CharacterNames: []string{"Anna"}}},
	}, nil
}

type stubImageGenerator struct{}

func (stubImageGenerator) GenerateImage(context.Context, string, []adapters.Image) (*adapters.Image, error) {
	return &adapters.Image{Data: []byte("png-bytes"), MimeType: "image/png"}, nil
}

// refusingGenerator はモデルが画像の代わりに拒否文を返す場合を再現します。
type refusingGenerator struct{ message string }

func (g refusingGenerator) GenerateImage(context.Context, string, []adapters.Image) (*adapters.Image, error) {
	return nil, &gemini.RefusalError{Message: g.message}
}

type stubFactory struct {
	gen adapters.ImageGenerator
}

func (stubFactory) Analyzer(_ context.Context, key string) (adapters.Analyzer, error) {
	if key == "" {
		return nil, gemini.ErrMissingCredential
	}
	return stubAnalyzer{}, nil
}

func (f stubFactory) ImageGenerator(_ context.Context, key string) (adapters.ImageGenerator, error) {
	if key == "" {
		return nil, gemini.ErrMissingCredential
	}
	if f.gen != nil {
		return f.gen, nil
	}
	return stubImageGenerator{}, nil
}

func setupTestRouter(t *testing.T, apiKey string) (*gin.Engine, *workflow.Manager, *record.Store) {
	t.Helper()
	return setupTestRouterWith(t, apiKey, stubFactory{})
}

func setupTestRouterWith(t *testing.T, apiKey string, factory stubFactory) (*gin.Engine, *workflow.Manager, *record.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	kv, err := record.NewFileKV(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	records := record.New(kv, "test")
	blobs, err := blob.Open(filepath.Join(t.TempDir(), "blob.db"), 1)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = blobs.Close() })

	cfg := config.NewConfig(apiKey)
	cfg.ImageInterval = 0
	cfg.SceneInterval = 0
	m, err := workflow.New(workflow.ManagerArgs{Config: cfg, Records: records, Blobs: blobs, Factory: factory})
	if err != nil {
		t.Fatal(err)
	}
	return NewRouter(m, 0), m, records
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestStart_NilManager(t *testing.T) {
	err := Start(context.Background(), StartOpts{})
	if err == nil || !strings.Contains(err.Error(), "manager is required") {
		t.Errorf("err = %v", err)
	}
}

func TestScriptLifecycle(t *testing.T) {
	router, _, _ := setupTestRouter(t, "key")

	w := doJSON(t, router, http.MethodPost, "/api/scripts", map[string]string{"title": "Cafe", "content": "Anna drinks coffee."})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body)
	}
	var script domain.Script
	if err := json.Unmarshal(w.Body.Bytes(), &script); err != nil {
		t.Fatal(err)
	}

	w = doJSON(t, router, http.MethodPost, "/api/scripts/"+script.ID+"/analyze", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("analyze status = %d, body = %s", w.Code, w.Body)
	}
	var detail workflow.Detail
	if err := json.Unmarshal(w.Body.Bytes(), &detail); err != nil {
		t.Fatal(err)
	}
	if len(detail.Scenes) != 1 || len(detail.Scenes[0].CharacterIDs) != 1 {
		t.Fatalf("detail = %+v", detail)
	}
	sceneID := detail.Scenes[0].ID

	w = doJSON(t, router, http.MethodPost, "/api/scenes/"+sceneID+"/generate", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("generate status = %d, body = %s", w.Code, w.Body)
	}
	var batch batchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &batch); err != nil {
		t.Fatal(err)
	}
	if len(batch.Images) != config.DefaultSceneBatchSize {
		t.Fatalf("images = %d", len(batch.Images))
	}

	w = doJSON(t, router, http.MethodGet, "/api/scenes/"+sceneID+"/images/0", nil)
	if w.Code != http.StatusOK || w.Body.String() != "png-bytes" || w.Header().Get("Content-Type") != "image/png" {
		t.Errorf("image status = %d, type = %q, body = %q", w.Code, w.Header().Get("Content-Type"), w.Body)
	}

	w = doJSON(t, router, http.MethodDelete, "/api/scripts/"+script.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/api/scripts/"+script.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("detail after delete status = %d", w.Code)
	}
}

func TestGenerate_BusyTarget(t *testing.T) {
	router, m, records := setupTestRouter(t, "key")
	if err := records.AddScenes(domain.Scene{ID: "scene-1", ScriptID: "s1", Status: domain.SceneStatusPending}); err != nil {
		t.Fatal(err)
	}

	progress := m.Generator().Progress()
	if !progress.Begin("scene-1") {
		t.Fatal("Begin() failed")
	}
	w := doJSON(t, router, http.MethodPost, "/api/scenes/scene-1/generate", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}

	progress.Release("scene-1")
	w = doJSON(t, router, http.MethodPost, "/api/scenes/scene-1/generate", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status after release = %d, body = %s", w.Code, w.Body)
	}
}

func TestGenerate_MissingCredential(t *testing.T) {
	router, m, records := setupTestRouter(t, "")
	if err := records.AddScenes(domain.Scene{ID: "scene-1", ScriptID: "s1", Status: domain.SceneStatusPending}); err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, router, http.MethodPost, "/api/scenes/scene-1/generate", nil)
	if w.Code != http.StatusPreconditionRequired {
		t.Fatalf("status = %d, want 428 (body = %s)", w.Code, w.Body)
	}
	// キーがなければ状態は変わらない
	if s := m.Generator().Progress().State("scene-1"); s == generator.StateGenerating {
		t.Errorf("progress left %q", s)
	}
	scene, err := records.GetScene("scene-1")
	if err != nil {
		t.Fatal(err)
	}
	if scene.Status != domain.SceneStatusPending {
		t.Errorf("scene status = %q", scene.Status)
	}

	w = doJSON(t, router, http.MethodPut, "/api/settings/api-key", map[string]string{"apiKey": "stored"})
	if w.Code != http.StatusNoContent {
		t.Fatalf("set key status = %d", w.Code)
	}
	w = doJSON(t, router, http.MethodPost, "/api/scenes/scene-1/generate", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, body = %s", w.Code, w.Body)
	}
}

func TestGenerate_RefusalReachesResponse(t *testing.T) {
	const refusal = "I can't depict that person"
	router, _, records := setupTestRouterWith(t, "key", stubFactory{gen: refusingGenerator{message: refusal}})
	if err := records.AddScenes(domain.Scene{ID: "s1", ScriptID: "script", Status: domain.SceneStatusPending}); err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, router, http.MethodPost, "/api/scenes/s1/generate", nil)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502 (body = %s)", w.Code, w.Body)
	}
	var body struct {
		Error  string        `json:"error"`
		Result batchResponse `json:"result"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(body.Error, refusal) {
		t.Errorf("error = %q, want refusal text", body.Error)
	}
	if len(body.Result.Errors) != config.DefaultSceneBatchSize {
		t.Fatalf("result errors = %v", body.Result.Errors)
	}
	for _, e := range body.Result.Errors {
		if !strings.Contains(e, refusal) {
			t.Errorf("attempt error = %q", e)
		}
	}
}

func TestUploadCharacterImages(t *testing.T) {
	router, _, records := setupTestRouter(t, "key")
	if err := records.AddCharacters(domain.Character{ID: "c1", ScriptID: "s1", Name: "Anna"}); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range []string{"a.png", "b.png"} {
		fw, err := mw.CreateFormFile("images", name)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte("\x89PNG\r\n\x1a\n" + name))
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/characters/c1/images", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}
	var res workflow.UploadResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Accepted != 2 || len(res.Character.ReferenceImages) != 2 {
		t.Errorf("result = %+v", res)
	}
	if !strings.HasPrefix(string(res.Character.ReferenceImages[0]), "data:image/png;base64,") {
		t.Errorf("reference = %.40s", res.Character.ReferenceImages[0])
	}
}

func TestCharacterImages_InlineByIndex(t *testing.T) {
	router, m, records := setupTestRouter(t, "key")
	if err := records.AddCharacters(domain.Character{ID: "c1", ScriptID: "s1", Name: "Anna"}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.UploadCharacterImages("c1", []adapters.Image{
		{Data: []byte("first"), MimeType: "image/png"},
		{Data: []byte("second"), MimeType: "image/jpeg"},
	}); err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, router, http.MethodGet, "/api/characters/c1/images/1", nil)
	if w.Code != http.StatusOK || w.Body.String() != "second" || w.Header().Get("Content-Type") != "image/jpeg" {
		t.Fatalf("image status = %d, type = %q, body = %q", w.Code, w.Header().Get("Content-Type"), w.Body)
	}

	w = doJSON(t, router, http.MethodDelete, "/api/characters/c1/images/0", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d, body = %s", w.Code, w.Body)
	}
	char, err := records.GetCharacter("c1")
	if err != nil {
		t.Fatal(err)
	}
	if len(char.ReferenceImages) != 1 {
		t.Fatalf("references = %d, want 1", len(char.ReferenceImages))
	}
	if _, data, err := domain.DecodeDataURL(string(char.ReferenceImages[0])); err != nil || string(data) != "second" {
		t.Errorf("remaining = %q, err = %v", data, err)
	}

	w = doJSON(t, router, http.MethodDelete, "/api/characters/c1/images/1", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("out of range status = %d, want 404", w.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	router, _, records := setupTestRouter(t, "key")
	if err := records.AddScenes(domain.Scene{ID: "scene-1", ScriptID: "s1", GeneratedImages: []domain.ImageRef{"a"}}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"存在しない台本", http.MethodGet, "/api/scripts/missing", nil, http.StatusNotFound},
		{"候補にない画像の選択", http.MethodPut, "/api/scenes/scene-1/selection", map[string]string{"image": "zzz"}, http.StatusUnprocessableEntity},
		{"本文なしの台本", http.MethodPost, "/api/scripts", map[string]string{"title": "x"}, http.StatusBadRequest},
		{"画像番号が数値でない", http.MethodGet, "/api/scenes/scene-1/images/x", nil, http.StatusBadRequest},
		{"範囲外の画像番号", http.MethodGet, "/api/scenes/scene-1/images/5", nil, http.StatusNotFound},
		{"Blob Store にない画像", http.MethodGet, "/api/scenes/scene-1/images/0", nil, http.StatusNotFound},
		{"存在しないシーンの画像削除", http.MethodDelete, "/api/scenes/missing/images/0", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, tt.method, tt.path, tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body = %s)", w.Code, tt.want, w.Body)
			}
		})
	}
}
