package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/adapters"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/generator"
	"github.com/shouni/go-storyboard-kit/pkg/store/blob"
	"github.com/shouni/go-storyboard-kit/pkg/workflow"

	"github.com/gin-gonic/gin"
)

type handler struct {
	m       *workflow.Manager
	timeout time.Duration
}

type batchResponse struct {
	TargetID string            `json:"targetId"`
	Attempts int               `json:"attempts"`
	Images   []domain.ImageRef `json:"images"`
	Errors   []string          `json:"errors,omitempty"`
}

type outcomeResponse struct {
	TargetID string            `json:"targetId"`
	Images   []domain.ImageRef `json:"images"`
	Error    string            `json:"error,omitempty"`
}

type reportResponse struct {
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Outcomes  []outcomeResponse `json:"outcomes"`
	Skipped   []string          `json:"skipped"`
}

func toBatchResponse(r *generator.BatchResult) batchResponse {
	resp := batchResponse{TargetID: r.TargetID, Attempts: r.Attempts, Images: r.Images}
	for _, err := range r.Errors {
		resp.Errors = append(resp.Errors, err.Error())
	}
	return resp
}

func toReportResponse(r *generator.Report) reportResponse {
	resp := reportResponse{
		Succeeded: r.Succeeded(),
		Failed:    r.Failed(),
		Outcomes:  make([]outcomeResponse, 0, len(r.Outcomes)),
		Skipped:   r.Skipped,
	}
	for _, o := range r.Outcomes {
		out := outcomeResponse{TargetID: o.TargetID}
		if o.Result != nil {
			out.Images = o.Result.Images
		}
		if o.Err != nil {
			out.Error = o.Err.Error()
		}
		resp.Outcomes = append(resp.Outcomes, out)
	}
	return resp
}

// withTimeout bounds calls that wait on the analysis model.
func (h *handler) withTimeout(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), h.timeout)
}

// exclusive rejects a new batch for a target that is already generating.
// Batches run to completion even if the client goes away, and a failed
// batch still reports what it produced alongside the error.
func (h *handler) exclusive(c *gin.Context, key string, run func(ctx context.Context) (any, error)) {
	progress := h.m.Generator().Progress()
	if !progress.Begin(key) {
		respondError(c, fmt.Errorf("%s: %w", key, errBusy))
		return
	}
	defer progress.Release(key)

	body, err := run(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		resp := gin.H{"error": err.Error()}
		if body != nil {
			resp["result"] = body
		}
		c.JSON(statusFor(err), resp)
		return
	}
	c.JSON(http.StatusOK, body)
}

func (h *handler) setAPIKey(c *gin.Context) {
	var req struct {
		APIKey string `json:"apiKey"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.m.SetAPIKey(req.APIKey); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) progress(c *gin.Context) {
	c.JSON(http.StatusOK, h.m.Generator().Progress().Snapshot())
}

func (h *handler) listScripts(c *gin.Context) {
	scripts, err := h.m.Scripts()
	if err != nil {
		respondError(c, err)
		return
	}
	if scripts == nil {
		scripts = []domain.Script{}
	}
	c.JSON(http.StatusOK, scripts)
}

func (h *handler) createScript(c *gin.Context) {
	var req struct {
		Title   string `json:"title"`
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	script, err := h.m.CreateScript(req.Title, req.Content)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, script)
}

func (h *handler) scriptDetail(c *gin.Context) {
	detail, err := h.m.ScriptDetail(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *handler) deleteScript(c *gin.Context) {
	removed, err := h.m.DeleteScript(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"characters": len(removed.Characters),
		"scenes":     len(removed.Scenes),
	})
}

func (h *handler) analyzeScript(c *gin.Context) {
	ctx, cancel := h.withTimeout(c)
	defer cancel()

	detail, err := h.m.AnalyzeScript(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *handler) generateAllScenes(c *gin.Context) {
	id := c.Param("id")
	h.exclusive(c, "script:"+id+":scenes", func(ctx context.Context) (any, error) {
		report, err := h.m.Generator().GenerateAllScenes(ctx, id)
		if err != nil {
			return nil, err
		}
		return toReportResponse(report), nil
	})
}

func (h *handler) generateAllCharacters(c *gin.Context) {
	id := c.Param("id")
	h.exclusive(c, "script:"+id+":characters", func(ctx context.Context) (any, error) {
		report, err := h.m.Generator().GenerateAllCharacters(ctx, id)
		if err != nil {
			return nil, err
		}
		return toReportResponse(report), nil
	})
}

func (h *handler) generateScene(c *gin.Context) {
	id := c.Param("id")
	h.exclusive(c, id, func(ctx context.Context) (any, error) {
		res, err := h.m.Generator().GenerateScene(ctx, id)
		if res == nil {
			return nil, err
		}
		return toBatchResponse(res), err
	})
}

func (h *handler) generateCharacter(c *gin.Context) {
	id := c.Param("id")
	h.exclusive(c, id, func(ctx context.Context) (any, error) {
		res, err := h.m.Generator().GenerateCharacter(ctx, id)
		if res == nil {
			return nil, err
		}
		return toBatchResponse(res), err
	})
}

type imageRequest struct {
	Image domain.ImageRef `json:"image" binding:"required"`
}

func (h *handler) setScenePrompt(c *gin.Context) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	scene, err := h.m.SetScenePrompt(c.Param("id"), req.Prompt)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, scene)
}

func (h *handler) selectSceneImage(c *gin.Context) {
	var req imageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	scene, err := h.m.SelectSceneImage(c.Param("id"), req.Image)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, scene)
}

// imageIndex reads the :index path parameter. Images are addressed by
// position because inline data URLs cannot travel in a path segment.
func imageIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image index must be a non-negative integer"})
		return 0, false
	}
	return index, true
}

func (h *handler) sceneImage(c *gin.Context) {
	index, ok := imageIndex(c)
	if !ok {
		return
	}
	ref, err := h.m.SceneImageAt(c.Param("id"), index)
	if err != nil {
		respondError(c, err)
		return
	}
	h.writeImage(c, blob.SceneImages, ref)
}

func (h *handler) removeSceneImage(c *gin.Context) {
	index, ok := imageIndex(c)
	if !ok {
		return
	}
	ref, err := h.m.SceneImageAt(c.Param("id"), index)
	if err != nil {
		respondError(c, err)
		return
	}
	scene, err := h.m.RemoveSceneImage(c.Request.Context(), c.Param("id"), ref)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, scene)
}

func (h *handler) uploadCharacterImages(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	files := form.File["images"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no images uploaded"})
		return
	}

	images := make([]adapters.Image, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		mimeType := fh.Header.Get("Content-Type")
		if mimeType == "" || mimeType == "application/octet-stream" {
			mimeType = http.DetectContentType(data)
		}
		images = append(images, adapters.Image{Data: data, MimeType: mimeType})
	}

	res, err := h.m.UploadCharacterImages(c.Param("id"), images)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) selectCharacterImage(c *gin.Context) {
	var req imageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	char, err := h.m.SelectCharacterImage(c.Param("id"), req.Image)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, char)
}

func (h *handler) characterImage(c *gin.Context) {
	index, ok := imageIndex(c)
	if !ok {
		return
	}
	ref, err := h.m.CharacterImageAt(c.Param("id"), index)
	if err != nil {
		respondError(c, err)
		return
	}
	h.writeImage(c, blob.CharacterImages, ref)
}

func (h *handler) removeCharacterImage(c *gin.Context) {
	index, ok := imageIndex(c)
	if !ok {
		return
	}
	ref, err := h.m.CharacterImageAt(c.Param("id"), index)
	if err != nil {
		respondError(c, err)
		return
	}
	char, err := h.m.RemoveCharacterImage(c.Request.Context(), c.Param("id"), ref)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, char)
}

func (h *handler) writeImage(c *gin.Context, kind blob.Kind, ref domain.ImageRef) {
	img, err := h.m.ResolveImage(c.Request.Context(), kind, ref)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, img.MimeType, img.Data)
}
