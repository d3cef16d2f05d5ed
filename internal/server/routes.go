package server

import "github.com/gin-gonic/gin"

// registerRoutes sets up all API routes on the Gin router.
func registerRoutes(router *gin.Engine, h *handler) {
	api := router.Group("/api")

	api.PUT("/settings/api-key", h.setAPIKey)
	api.GET("/progress", h.progress)

	// Scripts.
	api.GET("/scripts", h.listScripts)
	api.POST("/scripts", h.createScript)
	api.GET("/scripts/:id", h.scriptDetail)
	api.DELETE("/scripts/:id", h.deleteScript)
	api.POST("/scripts/:id/analyze", h.analyzeScript)
	api.POST("/scripts/:id/generate/scenes", h.generateAllScenes)
	api.POST("/scripts/:id/generate/characters", h.generateAllCharacters)

	// Scenes.
	api.POST("/scenes/:id/generate", h.generateScene)
	api.PUT("/scenes/:id/prompt", h.setScenePrompt)
	api.PUT("/scenes/:id/selection", h.selectSceneImage)
	api.GET("/scenes/:id/images/:index", h.sceneImage)
	api.DELETE("/scenes/:id/images/:index", h.removeSceneImage)

	// Characters.
	api.POST("/characters/:id/generate", h.generateCharacter)
	api.POST("/characters/:id/images", h.uploadCharacterImages)
	api.PUT("/characters/:id/selection", h.selectCharacterImage)
	api.GET("/characters/:id/images/:index", h.characterImage)
	api.DELETE("/characters/:id/images/:index", h.removeCharacterImage)
}
