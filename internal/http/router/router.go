package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"codearena.app/arbiter/internal/http/handler"
)

type RouterConfig struct {
	// AdminAPIKey guards every mutating route. Empty disables the guard,
	// which is only acceptable in development.
	AdminAPIKey string
}

func SetupRoutes(router *gin.Engine, evaluation *handler.EvaluationHandler, documents *handler.DocumentsHandler, cfg RouterConfig) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		subs := v1.Group("/submissions")
		subs.GET("/:id/state", evaluation.GetState)
		subs.GET("/:id/analysis", documents.GetAnalysis)
		subs.GET("/:id/research", documents.GetResearch)
		subs.GET("/:id/scores", documents.GetScores)

		admin := subs.Group("", adminKeyGuard(cfg.AdminAPIKey))
		admin.POST("/:id/evaluate", evaluation.Evaluate)
		admin.POST("/:id/round2", evaluation.Round2)
		admin.POST("/:id/research/refresh", evaluation.RefreshResearch)
		admin.POST("/:id/retry", evaluation.Retry)
		admin.POST("/:id/advance", evaluation.Advance)
	}
}

func adminKeyGuard(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}
		if c.GetHeader("X-Admin-Key") != key {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
