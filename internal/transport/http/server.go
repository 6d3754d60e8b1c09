package http

import (
	"github.com/gin-gonic/gin"

	appsvc "docinsight/internal/app"
	"docinsight/internal/bootstrap"
	"docinsight/internal/transport/http/handler"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	service := appsvc.NewInsightService(
		app.Sessions,
		app.Cache,
		app.Pipeline,
		app.LLM,
		app.Publisher,
		app.AskRepo,
		app.LLMChatConfig(),
		appsvc.IntelOptions{
			MaxTopics:            app.Config.Intel.MaxTopics,
			ChunkSize:            app.Config.Intel.ChunkSize,
			SimilarityThreshold:  app.Config.Intel.SimilarityThreshold,
			EnableInsights:       app.Config.Intel.EnableInsights,
			EnableSmartQuestions: app.Config.Intel.EnableSmartQuestions,
		},
	)
	insightHandler := handler.NewInsightHandler(service)

	v1 := router.Group("/api/v1")
	v1.POST("/documents", insightHandler.Upload)
	v1.POST("/ask", insightHandler.Ask)
	v1.GET("/cache/stats", insightHandler.CacheStats)

	sessions := v1.Group("/sessions")
	sessions.GET("/:id", insightHandler.GetSession)
	sessions.DELETE("/:id", insightHandler.DeleteSession)
	sessions.GET("/:id/analysis", insightHandler.Analysis)
	sessions.GET("/:id/insights", insightHandler.Insights)
	sessions.POST("/:id/similarity", insightHandler.Similarity)
	sessions.GET("/:id/questions", insightHandler.Questions)
	sessions.GET("/:id/history", insightHandler.History)

	return router
}
