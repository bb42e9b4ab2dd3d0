package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/evalify/examclient/internal/config"
	"github.com/evalify/examclient/internal/handler"
	"github.com/evalify/examclient/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Exam    *handler.ExamHandler
	Proctor *handler.ProctorHandler
	WS      *handler.WSHandler
}

// SetupRouter configures the local API the rendering UI consumes.
func SetupRouter(handlers *Handlers, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// The UI is served from its own origin; restrict when configured,
	// otherwise allow all so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── Exam Session API ──────────────────────────────────────────────
	exam := router.Group("/api/v1/exam")
	{
		exam.GET("", handlers.Exam.GetPaper)
		exam.GET("/state", handlers.Exam.GetState)

		exam.GET("/questions/:question_id/response", handlers.Exam.GetResponse)
		exam.PUT("/questions/:question_id/answer", handlers.Exam.SaveAnswer)
		exam.DELETE("/questions/:question_id/answer", handlers.Exam.ClearAnswer)
		exam.POST("/questions/:question_id/visit", handlers.Exam.MarkVisited)
		exam.POST("/questions/:question_id/review", handlers.Exam.ToggleReview)

		exam.POST("/navigate", handlers.Exam.Navigate)

		exam.POST("/submit", handlers.Exam.Submit)
		exam.POST("/submit/retry", handlers.Exam.RetrySubmit)

		exam.GET("/violations", handlers.Proctor.ListViolations)
		exam.POST("/violations", handlers.Proctor.ReportViolation)
		exam.POST("/fullscreen", handlers.Proctor.SetFullscreen)

		exam.GET("/editor-files", handlers.Exam.GetEditorFiles)
		exam.PUT("/editor-files", handlers.Exam.SaveEditorFiles)
	}

	// ─── WebSocket Stream ──────────────────────────────────────────────
	ws := router.Group("/ws/v1")
	{
		ws.GET("/exam/stream", handlers.WS.Stream)
	}

	return router
}
