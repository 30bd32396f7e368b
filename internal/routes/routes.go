package routes

import (
	"github.com/buildlens/backend/internal/config"
	"github.com/buildlens/backend/internal/controllers"
	"github.com/buildlens/backend/internal/middleware"
	"github.com/buildlens/backend/internal/pipeline"
	"github.com/buildlens/backend/internal/queue"
	"github.com/buildlens/backend/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRoutes configures all application routes
func SetupRoutes(r *gin.Engine, db *gorm.DB, cfg *config.Config, jobs *queue.Client) {
	llmService := services.NewLLMService(cfg.OllamaURL, cfg.LLMModel, cfg.EmbedModel, cfg.LLMTimeout)
	vectorSearch := services.NewVectorSearch(db, cfg.SearchDefaultMinSim)
	chunker := pipeline.NewChunker(cfg.MaxChunkLines, cfg.TokensPerChar)

	authController := controllers.NewAuthController(db)
	analyzeController := controllers.NewAnalyzeController(chunker, cfg.IntentionalPriority)
	webhookController := controllers.NewWebhookController(db, jobs, cfg.WebhookSecret)
	runController := controllers.NewRunController(db, jobs)
	repositoryController := controllers.NewRepositoryController(db)
	incidentController := controllers.NewIncidentController(db)
	insightController := controllers.NewInsightController(vectorSearch, llmService)

	// Unauthenticated surface: webhook intake and the synchronous analyzer
	r.POST("/webhooks/provider", webhookController.Handle)
	r.POST("/analyze", analyzeController.Analyze)

	api := r.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", authController.Login)
			auth.POST("/register", authController.Register)
		}

		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware())
		{
			repos := protected.Group("/repositories")
			{
				repos.POST("", repositoryController.ImportRepository)
				repos.GET("", repositoryController.GetRepositories)
				repos.DELETE("/:id", repositoryController.DeleteRepository)
			}

			runs := protected.Group("/runs")
			{
				runs.GET("", runController.GetRuns)
				runs.GET("/:id", runController.GetRun)
				runs.GET("/:id/analysis", runController.GetRunAnalysis)
				runs.POST("/:id/reanalyze", runController.ReanalyzeRun)
				runs.GET("/:id/search", insightController.SearchRunChunks)
			}

			incidents := protected.Group("/incidents")
			{
				incidents.POST("", incidentController.CreateIncident)
				incidents.GET("", incidentController.GetIncidents)
				incidents.GET("/:id", incidentController.GetIncident)
				incidents.PUT("/:id", incidentController.UpdateIncident)
			}

			insights := protected.Group("/insights")
			{
				insights.GET("/embeddings", insightController.GetEmbeddingStats)
			}

			search := protected.Group("/search")
			{
				search.GET("/similar", insightController.SearchSimilar)
			}
		}
	}
}
