package main

import (
	"github.com/buildlens/backend/internal/config"
	"github.com/buildlens/backend/internal/database"
	"github.com/buildlens/backend/internal/logger"
	"github.com/buildlens/backend/internal/pipeline"
	"github.com/buildlens/backend/internal/queue"
	"github.com/buildlens/backend/internal/services"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
)

func main() {
	logger.Initialize()

	if err := godotenv.Load(); err != nil {
		logger.Warn("No .env file found, using environment variables", nil)
	}

	cfg := config.Load()

	database.Connect()
	database.AutoMigrate()
	db := database.DB

	llmService := services.NewLLMService(cfg.OllamaURL, cfg.LLMModel, cfg.EmbedModel, cfg.LLMTimeout)
	if err := llmService.CheckHealth(); err != nil {
		logger.Warn("LLM provider not reachable at startup, continuing anyway", map[string]interface{}{
			"error": err.Error(),
		})
	}

	chunker := pipeline.NewChunker(cfg.MaxChunkLines, cfg.TokensPerChar)
	chunkStore := services.NewChunkStore(db)
	embedder := services.NewEmbeddingService(db, llmService, cfg.EmbeddingDim, cfg.EmbeddingMaxChars, cfg.EmbeddingInterCallDelay)
	vectorSearch := services.NewVectorSearch(db, cfg.SearchDefaultMinSim)
	ragService := services.NewRAGService(vectorSearch, llmService, cfg.RAGMaxCases, cfg.RAGMinSimilarity)
	analyzer := services.NewAnalyzerService(db, llmService, ragService, cfg.IntentionalPriority)
	provider := services.NewProviderService(cfg.ProviderAPIURL)

	jobService := services.NewJobService(db, provider, chunker, chunkStore, embedder, analyzer)

	settings := queue.Settings{
		Lock:           cfg.JobLock,
		MaxRetries:     cfg.JobMaxRetries,
		BackoffInitial: cfg.JobBackoffInitial,
	}
	srv := queue.NewServer(cfg.RedisAddr, cfg.WorkerConcurrency, settings)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TypeLogProcessing, jobService.HandleLogProcessing)

	logger.Info("Starting BuildLens worker", map[string]interface{}{
		"queue":       queue.QueueLogProcessing,
		"concurrency": cfg.WorkerConcurrency,
	})

	// Run blocks until SIGTERM/SIGINT and drains in-flight jobs before
	// returning; unfinished jobs go back to the queue.
	if err := srv.Run(mux); err != nil {
		logger.Fatal("Worker exited with error", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
