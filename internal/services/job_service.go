package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/buildlens/backend/internal/logger"
	"github.com/buildlens/backend/internal/models"
	"github.com/buildlens/backend/internal/pipeline"
	"github.com/buildlens/backend/internal/queue"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

// JobService runs one log-processing job end-to-end: fetch, parse, persist,
// embed, classify, analyze. Stage ordering is strict; the AnalysisResult
// upsert is always the last write. The handler is idempotent because chunk
// replacement is the first write.
type JobService struct {
	db       *gorm.DB
	provider *ProviderService
	chunker  *pipeline.Chunker
	chunks   *ChunkStore
	embedder *EmbeddingService
	analyzer *AnalyzerService
}

func NewJobService(db *gorm.DB, provider *ProviderService, chunker *pipeline.Chunker, chunks *ChunkStore, embedder *EmbeddingService, analyzer *AnalyzerService) *JobService {
	return &JobService{
		db:       db,
		provider: provider,
		chunker:  chunker,
		chunks:   chunks,
		embedder: embedder,
		analyzer: analyzer,
	}
}

// HandleLogProcessing is the asynq handler for the log-processing queue.
// Returned errors wrapping asynq.SkipRetry are terminal; everything else
// is retried with backoff.
func (js *JobService) HandleLogProcessing(ctx context.Context, t *asynq.Task) error {
	var payload queue.LogProcessingPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("malformed job payload: %v: %w", err, asynq.SkipRetry)
	}

	taskID, _ := asynq.GetTaskID(ctx)
	log := logger.WithJob(taskID, payload.RepoFullName)
	log.WithField("provider_run_id", payload.RunID).Info("Processing run")

	var run models.WorkflowRun
	if err := js.db.Where("provider_run_id = ?", payload.RunID).First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// The webhook transaction may not have committed yet; let the
			// retry pick it up.
			return fmt.Errorf("run %d not found yet", payload.RunID)
		}
		return fmt.Errorf("failed to load run: %w", err)
	}

	raw, err := js.provider.FetchRunLogs(ctx, payload.RepoFullName, payload.RunID)
	if err != nil {
		if errors.Is(err, ErrEmptyLog) || errors.Is(err, ErrBadArchive) {
			log.WithField("error", err.Error()).Error("Terminal archive error")
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return fmt.Errorf("failed to fetch logs: %w", err)
	}

	runLog := logger.WithRun(run.ID, run.ProviderRunID)

	res := js.chunker.Process(raw)
	runLog.WithFields(map[string]interface{}{
		"lines":  len(res.Lines),
		"steps":  len(res.Steps),
		"chunks": len(res.Chunks),
		"errors": len(res.Errors),
	}).Info("Parsed run logs")

	rows, err := js.chunks.ReplaceChunks(run.ID, res.Chunks)
	if err != nil {
		// A constraint violation will not heal on retry; surface it for
		// operator attention instead of burning attempts.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("chunk constraint violation: %v: %w", err, asynq.SkipRetry)
		}
		return fmt.Errorf("failed to persist chunks: %w", err)
	}

	// Every chunk gets its embedding attempt (success or failure) before
	// classification starts.
	embedFailures := js.embedder.EmbedChunks(ctx, rows)

	result, err := js.analyzer.AnalyzeRun(ctx, run.ID, res)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	runLog.WithFields(map[string]interface{}{
		"failure_type":   result.FailureType,
		"priority":       result.Priority,
		"used_llm":       result.UsedLLM,
		"embed_failures": embedFailures,
	}).Info("Run analysis completed")

	return nil
}
