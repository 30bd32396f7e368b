package services

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/buildlens/backend/internal/logger"
	"github.com/buildlens/backend/internal/models"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// EmbeddingService fills the embedding column of freshly persisted chunks.
// Work is best-effort per chunk: one failed chunk never aborts the rest.
type EmbeddingService struct {
	db             *gorm.DB
	llm            *LLMService
	expectedDim    int
	maxChars       int
	interCallDelay time.Duration
}

func NewEmbeddingService(db *gorm.DB, llm *LLMService, expectedDim, maxChars int, interCallDelay time.Duration) *EmbeddingService {
	return &EmbeddingService{
		db:             db,
		llm:            llm,
		expectedDim:    expectedDim,
		maxChars:       maxChars,
		interCallDelay: interCallDelay,
	}
}

// EmbedChunks embeds each chunk sequentially with a short pause between
// provider calls as soft rate limiting. Returns the number of chunks whose
// embedding failed; the rows themselves keep a null embedding.
func (es *EmbeddingService) EmbedChunks(ctx context.Context, chunks []models.LogChunk) int {
	failed := 0

	for i := range chunks {
		chunk := &chunks[i]

		if err := es.embedChunk(ctx, chunk); err != nil {
			failed++
			logger.Warn("Chunk embedding failed", map[string]interface{}{
				"chunk_id":    chunk.ID,
				"chunk_index": chunk.ChunkIndex,
				"run_id":      chunk.RunID,
				"error":       err.Error(),
			})
		}

		if i < len(chunks)-1 {
			time.Sleep(es.interCallDelay)
		}
	}

	if failed > 0 {
		logger.Warn("Embedding pass finished with failures", map[string]interface{}{
			"total":  len(chunks),
			"failed": failed,
		})
	}

	return failed
}

func (es *EmbeddingService) embedChunk(ctx context.Context, chunk *models.LogChunk) error {
	text := es.PrepareInput(chunk.Content)

	embedding, err := es.llm.Embed(ctx, text)
	if err != nil {
		return err
	}

	if len(embedding) != es.expectedDim {
		logger.Warn("Embedding dimension differs from expected", map[string]interface{}{
			"chunk_id": chunk.ID,
			"got":      len(embedding),
			"expected": es.expectedDim,
		})
	}

	vec := pgvector.NewVector(embedding)
	chunk.Embedding = &vec

	return es.db.Model(&models.LogChunk{}).
		Where("id = ?", chunk.ID).
		Update("embedding", vec).Error
}

// PrepareInput collapses whitespace runs and truncates overly long content
// before it is sent to the provider.
func (es *EmbeddingService) PrepareInput(content string) string {
	text := strings.TrimSpace(whitespaceRe.ReplaceAllString(content, " "))
	if len(text) > es.maxChars {
		logger.Warn("Embedding input truncated", map[string]interface{}{
			"original_chars": len(text),
			"max_chars":      es.maxChars,
		})
		text = text[:es.maxChars]
	}
	return text
}
