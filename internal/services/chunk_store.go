package services

import (
	"fmt"

	"github.com/buildlens/backend/internal/models"
	"github.com/buildlens/backend/internal/pipeline"
	"gorm.io/gorm"
)

// ChunkStore atomically replaces the chunks of a run. Deleting before
// inserting is what makes job retries safe: a half-written run is fully
// rebuilt on the next attempt.
type ChunkStore struct {
	db *gorm.DB
}

func NewChunkStore(db *gorm.DB) *ChunkStore {
	return &ChunkStore{db: db}
}

// ReplaceChunks deletes the run's existing chunks and inserts the new set
// in index order, all inside one transaction. Embeddings are persisted as
// null; the embedder fills them afterwards.
func (cs *ChunkStore) ReplaceChunks(runID uint, chunks []pipeline.Chunk) ([]models.LogChunk, error) {
	rows := make([]models.LogChunk, 0, len(chunks))
	for _, c := range chunks {
		rows = append(rows, models.LogChunk{
			RunID:         runID,
			ChunkIndex:    c.Index,
			StepName:      c.StepName,
			Content:       c.Content,
			StartLine:     c.StartLine,
			EndLine:       c.EndLine,
			LineCount:     c.LineCount,
			TokenEstimate: c.TokenEstimate,
			HasErrors:     c.HasErrors,
			ErrorCount:    c.ErrorCount,
		})
	}

	err := cs.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("run_id = ?", runID).Delete(&models.LogChunk{}).Error; err != nil {
			return fmt.Errorf("failed to delete existing chunks: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(rows, 100).Error; err != nil {
			return fmt.Errorf("failed to insert chunks: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return rows, nil
}

// ChunksForRun returns a run's chunks in index order.
func (cs *ChunkStore) ChunksForRun(runID uint) ([]models.LogChunk, error) {
	var chunks []models.LogChunk
	if err := cs.db.Where("run_id = ?", runID).Order("chunk_index ASC").Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}
	return chunks, nil
}
