package services

import (
	"fmt"
	"time"

	"github.com/buildlens/backend/internal/models"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// VectorSearch exposes cosine-similarity queries over the chunk embedding
// column. Similarity is 1 - cosine_distance; higher is more similar. Rows
// with a null embedding never appear in results.
type VectorSearch struct {
	db            *gorm.DB
	defaultMinSim float64
}

func NewVectorSearch(db *gorm.DB, defaultMinSim float64) *VectorSearch {
	if defaultMinSim <= 0 {
		defaultMinSim = 0.7
	}
	return &VectorSearch{db: db, defaultMinSim: defaultMinSim}
}

// ChunkMatch is a chunk with its similarity to the query vector.
type ChunkMatch struct {
	ID         uint    `json:"id"`
	RunID      uint    `json:"runId"`
	ChunkIndex int     `json:"chunkIndex"`
	StepName   string  `json:"stepName"`
	Content    string  `json:"content"`
	HasErrors  bool    `json:"hasErrors"`
	ErrorCount int     `json:"errorCount"`
	Similarity float64 `json:"similarity"`
}

// CaseMatch joins a similar chunk to its run and that run's analysis, when
// one exists. Analysis fields are null for runs not yet analyzed.
type CaseMatch struct {
	ChunkID      uint      `json:"chunkId"`
	RunID        uint      `json:"runId"`
	ChunkIndex   int       `json:"chunkIndex"`
	StepName     string    `json:"stepName"`
	Content      string    `json:"content"`
	Similarity   float64   `json:"similarity"`
	WorkflowName string    `json:"workflowName"`
	Branch       string    `json:"branch"`
	RunCreatedAt time.Time `json:"runCreatedAt"`
	RootCause    *string   `json:"rootCause"`
	SuggestedFix *string   `json:"suggestedFix"`
	FailureType  *string   `json:"failureType"`
}

// EmbeddingStats summarizes embedding coverage across all chunks.
type EmbeddingStats struct {
	Total             int64   `json:"total"`
	WithEmbeddings    int64   `json:"withEmbeddings"`
	WithoutEmbeddings int64   `json:"withoutEmbeddings"`
	PercentComplete   float64 `json:"percentComplete"`
}

// DefaultMinSimilarity returns the configured general-search threshold.
func (vs *VectorSearch) DefaultMinSimilarity() float64 {
	return vs.defaultMinSim
}

// FindSimilarChunks returns up to limit chunks ordered by ascending cosine
// distance whose similarity is at least minSim.
func (vs *VectorSearch) FindSimilarChunks(queryVec pgvector.Vector, limit int, minSim float64) ([]ChunkMatch, error) {
	return vs.similarChunks(queryVec, limit, minSim, false)
}

// FindSimilarErrors is FindSimilarChunks restricted to error-bearing chunks.
func (vs *VectorSearch) FindSimilarErrors(queryVec pgvector.Vector, limit int, minSim float64) ([]ChunkMatch, error) {
	return vs.similarChunks(queryVec, limit, minSim, true)
}

func (vs *VectorSearch) similarChunks(queryVec pgvector.Vector, limit int, minSim float64, errorsOnly bool) ([]ChunkMatch, error) {
	query := `
		SELECT id, run_id, chunk_index, step_name, content, has_errors, error_count,
		       1 - (embedding <=> ?) AS similarity
		FROM log_chunks
		WHERE embedding IS NOT NULL`
	args := []interface{}{queryVec}

	if errorsOnly {
		query += " AND has_errors = true"
	}

	query += " AND 1 - (embedding <=> ?) >= ? ORDER BY embedding <=> ? LIMIT ?"
	args = append(args, queryVec, minSim, queryVec, limit)

	var matches []ChunkMatch
	if err := vs.db.Raw(query, args...).Scan(&matches).Error; err != nil {
		return nil, fmt.Errorf("similarity query failed: %w", err)
	}
	return matches, nil
}

// FindSimilarWithAnalysis returns error-bearing chunks joined to their
// run's analysis. Chunks from unanalyzed runs are still returned, with
// null analysis fields.
func (vs *VectorSearch) FindSimilarWithAnalysis(queryVec pgvector.Vector, limit int) ([]CaseMatch, error) {
	query := `
		SELECT c.id AS chunk_id, c.run_id, c.chunk_index, c.step_name, c.content,
		       1 - (c.embedding <=> ?) AS similarity,
		       r.workflow_name, r.branch, r.run_created_at,
		       a.root_cause, a.suggested_fix, a.failure_type
		FROM log_chunks c
		JOIN workflow_runs r ON r.id = c.run_id
		LEFT JOIN analysis_results a ON a.run_id = c.run_id AND a.deleted_at IS NULL
		WHERE c.embedding IS NOT NULL AND c.has_errors = true
		ORDER BY c.embedding <=> ?
		LIMIT ?`

	var matches []CaseMatch
	if err := vs.db.Raw(query, queryVec, queryVec, limit).Scan(&matches).Error; err != nil {
		return nil, fmt.Errorf("similarity-with-analysis query failed: %w", err)
	}
	return matches, nil
}

// FindRelevantChunksForRun scopes similarity search to a single run.
func (vs *VectorSearch) FindRelevantChunksForRun(runID uint, queryVec pgvector.Vector, limit int) ([]ChunkMatch, error) {
	query := `
		SELECT id, run_id, chunk_index, step_name, content, has_errors, error_count,
		       1 - (embedding <=> ?) AS similarity
		FROM log_chunks
		WHERE embedding IS NOT NULL AND run_id = ?
		ORDER BY embedding <=> ?
		LIMIT ?`

	var matches []ChunkMatch
	if err := vs.db.Raw(query, queryVec, runID, queryVec, limit).Scan(&matches).Error; err != nil {
		return nil, fmt.Errorf("per-run similarity query failed: %w", err)
	}
	return matches, nil
}

// UpdateChunkEmbedding writes a chunk's embedding. Writing the same vector
// twice leaves the column unchanged.
func (vs *VectorSearch) UpdateChunkEmbedding(chunkID uint, vec pgvector.Vector) error {
	return vs.db.Model(&models.LogChunk{}).
		Where("id = ?", chunkID).
		Update("embedding", vec).Error
}

// Stats reports embedding coverage.
func (vs *VectorSearch) Stats() (*EmbeddingStats, error) {
	var total, with int64
	if err := vs.db.Model(&models.LogChunk{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count chunks: %w", err)
	}
	if err := vs.db.Model(&models.LogChunk{}).Where("embedding IS NOT NULL").Count(&with).Error; err != nil {
		return nil, fmt.Errorf("failed to count embedded chunks: %w", err)
	}

	stats := &EmbeddingStats{
		Total:             total,
		WithEmbeddings:    with,
		WithoutEmbeddings: total - with,
	}
	if total > 0 {
		stats.PercentComplete = float64(with) / float64(total) * 100
	}
	return stats, nil
}
