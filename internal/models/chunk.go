package models

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// LogChunk is a contiguous slice of cleaned log lines belonging to one step.
// ChunkIndex values form a dense 0..N-1 prefix per run. Embedding stays NULL
// until the embedder has processed the chunk.
type LogChunk struct {
	ID            uint             `json:"id" gorm:"primaryKey"`
	RunID         uint             `json:"runId" gorm:"not null;uniqueIndex:idx_run_chunk,priority:1"`
	ChunkIndex    int              `json:"chunkIndex" gorm:"not null;uniqueIndex:idx_run_chunk,priority:2"`
	StepName      string           `json:"stepName"`
	Content       string           `json:"content" gorm:"type:text"`
	StartLine     int              `json:"startLine"`
	EndLine       int              `json:"endLine"`
	LineCount     int              `json:"lineCount"`
	TokenEstimate int              `json:"tokenEstimate"`
	HasErrors     bool             `json:"hasErrors" gorm:"default:false;index"`
	ErrorCount    int              `json:"errorCount" gorm:"default:0"`
	Embedding     *pgvector.Vector `json:"-" gorm:"type:vector(768)"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

func (LogChunk) TableName() string {
	return "log_chunks"
}
