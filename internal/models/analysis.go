package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// AnalysisResult is the single root-cause record for a run. Exactly one row
// exists per run after pipeline completion; re-analysis upserts by RunID.
type AnalysisResult struct {
	ID               uint            `json:"id" gorm:"primaryKey"`
	RunID            uint            `json:"runId" gorm:"uniqueIndex;not null"`
	RootCause        string          `json:"rootCause" gorm:"type:text"`
	FailureStage     string          `json:"failureStage"`
	SuggestedFix     string          `json:"suggestedFix" gorm:"type:text"`
	FailureType      string          `json:"failureType" gorm:"index"`
	Priority         int             `json:"priority" gorm:"default:99"`
	Confidence       float64         `json:"confidence"`
	ConfidenceReason string          `json:"confidenceReason"`
	UsedLLM          bool            `json:"usedLLM" gorm:"column:used_llm;default:false"`
	DetectedErrors   json.RawMessage `json:"detectedErrors" gorm:"type:jsonb"`
	Steps            json.RawMessage `json:"steps" gorm:"type:jsonb"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
	DeletedAt        gorm.DeletedAt  `json:"-" gorm:"index"`
}

func (AnalysisResult) TableName() string {
	return "analysis_results"
}
