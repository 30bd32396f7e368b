package models

import (
	"time"

	"gorm.io/gorm"
)

type RunStatus string

const (
	RunStatusSuccess   RunStatus = "success"
	RunStatusFailure   RunStatus = "failure"
	RunStatusCancelled RunStatus = "cancelled"
	RunStatusTimedOut  RunStatus = "timed_out"
	RunStatusSkipped   RunStatus = "skipped"
)

// WorkflowRun is a single terminal-state CI run imported from the provider.
// Status is terminal once set; re-delivered webhooks upsert by ProviderRunID.
type WorkflowRun struct {
	ID             uint           `json:"id" gorm:"primaryKey"`
	ProviderRunID  int64          `json:"providerRunId" gorm:"uniqueIndex;not null"`
	RepositoryID   uint           `json:"repositoryId" gorm:"not null;index"`
	Repository     *Repository    `json:"repository,omitempty" gorm:"foreignKey:RepositoryID"`
	WorkflowName   string         `json:"workflowName"`
	Status         RunStatus      `json:"status" gorm:"not null"`
	Trigger        string         `json:"trigger"`
	CommitSHA      string         `json:"commitSha"`
	Branch         string         `json:"branch"`
	Actor          string         `json:"actor"`
	ProviderURL    string         `json:"providerUrl"`
	RunCreatedAt   time.Time      `json:"runCreatedAt"`
	InstallationID int64          `json:"installationId"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`

	Chunks   []LogChunk      `json:"chunks,omitempty" gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
	Analysis *AnalysisResult `json:"analysis,omitempty" gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
}

func (WorkflowRun) TableName() string {
	return "workflow_runs"
}
