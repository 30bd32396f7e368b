package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

type IncidentStatus string

const (
	StatusOpen       IncidentStatus = "OPEN"
	StatusInProgress IncidentStatus = "IN_PROGRESS"
	StatusResolved   IncidentStatus = "RESOLVED"
	StatusClosed     IncidentStatus = "CLOSED"
)

// Incident tracks a failed run that needs human follow-up. Opened from an
// AnalysisResult; the title defaults to its root cause.
type Incident struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Title       string         `json:"title" gorm:"not null"`
	Description string         `json:"description" gorm:"type:text"`
	Status      IncidentStatus `json:"status" gorm:"not null;default:'OPEN'"`
	RunID       *uint          `json:"runId" gorm:"index"`
	Run         *WorkflowRun   `json:"run,omitempty" gorm:"foreignKey:RunID"`
	AssigneeID  *uint          `json:"assigneeId"`
	Assignee    *User          `json:"assignee,omitempty" gorm:"foreignKey:AssigneeID"`
	ReporterID  uint           `json:"reporterId" gorm:"not null"`
	Reporter    *User          `json:"reporter,omitempty" gorm:"foreignKey:ReporterID"`
	Tags        pq.StringArray `json:"tags" gorm:"type:text[]"`
	ResolvedAt  *time.Time     `json:"resolvedAt"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Incident) TableName() string {
	return "incidents"
}
