package models

import (
	"time"

	"gorm.io/gorm"
)

type Repository struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	ProviderID int64          `json:"providerId" gorm:"uniqueIndex;not null"`
	Owner      string         `json:"owner" gorm:"not null"`
	Name       string         `json:"name" gorm:"not null"`
	Private    bool           `json:"private" gorm:"default:false"`
	UserID     uint           `json:"userId" gorm:"not null;index"`
	User       *User          `json:"user,omitempty" gorm:"foreignKey:UserID"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`

	Runs []WorkflowRun `json:"runs,omitempty" gorm:"foreignKey:RepositoryID;constraint:OnDelete:CASCADE"`
}

func (Repository) TableName() string {
	return "repositories"
}

// FullName returns the provider-style "<owner>/<name>" identifier.
func (r *Repository) FullName() string {
	return r.Owner + "/" + r.Name
}
