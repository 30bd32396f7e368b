package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/buildlens/backend/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

type IncidentController struct {
	db *gorm.DB
}

func NewIncidentController(db *gorm.DB) *IncidentController {
	return &IncidentController{db: db}
}

type CreateIncidentRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	RunID       *uint    `json:"runId"`
	Tags        []string `json:"tags"`
}

type UpdateIncidentRequest struct {
	Title       *string                `json:"title"`
	Description *string                `json:"description"`
	Status      *models.IncidentStatus `json:"status"`
	AssigneeID  *uint                  `json:"assigneeId"`
	Tags        []string               `json:"tags"`
}

// CreateIncident opens an incident. When a runId is supplied, any field
// left empty in the request is seeded from that run's analysis.
func (ic *IncidentController) CreateIncident(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req CreateIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	incident := models.Incident{
		Title:       req.Title,
		Description: req.Description,
		Status:      models.StatusOpen,
		RunID:       req.RunID,
		ReporterID:  userID.(uint),
		Tags:        pq.StringArray(req.Tags),
	}

	// Seed missing fields from the run's analysis.
	if req.RunID != nil {
		var analysis models.AnalysisResult
		if err := ic.db.Where("run_id = ?", *req.RunID).First(&analysis).Error; err == nil {
			if incident.Title == "" {
				incident.Title = analysis.RootCause
			}
			if incident.Description == "" {
				incident.Description = analysis.SuggestedFix
			}
			if len(incident.Tags) == 0 && analysis.FailureType != "" {
				incident.Tags = pq.StringArray{analysis.FailureType}
			}
		}
	}

	if incident.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title is required when the run has no analysis"})
		return
	}

	if err := ic.db.Create(&incident).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create incident"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"incident": incident})
}

// GetIncidents lists incidents, optionally filtered by status.
func (ic *IncidentController) GetIncidents(c *gin.Context) {
	query := ic.db.Model(&models.Incident{}).Preload("Run").Order("created_at DESC")

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var incidents []models.Incident
	if err := query.Find(&incidents).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch incidents"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"incidents": incidents})
}

// GetIncident returns one incident.
func (ic *IncidentController) GetIncident(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid incident ID"})
		return
	}

	var incident models.Incident
	if err := ic.db.Preload("Run").Preload("Assignee").Preload("Reporter").First(&incident, uint(id)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Incident not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"incident": incident})
}

// UpdateIncident applies field and status changes.
func (ic *IncidentController) UpdateIncident(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid incident ID"})
		return
	}

	var incident models.Incident
	if err := ic.db.First(&incident, uint(id)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Incident not found"})
		return
	}

	var req UpdateIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.AssigneeID != nil {
		updates["assignee_id"] = *req.AssigneeID
	}
	if req.Tags != nil {
		updates["tags"] = pq.StringArray(req.Tags)
	}
	if req.Status != nil {
		updates["status"] = *req.Status
		if *req.Status == models.StatusResolved {
			now := time.Now()
			updates["resolved_at"] = &now
		}
	}

	if err := ic.db.Model(&incident).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update incident"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"incident": incident})
}
