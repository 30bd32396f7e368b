package controllers

import (
	"net/http"
	"strconv"

	"github.com/buildlens/backend/internal/models"
	"github.com/buildlens/backend/internal/queue"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RunController exposes the workflow run read surface.
type RunController struct {
	db   *gorm.DB
	jobs *queue.Client
}

func NewRunController(db *gorm.DB, jobs *queue.Client) *RunController {
	return &RunController{db: db, jobs: jobs}
}

// GetRuns returns runs, optionally filtered by repository and status.
func (rc *RunController) GetRuns(c *gin.Context) {
	query := rc.db.Model(&models.WorkflowRun{}).Preload("Repository").Order("run_created_at DESC")

	if repoID := c.Query("repositoryId"); repoID != "" {
		query = query.Where("repository_id = ?", repoID)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset := (page - 1) * limit

	var runs []models.WorkflowRun
	if err := query.Offset(offset).Limit(limit).Find(&runs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch runs"})
		return
	}

	var total int64
	rc.db.Model(&models.WorkflowRun{}).Count(&total)

	c.JSON(http.StatusOK, gin.H{
		"runs": runs,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// GetRun returns a single run with its chunks.
func (rc *RunController) GetRun(c *gin.Context) {
	runID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid run ID"})
		return
	}

	var run models.WorkflowRun
	if err := rc.db.Preload("Repository").
		Preload("Chunks", func(db *gorm.DB) *gorm.DB {
			return db.Order("chunk_index ASC")
		}).
		First(&run, uint(runID)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"run": run})
}

// GetRunAnalysis returns the run's AnalysisResult.
func (rc *RunController) GetRunAnalysis(c *gin.Context) {
	runID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid run ID"})
		return
	}

	var analysis models.AnalysisResult
	if err := rc.db.Where("run_id = ?", uint(runID)).First(&analysis).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No analysis for this run yet"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"analysis": analysis})
}

// ReanalyzeRun re-enqueues the run's pipeline. Chunk replacement is the
// job's first write, so rerunning is always safe.
func (rc *RunController) ReanalyzeRun(c *gin.Context) {
	runID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid run ID"})
		return
	}

	var run models.WorkflowRun
	if err := rc.db.Preload("Repository").First(&run, uint(runID)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
		return
	}

	payload := queue.LogProcessingPayload{
		RepoFullName:   run.Repository.FullName(),
		RunID:          run.ProviderRunID,
		InstallationID: run.InstallationID,
	}
	if err := rc.jobs.EnqueueLogProcessing(c.Request.Context(), payload); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue job"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "Run queued for re-analysis"})
}
