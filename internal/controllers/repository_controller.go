package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/buildlens/backend/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type RepositoryController struct {
	db *gorm.DB
}

func NewRepositoryController(db *gorm.DB) *RepositoryController {
	return &RepositoryController{db: db}
}

type ImportRepositoryRequest struct {
	ProviderID int64  `json:"providerId" binding:"required"`
	FullName   string `json:"fullName" binding:"required"`
	Private    bool   `json:"private"`
}

// ImportRepository registers a repository for webhook-driven analysis.
func (rc *RepositoryController) ImportRepository(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req ImportRepositoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	parts := strings.SplitN(req.FullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fullName must be <owner>/<name>"})
		return
	}

	var existing models.Repository
	if err := rc.db.Where("provider_id = ?", req.ProviderID).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Repository already imported"})
		return
	}

	repo := models.Repository{
		ProviderID: req.ProviderID,
		Owner:      parts[0],
		Name:       parts[1],
		Private:    req.Private,
		UserID:     userID.(uint),
	}

	if err := rc.db.Create(&repo).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to import repository"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"repository": repo})
}

// GetRepositories lists the caller's repositories.
func (rc *RepositoryController) GetRepositories(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var repos []models.Repository
	if err := rc.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&repos).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch repositories"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"repositories": repos})
}

// DeleteRepository removes a repository; its runs, chunks and analyses go
// with it via cascade.
func (rc *RepositoryController) DeleteRepository(c *gin.Context) {
	repoID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid repository ID"})
		return
	}

	err = rc.db.Transaction(func(tx *gorm.DB) error {
		runIDs := tx.Model(&models.WorkflowRun{}).Select("id").Where("repository_id = ?", uint(repoID))
		if err := tx.Where("run_id IN (?)", runIDs).Delete(&models.LogChunk{}).Error; err != nil {
			return err
		}
		if err := tx.Where("run_id IN (?)", runIDs).Delete(&models.AnalysisResult{}).Error; err != nil {
			return err
		}
		return tx.Select("Runs").Delete(&models.Repository{ID: uint(repoID)}).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete repository"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Repository deleted"})
}
