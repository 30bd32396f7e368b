package controllers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/buildlens/backend/internal/logger"
	"github.com/buildlens/backend/internal/models"
	"github.com/buildlens/backend/internal/queue"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WebhookController ingests provider workflow_run events. Terminal failed
// runs are upserted and queued for analysis; everything else is
// acknowledged and dropped.
type WebhookController struct {
	db     *gorm.DB
	jobs   *queue.Client
	secret string
}

func NewWebhookController(db *gorm.DB, jobs *queue.Client, secret string) *WebhookController {
	return &WebhookController{db: db, jobs: jobs, secret: secret}
}

type workflowRunEvent struct {
	Action      string `json:"action"`
	WorkflowRun struct {
		ID         int64     `json:"id"`
		Name       string    `json:"name"`
		Status     string    `json:"status"`
		Conclusion string    `json:"conclusion"`
		Event      string    `json:"event"`
		HeadSHA    string    `json:"head_sha"`
		HeadBranch string    `json:"head_branch"`
		HTMLURL    string    `json:"html_url"`
		CreatedAt  time.Time `json:"created_at"`
		Actor      struct {
			Login string `json:"login"`
		} `json:"actor"`
	} `json:"workflow_run"`
	Repository struct {
		ID       int64  `json:"id"`
		Name     string `json:"name"`
		FullName string `json:"full_name"`
		Private  bool   `json:"private"`
		Owner    struct {
			Login string `json:"login"`
		} `json:"owner"`
	} `json:"repository"`
	Installation struct {
		ID int64 `json:"id"`
	} `json:"installation"`
}

// Handle processes POST /webhooks/provider.
func (wc *WebhookController) Handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	if !wc.verifySignature(body, c.GetHeader("X-Hub-Signature-256")) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
		return
	}

	var event workflowRunEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed payload"})
		return
	}

	// Only terminal failures are worth analyzing.
	if event.Action != "completed" || event.WorkflowRun.Conclusion != "failure" {
		c.JSON(http.StatusOK, gin.H{"message": "Event ignored"})
		return
	}

	run, err := wc.upsertRun(&event)
	if errors.Is(err, errRepoNotImported) {
		c.JSON(http.StatusOK, gin.H{"message": "Repository not imported, event ignored"})
		return
	}
	if err != nil {
		logger.Error("Failed to upsert run from webhook", map[string]interface{}{
			"provider_run_id": event.WorkflowRun.ID,
			"error":           err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record run"})
		return
	}

	payload := queue.LogProcessingPayload{
		RepoFullName:   event.Repository.FullName,
		RunID:          event.WorkflowRun.ID,
		InstallationID: event.Installation.ID,
	}
	if err := wc.jobs.EnqueueLogProcessing(c.Request.Context(), payload); err != nil {
		logger.Error("Failed to enqueue log-processing job", map[string]interface{}{
			"provider_run_id": event.WorkflowRun.ID,
			"error":           err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue job"})
		return
	}

	logger.Info("Run queued for analysis", map[string]interface{}{
		"repo":            event.Repository.FullName,
		"provider_run_id": event.WorkflowRun.ID,
	})

	c.JSON(http.StatusAccepted, gin.H{"message": "Run queued for analysis", "runId": run.ID})
}

func (wc *WebhookController) verifySignature(body []byte, header string) bool {
	if wc.secret == "" {
		// No secret configured means signature checks are disabled (dev mode).
		return true
	}
	if len(header) < 8 || header[:7] != "sha256=" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(wc.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(header[7:]))
}

// errRepoNotImported marks events for repositories nobody has imported.
var errRepoNotImported = errors.New("repository not imported")

func (wc *WebhookController) upsertRun(event *workflowRunEvent) (*models.WorkflowRun, error) {
	// Repositories only exist through user-initiated import; events for
	// unknown repositories are dropped.
	var repo models.Repository
	if err := wc.db.Where("provider_id = ?", event.Repository.ID).First(&repo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errRepoNotImported
		}
		return nil, err
	}

	run := models.WorkflowRun{
		ProviderRunID:  event.WorkflowRun.ID,
		RepositoryID:   repo.ID,
		WorkflowName:   event.WorkflowRun.Name,
		Status:         models.RunStatus(event.WorkflowRun.Conclusion),
		Trigger:        event.WorkflowRun.Event,
		CommitSHA:      event.WorkflowRun.HeadSHA,
		Branch:         event.WorkflowRun.HeadBranch,
		Actor:          event.WorkflowRun.Actor.Login,
		ProviderURL:    event.WorkflowRun.HTMLURL,
		RunCreatedAt:   event.WorkflowRun.CreatedAt,
		InstallationID: event.Installation.ID,
	}

	err := wc.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "provider_run_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"workflow_name", "status", "trigger", "commit_sha", "branch",
			"actor", "provider_url", "run_created_at", "installation_id", "updated_at",
		}),
	}).Create(&run).Error
	if err != nil {
		return nil, err
	}

	if run.ID == 0 {
		if err := wc.db.Where("provider_run_id = ?", event.WorkflowRun.ID).First(&run).Error; err != nil {
			return nil, err
		}
	}

	return &run, nil
}
