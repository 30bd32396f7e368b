package controllers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/buildlens/backend/internal/pipeline"
	"github.com/gin-gonic/gin"
)

// AnalyzeController serves the synchronous, persistence-free analysis
// endpoint: parse the posted log text and classify it in one round trip.
type AnalyzeController struct {
	chunker             *pipeline.Chunker
	intentionalPriority int
}

func NewAnalyzeController(chunker *pipeline.Chunker, intentionalPriority int) *AnalyzeController {
	return &AnalyzeController{chunker: chunker, intentionalPriority: intentionalPriority}
}

// Analyze handles POST /analyze with a text/plain body. Nothing is stored
// and the LLM is never consulted.
func (ac *AnalyzeController) Analyze(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}
	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Empty log body"})
		return
	}

	res := ac.chunker.Process(string(body))
	cls := pipeline.Classify(res.Chunks, res.Errors, pipeline.Options{
		IntentionalPriority: ac.intentionalPriority,
	})

	rootCause := cls.RootCause
	failureStage := cls.FailureStage
	suggestedFix := cls.SuggestedFix
	if !cls.SkipLLM {
		rootCause = fmt.Sprintf("Classified as %s: %s", cls.FailureType, cls.Reason)
		if len(res.Errors) > 0 {
			failureStage = res.Errors[0].StepName
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"detectedErrors": res.Errors,
		"steps":          res.Steps,
		"rootCause":      rootCause,
		"failureStage":   failureStage,
		"suggestedFix":   suggestedFix,
		"failureType":    cls.FailureType,
		"priority":       cls.Priority,
	})
}
