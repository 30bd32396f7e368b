package controllers

import (
	"net/http"
	"strconv"

	"github.com/buildlens/backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/pgvector/pgvector-go"
)

// InsightController exposes embedding coverage and similarity search.
type InsightController struct {
	search *services.VectorSearch
	llm    *services.LLMService
}

func NewInsightController(search *services.VectorSearch, llm *services.LLMService) *InsightController {
	return &InsightController{search: search, llm: llm}
}

// GetEmbeddingStats handles GET /insights/embeddings.
func (ic *InsightController) GetEmbeddingStats(c *gin.Context) {
	stats, err := ic.search.Stats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute embedding stats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

// SearchSimilar handles GET /search/similar?q=... by embedding the query
// and returning the closest chunks above the configured threshold.
func (ic *InsightController) SearchSimilar(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter q is required"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	minSim := ic.search.DefaultMinSimilarity()
	if raw := c.Query("minSimilarity"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			minSim = v
		}
	}
	errorsOnly := c.DefaultQuery("errorsOnly", "false") == "true"

	embedding, err := ic.llm.Embed(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to embed query"})
		return
	}

	vec := pgvector.NewVector(embedding)
	var matches []services.ChunkMatch
	if errorsOnly {
		matches, err = ic.search.FindSimilarErrors(vec, limit, minSim)
	} else {
		matches, err = ic.search.FindSimilarChunks(vec, limit, minSim)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Similarity search failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

// SearchRunChunks handles GET /runs/:id/search?q=... scoped to one run.
func (ic *InsightController) SearchRunChunks(c *gin.Context) {
	runID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid run ID"})
		return
	}

	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter q is required"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "5"))

	embedding, err := ic.llm.Embed(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to embed query"})
		return
	}

	matches, err := ic.search.FindRelevantChunksForRun(uint(runID), pgvector.NewVector(embedding), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Similarity search failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"matches": matches})
}
