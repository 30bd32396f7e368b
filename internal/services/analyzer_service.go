package services

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/buildlens/backend/internal/logger"
	"github.com/buildlens/backend/internal/models"
	"github.com/buildlens/backend/internal/pipeline"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AnalyzerService coordinates classification, retrieval and the LLM call,
// and writes the single AnalysisResult for a run. Every run that reaches it
// ends up with exactly one result: classifier-derived, LLM-derived, or the
// fallback narrative when the provider is down.
type AnalyzerService struct {
	db                  *gorm.DB
	llm                 *LLMService
	rag                 *RAGService
	intentionalPriority int
}

func NewAnalyzerService(db *gorm.DB, llm *LLMService, rag *RAGService, intentionalPriority int) *AnalyzerService {
	return &AnalyzerService{
		db:                  db,
		llm:                 llm,
		rag:                 rag,
		intentionalPriority: intentionalPriority,
	}
}

type narrativeJSON struct {
	RootCause    string `json:"rootCause"`
	FailureStage string `json:"failureStage"`
	SuggestedFix string `json:"suggestedFix"`
}

type llmCategoryJSON struct {
	Category string `json:"category"`
	Reason   string `json:"reason"`
}

// AnalyzeRun produces and upserts the AnalysisResult for a run. The upsert
// is keyed by run_id and is the pipeline's final write.
func (as *AnalyzerService) AnalyzeRun(ctx context.Context, runID uint, res *pipeline.Result) (*models.AnalysisResult, error) {
	cls := pipeline.Classify(res.Chunks, res.Errors, pipeline.Options{
		IntentionalPriority: as.intentionalPriority,
	})

	result := &models.AnalysisResult{
		RunID:            runID,
		FailureType:      cls.FailureType,
		Priority:         cls.Priority,
		Confidence:       cls.Confidence,
		ConfidenceReason: cls.Reason,
	}

	if errsJSON, err := json.Marshal(res.Errors); err == nil {
		result.DetectedErrors = errsJSON
	}
	if stepsJSON, err := json.Marshal(res.Steps); err == nil {
		result.Steps = stepsJSON
	}

	if cls.SkipLLM {
		result.RootCause = cls.RootCause
		result.FailureStage = cls.FailureStage
		result.SuggestedFix = cls.SuggestedFix
		result.UsedLLM = false
	} else {
		as.analyzeWithLLM(ctx, runID, res, &cls, result)
	}

	if err := as.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "run_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"root_cause", "failure_stage", "suggested_fix", "failure_type",
			"priority", "confidence", "confidence_reason", "used_llm",
			"detected_errors", "steps", "updated_at",
		}),
	}).Create(result).Error; err != nil {
		return nil, fmt.Errorf("failed to upsert analysis result: %w", err)
	}

	return result, nil
}

func (as *AnalyzerService) analyzeWithLLM(ctx context.Context, runID uint, res *pipeline.Result, cls *pipeline.Classification, result *models.AnalysisResult) {
	// An unclassified failure gets one shot at LLM categorization before
	// the narrative call.
	if cls.FailureType == pipeline.FailureUnknown {
		if category, err := as.classifyWithLLM(ctx, res); err == nil && category != pipeline.FailureUnknown {
			cls.FailureType = category
			cls.Priority = pipeline.KnownPriority(category)
			result.FailureType = category
			result.Priority = cls.Priority
		}
	}

	query := as.rag.BuildQuery(res.Errors, res.Chunks)
	cases, err := as.rag.Retrieve(ctx, query)
	if err != nil {
		logger.Warn("RAG retrieval failed, proceeding without context", map[string]interface{}{
			"run_id": runID,
			"error":  err.Error(),
		})
		cases = nil
	}

	prompt := as.buildAnalysisPrompt(res, cls, as.rag.ContextBlock(cases))

	response, err := as.llm.Generate(ctx, prompt)
	if err != nil {
		logger.Error("LLM analysis failed, using fallback narrative", map[string]interface{}{
			"run_id": runID,
			"error":  err.Error(),
		})
		as.applyFallbackNarrative(res, cls, result)
		return
	}

	rootCause, failureStage, suggestedFix := parseNarrative(response)
	if rootCause == "" {
		as.applyFallbackNarrative(res, cls, result)
		return
	}

	result.RootCause = rootCause
	result.FailureStage = failureStage
	result.SuggestedFix = suggestedFix
	result.UsedLLM = true
	result.Confidence = as.rag.SynthesizeConfidence(cases)
	result.ConfidenceReason = fmt.Sprintf("%d similar case(s) retrieved", len(cases))
}

// parseNarrative extracts the narrative triple from an LLM response,
// falling back to line heuristics when no JSON object is present.
func parseNarrative(response string) (rootCause, failureStage, suggestedFix string) {
	if obj, ok := ExtractJSONObject(response); ok {
		var n narrativeJSON
		if err := json.Unmarshal([]byte(obj), &n); err == nil && n.RootCause != "" {
			return n.RootCause, n.FailureStage, n.SuggestedFix
		}
	}
	return HeuristicNarrative(response)
}

// applyFallbackNarrative fills a fixed narrative so the pipeline always
// produces a result even when the provider is unreachable.
func (as *AnalyzerService) applyFallbackNarrative(res *pipeline.Result, cls *pipeline.Classification, result *models.AnalysisResult) {
	stage := ""
	for _, e := range res.Errors {
		stage = e.StepName
		break
	}

	result.RootCause = fmt.Sprintf(
		"Automated narrative generation was unavailable. Deterministic classification: %s (%s).",
		cls.FailureType, cls.Reason)
	result.FailureStage = stage
	result.SuggestedFix = "Inspect the detected error signals attached to this analysis and re-run the analysis once the language model service is reachable."
	result.UsedLLM = false
}

func (as *AnalyzerService) buildAnalysisPrompt(res *pipeline.Result, cls *pipeline.Classification, ragBlock string) string {
	var errLines []string
	for i, e := range res.Errors {
		if i >= 20 {
			errLines = append(errLines, fmt.Sprintf("... and %d more", len(res.Errors)-i))
			break
		}
		errLines = append(errLines, fmt.Sprintf("- [%s/%s] step %q: %s", e.Category, e.Confidence, e.StepName, e.Message))
	}
	if len(errLines) == 0 {
		errLines = append(errLines, "(no deterministic error signals extracted)")
	}

	classification := fmt.Sprintf("%s (priority %d) - %s", cls.FailureType, cls.Priority, cls.Reason)

	var excerpts []string
	for _, chunk := range selectPromptChunks(res.Chunks) {
		excerpts = append(excerpts, fmt.Sprintf("--- Step: %s ---\n%s", chunk.StepName, lastLines(chunk.Content, 30)))
	}

	return fmt.Sprintf(analysisPromptTemplate,
		strings.Join(errLines, "\n"),
		classification,
		strings.Join(excerpts, "\n"),
		ragBlock,
	)
}

// selectPromptChunks picks every error-bearing chunk plus the final two
// chunks, which carry the job's closing status, deduplicated by index.
func selectPromptChunks(chunks []pipeline.Chunk) []pipeline.Chunk {
	seen := make(map[int]bool)
	var selected []pipeline.Chunk

	add := func(c pipeline.Chunk) {
		if seen[c.Index] {
			return
		}
		seen[c.Index] = true
		selected = append(selected, c)
	}

	for _, c := range chunks {
		if c.HasErrors {
			add(c)
		}
	}
	for i := len(chunks) - 2; i < len(chunks); i++ {
		if i >= 0 {
			add(chunks[i])
		}
	}

	return selected
}

func lastLines(content string, n int) string {
	lines := strings.Split(content, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

func (as *AnalyzerService) classifyWithLLM(ctx context.Context, res *pipeline.Result) (string, error) {
	var evidence []string
	for i, e := range res.Errors {
		if i >= 10 {
			break
		}
		evidence = append(evidence, fmt.Sprintf("- %s: %s", e.Category, e.Message))
	}
	for _, chunk := range res.Chunks {
		if chunk.HasErrors {
			evidence = append(evidence, lastLines(chunk.Content, 15))
			break
		}
	}
	if len(evidence) == 0 && len(res.Chunks) > 0 {
		evidence = append(evidence, lastLines(res.Chunks[len(res.Chunks)-1].Content, 15))
	}

	prompt := fmt.Sprintf(classificationPromptTemplate, strings.Join(evidence, "\n"))

	response, err := as.llm.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	obj, ok := ExtractJSONObject(response)
	if !ok {
		return "", fmt.Errorf("LLM classification returned no JSON object")
	}

	var parsed llmCategoryJSON
	if err := json.Unmarshal([]byte(obj), &parsed); err != nil {
		return "", fmt.Errorf("failed to parse LLM classification: %w", err)
	}

	return NormalizeCategory(parsed.Category), nil
}

var nonAlphanumericRe = regexp.MustCompile(`[^A-Z0-9]+`)

// NormalizeCategory uppercases a model-proposed category and folds any
// non-alphanumeric runs into underscores. Empty input normalizes to UNKNOWN.
func NormalizeCategory(category string) string {
	category = strings.ToUpper(strings.TrimSpace(category))
	category = nonAlphanumericRe.ReplaceAllString(category, "_")
	category = strings.Trim(category, "_")
	if category == "" {
		return pipeline.FailureUnknown
	}
	return category
}
