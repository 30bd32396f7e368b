package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/buildlens/backend/internal/logger"
	"github.com/buildlens/backend/internal/pipeline"
	"github.com/pgvector/pgvector-go"
)

// RAGService retrieves historically similar error chunks with their
// analyses and splices them into the LLM prompt, so the returned narrative
// is grounded in prior resolutions instead of speculation.
type RAGService struct {
	search   *VectorSearch
	llm      *LLMService
	maxCases int
	minSim   float64
}

func NewRAGService(search *VectorSearch, llm *LLMService, maxCases int, minSim float64) *RAGService {
	if maxCases <= 0 {
		maxCases = 3
	}
	if minSim <= 0 {
		minSim = 0.6
	}
	return &RAGService{search: search, llm: llm, maxCases: maxCases, minSim: minSim}
}

// BuildQuery concatenates the top detected-error messages with the opening
// lines of the first error-bearing chunk into one retrieval query.
func (rs *RAGService) BuildQuery(errs []pipeline.DetectedError, chunks []pipeline.Chunk) string {
	var parts []string

	for i, e := range errs {
		if i >= 5 {
			break
		}
		parts = append(parts, e.Message)
	}

	for _, chunk := range chunks {
		if !chunk.HasErrors {
			continue
		}
		lines := strings.Split(chunk.Content, "\n")
		if len(lines) > 10 {
			lines = lines[:10]
		}
		parts = append(parts, strings.Join(lines, "\n"))
		break
	}

	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// Retrieve embeds the query and returns up to maxCases similar cases whose
// similarity clears the admission threshold.
func (rs *RAGService) Retrieve(ctx context.Context, query string) ([]CaseMatch, error) {
	if query == "" {
		return nil, nil
	}

	embedding, err := rs.llm.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed retrieval query: %w", err)
	}

	cases, err := rs.search.FindSimilarWithAnalysis(pgvector.NewVector(embedding), rs.maxCases)
	if err != nil {
		return nil, err
	}

	admitted := cases[:0]
	for _, c := range cases {
		if c.Similarity >= rs.minSim {
			admitted = append(admitted, c)
		}
	}

	logger.Debug("RAG retrieval finished", map[string]interface{}{
		"candidates": len(cases),
		"admitted":   len(admitted),
	})

	return admitted, nil
}

// ContextBlock renders retrieved cases for prompt splicing. Empty when no
// case was admitted.
func (rs *RAGService) ContextBlock(cases []CaseMatch) string {
	if len(cases) == 0 {
		return ""
	}

	var b strings.Builder
	for i, c := range cases {
		fmt.Fprintf(&b, "Case %d (similarity %.2f, workflow %q, branch %q):\n", i+1, c.Similarity, c.WorkflowName, c.Branch)
		fmt.Fprintf(&b, "  Error excerpt: %s\n", Truncate(strings.ReplaceAll(c.Content, "\n", " "), 200))
		if c.RootCause != nil {
			fmt.Fprintf(&b, "  Root cause: %s\n", *c.RootCause)
		}
		if c.SuggestedFix != nil {
			fmt.Fprintf(&b, "  Resolution: %s\n", *c.SuggestedFix)
		}
	}

	return fmt.Sprintf(ragContextTemplate, b.String())
}

// SynthesizeConfidence maps the retrieved case set to a confidence score.
func (rs *RAGService) SynthesizeConfidence(cases []CaseMatch) float64 {
	if len(cases) == 0 {
		return 0.5
	}

	top := cases[0].Similarity
	for _, c := range cases[1:] {
		if c.Similarity > top {
			top = c.Similarity
		}
	}

	switch {
	case len(cases) >= 2 && top >= 0.9:
		return 0.95
	case top >= 0.8:
		return 0.85
	case top >= 0.7:
		return 0.75
	default:
		return 0.6
	}
}
