package services

import (
	"strings"
	"testing"

	"github.com/buildlens/backend/internal/pipeline"
)

func TestNormalizeCategory(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"test", "TEST"},
		{"  Build  ", "BUILD"},
		{"flaky infra!", "FLAKY_INFRA"},
		{"cache-miss", "CACHE_MISS"},
		{"resource exhaustion (oom)", "RESOURCE_EXHAUSTION_OOM"},
		{"", "UNKNOWN"},
		{"!!!", "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := NormalizeCategory(tt.input); got != tt.expected {
			t.Errorf("NormalizeCategory(%q): expected %q, got %q", tt.input, tt.expected, got)
		}
	}
}

func TestParseNarrativeJSON(t *testing.T) {
	response := `Sure! {"rootCause": "the cache was stale", "failureStage": "restore-cache", "suggestedFix": "bust the cache key"}`

	rootCause, stage, fix := parseNarrative(response)

	if rootCause != "the cache was stale" {
		t.Errorf("Unexpected rootCause: %q", rootCause)
	}
	if stage != "restore-cache" {
		t.Errorf("Unexpected failureStage: %q", stage)
	}
	if fix != "bust the cache key" {
		t.Errorf("Unexpected suggestedFix: %q", fix)
	}
}

func TestParseNarrativeFallsBackToHeuristics(t *testing.T) {
	response := "Root cause: missing build tag\nStage: compile\nFix: add the tag"

	rootCause, stage, fix := parseNarrative(response)

	if rootCause != "missing build tag" || stage != "compile" || fix != "add the tag" {
		t.Errorf("Heuristic fallback failed: %q / %q / %q", rootCause, stage, fix)
	}
}

func TestSelectPromptChunks(t *testing.T) {
	chunks := []pipeline.Chunk{
		{Index: 0, HasErrors: true},
		{Index: 1},
		{Index: 2},
		{Index: 3, HasErrors: true},
		{Index: 4},
	}

	selected := selectPromptChunks(chunks)

	// Error chunks 0 and 3, plus the final two chunks 3 and 4, dedup by index.
	indices := map[int]bool{}
	for _, c := range selected {
		if indices[c.Index] {
			t.Errorf("Chunk %d selected twice", c.Index)
		}
		indices[c.Index] = true
	}
	for _, want := range []int{0, 3, 4} {
		if !indices[want] {
			t.Errorf("Expected chunk %d in selection", want)
		}
	}
	if len(selected) != 3 {
		t.Errorf("Expected 3 chunks, got %d", len(selected))
	}
}

func TestSelectPromptChunksShortRun(t *testing.T) {
	chunks := []pipeline.Chunk{{Index: 0}}
	selected := selectPromptChunks(chunks)

	if len(selected) != 1 || selected[0].Index != 0 {
		t.Errorf("Expected the only chunk, got %+v", selected)
	}
}

func TestLastLines(t *testing.T) {
	content := "a\nb\nc\nd\ne"

	if got := lastLines(content, 2); got != "d\ne" {
		t.Errorf("Expected last 2 lines, got %q", got)
	}
	if got := lastLines(content, 10); got != content {
		t.Errorf("Expected full content when shorter than limit, got %q", got)
	}
}

func TestBuildAnalysisPromptContainsGroundingRules(t *testing.T) {
	as := &AnalyzerService{rag: NewRAGService(nil, nil, 3, 0.6)}

	res := &pipeline.Result{
		Chunks: []pipeline.Chunk{{Index: 0, StepName: "Test", Content: "AssertionError: boom", HasErrors: true, ErrorCount: 1}},
		Errors: []pipeline.DetectedError{{Category: "Test Failure", Message: "AssertionError: boom", Confidence: "high", StepName: "Test"}},
	}
	cls := &pipeline.Classification{FailureType: pipeline.FailureTest, Priority: 1, Reason: "1 test failure(s) detected"}

	prompt := as.buildAnalysisPrompt(res, cls, "")

	for _, want := range []string{
		"AssertionError: boom",
		"TEST (priority 1)",
		"may NEVER be named as the root cause",
		`"rootCause"`,
		`"failureStage"`,
		`"suggestedFix"`,
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Expected prompt to contain %q", want)
		}
	}
}
