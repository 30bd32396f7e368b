package pipeline

import (
	"fmt"
	"strings"
	"testing"
)

func makeLines(n int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %d", i)
	}
	return lines
}

func TestSplitStepWithinLimit(t *testing.T) {
	chunker := NewChunker(1000, 0.25)
	lines := makeLines(1000)
	steps := []Step{{Name: "Build", StartLine: 0, EndLine: 999}}

	chunks := chunker.Split(lines, steps)

	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk for a 1000-line step, got %d", len(chunks))
	}
	if chunks[0].StepName != "Build" {
		t.Errorf("Expected unchanged step name, got %q", chunks[0].StepName)
	}
	if chunks[0].LineCount != 1000 {
		t.Errorf("Expected 1000 lines, got %d", chunks[0].LineCount)
	}
}

func TestSplitStepOverLimit(t *testing.T) {
	chunker := NewChunker(1000, 0.25)
	lines := makeLines(1001)
	steps := []Step{{Name: "Build", StartLine: 0, EndLine: 1000}}

	chunks := chunker.Split(lines, steps)

	if len(chunks) != 2 {
		t.Fatalf("Expected 2 chunks for a 1001-line step, got %d", len(chunks))
	}
	if chunks[0].StepName != "Build (part 1)" || chunks[1].StepName != "Build (part 2)" {
		t.Errorf("Expected part suffixes, got %q and %q", chunks[0].StepName, chunks[1].StepName)
	}
	if chunks[0].LineCount != 1000 || chunks[1].LineCount != 1 {
		t.Errorf("Expected 1000+1 lines, got %d+%d", chunks[0].LineCount, chunks[1].LineCount)
	}
}

func TestSplitIndicesAreDense(t *testing.T) {
	chunker := NewChunker(100, 0.25)
	lines := makeLines(450)
	steps := []Step{
		{Name: "A", StartLine: 0, EndLine: 249},
		{Name: "B", StartLine: 250, EndLine: 299},
		{Name: "C", StartLine: 300, EndLine: 449},
	}

	chunks := chunker.Split(lines, steps)

	for i, chunk := range chunks {
		if chunk.Index != i {
			t.Errorf("Expected dense index %d, got %d", i, chunk.Index)
		}
	}
}

func TestSplitIsCovering(t *testing.T) {
	chunker := NewChunker(1000, 0.25)
	lines := []string{"alpha", "beta", "gamma"}
	steps := []Step{{Name: "Only", StartLine: 0, EndLine: 2}}

	chunks := chunker.Split(lines, steps)

	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Content != strings.Join(lines, "\n") {
		t.Errorf("Chunk content does not reproduce the step's lines: %q", chunks[0].Content)
	}
}

func TestSplitTokenEstimate(t *testing.T) {
	chunker := NewChunker(1000, 0.25)

	tests := []struct {
		content string
		tokens  int
	}{
		{"", 0},
		{"abcd", 1},
		{"abcde", 2},
		{strings.Repeat("x", 400), 100},
	}

	for _, tt := range tests {
		got := chunker.estimateTokens(tt.content)
		if got != tt.tokens {
			t.Errorf("estimateTokens(%d chars): expected %d, got %d", len(tt.content), tt.tokens, got)
		}
	}
}

func TestSplitTokenEstimateMonotonic(t *testing.T) {
	chunker := NewChunker(1000, 0.25)

	prev := -1
	for n := 0; n <= 64; n++ {
		est := chunker.estimateTokens(strings.Repeat("a", n))
		if est < prev {
			t.Errorf("Token estimate not monotonic at %d chars: %d < %d", n, est, prev)
		}
		prev = est
	}
}

func TestSplitAbsoluteLineRanges(t *testing.T) {
	chunker := NewChunker(2, 0.25)
	lines := makeLines(5)
	steps := []Step{
		{Name: "A", StartLine: 0, EndLine: 1},
		{Name: "B", StartLine: 2, EndLine: 4},
	}

	chunks := chunker.Split(lines, steps)

	if len(chunks) != 3 {
		t.Fatalf("Expected 3 chunks, got %d", len(chunks))
	}
	if chunks[1].StartLine != 2 || chunks[1].EndLine != 3 {
		t.Errorf("Expected B (part 1) to cover 2..3, got %d..%d", chunks[1].StartLine, chunks[1].EndLine)
	}
	if chunks[2].StartLine != 4 || chunks[2].EndLine != 4 {
		t.Errorf("Expected B (part 2) to cover 4..4, got %d..%d", chunks[2].StartLine, chunks[2].EndLine)
	}
}
