package services

import (
	"strings"
	"testing"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		ok       bool
	}{
		{
			name:     "bare object",
			input:    `{"rootCause": "x"}`,
			expected: `{"rootCause": "x"}`,
			ok:       true,
		},
		{
			name:     "object wrapped in prose",
			input:    "Here is my analysis:\n{\"rootCause\": \"x\"}\nHope that helps!",
			expected: `{"rootCause": "x"}`,
			ok:       true,
		},
		{
			name:     "markdown fenced",
			input:    "```json\n{\"rootCause\": \"x\"}\n```",
			expected: `{"rootCause": "x"}`,
			ok:       true,
		},
		{
			name:     "braces inside string literal",
			input:    `{"rootCause": "object literal {a: 1} crashed"}`,
			expected: `{"rootCause": "object literal {a: 1} crashed"}`,
			ok:       true,
		},
		{
			name:     "escaped quote inside string",
			input:    `{"rootCause": "file \"main.go\" missing }"}`,
			expected: `{"rootCause": "file \"main.go\" missing }"}`,
			ok:       true,
		},
		{
			name:     "nested objects",
			input:    `prefix {"a": {"b": {"c": 1}}} suffix`,
			expected: `{"a": {"b": {"c": 1}}}`,
			ok:       true,
		},
		{
			name:  "no object",
			input: "sorry, I could not analyze this",
			ok:    false,
		},
		{
			name:  "unbalanced",
			input: `{"rootCause": "truncated`,
			ok:    false,
		},
	}

	for _, tt := range tests {
		got, ok := ExtractJSONObject(tt.input)
		if ok != tt.ok {
			t.Errorf("%s: expected ok=%v, got %v", tt.name, tt.ok, ok)
			continue
		}
		if ok && got != tt.expected {
			t.Errorf("%s: expected %q, got %q", tt.name, tt.expected, got)
		}
	}
}

func TestHeuristicNarrative(t *testing.T) {
	response := `The analysis is as follows.
Root cause: the database migration never ran
Failure stage: migrate
Suggested fix: run the migration before deploying`

	rootCause, stage, fix := HeuristicNarrative(response)

	if rootCause != "the database migration never ran" {
		t.Errorf("Unexpected root cause: %q", rootCause)
	}
	if stage != "migrate" {
		t.Errorf("Unexpected stage: %q", stage)
	}
	if fix != "run the migration before deploying" {
		t.Errorf("Unexpected fix: %q", fix)
	}
}

func TestHeuristicNarrativeLabelOnOwnLine(t *testing.T) {
	response := "Root cause:\n\nThe linker ran out of memory"

	rootCause, _, _ := HeuristicNarrative(response)
	if rootCause != "The linker ran out of memory" {
		t.Errorf("Expected the following line to be captured, got %q", rootCause)
	}
}

func TestHeuristicNarrativeTruncation(t *testing.T) {
	long := strings.Repeat("a", 1000)
	rootCause, stage, fix := HeuristicNarrative(
		"root cause: " + long + "\nstage: " + long + "\nfix: " + long)

	if len(rootCause) > 300 {
		t.Errorf("rootCause not truncated to 300, got %d", len(rootCause))
	}
	if len(stage) > 100 {
		t.Errorf("stage not truncated to 100, got %d", len(stage))
	}
	if len(fix) > 500 {
		t.Errorf("fix not truncated to 500, got %d", len(fix))
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Expected unchanged string, got %q", got)
	}
	got := Truncate(strings.Repeat("x", 20), 10)
	if len(got) != 10 || !strings.HasSuffix(got, "...") {
		t.Errorf("Expected 10-byte truncation with ellipsis, got %q", got)
	}
}
