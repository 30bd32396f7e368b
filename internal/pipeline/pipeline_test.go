package pipeline

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestProcessSingleStepLog(t *testing.T) {
	chunker := NewChunker(1000, 0.25)
	res := chunker.Process("no markers here\njust output")

	if len(res.Steps) != 1 || res.Steps[0].Name != "Full Log" {
		t.Fatalf("Expected a single 'Full Log' step, got %+v", res.Steps)
	}
	if len(res.Chunks) != 1 || res.Chunks[0].StepName != "Full Log" {
		t.Errorf("Expected a single 'Full Log' chunk, got %+v", res.Chunks)
	}
}

func TestProcessGiantStepWithLateError(t *testing.T) {
	var b strings.Builder
	b.WriteString("##[group]Long running step\n")
	for i := 0; i < 2500; i++ {
		if i == 2399 {
			b.WriteString("TypeError: Cannot read properties of undefined\n")
			continue
		}
		fmt.Fprintf(&b, "working... iteration %d\n", i)
	}

	chunker := NewChunker(1000, 0.25)
	res := chunker.Process(b.String())

	if len(res.Chunks) != 3 {
		t.Fatalf("Expected 3 chunks for a 2501-line step, got %d", len(res.Chunks))
	}
	for i, c := range res.Chunks {
		expected := fmt.Sprintf("Long running step (part %d)", i+1)
		if c.StepName != expected {
			t.Errorf("Expected %q, got %q", expected, c.StepName)
		}
	}

	// The TypeError sits at absolute line 2400, which lands in part 3.
	if !res.Chunks[2].HasErrors || res.Chunks[2].ErrorCount < 1 {
		t.Errorf("Expected the error on part 3, got HasErrors=%v ErrorCount=%d",
			res.Chunks[2].HasErrors, res.Chunks[2].ErrorCount)
	}
	if res.Chunks[0].HasErrors || res.Chunks[1].HasErrors {
		t.Errorf("Parts 1 and 2 should be clean")
	}

	cls := Classify(res.Chunks, res.Errors, Options{})
	if cls.FailureType != FailureRuntime {
		t.Errorf("Expected RUNTIME, got %s", cls.FailureType)
	}
}

func TestProcessDeterminism(t *testing.T) {
	raw := "--- Log File: 1_build.txt ---\nnpm ERR! Cannot find module 'react'\nbuild failed\n--- Log File: 2_test.txt ---\nAssertionError: boom"

	chunker := NewChunker(1000, 0.25)
	first := chunker.Process(raw)
	second := chunker.Process(raw)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Identical inputs produced different results")
	}
}

func TestProcessMissingModuleScenario(t *testing.T) {
	chunker := NewChunker(1000, 0.25)
	res := chunker.Process("Run npm install\nnpm ERR! Cannot find module 'react'")

	found := false
	for _, e := range res.Errors {
		if e.Category == CategoryDependencyIssue && e.Confidence == ConfidenceHigh {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected a high-confidence Dependency Issue, got %+v", res.Errors)
	}

	cls := Classify(res.Chunks, res.Errors, Options{})
	if cls.FailureType != FailureDependency {
		t.Errorf("Expected DEPENDENCY, got %s", cls.FailureType)
	}
	if cls.Priority != 7 {
		t.Errorf("Expected priority 7, got %d", cls.Priority)
	}
}

func TestProcessEmptyInput(t *testing.T) {
	chunker := NewChunker(1000, 0.25)
	res := chunker.Process("")

	if len(res.Lines) != 0 || len(res.Steps) != 0 || len(res.Chunks) != 0 {
		t.Errorf("Expected empty result for empty input, got %+v", res)
	}
}
