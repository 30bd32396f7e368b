package pipeline

import (
	"strings"
	"testing"
)

func TestDetectStepsFullLogFallback(t *testing.T) {
	lines := []string{"just", "some", "output"}
	steps := DetectSteps(lines)

	if len(steps) != 1 {
		t.Fatalf("Expected 1 step, got %d", len(steps))
	}
	if steps[0].Name != "Full Log" {
		t.Errorf("Expected step name 'Full Log', got %q", steps[0].Name)
	}
	if steps[0].StartLine != 0 || steps[0].EndLine != 2 {
		t.Errorf("Expected range 0..2, got %d..%d", steps[0].StartLine, steps[0].EndLine)
	}
}

func TestDetectStepsLogFileMarker(t *testing.T) {
	lines := []string{
		"--- Log File: 1_build.txt ---",
		"compiling",
		"--- Log File: 2_test.txt ---",
		"testing",
	}
	steps := DetectSteps(lines)

	if len(steps) != 2 {
		t.Fatalf("Expected 2 steps, got %d", len(steps))
	}
	if steps[0].Name != "build" {
		t.Errorf("Expected prefix and suffix stripped, got %q", steps[0].Name)
	}
	if steps[1].Name != "test" {
		t.Errorf("Expected prefix and suffix stripped, got %q", steps[1].Name)
	}
	if steps[0].EndLine != 1 || steps[1].StartLine != 2 {
		t.Errorf("Expected adjacent ranges, got %+v", steps)
	}
}

func TestDetectStepsMarkerWinsOverGroup(t *testing.T) {
	lines := []string{
		"--- Log File: 3_deploy.txt ---",
		"##[group]Inner group",
		"inner output",
		"##[endgroup]",
	}
	steps := DetectSteps(lines)

	if len(steps) != 1 {
		t.Fatalf("Expected group markers ignored inside log-file step, got %d steps", len(steps))
	}
	if steps[0].Name != "deploy" {
		t.Errorf("Expected 'deploy', got %q", steps[0].Name)
	}
}

func TestDetectStepsGroups(t *testing.T) {
	lines := []string{
		"##[group]Install dependencies",
		"npm install",
		"##[endgroup]",
		"##[group]Build",
		"npm run build",
		"##[endgroup]",
	}
	steps := DetectSteps(lines)

	if len(steps) != 2 {
		t.Fatalf("Expected 2 steps, got %d", len(steps))
	}
	if steps[0].Name != "Install dependencies" || steps[1].Name != "Build" {
		t.Errorf("Unexpected step names: %+v", steps)
	}
}

func TestDetectStepsRunCommand(t *testing.T) {
	lines := []string{
		"Run npm test",
		"test output",
	}
	steps := DetectSteps(lines)

	if len(steps) != 1 {
		t.Fatalf("Expected 1 step, got %d", len(steps))
	}
	if steps[0].Name != "Run: npm test" {
		t.Errorf("Expected 'Run: npm test', got %q", steps[0].Name)
	}
}

func TestDetectStepsRunCommandTruncation(t *testing.T) {
	cmd := strings.Repeat("x", 60)
	steps := DetectSteps([]string{"Run " + cmd})

	expected := "Run: " + strings.Repeat("x", 50) + "..."
	if steps[0].Name != expected {
		t.Errorf("Expected %q, got %q", expected, steps[0].Name)
	}
}

func TestDetectStepsRunIgnoredInsideOpenStep(t *testing.T) {
	lines := []string{
		"##[group]Setup",
		"Run npm install",
		"##[endgroup]",
		"Run npm test",
	}
	steps := DetectSteps(lines)

	if len(steps) != 2 {
		t.Fatalf("Expected 2 steps, got %d: %+v", len(steps), steps)
	}
	if steps[0].Name != "Setup" {
		t.Errorf("Expected 'Setup', got %q", steps[0].Name)
	}
	if steps[1].Name != "Run: npm test" {
		t.Errorf("Expected the post-group Run line to start a step, got %q", steps[1].Name)
	}
}

func TestDetectStepsPostStep(t *testing.T) {
	lines := []string{
		"Run actions/checkout@v4",
		"checked out",
		"Post actions/checkout@v4",
		"cleaning up",
	}
	steps := DetectSteps(lines)

	// "Post" only starts a step when none is open; the Run step stays open.
	if len(steps) != 1 {
		t.Fatalf("Expected 1 step, got %d: %+v", len(steps), steps)
	}
}

func TestDetectStepsCoverage(t *testing.T) {
	lines := []string{
		"preamble output",
		"##[group]Build",
		"building",
		"##[endgroup]",
		"trailing output",
	}
	steps := DetectSteps(lines)

	// Ranges must cover every line with no gaps or overlaps.
	next := 0
	for _, s := range steps {
		if s.StartLine != next {
			t.Errorf("Gap or overlap before step %q: expected start %d, got %d", s.Name, next, s.StartLine)
		}
		next = s.EndLine + 1
	}
	if next != len(lines) {
		t.Errorf("Steps end at %d, expected %d", next, len(lines))
	}
}
