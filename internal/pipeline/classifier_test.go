package pipeline

import "testing"

func classifyText(t *testing.T, raw string, opts Options) Classification {
	t.Helper()
	chunker := NewChunker(1000, 0.25)
	res := chunker.Process(raw)
	return Classify(res.Chunks, res.Errors, opts)
}

func TestClassifyIntentionalExit(t *testing.T) {
	// Whether intentional failures sort first or below real issues is a
	// deployment decision, so both priorities must work.
	for _, priority := range []int{0, 5} {
		cls := classifyText(t, "##[group]Force CI failure (testing)\nexit 1\n##[endgroup]", Options{IntentionalPriority: priority})

		if cls.FailureType != FailureIntentional {
			t.Fatalf("priority %d: expected INTENTIONAL, got %s", priority, cls.FailureType)
		}
		if cls.Priority != priority {
			t.Errorf("Expected configured priority %d, got %d", priority, cls.Priority)
		}
		if !cls.SkipLLM {
			t.Errorf("INTENTIONAL must short-circuit the LLM")
		}
		if cls.FailureStage != "Force CI failure (testing)" {
			t.Errorf("Expected failure stage from the step name, got %q", cls.FailureStage)
		}
		if cls.RootCause == "" || cls.SuggestedFix == "" {
			t.Errorf("INTENTIONAL must carry a complete narrative")
		}
		if cls.Confidence != 1.0 {
			t.Errorf("Expected confidence 1.0, got %f", cls.Confidence)
		}
	}
}

func TestClassifyIntentionalForceFailStepName(t *testing.T) {
	raw := "##[group]Force fail for canary\n##[error]Process completed with exit code 1.\n##[endgroup]"
	cls := classifyText(t, raw, Options{})

	if cls.FailureType != FailureIntentional {
		t.Errorf("Expected force+fail step name with errors to classify INTENTIONAL, got %s", cls.FailureType)
	}
}

func TestClassifyDetectionOrder(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		failureType string
		priority    int
	}{
		{"test", "AssertionError: expected 2 but got 3", FailureTest, 1},
		{"build", "webpack compilation error in src/index.ts", FailureBuild, 2},
		{"runtime", "TypeError: Cannot read properties of undefined", FailureRuntime, 3},
		{"infra", "connect ECONNREFUSED 10.0.0.2:5432", FailureInfra, 4},
		{"security", "found 3 high severity vulnerabilities, see CVE-2024-12345", FailureSecurity, 5},
		{"timeout", "context deadline exceeded while waiting", FailureTimeout, 6},
		{"dependency", "npm ERR! ERESOLVE unable to resolve dependency tree", FailureDependency, 7},
		{"config", "Error: environment variable DATABASE_URL not set", FailureConfig, 8},
		{"permission", "EACCES: permission denied, open '/etc/secret'", FailurePermission, 9},
		{"lint", "eslint found 12 problems", FailureLint, 10},
	}

	for _, tt := range tests {
		cls := classifyText(t, tt.raw, Options{})
		if cls.FailureType != tt.failureType {
			t.Errorf("%s: expected %s, got %s", tt.name, tt.failureType, cls.FailureType)
		}
		if cls.Priority != tt.priority {
			t.Errorf("%s: expected priority %d, got %d", tt.name, tt.priority, cls.Priority)
		}
		if cls.SkipLLM {
			t.Errorf("%s: only INTENTIONAL may skip the LLM", tt.name)
		}
		if cls.Reason == "" {
			t.Errorf("%s: classification must carry a reason", tt.name)
		}
	}
}

func TestClassifyTestBeatsLint(t *testing.T) {
	raw := "AssertionError: expected 200 but got 500\neslint warning: no-unused-vars"
	cls := classifyText(t, raw, Options{})

	if cls.FailureType != FailureTest {
		t.Errorf("Expected TEST to outrank LINT, got %s", cls.FailureType)
	}
	if cls.Priority != 1 {
		t.Errorf("Expected priority 1, got %d", cls.Priority)
	}
}

func TestClassifyUnknownDefault(t *testing.T) {
	cls := classifyText(t, "everything looks completely ordinary here", Options{})

	if cls.FailureType != FailureUnknown {
		t.Errorf("Expected UNKNOWN, got %s", cls.FailureType)
	}
	if cls.Priority != PriorityUnknown {
		t.Errorf("Expected priority %d, got %d", PriorityUnknown, cls.Priority)
	}
	if cls.SkipLLM {
		t.Errorf("UNKNOWN must go to the LLM")
	}
}

func TestClassifyDeterminism(t *testing.T) {
	raw := "Run npm test\nAssertionError: boom\n3 failing\neslint warning"

	first := classifyText(t, raw, Options{})
	second := classifyText(t, raw, Options{})

	if first != second {
		t.Errorf("Classification differs across identical inputs: %+v vs %+v", first, second)
	}
}

func TestKnownPriority(t *testing.T) {
	if got := KnownPriority(FailureBuild); got != 2 {
		t.Errorf("Expected 2 for BUILD, got %d", got)
	}
	if got := KnownPriority("SOMETHING_NEW"); got != PriorityUnknown {
		t.Errorf("Expected %d for a novel category, got %d", PriorityUnknown, got)
	}
}
