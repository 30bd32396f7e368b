package pipeline

import (
	"fmt"
	"regexp"
	"strings"
)

// Failure types in strict detection order.
const (
	FailureIntentional = "INTENTIONAL"
	FailureTest        = "TEST"
	FailureBuild       = "BUILD"
	FailureRuntime     = "RUNTIME"
	FailureInfra       = "INFRA"
	FailureSecurity    = "SECURITY"
	FailureTimeout     = "TIMEOUT"
	FailureDependency  = "DEPENDENCY"
	FailureConfig      = "CONFIG"
	FailurePermission  = "PERMISSION"
	FailureLint        = "LINT"
	FailureUnknown     = "UNKNOWN"
)

// PriorityUnknown sorts unclassified failures last.
const PriorityUnknown = 99

// Classification is the deterministic verdict for a run. When SkipLLM is
// set the narrative fields are final and the LLM is never consulted.
type Classification struct {
	FailureType  string  `json:"failureType"`
	Priority     int     `json:"priority"`
	Confidence   float64 `json:"confidence"`
	Reason       string  `json:"reason"`
	SkipLLM      bool    `json:"skipLLM"`
	RootCause    string  `json:"rootCause,omitempty"`
	FailureStage string  `json:"failureStage,omitempty"`
	SuggestedFix string  `json:"suggestedFix,omitempty"`
}

// Options carries the configurable pieces of classification. Whether an
// intentional failure sorts highest (0) or below real issues (5) differs
// between deployments, so the priority is injected rather than fixed.
type Options struct {
	IntentionalPriority int
}

type categoryRule struct {
	failureType string
	priority    int
	label       string
	patterns    []*regexp.Regexp
}

// categoryRules is evaluated in order; the first category with at least one
// matching line wins.
var categoryRules = []categoryRule{
	{FailureTest, 1, "test failure", compileAll(
		`AssertionError`,
		`\d+ failing`,
		`(?i)test.*failed`,
		`(?i)assertion.*failed`,
		`(?i)expected.*but got`,
		`(?i)^FAIL\b`,
	)},
	{FailureBuild, 2, "build failure", compileAll(
		`(?i)build failed`,
		`(?i)compilation error`,
		`(?i)could not compile`,
		`\berror TS\d{4,5}\b`,
		`(?i)webpack.*(error|failed)`,
	)},
	{FailureRuntime, 3, "runtime error", compileAll(
		`TypeError`,
		`ReferenceError`,
		`RangeError`,
		`(?i)cannot read propert(y|ies)`,
		`(?i)undefined is not`,
		`panic:`,
		`(?i)segmentation fault`,
		`NullPointerException`,
	)},
	{FailureInfra, 4, "infrastructure error", compileAll(
		`ECONNREFUSED`,
		`ECONNRESET`,
		`ETIMEDOUT`,
		`(?i)connection (refused|reset|timed out)`,
		`(?i)(docker daemon|containerd|kubelet|kubernetes)`,
		`(?i)database.*(error|unavailable|unreachable)`,
	)},
	{FailureSecurity, 5, "security finding", compileAll(
		`CVE-\d{4}-\d+`,
		`(?i)vulnerabilit`,
		`(?i)authentication fail`,
		`(?i)\bunauthorized\b`,
	)},
	{FailureTimeout, 6, "timeout", compileAll(
		`(?i)\btimeout\b`,
		`(?i)\btimed out\b`,
		`(?i)deadline exceeded`,
	)},
	{FailureDependency, 7, "dependency error", compileAll(
		`npm ERR!`,
		`(?i)yarn error`,
		`ERESOLVE`,
		`(?i)peer dependency`,
		`(?i)cannot find module`,
		`(?i)module not found`,
		`(?i)could not resolve dependenc`,
	)},
	{FailureConfig, 8, "configuration error", compileAll(
		`(?i)missing (required )?env`,
		`(?i)environment variable .*(not set|undefined)`,
		`(?i)invalid (yaml|json)`,
		`(?i)yaml: line \d+`,
		`(?i)json: cannot unmarshal`,
	)},
	{FailurePermission, 9, "permission error", compileAll(
		`EACCES`,
		`EPERM`,
		`(?i)permission denied`,
	)},
	{FailureLint, 10, "lint finding", compileAll(
		`(?i)eslint`,
		`(?i)lint (error|warning)`,
		`(?i)prettier`,
		`(?i)golangci-lint`,
	)},
}

func compileAll(exprs ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		res = append(res, regexp.MustCompile(e))
	}
	return res
}

// KnownPriority maps a failure type to its priority, or PriorityUnknown.
func KnownPriority(failureType string) int {
	for _, rule := range categoryRules {
		if rule.failureType == failureType {
			return rule.priority
		}
	}
	return PriorityUnknown
}

// Classify assigns the failure category deterministically. Detection order
// is strict; the first matching category wins. Intentional failures
// short-circuit with a complete narrative.
func Classify(chunks []Chunk, errs []DetectedError, opts Options) Classification {
	if c, ok := classifyIntentional(chunks, opts); ok {
		return c
	}

	for _, rule := range categoryRules {
		matches := countMatches(chunks, rule.patterns)
		if matches == 0 {
			continue
		}
		return Classification{
			FailureType: rule.failureType,
			Priority:    rule.priority,
			Confidence:  matchConfidence(matches),
			Reason:      fmt.Sprintf("%d %s(s) detected", matches, rule.label),
			SkipLLM:     false,
		}
	}

	return Classification{
		FailureType: FailureUnknown,
		Priority:    PriorityUnknown,
		Confidence:  0.3,
		Reason:      "no known failure signature matched",
		SkipLLM:     false,
	}
}

func classifyIntentional(chunks []Chunk, opts Options) (Classification, bool) {
	stage := ""
	for _, chunk := range chunks {
		for _, line := range strings.Split(chunk.Content, "\n") {
			if exitCommandRe.MatchString(line) {
				stage = chunk.StepName
				break
			}
		}
		if stage != "" {
			break
		}

		name := strings.ToLower(chunk.StepName)
		if strings.Contains(name, "force") && strings.Contains(name, "fail") && chunk.ErrorCount > 0 {
			stage = chunk.StepName
			break
		}
	}
	if stage == "" {
		return Classification{}, false
	}

	return Classification{
		FailureType:  FailureIntentional,
		Priority:     opts.IntentionalPriority,
		Confidence:   1.0,
		Reason:       "explicit non-zero exit detected",
		SkipLLM:      true,
		RootCause:    "The job terminated through an explicit non-zero exit command. The workflow is deliberately forcing a failure; the build itself did not break.",
		FailureStage: stage,
		SuggestedFix: "Remove the forced exit command (or the force-fail step) from the workflow once it is no longer needed for testing.",
	}, true
}

func countMatches(chunks []Chunk, patterns []*regexp.Regexp) int {
	matches := 0
	for _, chunk := range chunks {
		for _, line := range strings.Split(chunk.Content, "\n") {
			for _, re := range patterns {
				if re.MatchString(line) {
					matches++
					break
				}
			}
		}
	}
	return matches
}

func matchConfidence(matches int) float64 {
	conf := 0.6 + 0.05*float64(matches)
	if conf > 0.95 {
		conf = 0.95
	}
	return conf
}
