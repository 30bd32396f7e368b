package services

// LLM prompt templates. The grounding rules live in the prompt text, not in
// code: detected error signals outrank verbose log text, the priority
// hierarchy is binding, and retrieved cases beat speculation but lose to
// detected errors on conflict.

const (
	// analysisPromptTemplate drives root-cause analysis. Slots: detected
	// errors, current classification, step excerpts, similar-case context.
	analysisPromptTemplate = `You are an expert CI/CD engineer performing Root Cause Analysis on a failed build.

CRITICAL INSTRUCTIONS:
- Return ONLY a single valid JSON object in the exact format specified below
- Do not include any explanatory text, introductions, or markdown formatting
- Be precise and actionable

DETECTED ERROR SIGNALS (authoritative - these outrank the raw log text):
%s

CURRENT CLASSIFICATION:
%s

FAILURE PRIORITY RULES (binding):
1. INTENTIONAL  2. TEST  3. BUILD  4. RUNTIME  5. INFRA  6. SECURITY
7. TIMEOUT  8. DEPENDENCY  9. CONFIG  10. PERMISSION  11. LINT
A lower-priority issue may NEVER be named as the root cause while a
higher-priority issue is present in the detected signals.

RELEVANT LOG EXCERPTS:
%s
%s
ANALYSIS REQUIREMENTS:
1. The detected error signals above are extracted deterministically and are authoritative
2. Respect the priority hierarchy when several issue kinds co-occur
3. Prefer the similar past failures over speculation, but detected errors win on conflict
4. Name the exact workflow step where the failure originated

REQUIRED JSON FORMAT:
{
  "rootCause": "The primary technical root cause with evidence from the signals",
  "failureStage": "The workflow step where the failure originated",
  "suggestedFix": "Specific, actionable remediation steps"
}

Return ONLY the JSON object, nothing else.`

	// ragContextTemplate wraps retrieved similar cases for the prompt.
	ragContextTemplate = `
SIMILAR PAST FAILURES (retrieved by semantic similarity, with their resolutions):
%s`

	// classificationPromptTemplate asks the LLM to categorize a failure the
	// deterministic classifier could not. Slot: detected errors + excerpts.
	classificationPromptTemplate = `You are a CI/CD failure triage expert.

CRITICAL INSTRUCTIONS:
- Return ONLY a single valid JSON object, no other text
- Pick the best matching category, or propose a new short category name

KNOWN CATEGORIES:
TEST, BUILD, RUNTIME, INFRA, SECURITY, TIMEOUT, DEPENDENCY, CONFIG, PERMISSION, LINT

FAILURE EVIDENCE:
%s

REQUIRED JSON FORMAT:
{
  "category": "ONE_OF_THE_CATEGORIES_OR_A_NEW_NAME",
  "reason": "One sentence justifying the choice"
}

Return ONLY the JSON object, nothing else.`
)
