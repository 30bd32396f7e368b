package services

import "strings"

// ExtractJSONObject returns the first balanced {...} group in s, scanning
// character by character so braces inside string literals and escape
// sequences do not throw the balance off. Markdown code fences are stripped
// first. A regex cannot do this reliably; LLMs wrap JSON in prose often
// enough that the scanner earns its keep.
func ExtractJSONObject(s string) (string, bool) {
	s = stripCodeFences(s)

	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		ch := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}

	return "", false
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "```json") {
		start := strings.Index(s, "```json")
		end := strings.LastIndex(s, "```")
		if end > start {
			s = s[start+7 : end]
		}
	} else if strings.Contains(s, "```") {
		start := strings.Index(s, "```")
		end := strings.LastIndex(s, "```")
		if end > start {
			s = s[start+3 : end]
		}
	}
	return strings.TrimSpace(s)
}

const (
	maxRootCauseLen    = 300
	maxFailureStageLen = 100
	maxSuggestedFixLen = 500
)

// HeuristicNarrative recovers a narrative from free-form LLM text when no
// JSON object could be extracted. It scans for "root cause", "stage"/"step"
// and "fix"/"solution" labels and captures the text that follows each.
func HeuristicNarrative(s string) (rootCause, failureStage, suggestedFix string) {
	lines := strings.Split(s, "\n")

	capture := func(line string, labels ...string) (string, bool) {
		lower := strings.ToLower(line)
		for _, label := range labels {
			idx := strings.Index(lower, label)
			if idx < 0 {
				continue
			}
			rest := line[idx+len(label):]
			rest = strings.TrimLeft(rest, " \t:*-")
			return strings.TrimSpace(rest), true
		}
		return "", false
	}

	for i, line := range lines {
		if rootCause == "" {
			if v, ok := capture(line, "root cause"); ok {
				rootCause = followUp(v, lines, i)
			}
		}
		if failureStage == "" {
			if v, ok := capture(line, "failure stage", "stage", "step"); ok {
				failureStage = followUp(v, lines, i)
			}
		}
		if suggestedFix == "" {
			if v, ok := capture(line, "suggested fix", "fix", "solution"); ok {
				suggestedFix = followUp(v, lines, i)
			}
		}
	}

	return Truncate(rootCause, maxRootCauseLen),
		Truncate(failureStage, maxFailureStageLen),
		Truncate(suggestedFix, maxSuggestedFixLen)
}

// followUp returns the captured value, or the next non-empty line when the
// label sat alone on its own line.
func followUp(value string, lines []string, idx int) string {
	if value != "" {
		return value
	}
	for j := idx + 1; j < len(lines); j++ {
		next := strings.TrimSpace(lines[j])
		if next != "" {
			return next
		}
	}
	return ""
}

// Truncate caps s at max bytes, appending an ellipsis when cut.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
