package pipeline

import "strings"

// DetectedError is one tagged error line, deduplicated per chunk by
// (category, message). It is embedded as JSON in the AnalysisResult.
type DetectedError struct {
	Category    string   `json:"category"`
	Message     string   `json:"message"`
	Confidence  string   `json:"confidence"`
	Evidence    []string `json:"evidence"`
	Intentional bool     `json:"intentional"`
	ChunkIndex  int      `json:"chunkIndex"`
	StepName    string   `json:"stepName"`
}

// ExtractErrors tags each chunk's lines against the catalogue. A line
// matches at most one pattern; within a chunk errors are deduplicated by
// (category, message). Chunks are updated in place with HasErrors and
// ErrorCount, keeping has-errors equivalent to error-count > 0.
func ExtractErrors(chunks []Chunk) []DetectedError {
	var all []DetectedError

	for i := range chunks {
		chunk := &chunks[i]
		seen := make(map[string]bool)

		for _, line := range strings.Split(chunk.Content, "\n") {
			pattern, ok := matchLine(line)
			if !ok {
				continue
			}

			key := pattern.Category + "\x00" + line
			if seen[key] {
				continue
			}
			seen[key] = true

			chunk.Errors = append(chunk.Errors, DetectedError{
				Category:    pattern.Category,
				Message:     line,
				Confidence:  pattern.Confidence,
				Evidence:    []string{line},
				Intentional: pattern.Intentional,
				ChunkIndex:  chunk.Index,
				StepName:    chunk.StepName,
			})
		}

		chunk.ErrorCount = len(chunk.Errors)
		chunk.HasErrors = chunk.ErrorCount > 0
		all = append(all, chunk.Errors...)
	}

	return all
}

func matchLine(line string) (ErrorPattern, bool) {
	for _, p := range catalogue {
		if p.Pattern.MatchString(line) {
			return p, true
		}
	}
	return ErrorPattern{}, false
}
