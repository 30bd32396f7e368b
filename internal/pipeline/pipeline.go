// Package pipeline holds the pure transformation stages of log analysis:
// cleaning, step detection, chunking, error extraction and deterministic
// classification. Everything here is free of I/O; identical input yields
// byte-for-byte identical output.
package pipeline

// Result is the parsed form of one raw log.
type Result struct {
	Lines  []string
	Steps  []Step
	Chunks []Chunk
	Errors []DetectedError
}

// Process runs clean -> detect steps -> chunk -> extract errors.
func (c *Chunker) Process(raw string) *Result {
	lines := Clean(raw)
	steps := DetectSteps(lines)
	chunks := c.Split(lines, steps)
	errs := ExtractErrors(chunks)
	return &Result{
		Lines:  lines,
		Steps:  steps,
		Chunks: chunks,
		Errors: errs,
	}
}
