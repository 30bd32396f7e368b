package pipeline

import (
	"fmt"
	"math"
	"strings"
)

// Chunk is a size-bounded slice of a step's lines. Index values are global
// per run and form a dense 0..N-1 prefix.
type Chunk struct {
	Index         int             `json:"index"`
	StepName      string          `json:"stepName"`
	Content       string          `json:"content"`
	StartLine     int             `json:"startLine"`
	EndLine       int             `json:"endLine"`
	LineCount     int             `json:"lineCount"`
	TokenEstimate int             `json:"tokenEstimate"`
	HasErrors     bool            `json:"hasErrors"`
	ErrorCount    int             `json:"errorCount"`
	Errors        []DetectedError `json:"-"`
}

// Chunker partitions steps into chunks of at most MaxLines lines.
type Chunker struct {
	MaxLines      int
	TokensPerChar float64
}

func NewChunker(maxLines int, tokensPerChar float64) *Chunker {
	if maxLines <= 0 {
		maxLines = 1000
	}
	if tokensPerChar <= 0 {
		tokensPerChar = 0.25
	}
	return &Chunker{MaxLines: maxLines, TokensPerChar: tokensPerChar}
}

// Split partitions each step into chunks. A step that fits in MaxLines
// yields one chunk carrying the step's name; larger steps yield contiguous
// chunks named "<step> (part k)".
func (c *Chunker) Split(lines []string, steps []Step) []Chunk {
	var chunks []Chunk
	index := 0

	for _, step := range steps {
		stepLines := lines[step.StartLine : step.EndLine+1]
		parts := (len(stepLines) + c.MaxLines - 1) / c.MaxLines

		for p := 0; p < parts; p++ {
			lo := p * c.MaxLines
			hi := lo + c.MaxLines
			if hi > len(stepLines) {
				hi = len(stepLines)
			}

			name := step.Name
			if parts > 1 {
				name = fmt.Sprintf("%s (part %d)", step.Name, p+1)
			}

			content := strings.Join(stepLines[lo:hi], "\n")
			chunks = append(chunks, Chunk{
				Index:         index,
				StepName:      name,
				Content:       content,
				StartLine:     step.StartLine + lo,
				EndLine:       step.StartLine + hi - 1,
				LineCount:     hi - lo,
				TokenEstimate: c.estimateTokens(content),
			})
			index++
		}
	}

	return chunks
}

func (c *Chunker) estimateTokens(content string) int {
	return int(math.Ceil(float64(len(content)) * c.TokensPerChar))
}
