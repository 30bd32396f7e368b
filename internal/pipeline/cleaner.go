package pipeline

import (
	"regexp"
	"strings"
)

var (
	// CSI and OSC control sequence families
	csiRe = regexp.MustCompile(`\x1b\[[0-9;?]*[@-~]`)
	oscRe = regexp.MustCompile(`\x1b\][^\x07\x1b]*(\x07|\x1b\\)?`)

	// Leading ISO-8601 timestamp as emitted by CI log collectors
	timestampRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d+Z `)
)

// Clean turns raw log text into a normalized line sequence: control
// sequences and leading timestamps stripped, stray carriage returns folded
// into newlines, lines trimmed, empty lines dropped. Order is preserved.
func Clean(raw string) []string {
	raw = csiRe.ReplaceAllString(raw, "")
	raw = oscRe.ReplaceAllString(raw, "")
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")

	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(timestampRe.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
