package pipeline

import (
	"reflect"
	"testing"
)

func TestCleanStripsControlSequences(t *testing.T) {
	raw := "\x1b[32mnpm install\x1b[0m\n\x1b]0;title\x07plain line"
	lines := Clean(raw)

	expected := []string{"npm install", "plain line"}
	if !reflect.DeepEqual(lines, expected) {
		t.Errorf("Expected %v, got %v", expected, lines)
	}
}

func TestCleanStripsTimestamps(t *testing.T) {
	raw := "2024-01-15T10:30:00.1234567Z Run npm test\n2024-01-15T10:30:01.0000000Z done"
	lines := Clean(raw)

	expected := []string{"Run npm test", "done"}
	if !reflect.DeepEqual(lines, expected) {
		t.Errorf("Expected %v, got %v", expected, lines)
	}
}

func TestCleanHandlesCarriageReturns(t *testing.T) {
	raw := "progress 10%\rprogress 50%\rdone\r\nnext line"
	lines := Clean(raw)

	expected := []string{"progress 10%", "progress 50%", "done", "next line"}
	if !reflect.DeepEqual(lines, expected) {
		t.Errorf("Expected %v, got %v", expected, lines)
	}
}

func TestCleanDropsEmptyLines(t *testing.T) {
	raw := "first\n\n   \n\t\nsecond"
	lines := Clean(raw)

	expected := []string{"first", "second"}
	if !reflect.DeepEqual(lines, expected) {
		t.Errorf("Expected %v, got %v", expected, lines)
	}
}

func TestCleanIsIdempotent(t *testing.T) {
	inputs := []string{
		"\x1b[31merror\x1b[0m\n2024-01-15T10:30:00.000Z hello\r\nworld\n\n",
		"plain\ntext",
		"",
	}

	for _, raw := range inputs {
		once := Clean(raw)
		twice := Clean(joinLines(once))
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("Clean not idempotent for %q: first %v, second %v", raw, once, twice)
		}
	}
}

func joinLines(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}

func TestCleanPreservesOrder(t *testing.T) {
	raw := "a\nb\nc\nd"
	lines := Clean(raw)

	expected := []string{"a", "b", "c", "d"}
	if !reflect.DeepEqual(lines, expected) {
		t.Errorf("Expected %v, got %v", expected, lines)
	}
}
