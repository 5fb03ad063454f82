package policy

import (
	"strings"
	"unicode"
)

const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 100
)

// ChunkText splits content into windows of size runes that overlap by
// overlap runes. Trailing whitespace is stripped from every line first and
// blank windows are dropped.
func ChunkText(content string, size, overlap int) []string {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRightFunc(l, unicode.IsSpace)
	}
	text := []rune(strings.TrimSpace(strings.Join(lines, "\n")))

	var chunks []string
	for start := 0; start < len(text); {
		end := min(start+size, len(text))
		if c := string(text[start:end]); strings.TrimSpace(c) != "" {
			chunks = append(chunks, c)
		}
		if end >= len(text) {
			break
		}
		start = max(end-overlap, start+1)
	}
	return chunks
}
