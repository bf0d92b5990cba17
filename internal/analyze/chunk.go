package analyze

import (
	"strings"
	"unicode/utf8"
)

// SplitText splits text into chunks of at most maxChars, preferring paragraph
// boundaries in the back half of each window. Consecutive chunks share
// overlap characters so statements spanning a cut are seen twice rather than
// never. At most maxChunks chunks are produced; text beyond that is dropped.
// Cuts never land inside a multi-byte rune.
func SplitText(text string, maxChars, overlap, maxChunks int) []string {
	if maxChars <= 0 || len(text) <= maxChars {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(text) {
		if maxChunks > 0 && len(chunks) >= maxChunks {
			break
		}

		end := start + maxChars
		if end >= len(text) {
			chunks = append(chunks, text[start:])
			break
		}

		cut := runeStart(text, end, start)
		if idx := strings.LastIndex(text[start:end], "\n\n"); idx > maxChars/2 {
			cut = start + idx
		}
		chunks = append(chunks, text[start:cut])

		next := runeStart(text, cut-overlap, start)
		if next <= start {
			next = cut
		}
		start = next
	}
	return chunks
}

// runeStart backs pos up to the nearest rune boundary at or above floor.
func runeStart(text string, pos, floor int) int {
	for pos > floor && !utf8.RuneStart(text[pos]) {
		pos--
	}
	return pos
}
