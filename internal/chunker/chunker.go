package chunker

import "unicode/utf8"

// Split cuts text into ordered, non-overlapping segments of at most maxLen
// bytes, backing each cut off to a rune boundary so multibyte characters
// stay intact. Concatenating the result reproduces the input exactly;
// empty input yields no chunks. Boundaries are otherwise length-based.
func Split(text string, maxLen int) []string {
	if maxLen < 1 || text == "" {
		return nil
	}

	var chunks []string
	for start := 0; start < len(text); {
		end := start + maxLen
		if end >= len(text) {
			end = len(text)
		} else {
			for end > start && !utf8.RuneStart(text[end]) {
				end--
			}
			// A rune wider than maxLen cannot be kept whole.
			if end == start {
				end = start + maxLen
			}
		}
		chunks = append(chunks, text[start:end])
		start = end
	}

	return chunks
}
