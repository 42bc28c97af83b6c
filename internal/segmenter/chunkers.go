package segmenter

import (
	"strings"
	"unicode"
)

// splitRecursive walks the text in ChunkSize windows, cutting back to the
// nearest whitespace boundary past MinChars and re-entering with Overlap.
func splitRecursive(text string, cfg Config) []string {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil
	}
	runes := []rune(clean)
	if len(runes) <= cfg.ChunkSize {
		return []string{clean}
	}

	chunks := make([]string, 0, 8)
	start := 0
	for start < len(runes) {
		if cfg.MaxChunks > 0 && len(chunks) >= cfg.MaxChunks {
			break
		}

		end := start + cfg.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}

		if end < len(runes) {
			cut := end
			minCut := start + cfg.MinChars
			if minCut > end {
				minCut = start
			}
			for i := end; i > minCut; i-- {
				if unicode.IsSpace(runes[i-1]) {
					cut = i
					break
				}
			}
			end = cut
		}

		if end <= start {
			break
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end >= len(runes) {
			break
		}

		nextStart := end
		if cfg.Overlap > 0 && end-start > cfg.Overlap {
			nextStart = end - cfg.Overlap
		}
		if nextStart <= start {
			nextStart = end
		}
		start = nextStart
	}

	return chunks
}

// splitTokens groups whitespace tokens into windows of ChunkSize tokens
// with Overlap tokens carried between consecutive windows.
func splitTokens(text string, cfg Config) []string {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return nil
	}

	size := cfg.ChunkSize
	if size > 512 {
		// ChunkSize defaults are tuned for characters; cap token windows.
		size = 256
	}
	overlap := cfg.Overlap
	if overlap >= size {
		overlap = size / 4
	}

	var chunks []string
	for start := 0; start < len(tokens); {
		if cfg.MaxChunks > 0 && len(chunks) >= cfg.MaxChunks {
			break
		}
		end := start + size
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, strings.Join(tokens[start:end], " "))
		if end >= len(tokens) {
			break
		}
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// splitSentences accumulates sentences until adding the next one would
// exceed ChunkSize characters. A single oversized sentence becomes its
// own chunk.
func splitSentences(text string, cfg Config) []string {
	sentences := splitIntoSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	var buf strings.Builder
	for _, sentence := range sentences {
		if buf.Len() > 0 && buf.Len()+1+len(sentence) > cfg.ChunkSize {
			chunks = append(chunks, buf.String())
			buf.Reset()
			if cfg.MaxChunks > 0 && len(chunks) >= cfg.MaxChunks {
				return chunks
			}
		}
		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(sentence)
	}
	if buf.Len() > 0 {
		chunks = append(chunks, buf.String())
	}
	return chunks
}

func splitIntoSentences(text string) []string {
	var sentences []string
	var buf strings.Builder
	runes := []rune(strings.TrimSpace(text))
	for i, r := range runes {
		buf.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			atEnd := i == len(runes)-1
			if atEnd || unicode.IsSpace(runes[i+1]) {
				sentence := strings.TrimSpace(buf.String())
				if sentence != "" {
					sentences = append(sentences, sentence)
				}
				buf.Reset()
			}
		}
	}
	if rest := strings.TrimSpace(buf.String()); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}
