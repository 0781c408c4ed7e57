// Package knowledge implements the multi-strategy retrieval engine: document
// chunking and embedding at ingestion time, and at query time the fan-out
// across semantic, keyword and question-variation search with a ranked,
// deduplicated merge.
package knowledge

import (
	"strings"
	"unicode/utf8"

	"github.com/sangguni-ai/sangguni/config"
)

// ChunkDraft is a segment of a source document, before embedding.
type ChunkDraft struct {
	Content string
	Index   int
	Offset  int
}

// Chunker splits raw text into overlapping segments of bounded size so facts
// spanning a boundary stay retrievable from at least one chunk.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker from configuration.
func NewChunker(cfg config.ChunkingConfig) *Chunker {
	size := cfg.Size
	if size <= 0 {
		size = 1000
	}
	overlap := cfg.Overlap
	if overlap < 0 || overlap >= size {
		overlap = size / 5
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split segments text into drafts of at most the configured size, preferring
// paragraph and sentence boundaries over hard character cuts. Empty input
// yields zero chunks.
func (c *Chunker) Split(text string) []ChunkDraft {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var drafts []ChunkDraft
	start := 0
	for start < len(text) {
		end := start + c.size
		if end >= len(text) {
			end = len(text)
		} else {
			// Hard cuts must not sever a multibyte rune.
			for end > start && !utf8.RuneStart(text[end]) {
				end--
			}
			end = snapToBoundary(text, start, end)
		}
		content := strings.TrimSpace(text[start:end])
		if content != "" {
			drafts = append(drafts, ChunkDraft{Content: content, Index: len(drafts), Offset: start})
		}
		if end >= len(text) {
			break
		}
		next := end - c.overlap
		for next < len(text) && !utf8.RuneStart(text[next]) {
			next++
		}
		if next <= start {
			next = end
		}
		start = next
	}
	return drafts
}

// boundary markers in preference order; offsets keep the marker with the
// preceding chunk.
var boundaryMarkers = []string{"\n\n", ". ", "! ", "? ", "\n"}

// snapToBoundary pulls the cut position back to the nearest natural break
// inside the second half of the window, falling back to the hard cut.
func snapToBoundary(text string, start, end int) int {
	window := text[start:end]
	floor := len(window) / 2
	for _, marker := range boundaryMarkers {
		if idx := strings.LastIndex(window, marker); idx >= floor {
			return start + idx + len(marker)
		}
	}
	return end
}
