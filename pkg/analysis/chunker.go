package analysis

import "github.com/vitrinhq/vitrin/pkg/models"

const DefaultChunkSize = 50

// ChunkTexts splits texts into consecutive chunks of at most size items,
// preserving order. Chunks share texts' backing array but are capped, so
// appending to one never overwrites the next.
func ChunkTexts(texts []string, size int) ([][]string, error) {
	if size < 1 {
		return nil, models.NewValidationError("chunk_size", "must be at least 1")
	}

	chunks := make([][]string, 0, (len(texts)+size-1)/size)
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))
		chunks = append(chunks, texts[start:end:end])
	}

	return chunks, nil
}
