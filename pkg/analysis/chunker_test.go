package analysis

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitrinhq/vitrin/pkg/models"
)

func makeTexts(n int) []string {
	texts := make([]string, n)
	for i := range texts {
		texts[i] = fmt.Sprintf("review %d", i)
	}
	return texts
}

func TestChunkTexts(t *testing.T) {
	tests := []struct {
		name      string
		n         int
		size      int
		wantSizes []int
	}{
		{name: "120 by 50", n: 120, size: 50, wantSizes: []int{50, 50, 20}},
		{name: "exact multiple", n: 100, size: 50, wantSizes: []int{50, 50}},
		{name: "fewer than size", n: 3, size: 50, wantSizes: []int{3}},
		{name: "size one", n: 3, size: 1, wantSizes: []int{1, 1, 1}},
		{name: "empty", n: 0, size: 50, wantSizes: []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := ChunkTexts(makeTexts(tt.n), tt.size)
			require.NoError(t, err)

			sizes := make([]int, len(chunks))
			for i, c := range chunks {
				sizes[i] = len(c)
			}
			assert.Equal(t, tt.wantSizes, sizes)
		})
	}
}

func TestChunkTexts_Reconstruction(t *testing.T) {
	for n := 0; n <= 40; n++ {
		for size := 1; size <= 12; size++ {
			texts := makeTexts(n)
			chunks, err := ChunkTexts(texts, size)
			require.NoError(t, err)

			assert.Len(t, chunks, (n+size-1)/size, "n=%d size=%d", n, size)
			rebuilt := []string{}
			for _, c := range chunks {
				rebuilt = append(rebuilt, c...)
			}
			assert.Equal(t, texts, rebuilt, "n=%d size=%d", n, size)
		}
	}
}

func TestChunkTexts_AppendDoesNotOverwrite(t *testing.T) {
	texts := makeTexts(4)
	chunks, err := ChunkTexts(texts, 2)
	require.NoError(t, err)

	_ = append(chunks[0], "intruder")

	assert.Equal(t, "review 2", chunks[1][0])
	assert.Equal(t, "review 2", texts[2])
}

func TestChunkTexts_InvalidSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		_, err := ChunkTexts(makeTexts(3), size)
		assert.ErrorIs(t, err, models.ErrValidation)
	}
}
