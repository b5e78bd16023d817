package tasks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vitrinhq/vitrin/pkg/models"
	"github.com/vitrinhq/vitrin/pkg/store/memory"
	"github.com/vitrinhq/vitrin/pkg/testutils"
)

func newTaskAppState(t *testing.T) (*models.AppState, *memory.Store) {
	t.Helper()
	store := memory.NewStore(testutils.TestDimensions)
	for _, c := range testutils.TestCategories {
		store.PutCategory(c)
	}
	return &models.AppState{
		EmbeddingsClient: testutils.NewFakeEmbeddingsClient(testutils.TestDimensions),
		CatalogStore:     store,
		ReviewStore:      store,
		Config:           testutils.NewTestConfig(),
	}, store
}

// putUnembeddedProducts stores the test products without embeddings and returns their ids.
func putUnembeddedProducts(t *testing.T, store *memory.Store) []int64 {
	t.Helper()
	ids := make([]int64, 0, len(testutils.TestProducts))
	for i := range testutils.TestProducts {
		p := testutils.TestProducts[i]
		p.Embedding = nil
		stored, err := store.PutProduct(context.Background(), &p)
		require.NoError(t, err)
		ids = append(ids, stored.ID)
	}
	return ids
}
