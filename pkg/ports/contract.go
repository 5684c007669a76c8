package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/chaptree/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contractForest(t *testing.T) domain.Forest {
	t.Helper()
	f, err := domain.NewForest(
		domain.NewNode("r1", "Act One", []string{"m1", "m1"},
			domain.NewNode("c1", "", nil),
			domain.NewNode("c2", "Finale", []string{"m2"}),
		),
		domain.NewNode("r2", "", nil),
	)
	require.NoError(t, err)
	return f
}

// RunDocumentStoreContract runs a suite of tests to verify that a DocumentStore implementation
// adheres to the defined interface contract.
func RunDocumentStoreContract(t *testing.T, store DocumentStore) {
	ctx := context.Background()
	documentID := "contract-test-doc-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		doc := domain.NewDocument(documentID, contractForest(t))
		doc.Revision = 7

		err := store.Save(ctx, doc)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, documentID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, documentID, loaded.ID)
		assert.Equal(t, uint64(7), loaded.Revision)
		assert.True(t, doc.Forest.Equal(loaded.Forest), "forest must survive a round trip")
		assert.Equal(t, []string{"m1", "m1"}, loaded.Forest.Root(0).MasterRefs(), "duplicate masters are kept")
		assert.WithinDuration(t, doc.UpdatedAt, loaded.UpdatedAt, time.Second)
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		doc := domain.NewDocument(documentID, domain.NewDefaultForest("only"))
		doc.Revision = 8
		require.NoError(t, store.Save(ctx, doc))

		loaded, err := store.Load(ctx, documentID)
		require.NoError(t, err)
		assert.Equal(t, uint64(8), loaded.Revision)
		assert.Equal(t, 1, loaded.Forest.Count())
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+documentID)
		assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, domain.NewDocument(documentID, domain.NewDefaultForest("root")))
		require.NoError(t, err)

		err = store.Delete(ctx, documentID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, documentID)
		assert.ErrorIs(t, err, domain.ErrDocumentNotFound, "Load after Delete should return ErrDocumentNotFound")

		assert.NoError(t, store.Delete(ctx, documentID), "Delete of a missing document should succeed")
	})

	t.Run("List", func(t *testing.T) {
		id1 := documentID + "-1"
		id2 := documentID + "-2"
		require.NoError(t, store.Save(ctx, domain.NewDocument(id1, domain.NewDefaultForest("a"))))
		require.NoError(t, store.Save(ctx, domain.NewDocument(id2, domain.NewDefaultForest("b"))))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
