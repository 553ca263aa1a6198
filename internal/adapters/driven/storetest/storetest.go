// Package storetest holds the behaviour every driven.VectorStore must share.
// Backends call Run from their own tests with a factory for an empty store
// of Dimensions width.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Dimensions is the embedding width used by the shared cases.
const Dimensions = 3

// Chunk builds a stored chunk with the given vector.
func Chunk(id, doc string, page int, content string, v ...float32) domain.Chunk {
	return domain.Chunk{
		ID:          id,
		DocumentID:  doc,
		Page:        page,
		StartOffset: 0,
		Content:     content,
		Metadata: domain.Metadata{
			domain.MetaSource: doc,
			domain.MetaPage:   page,
		},
		Embedding: v,
	}
}

// Run executes the shared cases against stores produced by newStore.
func Run(t *testing.T, newStore func(t *testing.T) driven.VectorStore) {
	t.Run("EmptyStore", func(t *testing.T) {
		s := newStore(t)
		results, err := s.Query(context.Background(), []float32{1, 0, 0}, 5)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("QueryOrdersBySimilarity", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		require.NoError(t, s.Upsert(ctx, []domain.Chunk{
			Chunk("a", "doc.pdf", 1, "exact", 1, 0, 0),
			Chunk("b", "doc.pdf", 1, "orthogonal", 0, 1, 0),
			Chunk("c", "doc.pdf", 2, "close", 0.9, 0.1, 0),
		}))

		results, err := s.Query(ctx, []float32{1, 0, 0}, 2)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "a", results[0].Chunk.ID)
		assert.Equal(t, "c", results[1].Chunk.ID)
		assert.Equal(t, 1, results[0].Rank)
		assert.Equal(t, 2, results[1].Rank)
		assert.InDelta(t, 1.0, results[0].Score, 1e-4)
		assert.Greater(t, results[0].Score, results[1].Score)

		got := results[1].Chunk
		assert.Equal(t, "doc.pdf", got.DocumentID)
		assert.Equal(t, 2, got.Page)
		assert.Equal(t, "close", got.Content)
		assert.Equal(t, "doc.pdf", got.Metadata.String(domain.MetaSource, ""))
		assert.Equal(t, 2, got.Metadata.Int(domain.MetaPage, 0))
	})

	t.Run("QueryReturnsAtMostK", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		require.NoError(t, s.Upsert(ctx, []domain.Chunk{
			Chunk("a", "doc.pdf", 1, "one", 1, 0, 0),
			Chunk("b", "doc.pdf", 1, "two", 0, 1, 0),
		}))

		results, err := s.Query(ctx, []float32{1, 0, 0}, 10)
		require.NoError(t, err)
		assert.Len(t, results, 2)

		results, err = s.Query(ctx, []float32{1, 0, 0}, 1)
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("UpsertReplacesByID", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		require.NoError(t, s.Upsert(ctx, []domain.Chunk{Chunk("a", "doc.pdf", 1, "old", 1, 0, 0)}))
		require.NoError(t, s.Upsert(ctx, []domain.Chunk{Chunk("a", "doc.pdf", 1, "new", 0, 1, 0)}))

		n, err := s.Count(ctx, []string{"a"})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		results, err := s.Query(ctx, []float32{0, 1, 0}, 5)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "new", results[0].Chunk.Content)
		assert.InDelta(t, 1.0, results[0].Score, 1e-4)
	})

	t.Run("Count", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		require.NoError(t, s.Upsert(ctx, []domain.Chunk{
			Chunk("a", "doc.pdf", 1, "one", 1, 0, 0),
			Chunk("b", "doc.pdf", 1, "two", 0, 1, 0),
		}))

		n, err := s.Count(ctx, []string{"a", "b", "missing"})
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = s.Count(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("DeleteStale", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		require.NoError(t, s.Upsert(ctx, []domain.Chunk{
			Chunk("a1", "a.pdf", 1, "keep", 1, 0, 0),
			Chunk("a2", "a.pdf", 2, "stale", 0, 1, 0),
			Chunk("b1", "b.pdf", 1, "other document", 0, 0, 1),
		}))

		removed, err := s.DeleteStale(ctx, "a.pdf", []string{"a1"})
		require.NoError(t, err)
		assert.Equal(t, 1, removed)

		n, err := s.Count(ctx, []string{"a1", "a2", "b1"})
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		results, err := s.Query(ctx, []float32{0, 1, 0}, 5)
		require.NoError(t, err)
		for _, r := range results {
			assert.NotEqual(t, "a2", r.Chunk.ID)
		}

		removed, err = s.DeleteStale(ctx, "a.pdf", nil)
		require.NoError(t, err)
		assert.Equal(t, 1, removed)

		removed, err = s.DeleteStale(ctx, "missing.pdf", nil)
		require.NoError(t, err)
		assert.Equal(t, 0, removed)
	})

	t.Run("HealthCheck", func(t *testing.T) {
		s := newStore(t)
		assert.NoError(t, s.HealthCheck(context.Background()))
	})
}
