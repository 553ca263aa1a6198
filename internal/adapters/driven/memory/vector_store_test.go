package memory

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storetest"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

func TestVectorStore_Conformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) driven.VectorStore {
		return NewVectorStore()
	})
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float32{1, 2, 3}, []float32{2, 4, 6}), 1e-9)
	assert.InDelta(t, 0.0, cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, cosine([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.InDelta(t, 1/math.Sqrt2, cosine([]float32{1, 0}, []float32{1, 1}), 1e-9)
	assert.Equal(t, 0.0, cosine([]float32{0, 0}, []float32{1, 1}))
}

func TestVectorStore_TiesBreakByID(t *testing.T) {
	ctx := context.Background()
	s := NewVectorStore()
	require.NoError(t, s.Upsert(ctx, []domain.Chunk{
		storetest.Chunk("c", "doc.pdf", 1, "three", 1, 0, 0),
		storetest.Chunk("a", "doc.pdf", 1, "one", 1, 0, 0),
		storetest.Chunk("b", "doc.pdf", 1, "two", 1, 0, 0),
	}))

	results, err := s.Query(ctx, []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{results[0].Chunk.ID, results[1].Chunk.ID, results[2].Chunk.ID})
}

func TestVectorStore_RejectsMissingEmbedding(t *testing.T) {
	s := NewVectorStore()
	err := s.Upsert(context.Background(), []domain.Chunk{{ID: "a", DocumentID: "doc.pdf"}})
	assert.Error(t, err)
}

func TestVectorStore_StoresCopies(t *testing.T) {
	ctx := context.Background()
	s := NewVectorStore()
	c := storetest.Chunk("a", "doc.pdf", 1, "one", 1, 0, 0)
	require.NoError(t, s.Upsert(ctx, []domain.Chunk{c}))

	c.Embedding[0] = 0
	c.Metadata[domain.MetaSource] = "changed"

	results, err := s.Query(ctx, []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.Equal(t, "doc.pdf", results[0].Chunk.Metadata.String(domain.MetaSource, ""))
}

func TestVectorStore_Close(t *testing.T) {
	ctx := context.Background()
	s := NewVectorStore()
	require.NoError(t, s.Close())

	assert.Error(t, s.HealthCheck(ctx))
	_, err := s.Query(ctx, []float32{1, 0, 0}, 1)
	assert.Error(t, err)
}

func TestVectorStore_ConcurrentUpserts(t *testing.T) {
	ctx := context.Background()
	s := NewVectorStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Upsert(ctx, []domain.Chunk{storetest.Chunk("same", "doc.pdf", 1, "x", 1, 0, 0)})
			_, _ = s.Query(ctx, []float32{1, 0, 0}, 1)
		}()
	}
	wg.Wait()

	n, err := s.Count(ctx, []string{"same"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
