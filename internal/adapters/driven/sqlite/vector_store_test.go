package sqlite_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/sqlite"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storetest"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

func testDBPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name+".db")
}

func TestVectorStore_Conformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) driven.VectorStore {
		vs, err := sqlite.NewVectorStore(testDBPath(t, "vectors"), storetest.Dimensions)
		require.NoError(t, err)
		t.Cleanup(func() { _ = vs.Close() })
		return vs
	})
}

func TestNewVectorStore_InvalidDimensions(t *testing.T) {
	_, err := sqlite.NewVectorStore(testDBPath(t, "bad"), 0)
	assert.Error(t, err)
}

func TestOpen_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "vector_db")

	vs, err := sqlite.Open(dir, storetest.Dimensions)
	require.NoError(t, err)
	defer func() { _ = vs.Close() }()

	_, err = os.Stat(filepath.Join(dir, sqlite.DefaultFileName))
	assert.NoError(t, err)
	assert.Equal(t, storetest.Dimensions, vs.Dimensions())
}

func TestVectorStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := testDBPath(t, "persist")

	vs, err := sqlite.NewVectorStore(path, storetest.Dimensions)
	require.NoError(t, err)
	require.NoError(t, vs.Upsert(ctx, []domain.Chunk{
		storetest.Chunk("a", "doc.pdf", 1, "Fecha limite: DEADLINE-7731", 1, 0, 0),
	}))
	require.NoError(t, vs.Close())

	reopened, err := sqlite.NewVectorStore(path, storetest.Dimensions)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	results, err := reopened.Query(ctx, []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Fecha limite: DEADLINE-7731", results[0].Chunk.Content)
}

func TestVectorStore_RejectsWrongWidth(t *testing.T) {
	ctx := context.Background()
	vs, err := sqlite.NewVectorStore(testDBPath(t, "width"), storetest.Dimensions)
	require.NoError(t, err)
	defer func() { _ = vs.Close() }()

	err = vs.Upsert(ctx, []domain.Chunk{storetest.Chunk("a", "doc.pdf", 1, "x", 1, 0)})
	assert.Error(t, err)

	_, err = vs.Query(ctx, []float32{1, 0}, 1)
	assert.Error(t, err)
}
