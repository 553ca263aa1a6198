package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.VectorStore = (*VectorStore)(nil)

// VectorStore implements driven.VectorStore on PostgreSQL with pgvector.
// Similarity is 1 - cosine distance (the <=> operator).
type VectorStore struct {
	db         *DB
	dimensions int
}

// NewVectorStore creates a store over db. dimensions > 0 rejects vectors of
// any other width before they reach the database.
func NewVectorStore(db *DB, dimensions int) *VectorStore {
	return &VectorStore{db: db, dimensions: dimensions}
}

func (s *VectorStore) checkWidth(v []float32) error {
	if len(v) == 0 {
		return fmt.Errorf("empty vector")
	}
	if s.dimensions > 0 && len(v) != s.dimensions {
		return fmt.Errorf("expected %d dimensions, got %d", s.dimensions, len(v))
	}
	return nil
}

// CheckDimensions fails when the chunks table holds embeddings of a width
// other than the store's. The embedding column is unconstrained, so rows
// written under a previous embedding model survive a model change and make
// every <=> comparison against them error.
func (s *VectorStore) CheckDimensions(ctx context.Context) error {
	if s.dimensions <= 0 {
		return nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT vector_dims(embedding) FROM chunks`)
	if err != nil {
		return fmt.Errorf("reading stored embedding widths: %w", err)
	}
	defer rows.Close()

	var stale []int
	for rows.Next() {
		var d int
		if err := rows.Scan(&d); err != nil {
			return fmt.Errorf("scanning embedding width: %w", err)
		}
		if d != s.dimensions {
			stale = append(stale, d)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(stale) > 0 {
		return fmt.Errorf("chunks table holds embeddings of width %v but the embedding model produces %d; "+
			"clear the chunks table or restore the previous model", stale, s.dimensions)
	}
	return nil
}

// mismatchedWidth reports whether err is pgvector refusing to compare
// vectors of different widths.
func mismatchedWidth(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && strings.Contains(pqErr.Message, "different vector dimensions")
}

func searchError(err error, width int) error {
	if mismatchedWidth(err) {
		return fmt.Errorf("stored embeddings do not match the %d-dimension query vector; "+
			"re-ingest after changing the embedding model: %w", width, err)
	}
	return fmt.Errorf("searching chunks: %w", err)
}

// Upsert stores chunks in a single transaction, replacing existing ids.
func (s *VectorStore) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO chunks (id, document_id, page, start_offset, content, metadata, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				document_id = EXCLUDED.document_id,
				page = EXCLUDED.page,
				start_offset = EXCLUDED.start_offset,
				content = EXCLUDED.content,
				metadata = EXCLUDED.metadata,
				embedding = EXCLUDED.embedding,
				updated_at = NOW()
		`

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, c := range chunks {
			if err := s.checkWidth(c.Embedding); err != nil {
				return fmt.Errorf("chunk %s: %w", c.ID, err)
			}
			meta, err := encodeMetadata(c.Metadata)
			if err != nil {
				return fmt.Errorf("chunk %s: %w", c.ID, err)
			}
			_, err = stmt.ExecContext(ctx,
				c.ID,
				c.DocumentID,
				c.Page,
				c.StartOffset,
				c.Content,
				string(meta),
				pgvector.NewVector(c.Embedding),
			)
			if err != nil {
				return fmt.Errorf("upserting chunk %s: %w", c.ID, err)
			}
		}
		return nil
	})
}

// Query returns the k nearest chunks by cosine distance.
func (s *VectorStore) Query(ctx context.Context, vector []float32, k int) ([]domain.RetrievedChunk, error) {
	if k <= 0 {
		return []domain.RetrievedChunk{}, nil
	}
	if err := s.checkWidth(vector); err != nil {
		return nil, fmt.Errorf("query vector: %w", err)
	}

	query := `
		SELECT id, document_id, page, start_offset, content, metadata, 1 - (embedding <=> $1) AS score
		FROM chunks
		ORDER BY embedding <=> $1, id
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, searchError(err, len(vector))
	}
	defer rows.Close()

	results := []domain.RetrievedChunk{}
	for rows.Next() {
		var (
			rc   domain.RetrievedChunk
			meta []byte
		)
		if err := rows.Scan(&rc.Chunk.ID, &rc.Chunk.DocumentID, &rc.Chunk.Page, &rc.Chunk.StartOffset,
			&rc.Chunk.Content, &meta, &rc.Score); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		if rc.Chunk.Metadata, err = decodeMetadata(meta); err != nil {
			return nil, fmt.Errorf("chunk %s: %w", rc.Chunk.ID, err)
		}
		results = append(results, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, searchError(err, len(vector))
	}

	domain.SortRetrieved(results)
	return results, nil
}

// Count returns how many of ids are stored.
func (s *VectorStore) Count(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE id = ANY($1)`, pq.Array(ids)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// DeleteStale removes the chunks of documentID whose ids are not in keep.
func (s *VectorStore) DeleteStale(ctx context.Context, documentID string, keep []string) (int, error) {
	if keep == nil {
		keep = []string{}
	}
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM chunks WHERE document_id = $1 AND NOT (id = ANY($2))`,
		documentID, pq.Array(keep),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting stale chunks of %s: %w", documentID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// HealthCheck pings the database.
func (s *VectorStore) HealthCheck(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the connection pool.
func (s *VectorStore) Close() error {
	return s.db.Close()
}

func encodeMetadata(m domain.Metadata) ([]byte, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding metadata: %w", err)
	}
	return b, nil
}

func decodeMetadata(b []byte) (domain.Metadata, error) {
	m := domain.Metadata{}
	if len(b) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decoding metadata: %w", err)
	}
	return m, nil
}
