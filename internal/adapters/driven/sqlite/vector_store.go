package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

func init() {
	sqlite_vec.Auto()
}

// DefaultFileName is the database file created inside the configured directory.
const DefaultFileName = "chunks.db"

// Verify interface compliance
var _ driven.VectorStore = (*VectorStore)(nil)

// VectorStore implements driven.VectorStore with a sqlite-vec vec0 table for
// embeddings and a companion chunks table for content and metadata.
type VectorStore struct {
	db         *sql.DB
	dimensions int
}

// Open creates dir if needed and opens the store file inside it.
func Open(dir string, dimensions int) (*VectorStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating vector db directory: %w", err)
	}
	return NewVectorStore(filepath.Join(dir, DefaultFileName), dimensions)
}

// NewVectorStore opens (or creates) the SQLite database at dbPath and
// initialises its tables. dimensions fixes the embedding width.
func NewVectorStore(dbPath string, dimensions int) (*VectorStore, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("vector dimensions must be positive, got %d", dimensions)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	if err := migrate(db, dimensions); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating vector tables: %w", err)
	}

	return &VectorStore{db: db, dimensions: dimensions}, nil
}

func migrate(db *sql.DB, dimensions int) error {
	vecDDL := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vectors USING vec0(id TEXT PRIMARY KEY, embedding float[%d] distance_metric=cosine)`,
		dimensions,
	)
	if _, err := db.Exec(vecDDL); err != nil {
		return fmt.Errorf("creating vectors virtual table: %w", err)
	}

	const chunksDDL = `
CREATE TABLE IF NOT EXISTS chunks (
	id           TEXT PRIMARY KEY,
	document_id  TEXT NOT NULL,
	page         INTEGER NOT NULL,
	start_offset INTEGER NOT NULL,
	content      TEXT NOT NULL,
	metadata     TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_chunks_document_id ON chunks(document_id);`
	if _, err := db.Exec(chunksDDL); err != nil {
		return fmt.Errorf("creating chunks table: %w", err)
	}

	return nil
}

// Dimensions returns the embedding width the store was created with.
func (s *VectorStore) Dimensions() int {
	return s.dimensions
}

// Upsert replaces every chunk by id in a single transaction.
func (s *VectorStore) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, c := range chunks {
		if len(c.Embedding) != s.dimensions {
			return fmt.Errorf("chunk %s: expected %d dimensions, got %d", c.ID, s.dimensions, len(c.Embedding))
		}
		blob, err := sqlite_vec.SerializeFloat32(c.Embedding)
		if err != nil {
			return fmt.Errorf("serializing embedding %s: %w", c.ID, err)
		}
		meta, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling metadata %s: %w", c.ID, err)
		}

		// vec0 does not support ON CONFLICT; delete first for upsert.
		if _, err := tx.ExecContext(ctx, `DELETE FROM vectors WHERE id = ?`, c.ID); err != nil {
			return fmt.Errorf("deleting existing vector %s: %w", c.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO vectors(id, embedding) VALUES (?, ?)`, c.ID, blob); err != nil {
			return fmt.Errorf("inserting vector %s: %w", c.ID, err)
		}

		const chunkQ = `INSERT INTO chunks(id, document_id, page, start_offset, content, metadata)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	document_id = excluded.document_id,
	page = excluded.page,
	start_offset = excluded.start_offset,
	content = excluded.content,
	metadata = excluded.metadata`
		if _, err := tx.ExecContext(ctx, chunkQ, c.ID, c.DocumentID, c.Page, c.StartOffset, c.Content, string(meta)); err != nil {
			return fmt.Errorf("upserting chunk %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing upsert: %w", err)
	}
	return nil
}

// Query runs a k-nearest-neighbour search. vec0 reports cosine distance,
// converted here to similarity (1 - distance).
func (s *VectorStore) Query(ctx context.Context, vector []float32, k int) ([]domain.RetrievedChunk, error) {
	if k <= 0 {
		return []domain.RetrievedChunk{}, nil
	}
	if len(vector) != s.dimensions {
		return nil, fmt.Errorf("query vector: expected %d dimensions, got %d", s.dimensions, len(vector))
	}
	blob, err := sqlite_vec.SerializeFloat32(vector)
	if err != nil {
		return nil, fmt.Errorf("serializing query vector: %w", err)
	}

	const q = `SELECT v.id, v.distance, c.document_id, c.page, c.start_offset, c.content, c.metadata
FROM vectors v
JOIN chunks c ON c.id = v.id
WHERE v.embedding MATCH ? AND k = ?
ORDER BY v.distance`

	rows, err := s.db.QueryContext(ctx, q, blob, k)
	if err != nil {
		return nil, fmt.Errorf("searching vectors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := []domain.RetrievedChunk{}
	for rows.Next() {
		var (
			rc       domain.RetrievedChunk
			distance float64
			meta     string
		)
		if err := rows.Scan(&rc.Chunk.ID, &distance, &rc.Chunk.DocumentID, &rc.Chunk.Page,
			&rc.Chunk.StartOffset, &rc.Chunk.Content, &meta); err != nil {
			return nil, fmt.Errorf("scanning vector result: %w", err)
		}
		if err := json.Unmarshal([]byte(meta), &rc.Chunk.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshalling chunk metadata: %w", err)
		}
		rc.Score = 1 - distance
		results = append(results, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vector results: %w", err)
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
	q := `SELECT COUNT(*) FROM chunks WHERE id IN (` + placeholders(len(ids)) + `)`
	if err := s.db.QueryRowContext(ctx, q, stringArgs(ids)...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// DeleteStale removes the chunks of documentID that are not listed in keep.
func (s *VectorStore) DeleteStale(ctx context.Context, documentID string, keep []string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `SELECT id FROM chunks WHERE document_id = ?`, documentID)
	if err != nil {
		return 0, fmt.Errorf("listing chunks of %s: %w", documentID, err)
	}
	kept := make(map[string]struct{}, len(keep))
	for _, id := range keep {
		kept[id] = struct{}{}
	}
	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return 0, fmt.Errorf("scanning chunk id: %w", err)
		}
		if _, ok := kept[id]; !ok {
			stale = append(stale, id)
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return 0, fmt.Errorf("iterating chunk ids: %w", err)
	}
	_ = rows.Close()

	if len(stale) == 0 {
		return 0, nil
	}

	args := stringArgs(stale)
	in := placeholders(len(stale))
	if _, err := tx.ExecContext(ctx, `DELETE FROM vectors WHERE id IN (`+in+`)`, args...); err != nil {
		return 0, fmt.Errorf("deleting vectors: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE id IN (`+in+`)`, args...); err != nil {
		return 0, fmt.Errorf("deleting chunks: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing delete: %w", err)
	}
	return len(stale), nil
}

// HealthCheck pings the database.
func (s *VectorStore) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *VectorStore) Close() error {
	return s.db.Close()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
