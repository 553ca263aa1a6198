package domain

import (
	"fmt"
	"maps"
	"path/filepath"
	"strings"
)

// Well-known metadata keys attached to chunks.
const (
	MetaSource     = "source"
	MetaPage       = "page"
	MetaStartIndex = "start_index"
	MetaSourceFile = "source_file"
	MetaFileType   = "file_type"
	MetaProgram    = "program"
	MetaUploadedAt = "uploaded_at"
)

// Metadata maps string keys to scalar values (string, int, float64, bool).
type Metadata map[string]any

// Merge returns a new Metadata with the entries of others layered on top of m.
// Later maps win on key collisions. The receiver is never modified.
func (m Metadata) Merge(others ...Metadata) Metadata {
	out := make(Metadata, len(m))
	maps.Copy(out, m)
	for _, o := range others {
		maps.Copy(out, o)
	}
	return out
}

// String returns the value for key rendered as a string, or def when absent.
func (m Metadata) String(key, def string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return def
	}
	if s, ok := v.(string); ok {
		if s == "" {
			return def
		}
		return s
	}
	return fmt.Sprint(v)
}

// Int returns the value for key as an int, or def when absent or not numeric.
// JSON round trips turn ints into float64, so both are accepted.
func (m Metadata) Int(key string, def int) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	case float32:
		return int(v)
	default:
		return def
	}
}

// Page is the extracted text of a single PDF page. Number is 1-based.
type Page struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// Document is a loaded PDF: its identifier, ordered pages and document-level metadata.
type Document struct {
	ID       string   `json:"id"`   // source filename
	Path     string   `json:"path"` // location the document was loaded from
	Pages    []Page   `json:"pages"`
	Metadata Metadata `json:"metadata"`
}

// NewDocument builds a Document identified by the base name of path.
func NewDocument(path string, pages []Page, metadata Metadata) *Document {
	return &Document{
		ID:       filepath.Base(path),
		Path:     path,
		Pages:    pages,
		Metadata: Metadata(nil).Merge(metadata),
	}
}

// Stem returns the base name of path with its final extension removed.
// "/data/Maestria.2024.pdf" yields "Maestria.2024".
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Chunk is a bounded fragment of one page. Chunks are write-once.
type Chunk struct {
	ID          string    `json:"id"`
	DocumentID  string    `json:"document_id"`
	Page        int       `json:"page"`
	StartOffset int       `json:"start_offset"`
	Content     string    `json:"content"`
	Metadata    Metadata  `json:"metadata"`
	Embedding   []float32 `json:"embedding,omitempty"`
}

// WithEmbedding returns a copy of the chunk carrying the given vector.
func (c Chunk) WithEmbedding(v []float32) Chunk {
	c.Embedding = v
	return c
}
