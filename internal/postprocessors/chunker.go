package postprocessors

import (
	"encoding/hex"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/blake2b"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// DefaultSeparators are tried in priority order: paragraph, line, word, character.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// ChunkConfig configures the chunker behavior.
type ChunkConfig struct {
	// ChunkSize is the maximum characters per chunk
	ChunkSize int

	// Overlap is the number of trailing characters carried into the next chunk
	Overlap int

	// Separators override DefaultSeparators. The last entry should be "".
	Separators []string
}

// DefaultChunkConfig returns sensible defaults.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		ChunkSize:  1000,
		Overlap:    200,
		Separators: DefaultSeparators,
	}
}

// Validate returns a configuration_error when sizes are out of range.
func (c ChunkConfig) Validate() error {
	if c.ChunkSize <= 0 {
		return domain.NewError(domain.KindConfiguration, "chunk size must be positive, got %d", c.ChunkSize)
	}
	if c.Overlap < 0 {
		return domain.NewError(domain.KindConfiguration, "chunk overlap must not be negative, got %d", c.Overlap)
	}
	if c.Overlap >= c.ChunkSize {
		return domain.NewError(domain.KindConfiguration,
			"chunk overlap (%d) must be smaller than chunk size (%d)", c.Overlap, c.ChunkSize)
	}
	return nil
}

// Chunker splits page text into overlapping chunks using a recursive
// separator strategy. Sizes are measured in characters (runes).
type Chunker struct {
	config ChunkConfig
}

// Verify interface compliance
var _ driven.DocumentChunker = (*Chunker)(nil)

// NewChunker creates a new chunker with the given config.
func NewChunker(config ChunkConfig) (*Chunker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if len(config.Separators) == 0 {
		config.Separators = DefaultSeparators
	}
	return &Chunker{config: config}, nil
}

// Name returns the chunker name.
func (c *Chunker) Name() string {
	return "recursive-character"
}

// Config returns the chunker configuration.
func (c *Chunker) Config() ChunkConfig {
	return c.config
}

// Chunk splits every page of doc, in page order.
func (c *Chunker) Chunk(doc *domain.Document) []domain.Chunk {
	var chunks []domain.Chunk
	for _, page := range doc.Pages {
		for _, sp := range c.SplitText(page.Text) {
			meta := doc.Metadata.Merge(domain.Metadata{
				domain.MetaSource:     doc.ID,
				domain.MetaPage:       page.Number,
				domain.MetaStartIndex: sp.Start,
			})
			chunks = append(chunks, domain.Chunk{
				ID:          ChunkID(doc.ID, page.Number, sp.Start),
				DocumentID:  doc.ID,
				Page:        page.Number,
				StartOffset: sp.Start,
				Content:     sp.Text,
				Metadata:    meta,
			})
		}
	}
	return chunks
}

// Span is a chunk of page text and its starting character offset.
type Span struct {
	Text  string
	Start int
}

// SplitText splits one page of text. Whitespace-only input yields nothing.
func (c *Chunker) SplitText(text string) []Span {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	raw := c.split(text, 0, c.config.Separators)

	out := make([]Span, 0, len(raw))
	for _, p := range raw {
		trimmedLeft := strings.TrimLeftFunc(p.text, unicode.IsSpace)
		content := strings.TrimRightFunc(trimmedLeft, unicode.IsSpace)
		if content == "" {
			continue
		}
		byteStart := p.start + len(p.text) - len(trimmedLeft)
		out = append(out, Span{
			Text:  content,
			Start: utf8.RuneCountInString(text[:byteStart]),
		})
	}
	return out
}

// ChunkID derives a stable identifier from document id, page and offset.
func ChunkID(documentID string, page, offset int) string {
	sum := blake2b.Sum256([]byte(documentID + "\x00" + strconv.Itoa(page) + "\x00" + strconv.Itoa(offset)))
	return hex.EncodeToString(sum[:16])
}

// piece is a contiguous slice of the page text; start is a byte offset.
type piece struct {
	text  string
	start int
	runes int
}

// split recursively breaks text on the first separator present, descending
// to lower-priority separators for pieces that are still too large.
func (c *Chunker) split(text string, offset int, separators []string) []piece {
	sep := separators[len(separators)-1]
	var rest []string
	for i, s := range separators {
		if s == "" || strings.Contains(text, s) {
			sep = s
			rest = separators[i+1:]
			break
		}
	}

	var out, small []piece
	for _, p := range splitKeepSeparator(text, offset, sep) {
		if p.runes < c.config.ChunkSize {
			small = append(small, p)
			continue
		}
		if len(small) > 0 {
			out = append(out, c.merge(small)...)
			small = nil
		}
		if len(rest) == 0 {
			out = append(out, p)
		} else {
			out = append(out, c.split(p.text, p.start, rest)...)
		}
	}
	if len(small) > 0 {
		out = append(out, c.merge(small)...)
	}
	return out
}

// merge packs adjacent pieces into windows of at most ChunkSize characters.
// When a window closes, leading pieces are dropped until at most Overlap
// characters remain, and those carry into the next window.
func (c *Chunker) merge(pieces []piece) []piece {
	var windows, current []piece
	total := 0

	for _, p := range pieces {
		if total+p.runes > c.config.ChunkSize && len(current) > 0 {
			windows = append(windows, join(current))
			for total > c.config.Overlap || (total+p.runes > c.config.ChunkSize && total > 0) {
				total -= current[0].runes
				current = current[1:]
			}
		}
		current = append(current, p)
		total += p.runes
	}
	if len(current) > 0 {
		windows = append(windows, join(current))
	}
	return windows
}

// join concatenates contiguous pieces.
func join(pieces []piece) piece {
	var b strings.Builder
	n := 0
	for _, p := range pieces {
		b.WriteString(p.text)
		n += p.runes
	}
	return piece{text: b.String(), start: pieces[0].start, runes: n}
}

// splitKeepSeparator splits text on sep, keeping each separator at the start
// of the piece that follows it so pieces stay contiguous. An empty separator
// splits into single characters.
func splitKeepSeparator(text string, offset int, sep string) []piece {
	var out []piece
	if sep == "" {
		for i, r := range text {
			out = append(out, piece{text: string(r), start: offset + i, runes: 1})
		}
		return out
	}

	pos, from := 0, 0
	for {
		idx := strings.Index(text[from:], sep)
		if idx < 0 {
			break
		}
		end := from + idx
		if end > pos {
			seg := text[pos:end]
			out = append(out, piece{text: seg, start: offset + pos, runes: utf8.RuneCountInString(seg)})
		}
		pos = end
		from = end + len(sep)
	}
	if pos < len(text) {
		seg := text[pos:]
		out = append(out, piece{text: seg, start: offset + pos, runes: utf8.RuneCountInString(seg)})
	}
	return out
}
