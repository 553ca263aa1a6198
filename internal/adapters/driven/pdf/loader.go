package pdf

import (
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.PageLoader = (*NativeLoader)(nil)

// NativeLoader extracts page text in-process with ledongthuc/pdf.
type NativeLoader struct{}

// NewNativeLoader creates a pure-Go page loader.
func NewNativeLoader() *NativeLoader {
	return &NativeLoader{}
}

// Name identifies the extractor for logging.
func (l *NativeLoader) Name() string {
	return ExtractorNative
}

// Load returns one Page per PDF page, numbered from 1. Pages the reader
// cannot resolve yield empty text.
func (l *NativeLoader) Load(ctx context.Context, path string) (pages []domain.Page, err error) {
	// The parser panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("parsing %s: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	n := r.NumPage()
	pages = make([]domain.Page, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := domain.Page{Number: i}
		p := r.Page(i)
		if !p.V.IsNull() {
			text, err := p.GetPlainText(nil)
			if err != nil {
				return nil, fmt.Errorf("extracting page %d of %s: %w", i, path, err)
			}
			page.Text = text
		}
		pages = append(pages, page)
	}
	return pages, nil
}

// Extractor names accepted by NewLoader.
const (
	ExtractorNative    = "native"
	ExtractorPdftotext = "pdftotext"
)

// NewLoader returns the page loader for an extractor name.
func NewLoader(extractor string) (driven.PageLoader, error) {
	switch extractor {
	case "", ExtractorNative:
		return NewNativeLoader(), nil
	case ExtractorPdftotext:
		if err := CheckAvailable(); err != nil {
			return nil, fmt.Errorf("%w\n%s", err, InstallInstructions())
		}
		return NewPdftotextLoader(), nil
	default:
		return nil, fmt.Errorf("unknown PDF extractor %q", extractor)
	}
}
