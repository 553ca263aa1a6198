package pdf

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.PageLoader = (*PdftotextLoader)(nil)

// ErrPDFToolNotFound is returned when pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

// pageBreak is the form feed pdftotext writes after every page.
const pageBreak = "\f"

// CommandRunner abstracts command execution for testing.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes name and returns its standard output.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// CheckAvailable reports whether pdftotext is on PATH.
func CheckAvailable() error {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions returns how to install pdftotext.
func InstallInstructions() string {
	return `pdftotext is part of poppler:
  macOS:  brew install poppler
  Debian: apt install poppler-utils
  Fedora: dnf install poppler-utils`
}

// PdftotextLoader extracts page text with the poppler pdftotext binary,
// which handles more encodings and layouts than the native parser.
type PdftotextLoader struct {
	runner CommandRunner
}

// NewPdftotextLoader creates a loader that shells out to pdftotext.
func NewPdftotextLoader() *PdftotextLoader {
	return &PdftotextLoader{runner: ExecRunner{}}
}

// NewPdftotextLoaderWithRunner creates a loader with a custom runner.
func NewPdftotextLoaderWithRunner(runner CommandRunner) *PdftotextLoader {
	return &PdftotextLoader{runner: runner}
}

// Name identifies the extractor for logging.
func (l *PdftotextLoader) Name() string {
	return ExtractorPdftotext
}

// Load runs pdftotext and splits its output on form feeds.
func (l *PdftotextLoader) Load(ctx context.Context, path string) ([]domain.Page, error) {
	out, err := l.runner.Run(ctx, "pdftotext", "-enc", "UTF-8", "-layout", path, "-")
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return nil, ErrPDFToolNotFound
		}
		return nil, fmt.Errorf("pdftotext failed on %s: %w", path, err)
	}
	return splitPages(string(out)), nil
}

// splitPages turns form-feed separated output into numbered pages. The
// trailing separator after the last page does not start a new page.
func splitPages(out string) []domain.Page {
	if out == "" {
		return nil
	}
	parts := strings.Split(strings.TrimSuffix(out, pageBreak), pageBreak)
	pages := make([]domain.Page, len(parts))
	for i, text := range parts {
		pages[i] = domain.Page{Number: i + 1, Text: text}
	}
	return pages
}
