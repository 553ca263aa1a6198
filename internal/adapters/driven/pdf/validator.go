package pdf

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// MIMEType is the content type every accepted upload must sniff as.
const MIMEType = "application/pdf"

// DefaultMaxFileSize is 50MB.
const DefaultMaxFileSize int64 = 50 * 1024 * 1024

// Verify interface compliance
var _ driven.DocumentValidator = (*Validator)(nil)

// Validator rejects files that are missing, misnamed, empty, oversized or
// whose content does not sniff as PDF.
type Validator struct {
	maxSize int64
}

// NewValidator creates a validator. maxSize <= 0 uses DefaultMaxFileSize.
func NewValidator(maxSize int64) *Validator {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	return &Validator{maxSize: maxSize}
}

// MaxSize returns the size limit in bytes.
func (v *Validator) MaxSize() int64 {
	return v.maxSize
}

// HasPDFExtension reports whether name ends in .pdf, ignoring case.
func HasPDFExtension(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

// Validate checks path and returns a validation_error describing the first
// problem found. Content sniffing runs last so an empty file reports as empty.
func (v *Validator) Validate(path string) error {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return domain.NewError(domain.KindValidation, "File does not exist")
	}

	if !HasPDFExtension(path) {
		return domain.NewError(domain.KindValidation, "File must have .pdf extension")
	}

	if info.Size() > v.maxSize {
		return domain.NewError(domain.KindValidation, "File size exceeds %dMB limit", v.maxSize/(1024*1024))
	}

	if info.Size() == 0 {
		return domain.NewError(domain.KindValidation, "File is empty")
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil || !mt.Is(MIMEType) {
		return domain.NewError(domain.KindValidation, "File MIME type is not PDF")
	}

	return nil
}
