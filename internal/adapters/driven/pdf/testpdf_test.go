package pdf

import (
	"testing"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/pdf/pdftest"
)

func writePDF(t *testing.T, dir, name string, pages ...string) string {
	t.Helper()
	return pdftest.WritePDF(t, dir, name, pages...)
}
