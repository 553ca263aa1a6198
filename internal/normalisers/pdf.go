package normalisers

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	// Typographic ligatures and invisible characters common in extracted PDF text.
	pdfReplacer = strings.NewReplacer(
		"\ufb00", "ff",
		"\ufb01", "fi",
		"\ufb02", "fl",
		"\ufb03", "ffi",
		"\ufb04", "ffl",
		"\u00ad", "",
		"\u00a0", " ",
		"\u200b", "",
		"\ufeff", "",
	)

	hyphenBreak   = regexp.MustCompile(`(\p{L})-\n(\p{Ll})`)
	horizontalWS  = regexp.MustCompile(`[ \t\f\v]+`)
	lineEdgeSpace = regexp.MustCompile(`(?m)^ +| +$`)
	blankRuns     = regexp.MustCompile(`\n{3,}`)
)

// PDFNormaliser cleans text extracted from a PDF page: it expands ligatures,
// rejoins words hyphenated across line breaks, collapses horizontal
// whitespace and limits blank lines to one paragraph break.
type PDFNormaliser struct{}

func (n *PDFNormaliser) Normalise(content string, mimeType string) string {
	content = normaliseNewlines(content)
	content = pdfReplacer.Replace(content)
	content = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, content)

	content = horizontalWS.ReplaceAllString(content, " ")
	content = lineEdgeSpace.ReplaceAllString(content, "")
	content = hyphenBreak.ReplaceAllString(content, "$1$2")
	content = blankRuns.ReplaceAllString(content, "\n\n")

	return strings.TrimSpace(content)
}

func (n *PDFNormaliser) SupportedTypes() []string {
	return []string{MIMETypePDF}
}

func (n *PDFNormaliser) Priority() int {
	return 60
}
