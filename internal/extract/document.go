package extract

import (
	"context"
	"strings"

	"github.com/nguyenthenguyen/docx"

	"github.com/cortexlabs/cortex/internal/cerrors"
)

// DocumentExtractor decodes .docx document containers, concatenating
// paragraph and run text while preserving paragraph breaks. Tables are
// out of scope and surface a warning when present. Headers and footers
// are not extracted, and their presence produces no warning.
type DocumentExtractor struct{}

var _ Extractor = DocumentExtractor{}

// Extract implements Extractor.
func (DocumentExtractor) Extract(_ context.Context, path string) (ExtractedContent, error) {
	doc, err := docx.ReadDocxFile(path)
	if err != nil {
		return ExtractedContent{}, cerrors.Wrap(cerrors.ExtractionFailed, err).WithDetail("path", path)
	}
	defer doc.Close()

	text := doc.Editable().GetContent()

	var warnings []string
	if strings.Contains(text, "<w:tbl") {
		warnings = append(warnings, "document contains tables, which are not extracted")
	}

	return buildContent(stripResidualMarkup(text), warnings), nil
}

// stripResidualMarkup drops the XML tags from the document-body markup the
// docx library returns, ending each closed paragraph (</w:p>) with a
// newline so paragraph breaks survive.
func stripResidualMarkup(text string) string {
	if !strings.Contains(text, "<") {
		return text
	}
	var b strings.Builder
	var tag strings.Builder
	inTag := false
	for _, r := range text {
		switch {
		case r == '<':
			inTag = true
			tag.Reset()
		case r == '>':
			inTag = false
			if tag.String() == "/w:p" {
				b.WriteRune('\n')
			}
		case inTag:
			tag.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
