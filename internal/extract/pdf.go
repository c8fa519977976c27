package extract

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/cortexlabs/cortex/internal/cerrors"
)

var blankLineRunPattern = regexp.MustCompile(`\n{3,}`)

// PortableDocumentExtractor decodes .pdf files page by page, then normalizes
// whitespace across the concatenated text: runs of blank lines are
// collapsed and each line is trimmed.
type PortableDocumentExtractor struct{}

var _ Extractor = PortableDocumentExtractor{}

// Extract implements Extractor.
func (PortableDocumentExtractor) Extract(ctx context.Context, path string) (ExtractedContent, error) {
	info, err := os.Stat(path)
	if err != nil {
		return ExtractedContent{}, cerrors.Wrap(cerrors.ExtractionFailed, err).WithDetail("path", path)
	}

	file, err := os.Open(path)
	if err != nil {
		return ExtractedContent{}, cerrors.Wrap(cerrors.ExtractionFailed, err).WithDetail("path", path)
	}
	defer file.Close()

	reader, err := pdf.NewReader(file, info.Size())
	if err != nil {
		return ExtractedContent{}, cerrors.Wrap(cerrors.ExtractionFailed, err).WithDetail("path", path)
	}

	var parts []string
	var warnings []string

	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		select {
		case <-ctx.Done():
			return ExtractedContent{}, cerrors.Wrap(cerrors.ExtractionFailed, ctx.Err()).WithDetail("path", path)
		default:
		}

		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("page %d could not be parsed: %v", pageNum, err))
			continue
		}
		parts = append(parts, text)
	}

	return buildContent(normalizeWhitespace(strings.Join(parts, "\n\n")), warnings), nil
}

// normalizeWhitespace collapses runs of blank lines and trims per-line
// leading/trailing spacing in PDF text-stream output.
func normalizeWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.Trim(line, " \t")
	}
	text = strings.Join(lines, "\n")
	return strings.TrimSpace(blankLineRunPattern.ReplaceAllString(text, "\n\n"))
}
