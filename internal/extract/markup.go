package extract

import (
	"context"
	"os"
	"regexp"
	"strings"

	"github.com/cortexlabs/cortex/internal/cerrors"
)

// Regex vocabulary for markdown rendering, carried over from the chunker's
// section-splitting patterns and repurposed to flatten markup into text
// instead of segmenting it into retrievable chunks.
var (
	markupFrontmatterPattern = regexp.MustCompile(`(?s)^---\n(.+?)\n---\n*`)
	markupHeaderPattern      = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)
	markupCodeFencePattern   = regexp.MustCompile("^```.*$")
	markupBulletPattern      = regexp.MustCompile(`^(\s*)[-*+]\s+(.+)$`)
	markupOrderedPattern     = regexp.MustCompile(`^(\s*)\d+\.\s+(.+)$`)
	markupInlineCodePattern  = regexp.MustCompile("`([^`]+)`")
	markupLinkPattern        = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	markupEmphasisPattern    = regexp.MustCompile(`(\*\*|__|\*|_)([^*_]+)(\*\*|__|\*|_)`)
)

// MarkupExtractor renders lightweight markup (Markdown, MDX) to plain text.
// Headings are kept as plain lines, bullets keep a bullet glyph, code is
// kept as its literal content, and links are reduced to their label.
type MarkupExtractor struct{}

var _ Extractor = MarkupExtractor{}

// Extract implements Extractor.
func (MarkupExtractor) Extract(_ context.Context, path string) (ExtractedContent, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ExtractedContent{}, cerrors.Wrap(cerrors.ExtractionFailed, err).WithDetail("path", path)
	}

	decoded, err := decodePlainText(raw)
	if err != nil {
		return ExtractedContent{}, err
	}

	rendered := renderMarkup(decoded.Text)
	return buildContent(rendered, decoded.Warnings), nil
}

// renderMarkup flattens markdown syntax to plain text, line by line.
func renderMarkup(text string) string {
	text = markupFrontmatterPattern.ReplaceAllString(text, "")

	lines := strings.Split(text, "\n")
	var out []string
	inCodeBlock := false

	for _, line := range lines {
		if markupCodeFencePattern.MatchString(strings.TrimSpace(line)) {
			inCodeBlock = !inCodeBlock
			continue
		}
		if inCodeBlock {
			out = append(out, line)
			continue
		}

		if m := markupHeaderPattern.FindStringSubmatch(line); m != nil {
			out = append(out, strings.TrimSpace(m[2]))
			continue
		}
		if m := markupBulletPattern.FindStringSubmatch(line); m != nil {
			out = append(out, m[1]+"• "+renderInline(m[2]))
			continue
		}
		if m := markupOrderedPattern.FindStringSubmatch(line); m != nil {
			out = append(out, m[1]+renderInline(m[2]))
			continue
		}

		out = append(out, renderInline(line))
	}

	return strings.TrimRight(strings.Join(out, "\n"), "\n")
}

// renderInline reduces inline markup (links, inline code, emphasis) to its
// literal/label content within a single line.
func renderInline(line string) string {
	line = markupLinkPattern.ReplaceAllString(line, "$1")
	line = markupInlineCodePattern.ReplaceAllString(line, "$1")
	line = markupEmphasisPattern.ReplaceAllString(line, "$2")
	return line
}
