package extract

import (
	"context"
	"strings"
	"unicode/utf8"
)

// ExtractedContent is the result of successfully decoding a file.
type ExtractedContent struct {
	Text      string
	WordCount int
	Summary   string
	Warnings  []string
}

// Extractor decodes the bytes at path into ExtractedContent. Implementations
// must never panic; any failure is returned as an error.
type Extractor interface {
	Extract(ctx context.Context, path string) (ExtractedContent, error)
}

const maxSummaryGraphemes = 200

// buildContent assembles an ExtractedContent from decoded text, computing
// word count and summary and folding in any warnings collected along the way.
func buildContent(text string, warnings []string) ExtractedContent {
	return ExtractedContent{
		Text:      text,
		WordCount: len(strings.Fields(text)),
		Summary:   summarize(text),
		Warnings:  warnings,
	}
}

// summarize returns the first paragraph of text truncated to at most
// maxSummaryGraphemes runes, with a terminal ellipsis on truncation. Runes
// approximate graphemes here: the pack carries no grapheme-cluster library,
// and rune-counting is the idiomatic stdlib stand-in (see DESIGN.md).
func summarize(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ""
	}

	paragraph := trimmed
	if idx := strings.Index(trimmed, "\n\n"); idx != -1 {
		paragraph = trimmed[:idx]
	}
	paragraph = strings.TrimSpace(paragraph)

	if utf8.RuneCountInString(paragraph) <= maxSummaryGraphemes {
		return paragraph
	}

	runes := []rune(paragraph)
	return string(runes[:maxSummaryGraphemes-1]) + "…"
}
