package extract

import (
	"context"
	"path/filepath"
	"strings"
)

// Dispatcher selects an Extractor by lowercase file extension, falling back
// to plain text for any extension it does not recognize.
type Dispatcher struct {
	byExt    map[string]Extractor
	fallback Extractor
}

// NewDispatcher builds a Dispatcher wired to the built-in extractor variants.
func NewDispatcher() *Dispatcher {
	markup := MarkupExtractor{}
	return &Dispatcher{
		byExt: map[string]Extractor{
			".md":       markup,
			".markdown": markup,
			".mdx":      markup,
			".docx":     DocumentExtractor{},
			".pdf":      PortableDocumentExtractor{},
			".txt":      PlainTextExtractor{},
		},
		fallback: PlainTextExtractor{},
	}
}

// Extract decodes path using the variant registered for its extension, or
// the plain-text fallback if the extension is unrecognized.
func (d *Dispatcher) Extract(ctx context.Context, path string) (ExtractedContent, error) {
	ext := strings.ToLower(filepath.Ext(path))
	extractor, ok := d.byExt[ext]
	if !ok {
		extractor = d.fallback
	}
	return extractor.Extract(ctx, path)
}
