package extract

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexlabs/cortex/internal/cerrors"
)

func TestPortableDocumentExtractor_MissingFileReturnsExtractionFailed(t *testing.T) {
	_, err := PortableDocumentExtractor{}.Extract(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))

	require.Error(t, err)
	kind, ok := cerrors.Of(err)
	require.True(t, ok)
	assert.Equal(t, cerrors.ExtractionFailed, kind)
}

func TestNormalizeWhitespace_CollapsesBlankLineRuns(t *testing.T) {
	got := normalizeWhitespace("line one\n\n\n\n\nline two")

	assert.Equal(t, "line one\n\nline two", got)
}

func TestNormalizeWhitespace_TrimsTrailingLineSpacing(t *testing.T) {
	got := normalizeWhitespace("line one   \nline two\t\t")

	assert.Equal(t, "line one\nline two", got)
}

func TestNormalizeWhitespace_TrimsOuterWhitespace(t *testing.T) {
	got := normalizeWhitespace("\n\n  content  \n\n")

	assert.Equal(t, "content", got)
}
