package extract

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexlabs/cortex/internal/cerrors"
)

func TestDocumentExtractor_MissingFileReturnsExtractionFailed(t *testing.T) {
	_, err := DocumentExtractor{}.Extract(context.Background(), filepath.Join(t.TempDir(), "missing.docx"))

	require.Error(t, err)
	kind, ok := cerrors.Of(err)
	require.True(t, ok)
	assert.Equal(t, cerrors.ExtractionFailed, kind)
}

func TestStripResidualMarkup_RemovesTags(t *testing.T) {
	got := stripResidualMarkup("before<w:tbl>cell1</w:tbl>after")

	assert.Equal(t, "beforecell1after", got)
}

func TestStripResidualMarkup_PassesThroughPlainText(t *testing.T) {
	got := stripResidualMarkup("no markup here")

	assert.Equal(t, "no markup here", got)
}
