package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_RoutesMarkdownToMarkup(t *testing.T) {
	path := writeTempFile(t, "readme.md", []byte("# Hi\n\nbody\n"))
	d := NewDispatcher()

	content, err := d.Extract(context.Background(), path)

	require.NoError(t, err)
	assert.NotContains(t, content.Text, "#")
}

func TestDispatcher_UnknownExtensionFallsBackToPlainText(t *testing.T) {
	path := writeTempFile(t, "data.xyz", []byte("raw bytes as text"))
	d := NewDispatcher()

	content, err := d.Extract(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, "raw bytes as text", content.Text)
}

func TestDispatcher_ExtensionMatchedCaseInsensitively(t *testing.T) {
	path := writeTempFile(t, "READ.MD", []byte("# Shout\n"))
	d := NewDispatcher()

	content, err := d.Extract(context.Background(), path)

	require.NoError(t, err)
	assert.Contains(t, content.Text, "Shout")
	assert.NotContains(t, content.Text, "#")
}

func TestDispatcher_NoExtensionUsesPlainTextFallback(t *testing.T) {
	path := writeTempFile(t, "noext", []byte("plain body"))
	d := NewDispatcher()

	content, err := d.Extract(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, "plain body", content.Text)
}
