package extract

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexlabs/cortex/internal/cerrors"
)

func writeTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestPlainTextExtractor_StripsUTF8BOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("hello world")...)
	path := writeTempFile(t, "bom.txt", data)

	content, err := PlainTextExtractor{}.Extract(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, "hello world", content.Text)
	assert.NotContains(t, content.Text, "﻿")
}

func TestPlainTextExtractor_ValidUTF8FastPath(t *testing.T) {
	path := writeTempFile(t, "plain.txt", []byte("café au lait"))

	content, err := PlainTextExtractor{}.Extract(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, "café au lait", content.Text)
	assert.Empty(t, content.Warnings)
}

func TestPlainTextExtractor_NonUTF8FallsBackWithWarning(t *testing.T) {
	// 0xE9 is "é" in Windows-1252 but is not valid UTF-8 on its own.
	data := []byte("caf\xe9 au lait")
	path := writeTempFile(t, "legacy.txt", data)

	content, err := PlainTextExtractor{}.Extract(context.Background(), path)

	require.NoError(t, err)
	assert.Contains(t, content.Text, "café")
	require.Len(t, content.Warnings, 1)
	assert.Contains(t, content.Warnings[0], "guessed")
}

func TestPlainTextExtractor_WordCount(t *testing.T) {
	path := writeTempFile(t, "words.txt", []byte("one two  three\nfour"))

	content, err := PlainTextExtractor{}.Extract(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, 4, content.WordCount)
}

func TestPlainTextExtractor_SummaryTruncatesWithEllipsis(t *testing.T) {
	long := ""
	for i := 0; i < 250; i++ {
		long += "a"
	}
	path := writeTempFile(t, "long.txt", []byte(long))

	content, err := PlainTextExtractor{}.Extract(context.Background(), path)

	require.NoError(t, err)
	assert.True(t, len([]rune(content.Summary)) == maxSummaryGraphemes)
	assert.Contains(t, content.Summary, "…")
}

func TestPlainTextExtractor_EmptyTextHasNoSummary(t *testing.T) {
	path := writeTempFile(t, "empty.txt", []byte(""))

	content, err := PlainTextExtractor{}.Extract(context.Background(), path)

	require.NoError(t, err)
	assert.Empty(t, content.Summary)
}

func TestPlainTextExtractor_MissingFileReturnsExtractionFailed(t *testing.T) {
	_, err := PlainTextExtractor{}.Extract(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))

	require.Error(t, err)
	kind, ok := cerrors.Of(err)
	require.True(t, ok)
	assert.Equal(t, cerrors.ExtractionFailed, kind)
}
