package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/cortexlabs/cortex/internal/cerrors"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16BE = []byte{0xFE, 0xFF}
	bomUTF16LE = []byte{0xFF, 0xFE}
)

// PlainTextExtractor decodes arbitrary text files, detecting and stripping a
// byte-order mark and falling back to a guessed legacy encoding when the
// remaining bytes are not valid UTF-8.
type PlainTextExtractor struct{}

var _ Extractor = PlainTextExtractor{}

// Extract implements Extractor.
func (PlainTextExtractor) Extract(_ context.Context, path string) (ExtractedContent, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ExtractedContent{}, cerrors.Wrap(cerrors.ExtractionFailed, err).WithDetail("path", path)
	}
	return decodePlainText(raw)
}

func decodePlainText(raw []byte) (ExtractedContent, error) {
	body := stripBOM(raw)

	if utf8.Valid(body) {
		return buildContent(string(body), nil), nil
	}

	text, warning, err := decodeLegacyEncoding(body)
	if err != nil {
		return ExtractedContent{}, cerrors.Wrap(cerrors.ExtractionFailed, err)
	}
	return buildContent(text, []string{warning}), nil
}

// stripBOM removes a leading UTF-8, UTF-16BE, or UTF-16LE byte-order mark.
// BOM detection happens before the UTF-8 fast path so a well-formed
// UTF-8-with-BOM file never leaks the U+FEFF codepoint downstream.
func stripBOM(b []byte) []byte {
	switch {
	case bytes.HasPrefix(b, bomUTF8):
		return b[len(bomUTF8):]
	case bytes.HasPrefix(b, bomUTF16BE):
		return b[len(bomUTF16BE):]
	case bytes.HasPrefix(b, bomUTF16LE):
		return b[len(bomUTF16LE):]
	default:
		return b
	}
}

// decodeLegacyEncoding lossily decodes non-UTF-8 bytes by guessing a common
// legacy single-byte encoding. The pack ships no full encoding-detection
// library, so this guesses Windows-1252 (the most common legacy text
// encoding) and always succeeds, since charmap decoders cannot fail — every
// byte maps to some rune. The guess is reported back as a warning.
func decodeLegacyEncoding(b []byte) (string, string, error) {
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return "", "", fmt.Errorf("decode as windows-1252: %w", err)
	}
	return string(decoded), "encoding guessed as windows-1252", nil
}
