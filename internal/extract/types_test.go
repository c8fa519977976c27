package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize_EmptyTextYieldsEmptySummary(t *testing.T) {
	assert.Equal(t, "", summarize(""))
	assert.Equal(t, "", summarize("   \n\n  "))
}

func TestSummarize_UsesFirstParagraphOnly(t *testing.T) {
	got := summarize("first paragraph.\n\nsecond paragraph should not appear.")

	assert.Equal(t, "first paragraph.", got)
}

func TestSummarize_ShortTextUnchanged(t *testing.T) {
	got := summarize("short text")

	assert.Equal(t, "short text", got)
}

func TestSummarize_TruncatesAtGraphemeLimitWithEllipsis(t *testing.T) {
	long := make([]rune, 300)
	for i := range long {
		long[i] = 'x'
	}

	got := summarize(string(long))

	runes := []rune(got)
	assert.LessOrEqual(t, len(runes), maxSummaryGraphemes)
	assert.Equal(t, '…', runes[len(runes)-1])
}

func TestBuildContent_ComputesWordCount(t *testing.T) {
	content := buildContent("the quick brown fox", nil)

	assert.Equal(t, 4, content.WordCount)
}

func TestBuildContent_CarriesWarnings(t *testing.T) {
	content := buildContent("text", []string{"warn1", "warn2"})

	assert.Equal(t, []string{"warn1", "warn2"}, content.Warnings)
}
