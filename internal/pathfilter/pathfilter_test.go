package pathfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchSimpleGlob(t *testing.T) {
	m := New()
	m.AddPattern("*.log")
	assert.True(t, m.Match("debug.log", false))
	assert.False(t, m.Match("debug.txt", false))
}

func TestMatchDirOnly(t *testing.T) {
	m := New()
	m.AddPattern("node_modules/")
	assert.True(t, m.Match("node_modules", true))
	assert.False(t, m.Match("node_modules", false))
	assert.True(t, m.Match("node_modules/pkg/index.js", false))
}

func TestMatchAnchored(t *testing.T) {
	m := New()
	m.AddPattern("/build")
	assert.True(t, m.Match("build", true))
	assert.False(t, m.Match("src/build", true))
}

func TestMatchDoubleStarPrefix(t *testing.T) {
	m := New()
	m.AddPattern("**/cache")
	assert.True(t, m.Match("a/b/cache", true))
	assert.True(t, m.Match("cache", true))
}

func TestNegationReincludes(t *testing.T) {
	m := New()
	m.AddPattern("*.md")
	m.AddPattern("!README.md")
	assert.True(t, m.Match("notes.md", false))
	assert.False(t, m.Match("README.md", false))
}

func TestAddPatternsSkipsCommentsAndBlankLines(t *testing.T) {
	m := New()
	m.AddPatterns([]string{"# a comment", "", "*.tmp"})
	assert.True(t, m.Match("scratch.tmp", false))
}
