package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitShortTextStaysWhole(t *testing.T) {
	s := NewSplitter(100, 20, nil)
	chunks := s.Split("a short paragraph")
	require.Len(t, chunks, 1)
	assert.Equal(t, "a short paragraph", chunks[0])
}

func TestSplitEmptyTextYieldsNothing(t *testing.T) {
	s := NewSplitter(100, 20, nil)
	assert.Empty(t, s.Split(""))
	assert.Empty(t, s.Split("   \n  "))
}

func TestSplitRespectsChunkSize(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 40; i++ {
		sb.WriteString("one reasonably sized sentence about nothing in particular. ")
	}
	s := NewSplitter(200, 40, []string{"\n\n", "\n", ".", "?", "!", " ", ""})
	chunks := s.Split(sb.String())

	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 200)
		assert.NotEmpty(t, c)
	}
}

func TestSplitPrefersParagraphBoundaries(t *testing.T) {
	text := strings.Repeat("first paragraph sentence. ", 6) + "\n\n" +
		strings.Repeat("second paragraph sentence. ", 6)
	s := NewSplitter(200, 0, []string{"\n\n", "\n", ".", "?", "!", " ", ""})
	chunks := s.Split(text)

	require.Len(t, chunks, 2)
	assert.Contains(t, chunks[0], "first paragraph")
	assert.Contains(t, chunks[1], "second paragraph")
	assert.NotContains(t, chunks[0], "second paragraph")
}

func TestSplitCarriesOverlap(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 30; i++ {
		sb.WriteString("sentence number filler content goes right here. ")
	}
	s := NewSplitter(200, 60, []string{".", " ", ""})
	chunks := s.Split(sb.String())
	require.Greater(t, len(chunks), 1)

	// The tail of one chunk reappears at the head of the next.
	tail := chunks[0][len(chunks[0])-20:]
	assert.Contains(t, chunks[1], strings.TrimSpace(tail))
}

func TestSplitIsDeterministic(t *testing.T) {
	text := strings.Repeat("alpha beta gamma delta. ", 50)
	s := NewSplitter(150, 30, []string{".", " ", ""})
	first := s.Split(text)
	second := s.Split(text)
	assert.Equal(t, first, second)
}

func TestSplitMultiByteWithoutSeparators(t *testing.T) {
	// Separator-free CJK text: each rune is 3 bytes, so byte and rune
	// counts disagree and the hard cut must land on rune boundaries.
	text := strings.Repeat("中", 1200)
	s := NewSplitter(1000, 200, nil)
	chunks := s.Split(text)

	require.Len(t, chunks, 4)
	for i, c := range chunks {
		assert.LessOrEqual(t, len(c), 1000, "chunk %d", i)
		assert.True(t, utf8.ValidString(c), "chunk %d", i)
	}
	assert.Equal(t, 1200, strings.Count(strings.Join(chunks, ""), "中"))
}

func TestSplitHardCutWithoutSeparators(t *testing.T) {
	text := strings.Repeat("x", 450)
	s := NewSplitter(100, 0, []string{""})
	chunks := s.Split(text)
	require.Len(t, chunks, 5)
	for i, c := range chunks[:4] {
		assert.Len(t, c, 100, "chunk %d", i)
	}
	assert.Len(t, chunks[4], 50)
}
