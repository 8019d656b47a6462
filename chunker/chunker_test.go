package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/civintel/knowbase/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syntheticWords produces n distinct unpunctuated words.
func syntheticWords(n int) []string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%04d", i)
	}
	return words
}

func TestSplit_EmptyContent(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	for _, input := range []string{"", "   ", "\n\t \n"} {
		_, err := c.Split(input)
		assert.ErrorIs(t, err, core.ErrEmptyContent, "input %q", input)
	}
}

func TestSplit_ShortTextSingleSegment(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	segments, err := c.Split("The enterprise zone offers a ten year property tax abatement.")
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, 0, segments[0].Ordinal)
	assert.Contains(t, segments[0].Text, "tax abatement")
}

func TestSplit_LongDocumentSegmentCount(t *testing.T) {
	// 2250 words is roughly 3000 tokens. With an 800-token chunk and
	// 80-token overlap the cut grid is 600-word chunks stepping by 540,
	// and the 30-word tail merges into the last chunk: exactly 4 segments.
	c, err := New()
	require.NoError(t, err)

	words := syntheticWords(2250)
	segments, err := c.Split(strings.Join(words, " "))
	require.NoError(t, err)
	require.Len(t, segments, 4)

	for i, seg := range segments {
		assert.Equal(t, i, seg.Ordinal)
		assert.Positive(t, seg.TokenCount)
	}

	// The final segment absorbs the tail and ends on the last word.
	last := segments[len(segments)-1]
	assert.True(t, strings.HasSuffix(last.Text, "w2249"))
}

func TestSplit_CoversEveryWordInOrder(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	words := syntheticWords(2250)
	segments, err := c.Split(strings.Join(words, " "))
	require.NoError(t, err)

	// Reconstruct the word sequence by greedily merging each segment onto
	// the accumulated text at its longest suffix/prefix overlap.
	merged := strings.Fields(segments[0].Text)
	for _, seg := range segments[1:] {
		segWords := strings.Fields(seg.Text)
		overlap := 0
		maxOverlap := len(segWords)
		if len(merged) < maxOverlap {
			maxOverlap = len(merged)
		}
		for k := maxOverlap; k > 0; k-- {
			match := true
			for j := 0; j < k; j++ {
				if merged[len(merged)-k+j] != segWords[j] {
					match = false
					break
				}
			}
			if match {
				overlap = k
				break
			}
		}
		require.Positive(t, overlap, "adjacent segments must overlap")
		merged = append(merged, segWords[overlap:]...)
	}

	require.Equal(t, words, merged, "reconstruction must reproduce the original word sequence")
}

func TestSplit_AdjacentSegmentsShareOverlap(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	words := syntheticWords(2250)
	segments, err := c.Split(strings.Join(words, " "))
	require.NoError(t, err)
	require.Greater(t, len(segments), 1)

	// 80 tokens of overlap is 60 words.
	for i := 1; i < len(segments); i++ {
		prev := strings.Fields(segments[i-1].Text)
		cur := strings.Fields(segments[i].Text)
		tail := strings.Join(prev[len(prev)-60:], " ")
		head := strings.Join(cur[:60], " ")
		assert.Equal(t, tail, head, "segments %d and %d", i-1, i)
	}
}

func TestSplit_SnapsToSentenceBoundary(t *testing.T) {
	c, err := New(WithChunkSize(40), WithOverlap(4))
	require.NoError(t, err)

	// 30 words per chunk; a sentence ends a few words before the cut grid.
	var b strings.Builder
	for i := 0; i < 80; i++ {
		if i == 27 {
			b.WriteString(fmt.Sprintf("w%02d. ", i))
			continue
		}
		b.WriteString(fmt.Sprintf("w%02d ", i))
	}

	segments, err := c.Split(b.String())
	require.NoError(t, err)
	require.Greater(t, len(segments), 1)
	assert.True(t, strings.HasSuffix(segments[0].Text, "w27."),
		"first segment should end at the sentence boundary, got %q", segments[0].Text)
}

func TestSplit_TailMergesIntoFinalSegment(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	// 610 words: the 70-word tail after the first 600-word chunk is below
	// the fragment threshold and merges into a single segment.
	words := syntheticWords(610)
	segments, err := c.Split(strings.Join(words, " "))
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, words, strings.Fields(segments[0].Text))
}

func TestNew_OptionValidation(t *testing.T) {
	_, err := New(WithChunkSize(0))
	assert.Error(t, err)

	_, err = New(WithOverlap(-1))
	assert.Error(t, err)

	_, err = New(WithChunkSize(100), WithOverlap(100))
	assert.Error(t, err)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 4, EstimateTokens("one two three"))
	assert.Equal(t, 800, EstimateTokens(strings.Join(syntheticWords(600), " ")))
}
