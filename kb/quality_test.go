package kb

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civintel/knowbase/chunker"
)

func segmentsFor(t *testing.T, text string) []chunker.Segment {
	t.Helper()
	c, err := chunker.New()
	require.NoError(t, err)
	segments, err := c.Split(text)
	require.NoError(t, err)
	return segments
}

func TestAssessQualityAcceptsSolidDocument(t *testing.T) {
	text := econText(2250)
	report := assessQuality(text, segmentsFor(t, text), "Workforce Training Incentives", IngestRequest{
		Jurisdiction: "Ohio",
		Industry:     "manufacturing",
		DocType:      "report",
		SourceURL:    "https://example.org/report",
	})

	assert.True(t, report.Passed)
	assert.Equal(t, 100, report.Score)
	assert.Empty(t, report.Issues)
	assert.Empty(t, report.Warnings)
	assert.Equal(t, 85, report.MetadataCompleteness)
	assert.Equal(t, 4, report.ChunkCount)
}

func TestAssessQualityFlagsThinContent(t *testing.T) {
	text := "workforce grant notes"
	report := assessQuality(text, segmentsFor(t, text), "Notes", IngestRequest{})

	assert.False(t, report.Passed)
	assert.Len(t, report.Issues, 2, "short text and too few chunks")
	assert.NotEmpty(t, report.Recommendations)
	assert.Equal(t, 20, report.MetadataCompleteness, "only the title is present")
	assert.Equal(t, 0, report.Score, "penalties clamp at zero")
}

func TestAssessQualityWarnsOnIrrelevantContent(t *testing.T) {
	words := make([]string, 400)
	for i := range words {
		words[i] = "lorem"
	}
	text := strings.Join(words, " ")

	report := assessQuality(text, segmentsFor(t, text), "Placeholder", IngestRequest{
		Jurisdiction: "Ohio",
		Industry:     "manufacturing",
		DocType:      "report",
	})

	found := false
	for _, warning := range report.Warnings {
		if strings.Contains(warning, "relevant") {
			found = true
		}
	}
	assert.True(t, found, "expected a relevance warning, got %v", report.Warnings)
}

func TestAssessQualityWarnsOnOldDates(t *testing.T) {
	text := econText(600) + " The 1987 incentive census informed this plan."
	report := assessQuality(text, segmentsFor(t, text), "Historic Incentive Census", IngestRequest{
		Jurisdiction: "Ohio",
		Industry:     "manufacturing",
		DocType:      "report",
	})

	found := false
	for _, warning := range report.Warnings {
		if strings.Contains(warning, "1987") {
			found = true
		}
	}
	assert.True(t, found, "expected an old-date warning, got %v", report.Warnings)
}

func TestOldestYear(t *testing.T) {
	assert.Equal(t, 1992, oldestYear("surveys from 2004 revised the 1992 baseline"))
	assert.Equal(t, 0, oldestYear("no dates here"))
	assert.Equal(t, 0, oldestYear("w1942 is a token, not a year"))
}
