// Copyright 2026 Civintel Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package kb

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/civintel/knowbase/chunker"
)

const (
	minQualityTextLength = 500
	minQualityChunks     = 3
	minRelevanceMatches  = 3
	staleYearHorizon     = 20
)

// relevanceTerms is the vocabulary sample used to sanity-check that a
// document belongs in an economic development corpus.
var relevanceTerms = []string{
	"economic", "development", "business", "industry", "manufacturing",
	"incentive", "tax", "workforce", "infrastructure", "investment",
	"jobs", "employment", "city", "region", "municipality",
}

var yearPattern = regexp.MustCompile(`\b(19\d{2}|200\d)\b`)

// QualityReport is the transient per-document assessment produced during
// ingestion. It is advisory: findings lower the score and can fail the
// report, but they never block storage. Callers surface it so curators can
// decide what to fix.
type QualityReport struct {
	Passed          bool
	Score           int
	Issues          []string
	Warnings        []string
	Recommendations []string

	TextLength           int
	ChunkCount           int
	AvgChunkLength       int
	MetadataCompleteness int
}

// assessQuality scores a document on a 100-point scale. Issues subtract
// heavily and fail the report; warnings subtract lightly and leave the
// pass/fail verdict alone.
func assessQuality(text string, segments []chunker.Segment, title string, req IngestRequest) *QualityReport {
	report := &QualityReport{
		Passed:     true,
		Score:      100,
		TextLength: len(text),
		ChunkCount: len(segments),
	}

	if len(text) < minQualityTextLength {
		report.fail(30, fmt.Sprintf("text too short: %d chars (minimum %d)", len(text), minQualityTextLength))
		report.recommend("provide more comprehensive document content")
	}
	if len(segments) < minQualityChunks {
		report.fail(25, fmt.Sprintf("too few chunks: %d (minimum %d)", len(segments), minQualityChunks))
		report.recommend("document may be too short or unstructured for effective chunking")
	}

	if len(segments) > 0 {
		total := 0
		shortest := len(segments[0].Text)
		for _, seg := range segments {
			total += len(seg.Text)
			if len(seg.Text) < shortest {
				shortest = len(seg.Text)
			}
		}
		report.AvgChunkLength = total / len(segments)

		if shortest < 100 {
			report.warn(5, "some chunks are very short (<100 chars)")
		}
		if report.AvgChunkLength < 300 {
			report.warn(10, "average chunk length is low, may hurt search quality")
		}
	}

	report.MetadataCompleteness = report.assessMetadata(title, req)

	lower := strings.ToLower(text)
	matches := 0
	for _, term := range relevanceTerms {
		if strings.Contains(lower, term) {
			matches++
		}
	}
	if matches < minRelevanceMatches {
		report.warn(15, "content may not be relevant to economic development")
	}

	if oldest := oldestYear(text); oldest > 0 && oldest < time.Now().Year()-staleYearHorizon {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("content references very old dates (oldest %d)", oldest))
		report.recommend("mark as historical or refresh the content")
	}

	if report.Score < 0 {
		report.Score = 0
	}
	return report
}

// assessMetadata warns on each missing descriptive field and returns a
// completeness percentage.
func (r *QualityReport) assessMetadata(title string, req IngestRequest) int {
	completeness := 0
	required := []struct {
		name  string
		value string
	}{
		{"title", title},
		{"jurisdiction", req.Jurisdiction},
		{"industry", req.Industry},
		{"doc type", req.DocType},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			r.warn(10, "missing metadata: "+field.name)
		} else {
			completeness += 20
		}
	}
	if strings.TrimSpace(req.SourceURL) != "" {
		completeness += 5
	}
	if completeness > 100 {
		completeness = 100
	}
	return completeness
}

func (r *QualityReport) fail(penalty int, issue string) {
	r.Passed = false
	r.Score -= penalty
	r.Issues = append(r.Issues, issue)
}

func (r *QualityReport) warn(penalty int, warning string) {
	r.Score -= penalty
	r.Warnings = append(r.Warnings, warning)
}

func (r *QualityReport) recommend(text string) {
	r.Recommendations = append(r.Recommendations, text)
}

// oldestYear returns the earliest four-digit year mentioned in the text, or
// zero when none appears.
func oldestYear(text string) int {
	oldest := 0
	for _, match := range yearPattern.FindAllString(text, -1) {
		year, err := strconv.Atoi(match)
		if err != nil {
			continue
		}
		if oldest == 0 || year < oldest {
			oldest = year
		}
	}
	return oldest
}
