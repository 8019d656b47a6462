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

package guard

import (
	"fmt"
	"log/slog"
	"strings"
)

// DefaultRelevanceFloor is the minimum best hit score below which a query
// with no domain keyword match is treated as out of scope.
const DefaultRelevanceFloor = 0.15

// DefaultTerms maps subject categories to the vocabulary that marks a query
// as in scope for an economic development knowledge base.
func DefaultTerms() map[string][]string {
	return map[string][]string{
		"location":       {"city", "state", "county", "region", "metro", "area", "location", "site", "facility"},
		"incentives":     {"incentive", "tax", "credit", "abatement", "rebate", "grant", "funding", "financing"},
		"workforce":      {"jobs", "employment", "workforce", "labor", "skill", "training", "education"},
		"industry":       {"manufacturing", "biotech", "logistics", "cleantech", "aerospace", "software", "tech"},
		"infrastructure": {"transport", "airport", "rail", "highway", "broadband", "utility", "power"},
		"economic":       {"economy", "economic", "development", "investment", "business", "company", "enterprise"},
		"research":       {"university", "research", "innovation", "r&d", "stem"},
	}
}

// Guard gates queries and result sets against the knowledge base's declared
// subject area. MatchesVocabulary rejects queries before any embedding is
// spent on them; OutOfScope withholds ranked results whose best hit falls
// under the relevance floor.
type Guard struct {
	terms  map[string][]string
	floor  float64
	logger *slog.Logger
}

// Option configures a Guard.
type Option func(*Guard) error

// WithTerms replaces the default domain vocabulary.
func WithTerms(terms map[string][]string) Option {
	return func(g *Guard) error {
		if len(terms) == 0 {
			return fmt.Errorf("term table must not be empty")
		}
		g.terms = terms
		return nil
	}
}

// WithRelevanceFloor sets the minimum best score for scope acceptance.
// Default is DefaultRelevanceFloor.
func WithRelevanceFloor(floor float64) Option {
	return func(g *Guard) error {
		if floor < 0 || floor > 1 {
			return fmt.Errorf("relevance floor must be in [0,1], got %f", floor)
		}
		g.floor = floor
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) error {
		if logger == nil {
			logger = slog.Default()
		}
		g.logger = logger
		return nil
	}
}

// New creates a Guard with the given options.
func New(opts ...Option) (*Guard, error) {
	g := &Guard{
		terms:  DefaultTerms(),
		floor:  DefaultRelevanceFloor,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// RelevanceFloor returns the configured floor.
func (g *Guard) RelevanceFloor() float64 {
	return g.floor
}

// MatchesVocabulary reports whether the query contains any domain term, and
// names the matched categories for audit logging. This is the pre-retrieval
// gate: a query with no vocabulary match must be rejected before an
// embedding call is made on its behalf.
func (g *Guard) MatchesVocabulary(query string) (bool, []string) {
	lower := strings.ToLower(query)
	var categories []string
	for category, terms := range g.terms {
		for _, term := range terms {
			if strings.Contains(lower, term) {
				categories = append(categories, category)
				break
			}
		}
	}
	return len(categories) > 0, categories
}

// OutOfScope is the post-retrieval check: a ranked result set is withheld
// when its best hit scored under the relevance floor, so callers never
// present a low-confidence answer as authoritative. bestScore is the top
// ranked hit score.
func (g *Guard) OutOfScope(bestScore float64) bool {
	if bestScore >= g.floor {
		return false
	}
	g.logger.Info("result set under relevance floor",
		"best_score", bestScore,
		"floor", g.floor)
	return true
}
