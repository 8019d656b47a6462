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

package security

import (
	"log/slog"
	"regexp"

	"github.com/google/uuid"
)

// Risk is the severity assigned to a finding or a whole scan.
type Risk int

const (
	// RiskLow passes through unchanged.
	RiskLow Risk = iota
	// RiskMedium allows the operation but redacts offending spans.
	RiskMedium
	// RiskHigh blocks the operation.
	RiskHigh
)

// String returns the audit-log name of the risk level.
func (r Risk) String() string {
	switch r {
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	default:
		return "unknown"
	}
}

// Rule is one deterministic detection pattern.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Risk    Risk
}

// Finding records one rule that matched during a scan. The matched raw text
// is deliberately not carried; only the rule name and match count are.
type Finding struct {
	ID      string
	Rule    string
	Risk    Risk
	Matches int
}

// Report is the result of scanning one piece of text.
type Report struct {
	Risk      Risk
	Findings  []Finding
	Sanitized string
}

// Blocked reports whether the scanned operation must be rejected.
func (r Report) Blocked() bool {
	return r.Risk == RiskHigh
}

// DefaultRules is the ordered rule table applied by a zero-option Validator.
// High-risk rules cover prompt-injection and credential-block patterns that
// must never reach a model; medium-risk rules cover embedded directives and
// leaked secrets that are redacted instead.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:    "instruction_override",
			Pattern: regexp.MustCompile(`(?i)ignore\s+(?:all\s+)?(?:previous|prior)\s+instructions`),
			Risk:    RiskHigh,
		},
		{
			Name:    "instruction_disregard",
			Pattern: regexp.MustCompile(`(?i)disregard\s+(?:the\s+)?(?:above|previous|prior)`),
			Risk:    RiskHigh,
		},
		{
			Name:    "system_prompt_probe",
			Pattern: regexp.MustCompile(`(?i)(?:reveal|show|print|repeat|leak)\s+(?:the\s+|your\s+)?system\s+prompt`),
			Risk:    RiskHigh,
		},
		{
			Name:    "private_key_block",
			Pattern: regexp.MustCompile(`-----BEGIN\s+(?:RSA\s+|EC\s+|OPENSSH\s+)?PRIVATE\s+KEY-----`),
			Risk:    RiskHigh,
		},
		{
			Name:    "forget_context",
			Pattern: regexp.MustCompile(`(?i)forget\s+everything\s+(?:above|before)`),
			Risk:    RiskMedium,
		},
		{
			Name:    "role_reassignment",
			Pattern: regexp.MustCompile(`(?i)system\s*:\s*you\s+are\s+now`),
			Risk:    RiskMedium,
		},
		{
			Name:    "embedded_directive",
			Pattern: regexp.MustCompile(`(?i)new\s+instructions?\s*:`),
			Risk:    RiskMedium,
		},
		{
			Name:    "jailbreak_marker",
			Pattern: regexp.MustCompile(`(?i)(?:jailbreak\s+mode|developer\s+mode\s+enabled)`),
			Risk:    RiskMedium,
		},
		{
			Name:    "aws_access_key",
			Pattern: regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`),
			Risk:    RiskMedium,
		},
		{
			Name:    "bearer_token",
			Pattern: regexp.MustCompile(`(?i)\bbearer\s+[a-z0-9._~+/-]{20,}=*`),
			Risk:    RiskMedium,
		},
		{
			Name:    "credential_assignment",
			Pattern: regexp.MustCompile(`(?i)\b(?:api[_-]?key|password|secret[_-]?key|access[_-]?token)\s*[:=]\s*['"]?[^\s'"]{8,}`),
			Risk:    RiskMedium,
		},
	}
}

// Validator screens text against an ordered, deterministic rule table before
// it is stored or interpolated into a model prompt.
type Validator struct {
	rules  []Rule
	logger *slog.Logger
}

// Option configures a Validator.
type Option func(*Validator) error

// WithRules replaces the default rule table. Rule order is preserved and
// determines finding order in reports.
func WithRules(rules []Rule) Option {
	return func(v *Validator) error {
		v.rules = rules
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) error {
		if logger == nil {
			logger = slog.Default()
		}
		v.logger = logger
		return nil
	}
}

// New creates a Validator with the given options.
func New(opts ...Option) (*Validator, error) {
	v := &Validator{
		rules:  DefaultRules(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// Scan evaluates every rule against text in table order. The report risk is
// the highest matched rule risk, escalated to high when three or more rules
// match. Sanitized carries the input with every matched span replaced by a
// [REDACTED] marker; callers must use it in place of the raw text whenever
// the report carries findings.
func (v *Validator) Scan(text string) Report {
	report := Report{Risk: RiskLow, Sanitized: text}

	for _, rule := range v.rules {
		matches := rule.Pattern.FindAllStringIndex(report.Sanitized, -1)
		if len(matches) == 0 {
			continue
		}
		report.Findings = append(report.Findings, Finding{
			ID:      uuid.NewString(),
			Rule:    rule.Name,
			Risk:    rule.Risk,
			Matches: len(matches),
		})
		if rule.Risk > report.Risk {
			report.Risk = rule.Risk
		}
		report.Sanitized = rule.Pattern.ReplaceAllString(report.Sanitized, "[REDACTED]")
	}

	if len(report.Findings) >= 3 && report.Risk < RiskHigh {
		report.Risk = RiskHigh
	}

	if len(report.Findings) > 0 {
		v.logger.Warn("security scan flagged text",
			"risk", report.Risk.String(),
			"findings", len(report.Findings))
	}
	return report
}
