// Package security screens uploaded content and search queries for
// prompt-injection attempts and embedded credentials before either reaches
// storage or a model prompt.
//
// Detection is an ordered table of deterministic regular-expression rules,
// not a learned classifier, so every behavior is directly unit-testable.
// High-risk findings block the operation; medium-risk findings redact the
// offending spans and let the operation continue.
package security
