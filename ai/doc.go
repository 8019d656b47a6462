// Package ai defines the interfaces and configuration for the external model
// services the knowledge base depends on.
//
// Two capabilities are consumed: text embedding for semantic indexing, and
// document summarization for generated titles and descriptions. Both are
// treated as unreliable collaborators. Embedding calls retry with bounded
// exponential backoff, and every caller is expected to have a degraded path
// when a service stays down.
//
// Production implementations live in the openai subpackage; deterministic
// test doubles live in the mock subpackage.
package ai
