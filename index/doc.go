// Package index defines the vector index abstraction used for semantic
// retrieval.
//
// The index is treated as an unreliable external dependency: when it is down
// or unconfigured the orchestrator must not call it, and search degrades to
// lexical-only scoring. The production implementation lives in the badger
// subpackage.
package index
