// Package kb is the retrieval orchestrator for the knowledge base.
//
// It coordinates the ingestion pipeline (validate, scan, chunk, summarize,
// store, embed, index) and the search pipeline (scan, scope, retrieve, rank)
// across the metadata store, the vector index, and the AI provider. The
// index and provider are unreliable collaborators: the orchestrator degrades
// to lexical-only search and partially-indexed ingestion instead of failing
// requests when they are down.
package kb
