// Package agent exposes the knowledge base to AI agents as a read-only
// surface: document reads by id or path, search with full-text loading,
// listings, and metadata summaries.
//
// Every path argument is canonicalized and must resolve inside the
// knowledge-base root; anything else is rejected with
// core.ErrPathAccessDenied. No write operations are exposed here.
package agent
