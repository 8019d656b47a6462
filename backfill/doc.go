// Package backfill repairs the embedding backlog left behind when the
// embedding service is unavailable during ingest.
//
// A sweep finds chunks whose embedding state is pending or failed, embeds
// them in batches with retry and exponential backoff, writes the vectors to
// the index, and updates each chunk's state. Sweeps are safe to rerun; a
// chunk that cannot be embedded stays failed and is picked up next time.
package backfill
