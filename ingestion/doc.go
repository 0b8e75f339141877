// Package ingestion embeds and stores knowledge records batch by batch.
//
// A batch is one source (an export file or a synthetic key) and the unit of
// idempotency. The Tracker remembers which batches were fully processed; the
// Pipeline skips those, and marks a batch processed only when every valid
// record in it was both embedded and stored.
//
// For each record the pipeline runs one unit of work: embed (bounded by a
// per-call timeout and retried with backoff), then store. Units run on a
// bounded worker pool. The default pool size is 1, which processes records
// strictly in order. A failing record never aborts its siblings; it only
// keeps the batch from being marked processed, so the next run retries the
// whole batch and may store some records twice. The dedup package cleans
// up those duplicates.
//
// RunStages runs named stages in sequence, logging each stage's elapsed
// time and error, and moves on after a failing stage.
package ingestion
