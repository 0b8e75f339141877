// Package reembed rewrites the embedding of every stored knowledge record,
// typically after switching embedding models.
//
// Records are streamed from the store in ID order, embedded in batches with
// retry and exponential backoff, normalized to unit length and written back
// in place. Progress is reported to an io.Writer.
//
// RetryWithBackoff, NormalizeVector and ProgressTracker are also used by
// ingestion and search so stored and query vectors stay comparable.
package reembed
