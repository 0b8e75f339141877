// Package dedup collapses knowledge records that share a link.
//
// Re-running a partially failed ingestion batch stores some records twice.
// The Resolver groups the persisted records by link, keeps the record with
// the longest content in every group and deletes the rest. Ties on length
// go to the lowest record id, so repeated runs pick the same survivor and a
// second run deletes nothing.
//
// The Resolver has no coordination with ingestion. Do not run it while an
// ingestion pass may be inserting records for the same links.
package dedup
