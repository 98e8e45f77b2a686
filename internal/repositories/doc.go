// Package repositories implements SQLite persistence for merge history.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// Repositories support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [MergeRepository] : Merge attempts with status, output path and source file names
//
// Sequence numbers provide stable, human-readable ordering (merge #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
