// Package repositories implements SQLite persistence for users and tracks.
//
// Key Implementations:
//   - [UserRepository] : Account persistence with username lookups, source URL updates and
//     the monotonic last-sync timestamp written by the sync pipeline
//   - [TrackRepository] : Append-only track store keyed by (owner, file path); inserting an
//     existing key is a silent no-op
//
// Every method runs as its own short statement or transaction against the pooled [sql.DB]; no
// connection or transaction is held between calls, so callers may interleave store access
// with long-running work.
//
// Sequence numbers provide stable, human-readable ordering (e.g., user #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
