// Package models defines domain entities and persistence interfaces for the soundsync library service.
//
// Persistent entities:
//   - [User] : Account with a unique username, a credential hash, an optional source URL
//     polled by the sync pipeline and the time of the last successful sync
//   - [Track] : One ingested audio file with extracted tags, owned by exactly one user
//
// Users implement the [Model] interface providing ID, timestamps and validation.
// The [Repository] interface defines the CRUD operations used by account management.
// Tracks are append-only: the metadata scanner inserts them and nothing updates them afterwards.
package models
