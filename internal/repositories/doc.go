// Package repositories implements SQLite persistence for the local upload ledger.
//
// Every upload started from this machine is recorded as an upload session together with
// its chunk layout and the entity tags returned for each chunk, so past uploads can be
// listed and exported after the process exits.
//
// Key Implementations:
//   - [UploadRepository] : session CRUD with soft deletes plus the chunk ledger
//   - [UploadRecorderAdapter] : bridges the publish pipeline to the repository
//
// Sequence numbers provide stable, human-readable ordering (e.g., upload #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
