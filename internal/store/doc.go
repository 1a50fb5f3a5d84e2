// Package store provides the SQLite-backed canonical store.
//
// The store maps (source, external id) pairs to stable canonical ids for
// artists, songs, and playlists:
//   - artists, songs, playlists: one row per canonical entity
//   - *_source_info: one row per (source, canonical id) reference, append-only
//   - playlist_songs: ordered playlist membership
//
// # Resolution
//
// A reference resolves by exact lookup of its (source, external id) mapping,
// then a homonym check (the source already maps a different id under the same
// name, so a new canonical row is created), then a name fallback against
// canonical rows not yet referenced by the source, and finally creation of a
// new canonical row. Mappings are never rewritten: an exact hit whose stored
// name differs from the incoming one is an integrity violation.
//
// Songs resolve their artist first and fall back only to songs of that
// canonical artist, so an artist forked as a homonym forks its songs too.
//
// # Batches
//
// IngestSongs and IngestPlaylists run one transaction per batch and one
// savepoint per record. Per-record errors roll back that record only and are
// reported in BatchResult; anything else aborts the batch.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Reference snapshots are hashed with internal/canon using canonical JSON and
// SHA-256 with domain separation.
package store
