// Package library implements the in-memory entity-resolution model.
//
// A Reference is one source's immutable snapshot of a song or playlist. An
// Entity aggregates References from many sources (at most one per source) and
// represents one real-world object. A Collection holds Entities that are
// pairwise distinct under Match.
//
// # Equality
//
// Two entities match when both carry the same canonical id, or when some
// source appears in both and the bare identity of those references (artist id
// plus song id for songs, playlist id for playlists) is identical. Matching
// never compares titles or names: entities with disjoint source sets never
// match.
//
// Match is not transitive. A and B can each match a bridge C without matching
// each other, so Collection.Insert folds every member the incoming entity
// matches into a single slot at the lowest index involved.
//
// # Merging
//
// Merge combines matching entities. References from the same source merge
// field by field, the earlier (by recency) side winning for every non-empty
// field and for metadata keys. The primary source of an entity is always
// derived from its current references and never cached.
//
// # Concurrency
//
// Entity values are immutable. Collection guards its members with an RWMutex:
// Match checks and Intersect may run concurrently with each other, Insert and
// Remove are exclusive.
package library
