// Package harness runs reconciliation scenarios against the library, the
// canonical store and the engine.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	run_token: test-run-1
//	today: 2024-01-01
//	steps:
//	  - op: insert
//	    collection: main
//	    songs:
//	      - { source: youtube, artist_id: ya, artist_name: Band, song_id: y1, title: Song }
//	  - op: insert
//	    collection: main
//	    linked:
//	      - - { source: youtube, artist_id: ya, song_id: y1 }
//	        - { source: spotify, artist_id: sa, song_id: s1 }
//	  - op: ingest
//	    collection: main
//	assertions:
//	  - type: collection_size
//	    collection: main
//	    count: 1
//	  - type: canonical_count
//	    kind: song
//	    count: 1
//
// # Steps
//
//   - insert, remove: cascading insert into (or removal from) a collection
//   - merge: merge exactly two entities, optionally into a new collection
//   - intersect: intersect collection with another into a new collection
//   - absorb: insert the intersection with from back into collection
//   - ingest: write a collection, or records grouped by union-find, as one batch
//   - resolve: resolve each record's reference individually
//   - pull: run an engine pull with a static source
//   - identify: run an engine identify pass with a static catalog
//
// A step may declare expect_error with an error code; the step must then
// fail with exactly that code.
//
// # Assertion Types
//
//   - collection_size, collection_sources, primary_source, track_count, closure
//   - canonical_count, unresolved, duplicates: query the store
//   - failures: count records rejected by store batches
//
// # Deterministic Testing
//
// All scenarios execute with a fixed date, fixed run tokens and an
// in-memory SQLite database, so snapshots are byte-identical across runs
// and can be compared against golden files.
package harness
