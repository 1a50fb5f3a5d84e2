// Package engine implements the single-writer reconciliation engine.
//
// The engine pulls records from every registered source, reconciles them in
// memory with a cascading-merge Collection, and persists the result through
// the canonical store. It then drives identification: for each source, the
// canonical entities that source has no reference to are offered back to it,
// and whatever it identifies is written through the same resolution path.
//
// ARCHITECTURE:
//
// Single Writer:
// Every run holds the engine mutex for its whole duration, and the store
// serializes its own transactions. One batch per kind per run is committed
// atomically; records the store rejects are reported per record.
//
// Run Flow:
//  1. A run token is generated (UUIDv7 in production)
//  2. Records are pulled from each source in registration order
//  3. Records become single-source entities; missing dates default to today
//  4. Entities are inserted into one Collection, folding bridges
//  5. The collection is ingested as one batch
//
// The engine never calls the network itself; sources own all I/O and
// retries.
package engine
