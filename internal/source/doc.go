// Package source defines the capability through which music services hand
// records to the reconciliation engine.
//
// A Source pulls flat song and playlist records and, for canonical entities
// it has no reference to yet, tries to identify a matching record. Network
// clients for real services live outside this module; the package provides
// an in-memory Static source and an Export source that reads CUE catalog
// dumps from a directory.
package source
