// Package canon provides deterministic serialization for catalog data.
//
// Metadata maps, reference snapshots and harness golden files all need a byte
// representation that does not depend on map iteration order or on how a
// source happened to normalize its strings. canon produces RFC 8785 style JSON:
//
//   - Object keys sorted by UTF-16 code units
//   - Strings NFC normalized, no HTML escaping
//   - No floats and no null
//
// Content hashes are SHA-256 over the canonical bytes with a domain prefix, so
// a reference snapshot hash can never collide with a hash of another kind.
//
// canon imports nothing internal.
package canon
