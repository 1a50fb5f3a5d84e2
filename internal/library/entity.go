package library

import (
	"fmt"
	"maps"
	"slices"
)

// Entity is the aggregate of every source's reference to one song or playlist.
//
// The zero Entity has no references and is not addressable; constructors
// reject it. Entities are values: methods never mutate the receiver.
type Entity struct {
	kind        Kind
	canonicalID int64
	refs        map[string]Reference

	// tracks holds a playlist's songs. Nil for songs.
	tracks *Collection
}

// NewSong builds a song entity. References sharing a source are merged.
func NewSong(refs ...Reference) (Entity, error) {
	return newEntity(KindSong, nil, refs)
}

// NewArtist builds an artist entity from artist-shaped references.
func NewArtist(refs ...Reference) (Entity, error) {
	return newEntity(KindArtist, nil, refs)
}

// NewPlaylist builds a playlist entity whose songs are inserted, in order,
// into a fresh song collection.
func NewPlaylist(tracks []Entity, refs ...Reference) (Entity, error) {
	coll := NewCollection(KindSong)
	if err := coll.InsertAll(tracks); err != nil {
		return Entity{}, fmt.Errorf("playlist tracks: %w", err)
	}
	return newEntity(KindPlaylist, coll, refs)
}

func newEntity(kind Kind, tracks *Collection, refs []Reference) (Entity, error) {
	if len(refs) == 0 {
		return Entity{}, NewInvalidRecordError(fmt.Sprintf("%s entity has no references", kind), "")
	}

	bySource := make(map[string]Reference, len(refs))
	for _, ref := range refs {
		if ref.Source == "" {
			return Entity{}, NewInvalidRecordError("reference has no source", "")
		}
		if existing, ok := bySource[ref.Source]; ok {
			bySource[ref.Source] = MergeReferences(existing, ref)
			continue
		}
		bySource[ref.Source] = ref.Clone()
	}

	return Entity{kind: kind, refs: bySource, tracks: tracks}, nil
}

// MustSong is like NewSong but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustSong(refs ...Reference) Entity {
	e, err := NewSong(refs...)
	if err != nil {
		panic(err)
	}
	return e
}

// Kind returns the entity kind.
func (e Entity) Kind() Kind {
	return e.kind
}

// Addressable reports whether e has at least one reference.
func (e Entity) Addressable() bool {
	return len(e.refs) > 0
}

// CanonicalID returns the store-assigned id, if any.
func (e Entity) CanonicalID() (int64, bool) {
	return e.canonicalID, e.canonicalID != 0
}

// WithCanonicalID returns a copy of e carrying id.
func (e Entity) WithCanonicalID(id int64) Entity {
	e.canonicalID = id
	return e
}

// WithReference returns a copy of e with ref added, merged with any
// reference e already holds from the same source.
func (e Entity) WithReference(ref Reference) Entity {
	refs := make(map[string]Reference, len(e.refs)+1)
	for src, r := range e.refs {
		refs[src] = r.Clone()
	}
	if existing, ok := refs[ref.Source]; ok {
		refs[ref.Source] = MergeReferences(existing, ref)
	} else {
		refs[ref.Source] = ref.Clone()
	}
	e.refs = refs
	return e
}

// Ref returns the reference recorded for source.
func (e Entity) Ref(source string) (Reference, bool) {
	ref, ok := e.refs[source]
	if !ok {
		return Reference{}, false
	}
	return ref.Clone(), true
}

// Refs returns a copy of the reference map.
func (e Entity) Refs() map[string]Reference {
	out := make(map[string]Reference, len(e.refs))
	for src, ref := range e.refs {
		out[src] = ref.Clone()
	}
	return out
}

// Sources returns the entity's source ids in lexical order.
func (e Entity) Sources() []string {
	return slices.Sorted(maps.Keys(e.refs))
}

// PrimarySource returns the source whose reference has the oldest recency.
// Ties are broken by the lexically smallest source id so the result does not
// depend on map order or merge argument order.
func (e Entity) PrimarySource() string {
	primary := ""
	for _, src := range e.Sources() {
		if primary == "" || e.refs[src].Recency.Before(e.refs[primary].Recency) {
			primary = src
		}
	}
	return primary
}

// PrimaryReference returns the reference of the primary source.
func (e Entity) PrimaryReference() (Reference, bool) {
	return e.Ref(e.PrimarySource())
}

// Tracks returns a copy of a playlist's song collection. Nil for songs.
func (e Entity) Tracks() *Collection {
	if e.tracks == nil {
		return nil
	}
	return e.tracks.Clone()
}

// String returns a short description for logs.
func (e Entity) String() string {
	if e.canonicalID != 0 {
		return fmt.Sprintf("%s(#%d, %v)", e.kind, e.canonicalID, e.Sources())
	}
	return fmt.Sprintf("%s(%v)", e.kind, e.Sources())
}
