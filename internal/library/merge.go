package library

// Merge combines two matching entities into a new one.
//
// The result holds the union of both reference maps; references from the same
// source are combined with MergeReferences. The canonical id is a's when set,
// otherwise b's. Playlist track collections are folded together with the
// cascading insert. Merge returns a TYPE_MISMATCH error for entities of
// different kinds and an INCOMPATIBLE_MERGE error when they do not match.
func Merge(a, b Entity) (Entity, error) {
	if a.kind != b.kind {
		return Entity{}, NewTypeMismatchError(a.kind, b.kind)
	}
	if !Match(a, b) {
		return Entity{}, NewIncompatibleMergeError(a, b)
	}
	return mergeUnchecked(a, b)
}

// mergeUnchecked merges without the Match precondition. Collection.Insert
// uses it when folding members that are connected only through the incoming
// bridge entity.
func mergeUnchecked(a, b Entity) (Entity, error) {
	refs := make(map[string]Reference, len(a.refs)+len(b.refs))
	for src, ref := range a.refs {
		refs[src] = ref.Clone()
	}
	for src, ref := range b.refs {
		if existing, ok := refs[src]; ok {
			refs[src] = MergeReferences(existing, ref)
			continue
		}
		refs[src] = ref.Clone()
	}

	merged := Entity{
		kind:        a.kind,
		canonicalID: a.canonicalID,
		refs:        refs,
	}
	if merged.canonicalID == 0 {
		merged.canonicalID = b.canonicalID
	}

	if a.kind == KindPlaylist {
		tracks, err := mergeTracks(a.tracks, b.tracks)
		if err != nil {
			return Entity{}, err
		}
		merged.tracks = tracks
	}

	return merged, nil
}

func mergeTracks(a, b *Collection) (*Collection, error) {
	var out *Collection
	if a != nil {
		out = a.Clone()
	} else {
		out = NewCollection(KindSong)
	}
	if b != nil {
		if err := out.InsertAll(b.Entities()); err != nil {
			return nil, err
		}
	}
	return out, nil
}
