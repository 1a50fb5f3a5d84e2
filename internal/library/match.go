package library

// Match reports whether a and b denote the same real-world object.
//
// True when both carry the same canonical id, or when some source present in
// both has identical bare identity (artist id and song id for songs, playlist
// id for playlists). Entities of different kinds never match. Runs in
// O(min(|a.refs|, |b.refs|)).
func Match(a, b Entity) bool {
	if a.kind != b.kind {
		return false
	}
	if a.canonicalID != 0 && a.canonicalID == b.canonicalID {
		return true
	}

	small, large := a.refs, b.refs
	if len(large) < len(small) {
		small, large = large, small
	}
	for src, ref := range small {
		other, ok := large[src]
		if !ok {
			continue
		}
		k1, ok1 := ref.key(a.kind)
		k2, ok2 := other.key(a.kind)
		if ok1 && ok2 && k1 == k2 {
			return true
		}
	}
	return false
}

// keys returns every identity key of e.
func (e Entity) keys() []identityKey {
	out := make([]identityKey, 0, len(e.refs))
	for _, ref := range e.refs {
		if k, ok := ref.key(e.kind); ok {
			out = append(out, k)
		}
	}
	return out
}
