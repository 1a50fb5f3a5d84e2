package library

import (
	"maps"
	"time"
)

// Kind distinguishes the entity types the library reconciles.
type Kind int

const (
	KindSong Kind = iota + 1
	KindPlaylist
	KindArtist
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case KindSong:
		return "song"
	case KindPlaylist:
		return "playlist"
	case KindArtist:
		return "artist"
	default:
		return "unknown"
	}
}

// ParseKind converts a kind name, singular or plural, to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "song", "songs":
		return KindSong, true
	case "playlist", "playlists":
		return KindPlaylist, true
	case "artist", "artists":
		return KindArtist, true
	default:
		return 0, false
	}
}

// Reference is one source's snapshot of a song or playlist.
//
// For playlists and artists ItemID is the item's own id, Title its name, and
// the artist fields are empty. A Reference is treated as immutable: every
// operation returns a new value with its own Metadata map.
type Reference struct {
	Source     string            `json:"source"`
	ArtistID   string            `json:"artist_id,omitempty"`
	ArtistName string            `json:"artist_name,omitempty"`
	ItemID     string            `json:"item_id"`
	Title      string            `json:"title,omitempty"`
	Recency    time.Time         `json:"recency"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// identityKey is the bare identity of a reference within its source.
type identityKey struct {
	source   string
	artistID string
	itemID   string
}

// key returns the identity used by Match. References without an item id
// have no identity and never match anything.
func (r Reference) key(kind Kind) (identityKey, bool) {
	if r.ItemID == "" {
		return identityKey{}, false
	}
	k := identityKey{source: r.Source, itemID: r.ItemID}
	if kind == KindSong {
		k.artistID = r.ArtistID
	}
	return k, true
}

// Artist derives the artist reference carried by a song reference.
func (r Reference) Artist() Reference {
	return Reference{
		Source:  r.Source,
		ItemID:  r.ArtistID,
		Title:   r.ArtistName,
		Recency: r.Recency,
	}
}

// Clone returns a copy of r with an independent Metadata map.
func (r Reference) Clone() Reference {
	r.Metadata = maps.Clone(r.Metadata)
	return r
}

// MergeReferences combines two snapshots of the same source record.
//
// The side with the earlier recency is preferred: each field takes its
// non-empty value first, and its metadata keys override the later side's.
// On equal recency a is treated as the earlier side. The merged recency is the
// minimum of both.
//
// ArtistID and ItemID form the identity and are taken together from one
// side: the earlier one, unless the later side carries more of the pair.
// Combining them field by field could yield a key neither input had.
func MergeReferences(a, b Reference) Reference {
	earlier, later := a, b
	if b.Recency.Before(a.Recency) {
		earlier, later = b, a
	}

	identity := earlier
	if later.identityFields() > earlier.identityFields() {
		identity = later
	}

	merged := Reference{
		Source:     firstNonEmpty(earlier.Source, later.Source),
		ArtistID:   identity.ArtistID,
		ArtistName: firstNonEmpty(earlier.ArtistName, later.ArtistName),
		ItemID:     identity.ItemID,
		Title:      firstNonEmpty(earlier.Title, later.Title),
		Recency:    earlier.Recency,
	}

	if len(earlier.Metadata) > 0 || len(later.Metadata) > 0 {
		merged.Metadata = make(map[string]string, len(earlier.Metadata)+len(later.Metadata))
		maps.Copy(merged.Metadata, later.Metadata)
		maps.Copy(merged.Metadata, earlier.Metadata)
	}

	return merged
}

func (r Reference) identityFields() int {
	n := 0
	if r.ArtistID != "" {
		n++
	}
	if r.ItemID != "" {
		n++
	}
	return n
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
