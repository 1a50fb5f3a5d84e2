package source

import (
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/crossfade/internal/library"
)

// catalog is an in-memory record set with exact-name identification.
type catalog struct {
	songs     []library.SongRecord
	playlists []library.PlaylistRecord

	byArtistTitle map[[2]string]int
	byName        map[string]int
}

func newCatalog(songs []library.SongRecord, playlists []library.PlaylistRecord) *catalog {
	c := &catalog{
		songs:         songs,
		playlists:     playlists,
		byArtistTitle: make(map[[2]string]int, len(songs)),
		byName:        make(map[string]int, len(playlists)),
	}
	for i, s := range songs {
		k := songKey(s.ArtistName, s.Title)
		if _, dup := c.byArtistTitle[k]; !dup {
			c.byArtistTitle[k] = i
		}
	}
	for i, p := range playlists {
		k := norm.NFC.String(p.Name)
		if _, dup := c.byName[k]; !dup {
			c.byName[k] = i
		}
	}
	return c
}

func songKey(artist, title string) [2]string {
	return [2]string{norm.NFC.String(artist), norm.NFC.String(title)}
}

// identifySong tries each of the entity's references, primary first, and
// returns the first record with the same artist name and title.
func (c *catalog) identifySong(e library.Entity) (library.SongRecord, bool) {
	for _, ref := range orderedRefs(e) {
		if i, ok := c.byArtistTitle[songKey(ref.ArtistName, ref.Title)]; ok {
			return c.songs[i], true
		}
	}
	return library.SongRecord{}, false
}

func (c *catalog) identifyPlaylist(e library.Entity) (library.PlaylistRecord, bool) {
	for _, ref := range orderedRefs(e) {
		if i, ok := c.byName[norm.NFC.String(ref.Title)]; ok {
			rec := c.playlists[i]
			rec.Songs = nil
			return rec, true
		}
	}
	return library.PlaylistRecord{}, false
}

func orderedRefs(e library.Entity) []library.Reference {
	refs := e.Refs()
	primary := e.PrimarySource()
	out := make([]library.Reference, 0, len(refs))
	if ref, ok := refs[primary]; ok {
		out = append(out, ref)
	}
	for _, src := range e.Sources() {
		if src != primary {
			out = append(out, refs[src])
		}
	}
	return out
}
