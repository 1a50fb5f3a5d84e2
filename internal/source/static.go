package source

import (
	"context"
	"slices"

	"github.com/roach88/crossfade/internal/library"
)

// Static is a Source backed by fixed records. Records with an empty Source
// field are stamped with the static source's id.
type Static struct {
	id      string
	catalog *catalog
}

// NewStatic creates a static source.
func NewStatic(id string, songs []library.SongRecord, playlists []library.PlaylistRecord) *Static {
	songs = slices.Clone(songs)
	for i := range songs {
		stampSong(&songs[i], id)
	}
	playlists = slices.Clone(playlists)
	for i := range playlists {
		stampPlaylist(&playlists[i], id)
	}
	return &Static{id: id, catalog: newCatalog(songs, playlists)}
}

func stampSong(s *library.SongRecord, id string) {
	if s.Source == "" {
		s.Source = id
	}
}

func stampPlaylist(p *library.PlaylistRecord, id string) {
	if p.Source == "" {
		p.Source = id
	}
	p.Songs = slices.Clone(p.Songs)
	for i := range p.Songs {
		stampSong(&p.Songs[i], id)
	}
}

func (s *Static) ID() string { return s.id }

func (s *Static) PullSongs(ctx context.Context) ([]library.SongRecord, error) {
	return slices.Clone(s.catalog.songs), nil
}

func (s *Static) PullPlaylists(ctx context.Context) ([]library.PlaylistRecord, error) {
	return slices.Clone(s.catalog.playlists), nil
}

func (s *Static) IdentifySong(ctx context.Context, song library.Entity) (library.SongRecord, bool, error) {
	rec, ok := s.catalog.identifySong(song)
	return rec, ok, nil
}

func (s *Static) IdentifyPlaylist(ctx context.Context, playlist library.Entity) (library.PlaylistRecord, bool, error) {
	rec, ok := s.catalog.identifyPlaylist(playlist)
	return rec, ok, nil
}
