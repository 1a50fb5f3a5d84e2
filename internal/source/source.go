package source

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/crossfade/internal/library"
)

// Source is one music service as seen by the engine.
type Source interface {
	// ID returns the source id recorded on every reference.
	ID() string

	// PullSongs returns the source's song records.
	PullSongs(ctx context.Context) ([]library.SongRecord, error)

	// PullPlaylists returns the source's playlist records with their songs.
	PullPlaylists(ctx context.Context) ([]library.PlaylistRecord, error)

	// IdentifySong looks for the source's record of a canonical song known
	// only through other sources. ok is false when nothing matches.
	IdentifySong(ctx context.Context, song library.Entity) (rec library.SongRecord, ok bool, err error)

	// IdentifyPlaylist is IdentifySong for playlists. Only the playlist
	// header is used; returned songs are ignored.
	IdentifyPlaylist(ctx context.Context, playlist library.Entity) (rec library.PlaylistRecord, ok bool, err error)
}

// Registry holds the sources available to the engine, filtered by an
// optional whitelist and blacklist of ids.
type Registry struct {
	whitelist []string
	blacklist []string
	sources   []Source
}

// NewRegistry creates a registry. An empty whitelist admits every id not
// on the blacklist.
func NewRegistry(whitelist, blacklist []string) *Registry {
	return &Registry{
		whitelist: slices.Clone(whitelist),
		blacklist: slices.Clone(blacklist),
	}
}

// Register adds src. Sources filtered out by the lists are skipped and
// reported as not registered. Duplicate ids are an error.
func (r *Registry) Register(src Source) (bool, error) {
	id := src.ID()
	if id == "" {
		return false, fmt.Errorf("register source: empty id")
	}
	if _, ok := r.Get(id); ok {
		return false, fmt.Errorf("register source: duplicate id %q", id)
	}
	if !r.Allowed(id) {
		return false, nil
	}
	r.sources = append(r.sources, src)
	return true, nil
}

// Allowed reports whether id passes the whitelist and blacklist.
func (r *Registry) Allowed(id string) bool {
	if slices.Contains(r.blacklist, id) {
		return false
	}
	return len(r.whitelist) == 0 || slices.Contains(r.whitelist, id)
}

// Get returns the registered source with the given id.
func (r *Registry) Get(id string) (Source, bool) {
	for _, src := range r.sources {
		if src.ID() == id {
			return src, true
		}
	}
	return nil, false
}

// Sources returns registered sources in registration order.
func (r *Registry) Sources() []Source {
	return slices.Clone(r.sources)
}

// IDs returns registered source ids in registration order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.sources))
	for i, src := range r.sources {
		ids[i] = src.ID()
	}
	return ids
}
