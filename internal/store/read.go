package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/crossfade/internal/library"
)

// ReadArtist loads a canonical artist and all of its references.
func (s *Store) ReadArtist(ctx context.Context, id int64) (library.Entity, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `SELECT name FROM artists WHERE id = ?`, id).Scan(&name)
	if err != nil {
		return library.Entity{}, notFound(err, library.KindArtist, id)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT service_id, service_artist_id, service_artist_name, recency
		FROM artists_source_info
		WHERE artist_id = ?
		ORDER BY service_id ASC
	`, id)
	if err != nil {
		return library.Entity{}, fmt.Errorf("read artist %d: %w", id, err)
	}
	defer rows.Close()

	var refs []library.Reference
	for rows.Next() {
		var ref library.Reference
		var recency string
		if err := rows.Scan(&ref.Source, &ref.ItemID, &ref.Title, &recency); err != nil {
			return library.Entity{}, fmt.Errorf("scan artist ref: %w", err)
		}
		if ref.Recency, err = parseRecency(recency); err != nil {
			return library.Entity{}, err
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return library.Entity{}, fmt.Errorf("read artist %d: %w", id, err)
	}

	e, err := library.NewArtist(refs...)
	if err != nil {
		return library.Entity{}, fmt.Errorf("artist %d: %w", id, err)
	}
	return e.WithCanonicalID(id), nil
}

// ReadSong loads a canonical song and all of its references.
func (s *Store) ReadSong(ctx context.Context, id int64) (library.Entity, error) {
	var title string
	err := s.db.QueryRowContext(ctx, `SELECT title FROM songs WHERE id = ?`, id).Scan(&title)
	if err != nil {
		return library.Entity{}, notFound(err, library.KindSong, id)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT service_id, service_artist_id, service_artist_name, service_song_id,
		       service_title, recency, metadata
		FROM songs_source_info
		WHERE song_id = ?
		ORDER BY service_id ASC
	`, id)
	if err != nil {
		return library.Entity{}, fmt.Errorf("read song %d: %w", id, err)
	}
	defer rows.Close()

	var refs []library.Reference
	for rows.Next() {
		var ref library.Reference
		var recency, meta string
		if err := rows.Scan(&ref.Source, &ref.ArtistID, &ref.ArtistName, &ref.ItemID,
			&ref.Title, &recency, &meta); err != nil {
			return library.Entity{}, fmt.Errorf("scan song ref: %w", err)
		}
		if ref.Recency, err = parseRecency(recency); err != nil {
			return library.Entity{}, err
		}
		if ref.Metadata, err = unmarshalMetadata(meta); err != nil {
			return library.Entity{}, err
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return library.Entity{}, fmt.Errorf("read song %d: %w", id, err)
	}

	e, err := library.NewSong(refs...)
	if err != nil {
		return library.Entity{}, fmt.Errorf("song %d: %w", id, err)
	}
	return e.WithCanonicalID(id), nil
}

// ReadPlaylist loads a canonical playlist, its references, and its tracks
// in position order.
func (s *Store) ReadPlaylist(ctx context.Context, id int64) (library.Entity, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `SELECT name FROM playlists WHERE id = ?`, id).Scan(&name)
	if err != nil {
		return library.Entity{}, notFound(err, library.KindPlaylist, id)
	}

	refs, err := s.readPlaylistRefs(ctx, id)
	if err != nil {
		return library.Entity{}, err
	}

	songIDs, err := s.queryIDs(ctx, `
		SELECT song_id FROM playlist_songs WHERE playlist_id = ? ORDER BY position ASC
	`, id)
	if err != nil {
		return library.Entity{}, fmt.Errorf("read playlist %d tracks: %w", id, err)
	}

	tracks := make([]library.Entity, 0, len(songIDs))
	for _, songID := range songIDs {
		track, err := s.ReadSong(ctx, songID)
		if err != nil {
			return library.Entity{}, err
		}
		tracks = append(tracks, track)
	}

	e, err := library.NewPlaylist(tracks, refs...)
	if err != nil {
		return library.Entity{}, fmt.Errorf("playlist %d: %w", id, err)
	}
	return e.WithCanonicalID(id), nil
}

func (s *Store) readPlaylistRefs(ctx context.Context, id int64) ([]library.Reference, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT service_id, service_playlist_id, service_playlist_name, recency, metadata
		FROM playlists_source_info
		WHERE playlist_id = ?
		ORDER BY service_id ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("read playlist %d: %w", id, err)
	}
	defer rows.Close()

	var refs []library.Reference
	for rows.Next() {
		var ref library.Reference
		var recency, meta string
		if err := rows.Scan(&ref.Source, &ref.ItemID, &ref.Title, &recency, &meta); err != nil {
			return nil, fmt.Errorf("scan playlist ref: %w", err)
		}
		if ref.Recency, err = parseRecency(recency); err != nil {
			return nil, err
		}
		if ref.Metadata, err = unmarshalMetadata(meta); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// FetchUnresolvedArtists returns every canonical artist with no reference
// from source, in canonical id order.
func (s *Store) FetchUnresolvedArtists(ctx context.Context, source string) ([]library.Entity, error) {
	return s.fetchUnresolved(ctx, source, "artists", "artists_source_info", "artist_id", s.ReadArtist)
}

// FetchUnresolvedSongs returns every canonical song with no reference from
// source, in canonical id order.
func (s *Store) FetchUnresolvedSongs(ctx context.Context, source string) ([]library.Entity, error) {
	return s.fetchUnresolved(ctx, source, "songs", "songs_source_info", "song_id", s.ReadSong)
}

// FetchUnresolvedPlaylists returns every canonical playlist with no
// reference from source, in canonical id order.
func (s *Store) FetchUnresolvedPlaylists(ctx context.Context, source string) ([]library.Entity, error) {
	return s.fetchUnresolved(ctx, source, "playlists", "playlists_source_info", "playlist_id", s.ReadPlaylist)
}

func (s *Store) fetchUnresolved(
	ctx context.Context,
	source, table, infoTable, column string,
	read func(context.Context, int64) (library.Entity, error),
) ([]library.Entity, error) {
	// Collect ids before reading: the pool holds a single connection.
	ids, err := s.queryIDs(ctx, fmt.Sprintf(`
		SELECT c.id FROM %s c
		WHERE NOT EXISTS (
			SELECT 1 FROM %s i WHERE i.%s = c.id AND i.service_id = ?
		)
		ORDER BY c.id ASC
	`, table, infoTable, column), source)
	if err != nil {
		return nil, fmt.Errorf("fetch unresolved %s: %w", table, err)
	}

	out := make([]library.Entity, 0, len(ids))
	for _, id := range ids {
		e, err := read(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Counts holds the number of canonical rows per table.
type Counts struct {
	Artists   int `json:"artists"`
	Songs     int `json:"songs"`
	Playlists int `json:"playlists"`
}

// Of returns the count for one kind.
func (c Counts) Of(kind library.Kind) int {
	switch kind {
	case library.KindArtist:
		return c.Artists
	case library.KindPlaylist:
		return c.Playlists
	default:
		return c.Songs
	}
}

// Counts returns canonical row counts.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM artists),
			(SELECT COUNT(*) FROM songs),
			(SELECT COUNT(*) FROM playlists)
	`).Scan(&c.Artists, &c.Songs, &c.Playlists)
	if err != nil {
		return Counts{}, fmt.Errorf("counts: %w", err)
	}
	return c, nil
}

// DuplicateName is a display name held by more than one canonical row.
type DuplicateName struct {
	Name string `json:"name"`

	// Artist is the canonical artist name for song duplicates.
	Artist string  `json:"artist,omitempty"`
	IDs    []int64 `json:"ids"`
}

// FindDuplicateNames lists canonical names shared by several rows of the
// given kind. Songs are compared within their canonical artist.
func (s *Store) FindDuplicateNames(ctx context.Context, kind library.Kind) ([]DuplicateName, error) {
	var query string
	switch kind {
	case library.KindArtist:
		query = `SELECT name, '', GROUP_CONCAT(id) FROM artists GROUP BY name HAVING COUNT(*) > 1 ORDER BY name`
	case library.KindSong:
		query = `
			SELECT s.title, a.name, GROUP_CONCAT(s.id)
			FROM songs s JOIN artists a ON a.id = s.artist_id
			GROUP BY s.artist_id, s.title HAVING COUNT(*) > 1
			ORDER BY a.name, s.title`
	case library.KindPlaylist:
		query = `SELECT name, '', GROUP_CONCAT(id) FROM playlists GROUP BY name HAVING COUNT(*) > 1 ORDER BY name`
	default:
		return nil, fmt.Errorf("find duplicates: unsupported kind %s", kind)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("find duplicates: %w", err)
	}
	defer rows.Close()

	var out []DuplicateName
	for rows.Next() {
		var d DuplicateName
		var ids string
		if err := rows.Scan(&d.Name, &d.Artist, &ids); err != nil {
			return nil, fmt.Errorf("scan duplicate: %w", err)
		}
		if d.IDs, err = parseIDList(ids); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Sources returns every source id with at least one recorded reference.
func (s *Store) Sources(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT service_id FROM artists_source_info
		UNION SELECT service_id FROM songs_source_info
		UNION SELECT service_id FROM playlists_source_info
		ORDER BY 1
	`)
	if err != nil {
		return nil, fmt.Errorf("sources: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var src string
		if err := rows.Scan(&src); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		out = append(out, src)
	}
	return out, rows.Err()
}

func (s *Store) queryIDs(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func parseIDList(s string) ([]int64, error) {
	parts := strings.Split(s, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse id list %q: %w", s, err)
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func notFound(err error, kind library.Kind, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return &library.Error{
			Code:        library.ErrCodeNotFound,
			Message:     fmt.Sprintf("%s not found", kind),
			CanonicalID: id,
		}
	}
	return fmt.Errorf("read %s %d: %w", kind, id, err)
}
