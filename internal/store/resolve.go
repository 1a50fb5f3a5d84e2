package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/crossfade/internal/library"
)

// resolution is the outcome of resolving one reference.
type resolution struct {
	id      int64
	created bool
}

// ResolveArtist maps an artist reference (ItemID and Title carry the
// source's artist id and name) to a canonical artist id, creating the
// canonical row and the mapping when needed.
func (s *Store) ResolveArtist(ctx context.Context, ref library.Reference) (int64, error) {
	var res resolution
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		res, err = resolveArtistTx(ctx, tx, normalize(ref), 0)
		return err
	})
	return res.id, err
}

// ResolveSong maps a song reference to a canonical song id, resolving its
// artist first.
func (s *Store) ResolveSong(ctx context.Context, ref library.Reference) (int64, error) {
	var res resolution
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		res, err = resolveSongTx(ctx, tx, normalize(ref), []string{ref.Source})
		return err
	})
	return res.id, err
}

// ResolvePlaylist maps a playlist reference to a canonical playlist id.
// Tracks are not touched; use IngestPlaylists to record membership.
func (s *Store) ResolvePlaylist(ctx context.Context, ref library.Reference) (int64, error) {
	var res resolution
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		res, err = resolvePlaylistTx(ctx, tx, normalize(ref), []string{ref.Source})
		return err
	})
	return res.id, err
}

// Artists

func lookupArtist(ctx context.Context, tx *sql.Tx, source, externalID string) (id int64, name string, ok bool, err error) {
	err = tx.QueryRowContext(ctx, `
		SELECT artist_id, service_artist_name FROM artists_source_info
		WHERE service_id = ? AND service_artist_id = ?
	`, source, externalID).Scan(&id, &name)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", false, nil
	}
	if err != nil {
		return 0, "", false, fmt.Errorf("lookup artist: %w", err)
	}
	return id, name, true, nil
}

// resolveArtistTx runs exact lookup, then the preferred canonical artist (the
// artist of a song this reference's song was attached to), then the homonym
// check, then the name fallback.
func resolveArtistTx(ctx context.Context, tx *sql.Tx, ref library.Reference, preferred int64) (resolution, error) {
	if ref.ItemID == "" {
		return resolution{}, library.NewInvalidRecordError("artist reference has no id", ref.Source)
	}

	id, name, ok, err := lookupArtist(ctx, tx, ref.Source, ref.ItemID)
	if err != nil {
		return resolution{}, err
	}
	if ok {
		if name != ref.Title {
			return resolution{}, nameCollision(library.KindArtist, ref, id, name)
		}
		return resolution{id: id}, nil
	}

	if preferred != 0 {
		free, err := unmapped(ctx, tx, "artists_source_info", "artist_id", preferred, []string{ref.Source})
		if err != nil {
			return resolution{}, err
		}
		if free {
			return resolution{id: preferred}, attachArtist(ctx, tx, preferred, ref)
		}
	}

	homonym, err := exists(ctx, tx, `
		SELECT 1 FROM artists_source_info
		WHERE service_id = ? AND service_artist_name = ?
	`, ref.Source, ref.Title)
	if err != nil {
		return resolution{}, fmt.Errorf("artist homonym check: %w", err)
	}

	if !homonym {
		id, ok, err := firstID(ctx, tx, `
			SELECT a.id FROM artists a
			WHERE a.name = ?
			  AND NOT EXISTS (
				SELECT 1 FROM artists_source_info i
				WHERE i.artist_id = a.id AND i.service_id = ?
			  )
			ORDER BY a.id LIMIT 1
		`, ref.Title, ref.Source)
		if err != nil {
			return resolution{}, fmt.Errorf("artist name fallback: %w", err)
		}
		if ok {
			return resolution{id: id}, attachArtist(ctx, tx, id, ref)
		}
	}

	res, err := insertID(ctx, tx, `INSERT INTO artists (name) VALUES (?)`, ref.Title)
	if err != nil {
		return resolution{}, classify(err, "create artist", ref)
	}
	return resolution{id: res, created: true}, attachArtist(ctx, tx, res, ref)
}

func attachArtist(ctx context.Context, tx *sql.Tx, artistID int64, ref library.Reference) error {
	hash, err := snapshotHash(library.KindArtist, ref)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO artists_source_info
		(service_id, artist_id, service_artist_id, service_artist_name, recency, snapshot_hash)
		VALUES (?, ?, ?, ?, ?, ?)
	`, ref.Source, artistID, ref.ItemID, ref.Title, formatRecency(ref.Recency), hash)
	return classify(err, "attach artist", ref)
}

// Songs

func lookupSong(ctx context.Context, tx *sql.Tx, ref library.Reference) (id int64, title string, ok bool, err error) {
	err = tx.QueryRowContext(ctx, `
		SELECT song_id, service_title FROM songs_source_info
		WHERE service_id = ? AND service_artist_id = ? AND service_song_id = ?
	`, ref.Source, ref.ArtistID, ref.ItemID).Scan(&id, &title)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", false, nil
	}
	if err != nil {
		return 0, "", false, fmt.Errorf("lookup song: %w", err)
	}
	return id, title, true, nil
}

func validateSongRef(ref library.Reference) error {
	if ref.ItemID == "" || ref.ArtistID == "" {
		return library.NewInvalidRecordError("song reference needs artist id and song id", ref.Source)
	}
	return nil
}

// resolveSongTx resolves a song reference with no prior target. The name
// fallback is scoped to the song's canonical artist and skips songs already
// referenced by any of exclude.
func resolveSongTx(ctx context.Context, tx *sql.Tx, ref library.Reference, exclude []string) (resolution, error) {
	if err := validateSongRef(ref); err != nil {
		return resolution{}, err
	}

	id, title, ok, err := lookupSong(ctx, tx, ref)
	if err != nil {
		return resolution{}, err
	}
	if ok {
		if title != ref.Title {
			return resolution{}, nameCollision(library.KindSong, ref, id, title)
		}
		return resolution{id: id}, nil
	}

	artist, err := resolveArtistTx(ctx, tx, ref.Artist(), 0)
	if err != nil {
		return resolution{}, err
	}

	homonym, err := exists(ctx, tx, `
		SELECT 1 FROM songs_source_info i
		JOIN songs s ON s.id = i.song_id
		WHERE i.service_id = ? AND i.service_title = ? AND s.artist_id = ?
	`, ref.Source, ref.Title, artist.id)
	if err != nil {
		return resolution{}, fmt.Errorf("song homonym check: %w", err)
	}

	if !homonym && !artist.created {
		cond, args := notReferencedBy("songs_source_info", "song_id", "s.id", exclude)
		id, ok, err := firstID(ctx, tx, `
			SELECT s.id FROM songs s
			WHERE s.title = ? AND s.artist_id = ? AND `+cond+`
			ORDER BY s.id LIMIT 1
		`, append([]any{ref.Title, artist.id}, args...)...)
		if err != nil {
			return resolution{}, fmt.Errorf("song name fallback: %w", err)
		}
		if ok {
			return resolution{id: id}, insertSongInfo(ctx, tx, id, ref)
		}
	}

	created, err := insertID(ctx, tx, `INSERT INTO songs (title, artist_id) VALUES (?, ?)`, ref.Title, artist.id)
	if err != nil {
		return resolution{}, classify(err, "create song", ref)
	}
	return resolution{id: created, created: true}, insertSongInfo(ctx, tx, created, ref)
}

// attachSong records ref as another source's reference to an existing song.
// An unmapped artist reference is bridged to the song's canonical artist.
func attachSong(ctx context.Context, tx *sql.Tx, songID int64, ref library.Reference) error {
	if err := validateSongRef(ref); err != nil {
		return err
	}
	var artistID int64
	err := tx.QueryRowContext(ctx, `SELECT artist_id FROM songs WHERE id = ?`, songID).Scan(&artistID)
	if errors.Is(err, sql.ErrNoRows) {
		return &library.Error{Code: library.ErrCodeNotFound, Message: "song not found", CanonicalID: songID}
	}
	if err != nil {
		return fmt.Errorf("attach song: %w", err)
	}
	if _, err := resolveArtistTx(ctx, tx, ref.Artist(), artistID); err != nil {
		return err
	}
	return insertSongInfo(ctx, tx, songID, ref)
}

func insertSongInfo(ctx context.Context, tx *sql.Tx, songID int64, ref library.Reference) error {
	hash, err := snapshotHash(library.KindSong, ref)
	if err != nil {
		return err
	}
	meta, err := marshalMetadata(ref.Metadata)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO songs_source_info
		(service_id, song_id, service_artist_id, service_artist_name, service_song_id,
		 service_title, recency, metadata, snapshot_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ref.Source, songID, ref.ArtistID, ref.ArtistName, ref.ItemID,
		ref.Title, formatRecency(ref.Recency), meta, hash)
	return classify(err, "attach song", ref)
}

// Playlists

func lookupPlaylist(ctx context.Context, tx *sql.Tx, ref library.Reference) (id int64, name string, ok bool, err error) {
	err = tx.QueryRowContext(ctx, `
		SELECT playlist_id, service_playlist_name FROM playlists_source_info
		WHERE service_id = ? AND service_playlist_id = ?
	`, ref.Source, ref.ItemID).Scan(&id, &name)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", false, nil
	}
	if err != nil {
		return 0, "", false, fmt.Errorf("lookup playlist: %w", err)
	}
	return id, name, true, nil
}

func resolvePlaylistTx(ctx context.Context, tx *sql.Tx, ref library.Reference, exclude []string) (resolution, error) {
	if ref.ItemID == "" {
		return resolution{}, library.NewInvalidRecordError("playlist reference has no id", ref.Source)
	}

	id, name, ok, err := lookupPlaylist(ctx, tx, ref)
	if err != nil {
		return resolution{}, err
	}
	if ok {
		if name != ref.Title {
			return resolution{}, nameCollision(library.KindPlaylist, ref, id, name)
		}
		return resolution{id: id}, nil
	}

	homonym, err := exists(ctx, tx, `
		SELECT 1 FROM playlists_source_info
		WHERE service_id = ? AND service_playlist_name = ?
	`, ref.Source, ref.Title)
	if err != nil {
		return resolution{}, fmt.Errorf("playlist homonym check: %w", err)
	}

	if !homonym {
		cond, args := notReferencedBy("playlists_source_info", "playlist_id", "p.id", exclude)
		id, ok, err := firstID(ctx, tx, `
			SELECT p.id FROM playlists p
			WHERE p.name = ? AND `+cond+`
			ORDER BY p.id LIMIT 1
		`, append([]any{ref.Title}, args...)...)
		if err != nil {
			return resolution{}, fmt.Errorf("playlist name fallback: %w", err)
		}
		if ok {
			return resolution{id: id}, attachPlaylist(ctx, tx, id, ref)
		}
	}

	created, err := insertID(ctx, tx, `INSERT INTO playlists (name) VALUES (?)`, ref.Title)
	if err != nil {
		return resolution{}, classify(err, "create playlist", ref)
	}
	return resolution{id: created, created: true}, attachPlaylist(ctx, tx, created, ref)
}

func attachPlaylist(ctx context.Context, tx *sql.Tx, playlistID int64, ref library.Reference) error {
	hash, err := snapshotHash(library.KindPlaylist, ref)
	if err != nil {
		return err
	}
	meta, err := marshalMetadata(ref.Metadata)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO playlists_source_info
		(service_id, playlist_id, service_playlist_id, service_playlist_name, recency, metadata, snapshot_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, ref.Source, playlistID, ref.ItemID, ref.Title, formatRecency(ref.Recency), meta, hash)
	return classify(err, "attach playlist", ref)
}

// appendTrack adds songID at the end of a playlist unless already present.
func appendTrack(ctx context.Context, tx *sql.Tx, playlistID, songID int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO playlist_songs (playlist_id, song_id, position)
		SELECT ?, ?, COALESCE(MAX(position) + 1, 0) FROM playlist_songs WHERE playlist_id = ?
		ON CONFLICT(playlist_id, song_id) DO NOTHING
	`, playlistID, songID, playlistID)
	if err != nil {
		if isConstraint(err) {
			return library.NewIntegrityError(
				fmt.Sprintf("playlist %d track %d", playlistID, songID), "", "", err)
		}
		return fmt.Errorf("append track: %w", err)
	}
	return nil
}

// Helpers

func nameCollision(kind library.Kind, ref library.Reference, id int64, stored string) error {
	return &library.Error{
		Code:        library.ErrCodeIntegrityViolation,
		Message:     fmt.Sprintf("%s already mapped with name %q, got %q", kind, stored, ref.Title),
		Source:      ref.Source,
		ExternalID:  ref.ItemID,
		CanonicalID: id,
	}
}

// notReferencedBy builds a condition requiring that the canonical row
// idExpr has no reference from any of sources.
func notReferencedBy(table, column, idExpr string, sources []string) (string, []any) {
	if len(sources) == 0 {
		return "1 = 1", nil
	}
	args := make([]any, len(sources))
	for i, src := range sources {
		args[i] = src
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(sources)), ", ")
	return fmt.Sprintf(
		"NOT EXISTS (SELECT 1 FROM %s i WHERE i.%s = %s AND i.service_id IN (%s))",
		table, column, idExpr, placeholders,
	), args
}

// unmapped reports whether canonical row id has no reference from sources.
func unmapped(ctx context.Context, tx *sql.Tx, table, column string, id int64, sources []string) (bool, error) {
	cond, args := notReferencedBy(table, column, "?", sources)
	found, err := exists(ctx, tx, "SELECT 1 WHERE "+cond, append([]any{id}, args...)...)
	if err != nil {
		return false, fmt.Errorf("check %s: %w", table, err)
	}
	return found, nil
}

func exists(ctx context.Context, tx *sql.Tx, query string, args ...any) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx, query+" LIMIT 1", args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func firstID(ctx context.Context, tx *sql.Tx, query string, args ...any) (int64, bool, error) {
	var id int64
	err := tx.QueryRowContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func insertID(ctx context.Context, tx *sql.Tx, query string, args ...any) (int64, error) {
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
