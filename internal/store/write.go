package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/crossfade/internal/library"
)

// RecordFailure describes a record that was rolled back while the rest of
// its batch committed.
type RecordFailure struct {
	Index  int
	Entity library.Entity
	Err    error
}

// BatchResult summarizes one ingestion batch.
type BatchResult struct {
	Kind library.Kind

	// Stored holds the persisted entities, with canonical ids, in input
	// order. Failed records are omitted.
	Stored []library.Entity

	// Failures holds records rejected with a per-record error.
	Failures []RecordFailure

	// Created counts canonical rows created for top-level entities.
	Created int
}

// storeFunc persists one entity inside a batch transaction and returns its
// canonical id.
type storeFunc func(ctx context.Context, tx *sql.Tx, e library.Entity) (resolution, error)

// IngestSongs persists a batch of song entities in one transaction.
//
// Each record runs under its own savepoint. Integrity violations, invalid
// records, and unknown canonical ids roll back only that record and are
// reported in BatchResult.Failures. Any other error rolls back the whole
// batch and is returned.
func (s *Store) IngestSongs(ctx context.Context, entities []library.Entity) (*BatchResult, error) {
	return s.ingest(ctx, library.KindSong, entities, storeSongTx)
}

// IngestPlaylists persists a batch of playlist entities and their tracks.
// A track failure fails its playlist record.
func (s *Store) IngestPlaylists(ctx context.Context, entities []library.Entity) (*BatchResult, error) {
	return s.ingest(ctx, library.KindPlaylist, entities, storePlaylistTx)
}

func (s *Store) ingest(ctx context.Context, kind library.Kind, entities []library.Entity, store storeFunc) (*BatchResult, error) {
	result := &BatchResult{Kind: kind}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for i, e := range entities {
			if e.Kind() != kind {
				return library.NewTypeMismatchError(kind, e.Kind())
			}
			if _, err := tx.ExecContext(ctx, "SAVEPOINT record"); err != nil {
				return fmt.Errorf("savepoint: %w", err)
			}

			res, err := store(ctx, tx, e)
			if err != nil {
				if !isRecordError(err) {
					return fmt.Errorf("record %d: %w", i, err)
				}
				if _, rerr := tx.ExecContext(ctx, "ROLLBACK TO record"); rerr != nil {
					return fmt.Errorf("rollback record %d: %w", i, rerr)
				}
				if _, rerr := tx.ExecContext(ctx, "RELEASE record"); rerr != nil {
					return fmt.Errorf("release record %d: %w", i, rerr)
				}
				result.Failures = append(result.Failures, RecordFailure{Index: i, Entity: e, Err: err})
				continue
			}

			if _, err := tx.ExecContext(ctx, "RELEASE record"); err != nil {
				return fmt.Errorf("release record %d: %w", i, err)
			}
			result.Stored = append(result.Stored, e.WithCanonicalID(res.id))
			if res.created {
				result.Created++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// entityRefs returns e's references in source order, NFC-normalized.
func entityRefs(e library.Entity) []library.Reference {
	refs := e.Refs()
	out := make([]library.Reference, 0, len(refs))
	for _, src := range e.Sources() {
		out = append(out, normalize(refs[src]))
	}
	return out
}

// storeSongTx resolves every reference of a song entity to one canonical
// song.
//
// The target is the entity's canonical id when set, otherwise the song any
// reference already maps to exactly, otherwise the result of resolving the
// primary reference. Remaining references are attached to the target;
// references that exactly map to a different song fail the record.
func storeSongTx(ctx context.Context, tx *sql.Tx, e library.Entity) (resolution, error) {
	refs := entityRefs(e)
	var target resolution

	if id, ok := e.CanonicalID(); ok {
		found, err := exists(ctx, tx, `SELECT 1 FROM songs WHERE id = ?`, id)
		if err != nil {
			return resolution{}, fmt.Errorf("check song: %w", err)
		}
		if !found {
			return resolution{}, &library.Error{Code: library.ErrCodeNotFound, Message: "song not found", CanonicalID: id}
		}
		target.id = id
	}

	mapped := make(map[string]bool, len(refs))
	for _, ref := range refs {
		if err := validateSongRef(ref); err != nil {
			return resolution{}, err
		}
		id, title, ok, err := lookupSong(ctx, tx, ref)
		if err != nil {
			return resolution{}, err
		}
		if !ok {
			continue
		}
		if title != ref.Title {
			return resolution{}, nameCollision(library.KindSong, ref, id, title)
		}
		if target.id != 0 && target.id != id {
			return resolution{}, splitMapping(library.KindSong, ref, target.id, id)
		}
		target.id = id
		mapped[ref.Source] = true
	}

	if target.id == 0 {
		primary := e.PrimarySource()
		for _, ref := range refs {
			if ref.Source != primary {
				continue
			}
			res, err := resolveSongTx(ctx, tx, ref, e.Sources())
			if err != nil {
				return resolution{}, err
			}
			target = res
			mapped[primary] = true
		}
	}

	for _, ref := range refs {
		if mapped[ref.Source] {
			continue
		}
		if err := attachSong(ctx, tx, target.id, ref); err != nil {
			return resolution{}, err
		}
	}
	return target, nil
}

// storePlaylistTx resolves a playlist entity the way storeSongTx resolves
// songs, then stores each track and appends it to the playlist.
func storePlaylistTx(ctx context.Context, tx *sql.Tx, e library.Entity) (resolution, error) {
	refs := entityRefs(e)
	var target resolution

	if id, ok := e.CanonicalID(); ok {
		found, err := exists(ctx, tx, `SELECT 1 FROM playlists WHERE id = ?`, id)
		if err != nil {
			return resolution{}, fmt.Errorf("check playlist: %w", err)
		}
		if !found {
			return resolution{}, &library.Error{Code: library.ErrCodeNotFound, Message: "playlist not found", CanonicalID: id}
		}
		target.id = id
	}

	mapped := make(map[string]bool, len(refs))
	for _, ref := range refs {
		if ref.ItemID == "" {
			return resolution{}, library.NewInvalidRecordError("playlist reference has no id", ref.Source)
		}
		id, name, ok, err := lookupPlaylist(ctx, tx, ref)
		if err != nil {
			return resolution{}, err
		}
		if !ok {
			continue
		}
		if name != ref.Title {
			return resolution{}, nameCollision(library.KindPlaylist, ref, id, name)
		}
		if target.id != 0 && target.id != id {
			return resolution{}, splitMapping(library.KindPlaylist, ref, target.id, id)
		}
		target.id = id
		mapped[ref.Source] = true
	}

	if target.id == 0 {
		primary := e.PrimarySource()
		for _, ref := range refs {
			if ref.Source != primary {
				continue
			}
			res, err := resolvePlaylistTx(ctx, tx, ref, e.Sources())
			if err != nil {
				return resolution{}, err
			}
			target = res
			mapped[primary] = true
		}
	}

	for _, ref := range refs {
		if mapped[ref.Source] {
			continue
		}
		if err := attachPlaylist(ctx, tx, target.id, ref); err != nil {
			return resolution{}, err
		}
	}

	if tracks := e.Tracks(); tracks != nil {
		for i, track := range tracks.Entities() {
			song, err := storeSongTx(ctx, tx, track)
			if err != nil {
				return resolution{}, fmt.Errorf("track %d: %w", i, err)
			}
			if err := appendTrack(ctx, tx, target.id, song.id); err != nil {
				return resolution{}, err
			}
		}
	}
	return target, nil
}

func splitMapping(kind library.Kind, ref library.Reference, want, got int64) error {
	return &library.Error{
		Code:        library.ErrCodeIntegrityViolation,
		Message:     fmt.Sprintf("references map to different canonical %ss %d and %d", kind, want, got),
		Source:      ref.Source,
		ExternalID:  ref.ItemID,
		CanonicalID: got,
	}
}

// RecordErrors returns the failure errors joined, or nil when r has none.
func (r *BatchResult) RecordErrors() error {
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, fmt.Errorf("record %d: %w", f.Index, f.Err))
	}
	return errors.Join(errs...)
}
