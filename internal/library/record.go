package library

import (
	"fmt"
	"time"
)

// SongRecord is the flat shape in which sources emit songs.
type SongRecord struct {
	Source     string            `json:"source" yaml:"source"`
	ArtistID   string            `json:"artist_id" yaml:"artist_id"`
	ArtistName string            `json:"artist_name" yaml:"artist_name"`
	SongID     string            `json:"song_id" yaml:"song_id"`
	Title      string            `json:"title" yaml:"title"`
	AddedAt    time.Time         `json:"added_at,omitzero" yaml:"added_at,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// PlaylistRecord is the flat shape in which sources emit playlists.
type PlaylistRecord struct {
	Source     string            `json:"source" yaml:"source"`
	PlaylistID string            `json:"playlist_id" yaml:"playlist_id"`
	Name       string            `json:"name" yaml:"name"`
	AddedAt    time.Time         `json:"added_at,omitzero" yaml:"added_at,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Songs      []SongRecord      `json:"songs,omitempty" yaml:"songs,omitempty"`
}

// Validate checks that the record carries a source and a full identity.
func (r SongRecord) Validate() error {
	switch {
	case r.Source == "":
		return NewInvalidRecordError("song record has no source", "")
	case r.SongID == "":
		return NewInvalidRecordError(fmt.Sprintf("song %q has no song id", r.Title), r.Source)
	case r.ArtistID == "":
		return NewInvalidRecordError(fmt.Sprintf("song %q has no artist id", r.Title), r.Source)
	}
	return nil
}

// Reference converts the record, using defaultRecency when AddedAt is unset.
func (r SongRecord) Reference(defaultRecency time.Time) Reference {
	recency := r.AddedAt
	if recency.IsZero() {
		recency = defaultRecency
	}
	return Reference{
		Source:     r.Source,
		ArtistID:   r.ArtistID,
		ArtistName: r.ArtistName,
		ItemID:     r.SongID,
		Title:      r.Title,
		Recency:    recency.UTC(),
		Metadata:   r.Metadata,
	}.Clone()
}

// Entity validates the record and wraps it in a single-source song.
func (r SongRecord) Entity(defaultRecency time.Time) (Entity, error) {
	if err := r.Validate(); err != nil {
		return Entity{}, err
	}
	return NewSong(r.Reference(defaultRecency))
}

// Validate checks the playlist and every nested song.
func (r PlaylistRecord) Validate() error {
	if r.Source == "" {
		return NewInvalidRecordError("playlist record has no source", "")
	}
	if r.PlaylistID == "" {
		return NewInvalidRecordError(fmt.Sprintf("playlist %q has no playlist id", r.Name), r.Source)
	}
	for i, song := range r.Songs {
		if err := song.Validate(); err != nil {
			return fmt.Errorf("playlist %s song %d: %w", r.PlaylistID, i, err)
		}
	}
	return nil
}

// Reference converts the playlist header, using defaultRecency when AddedAt
// is unset.
func (r PlaylistRecord) Reference(defaultRecency time.Time) Reference {
	recency := r.AddedAt
	if recency.IsZero() {
		recency = defaultRecency
	}
	return Reference{
		Source:   r.Source,
		ItemID:   r.PlaylistID,
		Title:    r.Name,
		Recency:  recency.UTC(),
		Metadata: r.Metadata,
	}.Clone()
}

// Entity validates the record and builds a playlist whose tracks are the
// nested songs. Nested songs without an added date inherit the playlist's.
func (r PlaylistRecord) Entity(defaultRecency time.Time) (Entity, error) {
	if err := r.Validate(); err != nil {
		return Entity{}, err
	}
	ref := r.Reference(defaultRecency)
	tracks := make([]Entity, 0, len(r.Songs))
	for _, song := range r.Songs {
		t, err := NewSong(song.Reference(ref.Recency))
		if err != nil {
			return Entity{}, err
		}
		tracks = append(tracks, t)
	}
	return NewPlaylist(tracks, ref)
}

// SongRecordFrom flattens one reference of a song back into a record.
func SongRecordFrom(ref Reference) SongRecord {
	return SongRecord{
		Source:     ref.Source,
		ArtistID:   ref.ArtistID,
		ArtistName: ref.ArtistName,
		SongID:     ref.ItemID,
		Title:      ref.Title,
		AddedAt:    ref.Recency,
		Metadata:   ref.Clone().Metadata,
	}
}
