package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/crossfade/internal/library"
)

// SongRef builds a song reference dated Epoch plus days.
func SongRef(source, artistID, artistName, songID, title string, days int) library.Reference {
	return library.Reference{
		Source:     source,
		ArtistID:   artistID,
		ArtistName: artistName,
		ItemID:     songID,
		Title:      title,
		Recency:    Day(days),
	}
}

// PlaylistRef builds a playlist reference dated Epoch plus days.
func PlaylistRef(source, playlistID, name string, days int) library.Reference {
	return library.Reference{
		Source:  source,
		ItemID:  playlistID,
		Title:   name,
		Recency: Day(days),
	}
}

// Day returns Epoch plus n days.
func Day(n int) time.Time {
	return Epoch.AddDate(0, 0, n)
}

// Song builds a song entity and fails the test on error.
func Song(t testing.TB, refs ...library.Reference) library.Entity {
	t.Helper()
	e, err := library.NewSong(refs...)
	require.NoError(t, err)
	return e
}

// Playlist builds a playlist entity and fails the test on error.
func Playlist(t testing.TB, tracks []library.Entity, refs ...library.Reference) library.Entity {
	t.Helper()
	e, err := library.NewPlaylist(tracks, refs...)
	require.NoError(t, err)
	return e
}

// SongRecord builds a flat song record with no date.
func SongRecord(source, artistID, artistName, songID, title string) library.SongRecord {
	return library.SongRecord{
		Source:     source,
		ArtistID:   artistID,
		ArtistName: artistName,
		SongID:     songID,
		Title:      title,
	}
}
