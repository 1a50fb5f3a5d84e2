package library

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

// songRef builds a song reference dated 2024-01-01.
func songRef(source, artistID, songID string) Reference {
	return Reference{
		Source:     source,
		ArtistID:   artistID,
		ArtistName: "Artist " + artistID,
		ItemID:     songID,
		Title:      "Title " + songID,
		Recency:    day("2024-01-01"),
	}
}

func song(t *testing.T, refs ...Reference) Entity {
	t.Helper()
	e, err := NewSong(refs...)
	require.NoError(t, err)
	return e
}

func playlist(t *testing.T, tracks []Entity, refs ...Reference) Entity {
	t.Helper()
	e, err := NewPlaylist(tracks, refs...)
	require.NoError(t, err)
	return e
}

func playlistRef(source, id string) Reference {
	return Reference{Source: source, ItemID: id, Title: "Playlist " + id, Recency: day("2024-01-01")}
}
