package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSongRecord_Entity(t *testing.T) {
	rec := SongRecord{
		Source:     "spotify",
		ArtistID:   "art1",
		ArtistName: "Band",
		SongID:     "trk1",
		Title:      "Song",
		Metadata:   map[string]string{"isrc": "X"},
	}

	e, err := rec.Entity(day("2024-05-05"))
	require.NoError(t, err)
	ref, ok := e.Ref("spotify")
	require.True(t, ok)
	assert.Equal(t, "art1", ref.ArtistID)
	assert.Equal(t, "trk1", ref.ItemID)
	assert.Equal(t, day("2024-05-05"), ref.Recency, "default recency applied")

	rec.AddedAt = day("2020-02-02")
	ref = rec.Reference(day("2024-05-05"))
	assert.Equal(t, day("2020-02-02"), ref.Recency)

	ref.Metadata["isrc"] = "changed"
	assert.Equal(t, "X", rec.Metadata["isrc"])

	assert.Equal(t, rec, SongRecordFrom(rec.Reference(day("2024-05-05"))))
}

func TestSongRecord_Validate(t *testing.T) {
	tests := []struct {
		name string
		rec  SongRecord
	}{
		{"no source", SongRecord{ArtistID: "a", SongID: "s"}},
		{"no song id", SongRecord{Source: "x", ArtistID: "a"}},
		{"no artist id", SongRecord{Source: "x", SongID: "s"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.rec.Entity(day("2024-01-01"))
			require.Error(t, err)
			assert.True(t, IsInvalidRecord(err))
		})
	}
}

func TestPlaylistRecord_Entity(t *testing.T) {
	rec := PlaylistRecord{
		Source:     "youtube",
		PlaylistID: "pl1",
		Name:       "Road Trip",
		AddedAt:    day("2023-07-01"),
		Songs: []SongRecord{
			{Source: "youtube", ArtistID: "a", SongID: "1", Title: "One"},
			{Source: "youtube", ArtistID: "a", SongID: "2", Title: "Two", AddedAt: day("2023-08-01")},
			{Source: "youtube", ArtistID: "a", SongID: "1", Title: "One"},
		},
	}

	e, err := rec.Entity(day("2024-01-01"))
	require.NoError(t, err)
	assert.Equal(t, KindPlaylist, e.Kind())

	tracks := e.Tracks()
	require.Equal(t, 2, tracks.Len(), "repeated song folds")
	first, _ := tracks.At(0).Ref("youtube")
	assert.Equal(t, day("2023-07-01"), first.Recency)
	second, _ := tracks.At(1).Ref("youtube")
	assert.Equal(t, day("2023-08-01"), second.Recency)
}

func TestPlaylistRecord_InvalidSong(t *testing.T) {
	rec := PlaylistRecord{
		Source:     "youtube",
		PlaylistID: "pl1",
		Songs:      []SongRecord{{Source: "youtube", ArtistID: "a"}},
	}
	_, err := rec.Entity(day("2024-01-01"))
	require.Error(t, err)
	assert.True(t, IsInvalidRecord(err))
}
