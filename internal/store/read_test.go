package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/crossfade/internal/library"
)

func TestReadSong_RoundTrip(t *testing.T) {
	s := createTestStore(t)

	ref := songRef("spotify", "a1", "Band", "s1", "Home")
	ref.Metadata = map[string]string{"isrc": "USX1", "explicit": "false"}
	res := ingestSongs(t, s, mustSong(t, ref))
	id, _ := res.Stored[0].CanonicalID()

	song, err := s.ReadSong(context.Background(), id)
	require.NoError(t, err)
	got, ok := song.Ref("spotify")
	require.True(t, ok)
	assert.Equal(t, ref, got)
}

func TestRead_NotFound(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.ReadSong(ctx, 1)
	assert.True(t, library.IsNotFound(err))
	_, err = s.ReadArtist(ctx, 1)
	assert.True(t, library.IsNotFound(err))
	_, err = s.ReadPlaylist(ctx, 1)
	assert.True(t, library.IsNotFound(err))
}

func TestFetchUnresolved(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ingestSongs(t, s,
		mustSong(t, songRef("spotify", "a1", "Band", "s1", "Home")),
		mustSong(t, songRef("youtube", "y2", "Other", "v2", "Away")),
		mustSong(t, songRef("spotify", "a1", "Band", "s3", "Both"), songRef("youtube", "y1", "Band", "v3", "Both")),
	)

	for _, tc := range []struct {
		source string
		want   []string
	}{
		{"spotify", []string{"Away"}},
		{"youtube", []string{"Home"}},
		{"deezer", []string{"Home", "Away", "Both"}},
	} {
		t.Run(tc.source, func(t *testing.T) {
			songs, err := s.FetchUnresolvedSongs(ctx, tc.source)
			require.NoError(t, err)
			var titles []string
			for _, song := range songs {
				ref, _ := song.PrimaryReference()
				titles = append(titles, ref.Title)
			}
			assert.Equal(t, tc.want, titles)
		})
	}

	artists, err := s.FetchUnresolvedArtists(ctx, "youtube")
	require.NoError(t, err)
	assert.Empty(t, artists, "Band gained a youtube reference through the bridge")

	playlists, err := s.FetchUnresolvedPlaylists(ctx, "spotify")
	require.NoError(t, err)
	assert.Empty(t, playlists)
}

func TestFindDuplicateNames_UnsupportedKind(t *testing.T) {
	s := createTestStore(t)
	_, err := s.FindDuplicateNames(context.Background(), library.Kind(0))
	assert.Error(t, err)
}
