package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/crossfade/internal/library"
)

func TestResolveSong_ExactLookupIsStable(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ref := songRef("spotify", "a1", "Band", "s1", "Home")
	first, err := s.ResolveSong(ctx, ref)
	require.NoError(t, err)

	second, err := s.ResolveSong(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, Counts{Artists: 1, Songs: 1}, counts(t, s))
}

func TestResolveSong_NameFallbackAcrossSources(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	spotify, err := s.ResolveSong(ctx, songRef("spotify", "a1", "Band", "s1", "Home"))
	require.NoError(t, err)
	youtube, err := s.ResolveSong(ctx, songRef("youtube", "y1", "Band", "v1", "Home"))
	require.NoError(t, err)

	assert.Equal(t, spotify, youtube)
	assert.Equal(t, Counts{Artists: 1, Songs: 1}, counts(t, s))

	song, err := s.ReadSong(ctx, spotify)
	require.NoError(t, err)
	assert.Equal(t, []string{"spotify", "youtube"}, song.Sources())
}

func TestResolveSong_ArtistHomonymCreatesNewEntity(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first, err := s.ResolveArtist(ctx, library.Reference{Source: "spotify", ItemID: "a1", Title: "Nirvana", Recency: baseTime})
	require.NoError(t, err)
	second, err := s.ResolveArtist(ctx, library.Reference{Source: "spotify", ItemID: "a2", Title: "Nirvana", Recency: baseTime})
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "same name, different id within one source")
	assert.Equal(t, 2, counts(t, s).Artists)

	dups, err := s.FindDuplicateNames(ctx, library.KindArtist)
	require.NoError(t, err)
	require.Len(t, dups, 1)
	assert.Equal(t, "Nirvana", dups[0].Name)
	assert.Equal(t, []int64{first, second}, dups[0].IDs)
}

func TestResolveSong_ArtistForkForksSongs(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	original, err := s.ResolveSong(ctx, songRef("spotify", "a1", "Nirvana", "s1", "Dive"))
	require.NoError(t, err)

	// Homonym artist within spotify: its song of the same title stays separate.
	forked, err := s.ResolveSong(ctx, songRef("spotify", "a2", "Nirvana", "s2", "Dive"))
	require.NoError(t, err)
	assert.NotEqual(t, original, forked)

	// Songs already mapped by exact id stay attached.
	again, err := s.ResolveSong(ctx, songRef("spotify", "a1", "Nirvana", "s1", "Dive"))
	require.NoError(t, err)
	assert.Equal(t, original, again)
	assert.Equal(t, Counts{Artists: 2, Songs: 2}, counts(t, s))
}

func TestResolveSong_SongHomonymUnderSameArtist(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	a, err := s.ResolveSong(ctx, songRef("spotify", "a1", "Band", "s1", "Home"))
	require.NoError(t, err)
	b, err := s.ResolveSong(ctx, songRef("spotify", "a1", "Band", "s2", "Home"))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Equal(t, Counts{Artists: 1, Songs: 2}, counts(t, s))

	// A third source attaches to the oldest free candidate.
	c, err := s.ResolveSong(ctx, songRef("youtube", "y1", "Band", "v1", "Home"))
	require.NoError(t, err)
	assert.Equal(t, a, c)

	dups, err := s.FindDuplicateNames(ctx, library.KindSong)
	require.NoError(t, err)
	require.Len(t, dups, 1)
	assert.Equal(t, "Home", dups[0].Name)
	assert.Equal(t, "Band", dups[0].Artist)
}

func TestResolveSong_NameCollisionIsIntegrityViolation(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	id, err := s.ResolveSong(ctx, songRef("spotify", "a1", "Band", "s1", "Home"))
	require.NoError(t, err)

	_, err = s.ResolveSong(ctx, songRef("spotify", "a1", "Band", "s1", "Home (Live)"))
	require.Error(t, err)
	assert.True(t, library.IsIntegrityViolation(err))

	// The stored mapping is unchanged.
	song, err := s.ReadSong(ctx, id)
	require.NoError(t, err)
	ref, _ := song.Ref("spotify")
	assert.Equal(t, "Home", ref.Title)
}

func TestResolveSong_InvalidReference(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ResolveSong(context.Background(), songRef("spotify", "", "Band", "s1", "Home"))
	assert.True(t, library.IsInvalidRecord(err))
	assert.Equal(t, Counts{}, counts(t, s))
}

func TestResolveArtist_NFCNames(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	decomposed, err := s.ResolveArtist(ctx, library.Reference{Source: "x", ItemID: "1", Title: "Beyonce\u0301", Recency: baseTime})
	require.NoError(t, err)
	composed, err := s.ResolveArtist(ctx, library.Reference{Source: "y", ItemID: "1", Title: "Beyonc\u00e9", Recency: baseTime})
	require.NoError(t, err)

	assert.Equal(t, decomposed, composed)
}

func TestResolvePlaylist(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	a, err := s.ResolvePlaylist(ctx, playlistRef("spotify", "p1", "Road Trip"))
	require.NoError(t, err)
	b, err := s.ResolvePlaylist(ctx, playlistRef("youtube", "y1", "Road Trip"))
	require.NoError(t, err)
	c, err := s.ResolvePlaylist(ctx, playlistRef("spotify", "p2", "Road Trip"))
	require.NoError(t, err)

	assert.Equal(t, a, b, "name fallback across sources")
	assert.NotEqual(t, a, c, "homonym within spotify")
	assert.Equal(t, 2, counts(t, s).Playlists)
}
