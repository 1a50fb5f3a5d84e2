package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/crossfade/internal/library"
	"github.com/roach88/crossfade/internal/testutil"
)

// createTestStore creates a new file-backed store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var baseTime = testutil.Epoch

// songRef builds a song reference whose artist name and title are given
// explicitly, since resolution is name-driven.
func songRef(source, artistID, artistName, songID, title string) library.Reference {
	return testutil.SongRef(source, artistID, artistName, songID, title, 0)
}

func playlistRef(source, id, name string) library.Reference {
	return testutil.PlaylistRef(source, id, name, 0)
}

func mustSong(t *testing.T, refs ...library.Reference) library.Entity {
	t.Helper()
	return testutil.Song(t, refs...)
}

func mustPlaylist(t *testing.T, tracks []library.Entity, refs ...library.Reference) library.Entity {
	t.Helper()
	return testutil.Playlist(t, tracks, refs...)
}

func ingestSongs(t *testing.T, s *Store, entities ...library.Entity) *BatchResult {
	t.Helper()
	res, err := s.IngestSongs(context.Background(), entities)
	require.NoError(t, err)
	return res
}

func counts(t *testing.T, s *Store) Counts {
	t.Helper()
	c, err := s.Counts(context.Background())
	require.NoError(t, err)
	return c
}
