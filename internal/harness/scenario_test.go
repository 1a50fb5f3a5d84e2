package harness

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScenario_Valid(t *testing.T) {
	data := []byte(`
name: parse
description: parses records and assertions
today: 2024-03-01
steps:
  - op: insert
    collection: main
    songs:
      - { source: spotify, artist_id: a, artist_name: Band, song_id: "1", title: One, added_at: 2024-02-01 }
assertions:
  - type: collection_size
    collection: main
    count: 1
`)
	s, err := ParseScenario(data)
	require.NoError(t, err)

	assert.Equal(t, "parse", s.Name)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), s.Today)
	require.Len(t, s.Steps, 1)
	require.Len(t, s.Steps[0].Songs, 1)
	rec := s.Steps[0].Songs[0]
	assert.Equal(t, "spotify", rec.Source)
	assert.Equal(t, "1", rec.SongID)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), rec.AddedAt)
	assert.Equal(t, AssertCollectionSize, s.Assertions[0].Type)
}

func TestParseScenario_RejectsUnknownFields(t *testing.T) {
	data := []byte(`
name: typo
description: typo in a field
steps:
  - op: insert
    colection: main
assertions:
  - type: closure
    collection: main
`)
	_, err := ParseScenario(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestValidateScenario(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    "description: d\nsteps: [{op: pull, source: s}]\nassertions: [{type: failures}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing steps",
			yaml:    "name: n\ndescription: d\nassertions: [{type: failures}]\n",
			wantErr: "steps list is required",
		},
		{
			name:    "missing assertions",
			yaml:    "name: n\ndescription: d\nsteps: [{op: pull, source: s}]\n",
			wantErr: "assertions list is required",
		},
		{
			name:    "unknown op",
			yaml:    "name: n\ndescription: d\nsteps: [{op: shuffle}]\nassertions: [{type: failures}]\n",
			wantErr: `unknown op "shuffle"`,
		},
		{
			name:    "insert without collection",
			yaml:    "name: n\ndescription: d\nsteps: [{op: insert, songs: [{source: s, artist_id: a, song_id: x}]}]\nassertions: [{type: failures}]\n",
			wantErr: "collection is required for insert",
		},
		{
			name:    "merge needs two",
			yaml:    "name: n\ndescription: d\nsteps: [{op: merge, songs: [{source: s, artist_id: a, song_id: x}]}]\nassertions: [{type: failures}]\n",
			wantErr: "exactly two records",
		},
		{
			name:    "intersect operands",
			yaml:    "name: n\ndescription: d\nsteps: [{op: intersect, collection: a}]\nassertions: [{type: failures}]\n",
			wantErr: "with and into are required",
		},
		{
			name:    "identify without catalog",
			yaml:    "name: n\ndescription: d\nsteps: [{op: identify, source: s}]\nassertions: [{type: failures}]\n",
			wantErr: "identify needs a catalog",
		},
		{
			name:    "unknown assertion",
			yaml:    "name: n\ndescription: d\nsteps: [{op: pull, source: s}]\nassertions: [{type: vibes}]\n",
			wantErr: `unknown assertion type "vibes"`,
		},
		{
			name:    "bad kind",
			yaml:    "name: n\ndescription: d\nsteps: [{op: pull, source: s}]\nassertions: [{type: canonical_count, kind: album}]\n",
			wantErr: `unknown kind "album"`,
		},
		{
			name:    "unresolved without source",
			yaml:    "name: n\ndescription: d\nsteps: [{op: pull, source: s}]\nassertions: [{type: unresolved, kind: song}]\n",
			wantErr: "source is required for unresolved",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tc.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadDir_SortedAndStrict(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	write("b.yaml", "name: b\ndescription: d\nsteps: [{op: pull, source: s}]\nassertions: [{type: failures}]\n")
	write("a.yaml", "name: a\ndescription: d\nsteps: [{op: pull, source: s}]\nassertions: [{type: failures}]\n")
	write("notes.txt", "ignored")

	scenarios, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, scenarios, 2)
	assert.Equal(t, "a", scenarios[0].Name)
	assert.Equal(t, "b", scenarios[1].Name)

	write("c.yaml", "name: c\n")
	_, err = LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "c.yaml")
}
