package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroup_Components(t *testing.T) {
	batch := []Entity{
		song(t, songRef("svc1", "a1", "s1")),
		song(t, songRef("svc2", "a2", "s2")),
		song(t, songRef("svc1", "a1", "other")),
		song(t, songRef("svc1", "a1", "s1"), songRef("svc2", "a2", "s2")),
		song(t, songRef("svc3", "a3", "s3")).WithCanonicalID(4),
		song(t, songRef("svc4", "a4", "s4")).WithCanonicalID(4),
	}

	groups, err := Group(KindSong, batch)
	require.NoError(t, err)
	require.Len(t, groups, 3)

	assert.Equal(t, []string{"svc1", "svc2"}, groups[0].Sources())
	ref, _ := groups[1].Ref("svc1")
	assert.Equal(t, "other", ref.ItemID)
	assert.Equal(t, []string{"svc3", "svc4"}, groups[2].Sources())
}

func TestGroup_AgreesWithCollection(t *testing.T) {
	batch := []Entity{
		song(t, songRef("svc1", "a1", "s1")),
		song(t, songRef("svc2", "a2", "s2")),
		song(t, songRef("svc3", "a3", "s3")),
		song(t, songRef("svc1", "a1", "s9")),
		song(t, songRef("svc1", "a1", "s1"), songRef("svc2", "a2", "s2"), songRef("svc3", "a3", "s3")),
	}

	groups, err := Group(KindSong, batch)
	require.NoError(t, err)

	c := NewCollection(KindSong)
	require.NoError(t, c.InsertAll(batch))

	require.Len(t, groups, c.Len())
	for i, g := range groups {
		assert.Equal(t, c.At(i).Sources(), g.Sources())
	}
}

func TestGroup_Errors(t *testing.T) {
	_, err := Group(KindPlaylist, []Entity{song(t, songRef("x", "a", "1"))})
	assert.True(t, IsTypeMismatch(err))

	_, err = Group(KindSong, []Entity{{kind: KindSong}})
	assert.True(t, IsInvalidRecord(err))

	groups, err := Group(KindSong, nil)
	require.NoError(t, err)
	assert.Empty(t, groups)
}
