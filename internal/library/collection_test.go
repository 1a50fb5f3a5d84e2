package library

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollection_InsertNoMatchAppends(t *testing.T) {
	c := NewCollection(KindSong)
	require.NoError(t, c.Insert(song(t, songRef("youtube", "a", "1"))))
	require.NoError(t, c.Insert(song(t, songRef("youtube", "a", "2"))))

	assert.Equal(t, 2, c.Len())
	ref, _ := c.At(1).Ref("youtube")
	assert.Equal(t, "2", ref.ItemID)
}

func TestCollection_InsertSingleMatchReplaces(t *testing.T) {
	c := NewCollection(KindSong)
	require.NoError(t, c.InsertAll([]Entity{
		song(t, songRef("youtube", "a", "1")),
		song(t, songRef("youtube", "a", "2")),
	}))
	require.NoError(t, c.Insert(song(t, songRef("youtube", "a", "2"), songRef("spotify", "b", "9"))))

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, []string{"spotify", "youtube"}, c.At(1).Sources())
}

func TestCollection_BridgeFanIn(t *testing.T) {
	a := song(t, songRef("youtube", "aid_y", "sid_a"))
	b := song(t, songRef("spotify", "aid_s", "sid_a"))
	bridge := song(t, songRef("youtube", "aid_y", "sid_a"), songRef("spotify", "aid_s", "sid_a"))

	require.False(t, Match(a, b))

	t.Run("A then C", func(t *testing.T) {
		c := NewCollection(KindSong)
		require.NoError(t, c.InsertAll([]Entity{a, bridge}))
		require.Equal(t, 1, c.Len())
		assert.Equal(t, []string{"spotify", "youtube"}, c.At(0).Sources())
	})

	t.Run("A, B, C", func(t *testing.T) {
		c := NewCollection(KindSong)
		require.NoError(t, c.InsertAll([]Entity{a, b}))
		require.Equal(t, 2, c.Len())

		require.NoError(t, c.Insert(bridge))
		require.Equal(t, 1, c.Len())
		assert.Equal(t, []string{"spotify", "youtube"}, c.At(0).Sources())
		assert.NoError(t, c.CheckClosure())
	})
}

func TestCollection_ThreeWayBridge(t *testing.T) {
	c := NewCollection(KindSong)
	require.NoError(t, c.InsertAll([]Entity{
		song(t, songRef("svc1", "a1", "s1")),
		song(t, songRef("svc2", "a2", "s2")),
		song(t, songRef("svc3", "a3", "s3")),
	}))
	require.Equal(t, 3, c.Len())

	mega := song(t, songRef("svc1", "a1", "s1"), songRef("svc2", "a2", "s2"), songRef("svc3", "a3", "s3"))
	require.NoError(t, c.Insert(mega))

	require.Equal(t, 1, c.Len())
	assert.Equal(t, []string{"svc1", "svc2", "svc3"}, c.At(0).Sources())
}

func TestCollection_FoldKeepsLowestIndexAndOrder(t *testing.T) {
	c := NewCollection(KindSong)
	require.NoError(t, c.InsertAll([]Entity{
		song(t, songRef("x", "a", "0")),
		song(t, songRef("y", "a", "1")),
		song(t, songRef("x", "a", "2")),
		song(t, songRef("z", "a", "3")),
		song(t, songRef("x", "a", "4")),
	}))

	// Bridges slots 1 and 3.
	require.NoError(t, c.Insert(song(t, songRef("y", "a", "1"), songRef("z", "a", "3"))))

	require.Equal(t, 4, c.Len())
	ids := make([]string, 0, c.Len())
	for _, e := range c.Entities() {
		ids = append(ids, fmt.Sprint(e.Sources()))
	}
	assert.Equal(t, []string{"[x]", "[y z]", "[x]", "[x]"}, ids)

	ref, _ := c.At(3).Ref("x")
	assert.Equal(t, "4", ref.ItemID)

	// The index follows the shifted slots.
	assert.True(t, c.Contains(song(t, songRef("x", "a", "4"))))
	require.NoError(t, c.Insert(song(t, songRef("x", "a", "4"), songRef("w", "a", "w"))))
	assert.Equal(t, 4, c.Len())
	assert.Equal(t, []string{"w", "x"}, c.At(3).Sources())
}

func TestCollection_FoldByCanonicalID(t *testing.T) {
	c := NewCollection(KindSong)
	require.NoError(t, c.InsertAll([]Entity{
		song(t, songRef("x", "a", "1")).WithCanonicalID(10),
		song(t, songRef("y", "b", "2")),
	}))

	bridge := song(t, songRef("y", "b", "2")).WithCanonicalID(10)
	require.NoError(t, c.Insert(bridge))

	require.Equal(t, 1, c.Len())
	id, ok := c.At(0).CanonicalID()
	assert.True(t, ok)
	assert.Equal(t, int64(10), id)
}

func TestCollection_Idempotence(t *testing.T) {
	c := NewCollection(KindSong)
	require.NoError(t, c.InsertAll([]Entity{
		song(t, songRef("youtube", "a", "1"), songRef("spotify", "b", "1")),
		song(t, songRef("youtube", "a", "2")),
	}))

	before := c.Entities()
	for _, member := range before {
		require.NoError(t, c.Insert(member))
	}
	assert.Equal(t, before, c.Entities())
}

func TestCollection_MergeDoesNotForgeIdentity(t *testing.T) {
	partial := Reference{Source: "x", ItemID: "i1", Title: "Dive", Recency: day("2020-01-01")}
	c := NewCollection(KindSong)
	require.NoError(t, c.Insert(song(t, songRef("y", "ya", "yi"), partial)))
	require.NoError(t, c.Insert(song(t, songRef("x", "a", "i1"))))
	require.Equal(t, 2, c.Len())

	incoming := songRef("x", "a", "i2")
	incoming.Recency = day("2021-01-01")
	bridge := songRef("y", "ya", "yi")
	bridge.Recency = day("2021-01-01")
	require.NoError(t, c.Insert(song(t, bridge, incoming)))

	require.Equal(t, 2, c.Len())
	require.NoError(t, c.CheckClosure())
	x, ok := c.At(0).Ref("x")
	require.True(t, ok)
	assert.Equal(t, "a", x.ArtistID)
	assert.Equal(t, "i2", x.ItemID)
}

func TestCollection_RejectsInvalid(t *testing.T) {
	c := NewCollection(KindSong)

	err := c.Insert(Entity{kind: KindSong})
	assert.True(t, IsInvalidRecord(err))

	err = c.Insert(playlist(t, nil, playlistRef("x", "1")))
	assert.True(t, IsTypeMismatch(err))
	assert.Equal(t, 0, c.Len())
}

func TestCollection_RemoveDiscardContains(t *testing.T) {
	a := song(t, songRef("youtube", "a", "1"))
	b := song(t, songRef("youtube", "a", "2"))
	missing := song(t, songRef("youtube", "a", "3"))

	c := NewCollection(KindSong)
	require.NoError(t, c.InsertAll([]Entity{a, b}))

	assert.True(t, c.Contains(a))
	assert.False(t, c.Contains(missing))

	err := c.Remove(missing)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	require.NoError(t, c.Remove(a))
	assert.Equal(t, 1, c.Len())
	assert.False(t, c.Contains(a))
	assert.True(t, c.Contains(b))

	c.Discard(missing)
	c.Discard(b)
	assert.Equal(t, 0, c.Len())
}

func TestCollection_CloneIsIndependent(t *testing.T) {
	c := NewCollection(KindSong)
	require.NoError(t, c.Insert(song(t, songRef("youtube", "a", "1"))))

	clone := c.Clone()
	require.NoError(t, clone.Insert(song(t, songRef("youtube", "a", "2"))))

	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 2, clone.Len())
}

func TestIntersect(t *testing.T) {
	left := NewCollection(KindSong)
	require.NoError(t, left.InsertAll([]Entity{
		song(t, songRef("youtube", "a", "1")),
		song(t, songRef("youtube", "a", "2")),
	}))

	right := NewCollection(KindSong)
	require.NoError(t, right.InsertAll([]Entity{
		song(t, songRef("youtube", "a", "2"), songRef("spotify", "b", "2")),
		song(t, songRef("spotify", "b", "3")),
	}))

	shared, err := Intersect(left, right)
	require.NoError(t, err)
	require.Equal(t, 1, shared.Len())
	assert.Equal(t, []string{"spotify", "youtube"}, shared.At(0).Sources())
	assert.NoError(t, shared.CheckClosure())
}

func TestIntersect_ResultIsClosed(t *testing.T) {
	// Both left members match the same right member: their merges must fold.
	left := NewCollection(KindSong)
	require.NoError(t, left.InsertAll([]Entity{
		song(t, songRef("x", "a", "1")),
		song(t, songRef("y", "a", "1")),
	}))
	right := NewCollection(KindSong)
	require.NoError(t, right.Insert(song(t, songRef("x", "a", "1"), songRef("y", "a", "1"))))

	shared, err := Intersect(left, right)
	require.NoError(t, err)
	assert.Equal(t, 1, shared.Len())
	assert.NoError(t, shared.CheckClosure())
}

func TestIntersect_KindMismatch(t *testing.T) {
	_, err := Intersect(NewCollection(KindSong), NewCollection(KindPlaylist))
	assert.True(t, IsTypeMismatch(err))
}

func TestCollection_AbsorbShared(t *testing.T) {
	c := NewCollection(KindSong)
	require.NoError(t, c.InsertAll([]Entity{
		song(t, songRef("youtube", "a", "1")),
		song(t, songRef("youtube", "a", "2")),
	}))

	other := NewCollection(KindSong)
	require.NoError(t, other.InsertAll([]Entity{
		song(t, songRef("youtube", "a", "1"), songRef("spotify", "b", "1")),
		song(t, songRef("spotify", "b", "99")),
	}))

	require.NoError(t, c.AbsorbShared(other))
	assert.Equal(t, 2, c.Len(), "entities unique to other are not imported")
	assert.Equal(t, []string{"spotify", "youtube"}, c.At(0).Sources())
	assert.Equal(t, []string{"youtube"}, c.At(1).Sources())

	require.NoError(t, c.AbsorbShared(c))
	assert.Equal(t, 2, c.Len())
}

func TestCollection_ClosureUnderRandomInserts(t *testing.T) {
	sources := []string{"s1", "s2", "s3", "s4"}
	rng := rand.New(rand.NewPCG(1, 2))

	for round := range 50 {
		c := NewCollection(KindSong)
		for range 40 {
			n := 1 + rng.IntN(3)
			refs := make([]Reference, 0, n)
			for range n {
				src := sources[rng.IntN(len(sources))]
				r := songRef(src, "a", fmt.Sprint(rng.IntN(8)))
				r.Recency = day("2024-01-01").AddDate(0, 0, rng.IntN(30))
				refs = append(refs, r)
			}
			e := song(t, refs...)
			sizeBefore := c.Len()
			matched := 0
			for _, m := range c.Entities() {
				if Match(m, e) {
					matched++
				}
			}

			require.NoError(t, c.Insert(e))

			want := sizeBefore + 1
			if matched > 0 {
				want = sizeBefore - (matched - 1)
			}
			require.Equal(t, want, c.Len(), "round %d", round)
			require.NoError(t, c.CheckClosure(), "round %d", round)
		}
	}
}

func TestCollection_ConcurrentReaders(t *testing.T) {
	c := NewCollection(KindSong)
	for i := range 20 {
		require.NoError(t, c.Insert(song(t, songRef("x", "a", fmt.Sprint(i)))))
	}

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			probe := MustSong(songRef("x", "a", fmt.Sprint(i)))
			assert.True(t, c.Contains(probe))
			_ = c.Entities()
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 20; i < 40; i++ {
			assert.NoError(t, c.Insert(MustSong(songRef("x", "a", fmt.Sprint(i)))))
		}
	}()
	wg.Wait()
	assert.Equal(t, 40, c.Len())
}
