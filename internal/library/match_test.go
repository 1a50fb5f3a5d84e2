package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch(t *testing.T) {
	a := song(t, songRef("youtube", "aid_y", "sid_a"))
	c := song(t, songRef("youtube", "aid_y", "sid_a"), songRef("spotify", "aid_s", "sid_a"))
	b := song(t, songRef("spotify", "aid_s", "sid_a"))

	tests := []struct {
		name string
		x, y Entity
		want bool
	}{
		{"shared identity", a, c, true},
		{"shared identity reversed", c, a, true},
		{"disjoint sources", a, b, false},
		{"same source different song", a, song(t, songRef("youtube", "aid_y", "sid_b")), false},
		{"same source different artist", a, song(t, songRef("youtube", "aid_other", "sid_a")), false},
		{"same canonical id", a.WithCanonicalID(7), b.WithCanonicalID(7), true},
		{"different canonical id, shared identity", a.WithCanonicalID(1), c.WithCanonicalID(2), true},
		{"different canonical id, no identity", a.WithCanonicalID(1), b.WithCanonicalID(2), false},
		{"one side unresolved", a.WithCanonicalID(1), b, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Match(tc.x, tc.y))
		})
	}
}

func TestMatch_TitleSimilarityIrrelevant(t *testing.T) {
	r1 := songRef("youtube", "a1", "s1")
	r2 := songRef("spotify", "a2", "s2")
	r1.Title, r2.Title = "Same Song", "Same Song"
	r1.ArtistName, r2.ArtistName = "Same Band", "Same Band"

	assert.False(t, Match(song(t, r1), song(t, r2)))
}

func TestMatch_EmptyItemIDNeverMatches(t *testing.T) {
	r := songRef("youtube", "a1", "")
	assert.False(t, Match(song(t, r), song(t, r)))
}

func TestMatch_KindsDiffer(t *testing.T) {
	s := song(t, Reference{Source: "x", ItemID: "1", Recency: day("2024-01-01")})
	p := playlist(t, nil, Reference{Source: "x", ItemID: "1", Recency: day("2024-01-01")})
	assert.False(t, Match(s, p))
}

func TestMatch_PlaylistIgnoresArtist(t *testing.T) {
	p1 := playlist(t, nil, Reference{Source: "spotify", ArtistID: "owner1", ItemID: "pl", Recency: day("2024-01-01")})
	p2 := playlist(t, nil, Reference{Source: "spotify", ItemID: "pl", Recency: day("2024-01-01")})
	assert.True(t, Match(p1, p2))
}
