package store

import (
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/crossfade/internal/canon"
	"github.com/roach88/crossfade/internal/library"
)

// recencyLayout is the TEXT encoding of reference recency. Fixed-width UTC
// so that lexical order equals chronological order.
const recencyLayout = "2006-01-02T15:04:05.000000000Z"

func formatRecency(t time.Time) string {
	return t.UTC().Format(recencyLayout)
}

func parseRecency(s string) (time.Time, error) {
	t, err := time.Parse(recencyLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse recency %q: %w", s, err)
	}
	return t, nil
}

// marshalMetadata converts metadata to canonical JSON TEXT for storage.
func marshalMetadata(m map[string]string) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	data, err := canon.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}
	return string(data), nil
}

// unmarshalMetadata parses metadata TEXT. Empty objects decode to nil.
func unmarshalMetadata(data string) (map[string]string, error) {
	if data == "" || data == "{}" {
		return nil, nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return m, nil
}

// snapshotHash is the content hash of a reference as persisted.
func snapshotHash(kind library.Kind, ref library.Reference) (string, error) {
	fields := map[string]any{
		"kind":    kind.String(),
		"source":  ref.Source,
		"item_id": ref.ItemID,
		"title":   ref.Title,
		"recency": formatRecency(ref.Recency),
	}
	if kind == library.KindSong {
		fields["artist_id"] = ref.ArtistID
		fields["artist_name"] = ref.ArtistName
	}
	if len(ref.Metadata) > 0 {
		fields["metadata"] = ref.Metadata
	}
	h, err := canon.Hash(canon.DomainSnapshot, fields)
	if err != nil {
		return "", fmt.Errorf("snapshot hash: %w", err)
	}
	return h, nil
}

// normalize returns ref with NFC-normalized names, the form in which names
// are persisted and compared.
func normalize(ref library.Reference) library.Reference {
	ref = ref.Clone()
	ref.Title = norm.NFC.String(ref.Title)
	ref.ArtistName = norm.NFC.String(ref.ArtistName)
	return ref
}
