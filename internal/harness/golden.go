package harness

import (
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/crossfade/internal/canon"
	"github.com/roach88/crossfade/internal/library"
)

// Snapshot captures everything a scenario produced.
// All fields use canonical JSON serialization for deterministic comparison.
type Snapshot struct {
	ScenarioName string
	RunToken     string
	Result       *Result
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON
// serialization, since canon.Marshal only handles maps, slices and
// primitives.
func (s *Snapshot) toCanonicalMap() map[string]any {
	steps := make([]any, len(s.Result.Steps))
	for i, ev := range s.Result.Steps {
		m := map[string]any{
			"seq": ev.Seq,
			"op":  ev.Op,
		}
		if ev.Target != "" {
			m["target"] = ev.Target
		}
		if ev.Size > 0 {
			m["size"] = ev.Size
		}
		if len(ev.IDs) > 0 {
			ids := make([]any, len(ev.IDs))
			for j, id := range ev.IDs {
				ids[j] = id
			}
			m["ids"] = ids
		}
		if ev.Created > 0 {
			m["created"] = ev.Created
		}
		if len(ev.Failures) > 0 {
			m["failures"] = ev.Failures
		}
		if ev.Error != "" {
			m["error"] = ev.Error
		}
		steps[i] = m
	}

	collections := make(map[string]any, len(s.Result.Collections))
	for name, ents := range s.Result.Collections {
		collections[name] = entityList(ents)
	}

	result := map[string]any{
		"scenario_name": s.ScenarioName,
		"pass":          s.Result.Pass,
		"steps":         steps,
		"collections":   collections,
		"counts": map[string]any{
			"artists":   s.Result.Counts.Artists,
			"songs":     s.Result.Counts.Songs,
			"playlists": s.Result.Counts.Playlists,
		},
	}
	if s.RunToken != "" {
		result["run_token"] = s.RunToken
	}
	return result
}

func entityList(ents []library.Entity) []any {
	out := make([]any, len(ents))
	for i, e := range ents {
		out[i] = entityMap(e)
	}
	return out
}

func entityMap(e library.Entity) map[string]any {
	refs := make(map[string]any)
	for src, ref := range e.Refs() {
		r := map[string]any{
			"item_id": ref.ItemID,
			"title":   ref.Title,
			"recency": ref.Recency.UTC().Format(time.RFC3339),
		}
		if ref.ArtistID != "" {
			r["artist_id"] = ref.ArtistID
			r["artist_name"] = ref.ArtistName
		}
		if len(ref.Metadata) > 0 {
			r["metadata"] = ref.Metadata
		}
		refs[src] = r
	}

	m := map[string]any{
		"kind":    e.Kind().String(),
		"primary": e.PrimarySource(),
		"refs":    refs,
	}
	if id, ok := e.CanonicalID(); ok {
		m["canonical_id"] = id
	}
	if tracks := e.Tracks(); tracks != nil {
		m["tracks"] = entityList(tracks.Entities())
	}
	return m
}

// MarshalSnapshot renders a scenario result as canonical JSON.
func MarshalSnapshot(scenario *Scenario, result *Result) ([]byte, error) {
	snapshot := Snapshot{
		ScenarioName: scenario.Name,
		RunToken:     scenario.RunToken,
		Result:       result,
	}
	return canon.Marshal(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	data, err := MarshalSnapshot(scenario, result)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)

	return result, nil
}
