package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/crossfade/internal/library"
)

// Scenario defines a reconciliation test scenario.
// Scenarios drive collections, the canonical store and the engine through a
// sequence of steps and assert on the resulting state.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// RunToken is an optional fixed run token for deterministic tests.
	// If empty, defaults to "test-run-default".
	RunToken string `yaml:"run_token,omitempty"`

	// Today is the date given to records without one. Defaults to
	// testutil.Epoch.
	Today time.Time `yaml:"today,omitempty"`

	// Steps run in order against one fresh store.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final collections and store.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one operation of a scenario.
type Step struct {
	// Op is one of the Op* constants.
	Op string `yaml:"op"`

	// Collection names the in-memory collection the step works on.
	Collection string `yaml:"collection,omitempty"`

	// With is the right operand of intersect.
	With string `yaml:"with,omitempty"`

	// From is the collection absorb reads from.
	From string `yaml:"from,omitempty"`

	// Into names the collection that receives an intersect or merge result.
	Into string `yaml:"into,omitempty"`

	// Source is the source id of pull and identify steps.
	Source string `yaml:"source,omitempty"`

	// Songs and Playlists are the records the step consumes. For identify
	// they are the source's catalog.
	Songs     []library.SongRecord     `yaml:"songs,omitempty"`
	Playlists []library.PlaylistRecord `yaml:"playlists,omitempty"`

	// Linked lists songs known to several sources at once. Each inner list
	// becomes one song carrying every record as a reference.
	Linked [][]library.SongRecord `yaml:"linked,omitempty"`

	// ExpectError is the error code the step must fail with.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Step operations.
const (
	OpInsert    = "insert"
	OpRemove    = "remove"
	OpMerge     = "merge"
	OpIntersect = "intersect"
	OpAbsorb    = "absorb"
	OpIngest    = "ingest"
	OpResolve   = "resolve"
	OpPull      = "pull"
	OpIdentify  = "identify"
)

// Assertion validates final state.
type Assertion struct {
	// Type specifies the assertion type (one of the Assert* constants).
	Type string `yaml:"type"`

	// Collection and Index select an entity for collection assertions.
	Collection string `yaml:"collection,omitempty"`
	Index      int    `yaml:"index,omitempty"`

	// Kind selects the canonical table: song, artist or playlist.
	Kind string `yaml:"kind,omitempty"`

	// Source is the source id for primary_source and unresolved.
	Source string `yaml:"source,omitempty"`

	// Sources is the expected sorted source list of collection_sources.
	Sources []string `yaml:"sources,omitempty"`

	// Code filters failures by error code.
	Code string `yaml:"code,omitempty"`

	// Count is the expected number for counting assertions.
	Count int `yaml:"count"`
}

// Assertion type constants.
const (
	AssertCollectionSize    = "collection_size"
	AssertCollectionSources = "collection_sources"
	AssertPrimarySource     = "primary_source"
	AssertTrackCount        = "track_count"
	AssertClosure           = "closure"
	AssertCanonicalCount    = "canonical_count"
	AssertUnresolved        = "unresolved"
	AssertDuplicates        = "duplicates"
	AssertFailures          = "failures"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Reject unknown fields (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, s *Step) error {
	hasRecords := len(s.Songs) > 0 || len(s.Playlists) > 0 || len(s.Linked) > 0

	switch s.Op {
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	case OpInsert, OpRemove:
		if s.Collection == "" {
			return fmt.Errorf("steps[%d]: collection is required for %s", index, s.Op)
		}
		if !hasRecords {
			return fmt.Errorf("steps[%d]: songs or playlists are required for %s", index, s.Op)
		}
	case OpMerge:
		if len(s.Songs)+len(s.Linked)+len(s.Playlists) != 2 {
			return fmt.Errorf("steps[%d]: merge takes exactly two records", index)
		}
	case OpIntersect:
		if s.Collection == "" || s.With == "" || s.Into == "" {
			return fmt.Errorf("steps[%d]: collection, with and into are required for intersect", index)
		}
	case OpAbsorb:
		if s.Collection == "" || s.From == "" {
			return fmt.Errorf("steps[%d]: collection and from are required for absorb", index)
		}
	case OpIngest:
		if s.Collection == "" && !hasRecords {
			return fmt.Errorf("steps[%d]: collection or records are required for ingest", index)
		}
	case OpResolve:
		if len(s.Songs) == 0 && len(s.Playlists) == 0 {
			return fmt.Errorf("steps[%d]: records are required for resolve", index)
		}
	case OpPull, OpIdentify:
		if s.Source == "" {
			return fmt.Errorf("steps[%d]: source is required for %s", index, s.Op)
		}
		if s.Op == OpIdentify && !hasRecords {
			return fmt.Errorf("steps[%d]: identify needs a catalog of songs or playlists", index)
		}
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, s.Op)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertCollectionSize, AssertClosure:
		if a.Collection == "" {
			return fmt.Errorf("assertions[%d]: collection is required for %s", index, a.Type)
		}
	case AssertCollectionSources, AssertPrimarySource, AssertTrackCount:
		if a.Collection == "" {
			return fmt.Errorf("assertions[%d]: collection is required for %s", index, a.Type)
		}
		if a.Index < 0 {
			return fmt.Errorf("assertions[%d]: index must be non-negative", index)
		}
		if a.Type == AssertPrimarySource && a.Source == "" {
			return fmt.Errorf("assertions[%d]: source is required for primary_source", index)
		}
	case AssertCanonicalCount, AssertDuplicates:
		if _, ok := library.ParseKind(a.Kind); !ok {
			return fmt.Errorf("assertions[%d]: unknown kind %q", index, a.Kind)
		}
	case AssertUnresolved:
		if _, ok := library.ParseKind(a.Kind); !ok {
			return fmt.Errorf("assertions[%d]: unknown kind %q", index, a.Kind)
		}
		if a.Source == "" {
			return fmt.Errorf("assertions[%d]: source is required for unresolved", index)
		}
	case AssertFailures:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	if a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", index)
	}
	return nil
}

// LoadDir loads every *.yaml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}
