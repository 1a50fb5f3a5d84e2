package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/crossfade/internal/library"
	"github.com/roach88/crossfade/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome

	// Entities is the inspected collection, for context.
	Entities []library.Entity
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Entities) > 0 {
		fmt.Fprintf(&buf, "\nCollection:\n")
		for i, ent := range e.Entities {
			fmt.Fprintf(&buf, "  [%d] %s\n", i, ent)
		}
	}

	return buf.String()
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store       *store.Store
	Ctx         context.Context
	Collections map[string]*library.Collection
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides database access for store assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertCollectionSize:
			err = assertCollectionSize(result, assertion)
		case AssertCollectionSources:
			err = assertCollectionSources(result, assertion)
		case AssertPrimarySource:
			err = assertPrimarySource(result, assertion)
		case AssertTrackCount:
			err = assertTrackCount(result, assertion)
		case AssertClosure:
			err = assertClosure(actx, assertion)
		case AssertFailures:
			err = assertFailures(result, assertion)
		case AssertCanonicalCount, AssertUnresolved, AssertDuplicates:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: %s requires database context", i, assertion.Type)
			} else {
				err = assertStore(actx.Ctx, actx.Store, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

func assertCollectionSize(result *Result, a Assertion) error {
	ents, ok := result.Collections[a.Collection]
	if !ok {
		return missingCollection(a)
	}
	if len(ents) != a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("collection %s has %d entities", a.Collection, a.Count),
			Actual:   fmt.Sprintf("%d entities", len(ents)),
			Entities: ents,
		}
	}
	return nil
}

func assertCollectionSources(result *Result, a Assertion) error {
	ent, ents, err := entityAt(result, a)
	if err != nil {
		return err
	}
	want := slices.Sorted(slices.Values(a.Sources))
	if got := ent.Sources(); !slices.Equal(got, want) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s[%d] sources %v", a.Collection, a.Index, want),
			Actual:   fmt.Sprintf("sources %v", got),
			Entities: ents,
		}
	}
	return nil
}

func assertPrimarySource(result *Result, a Assertion) error {
	ent, ents, err := entityAt(result, a)
	if err != nil {
		return err
	}
	if got := ent.PrimarySource(); got != a.Source {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s[%d] primary source %s", a.Collection, a.Index, a.Source),
			Actual:   fmt.Sprintf("primary source %s", got),
			Entities: ents,
		}
	}
	return nil
}

func assertTrackCount(result *Result, a Assertion) error {
	ent, ents, err := entityAt(result, a)
	if err != nil {
		return err
	}
	tracks := ent.Tracks()
	if tracks == nil {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s[%d] is a playlist", a.Collection, a.Index),
			Actual:   ent.Kind().String(),
			Entities: ents,
		}
	}
	if tracks.Len() != a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s[%d] has %d tracks", a.Collection, a.Index, a.Count),
			Actual:   fmt.Sprintf("%d tracks", tracks.Len()),
			Entities: tracks.Entities(),
		}
	}
	return nil
}

// assertClosure checks that no two entities of the collection match.
func assertClosure(actx *AssertionContext, a Assertion) error {
	if actx == nil {
		return fmt.Errorf("closure requires collection context")
	}
	coll, ok := actx.Collections[a.Collection]
	if !ok {
		return missingCollection(a)
	}
	if err := coll.CheckClosure(); err != nil {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("no two entities of %s match", a.Collection),
			Actual:   err.Error(),
			Entities: coll.Entities(),
		}
	}
	return nil
}

func assertFailures(result *Result, a Assertion) error {
	if got := result.FailureCount(a.Code); got != a.Count {
		code := a.Code
		if code == "" {
			code = "any"
		}
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d rejected records (code %s)", a.Count, code),
			Actual:   fmt.Sprintf("%d rejected records", got),
		}
	}
	return nil
}

// assertStore evaluates the assertions that query the canonical store.
func assertStore(ctx context.Context, st *store.Store, a Assertion) error {
	kind, _ := library.ParseKind(a.Kind)

	var (
		got  int
		what string
	)
	switch a.Type {
	case AssertCanonicalCount:
		counts, err := st.Counts(ctx)
		if err != nil {
			return fmt.Errorf("canonical_count: %w", err)
		}
		got = counts.Of(kind)
		what = fmt.Sprintf("canonical %ss", kind)

	case AssertUnresolved:
		var (
			ents []library.Entity
			err  error
		)
		switch kind {
		case library.KindArtist:
			ents, err = st.FetchUnresolvedArtists(ctx, a.Source)
		case library.KindPlaylist:
			ents, err = st.FetchUnresolvedPlaylists(ctx, a.Source)
		default:
			ents, err = st.FetchUnresolvedSongs(ctx, a.Source)
		}
		if err != nil {
			return fmt.Errorf("unresolved: %w", err)
		}
		got = len(ents)
		what = fmt.Sprintf("%ss unresolved for %s", kind, a.Source)

	case AssertDuplicates:
		dups, err := st.FindDuplicateNames(ctx, kind)
		if err != nil {
			return fmt.Errorf("duplicates: %w", err)
		}
		got = len(dups)
		what = fmt.Sprintf("duplicated %s names", kind)
	}

	if got != a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d %s", a.Count, what),
			Actual:   fmt.Sprintf("%d", got),
		}
	}
	return nil
}

func entityAt(result *Result, a Assertion) (library.Entity, []library.Entity, error) {
	ents, ok := result.Collections[a.Collection]
	if !ok {
		return library.Entity{}, nil, missingCollection(a)
	}
	if a.Index >= len(ents) {
		return library.Entity{}, nil, &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s has index %d", a.Collection, a.Index),
			Actual:   fmt.Sprintf("%d entities", len(ents)),
			Entities: ents,
		}
	}
	return ents[a.Index], ents, nil
}

func missingCollection(a Assertion) error {
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("collection %s exists", a.Collection),
		Actual:   "no such collection",
	}
}
