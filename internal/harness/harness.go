package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/crossfade/internal/engine"
	"github.com/roach88/crossfade/internal/library"
	"github.com/roach88/crossfade/internal/source"
	"github.com/roach88/crossfade/internal/store"
	"github.com/roach88/crossfade/internal/testutil"
)

// Harness is the scenario execution engine.
// It runs scenarios with a deterministic clock and run tokens.
type Harness struct {
	store       *store.Store
	clock       *testutil.DeterministicClock
	engineClock *engine.Clock
	runs        *testutil.FixedRunGenerator
	logger      *slog.Logger
	collections map[string]*library.Collection
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Step errors do not abort the run: a step that fails without declaring
// expect_error, or succeeds despite declaring one, fails the result.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Execute steps in order
// 3. Capture final collections and canonical counts
// 4. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	clock := testutil.NewDeterministicClock()
	if !scenario.Today.IsZero() {
		clock = testutil.NewDeterministicClockAt(scenario.Today)
	}

	h := &Harness{
		store:       st,
		clock:       clock,
		engineClock: engine.NewFixedClock(clock.Today()),
		runs:        testutil.NewFixedRunGenerator(scenario.RunToken),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
		collections: make(map[string]*library.Collection),
	}

	ctx := context.Background()
	result := NewResult()

	for i, step := range scenario.Steps {
		h.executeStep(ctx, i, step, result)
	}

	for name, coll := range h.collections {
		result.Collections[name] = coll.Entities()
	}
	counts, err := st.Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count canonical rows: %w", err)
	}
	result.Counts = counts

	actx := &AssertionContext{
		Store:       st,
		Ctx:         ctx,
		Collections: h.collections,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// executeStep runs one step, records its event, and checks its error
// against expect_error.
func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) {
	ev := StepEvent{
		Seq:    h.clock.Next(),
		Op:     step.Op,
		Target: step.Collection,
	}

	err := h.apply(ctx, step, &ev)
	switch {
	case err != nil:
		ev.Error = engine.ErrorCode(err)
		if step.ExpectError == "" {
			result.AddError(fmt.Sprintf("steps[%d] (%s): unexpected error: %v", i, step.Op, err))
		} else if ev.Error != step.ExpectError {
			result.AddError(fmt.Sprintf("steps[%d] (%s): expected error %s, got %s: %v",
				i, step.Op, step.ExpectError, ev.Error, err))
		}
	case step.ExpectError != "":
		result.AddError(fmt.Sprintf("steps[%d] (%s): expected error %s, step succeeded",
			i, step.Op, step.ExpectError))
	}
	result.AddStep(ev)

	h.logger.Info("step completed",
		"step", i,
		"op", step.Op,
		"target", ev.Target,
		"error", ev.Error,
	)
}

func (h *Harness) apply(ctx context.Context, step Step, ev *StepEvent) error {
	switch step.Op {
	case OpInsert:
		ents, err := h.entities(step)
		if err != nil {
			return err
		}
		coll := h.collection(step.Collection, recordKind(step))
		for _, e := range ents {
			if err := coll.Insert(e); err != nil {
				return err
			}
		}
		ev.Size = coll.Len()

	case OpRemove:
		coll, err := h.existing(step.Collection)
		if err != nil {
			return err
		}
		ents, err := h.entities(step)
		if err != nil {
			return err
		}
		for _, e := range ents {
			if err := coll.Remove(e); err != nil {
				return err
			}
		}
		ev.Size = coll.Len()

	case OpMerge:
		ents, err := h.entities(step)
		if err != nil {
			return err
		}
		merged, err := library.Merge(ents[0], ents[1])
		if err != nil {
			return err
		}
		if step.Into != "" {
			coll := library.NewCollection(merged.Kind())
			if err := coll.Insert(merged); err != nil {
				return err
			}
			h.collections[step.Into] = coll
			ev.Target = step.Into
			ev.Size = coll.Len()
		}

	case OpIntersect:
		a, err := h.existing(step.Collection)
		if err != nil {
			return err
		}
		b, err := h.existing(step.With)
		if err != nil {
			return err
		}
		c, err := library.Intersect(a, b)
		if err != nil {
			return err
		}
		h.collections[step.Into] = c
		ev.Target = step.Into
		ev.Size = c.Len()

	case OpAbsorb:
		a, err := h.existing(step.Collection)
		if err != nil {
			return err
		}
		b, err := h.existing(step.From)
		if err != nil {
			return err
		}
		if err := a.AbsorbShared(b); err != nil {
			return err
		}
		ev.Size = a.Len()

	case OpIngest:
		return h.ingest(ctx, step, ev)

	case OpResolve:
		return h.resolve(ctx, step, ev)

	case OpPull:
		return h.pull(ctx, step, ev)

	case OpIdentify:
		return h.identify(ctx, step, ev)

	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
	return nil
}

// ingest writes a named collection, or the step's records grouped with
// union-find, through the store's batch path.
func (h *Harness) ingest(ctx context.Context, step Step, ev *StepEvent) error {
	if step.Collection != "" {
		coll, err := h.existing(step.Collection)
		if err != nil {
			return err
		}
		return h.ingestBatch(ctx, coll.Kind(), coll.Entities(), ev)
	}

	today := h.clock.Today()
	if len(step.Songs) > 0 || len(step.Linked) > 0 {
		ents, err := songEntities(step.Songs, today)
		if err != nil {
			return err
		}
		linked, err := linkedEntities(step.Linked, today)
		if err != nil {
			return err
		}
		grouped, err := library.Group(library.KindSong, append(ents, linked...))
		if err != nil {
			return err
		}
		if err := h.ingestBatch(ctx, library.KindSong, grouped, ev); err != nil {
			return err
		}
	}
	if len(step.Playlists) > 0 {
		ents, err := playlistEntities(step.Playlists, today)
		if err != nil {
			return err
		}
		grouped, err := library.Group(library.KindPlaylist, ents)
		if err != nil {
			return err
		}
		if err := h.ingestBatch(ctx, library.KindPlaylist, grouped, ev); err != nil {
			return err
		}
	}
	return nil
}

func (h *Harness) ingestBatch(ctx context.Context, kind library.Kind, ents []library.Entity, ev *StepEvent) error {
	var (
		res *store.BatchResult
		err error
	)
	if kind == library.KindPlaylist {
		res, err = h.store.IngestPlaylists(ctx, ents)
	} else {
		res, err = h.store.IngestSongs(ctx, ents)
	}
	if err != nil {
		return err
	}
	ev.IDs = append(ev.IDs, canonicalIDs(res.Stored)...)
	ev.Created += res.Created
	for _, f := range res.Failures {
		ev.Failures = append(ev.Failures, engine.ErrorCode(f.Err))
	}
	return nil
}

// resolve runs each record's reference through the single-reference
// resolution path.
func (h *Harness) resolve(ctx context.Context, step Step, ev *StepEvent) error {
	today := h.clock.Today()
	for _, rec := range step.Songs {
		if err := rec.Validate(); err != nil {
			return err
		}
		id, err := h.store.ResolveSong(ctx, rec.Reference(today))
		if err != nil {
			return err
		}
		ev.IDs = append(ev.IDs, id)
	}
	for _, rec := range step.Playlists {
		if err := rec.Validate(); err != nil {
			return err
		}
		id, err := h.store.ResolvePlaylist(ctx, rec.Reference(today))
		if err != nil {
			return err
		}
		ev.IDs = append(ev.IDs, id)
	}
	return nil
}

func (h *Harness) pull(ctx context.Context, step Step, ev *StepEvent) error {
	eng, err := h.engine(source.NewStatic(step.Source, step.Songs, step.Playlists))
	if err != nil {
		return err
	}
	ev.Target = step.Source

	if len(step.Songs) > 0 || len(step.Playlists) == 0 {
		rep, err := eng.PullSongs(ctx)
		if err != nil {
			return err
		}
		recordReport(rep, ev)
	}
	if len(step.Playlists) > 0 {
		rep, err := eng.PullPlaylists(ctx)
		if err != nil {
			return err
		}
		recordReport(rep, ev)
	}
	return nil
}

func (h *Harness) identify(ctx context.Context, step Step, ev *StepEvent) error {
	eng, err := h.engine(source.NewStatic(step.Source, step.Songs, step.Playlists))
	if err != nil {
		return err
	}
	ev.Target = step.Source

	if len(step.Songs) > 0 {
		rep, err := eng.IdentifySongs(ctx, step.Source)
		if err != nil {
			return err
		}
		recordReport(rep, ev)
	}
	if len(step.Playlists) > 0 {
		rep, err := eng.IdentifyPlaylists(ctx, step.Source)
		if err != nil {
			return err
		}
		recordReport(rep, ev)
	}
	return nil
}

// engine builds a single-source engine over the scenario store. Runs share
// the harness clock, so run sequence numbers continue across steps.
func (h *Harness) engine(src source.Source) (*engine.Engine, error) {
	reg := source.NewRegistry(nil, nil)
	if _, err := reg.Register(src); err != nil {
		return nil, err
	}
	return engine.New(h.store, reg, h.runs,
		engine.WithClock(h.engineClock),
		engine.WithLogger(h.logger),
	), nil
}

func recordReport(rep *engine.Report, ev *StepEvent) {
	ev.IDs = append(ev.IDs, canonicalIDs(rep.Stored)...)
	ev.Created += rep.Created
	for _, f := range rep.Failures {
		ev.Failures = append(ev.Failures, engine.ErrorCode(f.Err))
	}
}

// collection returns the named collection, creating it with kind if absent.
func (h *Harness) collection(name string, kind library.Kind) *library.Collection {
	if c, ok := h.collections[name]; ok {
		return c
	}
	c := library.NewCollection(kind)
	h.collections[name] = c
	return c
}

func (h *Harness) existing(name string) (*library.Collection, error) {
	c, ok := h.collections[name]
	if !ok {
		return nil, library.NewNotFoundError(fmt.Sprintf("collection %q does not exist", name))
	}
	return c, nil
}

// entities converts the step's songs, then its linked songs, then its
// playlists.
func (h *Harness) entities(step Step) ([]library.Entity, error) {
	today := h.clock.Today()
	songs, err := songEntities(step.Songs, today)
	if err != nil {
		return nil, err
	}
	linked, err := linkedEntities(step.Linked, today)
	if err != nil {
		return nil, err
	}
	playlists, err := playlistEntities(step.Playlists, today)
	if err != nil {
		return nil, err
	}
	out := append(songs, linked...)
	return append(out, playlists...), nil
}

func recordKind(step Step) library.Kind {
	if len(step.Songs) > 0 || len(step.Linked) > 0 {
		return library.KindSong
	}
	return library.KindPlaylist
}

func songEntities(recs []library.SongRecord, today time.Time) ([]library.Entity, error) {
	out := make([]library.Entity, 0, len(recs))
	for i, rec := range recs {
		e, err := rec.Entity(today)
		if err != nil {
			return nil, fmt.Errorf("song %d: %w", i, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func linkedEntities(groups [][]library.SongRecord, today time.Time) ([]library.Entity, error) {
	out := make([]library.Entity, 0, len(groups))
	for i, recs := range groups {
		refs := make([]library.Reference, 0, len(recs))
		for j, rec := range recs {
			if err := rec.Validate(); err != nil {
				return nil, fmt.Errorf("linked %d ref %d: %w", i, j, err)
			}
			refs = append(refs, rec.Reference(today))
		}
		e, err := library.NewSong(refs...)
		if err != nil {
			return nil, fmt.Errorf("linked %d: %w", i, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func playlistEntities(recs []library.PlaylistRecord, today time.Time) ([]library.Entity, error) {
	out := make([]library.Entity, 0, len(recs))
	for i, rec := range recs {
		e, err := rec.Entity(today)
		if err != nil {
			return nil, fmt.Errorf("playlist %d: %w", i, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func canonicalIDs(ents []library.Entity) []int64 {
	ids := make([]int64, 0, len(ents))
	for _, e := range ents {
		if id, ok := e.CanonicalID(); ok {
			ids = append(ids, id)
		}
	}
	return ids
}
