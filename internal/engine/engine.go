package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/roach88/crossfade/internal/library"
	"github.com/roach88/crossfade/internal/source"
	"github.com/roach88/crossfade/internal/store"
)

// Engine is the single-writer reconciliation engine.
//
// Thread-safety model:
//   - Pull and Identify runs: safe from any goroutine, serialized by mu
//   - NewRun(): safe from any goroutine (delegates to thread-safe generator)
//
// INVARIANTS:
//   - At most one run writes to the store at a time
//   - Sources are consulted in registration order
//   - Each run commits at most one batch per kind
type Engine struct {
	mu      sync.Mutex
	store   *store.Store
	sources *source.Registry
	runs    RunTokenGenerator
	clock   *Clock
	logger  *slog.Logger
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithClock sets the clock used for default recency and run numbering.
func WithClock(c *Clock) EngineOption {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an Engine over a store and a source registry.
func New(s *store.Store, sources *source.Registry, runs RunTokenGenerator, opts ...EngineOption) *Engine {
	e := &Engine{
		store:   s,
		sources: sources,
		runs:    runs,
		clock:   NewClock(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewRun generates a new run token.
func (e *Engine) NewRun() string {
	return e.runs.Generate()
}

// Store returns the underlying canonical store.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Sources returns the source registry.
func (e *Engine) Sources() *source.Registry {
	return e.sources
}

// Failure is one record that a run could not persist.
type Failure struct {
	// Stage is "pull", "identify" or "store".
	Stage  string
	Source string
	// Index is the record's position in its source's pull, or in the
	// ingested batch for the store stage.
	Index int
	Err   error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s %s[%d]: %v", f.Stage, f.Source, f.Index, f.Err)
}

// Report summarizes one run.
type Report struct {
	RunToken string
	Seq      int64
	Kind     library.Kind

	// Source is set for identify runs.
	Source string

	// Pulled counts records accepted from sources.
	Pulled int

	// Reconciled counts entities left after the in-memory merge.
	Reconciled int

	// Identified and Unmatched count identify outcomes.
	Identified int
	Unmatched  int

	// Stored and Created come from the store batch.
	Stored  []library.Entity
	Created int

	Failures []Failure
}

// Err joins every failure, or returns nil.
func (r *Report) Err() error {
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, f)
	}
	return errors.Join(errs...)
}

func (e *Engine) newReport(kind library.Kind, sourceID string) *Report {
	return &Report{
		RunToken: e.NewRun(),
		Seq:      e.clock.Next(),
		Kind:     kind,
		Source:   sourceID,
	}
}

func (r *Report) fail(stage, sourceID string, index int, err error) {
	r.Failures = append(r.Failures, Failure{Stage: stage, Source: sourceID, Index: index, Err: err})
}

// PullSongs pulls song records from every registered source, reconciles
// them in memory, and ingests the result as one batch.
func (e *Engine) PullSongs(ctx context.Context) (*Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rep := e.newReport(library.KindSong, "")
	coll := library.NewCollection(library.KindSong)
	today := e.clock.Today()

	for _, src := range e.sources.Sources() {
		recs, err := src.PullSongs(ctx)
		if err != nil {
			return nil, e.sourceFailed(rep, src.ID(), "pull songs", err)
		}
		accepted := 0
		for i, rec := range recs {
			if err := stampRecord(&rec.Source, src.ID()); err != nil {
				rep.fail("pull", src.ID(), i, err)
				continue
			}
			ent, err := rec.Entity(today)
			if err != nil {
				rep.fail("pull", src.ID(), i, err)
				continue
			}
			if err := e.reconcile(rep, coll, src.ID(), ent); err != nil {
				return nil, err
			}
			accepted++
		}
		rep.Pulled += accepted
		e.logger.Debug("pulled songs", "run_token", rep.RunToken, "source", src.ID(), "records", accepted)
	}

	return e.finish(ctx, rep, coll.Entities(), "pull complete")
}

// PullPlaylists is PullSongs for playlists. Each playlist's songs are
// reconciled inside the playlist's own track collection.
func (e *Engine) PullPlaylists(ctx context.Context) (*Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rep := e.newReport(library.KindPlaylist, "")
	coll := library.NewCollection(library.KindPlaylist)
	today := e.clock.Today()

	for _, src := range e.sources.Sources() {
		recs, err := src.PullPlaylists(ctx)
		if err != nil {
			return nil, e.sourceFailed(rep, src.ID(), "pull playlists", err)
		}
		accepted := 0
		for i, rec := range recs {
			if err := stampRecord(&rec.Source, src.ID()); err != nil {
				rep.fail("pull", src.ID(), i, err)
				continue
			}
			rec.Songs = slices.Clone(rec.Songs)
			if err := stampSongs(rec.Songs, src.ID()); err != nil {
				rep.fail("pull", src.ID(), i, err)
				continue
			}
			ent, err := rec.Entity(today)
			if err != nil {
				rep.fail("pull", src.ID(), i, err)
				continue
			}
			if err := e.reconcile(rep, coll, src.ID(), ent); err != nil {
				return nil, err
			}
			accepted++
		}
		rep.Pulled += accepted
		e.logger.Debug("pulled playlists", "run_token", rep.RunToken, "source", src.ID(), "records", accepted)
	}

	return e.finish(ctx, rep, coll.Entities(), "pull complete")
}

// IdentifySongs offers every canonical song the source has no reference to
// back to the source, and attaches whatever it identifies.
func (e *Engine) IdentifySongs(ctx context.Context, sourceID string) (*Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rep := e.newReport(library.KindSong, sourceID)
	src, err := e.source(rep, sourceID)
	if err != nil {
		return nil, err
	}
	unresolved, err := e.store.FetchUnresolvedSongs(ctx, sourceID)
	if err != nil {
		return nil, e.storeFailed(rep, "fetch unresolved songs", err)
	}

	today := e.clock.Today()
	batch := make([]library.Entity, 0, len(unresolved))
	for i, ent := range unresolved {
		rec, ok, err := src.IdentifySong(ctx, ent)
		if err != nil {
			return nil, e.sourceFailed(rep, sourceID, "identify song", err)
		}
		if !ok {
			rep.Unmatched++
			continue
		}
		rec.Source = sourceID
		if err := rec.Validate(); err != nil {
			rep.fail("identify", sourceID, i, err)
			continue
		}
		batch = append(batch, ent.WithReference(rec.Reference(today)))
		rep.Identified++
	}

	return e.finish(ctx, rep, batch, "identify complete")
}

// IdentifyPlaylists is IdentifySongs for playlists. Only playlist headers
// are attached; tracks come from pulls.
func (e *Engine) IdentifyPlaylists(ctx context.Context, sourceID string) (*Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rep := e.newReport(library.KindPlaylist, sourceID)
	src, err := e.source(rep, sourceID)
	if err != nil {
		return nil, err
	}
	unresolved, err := e.store.FetchUnresolvedPlaylists(ctx, sourceID)
	if err != nil {
		return nil, e.storeFailed(rep, "fetch unresolved playlists", err)
	}

	today := e.clock.Today()
	batch := make([]library.Entity, 0, len(unresolved))
	for i, ent := range unresolved {
		rec, ok, err := src.IdentifyPlaylist(ctx, ent)
		if err != nil {
			return nil, e.sourceFailed(rep, sourceID, "identify playlist", err)
		}
		if !ok {
			rep.Unmatched++
			continue
		}
		rec.Source = sourceID
		rec.Songs = nil
		if err := rec.Validate(); err != nil {
			rep.fail("identify", sourceID, i, err)
			continue
		}
		batch = append(batch, ent.WithReference(rec.Reference(today)))
		rep.Identified++
	}

	return e.finish(ctx, rep, batch, "identify complete")
}

func (e *Engine) finish(ctx context.Context, rep *Report, batch []library.Entity, msg string) (*Report, error) {
	rep.Reconciled = len(batch)

	var (
		result *store.BatchResult
		err    error
	)
	if rep.Kind == library.KindPlaylist {
		result, err = e.store.IngestPlaylists(ctx, batch)
	} else {
		result, err = e.store.IngestSongs(ctx, batch)
	}
	if err != nil {
		return nil, e.storeFailed(rep, "ingest "+rep.Kind.String()+"s", err)
	}

	rep.Stored = result.Stored
	rep.Created = result.Created
	for _, f := range result.Failures {
		rep.fail("store", f.Entity.PrimarySource(), f.Index, f.Err)
	}

	e.logger.Info(msg,
		"run_token", rep.RunToken,
		"kind", rep.Kind.String(),
		"source", rep.Source,
		"records", len(rep.Stored),
		"created", rep.Created,
		"failed", len(rep.Failures),
	)
	return rep, nil
}

func (e *Engine) source(rep *Report, id string) (source.Source, error) {
	src, ok := e.sources.Get(id)
	if !ok {
		return nil, &RunError{
			Code:     ErrCodeUnknownSource,
			Message:  fmt.Sprintf("source %q is not registered", id),
			RunToken: rep.RunToken,
			Source:   id,
		}
	}
	return src, nil
}

func (e *Engine) sourceFailed(rep *Report, id, op string, err error) error {
	e.logger.Error("source failed", "run_token", rep.RunToken, "source", id, "error", err)
	return &RunError{
		Code:     ErrCodeSourceFailed,
		Message:  op + " failed",
		RunToken: rep.RunToken,
		Source:   id,
		Err:      err,
	}
}

// reconcile folds ent into the run's collection. Record validation happens
// before this point, so a matcher or merge error here aborts the batch.
func (e *Engine) reconcile(rep *Report, coll *library.Collection, sourceID string, ent library.Entity) error {
	if err := coll.Insert(ent); err != nil {
		e.logger.Error("reconcile failed", "run_token", rep.RunToken, "source", sourceID, "error", err)
		return &RunError{
			Code:     ErrCodeReconcileFailed,
			Message:  "reconcile " + rep.Kind.String() + " failed",
			RunToken: rep.RunToken,
			Source:   sourceID,
			Err:      err,
		}
	}
	return nil
}

func (e *Engine) storeFailed(rep *Report, op string, err error) error {
	e.logger.Error("batch aborted", "run_token", rep.RunToken, "kind", rep.Kind.String(), "error", err)
	return &RunError{
		Code:     ErrCodeStoreFailed,
		Message:  op + " failed",
		RunToken: rep.RunToken,
		Source:   rep.Source,
		Err:      err,
	}
}

// stampRecord fills an empty record source with the pulling source's id.
// A record claiming another source is invalid.
func stampRecord(recSource *string, id string) error {
	switch *recSource {
	case "":
		*recSource = id
		return nil
	case id:
		return nil
	default:
		return library.NewInvalidRecordError(
			fmt.Sprintf("record claims source %q", *recSource), id)
	}
}

func stampSongs(songs []library.SongRecord, id string) error {
	for i := range songs {
		if err := stampRecord(&songs[i].Source, id); err != nil {
			return fmt.Errorf("song %d: %w", i, err)
		}
	}
	return nil
}
