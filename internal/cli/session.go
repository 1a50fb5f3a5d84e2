package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/crossfade/internal/config"
	"github.com/roach88/crossfade/internal/engine"
	"github.com/roach88/crossfade/internal/library"
	"github.com/roach88/crossfade/internal/source"
	"github.com/roach88/crossfade/internal/store"
)

// session bundles what a command needs after configuration is loaded.
type session struct {
	cfg    *config.Config
	store  *store.Store
	logger *slog.Logger
	out    *OutputFormatter
}

// openSession loads config, configures logging and opens the store.
// Writers take the cross-process lock; readers open the file directly.
func openSession(opts *RootOptions, cmd *cobra.Command, write bool) (*session, error) {
	cfg, path, exists, err := config.Load(opts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	logger := newLogger(cfg.Logging, opts.Verbose, cmd.ErrOrStderr())
	logger.Debug("config loaded", "path", path, "exists", exists)

	if cfg.Library.Database != ":memory:" {
		if err := cfg.EnsureDirectories(); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to prepare library directory", err)
		}
	}

	open := store.Open
	if write {
		open = store.OpenLocked
	}
	st, err := open(cfg.Library.Database)
	if err != nil {
		if errors.Is(err, store.ErrLocked) {
			return nil, WrapExitError(ExitCommandError, "library is busy", err)
		}
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	logger.Debug("database ready", "path", cfg.Library.Database, "locked", write)

	return &session{
		cfg:    cfg,
		store:  st,
		logger: logger,
		out: &OutputFormatter{
			Format:    opts.Format,
			Writer:    cmd.OutOrStdout(),
			ErrWriter: cmd.ErrOrStderr(),
			Verbose:   opts.Verbose,
		},
	}, nil
}

func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing database", "error", err)
	}
}

// registry builds the source registry from the configured export
// directories, applying the whitelist and blacklist.
func (s *session) registry() (*source.Registry, error) {
	reg := source.NewRegistry(s.cfg.Sources.Whitelist, s.cfg.Sources.Blacklist)
	for _, exp := range s.cfg.Sources.Export {
		ok, err := reg.Register(source.NewExport(exp.ID, exp.Dir))
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to register sources", err)
		}
		if !ok {
			s.logger.Debug("source filtered out", "source", exp.ID)
		}
	}
	return reg, nil
}

func (s *session) engine() (*engine.Engine, error) {
	reg, err := s.registry()
	if err != nil {
		return nil, err
	}
	return engine.New(s.store, reg, engine.UUIDv7Generator{}, engine.WithLogger(s.logger)), nil
}

// newLogger builds the command logger from the logging section. Verbose
// forces debug level.
func newLogger(cfg config.Logging, verbose bool, w io.Writer) *slog.Logger {
	level := parseLevel(cfg.Level)
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// commandContext returns the command's context, or Background when run
// outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// parseKinds maps a --kind value to the kinds it selects.
func parseKinds(value string, allowArtist bool) ([]library.Kind, error) {
	if value == "all" {
		return []library.Kind{library.KindSong, library.KindPlaylist}, nil
	}
	kind, ok := library.ParseKind(value)
	if !ok || (kind == library.KindArtist && !allowArtist) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid kind %q", value))
	}
	return []library.Kind{kind}, nil
}

// entityView is the JSON and table shape of a canonical entity.
type entityView struct {
	ID      int64        `json:"id,omitempty"`
	Kind    string       `json:"kind"`
	Primary string       `json:"primary"`
	Title   string       `json:"title"`
	Artist  string       `json:"artist,omitempty"`
	Recency time.Time    `json:"recency"`
	Sources []string     `json:"sources"`
	Refs    []refView    `json:"refs"`
	Tracks  []entityView `json:"tracks,omitempty"`
}

type refView struct {
	Source string `json:"source"`
	ItemID string `json:"item_id"`
	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`
}

func viewEntity(e library.Entity) entityView {
	id, _ := e.CanonicalID()
	primary, _ := e.PrimaryReference()
	v := entityView{
		ID:      id,
		Kind:    e.Kind().String(),
		Primary: e.PrimarySource(),
		Title:   primary.Title,
		Artist:  primary.ArtistName,
		Recency: primary.Recency,
		Sources: e.Sources(),
	}
	for _, src := range v.Sources {
		ref, _ := e.Ref(src)
		v.Refs = append(v.Refs, refView{
			Source: ref.Source,
			ItemID: ref.ItemID,
			Title:  ref.Title,
			Artist: ref.ArtistName,
		})
	}
	if tracks := e.Tracks(); tracks != nil {
		v.Tracks = viewEntities(tracks.Entities())
	}
	return v
}

func viewEntities(ents []library.Entity) []entityView {
	out := make([]entityView, 0, len(ents))
	for _, e := range ents {
		out = append(out, viewEntity(e))
	}
	return out
}
