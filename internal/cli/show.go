package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/crossfade/internal/library"
	"github.com/roach88/crossfade/internal/store"
)

// ShowOptions holds flags for the show subcommands.
type ShowOptions struct {
	*RootOptions
	Kind string // duplicates only
}

// NewShowCommand creates the show command: canonical entities, homonym
// reports and library totals.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Inspect the canonical library",
		Long: `Inspect the canonical library.

Examples:
  crossfade show song 42
  crossfade show playlist 7 --format json
  crossfade show duplicates --kind artists
  crossfade show counts`,
		Args: cobra.NoArgs,
	}

	for _, kind := range []library.Kind{library.KindSong, library.KindPlaylist, library.KindArtist} {
		cmd.AddCommand(newShowEntityCommand(opts, kind))
	}

	duplicates := &cobra.Command{
		Use:           "duplicates",
		Short:         "List names shared by several canonical items",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShowDuplicates(opts, cmd)
		},
	}
	duplicates.Flags().StringVar(&opts.Kind, "kind", "songs", "what to check (artists|songs|playlists)")
	cmd.AddCommand(duplicates)

	cmd.AddCommand(&cobra.Command{
		Use:           "counts",
		Short:         "Show canonical totals and known sources",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShowCounts(opts, cmd)
		},
	})

	return cmd
}

func newShowEntityCommand(opts *ShowOptions, kind library.Kind) *cobra.Command {
	return &cobra.Command{
		Use:           fmt.Sprintf("%s <id>", kind),
		Short:         fmt.Sprintf("Show one canonical %s and its references", kind),
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid %s id %q", kind, args[0]))
			}
			return runShowEntity(opts, kind, id, cmd)
		},
	}
}

func runShowEntity(opts *ShowOptions, kind library.Kind, id int64, cmd *cobra.Command) error {
	sess, err := openSession(opts.RootOptions, cmd, false)
	if err != nil {
		return err
	}
	defer sess.Close()

	ent, err := readEntity(commandContext(cmd), sess.store, kind, id)
	if err != nil {
		if library.IsNotFound(err) {
			return WrapExitError(ExitFailure, fmt.Sprintf("%s %d not found", kind, id), err)
		}
		return WrapExitError(ExitFailure, fmt.Sprintf("failed to read %s %d", kind, id), err)
	}

	v := viewEntity(ent)
	if sess.out.JSON() {
		return sess.out.Success(v)
	}

	w := sess.out.Writer
	fmt.Fprintf(w, "%s #%d: %s", v.Kind, v.ID, v.Title)
	if v.Artist != "" {
		fmt.Fprintf(w, " by %s", v.Artist)
	}
	fmt.Fprintf(w, " (primary %s)\n", v.Primary)

	rows := make([][]string, 0, len(v.Refs))
	for _, r := range v.Refs {
		rows = append(rows, []string{r.Source, r.ItemID, r.Title, r.Artist})
	}
	sess.out.Table([]string{"Source", "Item", "Title", "Artist"}, rows)

	if len(v.Tracks) > 0 {
		fmt.Fprintf(w, "%d tracks:\n", len(v.Tracks))
		rows = rows[:0]
		for i, t := range v.Tracks {
			rows = append(rows, []string{strconv.Itoa(i + 1), strconv.FormatInt(t.ID, 10), t.Title, t.Artist})
		}
		sess.out.Table([]string{"#", "ID", "Title", "Artist"}, rows, 0, 1)
	}
	return nil
}

func readEntity(ctx context.Context, st *store.Store, kind library.Kind, id int64) (library.Entity, error) {
	switch kind {
	case library.KindArtist:
		return st.ReadArtist(ctx, id)
	case library.KindPlaylist:
		return st.ReadPlaylist(ctx, id)
	default:
		return st.ReadSong(ctx, id)
	}
}

func runShowDuplicates(opts *ShowOptions, cmd *cobra.Command) error {
	kind, ok := library.ParseKind(opts.Kind)
	if !ok {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid kind %q", opts.Kind))
	}

	sess, err := openSession(opts.RootOptions, cmd, false)
	if err != nil {
		return err
	}
	defer sess.Close()

	dups, err := sess.store.FindDuplicateNames(commandContext(cmd), kind)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to find duplicates", err)
	}

	if sess.out.JSON() {
		if dups == nil {
			dups = []store.DuplicateName{}
		}
		return sess.out.Success(dups)
	}
	if len(dups) == 0 {
		fmt.Fprintf(sess.out.Writer, "No duplicate %s names.\n", kind)
		return nil
	}

	rows := make([][]string, 0, len(dups))
	for _, d := range dups {
		ids := make([]string, len(d.IDs))
		for i, id := range d.IDs {
			ids[i] = strconv.FormatInt(id, 10)
		}
		rows = append(rows, []string{d.Name, d.Artist, strings.Join(ids, ",")})
	}
	sess.out.Table([]string{"Name", "Artist", "IDs"}, rows)
	return nil
}

// countsView is the JSON shape of show counts.
type countsView struct {
	store.Counts
	Sources []string `json:"sources"`
}

func runShowCounts(opts *ShowOptions, cmd *cobra.Command) error {
	sess, err := openSession(opts.RootOptions, cmd, false)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx := commandContext(cmd)
	counts, err := sess.store.Counts(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to count library", err)
	}
	sources, err := sess.store.Sources(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to list sources", err)
	}
	if sources == nil {
		sources = []string{}
	}

	if sess.out.JSON() {
		return sess.out.Success(countsView{Counts: counts, Sources: sources})
	}

	rows := make([][]string, 0, 3)
	for _, kind := range []library.Kind{library.KindArtist, library.KindSong, library.KindPlaylist} {
		rows = append(rows, []string{kind.String() + "s", strconv.Itoa(counts.Of(kind))})
	}
	sess.out.Table([]string{"Kind", "Count"}, rows, 1)
	fmt.Fprintf(sess.out.Writer, "sources: %s\n", strings.Join(sources, ", "))
	return nil
}
