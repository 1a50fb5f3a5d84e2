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

// UnresolvedOptions holds flags for the unresolved command.
type UnresolvedOptions struct {
	*RootOptions
	Kind string
}

// NewUnresolvedCommand creates the unresolved command.
func NewUnresolvedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UnresolvedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "unresolved <source>",
		Short: "List canonical items a source has no reference for",
		Long: `List canonical artists, songs or playlists that are known to the library
through other sources but have no reference from the named source.

Examples:
  crossfade unresolved spotify
  crossfade unresolved local --kind artists --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUnresolved(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", "songs", "what to list (artists|songs|playlists)")

	return cmd
}

func runUnresolved(opts *UnresolvedOptions, sourceID string, cmd *cobra.Command) error {
	kind, ok := library.ParseKind(opts.Kind)
	if !ok {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid kind %q", opts.Kind))
	}

	sess, err := openSession(opts.RootOptions, cmd, false)
	if err != nil {
		return err
	}
	defer sess.Close()

	ents, err := fetchUnresolved(commandContext(cmd), sess.store, kind, sourceID)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to list unresolved items", err)
	}

	if sess.out.JSON() {
		return sess.out.Success(viewEntities(ents))
	}
	if len(ents) == 0 {
		fmt.Fprintf(sess.out.Writer, "Every %s is resolved for %s.\n", kind, sourceID)
		return nil
	}
	writeEntityTable(sess.out, ents)
	return nil
}

func fetchUnresolved(ctx context.Context, st *store.Store, kind library.Kind, sourceID string) ([]library.Entity, error) {
	switch kind {
	case library.KindArtist:
		return st.FetchUnresolvedArtists(ctx, sourceID)
	case library.KindPlaylist:
		return st.FetchUnresolvedPlaylists(ctx, sourceID)
	default:
		return st.FetchUnresolvedSongs(ctx, sourceID)
	}
}

// writeEntityTable lists entities one per row, ordered as given.
func writeEntityTable(out *OutputFormatter, ents []library.Entity) {
	rows := make([][]string, 0, len(ents))
	for _, e := range ents {
		v := viewEntity(e)
		rows = append(rows, []string{
			strconv.FormatInt(v.ID, 10),
			v.Title,
			v.Artist,
			v.Primary,
			strings.Join(v.Sources, ","),
		})
	}
	out.Table([]string{"ID", "Title", "Artist", "Primary", "Sources"}, rows, 0)
}
