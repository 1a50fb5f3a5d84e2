package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/crossfade/internal/engine"
	"github.com/roach88/crossfade/internal/library"
)

// IdentifyOptions holds flags for the identify command.
type IdentifyOptions struct {
	*RootOptions
	Kind string
}

// NewIdentifyCommand creates the identify command.
func NewIdentifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IdentifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "identify <source>",
		Short: "Ask a source to recognize songs it has no reference for",
		Long: `For every canonical song or playlist that the named source does not
reference yet, ask the source whether it knows the item. Recognized items
gain that source's reference; the rest stay unresolved.

Examples:
  crossfade identify spotify
  crossfade identify local --kind playlists`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIdentify(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", "songs", "what to identify (songs|playlists|all)")

	return cmd
}

func runIdentify(opts *IdentifyOptions, sourceID string, cmd *cobra.Command) error {
	kinds, err := parseKinds(opts.Kind, false)
	if err != nil {
		return err
	}

	sess, err := openSession(opts.RootOptions, cmd, true)
	if err != nil {
		return err
	}
	defer sess.Close()

	eng, err := sess.engine()
	if err != nil {
		return err
	}
	if _, ok := eng.Sources().Get(sourceID); !ok {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown source %q (configured: %v)", sourceID, eng.Sources().IDs()))
	}

	ctx := commandContext(cmd)
	reports := make([]*engine.Report, 0, len(kinds))
	for _, kind := range kinds {
		rep, err := identifyKind(ctx, eng, kind, sourceID)
		if err != nil {
			return runFailed(sess.out, fmt.Sprintf("identify %ss failed", kind), err)
		}
		reports = append(reports, rep)
	}

	return writeReports(sess.out, reports)
}

func identifyKind(ctx context.Context, eng *engine.Engine, kind library.Kind, sourceID string) (*engine.Report, error) {
	if kind == library.KindPlaylist {
		return eng.IdentifyPlaylists(ctx, sourceID)
	}
	return eng.IdentifySongs(ctx, sourceID)
}
