package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/crossfade/internal/engine"
	"github.com/roach88/crossfade/internal/library"
)

// ResolveOptions holds flags shared by the resolve subcommands.
type ResolveOptions struct {
	*RootOptions
	Source string
	Added  string // YYYY-MM-DD; empty means today

	Song     library.SongRecord
	Playlist library.PlaylistRecord
}

// NewResolveCommand creates the resolve command and its song and playlist
// subcommands.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve one reference to its canonical id",
		Long: `Resolve a single song or playlist reference against the library and print
its canonical id. A reference the library has never seen gets a new
canonical row; a known one is attached to its existing row.

Examples:
  crossfade resolve song --source spotify --artist-id a1 --artist-name Björk --song-id s1 --title Jóga
  crossfade resolve playlist --source spotify --playlist-id p1 --name Favorites`,
		Args: cobra.NoArgs,
	}
	cmd.PersistentFlags().StringVar(&opts.Source, "source", "", "source id (required)")
	cmd.PersistentFlags().StringVar(&opts.Added, "added", "", "added date, YYYY-MM-DD (default today)")

	song := &cobra.Command{
		Use:           "song",
		Short:         "Resolve a song reference",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(opts, library.KindSong, cmd)
		},
	}
	song.Flags().StringVar(&opts.Song.ArtistID, "artist-id", "", "artist id within the source")
	song.Flags().StringVar(&opts.Song.ArtistName, "artist-name", "", "artist display name")
	song.Flags().StringVar(&opts.Song.SongID, "song-id", "", "song id within the source")
	song.Flags().StringVar(&opts.Song.Title, "title", "", "song title")

	playlist := &cobra.Command{
		Use:           "playlist",
		Short:         "Resolve a playlist reference",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(opts, library.KindPlaylist, cmd)
		},
	}
	playlist.Flags().StringVar(&opts.Playlist.PlaylistID, "playlist-id", "", "playlist id within the source")
	playlist.Flags().StringVar(&opts.Playlist.Name, "name", "", "playlist name")

	cmd.AddCommand(song, playlist)
	return cmd
}

// resolveView is the JSON shape of a resolve result.
type resolveView struct {
	Kind        string `json:"kind"`
	Source      string `json:"source"`
	ItemID      string `json:"item_id"`
	CanonicalID int64  `json:"canonical_id"`
}

func runResolve(opts *ResolveOptions, kind library.Kind, cmd *cobra.Command) error {
	if opts.Source == "" {
		return NewExitError(ExitCommandError, "--source is required")
	}
	today := engine.NewClock().Today()
	if opts.Added != "" {
		added, err := time.Parse(time.DateOnly, opts.Added)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --added date", err)
		}
		today = added
	}

	ref, err := opts.reference(kind, today)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid reference", err)
	}

	sess, err := openSession(opts.RootOptions, cmd, true)
	if err != nil {
		return err
	}
	defer sess.Close()

	id, err := resolveRef(commandContext(cmd), sess, kind, ref)
	if err != nil {
		if sess.out.JSON() {
			if werr := sess.out.Error(engine.ErrorCode(err), "resolve failed", err.Error()); werr != nil {
				return werr
			}
		}
		return WrapExitError(ExitFailure, "resolve failed", err)
	}
	sess.logger.Info("reference resolved", "kind", kind.String(), "source", ref.Source, "item_id", ref.ItemID, "canonical_id", id)

	if sess.out.JSON() {
		return sess.out.Success(resolveView{
			Kind:        kind.String(),
			Source:      ref.Source,
			ItemID:      ref.ItemID,
			CanonicalID: id,
		})
	}
	fmt.Fprintf(sess.out.Writer, "%s %s/%s -> #%d\n", kind, ref.Source, ref.ItemID, id)
	return nil
}

func (o *ResolveOptions) reference(kind library.Kind, today time.Time) (library.Reference, error) {
	if kind == library.KindPlaylist {
		rec := o.Playlist
		rec.Source = o.Source
		if err := rec.Validate(); err != nil {
			return library.Reference{}, err
		}
		return rec.Reference(today), nil
	}
	rec := o.Song
	rec.Source = o.Source
	if err := rec.Validate(); err != nil {
		return library.Reference{}, err
	}
	return rec.Reference(today), nil
}

func resolveRef(ctx context.Context, sess *session, kind library.Kind, ref library.Reference) (int64, error) {
	if kind == library.KindPlaylist {
		return sess.store.ResolvePlaylist(ctx, ref)
	}
	return sess.store.ResolveSong(ctx, ref)
}
