package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/crossfade/internal/engine"
	"github.com/roach88/crossfade/internal/library"
)

// PullOptions holds flags for the pull command.
type PullOptions struct {
	*RootOptions
	Kind string // song | playlist | all
}

// NewPullCommand creates the pull command.
func NewPullCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PullOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Pull every configured source into the library",
		Long: `Pull songs and playlists from every configured source, merge matching
records in memory and resolve the result against the canonical library.

Rejected records are reported individually and do not abort the run.
A source that fails to load aborts its run without writing anything.

Exit codes:
  0 - Every record was stored
  1 - A source failed or some records were rejected
  2 - Command error (bad config, library busy, etc.)

Examples:
  crossfade pull
  crossfade pull --kind playlists
  crossfade pull --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPull(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", "all", "what to pull (songs|playlists|all)")

	return cmd
}

func runPull(opts *PullOptions, cmd *cobra.Command) error {
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
	if len(eng.Sources().IDs()) == 0 {
		return NewExitError(ExitCommandError, "no sources configured")
	}

	ctx := commandContext(cmd)
	reports := make([]*engine.Report, 0, len(kinds))
	for _, kind := range kinds {
		rep, err := pullKind(ctx, eng, kind)
		if err != nil {
			return runFailed(sess.out, fmt.Sprintf("pull %ss failed", kind), err)
		}
		reports = append(reports, rep)
	}

	return writeReports(sess.out, reports)
}

func pullKind(ctx context.Context, eng *engine.Engine, kind library.Kind) (*engine.Report, error) {
	if kind == library.KindPlaylist {
		return eng.PullPlaylists(ctx)
	}
	return eng.PullSongs(ctx)
}

// reportView is the JSON shape of an engine run.
type reportView struct {
	RunToken   string        `json:"run_token"`
	Kind       string        `json:"kind"`
	Source     string        `json:"source,omitempty"`
	Pulled     int           `json:"pulled"`
	Reconciled int           `json:"reconciled"`
	Identified int           `json:"identified"`
	Unmatched  int           `json:"unmatched"`
	Stored     int           `json:"stored"`
	Created    int           `json:"created"`
	Failures   []failureView `json:"failures,omitempty"`
}

type failureView struct {
	Stage   string `json:"stage"`
	Source  string `json:"source,omitempty"`
	Index   int    `json:"index"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func viewReport(rep *engine.Report) reportView {
	v := reportView{
		RunToken:   rep.RunToken,
		Kind:       rep.Kind.String(),
		Source:     rep.Source,
		Pulled:     rep.Pulled,
		Reconciled: rep.Reconciled,
		Identified: rep.Identified,
		Unmatched:  rep.Unmatched,
		Stored:     len(rep.Stored),
		Created:    rep.Created,
	}
	for _, f := range rep.Failures {
		v.Failures = append(v.Failures, failureView{
			Stage:   f.Stage,
			Source:  f.Source,
			Index:   f.Index,
			Code:    engine.ErrorCode(f.Err),
			Message: f.Err.Error(),
		})
	}
	return v
}

// writeReports prints run reports and turns rejected records into
// ExitFailure once everything has been written.
func writeReports(out *OutputFormatter, reports []*engine.Report) error {
	views := make([]reportView, 0, len(reports))
	failed := 0
	for _, rep := range reports {
		v := viewReport(rep)
		failed += len(v.Failures)
		views = append(views, v)
	}

	if out.JSON() {
		token := ""
		if len(views) == 1 {
			token = views[0].RunToken
		}
		if err := out.SuccessRun(token, views); err != nil {
			return err
		}
	} else {
		for _, v := range views {
			fmt.Fprintln(out.Writer, summarizeReport(v))
			for _, f := range v.Failures {
				fmt.Fprintf(out.Writer, "  ✗ %s #%d %s: %s\n", f.Stage, f.Index, f.Source, f.Message)
			}
		}
	}

	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d record(s) rejected", failed))
	}
	return nil
}

// runFailed reports an aborted run. JSON output gets an error response so
// stdout stays parseable.
func runFailed(out *OutputFormatter, message string, err error) error {
	if out.JSON() {
		if werr := out.Error(engine.ErrorCode(err), message, err.Error()); werr != nil {
			return werr
		}
	}
	return WrapExitError(ExitFailure, message, err)
}

func summarizeReport(v reportView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%ss", v.Kind)
	if v.Source != "" {
		fmt.Fprintf(&b, " from %s: identified %d, unmatched %d", v.Source, v.Identified, v.Unmatched)
	} else {
		fmt.Fprintf(&b, ": pulled %d, reconciled %d", v.Pulled, v.Reconciled)
	}
	fmt.Fprintf(&b, ", stored %d (%d new)", v.Stored, v.Created)
	if len(v.Failures) > 0 {
		fmt.Fprintf(&b, ", %d failed", len(v.Failures))
	}
	fmt.Fprintf(&b, " [run %s]", v.RunToken)
	return b.String()
}
