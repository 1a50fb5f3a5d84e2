package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/crossfade/internal/config"
)

// ConfigInitOptions holds flags for config init.
type ConfigInitOptions struct {
	*RootOptions
	Force bool
}

// NewConfigCommand creates the config command group.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the crossfade configuration file",
		Args:  cobra.NoArgs,
	}
	cmd.AddCommand(newConfigInitCommand(rootOpts))
	return cmd
}

func newConfigInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConfigInitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a sample configuration file",
		Long: `Write a commented sample configuration to --config, or to
~/.config/crossfade/config.toml when --config is not set.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(opts, cmd)
		},
	}
	cmd.Flags().BoolVar(&opts.Force, "force", false, "overwrite an existing file")

	return cmd
}

func runConfigInit(opts *ConfigInitOptions, cmd *cobra.Command) error {
	path := opts.Config
	if path == "" {
		def, err := config.DefaultConfigPath()
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to resolve config path", err)
		}
		path = def
	} else {
		expanded, err := config.ExpandPath(path)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to resolve config path", err)
		}
		path = expanded
	}

	if _, err := os.Stat(path); err == nil && !opts.Force {
		return NewExitError(ExitCommandError, fmt.Sprintf("config already exists: %s (use --force to overwrite)", path))
	}
	if err := config.CreateSample(path); err != nil {
		return WrapExitError(ExitCommandError, "failed to write config", err)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if out.JSON() {
		return out.Success(map[string]string{"path": path})
	}
	fmt.Fprintf(out.Writer, "Wrote sample config to %s\n", path)
	return nil
}
