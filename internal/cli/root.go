package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/loopsched/internal/config"
	"github.com/roach88/loopsched/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	// Config and Logger are filled on first use from ConfigPath.
	Config *config.Config
	Logger *slog.Logger

	// RunIDs allows overriding the run id generator (for testing).
	// If nil, defaults to store.UUIDv7Generator.
	RunIDs store.RunIDGenerator
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the loopsched CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "loopsched",
		Short: "loopsched - static loop scheduling",
		Long:  "Partition loop iteration spaces across threads and teams the way a static worksharing runtime does.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.load(cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "configuration file (.cue, .json, or a directory of .cue files)")

	// Add subcommands
	cmd.AddCommand(NewPlanCommand(opts))
	cmd.AddCommand(NewDistCommand(opts))
	cmd.AddCommand(NewTeamCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))

	return cmd
}

// load reads the configuration once. Subcommands call it as well so that
// they work when executed without the root command.
func (o *RootOptions) load(cmd *cobra.Command) error {
	if o.Config == nil {
		cfg, err := config.Load(o.ConfigPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load config", err)
		}
		o.Config = cfg
	}
	if o.Logger == nil {
		o.Logger = o.Config.Logger(cmd.ErrOrStderr(), o.Verbose)
	}
	return nil
}

// traceLogger returns the logger for solver trace events, or nil when
// tracing is off.
func (o *RootOptions) traceLogger() *slog.Logger {
	if o.Config != nil && o.Config.Trace {
		return o.Logger
	}
	return nil
}

func (o *RootOptions) runIDs() store.RunIDGenerator {
	if o.RunIDs != nil {
		return o.RunIDs
	}
	return store.UUIDv7Generator{}
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:  o.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: o.Verbose,
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
