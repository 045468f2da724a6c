package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RootOptions holds global flags for all commands. After the root
// command's pre-run they hold the merged result of flags, environment,
// config file and defaults.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Schema   string // CUE schema file or directory
	Database string // SQLite path
	Config   string // explicit config file; searched for when empty

	// Fs is the filesystem used for config, .env and document files.
	// Defaults to the OS filesystem.
	Fs afero.Fs

	// ConfigFile is the config file that was read, if any.
	ConfigFile string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the tsq CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{Fs: afero.NewOsFs()})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}

	cmd := &cobra.Command{
		Use:   "tsq",
		Short: "tsq - type-safe queries",
		Long: `Compile typed query documents into predicate format strings with
ordered arguments, and run them against a local object store.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.Schema, "schema", DefaultSchema, "CUE schema file or directory")
	flags.StringVar(&opts.Database, "db", DefaultDatabase, "path to SQLite database")
	flags.StringVar(&opts.Config, "config", "", "config file (default .tsq.yaml in ., $HOME or $HOME/.config/tsq)")

	// Add subcommands
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewLoadCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewObjectsCommand(opts))
	cmd.AddCommand(NewSchemaCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// load merges config sources into opts and installs the default logger.
func (opts *RootOptions) load(cmd *cobra.Command) error {
	v := viper.New()
	for _, key := range []string{"verbose", "format", "schema", "db"} {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(key)); err != nil {
			return fmt.Errorf("bind flag %s: %w", key, err)
		}
	}

	cfg, err := LoadConfig(opts.Fs, v, opts.Config)
	if err != nil {
		return reportError(opts.formatter(cmd), ExitCommandError, ErrCodeGeneric, fmt.Sprintf("failed to load config: %v", err), nil)
	}
	opts.Verbose = cfg.Verbose
	opts.Format = cfg.Format
	opts.Schema = cfg.Schema
	opts.Database = cfg.Database
	opts.ConfigFile = cfg.File

	if !isValidFormat(opts.Format) {
		message := fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
		opts.Format = DefaultFormat
		return reportError(opts.formatter(cmd), ExitCommandError, ErrCodeGeneric, message, nil)
	}

	// Configure logging based on verbose flag
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))

	if opts.ConfigFile != "" {
		slog.Debug("config loaded", "file", opts.ConfigFile)
	}
	return nil
}

// formatter builds the output formatter for a command.
func (opts *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
