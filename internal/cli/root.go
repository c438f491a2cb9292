// Package cli implements the rowgrid command-line interface: load a table
// from CSV, JSONL or a SQLite query into a grid, then filter, sort, search
// and render it.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/rowgrid/internal/logging"
	"github.com/mesh-intelligence/rowgrid/internal/paths"
	"github.com/mesh-intelligence/rowgrid/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// exitError carries the process exit code for a failed command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func userError(format string, args ...any) error {
	return &exitError{code: exitUserError, err: fmt.Errorf(format, args...)}
}

func sysError(err error) error {
	return &exitError{code: exitSysError, err: err}
}

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	logLevel  string
}

var flags rootFlags

// runtimeEnv is what PersistentPreRunE resolves for subcommands.
type runtimeEnv struct {
	configDir string
	cfg       types.Config
	logger    *slog.Logger
}

var env runtimeEnv

// NewRootCmd creates the top-level "rowgrid" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "rowgrid",
		Short: "Filter, sort and search tabular data in memory",
		Long: "rowgrid loads rows from CSV, JSON Lines or a SQLite query into an\n" +
			"in-memory grid and filters, sorts, searches and exports them.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			dir, err := paths.ResolveConfigDir(flags.configDir)
			if err != nil {
				return sysError(fmt.Errorf("resolve config dir: %w", err))
			}
			cfg, err := loadConfig(dir)
			if err != nil {
				return userError("load config: %w", err)
			}
			if flags.logLevel != "" {
				cfg.Logging.Level = flags.logLevel
			}
			env = runtimeEnv{
				configDir: dir,
				cfg:       cfg,
				logger:    logging.Setup(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr()),
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "directory for relative --out files (default: working directory)")
	root.PersistentFlags().BoolVar(&flags.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newQueryCmd())

	return root
}

// Execute runs the root command and exits with the appropriate code.
// Interrupts cancel the running command's context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := NewRootCmd().ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitUserError
}
