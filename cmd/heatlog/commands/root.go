package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/luki/heatlog/internal/config"
	"github.com/luki/heatlog/internal/logger"
)

// RootCmd is the heatlog entry point.
var RootCmd = newRootCmd()

// usageError marks errors caused by bad invocation; they exit with 2.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

// globals holds the values of the persistent flags and the config they
// resolve to.
type globals struct {
	configPath string
	logLevel   string
	logFile    string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:   "heatlog",
		Short: "Split heatmon temperature logs into session tables",
		Long: `heatlog reads syslog lines written by the heatmon daemon, extracts the
device temperature readings and splits them into sessions wherever the log
goes quiet for longer than the cutoff. Each session becomes its own table,
optionally charted and collected in an HTML report.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(g.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Logging.Level = g.logLevel
			}
			if cmd.Flags().Changed("log-file") {
				cfg.Logging.Path = g.logFile
			}
			g.cfg = cfg

			logger.Init(cfg.Logging)
			cmd.SetContext(logger.WithContext(cmd.Context(), logger.Get(nil)))
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", fmt.Sprintf("Path to configuration file (default: %s)", config.DefaultPath))
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&g.logFile, "log-file", "", "Write logs to a rotating file instead of stderr")

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	root.AddCommand(newParseCmd(g))
	root.AddCommand(newViewCmd(g))
	root.AddCommand(newVersionCmd())

	root.CompletionOptions.DisableDefaultCmd = true
	return root
}

// exactArgs is cobra.ExactArgs reporting a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}

func maximumArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.MaximumNArgs(n)(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}

func exitCode(err error) int {
	var ue *usageError
	if errors.As(err, &ue) || errors.Is(err, config.ErrConfigInvalid) {
		return 2
	}
	return 1
}

// Execute runs RootCmd and exits non-zero on failure.
func Execute() {
	err := RootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}
