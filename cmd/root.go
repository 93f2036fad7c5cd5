package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/urizennnn/gh-activity/config"
)

var (
	Version   = "dev"
	BuildTime = "undefined"
	GitHash   = "undefined"
)

// ExitError carries a process exit code up to Execute.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }

// app is the state shared by every subcommand for one invocation.
type app struct {
	cfg     config.Config
	verbose bool
	stdout  io.Writer
}

// NewRootCmd builds the command tree. Each call returns an independent tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "gh-activity",
		Short:         "Export your GitHub activity (commits, PRs, issues) per organization",
		Version:       fmt.Sprintf("%s (%s, built %s)", Version, GitHash, BuildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.stdout = cmd.OutOrStdout()
			cfg, err := config.NewLoader("APP").Load()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			a.cfg = cfg
			return setupLogging(cmd.ErrOrStderr(), cfg.LogLevel, a.verbose)
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newExportCmd(a),
		newReportCmd(a),
		newStreamCmd(a),
	)
	return root
}

func setupLogging(w io.Writer, level string, verbose bool) error {
	logrus.SetOutput(w)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	if verbose {
		lvl = logrus.DebugLevel
	}
	logrus.SetLevel(lvl)
	return nil
}

// Execute runs the CLI and is called by main.main()
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := NewRootCmd().ExecuteContext(ctx)
	if err == nil {
		return
	}

	code := 1
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.Code
	}
	fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
	stop()
	os.Exit(code)
}
