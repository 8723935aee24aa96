// Command formcheck evaluates pose files offline and drives load tests
// against a running formcheck service.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okian/formcheck/pkg/logger"
)

// Process exit codes.
const (
	exitCorrect   = 0
	exitIncorrect = 1
	exitError     = 2
)

// exitCodeError carries a process exit code through cobra's error return.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitCodeError) Unwrap() error { return e.err }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the root command and maps its result to an exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return exitCorrect
	}

	var ec *exitCodeError
	if errors.As(err, &ec) {
		if ec.err != nil {
			fmt.Fprintln(stderr, "error:", ec.err)
		}
		return ec.code
	}
	fmt.Fprintln(stderr, "error:", err)
	return exitError
}

// newRootCmd builds the command tree writing to the given streams.
func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:   "formcheck",
		Short: "Evaluate exercise form from pose sequences",
		Long: `formcheck judges whether a recorded sequence of 2D body poses is a
correctly performed repetition of an exercise and explains what went wrong.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.InitWithWriter(stderr); err != nil {
				return &exitCodeError{code: exitError, err: fmt.Errorf("initialize logging: %w", err)}
			}
			if err := logger.SetLevelString(logLevel); err != nil {
				return &exitCodeError{code: exitError, err: err}
			}
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "diagnostic log level (debug, info, warn, error)")

	root.AddCommand(
		newEvaluateCmd(),
		newExercisesCmd(),
		newLoadtestCmd(),
	)
	return root
}
