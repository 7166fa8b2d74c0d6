package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	lwerrors "github.com/lockwatch-dev/lockwatch/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┌─┐┌─┐  ┬  ┌─┐┌─┐┬┌─  ┌┬┐┌─┐┌┐┌┬┌┬┐┌─┐┬─┐
  ├─┘│    │  │ ││  ├┴┐  ││││ │││││ │ │ │├┬┘
  ┴  └─┘  ┴─┘└─┘└─┘┴ ┴  ┴ ┴└─┘┘└┘┴ ┴ └─┘┴└─
`

const title = "PC Lock Monitor"

// exitError ends the process with a specific status code.
type exitError struct {
	code   int
	reason string
}

func (e *exitError) Error() string { return e.reason }

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "lockwatch",
		Short: "Watch a PC for intruders and lock it remotely",
		Long: `Lockwatch connects to the monitoring server on a PC, shows its
threat status and latest camera snapshot, and sends a lock command on
request.

  • Automatic reconnect (or give up and ask for a new address)
  • Local control API for status, snapshot and commands
  • Prometheus metrics
  • Optional S3 mirror of the latest snapshot`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		monitorCmd(),
		lockCmd(),
		explainCmd(),
		versionCmd(),
	)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(report(os.Stderr, err))
	}
}

// report prints err and returns the exit status for it.
func report(w io.Writer, err error) int {
	var exit *exitError
	if errors.As(err, &exit) {
		if exit.reason != "" {
			fmt.Fprintf(w, "\033[31m✗\033[0m %s\n", exit.reason)
		}
		return exit.code
	}
	var le *lwerrors.LockwatchError
	if errors.As(err, &le) {
		lwerrors.Fprint(w, le)
		return 1
	}
	fmt.Fprintf(w, "\033[31mError:\033[0m %s\n", err)
	return 1
}

// printBanner prints the lockwatch banner.
func printBanner(w io.Writer) {
	fmt.Fprint(w, banner)
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
