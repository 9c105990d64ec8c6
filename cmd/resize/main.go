package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/resize/internal/errors"
	"github.com/vango-dev/resize/pkg/channel"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┬─┐┌─┐┌─┐┬┌─┐┌─┐
  ├┬┘├┤ └─┐│┌─┘├┤
  ┴└─└─┘└─┘┴└─┘└─┘
`

// Exit codes.
const (
	exitOK          = 0
	exitFailure     = 1
	exitServerError = 2
	exitAmbiguous   = 3
	exitAbandoned   = 130
)

// rootOptions holds the persistent flags.
type rootOptions struct {
	configPath  string
	server      string
	instance    string
	logLevel    string
	metricsAddr string
}

func main() {
	err := newRootCmd().Execute()
	if err != nil {
		errors.Fprint(os.Stderr, errors.Classify(err, "E143"))
	}
	os.Exit(exitCode(err))
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "resize",
		Short: "Change the type of a cloud instance",
		Long: `Resize changes the instance type of a cloud instance.

The change runs over a WebSocket channel: the server streams the
instance through its lifecycle (stopping, stopped, pending, running)
and reports success or an error when it is done.

  • One change in flight per instance
  • Live lifecycle indicator
  • Prometheus metrics and operation transcripts`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(cmd.ErrOrStderr(), opts.logLevel)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to resize.json (default: search upward from the working directory)")
	flags.StringVar(&opts.server, "server", "", "Server base URL (default from resize.json)")
	flags.StringVarP(&opts.instance, "instance", "i", "", "Instance ID (default from resize.json)")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn or error")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")

	rootCmd.AddCommand(
		changeCmd(opts),
		uiCmd(opts),
		regionCmd(opts),
		mockServerCmd(),
		versionCmd(),
	)
	return rootCmd
}

// setupLogging installs a text handler on w as the default logger.
func setupLogging(w io.Writer, level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return errors.Newf(errors.CategoryCLI, "invalid log level %q", level).
			WithSuggestion("Use debug, info, warn or error.")
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})))
	return nil
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case channel.IsServerError(err):
		return exitServerError
	case stderrors.Is(err, channel.ErrAmbiguousClosure):
		return exitAmbiguous
	case stderrors.Is(err, channel.ErrAbandoned):
		return exitAbandoned
	}
	return exitFailure
}

// printBanner prints the ASCII art banner.
func printBanner(w io.Writer) {
	fmt.Fprint(w, banner)
}
