package main

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/resize/pkg/page"
	"github.com/vango-dev/resize/pkg/resizetest"
)

type mockOptions struct {
	addr      string
	instance  string
	typ       string
	pace      time.Duration
	fail      string
	ambiguous bool
}

func mockServerCmd() *cobra.Command {
	opts := mockOptions{}

	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Run a scripted resize server for local testing",
		Long: `Run a scripted resize server for local testing.

The server serves one instance page, the region form endpoint and the
resize channel. Every change walks the instance through stopping,
stopped, pending and running before reporting success.

Examples:
  resize mock-server --addr :8080 --pace 1s
  resize mock-server --fail "insufficient capacity"
  resize mock-server --ambiguous`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := printer{out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr()}
			return runMockServer(cmd.Context(), opts, p)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.addr, "addr", ":8080", "Address to listen on")
	flags.StringVar(&opts.instance, "id", "i-0123456789abcdef0", "Instance ID to serve")
	flags.StringVar(&opts.typ, "type", "t3.micro", "Initial instance type")
	flags.DurationVar(&opts.pace, "pace", time.Second, "Delay between lifecycle frames")
	flags.StringVar(&opts.fail, "fail", "", "Report this error instead of changing the type")
	flags.BoolVar(&opts.ambiguous, "ambiguous", false, "Close the channel without reporting a result")

	return cmd
}

// mockScript builds the script every resize request plays.
func mockScript(opts mockOptions) resizetest.Script {
	switch {
	case opts.fail != "":
		return resizetest.Script{
			resizetest.Progress("stopping"),
			resizetest.Sleep(opts.pace),
			resizetest.Fail(opts.fail),
			resizetest.Hold(),
		}
	case opts.ambiguous:
		return resizetest.Script{
			resizetest.Progress("stopping"),
			resizetest.Sleep(opts.pace),
			resizetest.Progress("stopped"),
			resizetest.Close(),
		}
	}
	return append(resizetest.ResizeScript(opts.pace), resizetest.Close())
}

func runMockServer(ctx context.Context, opts mockOptions, p printer) error {
	srv := resizetest.New(
		resizetest.WithScript(mockScript(opts)),
		resizetest.WithInstance(page.Snapshot{
			ID:     opts.instance,
			Type:   opts.typ,
			State:  "running",
			Region: resizetest.DefaultRegions[0],
		}),
		resizetest.WithLogger(slog.Default().With("component", "mock-server")),
	)
	defer srv.Close()

	ln, err := net.Listen("tcp", opts.addr)
	if err != nil {
		return err
	}
	hs := &http.Server{Handler: srv, ReadHeaderTimeout: 5 * time.Second}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Close()
		hs.Shutdown(shutdownCtx)
	}()

	printBanner(p.out)
	p.success("Mock server listening on http://%s", ln.Addr())
	p.info("Instance page: http://%s/instances/%s", ln.Addr(), opts.instance)
	p.info("Try: resize change m5.large --server http://%s --instance %s", ln.Addr(), opts.instance)

	if err := hs.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
