package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/resize/internal/errors"
	"github.com/vango-dev/resize/pkg/channel"
	"github.com/vango-dev/resize/pkg/formgate"
)

// closeGrace is how long a released operation may keep its channel before
// the command tears it down. A server-reported error leaves the channel
// open; every other outcome closes it on its own.
const closeGrace = 500 * time.Millisecond

func changeCmd(opts *rootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "change <type>",
		Short: "Change the instance type",
		Long: `Change the instance type and follow the change until the server
reports a result.

The exit status is 0 on success, 2 when the server reported an error,
3 when the channel closed without a result (the change may or may not
have been applied) and 1 on any other failure.

Examples:
  resize change m5.large
  resize change t3.small --instance i-0abc --server https://cloud.example.com`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := printer{out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr()}
			return runChange(cmd.Context(), opts, p, args[0], force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Allow a type that is not in the configured list")

	return cmd
}

func runChange(ctx context.Context, opts *rootOptions, p printer, typ string, force bool) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if !force && !cfg.HasType(typ) {
		rerr := errors.New("E140").
			WithDetail(fmt.Sprintf("%q is not one of: %s", typ, strings.Join(cfg.Types, ", ")))
		if near := closest(typ, cfg.Types); near != "" {
			rerr = rerr.WithSuggestion(fmt.Sprintf("Did you mean %s? Pass --force to use %s anyway.", near, typ))
		}
		return rerr
	}

	e, err := newEnv(cfg)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	released := make(chan struct{}, 1)
	view := &consoleView{printer: p}
	form := &channel.Form{
		Action: e.action(),
		Value:  typ,
		Gate: formgate.New(formgate.AffordanceFunc(func(disabled bool) {
			if !disabled {
				select {
				case released <- struct{}{}:
				default:
				}
			}
		})),
		View: view,
	}

	p.info("Changing %s to %s", cfg.Instance, typ)
	op, err := e.manager.Begin(ctx, form)
	if err != nil {
		return err
	}

	select {
	case <-op.Done():
	case <-released:
		select {
		case <-op.Done():
		case <-time.After(closeGrace):
			op.Abandon()
		}
	case <-ctx.Done():
		p.warn("Interrupted; the change may still complete on the server.")
		op.Abandon()
	}

	outcome, err := op.Wait(context.Background())
	e.logger.Debug("change finished", "op", op.ID(), "outcome", outcome)

	if view.reloaded.Load() {
		snap, ferr := e.page.Fetch(context.Background())
		if ferr != nil {
			p.warn("Could not reload the instance: %v", ferr)
		} else {
			p.snapshot(snap)
		}
	}
	if outcome == channel.OutcomeSuccess {
		p.success("Instance type changed to %s", typ)
	}
	return err
}
