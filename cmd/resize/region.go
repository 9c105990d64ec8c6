package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/resize/internal/errors"
	"github.com/vango-dev/resize/pkg/region"
)

func regionCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "region <name>",
		Short: "Switch the instance to another region",
		Long: `Switch the instance to another region.

The instance view is disabled while the request is in flight. On
success the instance is shown again; on failure the server's message
is printed and the instance is reloaded.

Examples:
  resize region eu-west-1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := printer{out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr()}
			return runRegion(cmd.Context(), opts, p, args[0])
		},
	}
	return cmd
}

func runRegion(ctx context.Context, opts *rootOptions, p printer, name string) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	e, err := newEnv(cfg)
	if err != nil {
		return err
	}
	defer e.Close()

	snap, err := e.page.Fetch(ctx)
	if err != nil {
		return err
	}
	if len(snap.Regions) > 0 && !slices.Contains(snap.Regions, name) {
		p.warn("%s is not one of the offered regions: %s", name, strings.Join(snap.Regions, ", "))
		if near := closest(name, snap.Regions); near != "" {
			p.warn("Did you mean %s?", near)
		}
	}

	view := &regionConsoleView{printer: p, ctx: ctx, page: e.page}
	sw := region.NewSwitcher(e.page.URL(cfg.RegionPath), view)
	if err := sw.Switch(ctx, name); err != nil {
		if stderrors.Is(err, region.ErrBusy) {
			return err
		}
		return errors.New("E082").
			WithDetail(fmt.Sprintf("Switching %s to %s failed. The instance was reloaded.", cfg.Instance, name)).
			Wrap(err)
	}
	p.success("Switched %s to %s", cfg.Instance, name)
	return nil
}
