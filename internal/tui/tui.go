// Package tui is the interactive host of the resize and region forms.
//
// The program renders one instance: its type, region and lifecycle badge,
// plus a list of instance types to change to. Effects from the channel
// manager and the region switcher arrive as messages through the program,
// so every view change happens on the program's update goroutine.
package tui

import (
	"context"
	"log/slog"
	"net/http"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vango-dev/resize/pkg/channel"
	"github.com/vango-dev/resize/pkg/formgate"
	"github.com/vango-dev/resize/pkg/page"
	"github.com/vango-dev/resize/pkg/region"
)

// Options configures Run.
type Options struct {
	// Manager runs resize operations. Required.
	Manager *channel.Manager

	// Page fetches the instance snapshot on start and on every reload.
	// Required.
	Page *page.Client

	// Action is the resize form action.
	Action string

	// RegionEndpoint is the region switch URL. Empty disables switching.
	RegionEndpoint string

	// Types lists the instance types offered.
	Types []string

	// HTTPClient is used for region switches.
	HTTPClient *http.Client

	// Logger receives region switch logs.
	Logger *slog.Logger

	// ProgramOptions are passed to tea.NewProgram.
	ProgramOptions []tea.ProgramOption
}

// Run starts the program and blocks until the user quits. An operation
// still in flight on quit is abandoned. View calls made after the program
// exits are dropped.
func Run(ctx context.Context, opts Options) error {
	out := &programSender{}
	m := build(ctx, opts, out)

	p := tea.NewProgram(m, opts.ProgramOptions...)
	out.attach(p)

	final, err := p.Run()
	out.attach(nil)
	if fm, ok := final.(model); ok && fm.op != nil {
		fm.op.Abandon()
	}
	return err
}

func build(ctx context.Context, opts Options, out sender) model {
	fv := formView{out: out}
	form := &channel.Form{
		Action: opts.Action,
		Gate:   formgate.New(fv),
		View:   fv,
	}

	var switcher *region.Switcher
	if opts.RegionEndpoint != "" {
		var ropts []region.Option
		if opts.HTTPClient != nil {
			ropts = append(ropts, region.WithHTTPClient(opts.HTTPClient))
		}
		if opts.Logger != nil {
			ropts = append(ropts, region.WithLogger(opts.Logger))
		}
		switcher = region.NewSwitcher(opts.RegionEndpoint, regionView{out: out}, ropts...)
	}

	return newModel(ctx, opts.Manager, opts.Page, switcher, form, opts.Types)
}
