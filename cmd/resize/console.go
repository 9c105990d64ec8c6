package main

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/vango-dev/resize/pkg/page"
	"github.com/vango-dev/resize/pkg/reconcile"
)

// printer writes CLI status lines.
type printer struct {
	out    io.Writer
	errOut io.Writer
}

// success prints a success message.
func (p printer) success(format string, args ...any) {
	fmt.Fprintf(p.out, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func (p printer) info(format string, args ...any) {
	fmt.Fprintf(p.out, "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func (p printer) warn(format string, args ...any) {
	fmt.Fprintf(p.out, "\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}

// errorMsg prints an error message.
func (p printer) errorMsg(format string, args ...any) {
	fmt.Fprintf(p.errOut, "\033[31m✗\033[0m %s\n", fmt.Sprintf(format, args...))
}

// snapshot prints the instance line.
func (p printer) snapshot(s *page.Snapshot) {
	state := s.Indicator()
	p.info("%s  %s  %s  %s", s.ID, s.Type, s.Region, indicator(state))
}

// toneColors maps a tone to an ANSI color.
var toneColors = map[reconcile.Tone]string{
	reconcile.ToneDefault: "\033[90m",
	reconcile.TonePrimary: "\033[36m",
	reconcile.ToneWarning: "\033[33m",
	reconcile.ToneDanger:  "\033[31m",
}

func indicator(state reconcile.UIState) string {
	c := toneColors[state.Tone]
	if state.Severity == reconcile.SeverityNominal {
		c = "\033[32m"
	}
	label := state.Label
	if label == "" {
		label = "unknown"
	}
	return c + "● " + label + "\033[0m"
}

// consoleView prints resize effects as they happen. Reload is deferred to
// the command, which fetches the snapshot once the operation is done.
type consoleView struct {
	printer
	reloaded atomic.Bool
}

func (v *consoleView) ShowWaiting()                         { v.info("Request sent, waiting for status...") }
func (v *consoleView) ShowError(message string)             { v.errorMsg("%s", message) }
func (v *consoleView) SetIndicator(state reconcile.UIState) { v.info("%s", indicator(state)) }
func (v *consoleView) Reload()                              { v.reloaded.Store(true) }

func (v *consoleView) ShowUnknownOutcome() {
	v.warn("The channel closed before the server reported a result. The change may or may not have been applied.")
}

// regionConsoleView hosts a region switch. Navigation and reload both print
// a fresh snapshot.
type regionConsoleView struct {
	printer
	ctx  context.Context
	page *page.Client
}

func (v *regionConsoleView) SetDisabled(disabled bool) {
	if disabled {
		v.info("Switching region...")
	}
}

func (v *regionConsoleView) Navigate(string)      { v.show() }
func (v *regionConsoleView) Alert(message string) { v.errorMsg("%s", message) }
func (v *regionConsoleView) Reload()              { v.show() }

func (v *regionConsoleView) show() {
	snap, err := v.page.Fetch(v.ctx)
	if err != nil {
		v.errorMsg("reload failed: %v", err)
		return
	}
	v.snapshot(snap)
}
