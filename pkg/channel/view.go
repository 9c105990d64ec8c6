package channel

import "github.com/vango-dev/resize/pkg/reconcile"

// View is the hosting view an operation drives. The manager calls it from
// its event loop only, one call at a time; implementations must not block
// and must not call back into the Manager.
type View interface {
	// ShowWaiting surfaces the "waiting for the server" indicator.
	ShowWaiting()

	// ShowError renders a message in error styling. Server-reported and
	// local failures both end up here.
	ShowError(message string)

	// SetIndicator replaces the resource indicator with state.
	SetIndicator(state reconcile.UIState)

	// ShowUnknownOutcome tells the user the result could not be determined.
	ShowUnknownOutcome()

	// Reload re-renders the view from the server, the source of truth
	// after a change.
	Reload()
}

// NopView is a View that does nothing.
type NopView struct{}

func (NopView) ShowWaiting()                   {}
func (NopView) ShowError(string)               {}
func (NopView) SetIndicator(reconcile.UIState) {}
func (NopView) ShowUnknownOutcome()            {}
func (NopView) Reload()                        {}
