package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vango-dev/resize/pkg/reconcile"
)

// Messages produced by the views. The channel manager and the region
// switcher call the views from their own goroutines; each call becomes a
// message handled by the program's Update.
type (
	waitingMsg        struct{}
	errorMsg          struct{ text string }
	indicatorMsg      struct{ state reconcile.UIState }
	unknownOutcomeMsg struct{}
	reloadMsg         struct{}
	formDisabledMsg   struct{ disabled bool }
	regionDisabledMsg struct{ disabled bool }
	navigateMsg       struct{ path string }
	alertMsg          struct{ text string }
)

// sender is the part of tea.Program the views use.
type sender interface {
	Send(msg tea.Msg)
}

// programSender forwards to a program that is attached after the model is
// built. Messages sent before attach are dropped.
type programSender struct {
	mu sync.RWMutex
	p  sender
}

func (s *programSender) attach(p sender) {
	s.mu.Lock()
	s.p = p
	s.mu.Unlock()
}

func (s *programSender) Send(msg tea.Msg) {
	s.mu.RLock()
	p := s.p
	s.mu.RUnlock()
	if p != nil {
		p.Send(msg)
	}
}

// formView hosts the resize form. It implements channel.View and
// formgate.Affordance.
type formView struct{ out sender }

func (v formView) ShowWaiting()                         { v.out.Send(waitingMsg{}) }
func (v formView) ShowError(message string)             { v.out.Send(errorMsg{text: message}) }
func (v formView) SetIndicator(state reconcile.UIState) { v.out.Send(indicatorMsg{state: state}) }
func (v formView) ShowUnknownOutcome()                  { v.out.Send(unknownOutcomeMsg{}) }
func (v formView) Reload()                              { v.out.Send(reloadMsg{}) }
func (v formView) SetDisabled(disabled bool)            { v.out.Send(formDisabledMsg{disabled: disabled}) }

// regionView hosts the region form. It implements region.View.
type regionView struct{ out sender }

func (v regionView) SetDisabled(disabled bool) { v.out.Send(regionDisabledMsg{disabled: disabled}) }
func (v regionView) Navigate(path string)      { v.out.Send(navigateMsg{path: path}) }
func (v regionView) Alert(message string)      { v.out.Send(alertMsg{text: message}) }
func (v regionView) Reload()                   { v.out.Send(reloadMsg{}) }
