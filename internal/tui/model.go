package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vango-dev/resize/pkg/channel"
	"github.com/vango-dev/resize/pkg/page"
	"github.com/vango-dev/resize/pkg/reconcile"
	"github.com/vango-dev/resize/pkg/region"
)

const unknownOutcomeText = "The channel closed before the server reported a result. The change may or may not have been applied."

// typeItem is one instance type in the list.
type typeItem struct {
	name    string
	current bool
}

func (i typeItem) Title() string { return i.name }
func (i typeItem) Description() string {
	if i.current {
		return "current type"
	}
	return ""
}
func (i typeItem) FilterValue() string { return i.name }

// Command results.
type (
	snapshotMsg struct {
		snap *page.Snapshot
		err  error
	}
	submittedMsg struct {
		op  *channel.Operation
		err error
	}
	operationDoneMsg struct {
		op      *channel.Operation
		outcome channel.Outcome
	}
	regionDoneMsg struct{ err error }
)

type model struct {
	ctx      context.Context
	manager  *channel.Manager
	page     *page.Client
	switcher *region.Switcher
	form     *channel.Form

	list    list.Model
	spinner spinner.Model

	snap         *page.Snapshot
	indicator    reconcile.UIState
	hasIndicator bool
	waiting      bool
	errLine      string
	notice       string
	lastOutcome  channel.Outcome

	formDisabled   bool
	regionDisabled bool

	op       *channel.Operation
	quitting bool
}

func newModel(ctx context.Context, manager *channel.Manager, pc *page.Client, switcher *region.Switcher, form *channel.Form, types []string) model {
	items := make([]list.Item, len(types))
	for i, t := range types {
		items[i] = typeItem{name: t}
	}

	delegate := list.NewDefaultDelegate()
	selected := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(accent).
		Foreground(accent).
		Padding(0, 0, 0, 1)
	delegate.Styles.SelectedTitle = selected
	delegate.Styles.SelectedDesc = selected.Foreground(lipgloss.Color("250")).Faint(true)

	l := list.New(items, delegate, 0, 0)
	l.Title = "Change instance type"
	l.Styles.Title = titleStyle
	l.SetShowHelp(false)

	s := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("205"))))

	return model{
		ctx:      ctx,
		manager:  manager,
		page:     pc,
		switcher: switcher,
		form:     form,
		list:     l,
		spinner:  s,
	}
}

func (m model) Init() tea.Cmd {
	return fetchCmd(m.ctx, m.page)
}

func fetchCmd(ctx context.Context, pc *page.Client) tea.Cmd {
	return func() tea.Msg {
		snap, err := pc.Fetch(ctx)
		return snapshotMsg{snap: snap, err: err}
	}
}

// submitCmd runs Begin off the update goroutine: acquiring the gate calls
// back into the view, which sends to the program.
func submitCmd(ctx context.Context, manager *channel.Manager, form *channel.Form) tea.Cmd {
	return func() tea.Msg {
		op, err := manager.Begin(ctx, form)
		return submittedMsg{op: op, err: err}
	}
}

func waitCmd(ctx context.Context, op *channel.Operation) tea.Cmd {
	return func() tea.Msg {
		outcome, _ := op.Wait(ctx)
		return operationDoneMsg{op: op, outcome: outcome}
	}
}

func switchCmd(ctx context.Context, switcher *region.Switcher, name string) tea.Cmd {
	return func() tea.Msg {
		return regionDoneMsg{err: switcher.Switch(ctx, name)}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v-8)
		return m, nil

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering && msg.String() != "ctrl+c" {
			break
		}
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			if m.op != nil {
				m.op.Abandon()
			}
			return m, tea.Quit
		case "enter":
			return m.submit()
		case "r":
			return m.nextRegion()
		}

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case snapshotMsg:
		if msg.err != nil {
			m.errLine = msg.err.Error()
			return m, nil
		}
		m.snap = msg.snap
		m.hasIndicator = false
		return m, m.markCurrent()

	case submittedMsg:
		if msg.err != nil {
			m.errLine = msg.err.Error()
			return m, nil
		}
		m.op = msg.op
		return m, waitCmd(m.ctx, msg.op)

	case operationDoneMsg:
		if msg.op == m.op {
			m.op = nil
		}
		m.lastOutcome = msg.outcome
		return m, nil

	case regionDoneMsg:
		if errors.Is(msg.err, region.ErrBusy) {
			m.notice = "A region switch is already in flight."
		}
		return m, nil

	case waitingMsg:
		m.waiting = true
		m.errLine = ""
		m.notice = ""
		return m, m.spinner.Tick

	case errorMsg:
		m.waiting = false
		m.errLine = msg.text
		return m, nil

	case indicatorMsg:
		m.indicator = msg.state
		m.hasIndicator = true
		return m, nil

	case unknownOutcomeMsg:
		m.waiting = false
		m.notice = unknownOutcomeText
		return m, nil

	case reloadMsg, navigateMsg:
		m.waiting = false
		return m, fetchCmd(m.ctx, m.page)

	case alertMsg:
		m.notice = msg.text
		return m, nil

	case formDisabledMsg:
		m.formDisabled = msg.disabled
		return m, nil

	case regionDisabledMsg:
		m.regionDisabled = msg.disabled
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m model) submit() (tea.Model, tea.Cmd) {
	if m.formDisabled || m.regionDisabled {
		return m, nil
	}
	item, ok := m.list.SelectedItem().(typeItem)
	if !ok {
		return m, nil
	}
	m.form.Value = item.name
	return m, submitCmd(m.ctx, m.manager, m.form)
}

func (m model) nextRegion() (tea.Model, tea.Cmd) {
	if m.switcher == nil || m.regionDisabled || m.snap == nil || len(m.snap.Regions) == 0 {
		return m, nil
	}
	next := m.snap.Regions[0]
	for i, r := range m.snap.Regions {
		if r == m.snap.Region {
			next = m.snap.Regions[(i+1)%len(m.snap.Regions)]
			break
		}
	}
	if next == m.snap.Region {
		return m, nil
	}
	m.notice = ""
	return m, switchCmd(m.ctx, m.switcher, next)
}

// markCurrent flags the snapshot's type in the list.
func (m *model) markCurrent() tea.Cmd {
	var cmds []tea.Cmd
	for i, it := range m.list.Items() {
		item := it.(typeItem)
		current := item.name == m.snap.Type
		if item.current != current {
			item.current = current
			cmds = append(cmds, m.list.SetItem(i, item))
		}
	}
	return tea.Batch(cmds...)
}

func (m model) currentIndicator() reconcile.UIState {
	if m.hasIndicator {
		return m.indicator
	}
	if m.snap != nil {
		return m.snap.Indicator()
	}
	return reconcile.UIState{}
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	if m.snap != nil {
		fmt.Fprintf(&b, "%s %s  %s %s  %s %s  %s\n\n",
			labelStyle.Render("Instance"), valueStyle.Render(m.snap.ID),
			labelStyle.Render("Type"), valueStyle.Render(m.snap.Type),
			labelStyle.Render("Region"), valueStyle.Render(m.snap.Region),
			badge(m.currentIndicator()))
	} else {
		b.WriteString(mutedStyle.Render("Loading instance..."))
		b.WriteString("\n\n")
	}

	if m.formDisabled || m.regionDisabled {
		b.WriteString(mutedStyle.Render(m.list.View()))
	} else {
		b.WriteString(m.list.View())
	}
	b.WriteString("\n\n")

	if m.waiting {
		b.WriteString(m.spinner.View())
		b.WriteString(" Waiting for the server...\n")
	} else if m.lastOutcome != channel.OutcomePending {
		b.WriteString(mutedStyle.Render("Last change: " + m.lastOutcome.String()))
		b.WriteString("\n")
	}
	if m.errLine != "" {
		b.WriteString(errorStyle.Render(m.errLine))
		b.WriteString("\n")
	}
	if m.notice != "" {
		b.WriteString(noticeStyle.Render(m.notice))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("enter: change type • r: next region • /: filter • q: quit"))
	return docStyle.Render(b.String())
}
