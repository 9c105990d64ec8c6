// Package formgate guards a form against duplicate submissions while an
// operation started from it is in flight.
package formgate

import "sync"

// Affordance is the visual side of a gate, typically a form that renders
// as disabled while busy.
type Affordance interface {
	SetDisabled(disabled bool)
}

// AffordanceFunc adapts a function to the Affordance interface.
type AffordanceFunc func(disabled bool)

// SetDisabled calls f(disabled).
func (f AffordanceFunc) SetDisabled(disabled bool) { f(disabled) }

// Gate is a per-form busy flag. The zero value is an idle gate with no
// affordance. A Gate is safe for concurrent use. The affordance must not
// call back into the gate.
type Gate struct {
	mu         sync.Mutex
	busy       bool
	affordance Affordance

	// showMu serializes affordance calls; shown is what it last displayed.
	showMu sync.Mutex
	shown  bool
}

// New creates a Gate that toggles a (nil allowed) affordance.
func New(a Affordance) *Gate {
	return &Gate{affordance: a}
}

// TryAcquire marks the gate busy. It returns false, changing nothing, if
// the gate is already busy.
func (g *Gate) TryAcquire() bool {
	g.mu.Lock()
	if g.busy {
		g.mu.Unlock()
		return false
	}
	g.busy = true
	g.mu.Unlock()

	g.show()
	return true
}

// Release marks the gate idle. Releasing an idle gate is a no-op and does
// not touch the affordance.
func (g *Gate) Release() {
	g.mu.Lock()
	if !g.busy {
		g.mu.Unlock()
		return
	}
	g.busy = false
	g.mu.Unlock()

	g.show()
}

// show brings the affordance in line with the current busy flag. Reading
// the flag under showMu means the last call always wins, whichever order
// racing acquires and releases reach it.
func (g *Gate) show() {
	g.showMu.Lock()
	defer g.showMu.Unlock()

	g.mu.Lock()
	busy, a := g.busy, g.affordance
	g.mu.Unlock()

	if a == nil || busy == g.shown {
		return
	}
	g.shown = busy
	a.SetDisabled(busy)
}

// Busy reports whether an operation currently holds the gate.
func (g *Gate) Busy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.busy
}
