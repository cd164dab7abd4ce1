package registry

import (
	"fmt"
	"sync"
	"time"
)

// GateState tags the two states of a one-shot gate.
type GateState int

const (
	Armed GateState = iota
	Signaled
)

func (s GateState) String() string {
	switch s {
	case Armed:
		return "armed"
	case Signaled:
		return "signaled"
	default:
		return "unknown"
	}
}

// ErrGateTimeout is returned when a gate is not signaled within the wait's
// timeout.
var ErrGateTimeout = fmt.Errorf("gate not signaled")

// Gate is a rearmable one-shot signal. Signal moves it from Armed to
// Signaled and wakes all current and future waiters; Rearm replaces the
// underlying signal so the gate can be used for another round.
//
// A Wait against a gate that was signaled in a previous round returns
// immediately. Callers must Rearm before triggering the next stimulus or they
// will wait against a stale signal.
type Gate struct {
	mu    sync.Mutex
	state GateState
	ch    chan struct{}
}

func NewGate() *Gate {
	return &Gate{ch: make(chan struct{})}
}

// Signal marks the gate as signaled. Signaling an already signaled gate is a
// no-op.
func (g *Gate) Signal() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == Signaled {
		return
	}

	g.state = Signaled
	close(g.ch)
}

// Rearm resets the gate for the next round.
func (g *Gate) Rearm() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.state = Armed
	g.ch = make(chan struct{})
}

func (g *Gate) State() GateState {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.state
}

// Wait blocks until the gate is signaled or the timeout elapses.
func (g *Gate) Wait(timeout time.Duration) error {
	g.mu.Lock()
	ch := g.ch
	g.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ch:
		return nil
	case <-timer.C:
		return fmt.Errorf("%w within %v", ErrGateTimeout, timeout)
	}
}
