// Package agent serialises access to one engine so that stats can be read
// from other goroutines while ticks are processed.
package agent

import (
	"sync"

	"TickSentinel/internal/engine"
	"TickSentinel/internal/model"
)

type Agent struct {
	Name string

	mu      sync.Mutex
	engine  *engine.Engine
	stopped error
}

func New(name string, e *engine.Engine) *Agent {
	return &Agent{Name: name, engine: e}
}

// OnTick forwards the tick to the engine. After an invariant error the agent
// stays stopped and returns that error for every later tick.
func (a *Agent) OnTick(pt model.PriceTick) (*model.Action, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped != nil {
		return nil, a.stopped
	}
	act, err := a.engine.OnTick(pt)
	if err != nil {
		a.stopped = err
		return nil, err
	}
	return act, nil
}

// Stopped returns the error that halted the agent, if any.
func (a *Agent) Stopped() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stopped
}

func (a *Agent) Stats() model.Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.engine.Stats()
}

func (a *Agent) Snapshot() model.PortfolioSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.engine.Snapshot()
}

func (a *Agent) Positions() []model.Position {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.engine.Positions()
}

func (a *Agent) Restore(s model.PortfolioSnapshot) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.engine.Restore(s)
}
