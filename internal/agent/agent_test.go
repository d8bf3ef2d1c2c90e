package agent

import (
	"sync"
	"testing"

	"TickSentinel/internal/calculator"
	"TickSentinel/internal/engine"
	"TickSentinel/internal/model"
	"TickSentinel/internal/risk"
	"TickSentinel/internal/strategy"
)

func newAgent(t *testing.T) *Agent {
	t.Helper()
	e, err := engine.New(engine.Config{
		Agent:   "alpha",
		Capital: 500,
		Profile: strategy.Profile{
			Indicators: calculator.Params{ZWindow: 10, RSIPeriod: 5},
			Entry:      strategy.Thresholds{ZEntry: -2},
		},
		Risk: risk.Limits{MaxPositions: 1},
	})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	return New("alpha", e)
}

func TestConcurrentStats(t *testing.T) {
	a := newAgent(t)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			p := 100.0
			if i%17 == 0 {
				p = 90
			}
			if _, err := a.OnTick(model.PriceTick{Quotes: map[string]model.Quote{"X": {Price: p}}}); err != nil {
				t.Errorf("OnTick: %v", err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = a.Stats()
			_ = a.Snapshot()
		}
	}()
	wg.Wait()

	if got := a.Stats().Tick; got != 200 {
		t.Errorf("tick = %d, want 200", got)
	}
	if a.Stopped() != nil {
		t.Errorf("agent stopped: %v", a.Stopped())
	}
}
