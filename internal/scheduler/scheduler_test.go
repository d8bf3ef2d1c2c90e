package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"TickSentinel/internal/agent"
	"TickSentinel/internal/calculator"
	"TickSentinel/internal/collector"
	"TickSentinel/internal/engine"
	"TickSentinel/internal/execution"
	"TickSentinel/internal/fund"
	"TickSentinel/internal/recorder"
	"TickSentinel/internal/risk"
	"TickSentinel/internal/strategy"
)

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (f *fakeNotifier) SendWithRetry(_ context.Context, text string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, text)
	return nil
}

func (f *fakeNotifier) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.msgs...)
}

func newAgent(t *testing.T, name string, capital float64) *agent.Agent {
	t.Helper()
	e, err := engine.New(engine.Config{
		Agent:   name,
		Capital: capital,
		Profile: strategy.Profile{
			Indicators: calculator.Params{ZWindow: 20, RSIPeriod: 14},
			Entry:      strategy.Thresholds{ZEntry: -2.5, RSIMax: 30},
		},
		Risk:           risk.Limits{MaxPositions: 1},
		SeriesCapacity: 20,
	})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	return agent.New(name, e)
}

func dipScript() []map[string]float64 {
	script := make([]map[string]float64, 0, 20)
	for i := 0; i < 19; i++ {
		script = append(script, map[string]float64{"SOL": 100})
	}
	return append(script, map[string]float64{"SOL": 80})
}

func newTestScheduler(t *testing.T, agents ...*agent.Agent) (*Scheduler, *fakeNotifier, *recorder.SQLiteRecorder) {
	t.Helper()
	rec, err := recorder.NewSQLiteRecorder(filepath.Join(t.TempDir(), "history.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewSQLiteRecorder: %v", err)
	}
	t.Cleanup(func() { rec.Close() })
	n := &fakeNotifier{}
	col := collector.NewCollector(&collector.MockFetcher{Script: dipScript()}, []string{"SOL"}, zerolog.Nop())
	s := NewScheduler(context.Background(), col, agents, execution.NewLogSubmitter(zerolog.Nop()), n, rec, t.TempDir(), zerolog.Nop())
	return s, n, rec
}

func TestRunTickDispatchesActions(t *testing.T) {
	a := newAgent(t, "alpha", 1000)
	s, n, rec := newTestScheduler(t, a)

	for i := 0; i < 20; i++ {
		if err := s.RunTickNow(); err != nil {
			t.Fatalf("tick %d: %v", i+1, err)
		}
	}

	acts, err := rec.RecentActions("alpha", 10)
	if err != nil {
		t.Fatalf("RecentActions: %v", err)
	}
	if len(acts) != 1 || acts[0].Symbol != "SOL" || acts[0].Tick != 20 {
		t.Fatalf("recorded actions = %+v", acts)
	}
	msgs := n.messages()
	if len(msgs) != 1 || !strings.Contains(msgs[0], "OPEN SOL") {
		t.Errorf("notifications = %q", msgs)
	}

	snap, err := fund.LoadState(fund.StatePath(s.StateDir, "alpha"))
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if snap.Tick != 20 || len(snap.Positions) != 1 || snap.Fund.Invested != 1000 {
		t.Errorf("saved snapshot = %+v", snap)
	}

	// script has no 21st tick
	if err := s.RunTickNow(); !errors.Is(err, collector.ErrScriptExhausted) {
		t.Errorf("expected ErrScriptExhausted, got %v", err)
	}
}

func TestEpochRanksAgents(t *testing.T) {
	alpha := newAgent(t, "alpha", 1000)
	beta := newAgent(t, "beta", 2000)
	s, n, _ := newTestScheduler(t, alpha, beta)

	s.RunEpochNow()

	msgs := n.messages()
	if len(msgs) != 1 {
		t.Fatalf("notifications = %q", msgs)
	}
	// equal PnL, beta ranks first on equity
	if strings.Index(msgs[0], "beta") > strings.Index(msgs[0], "alpha") {
		t.Errorf("leaderboard order wrong:\n%s", msgs[0])
	}
}

func TestHaltReportedOnce(t *testing.T) {
	a := newAgent(t, "alpha", 1000)
	s, n, _ := newTestScheduler(t, a)

	boom := errors.New("boom")
	s.halt(a, boom)
	s.halt(a, boom)

	if msgs := n.messages(); len(msgs) != 1 || !strings.Contains(msgs[0], "alpha halted") {
		t.Errorf("notifications = %q", msgs)
	}
}

func TestHandleCommand(t *testing.T) {
	a := newAgent(t, "alpha", 1000)
	s, _, _ := newTestScheduler(t, a)
	for i := 0; i < 20; i++ {
		if err := s.RunTickNow(); err != nil {
			t.Fatalf("tick %d: %v", i+1, err)
		}
	}

	cases := []struct {
		cmd  string
		want string
	}{
		{"/stats", "alpha"},
		{"/leaderboard", "1. alpha"},
		{"/positions", "SOL"},
		{"/positions alpha", "tier 0"},
		{"/positions ghost", "Unknown agent"},
		{"/history", "Usage"},
		{"/history alpha", "OPEN BUY SOL"},
		{"/history ghost", "Unknown agent"},
		{"hello", "Commands"},
		{"", "Commands"},
	}
	for _, tc := range cases {
		if got := s.HandleCommand(tc.cmd); !strings.Contains(got, tc.want) {
			t.Errorf("HandleCommand(%q) = %q, want it to contain %q", tc.cmd, got, tc.want)
		}
	}
}

func TestRegisterAll(t *testing.T) {
	s, _, _ := newTestScheduler(t, newAgent(t, "alpha", 1000))
	if err := s.RegisterAll("*/5 * * * * *", "0 0 * * * *"); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}
	if got := len(s.Cron.Entries()); got != 2 {
		t.Errorf("entries = %d, want 2", got)
	}
	if err := s.RegisterAll("not a cron", "0 0 * * * *"); err == nil {
		t.Error("expected error for bad cron spec")
	}
}
