package fund

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"TickSentinel/internal/model"
)

func TestPoolReserveRelease(t *testing.T) {
	p, err := NewPool(1000)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	if err := p.Reserve(400); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if err := p.Reserve(700); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	pnl := p.Release(400, 440)
	if math.Abs(pnl-40) > 1e-9 {
		t.Errorf("pnl = %.4f, want 40", pnl)
	}
	s := p.State()
	if s.Available != 1000 || s.Invested != 0 || s.BankedProfit != 40 {
		t.Errorf("after profit: %+v", s)
	}
	if s.Trades != 1 || s.Wins != 1 {
		t.Errorf("trade counters: %+v", s)
	}

	p.Reserve(500)
	p.Release(500, 450)
	s = p.State()
	if s.Available != 950 || math.Abs(s.RealizedPnL-(-10)) > 1e-9 || s.Wins != 1 || s.Trades != 2 {
		t.Errorf("after loss: %+v", s)
	}
	if !p.Conserved() {
		t.Error("pool not conserved")
	}
}

func TestPoolInvalid(t *testing.T) {
	if _, err := NewPool(0); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("NewPool(0): got %v", err)
	}
	p, _ := NewPool(10)
	if err := p.Reserve(-1); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("Reserve(-1): got %v", err)
	}
	if err := p.Restore(model.FundState{InitialCapital: 10, Available: 8, Invested: 5}); err == nil {
		t.Error("expected restore to reject over-allocated state")
	}
}

func TestSaveLoadState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "alpha.json")

	empty, err := LoadState(path)
	if err != nil {
		t.Fatalf("LoadState missing: %v", err)
	}
	if empty.Fund.InitialCapital != 0 {
		t.Errorf("expected zero snapshot, got %+v", empty)
	}

	snap := &model.PortfolioSnapshot{
		Agent:     "alpha",
		Tick:      42,
		Fund:      model.FundState{InitialCapital: 1000, Available: 900, Invested: 100},
		Positions: []model.Position{{Symbol: "SOL", Quantity: 1, AvgPrice: 100, Tier: 2}},
		ClosedAt:  map[string]uint64{"ETH": 40},
	}
	if err := SaveState(path, snap); err != nil {
		t.Fatalf("SaveState: %v", err)
	}
	got, err := LoadState(path)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if got.Tick != 42 || got.Fund.Available != 900 || len(got.Positions) != 1 || got.ClosedAt["ETH"] != 40 {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not stamped")
	}
}
