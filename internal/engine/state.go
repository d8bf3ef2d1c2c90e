package engine

import (
	"fmt"

	"TickSentinel/internal/model"
)

// Stats summarises performance for the leaderboard. Equity marks open
// positions at their last observed price.
func (e *Engine) Stats() model.Stats {
	fs := e.pool.State()
	equity := fs.Available + fs.BankedProfit
	positions := e.ledger.Positions()
	for _, p := range positions {
		price := p.AvgPrice
		if r, ok := e.series.Get(p.Symbol); ok {
			if last, ok := r.Last(); ok {
				price = last
			}
		}
		equity += p.Quantity * price
	}
	return model.Stats{
		Agent:         e.cfg.Agent,
		Tick:          e.tick,
		Fund:          fs,
		OpenPositions: len(positions),
		Equity:        equity,
	}
}

func (e *Engine) Position(symbol string) (model.Position, bool) {
	return e.ledger.Get(symbol)
}

func (e *Engine) Positions() []model.Position {
	return e.ledger.Positions()
}

// Cooldowns returns remaining cooldown ticks per symbol.
func (e *Engine) Cooldowns() map[string]uint64 {
	return e.risk.Cooldowns(e.tick)
}

// Snapshot captures the persistent state. Price series are not persisted.
func (e *Engine) Snapshot() model.PortfolioSnapshot {
	return model.PortfolioSnapshot{
		Agent:     e.cfg.Agent,
		Tick:      e.tick,
		Fund:      e.pool.State(),
		Positions: e.ledger.Positions(),
		ClosedAt:  e.risk.ClosedAt(),
	}
}

// Restore loads a snapshot produced by Snapshot.
func (e *Engine) Restore(s model.PortfolioSnapshot) error {
	if s.Agent != "" && s.Agent != e.cfg.Agent {
		return fmt.Errorf("restore: snapshot belongs to agent %q, not %q", s.Agent, e.cfg.Agent)
	}
	if err := e.pool.Restore(s.Fund); err != nil {
		return fmt.Errorf("restore fund: %w", err)
	}
	if err := e.ledger.Restore(s.Positions); err != nil {
		return fmt.Errorf("restore positions: %w", err)
	}
	e.risk.Restore(s.ClosedAt)
	e.tick = s.Tick
	if err := e.checkInvariants(); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	e.log.Info().Uint64("tick", s.Tick).Int("positions", len(s.Positions)).Msg("state restored")
	return nil
}
