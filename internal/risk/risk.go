// Package risk gates new entries: position slots, cooldowns, liquidity floors and sizing.
package risk

import (
	"errors"
	"fmt"
	"sort"

	"TickSentinel/internal/model"
)

var (
	ErrSlotsFull           = errors.New("max positions reached")
	ErrCooldown            = errors.New("symbol in cooldown")
	ErrIlliquid            = errors.New("below liquidity floor")
	ErrInsufficientCapital = errors.New("insufficient capital for minimum trade")
)

type Limits struct {
	MaxPositions     int     `yaml:"max_positions"`
	CooldownTicks    int     `yaml:"cooldown_ticks"`
	MinTradeNotional float64 `yaml:"min_trade_notional"`
	MinLiquidity     float64 `yaml:"min_liquidity"`
	MinVolume24h     float64 `yaml:"min_volume_24h"`
}

// Manager applies Limits and owns the per-symbol cooldown table.
type Manager struct {
	limits   Limits
	sizer    Sizer
	closedAt map[string]uint64
}

// NewManager creates a Manager. MaxPositions below 1 is raised to 1; a nil
// sizer falls back to FixedFraction{Fraction: 1}.
func NewManager(l Limits, s Sizer) *Manager {
	if l.MaxPositions < 1 {
		l.MaxPositions = 1
	}
	if l.CooldownTicks < 0 {
		l.CooldownTicks = 0
	}
	if s == nil {
		s = FixedFraction{Fraction: 1}
	}
	return &Manager{limits: l, sizer: s, closedAt: make(map[string]uint64)}
}

func (m *Manager) Limits() Limits { return m.limits }

// FreeSlots returns how many more positions may be opened.
func (m *Manager) FreeSlots(open int) int {
	if free := m.limits.MaxPositions - open; free > 0 {
		return free
	}
	return 0
}

// AdmitSymbol checks the slot, cooldown and liquidity gates for a new entry.
func (m *Manager) AdmitSymbol(symbol string, q model.Quote, open int, now uint64) error {
	if m.FreeSlots(open) == 0 {
		return fmt.Errorf("%w: %d/%d", ErrSlotsFull, open, m.limits.MaxPositions)
	}
	if m.InCooldown(symbol, now) {
		return fmt.Errorf("%w: %s closed at tick %d", ErrCooldown, symbol, m.closedAt[symbol])
	}
	if m.limits.MinLiquidity > 0 && q.Liquidity != nil && *q.Liquidity < m.limits.MinLiquidity {
		return fmt.Errorf("%w: %s liquidity %.0f < %.0f", ErrIlliquid, symbol, *q.Liquidity, m.limits.MinLiquidity)
	}
	if m.limits.MinVolume24h > 0 && q.Volume24h != nil && *q.Volume24h < m.limits.MinVolume24h {
		return fmt.Errorf("%w: %s volume %.0f < %.0f", ErrIlliquid, symbol, *q.Volume24h, m.limits.MinVolume24h)
	}
	return nil
}

// SizeEntry returns the notional for a new entry. It never exceeds available.
func (m *Manager) SizeEntry(available float64, open int, vol model.Reading) (float64, error) {
	free := m.FreeSlots(open)
	if free == 0 {
		return 0, ErrSlotsFull
	}
	notional := m.sizer.Notional(available, free, vol)
	if notional > available {
		notional = available
	}
	if !(notional > 0) || notional < m.limits.MinTradeNotional {
		return 0, fmt.Errorf("%w: sized %.4f, min %.4f, available %.4f", ErrInsufficientCapital, notional, m.limits.MinTradeNotional, available)
	}
	return notional, nil
}

// StartCooldown records the tick at which a symbol's position was closed.
func (m *Manager) StartCooldown(symbol string, tick uint64) {
	m.closedAt[symbol] = tick
}

// InCooldown reports whether now - closedAt <= CooldownTicks.
func (m *Manager) InCooldown(symbol string, now uint64) bool {
	closed, ok := m.closedAt[symbol]
	if !ok || m.limits.CooldownTicks == 0 {
		return false
	}
	return now < closed || now-closed <= uint64(m.limits.CooldownTicks)
}

// Cooldowns returns the remaining cooldown ticks per symbol and drops expired entries.
func (m *Manager) Cooldowns(now uint64) map[string]uint64 {
	out := make(map[string]uint64)
	for sym, closed := range m.closedAt {
		if !m.InCooldown(sym, now) {
			delete(m.closedAt, sym)
			continue
		}
		out[sym] = closed + uint64(m.limits.CooldownTicks) - now + 1
	}
	return out
}

// CoolingSymbols lists the symbols whose cooldown entry is still held, sorted.
func (m *Manager) CoolingSymbols() []string {
	out := make([]string, 0, len(m.closedAt))
	for sym := range m.closedAt {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// ClosedAt returns a copy of the cooldown table for persistence.
func (m *Manager) ClosedAt() map[string]uint64 {
	out := make(map[string]uint64, len(m.closedAt))
	for k, v := range m.closedAt {
		out[k] = v
	}
	return out
}

func (m *Manager) Restore(closedAt map[string]uint64) {
	m.closedAt = make(map[string]uint64, len(closedAt))
	for k, v := range closedAt {
		m.closedAt[k] = v
	}
}
