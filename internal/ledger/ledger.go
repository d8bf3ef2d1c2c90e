// Package ledger tracks open positions, at most one per symbol.
package ledger

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"TickSentinel/internal/model"
)

var (
	ErrPositionExists = errors.New("position already open")
	ErrNoPosition     = errors.New("no open position")
	ErrTierCap        = errors.New("averaging tier cap reached")
	ErrInvalidFill    = errors.New("invalid fill")
)

// Ledger holds the open positions of one engine. It is not safe for concurrent use.
type Ledger struct {
	positions map[string]*model.Position
	maxTiers  int
}

// New creates a Ledger allowing up to maxTiers averaging fills per position.
// Zero or negative disables averaging.
func New(maxTiers int) *Ledger {
	if maxTiers < 0 {
		maxTiers = 0
	}
	return &Ledger{positions: make(map[string]*model.Position), maxTiers: maxTiers}
}

func validFill(price, qty float64) error {
	if !(price > 0) || !(qty > 0) || math.IsInf(price, 0) || math.IsInf(qty, 0) {
		return fmt.Errorf("%w: price=%v qty=%v", ErrInvalidFill, price, qty)
	}
	return nil
}

// Open records a new position at tier 0.
func (l *Ledger) Open(symbol string, price, qty float64, tick uint64) (model.Position, error) {
	if err := validFill(price, qty); err != nil {
		return model.Position{}, err
	}
	if _, ok := l.positions[symbol]; ok {
		return model.Position{}, fmt.Errorf("%w: %s", ErrPositionExists, symbol)
	}
	p := &model.Position{
		Symbol:       symbol,
		Quantity:     qty,
		AvgPrice:     price,
		BaseQuantity: qty,
		EntryTick:    tick,
		LastFillTick: tick,
		HighWater:    price,
	}
	l.positions[symbol] = p
	return *p, nil
}

// AverageDown adds a fill to an open position and recomputes the
// quantity-weighted average entry price.
func (l *Ledger) AverageDown(symbol string, price, qty float64, tick uint64) (model.Position, error) {
	if err := validFill(price, qty); err != nil {
		return model.Position{}, err
	}
	p, ok := l.positions[symbol]
	if !ok {
		return model.Position{}, fmt.Errorf("%w: %s", ErrNoPosition, symbol)
	}
	if p.Tier >= l.maxTiers {
		return model.Position{}, fmt.Errorf("%w: %s at tier %d", ErrTierCap, symbol, p.Tier)
	}
	total := p.Quantity + qty
	p.AvgPrice = (p.Quantity*p.AvgPrice + qty*price) / total
	p.Quantity = total
	p.Tier++
	p.LastFillTick = tick
	return *p, nil
}

// Close removes the position and returns its final state.
func (l *Ledger) Close(symbol string) (model.Position, error) {
	p, ok := l.positions[symbol]
	if !ok {
		return model.Position{}, fmt.Errorf("%w: %s", ErrNoPosition, symbol)
	}
	delete(l.positions, symbol)
	return *p, nil
}

// UpdateHighWaterMark raises the high-water mark. No-op when flat or below the mark.
func (l *Ledger) UpdateHighWaterMark(symbol string, price float64) {
	if p, ok := l.positions[symbol]; ok && price > p.HighWater {
		p.HighWater = price
	}
}

func (l *Ledger) Get(symbol string) (model.Position, bool) {
	p, ok := l.positions[symbol]
	if !ok {
		return model.Position{}, false
	}
	return *p, true
}

func (l *Ledger) Count() int { return len(l.positions) }

// Positions returns copies of all open positions sorted by symbol.
func (l *Ledger) Positions() []model.Position {
	out := make([]model.Position, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Invested is the total cost basis of all open positions.
func (l *Ledger) Invested() float64 {
	sum := 0.0
	for _, p := range l.positions {
		sum += p.CostBasis()
	}
	return sum
}

// Restore replaces the ledger contents with persisted positions.
func (l *Ledger) Restore(positions []model.Position) error {
	next := make(map[string]*model.Position, len(positions))
	for _, p := range positions {
		if err := validFill(p.AvgPrice, p.Quantity); err != nil {
			return fmt.Errorf("restore %s: %w", p.Symbol, err)
		}
		if p.Tier < 0 {
			return fmt.Errorf("restore %s: negative tier %d", p.Symbol, p.Tier)
		}
		if _, dup := next[p.Symbol]; dup {
			return fmt.Errorf("restore: %w: %s", ErrPositionExists, p.Symbol)
		}
		p := p
		next[p.Symbol] = &p
	}
	l.positions = next
	return nil
}
