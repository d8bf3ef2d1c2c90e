package fund

import (
	"errors"
	"fmt"
	"sync"

	"TickSentinel/internal/model"
)

const epsilon = 1e-9

var (
	ErrInsufficientFunds = errors.New("insufficient available capital")
	ErrInvalidAmount     = errors.New("invalid amount")
)

// Pool tracks the capital of one agent with concurrency safety.
// Realised profit is banked rather than returned to the available balance,
// so available + invested never exceeds the initial capital.
type Pool struct {
	mu    sync.Mutex
	state model.FundState
}

// NewPool creates a Pool holding initial capital.
func NewPool(initial float64) (*Pool, error) {
	if !(initial > 0) {
		return nil, fmt.Errorf("%w: initial capital %v", ErrInvalidAmount, initial)
	}
	return &Pool{state: model.FundState{InitialCapital: initial, Available: initial}}, nil
}

// State returns a copy of the current fund state.
func (p *Pool) State() model.FundState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pool) Available() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Available
}

// Reserve moves notional from available to invested capital.
func (p *Pool) Reserve(notional float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !(notional > 0) {
		return fmt.Errorf("%w: reserve %v", ErrInvalidAmount, notional)
	}
	if notional > p.state.Available+epsilon {
		return fmt.Errorf("%w: need %.4f, have %.4f", ErrInsufficientFunds, notional, p.state.Available)
	}
	p.state.Available -= notional
	if p.state.Available < 0 {
		p.state.Available = 0
	}
	p.state.Invested += notional
	return nil
}

// Release settles a closed position and returns its realised PnL.
// The cost basis minus any loss goes back to available capital; profit is banked.
func (p *Pool) Release(costBasis, proceeds float64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	pnl := proceeds - costBasis
	p.state.Invested -= costBasis
	if p.state.Invested < epsilon {
		p.state.Invested = 0
	}
	if pnl >= 0 {
		p.state.Available += costBasis
		p.state.BankedProfit += pnl
	} else {
		p.state.Available += proceeds
	}
	p.state.RealizedPnL += pnl
	p.state.Trades++
	if pnl > 0 {
		p.state.Wins++
	}
	return pnl
}

// Conserved reports whether available + invested stays within the initial capital.
func (p *Pool) Conserved() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Available >= -epsilon &&
		p.state.Available+p.state.Invested <= p.state.InitialCapital+epsilon*(1+p.state.InitialCapital)
}

// Restore replaces the pool state with a persisted one.
func (p *Pool) Restore(s model.FundState) error {
	if !(s.InitialCapital > 0) || s.Available < 0 || s.Invested < 0 {
		return fmt.Errorf("%w: restore %+v", ErrInvalidAmount, s)
	}
	if s.Available+s.Invested > s.InitialCapital+epsilon*(1+s.InitialCapital) {
		return fmt.Errorf("%w: restored capital exceeds initial", ErrInvalidAmount)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = s
	return nil
}
