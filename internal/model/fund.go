package model

import "time"

// FundState tracks the capital pool of one agent.
type FundState struct {
	InitialCapital float64 `json:"initial_capital"`
	Available      float64 `json:"available"`
	Invested       float64 `json:"invested"`
	BankedProfit   float64 `json:"banked_profit"`
	RealizedPnL    float64 `json:"realized_pnl"`
	Trades         int     `json:"trades"`
	Wins           int     `json:"wins"`
}

// PortfolioSnapshot is the serialisable state of one engine instance.
type PortfolioSnapshot struct {
	Agent     string            `json:"agent"`
	Tick      uint64            `json:"tick"`
	Fund      FundState         `json:"fund"`
	Positions []Position        `json:"positions"`
	ClosedAt  map[string]uint64 `json:"closed_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Stats is the running performance summary exposed to the leaderboard.
type Stats struct {
	Agent         string    `json:"agent"`
	Tick          uint64    `json:"tick"`
	Fund          FundState `json:"fund"`
	OpenPositions int       `json:"open_positions"`
	Equity        float64   `json:"equity"`
}

// WinRate returns wins over closed trades, or 0 with no trades.
func (s Stats) WinRate() float64 {
	if s.Fund.Trades == 0 {
		return 0
	}
	return float64(s.Fund.Wins) / float64(s.Fund.Trades)
}
