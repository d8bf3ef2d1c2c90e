package recorder

import (
	"time"

	"TickSentinel/internal/model"
)

// ActionEvent is one emitted action with the fund state right after it.
type ActionEvent struct {
	Action model.Action
	Fund   model.FundState
	At     time.Time
}

// EpochEvent is one agent's row in a tournament leaderboard.
type EpochEvent struct {
	Epoch         int64 // unix seconds of the epoch boundary
	Rank          int
	Agent         string
	Tick          uint64
	RealizedPnL   float64
	Equity        float64
	Trades        int
	WinRate       float64
	OpenPositions int
}

// HaltEvent records an agent stopped by an invariant violation.
type HaltEvent struct {
	Agent string
	Tick  uint64
	Error string
	At    time.Time
}

// Recorder persists historical data for analysis.
type Recorder interface {
	RecordAction(evt *ActionEvent) error
	RecordEpoch(evts []EpochEvent) error
	RecordHalt(evt *HaltEvent) error
	RecentActions(agent string, limit int) ([]model.Action, error)
	Close() error
}
