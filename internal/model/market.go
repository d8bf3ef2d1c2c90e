package model

import (
	"math"
	"time"
)

// Quote holds the observed attributes of one symbol in a tick.
// Optional metadata is nil when the feed did not provide it.
type Quote struct {
	Price     float64  `json:"price"`
	Liquidity *float64 `json:"liquidity,omitempty"`
	Volume24h *float64 `json:"volume_24h,omitempty"`
	Change24h *float64 `json:"change_24h,omitempty"`
}

// Valid reports whether the quote carries a usable price.
func (q Quote) Valid() bool {
	return q.Price > 0 && !math.IsInf(q.Price, 0) && !math.IsNaN(q.Price)
}

// PriceTick is a snapshot of current prices keyed by symbol.
type PriceTick struct {
	At     time.Time
	Quotes map[string]Quote
}

// Float returns a pointer to v, for filling optional quote fields.
func Float(v float64) *float64 { return &v }
