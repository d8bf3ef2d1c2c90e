package model

// Side is the order direction of an Action.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Intent says which lifecycle transition an Action performs.
type Intent string

const (
	IntentOpen    Intent = "OPEN"
	IntentAverage Intent = "AVERAGE"
	IntentClose   Intent = "CLOSE"
)

// Action is the single decision an engine emits for a tick.
// Amount is always denominated in base-asset quantity.
type Action struct {
	ID      string   `json:"id"`
	Agent   string   `json:"agent"`
	Tick    uint64   `json:"tick"`
	Side    Side     `json:"side"`
	Intent  Intent   `json:"intent"`
	Symbol  string   `json:"symbol"`
	Amount  float64  `json:"amount"`
	Price   float64  `json:"price"`
	Reasons []string `json:"reason_tags"`
}

// Notional is the quote-currency value of the action at its decision price.
func (a Action) Notional() float64 { return a.Amount * a.Price }

// Position is one open exposure to a symbol.
type Position struct {
	Symbol       string  `json:"symbol"`
	Quantity     float64 `json:"quantity"`
	AvgPrice     float64 `json:"avg_price"`
	BaseQuantity float64 `json:"base_quantity"`
	EntryTick    uint64  `json:"entry_tick"`
	LastFillTick uint64  `json:"last_fill_tick"`
	HighWater    float64 `json:"high_water"`
	Tier         int     `json:"tier"` // averaging fills since entry
}

// Age returns the number of ticks since the position was opened.
func (p Position) Age(now uint64) uint64 {
	if now < p.EntryTick {
		return 0
	}
	return now - p.EntryTick
}

// CostBasis returns the capital committed to the position.
func (p Position) CostBasis() float64 { return p.Quantity * p.AvgPrice }

// Return is the fractional gain of price over the average entry price.
func (p Position) Return(price float64) float64 {
	if p.AvgPrice == 0 {
		return 0
	}
	return (price - p.AvgPrice) / p.AvgPrice
}
