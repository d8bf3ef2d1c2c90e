package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"TickSentinel/internal/model"
)

// Fetcher returns the current quotes for a set of symbols.
type Fetcher interface {
	FetchTick(ctx context.Context, symbols []string) (model.PriceTick, error)
	Name() string
}

// quoteRow is the JSON shape shared by the REST and stream sources.
// Numbers may arrive as JSON numbers or numeric strings.
type quoteRow struct {
	Symbol    string          `json:"symbol"`
	Price     json.RawMessage `json:"price"`
	Liquidity json.RawMessage `json:"liquidity,omitempty"`
	Volume24h json.RawMessage `json:"volume_24h,omitempty"`
	Change24h json.RawMessage `json:"change_24h,omitempty"`
}

// quote converts a row, rejecting missing or non-numeric prices.
// Unparseable metadata is left nil.
func (r quoteRow) quote() (model.Quote, error) {
	p, ok := parseNumber(r.Price)
	if !ok {
		return model.Quote{}, fmt.Errorf("%s: missing or non-numeric price %s", r.Symbol, strings.TrimSpace(string(r.Price)))
	}
	return model.Quote{
		Price:     p,
		Liquidity: optional(r.Liquidity),
		Volume24h: optional(r.Volume24h),
		Change24h: optional(r.Change24h),
	}, nil
}

func parseNumber(raw json.RawMessage) (float64, bool) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.Trim(s, `"`), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func optional(raw json.RawMessage) *float64 {
	if v, ok := parseNumber(raw); ok {
		return &v
	}
	return nil
}
