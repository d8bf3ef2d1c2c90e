package collector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"TickSentinel/internal/metrics"
	"TickSentinel/internal/model"
)

var ErrScriptExhausted = errors.New("mock script exhausted")

// MockFetcher replays scripted ticks, or generates a deterministic oscillating
// series around BasePrice with a sharp dip every DipEvery calls.
type MockFetcher struct {
	Script    []map[string]float64
	Loop      bool
	BasePrice float64
	DipEvery  int

	calls int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchTick(_ context.Context, symbols []string) (model.PriceTick, error) {
	i := m.calls
	m.calls++

	tick := model.PriceTick{At: time.Now(), Quotes: make(map[string]model.Quote)}
	if len(m.Script) > 0 {
		if i >= len(m.Script) {
			if !m.Loop {
				return model.PriceTick{}, ErrScriptExhausted
			}
			i %= len(m.Script)
		}
		for sym, p := range m.Script[i] {
			tick.Quotes[sym] = model.Quote{Price: p}
		}
		return tick, nil
	}

	for k, sym := range symbols {
		tick.Quotes[sym] = model.Quote{Price: m.generate(i, k)}
	}
	return tick, nil
}

func (m *MockFetcher) generate(i, k int) float64 {
	base := m.BasePrice
	if base <= 0 {
		base = 100
	}
	p := base * (1 + 0.005*math.Sin(float64(i+3*k)/3))
	if m.DipEvery > 0 && i > 0 && (i+k)%m.DipEvery == 0 {
		p *= 0.9
	}
	return p
}

// Collector fetches one tick for the configured symbols.
type Collector struct {
	Fetcher Fetcher
	Symbols []string
	log     zerolog.Logger
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, symbols []string, logger zerolog.Logger) *Collector {
	return &Collector{Fetcher: fetcher, Symbols: symbols, log: logger}
}

// Collect fetches the current quotes and stamps the tick time.
func (c *Collector) Collect(ctx context.Context) (model.PriceTick, error) {
	tick, err := c.Fetcher.FetchTick(ctx, c.Symbols)
	if err != nil {
		metrics.FetchErrorsTotal.WithLabelValues(c.Fetcher.Name()).Inc()
		return model.PriceTick{}, fmt.Errorf("fetch tick from %s: %w", c.Fetcher.Name(), err)
	}
	if tick.At.IsZero() {
		tick.At = time.Now()
	}
	if tick.Quotes == nil {
		tick.Quotes = make(map[string]model.Quote)
	}
	if missing := len(c.Symbols) - len(tick.Quotes); missing > 0 {
		c.log.Debug().Str("source", c.Fetcher.Name()).Int("missing", missing).Msg("partial tick")
	}
	return tick, nil
}
