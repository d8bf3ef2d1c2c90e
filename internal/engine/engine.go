// Package engine runs the per-tick decision cycle of one agent:
// update series, check exits, check averaging, then rank new entries.
// At most one action is emitted per tick.
package engine

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"TickSentinel/internal/calculator"
	"TickSentinel/internal/fund"
	"TickSentinel/internal/ledger"
	"TickSentinel/internal/model"
	"TickSentinel/internal/risk"
	"TickSentinel/internal/series"
	"TickSentinel/internal/strategy"
)

// ErrInvariant marks a broken capital or position invariant. It is a bug, not a market condition.
var ErrInvariant = errors.New("engine invariant violated")

// Config is everything needed to build one engine.
type Config struct {
	Agent          string
	Capital        float64
	Profile        strategy.Profile
	Risk           risk.Limits
	Sizing         risk.SizingConfig
	SeriesCapacity int
	IdleTicks      int
}

// Indicators computes an indicator snapshot from a price history, oldest first.
type Indicators interface {
	Compute(prices []float64) model.IndicatorSnapshot
}

// Observer receives engine events for metrics.
type Observer interface {
	TickProcessed(agent string)
	QuoteSkipped(agent, symbol string)
	ActionEmitted(a model.Action)
	StatsUpdated(s model.Stats)
}

type nopObserver struct{}

func (nopObserver) TickProcessed(string)        {}
func (nopObserver) QuoteSkipped(string, string) {}
func (nopObserver) ActionEmitted(model.Action)  {}
func (nopObserver) StatsUpdated(model.Stats)    {}

type Option func(*Engine)

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

func WithIndicators(ind Indicators) Option {
	return func(e *Engine) { e.indicators = ind }
}

func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithIDs replaces the action ID generator.
func WithIDs(next func() string) Option {
	return func(e *Engine) { e.newID = next }
}

// Engine is a single-threaded decision engine. It performs no I/O.
type Engine struct {
	cfg        Config
	tick       uint64
	series     *series.Set
	ledger     *ledger.Ledger
	pool       *fund.Pool
	risk       *risk.Manager
	indicators Indicators
	observer   Observer
	newID      func() string
	log        zerolog.Logger
}

// New validates cfg and builds an Engine.
func New(cfg Config, opts ...Option) (*Engine, error) {
	pool, err := fund.NewPool(cfg.Capital)
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", cfg.Agent, err)
	}
	sizer, err := risk.NewSizer(cfg.Sizing)
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", cfg.Agent, err)
	}
	capacity := cfg.SeriesCapacity
	if need := cfg.Profile.RequiredHistory(); capacity < need {
		capacity = need
	}
	cfg.SeriesCapacity = capacity

	e := &Engine{
		cfg:        cfg,
		series:     series.NewSet(capacity),
		ledger:     ledger.New(cfg.Profile.Average.MaxTiers),
		pool:       pool,
		risk:       risk.NewManager(cfg.Risk, sizer),
		indicators: calculator.NewLibrary(cfg.Profile.Indicators),
		observer:   nopObserver{},
		newID:      uuid.NewString,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With().Str("agent", cfg.Agent).Logger()
	return e, nil
}

func (e *Engine) Agent() string { return e.cfg.Agent }

// Tick returns the logical clock: the number of ticks processed.
func (e *Engine) Tick() uint64 { return e.tick }

// OnTick processes one price snapshot. It returns nil for HOLD.
// A non-nil error means an invariant broke and the engine must stop.
func (e *Engine) OnTick(pt model.PriceTick) (*model.Action, error) {
	e.tick++
	now := e.tick
	e.observer.TickProcessed(e.cfg.Agent)

	quotes := e.observe(pt, now)
	snaps := make(map[string]model.IndicatorSnapshot, len(quotes))
	snapshot := func(symbol string) model.IndicatorSnapshot {
		if s, ok := snaps[symbol]; ok {
			return s
		}
		r, _ := e.series.Get(symbol)
		s := e.indicators.Compute(r.Snapshot())
		snaps[symbol] = s
		return s
	}

	action, err := e.decide(now, quotes, snapshot)
	if err != nil {
		return nil, err
	}
	if action != nil {
		if err := e.checkInvariants(); err != nil {
			return nil, err
		}
		e.observer.ActionEmitted(*action)
	}
	e.prune(now)
	e.observer.StatsUpdated(e.Stats())
	return action, nil
}

// observe folds valid quotes into their series and returns them.
func (e *Engine) observe(pt model.PriceTick, now uint64) map[string]model.Quote {
	symbols := make([]string, 0, len(pt.Quotes))
	for sym := range pt.Quotes {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	valid := make(map[string]model.Quote, len(symbols))
	for _, sym := range symbols {
		q := pt.Quotes[sym]
		if sym == "" || !q.Valid() {
			e.log.Debug().Str("symbol", sym).Float64("price", q.Price).Msg("skipping malformed quote")
			e.observer.QuoteSkipped(e.cfg.Agent, sym)
			continue
		}
		e.series.Observe(sym, q.Price, now)
		e.ledger.UpdateHighWaterMark(sym, q.Price)
		valid[sym] = q
	}
	return valid
}

func (e *Engine) decide(now uint64, quotes map[string]model.Quote, snapshot func(string) model.IndicatorSnapshot) (*model.Action, error) {
	positions := e.ledger.Positions()
	profile := e.cfg.Profile

	for _, pos := range positions {
		q, ok := quotes[pos.Symbol]
		if !ok {
			continue
		}
		if v := strategy.EvaluateExit(pos, snapshot(pos.Symbol), now, profile.Exit); v.Eligible {
			return e.closePosition(pos.Symbol, q.Price, now, string(v.ReasonTag))
		}
	}

	for _, pos := range positions {
		q, ok := quotes[pos.Symbol]
		if !ok {
			continue
		}
		v := strategy.EvaluateAverage(pos, snapshot(pos.Symbol), profile.Entry, profile.Average)
		if !v.Eligible {
			continue
		}
		if notional := v.Quantity * q.Price; notional > e.pool.Available() {
			e.log.Debug().Str("symbol", pos.Symbol).Float64("notional", notional).Msg("averaging skipped: insufficient capital")
			continue
		}
		return e.averageDown(pos.Symbol, q.Price, v.Quantity, now, v.ReasonTag)
	}

	if e.risk.FreeSlots(e.ledger.Count()) == 0 {
		return nil, nil
	}
	return e.openBest(now, quotes, snapshot)
}

type candidate struct {
	symbol string
	price  float64
	vol    model.Reading
	score  float64
	tags   []string
}

func (e *Engine) openBest(now uint64, quotes map[string]model.Quote, snapshot func(string) model.IndicatorSnapshot) (*model.Action, error) {
	open := e.ledger.Count()
	symbols := make([]string, 0, len(quotes))
	for sym := range quotes {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	var candidates []candidate
	for _, sym := range symbols {
		q := quotes[sym]
		if _, held := e.ledger.Get(sym); held {
			continue
		}
		if err := e.risk.AdmitSymbol(sym, q, open, now); err != nil {
			e.log.Debug().Str("symbol", sym).Err(err).Msg("entry gated")
			continue
		}
		snap := snapshot(sym)
		v := strategy.EvaluateEntry(snap, q, e.cfg.Profile.Entry)
		if !v.Eligible {
			continue
		}
		candidates = append(candidates, candidate{symbol: sym, price: q.Price, vol: snap.Volatility, score: v.Score, tags: v.ReasonTags})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].symbol < candidates[j].symbol
	})

	for _, c := range candidates {
		notional, err := e.risk.SizeEntry(e.pool.Available(), open, c.vol)
		if err != nil {
			e.log.Debug().Str("symbol", c.symbol).Err(err).Msg("entry not sized")
			continue
		}
		qty := notional / c.price
		if err := e.pool.Reserve(notional); err != nil {
			return nil, fmt.Errorf("%w: open %s: %v", ErrInvariant, c.symbol, err)
		}
		if _, err := e.ledger.Open(c.symbol, c.price, qty, now); err != nil {
			return nil, fmt.Errorf("%w: open %s: %v", ErrInvariant, c.symbol, err)
		}
		a := e.newAction(now, model.Buy, model.IntentOpen, c.symbol, qty, c.price, c.tags)
		e.log.Info().Str("symbol", c.symbol).Float64("price", c.price).Float64("amount", qty).
			Float64("score", c.score).Strs("reason", c.tags).Msg("open position")
		return a, nil
	}
	return nil, nil
}

func (e *Engine) averageDown(symbol string, price, qty float64, now uint64, reason string) (*model.Action, error) {
	if err := e.pool.Reserve(qty * price); err != nil {
		return nil, fmt.Errorf("%w: average %s: %v", ErrInvariant, symbol, err)
	}
	pos, err := e.ledger.AverageDown(symbol, price, qty, now)
	if err != nil {
		return nil, fmt.Errorf("%w: average %s: %v", ErrInvariant, symbol, err)
	}
	e.log.Info().Str("symbol", symbol).Float64("price", price).Float64("amount", qty).
		Float64("avg_price", pos.AvgPrice).Int("tier", pos.Tier).Msg("average down")
	return e.newAction(now, model.Buy, model.IntentAverage, symbol, qty, price, []string{reason}), nil
}

func (e *Engine) closePosition(symbol string, price float64, now uint64, reason string) (*model.Action, error) {
	pos, err := e.ledger.Close(symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: close %s: %v", ErrInvariant, symbol, err)
	}
	pnl := e.pool.Release(pos.CostBasis(), pos.Quantity*price)
	e.risk.StartCooldown(symbol, now)
	e.log.Info().Str("symbol", symbol).Float64("price", price).Float64("amount", pos.Quantity).
		Float64("pnl", pnl).Str("reason", reason).Msg("close position")
	return e.newAction(now, model.Sell, model.IntentClose, symbol, pos.Quantity, price, []string{reason}), nil
}

func (e *Engine) newAction(now uint64, side model.Side, intent model.Intent, symbol string, qty, price float64, reasons []string) *model.Action {
	return &model.Action{
		ID:      e.newID(),
		Agent:   e.cfg.Agent,
		Tick:    now,
		Side:    side,
		Intent:  intent,
		Symbol:  symbol,
		Amount:  qty,
		Price:   price,
		Reasons: append([]string(nil), reasons...),
	}
}

func (e *Engine) checkInvariants() error {
	if !e.pool.Conserved() {
		return fmt.Errorf("%w: capital %+v", ErrInvariant, e.pool.State())
	}
	invested := e.pool.State().Invested
	if held := e.ledger.Invested(); math.Abs(held-invested) > 1e-6*(1+invested) {
		return fmt.Errorf("%w: ledger holds %.6f, pool invested %.6f", ErrInvariant, held, invested)
	}
	return nil
}

// prune drops idle flat series, keeping held and cooling symbols.
func (e *Engine) prune(now uint64) {
	if e.cfg.IdleTicks <= 0 {
		return
	}
	e.risk.Cooldowns(now)
	cooling := make(map[string]bool)
	for _, sym := range e.risk.CoolingSymbols() {
		cooling[sym] = true
	}
	removed := e.series.Prune(now, e.cfg.IdleTicks, func(sym string) bool {
		_, held := e.ledger.Get(sym)
		return held || cooling[sym]
	})
	if len(removed) > 0 {
		e.log.Debug().Strs("symbols", removed).Msg("pruned idle series")
	}
}
