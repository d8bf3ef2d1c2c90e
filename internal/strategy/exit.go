package strategy

import (
	"TickSentinel/internal/model"
)

// ExitKind tags the rule that closed a position.
type ExitKind string

const (
	ExitStopLoss   ExitKind = "stop_loss"
	ExitTakeProfit ExitKind = "take_profit"
	ExitReversion  ExitKind = "mean_reversion"
	ExitTimeDecay  ExitKind = "time_decay"
	ExitTrailing   ExitKind = "trailing_stop"
)

// exitOrder is the evaluation priority: risk protection first, then profit,
// then signal normalisation, then patience-based exits.
var exitOrder = []ExitKind{ExitStopLoss, ExitTakeProfit, ExitReversion, ExitTimeDecay, ExitTrailing}

// ExitPolicy configures the exit rules. A zero value disables a rule.
type ExitPolicy struct {
	StopLossPct           float64 `yaml:"stop_loss_pct"`
	TakeProfitPct         float64 `yaml:"take_profit_pct"`
	Reversion             bool    `yaml:"reversion"`
	ReversionZ            float64 `yaml:"reversion_z"`
	UseRegression         bool    `yaml:"use_regression"`
	MaxHoldTicks          int     `yaml:"max_hold_ticks"`
	TrailingPct           float64 `yaml:"trailing_pct"`
	TrailingActivationPct float64 `yaml:"trailing_activation_pct"`
}

// ExitVerdict names the first exit rule that fired, if any.
type ExitVerdict struct {
	Eligible  bool
	ReasonTag ExitKind
}

// EvaluateExit checks the rules in fixed priority order; the first match wins.
func EvaluateExit(pos model.Position, snap model.IndicatorSnapshot, now uint64, p ExitPolicy) ExitVerdict {
	if !snap.Last.Valid {
		return ExitVerdict{}
	}
	for _, kind := range exitOrder {
		if exitFires(kind, pos, snap, now, p) {
			return ExitVerdict{Eligible: true, ReasonTag: kind}
		}
	}
	return ExitVerdict{}
}

func exitFires(kind ExitKind, pos model.Position, snap model.IndicatorSnapshot, now uint64, p ExitPolicy) bool {
	price := snap.Last.Value
	switch kind {
	case ExitStopLoss:
		return p.StopLossPct > 0 && price <= pos.AvgPrice*(1-p.StopLossPct)
	case ExitTakeProfit:
		return p.TakeProfitPct > 0 && price >= pos.AvgPrice*(1+p.TakeProfitPct)
	case ExitReversion:
		dev := snap.Deviation(p.UseRegression)
		return p.Reversion && dev.Valid && dev.Value >= p.ReversionZ
	case ExitTimeDecay:
		return p.MaxHoldTicks > 0 && pos.Age(now) >= uint64(p.MaxHoldTicks)
	case ExitTrailing:
		if p.TrailingPct <= 0 || pos.HighWater <= 0 {
			return false
		}
		if pos.HighWater < pos.AvgPrice*(1+p.TrailingActivationPct) {
			return false
		}
		return price <= pos.HighWater*(1-p.TrailingPct)
	}
	return false
}
