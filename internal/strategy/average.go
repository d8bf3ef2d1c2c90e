package strategy

import (
	"fmt"

	"TickSentinel/internal/model"
)

// AveragePolicy configures tiered averaging-down. MaxTiers is the number of
// averaging fills allowed after the entry; 0 disables it.
type AveragePolicy struct {
	MaxTiers       int     `yaml:"max_tiers"`
	StepPct        float64 `yaml:"step_pct"`
	SizeMultiplier float64 `yaml:"size_multiplier"`
	RequireSignal  bool    `yaml:"require_signal"`
}

// AverageVerdict says whether an open position should be defended.
type AverageVerdict struct {
	Eligible  bool
	ReasonTag string
	Quantity  float64
}

// EvaluateAverage triggers when price has fallen StepPct below the average
// entry and the tier cap is not reached.
func EvaluateAverage(pos model.Position, snap model.IndicatorSnapshot, th Thresholds, p AveragePolicy) AverageVerdict {
	if p.MaxTiers <= 0 || p.StepPct <= 0 || pos.Tier >= p.MaxTiers || !snap.Last.Valid {
		return AverageVerdict{}
	}
	price := snap.Last.Value
	if price > pos.AvgPrice*(1-p.StepPct) {
		return AverageVerdict{}
	}
	if p.RequireSignal {
		dev := snap.Deviation(th.UseRegression)
		if !dev.Valid || dev.Value >= th.ZEntry {
			return AverageVerdict{}
		}
	}
	mult := p.SizeMultiplier
	if mult <= 0 {
		mult = 1
	}
	return AverageVerdict{
		Eligible:  true,
		ReasonTag: fmt.Sprintf("average_down:tier%d", pos.Tier+1),
		Quantity:  pos.BaseQuantity * mult,
	}
}
